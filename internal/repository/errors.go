// Package repository implements data access over the MySQL store. Sentinel
// errors defined here let handlers translate failures into HTTP responses
// without inspecting driver errors. Ownership violations surface as
// ErrNotFound on purpose: the API must not reveal whether a character
// exists under another account.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is not visible to
// the calling user. Handlers translate it into a 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registration hits the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when registration hits the unique username
// index.
var ErrUsernameExists = errors.New("username already exists")

// ErrTokenExpired is returned when a password reset token exists but is
// past its expiry.
var ErrTokenExpired = errors.New("token expired")

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelyth/loresheet/internal/config"
	"github.com/avelyth/loresheet/internal/middleware"
	"github.com/avelyth/loresheet/internal/model"
	"github.com/avelyth/loresheet/internal/queue"
	"github.com/avelyth/loresheet/internal/repository"
	"github.com/avelyth/loresheet/internal/utils"
)

const (
	minPasswordLen = 6
	minUsernameLen = 3

	// The forgot-password endpoint answers identically whether or not the
	// account exists, so responses cannot be used to enumerate emails.
	genericResetMsg = "if that account exists, a reset link has been sent"
)

// UserStore is the subset of the user repository the auth handlers need.
type UserStore interface {
	Create(ctx context.Context, email, username, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, userID uint64, password string, cost int) error
}

// ResetStore manages single-use password reset tokens.
type ResetStore interface {
	Replace(ctx context.Context, userID uint64, token string, exp time.Time) error
	Consume(ctx context.Context, token string) (uint64, error)
}

// ResetPublisher hands a reset event to the mail queue. Publish failures
// degrade gracefully: the reset row already exists, so the token can still
// be recovered by an operator.
type ResetPublisher func(ctx context.Context, ev queue.PasswordResetRequestedEvent) error

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg          config.Config
	Users        UserStore
	Resets       ResetStore
	PublishReset ResetPublisher
}

func NewAuthHandler(cfg config.Config, u UserStore, r ResetStore, pub ResetPublisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Resets: r, PublishReset: pub}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type userPart struct {
	ID                uint64  `json:"id"`
	Email             string  `json:"email"`
	Username          string  `json:"username"`
	ActiveCharacterID *uint64 `json:"activeCharacterId,omitempty"`
}

func userToPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Username: u.Username, ActiveCharacterID: u.ActiveCharacterID}
}

// Register creates a user account. 400 on validation failure, 409 when the
// email or username is taken.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email address"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}
	if len(req.Username) < minUsernameLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username must be at least 3 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Username, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user": userPart{ID: uid, Email: req.Email, Username: req.Username},
	})
}

// Login verifies credentials and returns a bearer token. Unknown email and
// wrong password produce the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.TokenTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":    userToPart(u),
		"token":   access.Token,
		"expires": access.Exp,
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userToPart(u)})
}

// ForgotPassword mints a single-use reset token and queues the mail. The
// response is the same generic 200 whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		// Unknown email gets the generic message; store failures too, since
		// distinguishing them would leak the same information.
		return c.JSON(http.StatusOK, echo.Map{"message": genericResetMsg})
	}

	token, err := utils.NewResetToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	exp := time.Now().UTC().Add(time.Duration(h.Cfg.ResetTTLMin) * time.Minute)
	if err := h.Resets.Replace(ctx, u.ID, token, exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save token failed"})
	}

	if h.PublishReset != nil {
		ev := queue.PasswordResetRequestedEvent{
			UserID:      u.ID,
			Email:       u.Email,
			Username:    u.Username,
			Token:       token,
			ExpiresAt:   exp.Format(time.RFC3339),
			RequestedAt: time.Now().UTC().Format(time.RFC3339),
		}
		_ = h.PublishReset(ctx, ev) // mail failure must not fail the request
	}

	resp := echo.Map{"message": genericResetMsg}
	if !h.Cfg.IsProd() {
		resp["debug_token"] = token
	}
	return c.JSON(http.StatusOK, resp)
}

// ResetPassword consumes a reset token and installs the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Resets.Consume(ctx, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrTokenExpired) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	if err := h.Users.UpdatePassword(ctx, userID, req.Password, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

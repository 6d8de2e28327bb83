// Package api is the REST client for the sheet server. It wraps every
// endpoint in a typed method; transport and error handling live in one
// doRequest path.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client talks to one server with one bearer token. The zero value is not
// usable; construct it with New.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token up front, e.g. one restored from the
// local cache.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the bearer token used for authenticated calls.
// Login does this automatically.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current bearer token.
func (c *Client) Token() string { return c.token }

// ----- wire types -----

// User is the account projection the server returns.
type User struct {
	ID                uint64  `json:"id"`
	Email             string  `json:"email"`
	Username          string  `json:"username"`
	ActiveCharacterID *uint64 `json:"activeCharacterId,omitempty"`
}

// Character mirrors the server's character payload.
type Character struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	Data       json.RawMessage `json:"data"`
	IsShared   bool            `json:"isShared"`
	ShareToken *string         `json:"shareToken"`
	IsActive   bool            `json:"isActive"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// SharedCharacter is the public share-link projection.
type SharedCharacter struct {
	Character
	Owner string `json:"owner"`
}

// LoginResult is the login response: the account, a bearer token and its
// unix expiry.
type LoginResult struct {
	User    User   `json:"user"`
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

type userEnvelope struct {
	User User `json:"user"`
}

type characterEnvelope struct {
	Character Character `json:"character"`
}

type sharedEnvelope struct {
	Character SharedCharacter `json:"character"`
}

type messageEnvelope struct {
	Message    string `json:"message"`
	DebugToken string `json:"debug_token"`
}

// ----- auth -----

// Register creates an account. 409s surface via IsConflict.
func (c *Client) Register(ctx context.Context, email, username, password string) (User, error) {
	body := map[string]string{"email": email, "username": username, "password": password}
	var out userEnvelope
	err := c.post(ctx, "/v1/auth/register", body, &out)
	return out.User, err
}

// Login exchanges credentials for a bearer token and installs it on the
// client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResult
	if err := c.post(ctx, "/v1/auth/login", body, &out); err != nil {
		return LoginResult{}, err
	}
	c.token = out.Token
	return out, nil
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out userEnvelope
	err := c.get(ctx, "/v1/auth/me", &out)
	return out.User, err
}

// ForgotPassword requests a reset token for email. The server's answer is
// deliberately the same whether or not the account exists; in non-prod
// deployments it carries the token itself, which is returned here.
func (c *Client) ForgotPassword(ctx context.Context, email string) (debugToken string, err error) {
	var out messageEnvelope
	if err := c.post(ctx, "/v1/auth/forgot-password", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	return out.DebugToken, nil
}

// ResetPassword consumes a reset token and sets a new password.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	return c.post(ctx, "/v1/auth/reset-password", body, nil)
}

// ----- characters -----

// ListCharacters returns the caller's characters, most recently updated
// first.
func (c *Client) ListCharacters(ctx context.Context) ([]Character, error) {
	var out struct {
		Characters []Character `json:"characters"`
	}
	err := c.get(ctx, "/v1/characters", &out)
	return out.Characters, err
}

// CreateCharacter makes a new character; data may be nil for an empty
// sheet.
func (c *Client) CreateCharacter(ctx context.Context, name string, data json.RawMessage) (Character, error) {
	body := map[string]any{"name": name}
	if len(data) > 0 {
		body["data"] = data
	}
	var out characterEnvelope
	err := c.post(ctx, "/v1/characters", body, &out)
	return out.Character, err
}

// GetCharacter fetches one character by id.
func (c *Client) GetCharacter(ctx context.Context, id uint64) (Character, error) {
	var out characterEnvelope
	err := c.get(ctx, fmt.Sprintf("/v1/characters/%d", id), &out)
	return out.Character, err
}

// UpdateCharacter pushes a partial update. Nil name keeps the stored one;
// non-nil data replaces the stored document wholesale and appends to the
// save history with the given saveType ("auto" when empty).
func (c *Client) UpdateCharacter(ctx context.Context, id uint64, name *string, data json.RawMessage, saveType string) (Character, error) {
	body := map[string]any{}
	if name != nil {
		body["name"] = *name
	}
	if len(data) > 0 {
		body["data"] = data
	}
	if saveType != "" {
		body["saveType"] = saveType
	}
	var out characterEnvelope
	err := c.put(ctx, fmt.Sprintf("/v1/characters/%d", id), body, &out)
	return out.Character, err
}

// DeleteCharacter removes a character and its save history.
func (c *Client) DeleteCharacter(ctx context.Context, id uint64) error {
	return c.delete(ctx, fmt.Sprintf("/v1/characters/%d", id))
}

// SetShared toggles the public share link. Enabling twice returns the
// same token.
func (c *Client) SetShared(ctx context.Context, id uint64, enabled bool) (Character, error) {
	var out characterEnvelope
	err := c.put(ctx, fmt.Sprintf("/v1/characters/%d", id), map[string]bool{"isShared": enabled}, &out)
	return out.Character, err
}

// GetSharedCharacter resolves a public share token. No authentication.
func (c *Client) GetSharedCharacter(ctx context.Context, token string) (SharedCharacter, error) {
	var out sharedEnvelope
	err := c.get(ctx, "/v1/characters/shared/"+url.PathEscape(token), &out)
	return out.Character, err
}

// GetActive returns the active character; IsNotFound when none is set.
func (c *Client) GetActive(ctx context.Context) (Character, error) {
	var out characterEnvelope
	err := c.get(ctx, "/v1/characters/active", &out)
	return out.Character, err
}

// SetActive makes id the active character.
func (c *Client) SetActive(ctx context.Context, id uint64) (Character, error) {
	var out characterEnvelope
	err := c.post(ctx, "/v1/characters/active", map[string]uint64{"characterId": id}, &out)
	return out.Character, err
}

// ResetAll deletes every character and save the caller owns.
func (c *Client) ResetAll(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodDelete, "/v1/admin/reset-all", nil, nil)
}

// ----- transport -----

// doRequest performs one HTTP round trip and maps non-2xx responses to
// *Error.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	reqURL, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.doRequest(ctx, http.MethodPut, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

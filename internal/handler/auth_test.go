package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelyth/loresheet/internal/config"
	"github.com/avelyth/loresheet/internal/model"
	"github.com/avelyth/loresheet/internal/repository"
	"github.com/avelyth/loresheet/internal/utils"
)

// ----- fakes -----

type fakeUserStore struct {
	nextID uint64
	users  map[uint64]model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]model.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, email, username, password string, cost int) (uint64, error) {
	for _, u := range s.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
		if u.Username == username {
			return 0, repository.ErrUsernameExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	s.nextID++
	s.users[s.nextID] = model.User{ID: s.nextID, Email: email, Username: username, PasswordHash: hash}
	return s.nextID, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, userID uint64, password string, cost int) error {
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	s.users[userID] = u
	return nil
}

type fakeResetStore struct {
	rows map[uint64]model.PasswordReset // keyed by user id
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{rows: map[uint64]model.PasswordReset{}}
}

func (s *fakeResetStore) Replace(_ context.Context, userID uint64, token string, exp time.Time) error {
	s.rows[userID] = model.PasswordReset{UserID: userID, Token: token, ExpiresAt: exp}
	return nil
}

func (s *fakeResetStore) Consume(_ context.Context, token string) (uint64, error) {
	for uid, row := range s.rows {
		if row.Token == token {
			delete(s.rows, uid)
			if time.Now().UTC().After(row.ExpiresAt) {
				return 0, repository.ErrTokenExpired
			}
			return uid, nil
		}
	}
	return 0, repository.ErrNotFound
}

// ----- helpers -----

func testCfg() config.Config {
	return config.Config{
		Env:          "test",
		JWTSecret:    "test-secret",
		TokenTTLDays: 7,
		ResetTTLMin:  60,
		BcryptCost:   4, // keep tests fast
	}
}

func newAuthFixture() (*AuthHandler, *fakeUserStore, *fakeResetStore) {
	users := newFakeUserStore()
	resets := newFakeResetStore()
	return NewAuthHandler(testCfg(), users, resets, nil), users, resets
}

func doJSON(h echo.HandlerFunc, method, target, body string, setup ...func(echo.Context)) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for _, fn := range setup {
		fn(c)
	}
	return rec, h(c)
}

func asUser(id uint64) func(echo.Context) {
	return func(c echo.Context) { c.Set("user_id", id) }
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ----- tests -----

func TestRegisterThenLogin(t *testing.T) {
	h, _, _ := newAuthFixture()

	rec, err := doJSON(h.Register, http.MethodPost, "/v1/auth/register",
		`{"email":"Ava@Example.com","username":"ava","password":"hunter22"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, err = doJSON(h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"ava@example.com","password":"hunter22"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	require.NotEmpty(t, token)

	// The issued token carries the user id as its subject.
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(1), claims["sub"])
}

func TestRegisterValidation(t *testing.T) {
	h, _, _ := newAuthFixture()

	cases := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"nope","username":"ava","password":"hunter22"}`},
		{"short password", `{"email":"a@b.cd","username":"ava","password":"abc"}`},
		{"short username", `{"email":"a@b.cd","username":"av","password":"hunter22"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := doJSON(h.Register, http.MethodPost, "/v1/auth/register", tc.body)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	h, _, _ := newAuthFixture()

	rec, err := doJSON(h.Register, http.MethodPost, "/v1/auth/register",
		`{"email":"a@b.cd","username":"ava","password":"hunter22"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, err = doJSON(h.Register, http.MethodPost, "/v1/auth/register",
		`{"email":"a@b.cd","username":"other","password":"hunter22"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, err = doJSON(h.Register, http.MethodPost, "/v1/auth/register",
		`{"email":"new@b.cd","username":"ava","password":"hunter22"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h, _, _ := newAuthFixture()

	_, err := doJSON(h.Register, http.MethodPost, "/v1/auth/register",
		`{"email":"a@b.cd","username":"ava","password":"hunter22"}`)
	require.NoError(t, err)

	unknown, err := doJSON(h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"ghost@b.cd","password":"hunter22"}`)
	require.NoError(t, err)
	wrongPass, err := doJSON(h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"a@b.cd","password":"wrong"}`)
	require.NoError(t, err)

	// Unknown account and wrong password must be byte-identical, or the
	// response becomes an account oracle.
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, unknown.Body.String(), wrongPass.Body.String())
}

func TestMe(t *testing.T) {
	h, users, _ := newAuthFixture()
	uid, err := users.Create(context.Background(), "a@b.cd", "ava", "hunter22", 4)
	require.NoError(t, err)

	rec, err := doJSON(h.Me, http.MethodGet, "/v1/auth/me", "", asUser(uid))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User userPart `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ava", body.User.Username)
}

func TestForgotPasswordDoesNotLeakAccounts(t *testing.T) {
	h, users, _ := newAuthFixture()
	_, err := users.Create(context.Background(), "a@b.cd", "ava", "hunter22", 4)
	require.NoError(t, err)

	known, err := doJSON(h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"a@b.cd"}`)
	require.NoError(t, err)
	unknown, err := doJSON(h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"ghost@b.cd"}`)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)

	knownBody := decodeBody(t, known)
	unknownBody := decodeBody(t, unknown)
	assert.Equal(t, knownBody["message"], unknownBody["message"])
}

func TestPasswordResetFlow(t *testing.T) {
	h, users, _ := newAuthFixture()
	_, err := users.Create(context.Background(), "a@b.cd", "ava", "hunter22", 4)
	require.NoError(t, err)

	rec, err := doJSON(h.ForgotPassword, http.MethodPost, "/v1/auth/forgot-password",
		`{"email":"a@b.cd"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	// Outside prod the response carries the token for operability.
	body := decodeBody(t, rec)
	var token string
	require.NoError(t, json.Unmarshal(body["debug_token"], &token))
	require.NotEmpty(t, token)

	rec, err = doJSON(h.ResetPassword, http.MethodPost, "/v1/auth/reset-password",
		`{"token":"`+token+`","password":"newpass99"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	// The token is single use.
	rec, err = doJSON(h.ResetPassword, http.MethodPost, "/v1/auth/reset-password",
		`{"token":"`+token+`","password":"another1"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Old password out, new password in.
	rec, err = doJSON(h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"a@b.cd","password":"hunter22"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, err = doJSON(h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"a@b.cd","password":"newpass99"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExpiredResetTokenRejected(t *testing.T) {
	h, users, resets := newAuthFixture()
	uid, err := users.Create(context.Background(), "a@b.cd", "ava", "hunter22", 4)
	require.NoError(t, err)

	require.NoError(t, resets.Replace(context.Background(), uid, "stale-token",
		time.Now().UTC().Add(-time.Minute)))

	rec, err := doJSON(h.ResetPassword, http.MethodPost, "/v1/auth/reset-password",
		`{"token":"stale-token","password":"newpass99"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

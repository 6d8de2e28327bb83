package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelyth/loresheet/internal/model"
	"github.com/avelyth/loresheet/internal/repository"
	"github.com/avelyth/loresheet/internal/utils"
)

// ----- fakes -----

// fakeCharacterStore mirrors the repository semantics the handlers rely
// on: foreign rows behave like missing rows, sharing mints a token once,
// and activation is exclusive per owner.
type fakeCharacterStore struct {
	nextID uint64
	rows   map[uint64]model.Character
	active map[uint64]uint64 // user id -> active character id
}

func newFakeCharacterStore() *fakeCharacterStore {
	return &fakeCharacterStore{
		rows:   map[uint64]model.Character{},
		active: map[uint64]uint64{},
	}
}

func (s *fakeCharacterStore) owned(userID, id uint64) (model.Character, error) {
	ch, ok := s.rows[id]
	if !ok || ch.UserID != userID {
		return model.Character{}, repository.ErrNotFound
	}
	return ch, nil
}

func (s *fakeCharacterStore) ListByUser(_ context.Context, userID uint64) ([]model.Character, error) {
	var out []model.Character
	for _, ch := range s.rows {
		if ch.UserID == userID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (s *fakeCharacterStore) Create(_ context.Context, userID uint64, name string, data json.RawMessage) (model.Character, error) {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	s.nextID++
	now := time.Now().UTC()
	ch := model.Character{ID: s.nextID, UserID: userID, Name: name, Data: data, CreatedAt: now, UpdatedAt: now}
	s.rows[ch.ID] = ch
	return ch, nil
}

func (s *fakeCharacterStore) GetByID(_ context.Context, userID, id uint64) (model.Character, error) {
	return s.owned(userID, id)
}

func (s *fakeCharacterStore) Update(_ context.Context, userID, id uint64, name *string, data json.RawMessage) (model.Character, error) {
	ch, err := s.owned(userID, id)
	if err != nil {
		return model.Character{}, err
	}
	if name != nil {
		ch.Name = *name
	}
	if data != nil {
		ch.Data = data
	}
	ch.UpdatedAt = time.Now().UTC()
	s.rows[id] = ch
	return ch, nil
}

func (s *fakeCharacterStore) Delete(_ context.Context, userID, id uint64) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	delete(s.rows, id)
	return nil
}

func (s *fakeCharacterStore) SetShared(_ context.Context, userID, id uint64, enabled bool) (model.Character, error) {
	ch, err := s.owned(userID, id)
	if err != nil {
		return model.Character{}, err
	}
	ch.IsShared = enabled
	if enabled && ch.ShareToken == nil {
		token, err := utils.NewShareToken()
		if err != nil {
			return model.Character{}, err
		}
		ch.ShareToken = &token
	}
	if !enabled {
		ch.ShareToken = nil
	}
	s.rows[id] = ch
	return ch, nil
}

func (s *fakeCharacterStore) GetByShareToken(_ context.Context, token string) (model.PublicCharacterView, error) {
	for _, ch := range s.rows {
		if ch.IsShared && ch.ShareToken != nil && *ch.ShareToken == token {
			return model.PublicCharacterView{Character: ch, OwnerUsername: "owner"}, nil
		}
	}
	return model.PublicCharacterView{}, repository.ErrNotFound
}

func (s *fakeCharacterStore) GetActive(_ context.Context, userID uint64) (model.Character, error) {
	id, ok := s.active[userID]
	if !ok {
		return model.Character{}, repository.ErrNotFound
	}
	return s.owned(userID, id)
}

func (s *fakeCharacterStore) SetActive(_ context.Context, userID, id uint64) (model.Character, error) {
	ch, err := s.owned(userID, id)
	if err != nil {
		return model.Character{}, err
	}
	for rid, row := range s.rows {
		if row.UserID == userID && row.IsActive {
			row.IsActive = false
			s.rows[rid] = row
		}
	}
	ch.IsActive = true
	s.rows[id] = ch
	s.active[userID] = id
	return ch, nil
}

func (s *fakeCharacterStore) ResetAll(_ context.Context, userID uint64) error {
	for id, ch := range s.rows {
		if ch.UserID == userID {
			delete(s.rows, id)
		}
	}
	delete(s.active, userID)
	return nil
}

type fakeSaveStore struct {
	saves []model.CharacterSave
}

func (s *fakeSaveStore) Append(_ context.Context, characterID, userID uint64, data json.RawMessage, saveType string) error {
	if saveType == "" {
		saveType = "auto"
	}
	s.saves = append(s.saves, model.CharacterSave{
		CharacterID: characterID,
		UserID:      userID,
		SaveData:    data,
		SaveType:    saveType,
	})
	return nil
}

// ----- helpers -----

func newCharFixture() (*CharacterHandler, *fakeCharacterStore, *fakeSaveStore) {
	chars := newFakeCharacterStore()
	saves := &fakeSaveStore{}
	return NewCharacterHandler(chars, saves, nil), chars, saves
}

func doJSONWithID(h echo.HandlerFunc, method, target, body, id string, setup ...func(echo.Context)) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	for _, fn := range setup {
		fn(c)
	}
	return rec, h(c)
}

func decodeCharacter(t *testing.T, rec *httptest.ResponseRecorder) characterResp {
	t.Helper()
	var body struct {
		Character characterResp `json:"character"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Character
}

// ----- tests -----

func TestCreateAndGetCharacter(t *testing.T) {
	h, _, _ := newCharFixture()

	rec, err := doJSON(h.Create, http.MethodPost, "/v1/characters",
		`{"name":"Mira","data":{"version":2}}`, asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeCharacter(t, rec)
	assert.Equal(t, "Mira", created.Name)

	rec, err = doJSONWithID(h.Get, http.MethodGet, "/v1/characters/1", "", "1", asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeCharacter(t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.JSONEq(t, `{"version":2}`, string(got.Data))
}

func TestCreateRequiresName(t *testing.T) {
	h, _, _ := newCharFixture()

	rec, err := doJSON(h.Create, http.MethodPost, "/v1/characters",
		`{"name":"   "}`, asUser(1))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForeignCharacterLooksMissing(t *testing.T) {
	h, chars, _ := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "Mira", nil)
	require.NoError(t, err)

	// Another user probing the id gets the same 404 as a nonexistent row.
	rec, err := doJSONWithID(h.Get, http.MethodGet, "/v1/characters/1", "", "1", asUser(2))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	missing, err := doJSONWithID(h.Get, http.MethodGet, "/v1/characters/999", "", "999", asUser(2))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, missing.Body.String(), rec.Body.String())
}

func TestUpdateDataAppendsToHistory(t *testing.T) {
	h, chars, saves := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "Mira", nil)
	require.NoError(t, err)

	rec, err := doJSONWithID(h.Update, http.MethodPut, "/v1/characters/1",
		`{"data":{"version":2},"saveType":"manual"}`, "1", asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, saves.saves, 1)
	assert.Equal(t, "manual", saves.saves[0].SaveType)
	assert.Equal(t, uint64(1), saves.saves[0].CharacterID)

	// A rename alone does not touch the history.
	rec, err = doJSONWithID(h.Update, http.MethodPut, "/v1/characters/1",
		`{"name":"Mira II"}`, "1", asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, saves.saves, 1)
}

func TestUpdateNothingToUpdate(t *testing.T) {
	h, chars, _ := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "Mira", nil)
	require.NoError(t, err)

	rec, err := doJSONWithID(h.Update, http.MethodPut, "/v1/characters/1",
		`{}`, "1", asUser(1))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareToggleTokenStability(t *testing.T) {
	h, chars, _ := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "Mira", nil)
	require.NoError(t, err)

	rec, err := doJSONWithID(h.Update, http.MethodPut, "/v1/characters/1",
		`{"isShared":true}`, "1", asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeCharacter(t, rec)
	require.NotNil(t, first.ShareToken)
	assert.True(t, first.IsShared)

	// Enabling again keeps the same token, so existing links stay valid.
	rec, err = doJSONWithID(h.Update, http.MethodPut, "/v1/characters/1",
		`{"isShared":true}`, "1", asUser(1))
	require.NoError(t, err)
	second := decodeCharacter(t, rec)
	require.NotNil(t, second.ShareToken)
	assert.Equal(t, *first.ShareToken, *second.ShareToken)

	// Disabling clears the token; the old link dies.
	rec, err = doJSONWithID(h.Update, http.MethodPut, "/v1/characters/1",
		`{"isShared":false}`, "1", asUser(1))
	require.NoError(t, err)
	disabled := decodeCharacter(t, rec)
	assert.False(t, disabled.IsShared)
	assert.Nil(t, disabled.ShareToken)
}

func TestGetSharedCharacter(t *testing.T) {
	h, chars, _ := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "Mira", nil)
	require.NoError(t, err)
	shared, err := chars.SetShared(context.Background(), 1, 1, true)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/characters/shared/"+*shared.ShareToken, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues(*shared.ShareToken)
	require.NoError(t, h.GetShared(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Character sharedCharacterResp `json:"character"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Mira", body.Character.Name)
	assert.Equal(t, "owner", body.Character.Owner)

	// Turning sharing off kills the link with the same 404 an unknown
	// token gets.
	_, err = chars.SetShared(context.Background(), 1, 1, false)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues(*shared.ShareToken)
	require.NoError(t, h.GetShared(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActiveCharacterExclusivity(t *testing.T) {
	h, chars, _ := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "First", nil)
	require.NoError(t, err)
	_, err = chars.Create(context.Background(), 1, "Second", nil)
	require.NoError(t, err)

	// Nothing active yet.
	rec, err := doJSON(h.GetActive, http.MethodGet, "/v1/characters/active", "", asUser(1))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, err = doJSON(h.SetActive, http.MethodPost, "/v1/characters/active",
		`{"characterId":1}`, asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, err = doJSON(h.SetActive, http.MethodPost, "/v1/characters/active",
		`{"characterId":2}`, asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	// Exactly one character is active after the second switch.
	first, err := chars.GetByID(context.Background(), 1, 1)
	require.NoError(t, err)
	second, err := chars.GetByID(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, first.IsActive)
	assert.True(t, second.IsActive)

	rec, err = doJSON(h.GetActive, http.MethodGet, "/v1/characters/active", "", asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(2), decodeCharacter(t, rec).ID)
}

func TestSetActiveForeignCharacter(t *testing.T) {
	h, chars, _ := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "Mira", nil)
	require.NoError(t, err)

	rec, err := doJSON(h.SetActive, http.MethodPost, "/v1/characters/active",
		`{"characterId":1}`, asUser(2))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetAllData(t *testing.T) {
	h, chars, _ := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "Mine", nil)
	require.NoError(t, err)
	_, err = chars.Create(context.Background(), 2, "Theirs", nil)
	require.NoError(t, err)
	_, err = chars.SetActive(context.Background(), 1, 1)
	require.NoError(t, err)

	rec, err := doJSON(h.ResetAllData, http.MethodDelete, "/v1/admin/reset-all", "", asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	list, err := chars.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Other users are untouched.
	list, err = chars.ListByUser(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = chars.GetActive(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteCharacter(t *testing.T) {
	h, chars, _ := newCharFixture()
	_, err := chars.Create(context.Background(), 1, "Mira", nil)
	require.NoError(t, err)

	rec, err := doJSONWithID(h.Delete, http.MethodDelete, "/v1/characters/1", "", "1", asUser(1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, err = doJSONWithID(h.Get, http.MethodGet, "/v1/characters/1", "", "1", asUser(1))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

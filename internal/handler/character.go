package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelyth/loresheet/internal/middleware"
	"github.com/avelyth/loresheet/internal/model"
	"github.com/avelyth/loresheet/internal/queue"
	"github.com/avelyth/loresheet/internal/repository"
)

// CharacterStore is the repository surface the character handlers use.
// Ownership is part of every call; a row owned by someone else behaves
// exactly like a missing row.
type CharacterStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Character, error)
	Create(ctx context.Context, userID uint64, name string, data json.RawMessage) (model.Character, error)
	GetByID(ctx context.Context, userID, id uint64) (model.Character, error)
	Update(ctx context.Context, userID, id uint64, name *string, data json.RawMessage) (model.Character, error)
	Delete(ctx context.Context, userID, id uint64) error
	SetShared(ctx context.Context, userID, id uint64, enabled bool) (model.Character, error)
	GetByShareToken(ctx context.Context, token string) (model.PublicCharacterView, error)
	GetActive(ctx context.Context, userID uint64) (model.Character, error)
	SetActive(ctx context.Context, userID, id uint64) (model.Character, error)
	ResetAll(ctx context.Context, userID uint64) error
}

// SaveStore appends to the save history.
type SaveStore interface {
	Append(ctx context.Context, characterID, userID uint64, data json.RawMessage, saveType string) error
}

// SavePublisher hands a save audit event to the queue; failures are ignored
// by callers.
type SavePublisher func(ctx context.Context, ev queue.CharacterSavedEvent) error

// CharacterHandler bundles dependencies for the character endpoints.
type CharacterHandler struct {
	Characters  CharacterStore
	Saves       SaveStore
	PublishSave SavePublisher
}

func NewCharacterHandler(ch CharacterStore, s SaveStore, pub SavePublisher) *CharacterHandler {
	return &CharacterHandler{Characters: ch, Saves: s, PublishSave: pub}
}

// ----- DTOs -----

type createCharacterReq struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// updateCharacterReq covers both partial updates and the sharing toggle.
// When IsShared is present the request routes to the sharing flow and the
// other fields are ignored.
type updateCharacterReq struct {
	Name     *string         `json:"name"`
	Data     json.RawMessage `json:"data"`
	IsShared *bool           `json:"isShared"`
	SaveType string          `json:"saveType"`
}

type setActiveReq struct {
	CharacterID uint64 `json:"characterId"`
}

type characterResp struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	Data       json.RawMessage `json:"data"`
	IsShared   bool            `json:"isShared"`
	ShareToken *string         `json:"shareToken"`
	IsActive   bool            `json:"isActive"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func characterToResp(ch model.Character) characterResp {
	data := ch.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	return characterResp{
		ID:         ch.ID,
		Name:       ch.Name,
		Data:       data,
		IsShared:   ch.IsShared,
		ShareToken: ch.ShareToken,
		IsActive:   ch.IsActive,
		CreatedAt:  ch.CreatedAt,
		UpdatedAt:  ch.UpdatedAt,
	}
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// List returns all of the caller's characters, most recently updated first.
func (h *CharacterHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	chars, err := h.Characters.ListByUser(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]characterResp, 0, len(chars))
	for _, ch := range chars {
		out = append(out, characterToResp(ch))
	}
	return c.JSON(http.StatusOK, echo.Map{"characters": out})
}

// Create makes a new character. The name is required; data defaults to an
// empty document.
func (h *CharacterHandler) Create(c echo.Context) error {
	var req createCharacterReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if len(req.Data) > 0 && !json.Valid(req.Data) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "data must be valid JSON"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := h.Characters.Create(ctx, middleware.UserID(c), req.Name, req.Data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"character": characterToResp(ch)})
}

// Get returns one character. Foreign and missing characters look the same.
func (h *CharacterHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := h.Characters.GetByID(ctx, middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "character not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"character": characterToResp(ch)})
}

// Update handles PUT. A body carrying isShared toggles sharing; otherwise
// it is a partial update of name and/or data, where supplied data replaces
// the stored document wholesale.
func (h *CharacterHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateCharacterReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	userID := middleware.UserID(c)

	if req.IsShared != nil {
		ch, err := h.Characters.SetShared(ctx, userID, id, *req.IsShared)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "character not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sharing update failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"character": characterToResp(ch)})
	}

	if req.Name == nil && req.Data == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Data != nil && !json.Valid(req.Data) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "data must be valid JSON"})
	}

	ch, err := h.Characters.Update(ctx, userID, id, req.Name, req.Data)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "character not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	// Every data update grows the append-only history and emits an audit
	// event. Neither failure is allowed to fail the save itself.
	if req.Data != nil && h.Saves != nil {
		if err := h.Saves.Append(ctx, ch.ID, userID, req.Data, req.SaveType); err != nil {
			c.Logger().Warnf("append save history: %v", err)
		}
		if h.PublishSave != nil {
			_ = h.PublishSave(ctx, queue.CharacterSavedEvent{
				CharacterID: ch.ID,
				UserID:      userID,
				Name:        ch.Name,
				SaveType:    req.SaveType,
				SavedAt:     time.Now().UTC().Format(time.RFC3339),
			})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"character": characterToResp(ch)})
}

// Delete removes a character and, via cascade, its save history.
func (h *CharacterHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Characters.Delete(ctx, middleware.UserID(c), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "character not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "character deleted"})
}

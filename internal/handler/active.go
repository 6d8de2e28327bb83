package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelyth/loresheet/internal/middleware"
	"github.com/avelyth/loresheet/internal/repository"
)

// GetActive returns the caller's active character or 404 when none is set.
func (h *CharacterHandler) GetActive(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := h.Characters.GetActive(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active character"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"character": characterToResp(ch)})
}

// SetActive switches the caller's active character. The repository clears
// every other is_active flag and records the choice on the users row in
// one transaction, so the one-active-per-user invariant always holds.
func (h *CharacterHandler) SetActive(c echo.Context) error {
	var req setActiveReq
	if err := c.Bind(&req); err != nil || req.CharacterID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "characterId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := h.Characters.SetActive(ctx, middleware.UserID(c), req.CharacterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "character not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"character": characterToResp(ch)})
}

// ResetAllData wipes every character and save of the caller in a single
// all-or-nothing transaction.
func (h *CharacterHandler) ResetAllData(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Characters.ResetAll(ctx, middleware.UserID(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "all character data deleted"})
}

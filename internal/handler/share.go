package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelyth/loresheet/internal/repository"
)

// sharedCharacterResp is the public projection returned for share links.
// It exposes the character plus the owner's public username; nothing else
// about the owner leaves the server.
type sharedCharacterResp struct {
	characterResp
	Owner string `json:"owner"`
}

// GetShared resolves a public share link without authentication. A token
// that never existed and a token whose sharing was turned off produce the
// same 404, so callers cannot probe which characters exist.
func (h *CharacterHandler) GetShared(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "character not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view, err := h.Characters.GetByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "character not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"character": sharedCharacterResp{
		characterResp: characterToResp(view.Character),
		Owner:         view.OwnerUsername,
	}})
}

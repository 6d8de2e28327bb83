package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/avelyth/loresheet/internal/model"
)

// SaveRepo persists the append-only `character_saves` history. Rows are
// written on every data update and never mutated.
type SaveRepo struct{ DB *sql.DB }

func NewSaveRepo(db *sql.DB) *SaveRepo { return &SaveRepo{DB: db} }

// Append records one snapshot for a character.
func (r *SaveRepo) Append(ctx context.Context, characterID, userID uint64, data json.RawMessage, saveType string) error {
	if saveType == "" {
		saveType = "auto"
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO character_saves (character_id, user_id, save_data, save_type) VALUES (?,?,?,?)",
		characterID, userID, []byte(data), saveType)
	return err
}

// ListByCharacter returns the newest save records first, capped by limit.
func (r *SaveRepo) ListByCharacter(ctx context.Context, userID, characterID uint64, limit int) ([]model.CharacterSave, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, character_id, user_id, save_data, save_type, created_at
		 FROM character_saves WHERE character_id=? AND user_id=?
		 ORDER BY id DESC LIMIT ?`,
		characterID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CharacterSave
	for rows.Next() {
		var (
			s    model.CharacterSave
			data []byte
		)
		if err := rows.Scan(&s.ID, &s.CharacterID, &s.UserID, &data, &s.SaveType, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.SaveData = json.RawMessage(data)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneBefore deletes save history older than the cutoff for one user.
// There is no automatic retention policy; this is the operator's knob.
func (r *SaveRepo) PruneBefore(ctx context.Context, userID uint64, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM character_saves WHERE user_id=? AND created_at < ?", userID, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

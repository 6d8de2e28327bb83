package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/avelyth/loresheet/internal/model"
	"github.com/avelyth/loresheet/internal/utils"
)

// CharacterRepo persists rows in the `characters` table. Every query is
// scoped by user_id so ownership checks happen in SQL; a missing row and a
// row owned by someone else are indistinguishable to callers.
type CharacterRepo struct{ DB *sql.DB }

func NewCharacterRepo(db *sql.DB) *CharacterRepo { return &CharacterRepo{DB: db} }

const characterColumns = "id,user_id,name,character_data,is_shared,share_token,is_active,created_at,updated_at"

func scanCharacter(scan func(dest ...any) error) (model.Character, error) {
	var (
		ch    model.Character
		data  []byte
		token sql.NullString
	)
	err := scan(&ch.ID, &ch.UserID, &ch.Name, &data, &ch.IsShared, &token, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ch, ErrNotFound
		}
		return ch, err
	}
	ch.Data = json.RawMessage(data)
	if token.Valid {
		ch.ShareToken = &token.String
	}
	return ch, nil
}

// ListByUser returns all characters of a user, most recently updated first.
func (r *CharacterRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Character, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+characterColumns+" FROM characters WHERE user_id=? ORDER BY updated_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Character
	for rows.Next() {
		ch, err := scanCharacter(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Create inserts a character and returns the stored row.
func (r *CharacterRepo) Create(ctx context.Context, userID uint64, name string, data json.RawMessage) (model.Character, error) {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO characters (user_id, name, character_data) VALUES (?,?,?)",
		userID, strings.TrimSpace(name), []byte(data))
	if err != nil {
		return model.Character{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Character{}, err
	}
	return r.GetByID(ctx, userID, uint64(id))
}

// GetByID fetches one character owned by userID.
func (r *CharacterRepo) GetByID(ctx context.Context, userID, id uint64) (model.Character, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+characterColumns+" FROM characters WHERE id=? AND user_id=? LIMIT 1", id, userID)
	return scanCharacter(row.Scan)
}

// Update applies a partial update. A nil name leaves the name untouched;
// nil data leaves the document untouched. Supplied data replaces the whole
// document, there is no deep merge.
func (r *CharacterRepo) Update(ctx context.Context, userID, id uint64, name *string, data json.RawMessage) (model.Character, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{}
	if name != nil {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(*name))
	}
	if data != nil {
		sets = append(sets, "character_data=?")
		args = append(args, []byte(data))
	}
	args = append(args, id, userID)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE characters SET "+strings.Join(sets, ", ")+" WHERE id=? AND user_id=?", args...)
	if err != nil {
		return model.Character{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the row is missing or it already matches; disambiguate
		// with a read so callers still get 404 for foreign rows.
		if _, err := r.GetByID(ctx, userID, id); err != nil {
			return model.Character{}, err
		}
	}
	return r.GetByID(ctx, userID, id)
}

// Delete removes a character. Saves cascade via the foreign key.
func (r *CharacterRepo) Delete(ctx context.Context, userID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM characters WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetShared toggles the public share link. Enabling mints a token only
// when none exists, so repeated enables keep a stable URL; disabling
// clears the token. Flag and token change together in one transaction.
func (r *CharacterRepo) SetShared(ctx context.Context, userID, id uint64, enabled bool) (model.Character, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Character{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var token sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT share_token FROM characters WHERE id=? AND user_id=? FOR UPDATE",
		id, userID).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Character{}, ErrNotFound
		}
		return model.Character{}, err
	}

	if enabled {
		if !token.Valid || token.String == "" {
			minted, err := utils.NewShareToken()
			if err != nil {
				return model.Character{}, err
			}
			token = sql.NullString{String: minted, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE characters SET is_shared=1, share_token=?, updated_at=NOW() WHERE id=? AND user_id=?",
			token.String, id, userID)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE characters SET is_shared=0, share_token=NULL, updated_at=NOW() WHERE id=? AND user_id=?",
			id, userID)
	}
	if err != nil {
		return model.Character{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Character{}, err
	}
	return r.GetByID(ctx, userID, id)
}

// GetByShareToken resolves a public share link. Unknown tokens and tokens
// whose character is no longer shared both come back as ErrNotFound.
func (r *CharacterRepo) GetByShareToken(ctx context.Context, token string) (model.PublicCharacterView, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT c.id,c.user_id,c.name,c.character_data,c.is_shared,c.share_token,c.is_active,c.created_at,c.updated_at,u.username
		 FROM characters c JOIN users u ON u.id = c.user_id
		 WHERE c.share_token=? AND c.is_shared=1 LIMIT 1`, token)

	var (
		view  model.PublicCharacterView
		data  []byte
		share sql.NullString
	)
	err := row.Scan(&view.ID, &view.UserID, &view.Name, &data, &view.IsShared, &share,
		&view.IsActive, &view.CreatedAt, &view.UpdatedAt, &view.OwnerUsername)
	if err != nil {
		if err == sql.ErrNoRows {
			return view, ErrNotFound
		}
		return view, err
	}
	view.Data = json.RawMessage(data)
	if share.Valid {
		view.ShareToken = &share.String
	}
	return view, nil
}

// GetActive returns the user's active character, if any.
func (r *CharacterRepo) GetActive(ctx context.Context, userID uint64) (model.Character, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+characterColumns+" FROM characters WHERE user_id=? AND is_active=1 LIMIT 1", userID)
	return scanCharacter(row.Scan)
}

// SetActive marks one character active, clears the flag on every other
// character of the same user and records the choice on the users row. The
// three statements run in a single transaction so a failure leaves the
// previous active character untouched.
func (r *CharacterRepo) SetActive(ctx context.Context, userID, id uint64) (model.Character, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Character{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM characters WHERE id=? AND user_id=? FOR UPDATE", id, userID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Character{}, ErrNotFound
		}
		return model.Character{}, err
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE characters SET is_active=0 WHERE user_id=? AND is_active=1", userID); err != nil {
		return model.Character{}, err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE characters SET is_active=1 WHERE id=? AND user_id=?", id, userID); err != nil {
		return model.Character{}, err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE users SET active_character_id=?, updated_at=NOW() WHERE id=?", id, userID); err != nil {
		return model.Character{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Character{}, err
	}
	return r.GetByID(ctx, userID, id)
}

// ResetAll deletes every character and save of a user and clears the
// active pointer, all or nothing.
func (r *CharacterRepo) ResetAll(ctx context.Context, userID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM character_saves WHERE user_id=?", userID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE FROM characters WHERE user_id=?", userID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE users SET active_character_id=NULL, updated_at=NOW() WHERE id=?", userID); err != nil {
		return err
	}
	return tx.Commit()
}

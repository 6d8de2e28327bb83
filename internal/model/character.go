package model

import (
	"encoding/json"
	"time"
)

// Character mirrors the `characters` table. The Data column holds the full
// character document as opaque JSON; the server never inspects it beyond
// validity, so schema migration happens in the sheet package on the client.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owner of the character.
//  Name       – display name, required non-empty.
//  Data       – characters.character_data JSON document.
//  IsShared   – whether the public share link is enabled.
//  ShareToken – public link token; set if and only if IsShared is true.
//  IsActive   – whether this is the owner's active character. At most one
//               row per owner may be active; the repository enforces this
//               inside a transaction.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Character struct {
	ID         uint64          // characters.id
	UserID     uint64          // characters.user_id
	Name       string          // characters.name
	Data       json.RawMessage // characters.character_data
	IsShared   bool            // characters.is_shared
	ShareToken *string         // characters.share_token (nullable, unique)
	IsActive   bool            // characters.is_active
	CreatedAt  time.Time       // characters.created_at
	UpdatedAt  time.Time       // characters.updated_at
}

// CharacterSave is an append-only history record in `character_saves`.
// Rows are written on every data update and never mutated. There is no
// automatic pruning; PruneBefore exists for operators who need one.
//
// Fields:
//  ID          – primary key identifier.
//  CharacterID – character the snapshot belongs to.
//  UserID      – owner at the time of the save.
//  SaveData    – document snapshot as stored.
//  SaveType    – free-form tag such as "auto" or "manual".
//  CreatedAt   – creation timestamp.
type CharacterSave struct {
	ID          uint64          // character_saves.id
	CharacterID uint64          // character_saves.character_id
	UserID      uint64          // character_saves.user_id
	SaveData    json.RawMessage // character_saves.save_data
	SaveType    string          // character_saves.save_type
	CreatedAt   time.Time       // character_saves.created_at
}

// PublicCharacterView is the read-only projection returned for share links.
// It exposes the character plus the owner's public username and nothing
// else about the owner.
type PublicCharacterView struct {
	Character
	OwnerUsername string
}

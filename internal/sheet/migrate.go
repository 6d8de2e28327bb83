package sheet

import (
	"encoding/json"
	"fmt"
)

// Stored documents carry a schema version and are upgraded through an
// explicit chain of steps, one per version bump. Each step rewrites the raw
// decoded JSON so later steps (and the final struct decode) can rely on the
// newer shape. Fields a step does not know about are carried through
// untouched; legacy fields with no current equivalent are dropped by the
// step that retires them.

type migration func(map[string]any)

// migrations[i] upgrades a version-i document to version i+1.
var migrations = []migration{
	migrateV0,
	migrateV1,
}

// Decode parses raw character data of any known schema version and returns
// a normalized document at CurrentVersion. Empty input yields the default
// document.
func Decode(raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return DefaultDocument(), nil
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode character data: %w", err)
	}
	if len(m) == 0 {
		return DefaultDocument(), nil
	}

	if err := upgradeMap(m); err != nil {
		return nil, err
	}

	upgraded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("re-encode character data: %w", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(upgraded, doc); err != nil {
		return nil, fmt.Errorf("decode character data: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

// Upgrade rewrites raw character data to the current schema version without
// decoding it into a Document. Sections keep the presence they had in the
// input (a payload that never mentions the journal still does not mention
// it afterwards), which lets callers overlay an upgraded fragment onto
// another document.
func Upgrade(raw []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode character data: %w", err)
	}
	if err := upgradeMap(m); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// upgradeMap runs the migration chain in place, from the document's own
// version up to CurrentVersion.
func upgradeMap(m map[string]any) error {
	version := intField(m, "version")
	if version > CurrentVersion {
		return fmt.Errorf("character data version %d is newer than supported version %d", version, CurrentVersion)
	}
	for v := version; v < CurrentVersion; v++ {
		migrations[v](m)
		m["version"] = v + 1
	}
	return nil
}

// migrateV0 lifts the original flat layout into the grouped one: identity
// fields lived at the top level and attribute modifiers sat beside them.
func migrateV0(m map[string]any) {
	identity := map[string]any{}
	for old, key := range map[string]string{
		"name":     "name",
		"subtitle": "subtitle",
		"level":    "level",
		"image":    "image",
		"domains":  "domains",
	} {
		if v, ok := m[old]; ok {
			identity[key] = v
			delete(m, old)
		}
	}
	if len(identity) > 0 {
		m["identity"] = identity
	}

	combat := map[string]any{}
	for old, key := range map[string]string{
		"evasion":         "evasion",
		"minor_threshold": "minorThreshold",
		"major_threshold": "majorThreshold",
	} {
		if v, ok := m[old]; ok {
			combat[key] = v
			delete(m, old)
		}
	}
	if len(combat) > 0 {
		m["combat"] = combat
	}
}

// migrateV1 rewrites trackers from bare bool arrays to cell objects.
func migrateV1(m map[string]any) {
	trackers, ok := m["trackers"].(map[string]any)
	if !ok {
		return
	}
	for _, name := range []string{"hp", "stress", "armor"} {
		cells, ok := trackers[name].([]any)
		if !ok {
			continue // already the object form, or absent
		}
		converted := make([]any, 0, len(cells))
		for _, c := range cells {
			active, _ := c.(bool)
			converted = append(converted, map[string]any{"active": active})
		}
		trackers[name] = map[string]any{
			"cells": converted,
			"max":   len(converted),
		}
	}
}

func intField(m map[string]any, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}

// Package sheet defines the character document: the single nested structure
// that holds everything a character sheet displays. The same shape is stored
// as JSON in the characters.character_data column on the server and in the
// client's local cache, so both halves of the project import this package.
package sheet

import "time"

// CurrentVersion is the schema version written by this build. Migrate brings
// older stored documents up to it.
const CurrentVersion = 2

// VaultSlotCount is the fixed number of equipped-card slots.
const VaultSlotCount = 5

// MaxHighlightedFeatures caps how many feature cards may be highlighted.
const MaxHighlightedFeatures = 5

// Document is the full character payload. Every field is optional in stored
// JSON; Normalize fills the gaps so callers never see nil collections.
type Document struct {
	Version     int            `json:"version"`
	Identity    Identity       `json:"identity"`
	Attributes  Attributes     `json:"attributes"`
	Combat      Combat         `json:"combat"`
	Trackers    Trackers       `json:"trackers"`
	Equipment   Equipment      `json:"equipment"`
	Journal     []JournalEntry `json:"journal"`
	Details     Details        `json:"details"`
	Experiences []Experience   `json:"experiences"`
	Downtime    []Project      `json:"downtime"`
	Vault       Vault          `json:"vault"`
	Features    Features       `json:"features"`
	Appearance  Appearance     `json:"appearance"`
}

// Identity groups the header fields of the sheet.
type Identity struct {
	Name     string    `json:"name"`
	Subtitle string    `json:"subtitle"`
	Level    int       `json:"level"`
	Image    string    `json:"image"`
	Domains  [2]string `json:"domains"`
}

// Attributes are the six core modifiers.
type Attributes struct {
	Agility   int `json:"agility"`
	Strength  int `json:"strength"`
	Finesse   int `json:"finesse"`
	Instinct  int `json:"instinct"`
	Presence  int `json:"presence"`
	Knowledge int `json:"knowledge"`
}

// Combat holds evasion and the two damage thresholds.
type Combat struct {
	Evasion        int `json:"evasion"`
	MinorThreshold int `json:"minorThreshold"`
	MajorThreshold int `json:"majorThreshold"`
}

// Cell is one discrete pip of a tracker.
type Cell struct {
	Active bool `json:"active"`
}

// Tracker is a row of cells plus its counters. HP, Stress and Armor all use
// this shape.
type Tracker struct {
	Cells   []Cell `json:"cells"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
}

// Pool is a simple current/max counter (Hope).
type Pool struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Trackers bundles all tracker state.
type Trackers struct {
	HP     Tracker `json:"hp"`
	Stress Tracker `json:"stress"`
	Armor  Tracker `json:"armor"`
	Hope   Pool    `json:"hope"`
}

// Item is a single equipment entry.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Notes    string `json:"notes,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// Equipment holds the categorized item lists.
type Equipment struct {
	Weapons     []Item `json:"weapons"`
	Armor       []Item `json:"armor"`
	Items       []Item `json:"items"`
	Consumables []Item `json:"consumables"`
}

// JournalEntry is one journal record. Auto marks entries generated by the
// app rather than typed by the player.
type JournalEntry struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	Auto      bool      `json:"auto"`
	CreatedAt time.Time `json:"createdAt"`
}

// Details holds the free-text key-value groups.
type Details struct {
	Personal map[string]string `json:"personal"`
	Physical map[string]string `json:"physical"`
}

// Experience is one experience entry.
type Experience struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Modifier    int    `json:"modifier"`
}

// Project is a downtime project with segmented progress.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Segments int    `json:"segments"`
	Progress int    `json:"progress"`
}

// CropRect describes how a card image is cropped for display.
type CropRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Card is a domain card stored in the vault.
type Card struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Domain      string   `json:"domain"`
	Level       int      `json:"level"`
	RecallCost  int      `json:"recallCost"`
	Type        string   `json:"type"`
	Color       string   `json:"color"`
	Image       string   `json:"image,omitempty"`
	Crop        CropRect `json:"crop"`
}

// Vault holds all owned domain cards and the fixed equipped-slot array.
// A nil slot is empty; a non-nil slot references a card by ID.
type Vault struct {
	Cards []Card                `json:"cards"`
	Slots [VaultSlotCount]*string `json:"slots"`
}

// FeatureCard is an effect/feature card.
type FeatureCard struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Color       string   `json:"color"`
	Image       string   `json:"image,omitempty"`
	Tokens      []string `json:"tokens"`
}

// Features holds feature cards plus the highlighted subset (by ID).
type Features struct {
	Cards       []FeatureCard `json:"cards"`
	Highlighted []string      `json:"highlighted"`
}

// GlassEffect are the frosted-glass styling parameters.
type GlassEffect struct {
	Opacity float64 `json:"opacity"`
	Blur    float64 `json:"blur"`
}

// Appearance captures UI preferences stored with the character.
type Appearance struct {
	SectionOrder []string          `json:"sectionOrder"`
	Colors       map[string]string `json:"colors"`
	Background   string            `json:"background"`
	Glass        GlassEffect       `json:"glass"`
}

// Package uibus abstracts the rendered page. The editor logic never touches
// a real DOM; it reads and writes field groups through a Bus, and the
// concrete implementation decides where those values live. MemoryBus keeps
// them in plain structs and maps, which is what the headless client and the
// tests run against.
package uibus

import "github.com/avelyth/loresheet/internal/sheet"

// Bus is the surface the state container and snapshot code talk to. Getters
// on a group that was never set return the zero value; callers treat that
// as "the page has not rendered this section yet" rather than an error.
type Bus interface {
	// Document field groups.
	Identity() sheet.Identity
	SetIdentity(sheet.Identity)
	Attributes() sheet.Attributes
	SetAttributes(sheet.Attributes)
	Combat() sheet.Combat
	SetCombat(sheet.Combat)
	Trackers() sheet.Trackers
	SetTrackers(sheet.Trackers)
	Equipment() sheet.Equipment
	SetEquipment(sheet.Equipment)
	Journal() []sheet.JournalEntry
	SetJournal([]sheet.JournalEntry)
	Details() sheet.Details
	SetDetails(sheet.Details)
	Experiences() []sheet.Experience
	SetExperiences([]sheet.Experience)
	Downtime() []sheet.Project
	SetDowntime([]sheet.Project)
	Vault() sheet.Vault
	SetVault(sheet.Vault)
	Features() sheet.Features
	SetFeatures(sheet.Features)
	Appearance() sheet.Appearance
	SetAppearance(sheet.Appearance)

	// Ambient page state, outside the document proper.
	Layout() []string
	SetLayout([]string)
	CSSVars() map[string]string
	SetCSSVar(name, value string)
	OpenModals() []string
	SetOpenModals([]string)
	Scroll() (x, y int)
	SetScroll(x, y int)

	// Reset clears everything back to zero values, as if a blank page had
	// just loaded.
	Reset()
}

// MemoryBus is the in-memory Bus used by the headless client and tests.
// It is not safe for concurrent use; the sync orchestrator serializes
// access to it.
type MemoryBus struct {
	identity    sheet.Identity
	attributes  sheet.Attributes
	combat      sheet.Combat
	trackers    sheet.Trackers
	equipment   sheet.Equipment
	journal     []sheet.JournalEntry
	details     sheet.Details
	experiences []sheet.Experience
	downtime    []sheet.Project
	vault       sheet.Vault
	features    sheet.Features
	appearance  sheet.Appearance

	layout     []string
	cssVars    map[string]string
	openModals []string
	scrollX    int
	scrollY    int
}

// NewMemoryBus returns an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{cssVars: make(map[string]string)}
}

func (b *MemoryBus) Identity() sheet.Identity       { return b.identity }
func (b *MemoryBus) SetIdentity(v sheet.Identity)   { b.identity = v }
func (b *MemoryBus) Attributes() sheet.Attributes   { return b.attributes }
func (b *MemoryBus) SetAttributes(v sheet.Attributes) { b.attributes = v }
func (b *MemoryBus) Combat() sheet.Combat           { return b.combat }
func (b *MemoryBus) SetCombat(v sheet.Combat)       { b.combat = v }
func (b *MemoryBus) Trackers() sheet.Trackers       { return b.trackers }
func (b *MemoryBus) SetTrackers(v sheet.Trackers)   { b.trackers = v }
func (b *MemoryBus) Equipment() sheet.Equipment     { return b.equipment }
func (b *MemoryBus) SetEquipment(v sheet.Equipment) { b.equipment = v }
func (b *MemoryBus) Journal() []sheet.JournalEntry  { return b.journal }
func (b *MemoryBus) SetJournal(v []sheet.JournalEntry) { b.journal = v }
func (b *MemoryBus) Details() sheet.Details         { return b.details }
func (b *MemoryBus) SetDetails(v sheet.Details)     { b.details = v }
func (b *MemoryBus) Experiences() []sheet.Experience { return b.experiences }
func (b *MemoryBus) SetExperiences(v []sheet.Experience) { b.experiences = v }
func (b *MemoryBus) Downtime() []sheet.Project      { return b.downtime }
func (b *MemoryBus) SetDowntime(v []sheet.Project)  { b.downtime = v }
func (b *MemoryBus) Vault() sheet.Vault             { return b.vault }
func (b *MemoryBus) SetVault(v sheet.Vault)         { b.vault = v }
func (b *MemoryBus) Features() sheet.Features       { return b.features }
func (b *MemoryBus) SetFeatures(v sheet.Features)   { b.features = v }
func (b *MemoryBus) Appearance() sheet.Appearance   { return b.appearance }
func (b *MemoryBus) SetAppearance(v sheet.Appearance) { b.appearance = v }

func (b *MemoryBus) Layout() []string     { return b.layout }
func (b *MemoryBus) SetLayout(v []string) { b.layout = v }

func (b *MemoryBus) CSSVars() map[string]string {
	out := make(map[string]string, len(b.cssVars))
	for k, v := range b.cssVars {
		out[k] = v
	}
	return out
}

func (b *MemoryBus) SetCSSVar(name, value string) {
	if b.cssVars == nil {
		b.cssVars = make(map[string]string)
	}
	b.cssVars[name] = value
}

func (b *MemoryBus) OpenModals() []string     { return b.openModals }
func (b *MemoryBus) SetOpenModals(v []string) { b.openModals = v }

func (b *MemoryBus) Scroll() (int, int) { return b.scrollX, b.scrollY }
func (b *MemoryBus) SetScroll(x, y int) { b.scrollX, b.scrollY = x, y }

// Reset returns the bus to its blank-page state.
func (b *MemoryBus) Reset() {
	*b = MemoryBus{cssVars: make(map[string]string)}
}

// Package snapshot captures and restores the complete editor state: the
// character document plus the ambient page state around it (section
// layout, CSS variables, open modals, scroll position). One snapshot is
// what the local cache stores per character and what the autosaver ships
// to the server.
package snapshot

import (
	"time"

	"github.com/avelyth/loresheet/internal/client/uibus"
	"github.com/avelyth/loresheet/internal/sheet"
)

// ScrollPos is the page scroll offset at capture time.
type ScrollPos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Snapshot is the full editor state for one character.
type Snapshot struct {
	Doc        sheet.Document    `json:"doc"`
	Layout     []string          `json:"layout,omitempty"`
	CSSVars    map[string]string `json:"cssVars,omitempty"`
	OpenModals []string          `json:"openModals,omitempty"`
	Scroll     ScrollPos         `json:"scroll"`
	CapturedAt time.Time         `json:"capturedAt"`
}

// Capture reads the whole page into a snapshot.
func Capture(bus uibus.Bus) *Snapshot {
	doc := sheet.Document{
		Version:     sheet.CurrentVersion,
		Identity:    bus.Identity(),
		Attributes:  bus.Attributes(),
		Combat:      bus.Combat(),
		Trackers:    bus.Trackers(),
		Equipment:   bus.Equipment(),
		Journal:     bus.Journal(),
		Details:     bus.Details(),
		Experiences: bus.Experiences(),
		Downtime:    bus.Downtime(),
		Vault:       bus.Vault(),
		Features:    bus.Features(),
		Appearance:  bus.Appearance(),
	}
	doc.Normalize()

	x, y := bus.Scroll()
	return &Snapshot{
		Doc:        doc,
		Layout:     bus.Layout(),
		CSSVars:    bus.CSSVars(),
		OpenModals: bus.OpenModals(),
		Scroll:     ScrollPos{X: x, Y: y},
		CapturedAt: time.Now().UTC(),
	}
}

// Restore writes a snapshot back to the page. The order is fixed: basic
// info, then appearance (so themed renders pick up their colors), then
// stats, trackers and the collections, and finally the section layout and
// UI preferences on top. Later steps rely on earlier ones having primed
// shared state. Restoring the same snapshot twice is harmless.
func Restore(bus uibus.Bus, snap *Snapshot) {
	d := snap.Doc
	d.Normalize()

	// 1. Basic info, then appearance.
	bus.SetIdentity(d.Identity)
	bus.SetAppearance(d.Appearance)

	// 2. Stats.
	bus.SetAttributes(d.Attributes)
	bus.SetCombat(d.Combat)

	// 3. Trackers, rendered from their counters.
	t := d.Trackers
	t.HP.Cells = sheet.SetFillLevel(t.HP.Cells, t.HP.Current)
	t.Stress.Cells = sheet.SetFillLevel(t.Stress.Cells, t.Stress.Current)
	t.Armor.Cells = sheet.SetFillLevel(t.Armor.Cells, t.Armor.Current)
	bus.SetTrackers(t)

	// 4. Equipment and the other collections.
	bus.SetEquipment(d.Equipment)
	bus.SetJournal(d.Journal)
	bus.SetDetails(d.Details)
	bus.SetExperiences(d.Experiences)
	bus.SetDowntime(d.Downtime)
	bus.SetVault(d.Vault)
	bus.SetFeatures(d.Features)

	// 5. Layout, then UI preferences.
	bus.SetLayout(snap.Layout)
	for name, value := range snap.CSSVars {
		bus.SetCSSVar(name, value)
	}
	bus.SetOpenModals(snap.OpenModals)
	bus.SetScroll(snap.Scroll.X, snap.Scroll.Y)
}

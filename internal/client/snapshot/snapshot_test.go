package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelyth/loresheet/internal/client/uibus"
	"github.com/avelyth/loresheet/internal/sheet"
)

func populatedBus() *uibus.MemoryBus {
	bus := uibus.NewMemoryBus()

	doc := sheet.DefaultDocument()
	doc.Identity = sheet.Identity{Name: "Brennan", Subtitle: "Wizard", Level: 5, Domains: [2]string{"codex", "splendor"}}
	doc.Attributes.Knowledge = 3
	doc.Trackers.HP.Current = 2
	doc.Trackers.HP.Cells = sheet.SetFillLevel(doc.Trackers.HP.Cells, 2)
	doc.Vault.Cards = []sheet.Card{{ID: "c1", Name: "Book of Ava", Domain: "codex", Level: 1}}
	doc.Vault.Slots[0] = &doc.Vault.Cards[0].ID
	doc.Normalize()

	bus.SetIdentity(doc.Identity)
	bus.SetAttributes(doc.Attributes)
	bus.SetCombat(doc.Combat)
	bus.SetTrackers(doc.Trackers)
	bus.SetEquipment(doc.Equipment)
	bus.SetJournal(doc.Journal)
	bus.SetDetails(doc.Details)
	bus.SetExperiences(doc.Experiences)
	bus.SetDowntime(doc.Downtime)
	bus.SetVault(doc.Vault)
	bus.SetFeatures(doc.Features)
	bus.SetAppearance(doc.Appearance)

	bus.SetLayout([]string{"header", "stats", "vault"})
	bus.SetCSSVar("--accent", "#b48cff")
	bus.SetOpenModals([]string{"journal"})
	bus.SetScroll(0, 420)
	return bus
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	first := Capture(populatedBus())

	fresh := uibus.NewMemoryBus()
	Restore(fresh, first)
	second := Capture(fresh)

	// Everything except the capture timestamp must round-trip.
	second.CapturedAt = first.CapturedAt
	assert.Equal(t, first, second)
}

func TestRestoreIsIdempotent(t *testing.T) {
	snap := Capture(populatedBus())

	bus := uibus.NewMemoryBus()
	Restore(bus, snap)
	once := Capture(bus)
	Restore(bus, snap)
	twice := Capture(bus)

	twice.CapturedAt = once.CapturedAt
	assert.Equal(t, once, twice)
}

// orderBus records which setters Restore invokes, in order.
type orderBus struct {
	uibus.MemoryBus
	calls []string
}

func (b *orderBus) SetIdentity(v sheet.Identity) {
	b.calls = append(b.calls, "identity")
	b.MemoryBus.SetIdentity(v)
}

func (b *orderBus) SetAppearance(v sheet.Appearance) {
	b.calls = append(b.calls, "appearance")
	b.MemoryBus.SetAppearance(v)
}

func (b *orderBus) SetAttributes(v sheet.Attributes) {
	b.calls = append(b.calls, "attributes")
	b.MemoryBus.SetAttributes(v)
}

func (b *orderBus) SetTrackers(v sheet.Trackers) {
	b.calls = append(b.calls, "trackers")
	b.MemoryBus.SetTrackers(v)
}

func (b *orderBus) SetEquipment(v sheet.Equipment) {
	b.calls = append(b.calls, "equipment")
	b.MemoryBus.SetEquipment(v)
}

func (b *orderBus) SetLayout(v []string) {
	b.calls = append(b.calls, "layout")
	b.MemoryBus.SetLayout(v)
}

func (b *orderBus) SetCSSVar(name, value string) {
	b.calls = append(b.calls, "cssvar")
	b.MemoryBus.SetCSSVar(name, value)
}

func TestRestoreAppliesInFixedOrder(t *testing.T) {
	snap := Capture(populatedBus())

	bus := &orderBus{}
	Restore(bus, snap)

	// Basic info before appearance, appearance before stats, layout before
	// the UI preferences.
	assert.Equal(t,
		[]string{"identity", "appearance", "attributes", "trackers", "equipment", "layout", "cssvar"},
		bus.calls)
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	snap := Capture(populatedBus())

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var back Snapshot
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, snap.Doc.Identity, back.Doc.Identity)
	assert.Equal(t, snap.Layout, back.Layout)
	assert.Equal(t, snap.Scroll, back.Scroll)
	require.NotNil(t, back.Doc.Vault.Slots[0])
	assert.Equal(t, "c1", *back.Doc.Vault.Slots[0])
}

func TestCaptureBlankBusYieldsNormalizedDoc(t *testing.T) {
	snap := Capture(uibus.NewMemoryBus())

	assert.Equal(t, sheet.CurrentVersion, snap.Doc.Version)
	assert.NotNil(t, snap.Doc.Journal)
	assert.NotNil(t, snap.Doc.Details.Personal)
}

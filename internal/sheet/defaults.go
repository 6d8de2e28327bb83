package sheet

// Default tracker sizes for a fresh character.
const (
	defaultHPCells     = 6
	defaultStressCells = 6
	defaultArmorCells  = 6
	defaultHopeMax     = 6
	defaultHopeStart   = 2
)

// DefaultDocument returns the document a brand-new character starts with.
func DefaultDocument() *Document {
	d := &Document{
		Version: CurrentVersion,
		Identity: Identity{
			Level: 1,
		},
		Trackers: Trackers{
			HP:     NewTracker(defaultHPCells),
			Stress: NewTracker(defaultStressCells),
			Armor:  NewTracker(defaultArmorCells),
			Hope:   Pool{Current: defaultHopeStart, Max: defaultHopeMax},
		},
	}
	d.Normalize()
	return d
}

// NewTracker returns an empty tracker with n cells.
func NewTracker(n int) Tracker {
	return Tracker{Cells: make([]Cell, n), Max: n}
}

// Normalize repairs a document in place so its invariants hold: collections
// are non-nil, tracker counters match their cells, highlights reference
// existing feature cards and stay within the cap, and slot references point
// at cards that exist. It is safe to call on any decoded document, including
// zero values.
func (d *Document) Normalize() {
	if d.Version == 0 {
		d.Version = CurrentVersion
	}
	if d.Journal == nil {
		d.Journal = []JournalEntry{}
	}
	if d.Experiences == nil {
		d.Experiences = []Experience{}
	}
	if d.Downtime == nil {
		d.Downtime = []Project{}
	}
	if d.Details.Personal == nil {
		d.Details.Personal = map[string]string{}
	}
	if d.Details.Physical == nil {
		d.Details.Physical = map[string]string{}
	}
	if d.Equipment.Weapons == nil {
		d.Equipment.Weapons = []Item{}
	}
	if d.Equipment.Armor == nil {
		d.Equipment.Armor = []Item{}
	}
	if d.Equipment.Items == nil {
		d.Equipment.Items = []Item{}
	}
	if d.Equipment.Consumables == nil {
		d.Equipment.Consumables = []Item{}
	}
	if d.Vault.Cards == nil {
		d.Vault.Cards = []Card{}
	}
	if d.Features.Cards == nil {
		d.Features.Cards = []FeatureCard{}
	}
	if d.Appearance.SectionOrder == nil {
		d.Appearance.SectionOrder = []string{}
	}
	if d.Appearance.Colors == nil {
		d.Appearance.Colors = map[string]string{}
	}

	normalizeTracker(&d.Trackers.HP)
	normalizeTracker(&d.Trackers.Stress)
	normalizeTracker(&d.Trackers.Armor)
	if d.Trackers.Hope.Max < 0 {
		d.Trackers.Hope.Max = 0
	}
	if d.Trackers.Hope.Current > d.Trackers.Hope.Max {
		d.Trackers.Hope.Current = d.Trackers.Hope.Max
	}
	if d.Trackers.Hope.Current < 0 {
		d.Trackers.Hope.Current = 0
	}

	// Drop slot references to cards that no longer exist.
	owned := make(map[string]bool, len(d.Vault.Cards))
	for _, c := range d.Vault.Cards {
		owned[c.ID] = true
	}
	for i, slot := range d.Vault.Slots {
		if slot != nil && !owned[*slot] {
			d.Vault.Slots[i] = nil
		}
	}

	// Highlights must reference existing feature cards and stay within the cap.
	have := make(map[string]bool, len(d.Features.Cards))
	for _, c := range d.Features.Cards {
		have[c.ID] = true
	}
	kept := d.Features.Highlighted[:0]
	for _, id := range d.Features.Highlighted {
		if have[id] && len(kept) < MaxHighlightedFeatures {
			kept = append(kept, id)
		}
	}
	if kept == nil {
		kept = []string{}
	}
	d.Features.Highlighted = kept
}

func normalizeTracker(t *Tracker) {
	if t.Cells == nil {
		t.Cells = []Cell{}
	}
	if t.Max <= 0 {
		t.Max = len(t.Cells)
	}
	t.Current = FillLevel(t.Cells)
}

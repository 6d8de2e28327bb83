package sheet

import "github.com/google/uuid"

// Reference pruning: deleting a card or project must also remove every list
// entry that points at it, so the document never carries dangling IDs.

// NewID mints an identifier for player-created entries (cards, items,
// experiences, projects).
func NewID() string {
	return uuid.NewString()
}

// AddVaultCard stores a new domain card, assigning an ID when the caller
// did not set one, and returns the stored card.
func (d *Document) AddVaultCard(c Card) Card {
	if c.ID == "" {
		c.ID = NewID()
	}
	d.Vault.Cards = append(d.Vault.Cards, c)
	return c
}

// AddFeatureCard stores a new feature card, assigning an ID when needed.
func (d *Document) AddFeatureCard(c FeatureCard) FeatureCard {
	if c.ID == "" {
		c.ID = NewID()
	}
	d.Features.Cards = append(d.Features.Cards, c)
	return c
}

// AddProject starts a downtime project, assigning an ID when needed.
func (d *Document) AddProject(p Project) Project {
	if p.ID == "" {
		p.ID = NewID()
	}
	d.Downtime = append(d.Downtime, p)
	return p
}

// EquipCard places the card with the given ID into the first empty slot and
// reports whether a slot was free. The card must exist in the vault.
func (d *Document) EquipCard(id string) bool {
	if !d.hasVaultCard(id) {
		return false
	}
	for _, slot := range d.Vault.Slots {
		if slot != nil && *slot == id {
			return true // already equipped
		}
	}
	for i, slot := range d.Vault.Slots {
		if slot == nil {
			ref := id
			d.Vault.Slots[i] = &ref
			return true
		}
	}
	return false
}

// UnequipSlot empties the slot at index i.
func (d *Document) UnequipSlot(i int) {
	if i >= 0 && i < len(d.Vault.Slots) {
		d.Vault.Slots[i] = nil
	}
}

// RemoveVaultCard deletes a domain card and clears any slot referencing it.
func (d *Document) RemoveVaultCard(id string) {
	cards := d.Vault.Cards[:0]
	for _, c := range d.Vault.Cards {
		if c.ID != id {
			cards = append(cards, c)
		}
	}
	d.Vault.Cards = cards
	for i, slot := range d.Vault.Slots {
		if slot != nil && *slot == id {
			d.Vault.Slots[i] = nil
		}
	}
}

// HighlightFeature adds a feature card to the highlighted list, respecting
// the cap and requiring the card to exist. Reports whether the ID is
// highlighted afterwards.
func (d *Document) HighlightFeature(id string) bool {
	if !d.hasFeatureCard(id) {
		return false
	}
	for _, h := range d.Features.Highlighted {
		if h == id {
			return true
		}
	}
	if len(d.Features.Highlighted) >= MaxHighlightedFeatures {
		return false
	}
	d.Features.Highlighted = append(d.Features.Highlighted, id)
	return true
}

// RemoveFeatureCard deletes a feature card and drops it from the highlighted
// list.
func (d *Document) RemoveFeatureCard(id string) {
	cards := d.Features.Cards[:0]
	for _, c := range d.Features.Cards {
		if c.ID != id {
			cards = append(cards, c)
		}
	}
	d.Features.Cards = cards

	kept := d.Features.Highlighted[:0]
	for _, h := range d.Features.Highlighted {
		if h != id {
			kept = append(kept, h)
		}
	}
	d.Features.Highlighted = kept
}

// RemoveProject deletes a downtime project by ID.
func (d *Document) RemoveProject(id string) {
	projects := d.Downtime[:0]
	for _, p := range d.Downtime {
		if p.ID != id {
			projects = append(projects, p)
		}
	}
	d.Downtime = projects
}

func (d *Document) hasVaultCard(id string) bool {
	for _, c := range d.Vault.Cards {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (d *Document) hasFeatureCard(id string) bool {
	for _, c := range d.Features.Cards {
		if c.ID == id {
			return true
		}
	}
	return false
}

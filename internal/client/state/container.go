// Package state holds the per-character state containers and the manager
// that switches between them. A Container owns one character's document;
// the Manager makes sure exactly one container is bound to the page at a
// time and that switching never bleeds one character's values into another.
package state

import (
	"github.com/avelyth/loresheet/internal/client/uibus"
	"github.com/avelyth/loresheet/internal/sheet"
)

// Container pairs one character's document with its page binding state.
type Container struct {
	ID     string
	Doc    *sheet.Document
	Active bool
}

// NewContainer creates a container around doc, or around a fresh default
// document when doc is nil.
func NewContainer(id string, doc *sheet.Document) *Container {
	if doc == nil {
		doc = sheet.DefaultDocument()
	}
	doc.Normalize()
	return &Container{ID: id, Doc: doc}
}

// ApplyToUI writes every document field group to the bus. Trackers are
// re-rendered through SetFillLevel so the cells the page shows always
// form a contiguous fill, whatever state the stored document was in.
func (c *Container) ApplyToUI(bus uibus.Bus) {
	c.Doc.Normalize()
	d := c.Doc

	bus.SetIdentity(d.Identity)
	bus.SetAttributes(d.Attributes)
	bus.SetCombat(d.Combat)

	t := d.Trackers
	t.HP.Cells = sheet.SetFillLevel(t.HP.Cells, t.HP.Current)
	t.Stress.Cells = sheet.SetFillLevel(t.Stress.Cells, t.Stress.Current)
	t.Armor.Cells = sheet.SetFillLevel(t.Armor.Cells, t.Armor.Current)
	bus.SetTrackers(t)

	bus.SetEquipment(d.Equipment)
	bus.SetJournal(d.Journal)
	bus.SetDetails(d.Details)
	bus.SetExperiences(d.Experiences)
	bus.SetDowntime(d.Downtime)
	bus.SetVault(d.Vault)
	bus.SetFeatures(d.Features)
	bus.SetAppearance(d.Appearance)
}

// CollectFromUI reads the page back into the document. Groups the bus has
// no data for (zero values, typically because that section never rendered)
// keep their previous document values instead of being wiped.
func (c *Container) CollectFromUI(bus uibus.Bus) {
	d := c.Doc

	if v := bus.Identity(); v != (sheet.Identity{}) {
		d.Identity = v
	}
	if v := bus.Attributes(); v != (sheet.Attributes{}) {
		d.Attributes = v
	}
	if v := bus.Combat(); v != (sheet.Combat{}) {
		d.Combat = v
	}
	if v := bus.Trackers(); !emptyTrackers(v) {
		d.Trackers = v
	}
	if v := bus.Equipment(); !emptyEquipment(v) {
		d.Equipment = v
	}
	if v := bus.Journal(); v != nil {
		d.Journal = v
	}
	if v := bus.Details(); v.Personal != nil || v.Physical != nil {
		d.Details = v
	}
	if v := bus.Experiences(); v != nil {
		d.Experiences = v
	}
	if v := bus.Downtime(); v != nil {
		d.Downtime = v
	}
	if v := bus.Vault(); !emptyVault(v) {
		d.Vault = v
	}
	if v := bus.Features(); v.Cards != nil || v.Highlighted != nil {
		d.Features = v
	}
	if v := bus.Appearance(); !emptyAppearance(v) {
		d.Appearance = v
	}

	d.Normalize()
}

// Deactivate marks the container as no longer bound to the page.
func (c *Container) Deactivate() {
	c.Active = false
}

func emptyTrackers(t sheet.Trackers) bool {
	return t.HP.Cells == nil && t.Stress.Cells == nil && t.Armor.Cells == nil &&
		t.Hope == (sheet.Pool{})
}

func emptyEquipment(e sheet.Equipment) bool {
	return e.Weapons == nil && e.Armor == nil && e.Items == nil && e.Consumables == nil
}

func emptyVault(v sheet.Vault) bool {
	if v.Cards != nil {
		return false
	}
	for _, s := range v.Slots {
		if s != nil {
			return false
		}
	}
	return true
}

func emptyAppearance(a sheet.Appearance) bool {
	return a.SectionOrder == nil && a.Colors == nil && a.Background == "" &&
		a.Glass == (sheet.GlassEffect{})
}

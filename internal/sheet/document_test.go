package sheet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDocument(t *testing.T) {
	d := DefaultDocument()

	assert.Equal(t, CurrentVersion, d.Version)
	assert.Equal(t, 1, d.Identity.Level)
	assert.Len(t, d.Trackers.HP.Cells, defaultHPCells)
	assert.Equal(t, 0, d.Trackers.HP.Current)
	assert.Equal(t, defaultHopeStart, d.Trackers.Hope.Current)
	assert.NotNil(t, d.Journal)
	assert.NotNil(t, d.Details.Personal)
	assert.Len(t, d.Vault.Slots, VaultSlotCount)
}

func TestNormalize_RepairsZeroValue(t *testing.T) {
	var d Document
	d.Normalize()

	assert.Equal(t, CurrentVersion, d.Version)
	assert.NotNil(t, d.Equipment.Weapons)
	assert.NotNil(t, d.Appearance.Colors)
	assert.Empty(t, d.Features.Highlighted)
}

func TestNormalize_DropsDanglingReferences(t *testing.T) {
	d := DefaultDocument()
	d.Vault.Cards = []Card{{ID: "c1"}}
	gone := "missing"
	keep := "c1"
	d.Vault.Slots[0] = &gone
	d.Vault.Slots[1] = &keep
	d.Features.Cards = []FeatureCard{{ID: "f1"}}
	d.Features.Highlighted = []string{"f1", "nope"}

	d.Normalize()

	assert.Nil(t, d.Vault.Slots[0])
	require.NotNil(t, d.Vault.Slots[1])
	assert.Equal(t, "c1", *d.Vault.Slots[1])
	assert.Equal(t, []string{"f1"}, d.Features.Highlighted)
}

func TestNormalize_CapsHighlights(t *testing.T) {
	d := DefaultDocument()
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		d.Features.Cards = append(d.Features.Cards, FeatureCard{ID: id})
		d.Features.Highlighted = append(d.Features.Highlighted, id)
	}
	d.Normalize()
	assert.Len(t, d.Features.Highlighted, MaxHighlightedFeatures)
}

func TestEquipCard(t *testing.T) {
	d := DefaultDocument()
	d.Vault.Cards = []Card{{ID: "c1"}, {ID: "c2"}}

	assert.False(t, d.EquipCard("unknown"))
	assert.True(t, d.EquipCard("c1"))
	// Equipping again keeps the single reference.
	assert.True(t, d.EquipCard("c1"))

	refs := 0
	for _, slot := range d.Vault.Slots {
		if slot != nil && *slot == "c1" {
			refs++
		}
	}
	assert.Equal(t, 1, refs)
}

func TestEquipCard_NoFreeSlot(t *testing.T) {
	d := DefaultDocument()
	for i := 0; i < VaultSlotCount; i++ {
		id := string(rune('a' + i))
		d.Vault.Cards = append(d.Vault.Cards, Card{ID: id})
		assert.True(t, d.EquipCard(id))
	}
	d.Vault.Cards = append(d.Vault.Cards, Card{ID: "overflow"})
	assert.False(t, d.EquipCard("overflow"))
}

func TestRemoveVaultCard_ClearsSlots(t *testing.T) {
	d := DefaultDocument()
	d.Vault.Cards = []Card{{ID: "c1"}, {ID: "c2"}}
	require.True(t, d.EquipCard("c1"))
	require.True(t, d.EquipCard("c2"))

	d.RemoveVaultCard("c1")

	assert.Len(t, d.Vault.Cards, 1)
	for _, slot := range d.Vault.Slots {
		if slot != nil {
			assert.NotEqual(t, "c1", *slot)
		}
	}
}

func TestRemoveFeatureCard_ClearsHighlight(t *testing.T) {
	d := DefaultDocument()
	d.Features.Cards = []FeatureCard{{ID: "f1"}, {ID: "f2"}}
	require.True(t, d.HighlightFeature("f1"))
	require.True(t, d.HighlightFeature("f2"))

	d.RemoveFeatureCard("f1")

	assert.Equal(t, []string{"f2"}, d.Features.Highlighted)
	assert.Len(t, d.Features.Cards, 1)
}

func TestRemoveProject(t *testing.T) {
	d := DefaultDocument()
	d.Downtime = []Project{{ID: "p1"}, {ID: "p2"}}
	d.RemoveProject("p1")
	assert.Len(t, d.Downtime, 1)
	assert.Equal(t, "p2", d.Downtime[0].ID)
	// Removing an unknown ID never panics.
	d.RemoveProject("p1")
	assert.Len(t, d.Downtime, 1)
}

func TestHighlightFeature_Cap(t *testing.T) {
	d := DefaultDocument()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		d.Features.Cards = append(d.Features.Cards, FeatureCard{ID: id})
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		assert.True(t, d.HighlightFeature(id))
	}
	assert.False(t, d.HighlightFeature("f"))
}

func TestAddEntriesAssignIDs(t *testing.T) {
	d := DefaultDocument()

	card := d.AddVaultCard(Card{Name: "Ward of Thorns", Domain: "Sage"})
	assert.NotEmpty(t, card.ID)
	assert.True(t, d.EquipCard(card.ID))

	feature := d.AddFeatureCard(FeatureCard{Name: "Second Wind"})
	assert.True(t, d.HighlightFeature(feature.ID))

	project := d.AddProject(Project{Name: "Forge a blade", Segments: 6})
	assert.NotEmpty(t, project.ID)

	// Caller-supplied IDs are kept.
	kept := d.AddVaultCard(Card{ID: "c-custom", Name: "Book of Ava"})
	assert.Equal(t, "c-custom", kept.ID)

	// Minted IDs do not collide.
	other := d.AddFeatureCard(FeatureCard{Name: "Rally"})
	assert.NotEqual(t, feature.ID, other.ID)
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	d := DefaultDocument()
	d.Identity.Name = "Thistle"
	d.Vault.Cards = []Card{{ID: "c1", Name: "Ward of Thorns", Domain: "Sage", Level: 2}}
	require.True(t, d.EquipCard("c1"))
	d.Trackers.HP.Click(2)

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

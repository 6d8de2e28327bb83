package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avelyth/loresheet/internal/client/uibus"
	"github.com/avelyth/loresheet/internal/logging"
	"github.com/avelyth/loresheet/internal/sheet"
)

// Manager owns every loaded character container and tracks which one is
// bound to the page. Switching always saves the outgoing character's page
// state into its own container before the incoming one touches the bus.
type Manager struct {
	bus        uibus.Bus
	log        logging.Logger
	containers map[string]*Container
	current    string
}

// NewManager creates a manager with no character loaded.
func NewManager(bus uibus.Bus, log logging.Logger) *Manager {
	return &Manager{
		bus:        bus,
		log:        log,
		containers: make(map[string]*Container),
	}
}

// Current returns the active container, or nil when nothing is loaded.
func (m *Manager) Current() *Container {
	if m.current == "" {
		return nil
	}
	return m.containers[m.current]
}

// Get returns the container for id if it has been loaded.
func (m *Manager) Get(id string) (*Container, bool) {
	c, ok := m.containers[id]
	return c, ok
}

// Load registers a document for a character without switching to it.
// Existing containers are replaced.
func (m *Manager) Load(id string, doc *sheet.Document) *Container {
	c := NewContainer(id, doc)
	c.Active = id == m.current
	m.containers[id] = c
	return c
}

// Forget drops a character's container, e.g. after it was deleted on the
// server. Forgetting the current character leaves the page unbound.
func (m *Manager) Forget(id string) {
	delete(m.containers, id)
	if m.current == id {
		m.current = ""
		m.bus.Reset()
	}
}

// SwitchTo makes id the active character. The outgoing character's page
// state is collected into its container and the container deactivated
// first, so nothing of it survives on the bus. If cloudData carries a
// stored document for the target, its top-level sections are merged over
// the local ones before the apply. A bad cloud payload is logged and the
// local document is kept; it never blocks the switch.
func (m *Manager) SwitchTo(ctx context.Context, id string, cloudData json.RawMessage) *Container {
	if cur := m.Current(); cur != nil && cur.ID != id {
		cur.CollectFromUI(m.bus)
		cur.Deactivate()
	}

	c, ok := m.containers[id]
	if !ok {
		c = NewContainer(id, nil)
		m.containers[id] = c
	}

	if len(cloudData) > 0 {
		merged, err := mergeCloud(c.Doc, cloudData)
		if err != nil {
			m.log.Warn(ctx, "cloud document rejected, keeping local copy",
				"character", id, "error", err)
		} else {
			c.Doc = merged
		}
	}

	m.bus.Reset()
	c.ApplyToUI(m.bus)
	c.Active = true
	m.current = id
	return c
}

// mergeCloud overlays the cloud document's top-level sections onto the
// local one. The cloud payload is migrated to the current schema first;
// then only sections actually present in it replace local state, and the
// merged result runs through the usual decode path for normalization.
func mergeCloud(local *sheet.Document, cloudData json.RawMessage) (*sheet.Document, error) {
	// The cloud payload is upgraded to the current schema before the
	// overlay. Overlaying first would let the local document's version key
	// win, and a legacy flat payload would skip the migration chain and
	// lose its fields in the decode.
	upgraded, err := sheet.Upgrade(cloudData)
	if err != nil {
		return nil, fmt.Errorf("parse cloud document: %w", err)
	}

	var cloudSections map[string]json.RawMessage
	if err := json.Unmarshal(upgraded, &cloudSections); err != nil {
		return nil, fmt.Errorf("parse cloud document: %w", err)
	}

	localRaw, err := json.Marshal(local)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(localRaw, &merged); err != nil {
		return nil, err
	}
	for k, v := range cloudSections {
		merged[k] = v
	}

	mergedRaw, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return sheet.Decode(mergedRaw)
}

// Package sync drives autosaving: a periodic ticker plus event-driven
// notifications funnel into one serialized save path that captures the
// page, writes the snapshot to the local cache, and pushes it to the
// server when a remote is configured. The local write is the durable one;
// a failed push is logged and the next save retries implicitly.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/avelyth/loresheet/internal/client/localstore"
	"github.com/avelyth/loresheet/internal/client/snapshot"
	"github.com/avelyth/loresheet/internal/client/state"
	"github.com/avelyth/loresheet/internal/client/uibus"
	"github.com/avelyth/loresheet/internal/logging"
)

// Trigger names what caused a save.
type Trigger string

const (
	TriggerInterval Trigger = "interval"
	TriggerEvent    Trigger = "event"
	TriggerManual   Trigger = "manual"
	TriggerFlush    Trigger = "flush"
	TriggerSwitch   Trigger = "switch"
)

// saveType maps a trigger to the save_type vocabulary the server records
// in its history: everything except an explicit user save is "auto".
func (t Trigger) saveType() string {
	if t == TriggerManual {
		return "manual"
	}
	return "auto"
}

const (
	defaultInterval = 5 * time.Second
	defaultDebounce = 1 * time.Second
)

// Remote pushes a captured snapshot to the server. The api client is
// adapted to this interface in cmd/client; a nil Remote means offline.
type Remote interface {
	PushSave(ctx context.Context, characterID string, data []byte, saveType string) error
}

// Options tune the autosaver. Zero values take the defaults.
type Options struct {
	Interval time.Duration
	Debounce time.Duration
}

// Autosaver is the sync orchestrator. All saves for the session run
// through one mutex, so a save, a flush and a character switch can never
// interleave; the newest completed save wins.
type Autosaver struct {
	mgr    *state.Manager
	bus    uibus.Bus
	store  *localstore.Store
	remote Remote
	log    logging.Logger

	interval time.Duration
	debounce time.Duration

	mu         stdsync.Mutex
	lastSaveAt time.Time

	notifyCh  chan Trigger
	done      chan struct{}
	closeOnce stdsync.Once
	wg        stdsync.WaitGroup
}

// New builds an autosaver and starts its background loop.
func New(mgr *state.Manager, bus uibus.Bus, store *localstore.Store, remote Remote, log logging.Logger, opts Options) *Autosaver {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	a := &Autosaver{
		mgr:      mgr,
		bus:      bus,
		store:    store,
		remote:   remote,
		log:      log,
		interval: opts.Interval,
		debounce: opts.Debounce,
		notifyCh: make(chan Trigger, 1),
		done:     make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Notify requests a save for a high-value event (tracker click, card
// equip, ...). Requests arriving within the debounce floor of the last
// save are coalesced into one deferred save instead of hammering the
// store. Notify never blocks.
func (a *Autosaver) Notify(trig Trigger) {
	select {
	case a.notifyCh <- trig:
	default:
	}
}

// SaveNow saves immediately, bypassing the debounce floor.
func (a *Autosaver) SaveNow(ctx context.Context) error {
	return a.save(ctx, TriggerManual)
}

// Flush runs a synchronous save. It is the analog of the page losing
// visibility or unloading: call it before the process exits.
func (a *Autosaver) Flush(ctx context.Context) error {
	return a.save(ctx, TriggerFlush)
}

// SwitchCharacter saves the outgoing character, switches the manager to
// id (merging cloudData when present), records the new current pointer,
// and saves the incoming character so the cache is warm. All character
// switches must go through here; calling the manager directly would skip
// the outgoing save and risk cross-character bleed.
func (a *Autosaver) SwitchCharacter(ctx context.Context, id string, cloudData json.RawMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cur := a.mgr.Current(); cur != nil && cur.ID != id {
		if err := a.saveLocked(ctx, cur.ID, TriggerSwitch); err != nil {
			// The outgoing state still lives in its container after
			// CollectFromUI inside the save, so the switch can proceed.
			a.log.Error(ctx, "outgoing save failed", "character", cur.ID, "error", err)
		}
	}

	a.mgr.SwitchTo(ctx, id, cloudData)

	if err := a.store.Put(ctx, localstore.KeyCurrent, []byte(id)); err != nil {
		a.log.Error(ctx, "failed to record current character", "error", err)
	}
	return a.saveLocked(ctx, id, TriggerSwitch)
}

// Close stops the background loop and flushes one final save.
func (a *Autosaver) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.done)
		a.wg.Wait()
		err = a.Flush(context.Background())
	})
	return err
}

func (a *Autosaver) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var deferred *time.Timer
	var deferredC <-chan time.Time
	var deferredTrig Trigger

	for {
		select {
		case <-a.done:
			if deferred != nil {
				deferred.Stop()
			}
			return

		case <-ticker.C:
			a.saveAndLog(TriggerInterval)

		case trig := <-a.notifyCh:
			if wait := a.debounceRemaining(); wait <= 0 {
				a.saveAndLog(trig)
			} else if deferredC == nil {
				deferred = time.NewTimer(wait)
				deferredC = deferred.C
				deferredTrig = trig
			}
			// A deferred save is already pending; the new request is
			// covered by it.

		case <-deferredC:
			deferred, deferredC = nil, nil
			a.saveAndLog(deferredTrig)
		}
	}
}

func (a *Autosaver) debounceRemaining() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.debounce - time.Since(a.lastSaveAt)
}

func (a *Autosaver) saveAndLog(trig Trigger) {
	ctx := context.Background()
	if err := a.save(ctx, trig); err != nil {
		a.log.Error(ctx, "autosave failed", "trigger", string(trig), "error", err)
	}
}

func (a *Autosaver) save(ctx context.Context, trig Trigger) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.mgr.Current()
	if cur == nil {
		return nil
	}
	return a.saveLocked(ctx, cur.ID, trig)
}

// saveLocked captures and persists the current page state under the given
// character id. Callers hold a.mu.
func (a *Autosaver) saveLocked(ctx context.Context, id string, trig Trigger) error {
	if cur := a.mgr.Current(); cur != nil && cur.ID == id {
		cur.CollectFromUI(a.bus)
	}

	snap := snapshot.Capture(a.bus)
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	if err := a.store.Put(ctx, localstore.SnapshotKey(id), data); err != nil {
		return err
	}
	if err := a.indexAdd(ctx, id); err != nil {
		a.log.Warn(ctx, "failed to update character index", "error", err)
	}
	a.lastSaveAt = time.Now()

	if a.remote != nil {
		if err := a.remote.PushSave(ctx, id, data, trig.saveType()); err != nil {
			a.log.Warn(ctx, "remote push failed, snapshot kept locally",
				"character", id, "error", err)
		}
	}
	return nil
}

// indexAdd records id in the character directory if it is not there yet.
func (a *Autosaver) indexAdd(ctx context.Context, id string) error {
	var index []string
	raw, err := a.store.Get(ctx, localstore.KeyIndex)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := json.Unmarshal(raw, &index); err != nil {
			index = nil
		}
	}

	for _, have := range index {
		if have == id {
			return nil
		}
	}
	index = append(index, id)
	out, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return a.store.Put(ctx, localstore.KeyIndex, out)
}

// The headless sheet client: opens the local cache, binds a character to
// the in-memory page and keeps it autosaved locally and, when LORESHEET_URL
// and credentials are set, on the server as well. It runs until interrupted
// and flushes a final save on the way out.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avelyth/loresheet/internal/client/api"
	"github.com/avelyth/loresheet/internal/client/localstore"
	"github.com/avelyth/loresheet/internal/client/state"
	clientsync "github.com/avelyth/loresheet/internal/client/sync"
	"github.com/avelyth/loresheet/internal/client/uibus"
	"github.com/avelyth/loresheet/internal/logging"
	"github.com/avelyth/loresheet/internal/sheet"
)

// remoteAdapter bridges the autosaver's push interface to the REST client.
// Local character ids are strings; server-backed ones are numeric.
type remoteAdapter struct {
	client *api.Client
}

func (r *remoteAdapter) PushSave(ctx context.Context, characterID string, data []byte, saveType string) error {
	id, err := strconv.ParseUint(characterID, 10, 64)
	if err != nil {
		// Purely local character, nothing to push.
		return nil
	}
	_, err = r.client.UpdateCharacter(ctx, id, nil, data, saveType)
	return err
}

func main() {
	_ = godotenv.Load()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ctx := context.Background()

	cachePath := os.Getenv("LORESHEET_CACHE")
	if cachePath == "" {
		cachePath = "loresheet.db"
	}
	store, err := localstore.Open(ctx, cachePath)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer store.Close()

	// Remote is optional: without a server URL the client runs fully
	// offline against the cache.
	var remote clientsync.Remote
	var apiClient *api.Client
	if base := os.Getenv("LORESHEET_URL"); base != "" {
		apiClient = api.New(base)
		email, password := os.Getenv("LORESHEET_EMAIL"), os.Getenv("LORESHEET_PASSWORD")
		if email != "" && password != "" {
			if _, err := apiClient.Login(ctx, email, password); err != nil {
				log.Fatalf("login: %v", err)
			}
			remote = &remoteAdapter{client: apiClient}
		}
	}

	bus := uibus.NewMemoryBus()
	mgr := state.NewManager(bus, logger)
	saver := clientsync.New(mgr, bus, store, remote, logger, clientsync.Options{})

	// Resume where the last session left off: the server's active
	// character when online, otherwise the cached current pointer.
	characterID, cloudData := resolveStart(ctx, store, apiClient)
	if characterID != "" {
		if raw, err := store.Get(ctx, localstore.SnapshotKey(characterID)); err == nil {
			restoreCached(mgr, characterID, raw)
		}
		if err := saver.SwitchCharacter(ctx, characterID, cloudData); err != nil {
			logger.Error(ctx, "initial switch failed", "character", characterID, "error", err)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	// The unload path: one last synchronous save before exit.
	if err := saver.Close(); err != nil {
		logger.Error(ctx, "final flush failed", "error", err)
	}
}

// resolveStart picks the character to open and fetches its cloud document
// when a logged-in client is available.
func resolveStart(ctx context.Context, store *localstore.Store, client *api.Client) (string, json.RawMessage) {
	if client != nil && client.Token() != "" {
		ch, err := client.GetActive(ctx)
		if err == nil {
			return strconv.FormatUint(ch.ID, 10), ch.Data
		}
		if !api.IsNotFound(err) {
			log.Printf("fetch active character: %v", err)
		}
	}

	raw, err := store.Get(ctx, localstore.KeyCurrent)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			log.Printf("read current pointer: %v", err)
		}
		return "", nil
	}
	return string(raw), nil
}

// restoreCached seeds the manager with the cached snapshot's document so
// the first switch starts from local state instead of a blank sheet.
func restoreCached(mgr *state.Manager, id string, raw []byte) {
	var snap struct {
		Doc json.RawMessage `json:"doc"`
	}
	if err := json.Unmarshal(raw, &snap); err != nil || len(snap.Doc) == 0 {
		return
	}
	doc, err := sheet.Decode(snap.Doc)
	if err != nil {
		return
	}
	mgr.Load(id, doc)
}

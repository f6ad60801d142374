package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/huelogic/internal/bridge"
)

// Logger defines the logging interface used by the Cache.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Events receives notifications about cache lifecycle and mutations.
// Implementations must not block; the default discards everything.
type Events interface {
	// MutationApplied fires after a confirmed write has been mirrored.
	MutationApplied(rtype, id, name string)

	// Reloaded fires after a full reload, with resource counts by type.
	Reloaded(counts map[string]int)
}

type noopEvents struct{}

func (noopEvents) MutationApplied(string, string, string) {}
func (noopEvents) Reloaded(map[string]int)                {}

// cachedTypes is the set of resource types mirrored on reload.
var cachedTypes = []string{
	bridge.RTypeDevice,
	bridge.RTypeLight,
	bridge.RTypeRoom,
	bridge.RTypeZone,
	bridge.RTypeScene,
	bridge.RTypeButton,
	bridge.RTypeBehaviorInstance,
	bridge.RTypeDevicePower,
	bridge.RTypeZigbeeConnectivity,
}

// filePermissions is the permission mode for the persisted mirror.
const filePermissions = 0600

// envelopeVersion guards the persisted file layout.
const envelopeVersion = 1

// Mutation is one write-through update: a PUT of Payload onto the
// resource identified by RType/ID. Name is the entity's display name,
// used only for error context and events.
type Mutation struct {
	RType   string
	ID      string
	Name    string
	Payload map[string]any
}

// Cache is the process-wide mirror of bridge state.
type Cache struct {
	transport bridge.Transport
	path      string
	maxAge    time.Duration

	mu         sync.RWMutex
	resources  map[string]map[string]map[string]any // rtype -> id -> raw
	reloadedAt time.Time
	stale      map[string]bool // "rtype/id" marks from unconfirmed writes

	logger Logger
	events Events
}

// envelope is the persisted file layout.
type envelope struct {
	Version    int                                  `json:"version"`
	ReloadedAt time.Time                            `json:"reloaded_at"`
	Resources  map[string]map[string]map[string]any `json:"resources"`
}

// New creates a cache backed by the given transport, persisted at path
// and considered stale after maxAge.
func New(transport bridge.Transport, path string, maxAge time.Duration) *Cache {
	return &Cache{
		transport: transport,
		path:      path,
		maxAge:    maxAge,
		resources: make(map[string]map[string]map[string]any),
		stale:     make(map[string]bool),
		logger:    noopLogger{},
		events:    noopEvents{},
	}
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	c.logger = logger
}

// SetEvents sets the event sink for the cache.
func (c *Cache) SetEvents(events Events) {
	c.events = events
}

// Load restores the persisted mirror from disk. A missing file is not
// an error - the mirror starts empty and the first read reloads it.
func (c *Cache) Load(ctx context.Context) error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Debug("no persisted mirror", "path", c.path)
			return nil
		}
		return fmt.Errorf("reading mirror file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("parsing mirror file: %w", err)
	}
	if env.Version != envelopeVersion {
		// Old layouts are discarded rather than migrated; the bridge
		// is the source of truth and a reload rebuilds everything.
		c.logger.Warn("discarding mirror with unknown version", "version", env.Version)
		return nil
	}

	c.mu.Lock()
	c.resources = env.Resources
	if c.resources == nil {
		c.resources = make(map[string]map[string]map[string]any)
	}
	c.reloadedAt = env.ReloadedAt
	c.mu.Unlock()

	c.logger.Info("mirror loaded", "reloaded_at", env.ReloadedAt)
	return c.ensureFresh(ctx)
}

// Reload replaces the whole mirror with fresh bridge state, clears all
// stale marks and persists the result.
func (c *Cache) Reload(ctx context.Context) error {
	fresh := make(map[string]map[string]map[string]any, len(cachedTypes))
	counts := make(map[string]int, len(cachedTypes))

	for _, rtype := range cachedTypes {
		list, err := c.transport.ListResources(ctx, rtype)
		if err != nil {
			return fmt.Errorf("reloading %s resources: %w", rtype, err)
		}
		byID := make(map[string]map[string]any, len(list))
		for _, raw := range list {
			id := bridge.ResourceID(raw)
			if id == "" {
				continue
			}
			byID[id] = raw
		}
		fresh[rtype] = byID
		counts[rtype] = len(byID)
	}

	now := time.Now().UTC()

	c.mu.Lock()
	c.resources = fresh
	c.reloadedAt = now
	c.stale = make(map[string]bool)
	err := c.persistLocked()
	c.mu.Unlock()

	if err != nil {
		return err
	}

	c.logger.Info("mirror reloaded", "counts", counts)
	c.events.Reloaded(counts)
	return nil
}

// ReloadedAt returns the time of the last full reload (zero if never).
func (c *Cache) ReloadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reloadedAt
}

// Counts returns the number of mirrored resources by type.
func (c *Cache) Counts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int, len(c.resources))
	for rtype, byID := range c.resources {
		counts[rtype] = len(byID)
	}
	return counts
}

// Get returns a deep copy of one mirrored resource. Reads through the
// freshness gate; an entity marked stale forces a reload first.
func (c *Cache) Get(ctx context.Context, rtype, id string) (map[string]any, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	marked := c.stale[staleKey(rtype, id)]
	c.mu.RUnlock()

	if marked {
		c.logger.Warn("entity marked stale, reloading mirror", "rtype", rtype, "id", id)
		if err := c.Reload(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, ok := c.resources[rtype][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, rtype, id)
	}
	return bridge.CopyResource(raw), nil
}

// List returns deep copies of all mirrored resources of a type,
// ordered by id for determinism.
func (c *Cache) List(ctx context.Context, rtype string) ([]map[string]any, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	byID := c.resources[rtype]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, bridge.CopyResource(byID[id]))
	}
	return out, nil
}

// Apply performs a write-through mutation.
//
// The bridge call is issued first. Only a confirmed success patches the
// mirror, and the patch is computed from the submitted payload - no
// confirmatory re-read. On failure the mirror is untouched and the
// error is propagated with the entity name; writes are never retried.
// An unconfirmed outcome marks the entity stale so the next read
// reloads before trusting the mirror.
func (c *Cache) Apply(ctx context.Context, m Mutation) error {
	err := c.transport.PutResource(ctx, m.RType, m.ID, m.Payload)
	if err != nil {
		if isUnconfirmed(err) {
			c.mu.Lock()
			c.stale[staleKey(m.RType, m.ID)] = true
			c.mu.Unlock()
			c.logger.Warn("write unconfirmed, entity marked stale",
				"rtype", m.RType, "id", m.ID, "name", m.Name)
		}
		return fmt.Errorf("writing %s %q: %w", m.RType, m.Name, err)
	}

	c.mu.Lock()
	byID, ok := c.resources[m.RType]
	if !ok {
		byID = make(map[string]map[string]any)
		c.resources[m.RType] = byID
	}
	entry, ok := byID[m.ID]
	if !ok {
		entry = map[string]any{"id": m.ID}
		byID[m.ID] = entry
	}
	// Mirror exactly what was submitted: payloads carry whole top-level
	// objects (e.g. a full configuration), so key-level replacement is
	// the equivalent mutation.
	for k, v := range bridge.CopyResource(m.Payload) {
		entry[k] = v
	}
	delete(c.stale, staleKey(m.RType, m.ID))
	persistErr := c.persistLocked()
	c.mu.Unlock()

	if persistErr != nil {
		// The bridge write succeeded; a persistence failure only
		// affects the next process start.
		c.logger.Error("persisting mirror after write", "error", persistErr)
	}

	c.logger.Info("mutation applied", "rtype", m.RType, "id", m.ID, "name", m.Name)
	c.events.MutationApplied(m.RType, m.ID, m.Name)
	return nil
}

// ButtonControls maps button resource ids to their control index for
// one device, derived from the mirrored button resources.
func (c *Cache) ButtonControls(ctx context.Context, deviceID string) (map[string]int, error) {
	buttons, err := c.List(ctx, bridge.RTypeButton)
	if err != nil {
		return nil, err
	}

	controls := make(map[string]int)
	for _, btn := range buttons {
		owner, ok := btn["owner"].(map[string]any)
		if !ok {
			continue
		}
		rid, _ := owner["rid"].(string)
		if rid != deviceID {
			continue
		}
		meta, ok := btn["metadata"].(map[string]any)
		if !ok {
			continue
		}
		if controlID, ok := meta["control_id"].(float64); ok {
			controls[bridge.ResourceID(btn)] = int(controlID)
		}
	}
	return controls, nil
}

// ensureFresh reloads the mirror when it has never been loaded or has
// aged past the staleness threshold.
func (c *Cache) ensureFresh(ctx context.Context) error {
	c.mu.RLock()
	reloadedAt := c.reloadedAt
	c.mu.RUnlock()

	if reloadedAt.IsZero() || time.Since(reloadedAt) > c.maxAge {
		c.logger.Info("mirror stale, reloading", "reloaded_at", reloadedAt)
		return c.Reload(ctx)
	}
	return nil
}

// persistLocked writes the mirror to disk atomically. Callers hold mu.
func (c *Cache) persistLocked() error {
	env := envelope{
		Version:    envelopeVersion,
		ReloadedAt: c.reloadedAt,
		Resources:  c.resources,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding mirror: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating mirror directory: %w", err)
	}

	// Write-to-temp-then-rename: an interrupted save leaves the old
	// file intact instead of a truncated one.
	tmp, err := os.CreateTemp(dir, ".mirror-*.json")
	if err != nil {
		return fmt.Errorf("creating temp mirror file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()         //nolint:errcheck // Best effort cleanup
		os.Remove(tmpName)  //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("writing temp mirror file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("closing temp mirror file: %w", err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("setting mirror file permissions: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("replacing mirror file: %w", err)
	}
	return nil
}

func staleKey(rtype, id string) string {
	return rtype + "/" + id
}

func isUnconfirmed(err error) bool {
	return errors.Is(err, bridge.ErrUnconfirmed)
}

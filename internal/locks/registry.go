// Package locks keeps the set of items the fill loop must never consume.
package locks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/store"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

// Placeholders used when display metadata is unknown.
const (
	UnknownName   = "Unknown"
	UnknownRating = "-"
	UnknownPos    = "-"
)

// Entry is one locked item with its cached display identity.
type Entry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating string `json:"rating"`
	Pos    string `json:"pos"`
}

// Meta is the display identity supplied when locking an item.
type Meta struct {
	Name   string
	Rating string
	Pos    string
}

// MetaFromItem builds display metadata from an inventory item.
func MetaFromItem(it surface.Item) Meta {
	return Meta{Name: it.Name, Rating: it.Rating, Pos: it.PreferredPosition}
}

func newEntry(id string, m Meta) Entry {
	e := Entry{ID: id, Name: m.Name, Rating: m.Rating, Pos: m.Pos}
	if e.Name == "" {
		e.Name = UnknownName
	}
	if e.Rating == "" {
		e.Rating = UnknownRating
	}
	if e.Pos == "" {
		e.Pos = UnknownPos
	}
	return e
}

// over returns e with placeholder fields filled from old.
func (e Entry) over(old Entry) Entry {
	if e.Name == UnknownName {
		e.Name = old.Name
	}
	if e.Rating == UnknownRating {
		e.Rating = old.Rating
	}
	if e.Pos == UnknownPos {
		e.Pos = old.Pos
	}
	return e
}

// UpgradeLegacy decodes a persisted lock list. Older versions stored bare id
// strings; those become entries with placeholder metadata. Duplicate ids keep
// their first occurrence. changed reports whether the result differs from raw
// and must be written back.
func UpgradeLegacy(raw []byte) (entries []Entry, changed bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false, fmt.Errorf("decode locked players: %w", err)
	}

	seen := make(map[string]struct{}, len(elems))
	entries = make([]Entry, 0, len(elems))
	for i, el := range elems {
		var e Entry
		var id string
		switch {
		case json.Unmarshal(el, &id) == nil:
			e = newEntry(id, Meta{})
			changed = true
		case json.Unmarshal(el, &e) == nil:
		default:
			return nil, false, fmt.Errorf("decode locked players: element %d is neither id nor entry", i)
		}
		if e.ID == "" {
			changed = true
			continue
		}
		if _, dup := seen[e.ID]; dup {
			changed = true
			continue
		}
		seen[e.ID] = struct{}{}
		entries = append(entries, e)
	}
	return entries, changed, nil
}

// Registry is the persisted lock set. The zero value is not usable; call Open.
type Registry struct {
	blobs store.BlobStore

	mu       sync.RWMutex
	audit    *logging.AuditLogger
	entries  []Entry
	index    map[string]int
	onChange []func([]Entry)
}

// Open loads the registry, upgrading and persisting legacy data once.
func Open(blobs store.BlobStore) (*Registry, error) {
	raw, _, err := blobs.Get(store.KeyLocks)
	if err != nil {
		return nil, surface.Storage("load locks", err)
	}
	entries, changed, err := UpgradeLegacy(raw)
	if err != nil {
		return nil, err
	}

	r := &Registry{blobs: blobs}
	r.reindex(entries)
	logging.LocksDebug("loaded %d locked items", len(entries))
	if changed {
		if err := r.persistLocked(); err != nil {
			return nil, err
		}
		logging.Locks("upgraded legacy lock list to %d entries", len(entries))
	}
	return r, nil
}

// SetAudit routes lock changes to a scoped audit logger.
func (r *Registry) SetAudit(a *logging.AuditLogger) {
	r.mu.Lock()
	r.audit = a
	r.mu.Unlock()
}

// auditLocked returns the audit logger. Caller must hold r.mu.
func (r *Registry) auditLocked() *logging.AuditLogger {
	if r.audit != nil {
		return r.audit
	}
	return logging.Audit()
}

func (r *Registry) reindex(entries []Entry) {
	r.entries = entries
	r.index = make(map[string]int, len(entries))
	for i, e := range entries {
		r.index[e.ID] = i
	}
}

// OnChange registers fn to receive the list after every toggle.
func (r *Registry) OnChange(fn func([]Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// IsLocked reports whether id is locked.
func (r *Registry) IsLocked(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// Toggle locks id if it is unlocked and unlocks it otherwise, then persists the
// whole set. It returns the new locked state. On a storage failure the set is
// left as it was.
func (r *Registry) Toggle(id string, meta Meta) (bool, error) {
	if id == "" {
		return false, errors.New("toggle lock: empty item id")
	}

	r.mu.Lock()
	prev := r.entries
	next := make([]Entry, 0, len(prev)+1)
	locked := true
	for _, e := range prev {
		if e.ID == id {
			locked = false
			continue
		}
		next = append(next, e)
	}
	if locked {
		next = append(next, newEntry(id, meta))
	}

	r.reindex(next)
	if err := r.persistLocked(); err != nil {
		r.reindex(prev)
		r.mu.Unlock()
		return !locked, err
	}
	snapshot := append([]Entry(nil), r.entries...)
	listeners := append([]func([]Entry){}, r.onChange...)
	audit := r.auditLocked()
	r.mu.Unlock()

	logging.Locks("toggle %s -> locked=%v (%d locked)", id, locked, len(snapshot))
	audit.LockToggle(id, locked)
	for _, fn := range listeners {
		fn(snapshot)
	}
	return locked, nil
}

// Import merges a lock list in any persisted shape into the registry.
// Entries whose id is already locked overwrite the stored metadata in place,
// except for placeholder fields; new ids are appended. It returns the number of entries imported.
func (r *Registry) Import(raw []byte) (int, error) {
	incoming, _, err := UpgradeLegacy(raw)
	if err != nil {
		return 0, err
	}
	if len(incoming) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	prev := r.entries
	next := append([]Entry(nil), prev...)
	pos := make(map[string]int, len(r.index))
	for id, i := range r.index {
		pos[id] = i
	}
	replaced := 0
	for _, e := range incoming {
		if i, ok := pos[e.ID]; ok {
			next[i] = e.over(next[i])
			replaced++
			continue
		}
		next = append(next, e)
		pos[e.ID] = len(next) - 1
	}
	r.reindex(next)
	if err := r.persistLocked(); err != nil {
		r.reindex(prev)
		r.mu.Unlock()
		return 0, err
	}
	snapshot := append([]Entry(nil), r.entries...)
	listeners := append([]func([]Entry){}, r.onChange...)
	r.mu.Unlock()

	logging.Locks("imported %d locked items (%d replaced)", len(incoming), replaced)
	for _, fn := range listeners {
		fn(snapshot)
	}
	return len(incoming), nil
}

// List returns the entries in insertion order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}

// IDs returns the locked ids as a set.
func (r *Registry) IDs() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{}, len(r.index))
	for id := range r.index {
		out[id] = struct{}{}
	}
	return out
}

// Len returns the number of locked items.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// persistLocked writes the set. Caller must hold r.mu.
func (r *Registry) persistLocked() error {
	entries := r.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return surface.Storage("persist locks", err)
	}
	if err := r.blobs.Put(store.KeyLocks, data); err != nil {
		return surface.Storage("persist locks", err)
	}
	return nil
}

// Format renders an entry the way the lock list shows it.
func (e Entry) Format() string {
	return fmt.Sprintf("%s – %s %s", e.Name, e.Rating, e.Pos)
}

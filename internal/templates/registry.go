// Package templates stores the slot layouts captured from live challenges.
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/store"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

// Template is the ordered list of role codes of one challenge.
type Template struct {
	ChallengeID string   `json:"challengeId"`
	Positions   []string `json:"positions"`
}

// Summary is the selector view of a template.
type Summary struct {
	ChallengeID string
	SlotCount   int
}

// Gate is the readiness check Capture depends on.
type Gate interface {
	Require(op string, kinds ...surface.Kind) error
}

// Registry maps challenge ids to templates and persists the whole map on
// every change.
type Registry struct {
	blobs store.BlobStore

	mu        sync.RWMutex
	templates map[string]Template
	audit     *logging.AuditLogger
}

// Open loads the registry from blobs. A missing blob is an empty registry.
func Open(blobs store.BlobStore) (*Registry, error) {
	r := &Registry{blobs: blobs, templates: make(map[string]Template)}

	raw, ok, err := blobs.Get(store.KeyTemplates)
	if err != nil {
		return nil, surface.Storage("load templates", err)
	}
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &r.templates); err != nil {
			return nil, fmt.Errorf("decode templates: %w", err)
		}
		if r.templates == nil {
			r.templates = make(map[string]Template)
		}
	}
	logging.TemplatesDebug("loaded %d templates", len(r.templates))
	return r, nil
}

// SetAudit routes template changes to a scoped audit logger.
func (r *Registry) SetAudit(a *logging.AuditLogger) {
	r.mu.Lock()
	r.audit = a
	r.mu.Unlock()
}

func (r *Registry) auditLocked() *logging.AuditLogger {
	if r.audit != nil {
		return r.audit
	}
	return logging.Audit()
}

// Save inserts or overwrites the template for challengeID.
func (r *Registry) Save(challengeID string, positions []string) error {
	if challengeID == "" {
		return surface.CaptureFailed("save template", errors.New("empty challenge id"))
	}
	if len(positions) == 0 {
		return surface.CaptureFailed("save template", errors.New("challenge has no slots"))
	}

	t := Template{ChallengeID: challengeID, Positions: append([]string(nil), positions...)}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, had := r.templates[challengeID]
	r.templates[challengeID] = t
	if err := r.persistLocked(); err != nil {
		if had {
			r.templates[challengeID] = prev
		} else {
			delete(r.templates, challengeID)
		}
		return err
	}
	logging.Templates("saved template %s (%d slots)", challengeID, len(positions))
	r.auditLocked().TemplateSave(challengeID, len(positions))
	return nil
}

// Capture reads the live challenge and saves its slot layout.
func (r *Registry) Capture(ctx context.Context, services surface.Services, gate Gate) (Template, error) {
	const op = "capture template"
	if err := gate.Require(op, surface.Challenge); err != nil {
		return Template{}, err
	}
	svc, ok := services.Challenge()
	if !ok {
		return Template{}, surface.Unavailable(op, surface.Challenge)
	}

	info, err := svc.CurrentChallenge(ctx)
	if err != nil {
		return Template{}, surface.CaptureFailed(op, err)
	}
	positions := info.Positions()
	for i, p := range positions {
		if p == "" {
			return Template{}, surface.CaptureFailed(op, fmt.Errorf("slot %d has no position", i))
		}
	}
	if err := r.Save(info.ID, positions); err != nil {
		return Template{}, err
	}
	return Template{ChallengeID: info.ID, Positions: positions}, nil
}

// Import merges a templates blob written by older versions. Those stored the
// challenge id as a number, so the map key is taken as the id. Entries under
// existing ids overwrite them; entries without positions are skipped. It
// returns the number imported.
func (r *Registry) Import(raw []byte) (int, error) {
	var legacy map[string]struct {
		Positions []string `json:"positions"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return 0, fmt.Errorf("decode legacy templates: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev := make(map[string]Template, len(r.templates))
	for k, v := range r.templates {
		prev[k] = v
	}

	n := 0
	for key, t := range legacy {
		if key == "" || len(t.Positions) == 0 {
			continue
		}
		r.templates[key] = Template{ChallengeID: key, Positions: t.Positions}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if err := r.persistLocked(); err != nil {
		r.templates = prev
		return 0, err
	}
	logging.Templates("imported %d templates", n)
	return n, nil
}

// Get returns a copy of the template for id.
func (r *Registry) Get(id string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return Template{}, false
	}
	t.Positions = append([]string(nil), t.Positions...)
	return t, true
}

// List returns summaries sorted by challenge id.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.templates))
	for id, t := range r.templates {
		out = append(out, Summary{ChallengeID: id, SlotCount: len(t.Positions)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChallengeID < out[j].ChallengeID })
	return out
}

// Delete removes the template for id. Deleting an unknown id is a no-op.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.templates[id]
	if !ok {
		return nil
	}
	delete(r.templates, id)
	if err := r.persistLocked(); err != nil {
		r.templates[id] = prev
		return err
	}
	logging.Templates("deleted template %s", id)
	r.auditLocked().TemplateDelete(id)
	return nil
}

func (r *Registry) persistLocked() error {
	data, err := json.Marshal(r.templates)
	if err != nil {
		return surface.Storage("persist templates", err)
	}
	if err := r.blobs.Put(store.KeyTemplates, data); err != nil {
		return surface.Storage("persist templates", err)
	}
	return nil
}

package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
)

// Registry holds the profiles available for session creation. Reads
// return copies.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	log      *logging.Logger
}

// NewRegistry returns a registry seeded with the built-in profiles.
func NewRegistry(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.NewNop()
	}
	r := &Registry{
		profiles: make(map[string]*Profile),
		log:      log.Named("profiles"),
	}
	for _, p := range Builtins() {
		r.profiles[p.ID] = p
	}
	return r
}

// Register validates and adds a profile, replacing any existing one
// with the same ID.
func (r *Registry) Register(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	_, replaced := r.profiles[p.ID]
	r.profiles[p.ID] = p.clone()
	r.mu.Unlock()

	if replaced {
		r.log.Info("profile replaced", zap.String("id", p.ID))
	}
	return nil
}

// LoadDir merges every profile file under root into the registry.
// File-defined profiles override builtins sharing an ID.
func (r *Registry) LoadDir(ctx context.Context, root string) (int, error) {
	profiles, err := LoadDir(ctx, root)
	if err != nil {
		return 0, err
	}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return 0, err
		}
	}
	r.log.Info("profiles loaded",
		zap.String("dir", root),
		zap.Int("count", len(profiles)))
	return len(profiles), nil
}

// Get returns a copy of the profile with the given ID.
func (r *Registry) Get(id string) (*Profile, error) {
	r.mu.RLock()
	p, ok := r.profiles[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p.clone(), nil
}

// Default returns the profile used when session creation names none.
func (r *Registry) Default() *Profile {
	if p, err := r.Get("venue"); err == nil {
		return p
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return &Profile{ID: "default", Name: "Default", SanitizePolicy: "basic"}
	}
	return r.profiles[ids[0]].clone()
}

// List returns all profiles sorted by ID.
func (r *Registry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

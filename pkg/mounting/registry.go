package mounting

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/shadow"
)

// Registry maps surface ids to their coordinators.
type Registry struct {
	opts    []Option
	metrics *Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	surfaces map[string]*Coordinator
}

// NewRegistry returns an empty registry. opts apply to every coordinator
// it starts.
func NewRegistry(opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		opts:     opts,
		metrics:  o.metrics,
		logger:   o.logger.With("component", "mounting"),
		surfaces: make(map[string]*Coordinator),
	}
}

// Start creates the coordinator of surface id with its initial tree.
// Starting a running surface fails with E313.
func (r *Registry) Start(id string, root shadow.Node, opts ...Option) (*Coordinator, error) {
	if root == nil {
		return nil, errors.New("E311").WithDetailf("surface %q started without a root", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.surfaces[id]; ok {
		return nil, errors.New("E313").
			WithDetailf("surface %q is already running", id).
			WithSuggestion("Commit a new tree to the surface or stop it first.")
	}
	c := NewCoordinator(id, root, append(slices.Clip(r.opts), opts...)...)
	r.surfaces[id] = c
	r.metrics.surfaceStarted()
	r.logger.Info("surface started", "surface", id, "root", root.View().Tag)
	return c, nil
}

// Get returns the coordinator of surface id, or E312.
func (r *Registry) Get(id string) (*Coordinator, error) {
	r.mu.RLock()
	c, ok := r.surfaces[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New("E312").WithDetailf("no surface %q", id)
	}
	return c, nil
}

// Stop closes and removes surface id.
func (r *Registry) Stop(id string) error {
	r.mu.Lock()
	c, ok := r.surfaces[id]
	delete(r.surfaces, id)
	r.mu.Unlock()

	if !ok {
		return errors.New("E312").WithDetailf("no surface %q", id)
	}
	c.Close()
	r.metrics.surfaceStopped()
	r.logger.Info("surface stopped", "surface", id)
	return nil
}

// IDs returns the running surface ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.surfaces))
	for id := range r.surfaces {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close stops every surface.
func (r *Registry) Close() {
	for _, id := range r.IDs() {
		_ = r.Stop(id)
	}
}

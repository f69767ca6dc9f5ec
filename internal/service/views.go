package service

import (
	"sync"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"

	gocache "github.com/patrickmn/go-cache"
)

// ViewState is one browser's cashflow page: the request counter and the
// last applied view.
type ViewState struct {
	mu      sync.Mutex
	latest  uint64
	applied *domain.ProjectionView
}

// Begin issues the next sequence number.
func (v *ViewState) Begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.latest++
	return v.latest
}

// Apply stores view if seq is still the latest issued number.
func (v *ViewState) Apply(seq uint64, view *domain.ProjectionView) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.latest {
		return false
	}
	v.applied = view
	return true
}

// Latest returns the last issued sequence number.
func (v *ViewState) Latest() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest
}

// Current returns the last applied view, nil before the first success.
func (v *ViewState) Current() *domain.ProjectionView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.applied
}

// ViewRegistry holds view states that expire after a period without use.
type ViewRegistry struct {
	mu    sync.Mutex
	items *gocache.Cache
}

// NewViewRegistry creates a registry whose entries expire after ttl idle.
func NewViewRegistry(ttl time.Duration) *ViewRegistry {
	return &ViewRegistry{items: gocache.New(ttl, 2*ttl)}
}

// Get returns the state for id, creating it on first use. Every access
// extends the entry's lifetime.
func (r *ViewRegistry) Get(id string) *ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.items.Get(id); ok {
		r.items.SetDefault(id, v)
		return v.(*ViewState)
	}
	v := &ViewState{}
	r.items.SetDefault(id, v)
	return v
}

// Peek returns the state for id without creating it.
func (r *ViewRegistry) Peek(id string) *ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.items.Get(id)
	if !ok {
		return nil
	}
	r.items.SetDefault(id, v)
	return v.(*ViewState)
}

// Forget drops the state for id.
func (r *ViewRegistry) Forget(id string) {
	r.items.Delete(id)
}

// Len returns the number of live views.
func (r *ViewRegistry) Len() int {
	return r.items.ItemCount()
}

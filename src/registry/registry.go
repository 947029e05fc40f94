package registry

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/hashicorp/go-multierror"

	"notify-shell/src/surface"
)

// Factory is the part of the UI factory the registry delegates to.
type Factory interface {
	CloseSurface(h surface.Handle) error
	EnumerateVisualTree(h surface.Handle) ([]surface.Control, error)
}

// CloseReport summarizes a CloseAll pass. Err aggregates per-surface failures.
type CloseReport struct {
	Closed int   `json:"closed"`
	Failed int   `json:"failed"`
	Err    error `json:"-"`
}

type entry struct {
	handle surface.Handle
	record *surface.Record
	closed chan struct{}
}

// Registry tracks every open interactive surface and its in-flight result.
// Bookkeeping is safe from any goroutine; CloseAll and EnumerateControls call
// into the factory and belong on the UI thread.
type Registry struct {
	factory Factory
	mu      sync.Mutex
	entries map[surface.Handle]*entry
	order   []surface.Handle
}

// New creates an empty registry backed by f.
func New(f Factory) *Registry {
	return &Registry{
		factory: f,
		entries: make(map[surface.Handle]*entry),
	}
}

// Register starts tracking h. An already tracked handle is rejected, never overwritten.
func (r *Registry) Register(h surface.Handle, rec *surface.Record) error {
	if rec == nil {
		return fmt.Errorf("register %s: nil record", h)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[h]; exists {
		return fmt.Errorf("register %s: %w", h, surface.ErrAlreadyRegistered)
	}
	r.entries[h] = &entry{handle: h, record: rec, closed: make(chan struct{})}
	r.order = append(r.order, h)
	log.Printf("Registry: registered %s (%d open)", h, len(r.order))
	return nil
}

// Unregister stops tracking h. Unknown handles are ignored.
func (r *Registry) Unregister(h surface.Handle) {
	r.mu.Lock()
	e, ok := r.entries[h]
	if ok {
		delete(r.entries, h)
		for i, oh := range r.order {
			if oh == h {
				r.order = append(r.order[:i:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()
	if ok {
		close(e.closed)
		log.Printf("Registry: unregistered %s", h)
	}
}

// Lookup returns the record for h, if h is open.
func (r *Registry) Lookup(h surface.Handle) (*surface.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[h]
	if !ok {
		return nil, false
	}
	return e.record, true
}

// IsOpen reports whether h is still tracked.
func (r *Registry) IsOpen(h surface.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[h]
	return ok
}

// List returns the open handles in insertion order. The slice is a copy.
func (r *Registry) List() []surface.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]surface.Handle, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of open surfaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// CloseAll closes every open surface on a best-effort basis and always leaves
// the registry empty. Pending records are resolved as cancelled so no caller
// can observe a pending result for a surface that is gone.
func (r *Registry) CloseAll() CloseReport {
	r.mu.Lock()
	snapshot := make([]*entry, 0, len(r.order))
	for _, h := range r.order {
		snapshot = append(snapshot, r.entries[h])
	}
	r.entries = make(map[surface.Handle]*entry)
	r.order = nil
	r.mu.Unlock()

	var report CloseReport
	var errs *multierror.Error
	for _, e := range snapshot {
		if err := r.closeOne(e.handle); err != nil {
			report.Failed++
			errs = multierror.Append(errs, err)
			log.Printf("Registry: close %s failed: %v", e.handle, err)
		} else {
			report.Closed++
		}
		e.record.Resolve(surface.Terminal{
			Outcome:      surface.OutcomeCancelled,
			ButtonID:     surface.SentinelCancelled,
			ButtonIndex:  -1,
			WasCancelled: true,
		})
		close(e.closed)
	}
	report.Err = errs.ErrorOrNil()
	log.Printf("Registry: closed %d surface(s), %d failure(s)", report.Closed, report.Failed)
	return report
}

func (r *Registry) closeOne(h surface.Handle) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: panic: %v", surface.ErrCloseFailed, h, p)
		}
	}()
	if r.factory == nil {
		return nil
	}
	if cerr := r.factory.CloseSurface(h); cerr != nil {
		return fmt.Errorf("%w: %s: %v", surface.ErrCloseFailed, h, cerr)
	}
	return nil
}

// EnumerateControls snapshots the visual tree of h. Unknown handles and
// factory failures yield an empty slice.
func (r *Registry) EnumerateControls(h surface.Handle) []surface.Control {
	if !r.IsOpen(h) || r.factory == nil {
		return []surface.Control{}
	}
	controls, err := r.factory.EnumerateVisualTree(h)
	if err != nil {
		log.Printf("Registry: enumerate %s failed: %v", h, err)
		return []surface.Control{}
	}
	if controls == nil {
		return []surface.Control{}
	}
	return controls
}

// Wait blocks until h is no longer tracked or ctx ends. It returns at once
// if h is not open.
func (r *Registry) Wait(ctx context.Context, h surface.Handle) error {
	r.mu.Lock()
	e, ok := r.entries[h]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-e.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

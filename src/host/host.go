// Package host is the composition root for live surfaces: it ties the UI
// thread, the toolkit factory and the registry together and owns teardown.
package host

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"notify-shell/src/registry"
	"notify-shell/src/surface"
	"notify-shell/src/theme"
	"notify-shell/src/uithread"
)

const defaultCompleteGrace = 500 * time.Millisecond

// Options tunes a Host.
type Options struct {
	Palette       theme.Palette
	CompleteGrace time.Duration
}

// SurfaceInfo describes one open surface.
type SurfaceInfo struct {
	Handle   surface.Handle    `json:"handle"`
	Kind     surface.Kind      `json:"kind"`
	Title    string            `json:"title"`
	Result   surface.Result    `json:"result"`
	Controls []surface.Control `json:"controls"`
}

type meta struct {
	kind     surface.Kind
	title    string
	teardown func()
}

// Host owns the registry of live surfaces for one UI subsystem.
type Host struct {
	UI       uithread.Dispatcher
	Factory  surface.Factory
	Registry *registry.Registry

	palette theme.Palette
	grace   time.Duration

	mu   sync.Mutex
	meta map[surface.Handle]meta
}

// New builds a host. A zero palette resolves to the light palette.
func New(ui uithread.Dispatcher, f surface.Factory, opts Options) *Host {
	if opts.Palette.Mode == "" {
		opts.Palette = theme.Light()
	}
	if opts.CompleteGrace <= 0 {
		opts.CompleteGrace = defaultCompleteGrace
	}
	return &Host{
		UI:       ui,
		Factory:  f,
		Registry: registry.New(f),
		palette:  opts.Palette,
		grace:    opts.CompleteGrace,
		meta:     make(map[surface.Handle]meta),
	}
}

// Palette returns the theme surfaces are painted with.
func (h *Host) Palette() theme.Palette { return h.palette }

// CompleteGrace is how long a completed progress surface stays visible.
func (h *Host) CompleteGrace() time.Duration { return h.grace }

// Colors maps the palette onto surface colors.
func (h *Host) Colors() surface.Colors { return ColorsFor(h.palette) }

// ColorsFor maps any palette onto surface colors.
func ColorsFor(p theme.Palette) surface.Colors {
	return surface.Colors{
		Background: p.Background,
		Surface:    p.Surface,
		Text:       p.OnSurface,
		SubText:    p.OnSurfaceVariant,
		Border:     p.Border,
	}
}

// Call runs fn on the UI thread and waits for it.
func (h *Host) Call(ctx context.Context, fn func()) error {
	return uithread.Call(ctx, h.UI, fn)
}

// Open materializes spec and registers it with a fresh record. It must run on
// the UI thread. onClosed runs once, when the surface closes or CloseAll drops
// it, before the registry forgets it; any record still pending afterwards is
// resolved as cancelled.
func (h *Host) Open(spec surface.Spec, onClosed func(*surface.Record)) (surface.Handle, *surface.Record, error) {
	handle, err := h.Factory.CreateSurface(spec)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", surface.ErrSurfaceCreation, err)
	}
	rec := surface.NewRecord()
	if err := h.Registry.Register(handle, rec); err != nil {
		_ = h.Factory.CloseSurface(handle)
		return "", nil, err
	}
	// teardown runs once, from the factory's close callback or from CloseAll
	// when the factory failed to close the surface.
	var once sync.Once
	teardown := func() {
		once.Do(func() {
			if onClosed != nil {
				onClosed(rec)
			}
			rec.Resolve(surface.Terminal{
				Outcome:      surface.OutcomeCancelled,
				ButtonID:     surface.SentinelCancelled,
				ButtonIndex:  -1,
				WasCancelled: true,
			})
			h.forget(handle)
			h.Registry.Unregister(handle)
		})
	}
	h.mu.Lock()
	h.meta[handle] = meta{kind: spec.Kind, title: spec.Title, teardown: teardown}
	h.mu.Unlock()

	if err := h.Factory.OnSurfaceClosed(handle, teardown); err != nil {
		h.forget(handle)
		h.Registry.Unregister(handle)
		_ = h.Factory.CloseSurface(handle)
		return "", nil, fmt.Errorf("%w: close hook: %v", surface.ErrSurfaceCreation, err)
	}
	log.Printf("Host: opened %s %s %q", spec.Kind, handle, spec.Title)
	return handle, rec, nil
}

func (h *Host) forget(handle surface.Handle) {
	h.mu.Lock()
	delete(h.meta, handle)
	h.mu.Unlock()
}

// CloseAll closes every open surface on the UI thread. Surfaces the factory
// failed to close are still torn down, so their owners observe the close.
func (h *Host) CloseAll(ctx context.Context) (registry.CloseReport, error) {
	var report registry.CloseReport
	err := h.Call(ctx, func() {
		handles := h.Registry.List()
		report = h.Registry.CloseAll()
		for _, handle := range handles {
			h.mu.Lock()
			m, ok := h.meta[handle]
			h.mu.Unlock()
			if ok && m.teardown != nil {
				m.teardown()
			}
		}
	})
	return report, err
}

// Describe lists open surfaces with their result so far and their controls.
func (h *Host) Describe(ctx context.Context) ([]SurfaceInfo, error) {
	var infos []SurfaceInfo
	err := h.Call(ctx, func() {
		for _, handle := range h.Registry.List() {
			rec, ok := h.Registry.Lookup(handle)
			if !ok {
				continue
			}
			h.mu.Lock()
			m := h.meta[handle]
			h.mu.Unlock()
			infos = append(infos, SurfaceInfo{
				Handle:   handle,
				Kind:     m.kind,
				Title:    m.title,
				Result:   rec.Snapshot(),
				Controls: h.Registry.EnumerateControls(handle),
			})
		}
	})
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []SurfaceInfo{}
	}
	return infos, nil
}

// Shutdown closes everything that is still open.
func (h *Host) Shutdown(ctx context.Context) error {
	report, err := h.CloseAll(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if report.Closed+report.Failed > 0 {
		log.Printf("Host: shutdown closed %d surface(s), %d failure(s)", report.Closed, report.Failed)
	}
	return nil
}

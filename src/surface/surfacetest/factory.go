// Package surfacetest provides an in-memory surface.Factory for tests.
package surfacetest

import (
	"errors"
	"fmt"
	"sync"

	"notify-shell/src/surface"
)

// Window is the fake's record of one created surface.
type Window struct {
	Spec      surface.Spec
	Closed    bool
	Percent   int
	Status    string
	onClosed  []func()
	onButton  map[int]func()
	onDismiss func(surface.Dismissal)
	fired     map[int]bool
}

// Factory records calls and lets tests drive clicks, keys and closes.
type Factory struct {
	mu         sync.Mutex
	windows    map[surface.Handle]*Window
	order      []surface.Handle
	CreateErr  error
	CloseErr   error
	ClosePanic bool
	CloseCalls int
}

// New returns an empty fake factory.
func New() *Factory {
	return &Factory{windows: make(map[surface.Handle]*Window)}
}

func (f *Factory) CreateSurface(spec surface.Spec) (surface.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}
	h := surface.NewHandle()
	f.windows[h] = &Window{Spec: spec, onButton: make(map[int]func()), fired: make(map[int]bool), Status: spec.Message}
	f.order = append(f.order, h)
	return h, nil
}

func (f *Factory) CloseSurface(h surface.Handle) error {
	f.mu.Lock()
	f.CloseCalls++
	if f.ClosePanic {
		f.mu.Unlock()
		panic("close exploded")
	}
	if f.CloseErr != nil {
		err := f.CloseErr
		f.mu.Unlock()
		return err
	}
	w, ok := f.windows[h]
	if !ok || w.Closed {
		f.mu.Unlock()
		return nil
	}
	w.Closed = true
	callbacks := w.onClosed
	w.onClosed = nil
	f.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (f *Factory) OnSurfaceClosed(h surface.Handle, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return surface.ErrHandleNotFound
	}
	w.onClosed = append(w.onClosed, fn)
	return nil
}

func (f *Factory) OnButtonActivated(h surface.Handle, index int, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return surface.ErrHandleNotFound
	}
	if index < 0 || index >= len(w.Spec.Buttons) {
		return fmt.Errorf("button %d out of range", index)
	}
	w.onButton[index] = fn
	return nil
}

func (f *Factory) OnDismissed(h surface.Handle, fn func(surface.Dismissal)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return surface.ErrHandleNotFound
	}
	w.onDismiss = fn
	return nil
}

func (f *Factory) EnumerateVisualTree(h surface.Handle) ([]surface.Control, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok || w.Closed {
		return nil, surface.ErrHandleNotFound
	}
	controls := []surface.Control{{Name: "Title", Kind: "Text", Value: w.Spec.Title, Enabled: true, Visible: true}}
	for i, b := range w.Spec.Buttons {
		controls = append(controls, surface.Control{Name: fmt.Sprintf("Button%d", i), Kind: "Button", Value: b.Label, Enabled: true, Visible: true})
	}
	return controls, nil
}

func (f *Factory) SetProgress(h surface.Handle, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok || w.Closed {
		return surface.ErrHandleNotFound
	}
	w.Percent = percent
	return nil
}

func (f *Factory) SetStatus(h surface.Handle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok || w.Closed {
		return surface.ErrHandleNotFound
	}
	w.Status = text
	return nil
}

// Click simulates activating button index. Clicks on closed surfaces are ignored.
func (f *Factory) Click(h surface.Handle, index int) error {
	f.mu.Lock()
	w, ok := f.windows[h]
	if !ok {
		f.mu.Unlock()
		return surface.ErrHandleNotFound
	}
	if w.Closed || w.fired[index] {
		f.mu.Unlock()
		return nil
	}
	fn := w.onButton[index]
	w.fired[index] = true
	f.mu.Unlock()
	if fn == nil {
		return errors.New("no button callback")
	}
	fn()
	return nil
}

// Key simulates a keyboard dismissal.
func (f *Factory) Key(h surface.Handle, d surface.Dismissal) {
	f.mu.Lock()
	w, ok := f.windows[h]
	var fn func(surface.Dismissal)
	if ok && !w.Closed {
		fn = w.onDismiss
	}
	f.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}

// UserClose simulates a window-manager close.
func (f *Factory) UserClose(h surface.Handle) {
	f.mu.Lock()
	saved := f.CloseErr
	panicking := f.ClosePanic
	f.CloseErr = nil
	f.ClosePanic = false
	f.mu.Unlock()
	_ = f.CloseSurface(h)
	f.mu.Lock()
	f.CloseErr = saved
	f.ClosePanic = panicking
	f.mu.Unlock()
}

// Window returns a copy of the fake window for h.
func (f *Factory) Window(h surface.Handle) (Window, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return Window{}, false
	}
	return Window{Spec: w.Spec, Closed: w.Closed, Percent: w.Percent, Status: w.Status}, true
}

// Handles lists every surface ever created, in creation order.
func (f *Factory) Handles() []surface.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]surface.Handle, len(f.order))
	copy(out, f.order)
	return out
}

// Last returns the most recently created handle.
func (f *Factory) Last() surface.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.order) == 0 {
		return ""
	}
	return f.order[len(f.order)-1]
}

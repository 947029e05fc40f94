// Package dialog shows modal-style message surfaces and correlates whatever
// ends them (click, key, close box, timer) into a single result.
package dialog

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"time"

	"github.com/hashicorp/go-multierror"

	"notify-shell/src/host"
	"notify-shell/src/surface"
	"notify-shell/src/theme"
	"notify-shell/src/uithread"
)

// Request describes a dialog. Kind may be set to surface.KindToast for a
// buttonless notification; otherwise an empty button list means OK only.
// Theme repaints this dialog only; Accent replaces the primary color and
// tints the surface whatever its Type.
type Request struct {
	Kind     surface.Kind     `json:"kind,omitempty"`
	Title    string           `json:"title"`
	Message  string           `json:"message"`
	Type     theme.Type       `json:"type,omitempty"`
	Buttons  []Button         `json:"buttons,omitempty"`
	Timeout  time.Duration    `json:"timeout_ns,omitempty"`
	Width    int              `json:"width,omitempty"`
	Height   int              `json:"height,omitempty"`
	Position surface.Position `json:"position,omitempty"`
	Chrome   surface.Chrome   `json:"chrome,omitempty"`
	Taskbar  surface.Taskbar  `json:"taskbar,omitempty"`
	Topmost  bool             `json:"topmost,omitempty"`
	Theme    theme.Mode       `json:"theme,omitempty"`
	Accent   string           `json:"accent,omitempty"`
}

// Dialog is a shown dialog. Its result is final once the surface closes.
type Dialog struct {
	host   *host.Host
	handle surface.Handle
	record *surface.Record
	corr   *Correlator
	timer  *uithread.Timer // UI thread only
}

// Show creates the surface on the UI thread and wires its buttons, keys,
// close box and timeout.
func Show(ctx context.Context, h *host.Host, req Request) (*Dialog, error) {
	kind := req.Kind
	if kind == "" {
		kind = surface.KindDialog
	}
	buttons := normalize(req.Buttons)
	if len(buttons) == 0 && kind != surface.KindToast {
		buttons = DefaultButtons()
	}

	palette, accent, err := paletteFor(h, req)
	if err != nil {
		return nil, err
	}

	spec := surface.Spec{
		Kind:     kind,
		Title:    req.Title,
		Message:  req.Message,
		Accent:   accent,
		Colors:   host.ColorsFor(palette),
		Width:    req.Width,
		Height:   req.Height,
		Chrome:   req.Chrome,
		Taskbar:  req.Taskbar,
		Topmost:  req.Topmost,
		Position: req.Position,
	}
	for _, b := range buttons {
		spec.Buttons = append(spec.Buttons, surface.ButtonSpec{Label: b.Label, Primary: b.IsDefault, Enabled: true})
	}
	if spec.Width == 0 {
		spec.Width = 400
	}
	if spec.Height == 0 {
		spec.Height = 200
	}
	if spec.Position == "" {
		spec.Position = surface.MiddleCenter
	}

	d := &Dialog{host: h}
	var openErr error
	err = h.Call(ctx, func() {
		handle, rec, err := h.Open(spec, func(*surface.Record) { d.closed() })
		if err != nil {
			openErr = err
			return
		}
		d.handle, d.record = handle, rec
		d.corr = NewCorrelator(rec, buttons)
		if err := d.wire(len(buttons), req.Timeout); err != nil {
			_ = h.Factory.CloseSurface(handle)
			openErr = fmt.Errorf("%w: %v", surface.ErrSurfaceCreation, err)
		}
	})
	if err != nil {
		return nil, err
	}
	if openErr != nil {
		return nil, openErr
	}
	return d, nil
}

// paletteFor applies the per-call theme and accent on top of the host palette.
func paletteFor(h *host.Host, req Request) (theme.Palette, color.NRGBA, error) {
	palette := h.Palette()
	if req.Theme != "" {
		palette = theme.Resolve(theme.ParseMode(string(req.Theme)))
	}
	palette, err := palette.WithAccent(req.Accent)
	if err != nil {
		return palette, color.NRGBA{}, err
	}
	if req.Accent != "" {
		return palette, palette.Primary, nil
	}
	return palette, palette.Accent(req.Type), nil
}

func (d *Dialog) wire(buttons int, timeout time.Duration) error {
	f := d.host.Factory
	var result *multierror.Error
	for i := 0; i < buttons; i++ {
		i := i
		if err := f.OnButtonActivated(d.handle, i, func() {
			d.corr.Activate(i)
			d.closeNow()
		}); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := f.OnDismissed(d.handle, func(k surface.Dismissal) {
		if d.corr.Dismiss(fromSurface(k)) {
			d.closeNow()
		}
	}); err != nil {
		result = multierror.Append(result, err)
	}
	if result.ErrorOrNil() != nil {
		return result
	}
	if timeout > 0 {
		reg, handle := d.host.Registry, d.handle
		d.timer = uithread.AfterFunc(d.host.UI, timeout, func() {
			if !reg.IsOpen(handle) {
				return
			}
			d.corr.Dismiss(DismissTimeout)
			d.closeNow()
		})
	}
	return nil
}

// closed runs on the UI thread when the surface goes away for any reason.
func (d *Dialog) closed() {
	d.timer.Stop()
	if d.corr != nil {
		d.corr.Dismiss(DismissCloseBox)
	}
}

func (d *Dialog) closeNow() {
	if err := d.host.Factory.CloseSurface(d.handle); err != nil {
		log.Printf("Dialog: close %s: %v", d.handle, err)
	}
}

// Handle identifies the dialog's surface.
func (d *Dialog) Handle() surface.Handle { return d.handle }

// Wait blocks the caller until the dialog closes or ctx ends. It must not be
// called from the UI thread.
func (d *Dialog) Wait(ctx context.Context) (surface.Result, error) {
	err := d.host.Registry.Wait(ctx, d.handle)
	return d.record.Snapshot(), err
}

// Result is the dialog's result so far.
func (d *Dialog) Result() surface.Result { return d.record.Snapshot() }

// Close dismisses the dialog as if its close box were used.
func (d *Dialog) Close() error {
	reg := d.host.Registry
	return d.host.UI.Post(func() {
		if reg.IsOpen(d.handle) {
			d.closeNow()
		}
	})
}

// Controls enumerates the dialog's visual tree.
func (d *Dialog) Controls(ctx context.Context) ([]surface.Control, error) {
	var controls []surface.Control
	err := d.host.Call(ctx, func() {
		controls = d.host.Registry.EnumerateControls(d.handle)
	})
	return controls, err
}

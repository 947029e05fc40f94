// Package fyneui materializes surfaces as fyne windows.
package fyneui

import (
	"fmt"
	"image/color"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"notify-shell/src/surface"
)

type window struct {
	win      fyne.Window
	spec     surface.Spec
	title    *canvas.Text
	message  *widget.Label
	bar      *widget.ProgressBar
	infinite *widget.ProgressBarInfinite
	buttons  []*widget.Button

	onButton  map[int]func()
	fired     map[int]bool
	onClosed  []func()
	onDismiss func(surface.Dismissal)
	closed    bool
}

// Factory implements surface.Factory and surface.ProgressView over a fyne app.
// Every method must run on the fyne main goroutine.
type Factory struct {
	app     fyne.App
	mu      sync.Mutex
	windows map[surface.Handle]*window
}

// New returns a factory creating windows in a.
func New(a fyne.App) *Factory {
	return &Factory{app: a, windows: make(map[surface.Handle]*window)}
}

func (f *Factory) CreateSurface(spec surface.Spec) (surface.Handle, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	w := &window{
		spec:     spec,
		onButton: make(map[int]func()),
		fired:    make(map[int]bool),
	}
	w.win = f.newWindow(spec)
	h := surface.NewHandle()
	w.win.SetContent(f.build(h, w))
	w.win.Resize(fyne.NewSize(float32(spec.Width), float32(spec.Height)))
	w.win.SetFixedSize(true)
	if spec.Position == surface.MiddleCenter {
		w.win.CenterOnScreen()
	}
	if spec.Topmost || spec.Taskbar != surface.TaskbarVisible {
		log.Printf("UI: %s topmost=%v taskbar=%d are advisory", h, spec.Topmost, spec.Taskbar)
	}
	w.win.SetOnClosed(func() { f.fireClosed(h) })
	w.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyReturn, fyne.KeyEnter:
			f.dismiss(h, surface.DismissAccept)
		case fyne.KeyEscape:
			f.dismiss(h, surface.DismissReject)
		}
	})

	f.mu.Lock()
	f.windows[h] = w
	f.mu.Unlock()
	w.win.Show()
	return h, nil
}

func (f *Factory) newWindow(spec surface.Spec) fyne.Window {
	if spec.Chrome == surface.ChromeNone {
		if desk, ok := f.app.(desktop.App); ok {
			return desk.CreateSplashWindow()
		}
	}
	return f.app.NewWindow(spec.Title)
}

func (f *Factory) build(h surface.Handle, w *window) fyne.CanvasObject {
	spec := w.spec
	bg := canvas.NewRectangle(orDefault(spec.Colors.Background, color.White))
	if spec.Colors.Border != nil {
		bg.StrokeColor = spec.Colors.Border
		bg.StrokeWidth = 1
	}

	w.title = canvas.NewText(spec.Title, orDefault(spec.Accent, orDefault(spec.Colors.Text, color.Black)))
	w.title.TextStyle = fyne.TextStyle{Bold: true}
	w.title.TextSize = 16
	w.message = widget.NewLabel(spec.Message)
	w.message.Wrapping = fyne.TextWrapWord

	body := container.NewVBox(w.title, w.message)
	if spec.Kind == surface.KindProgress {
		if spec.Indeterminate {
			w.infinite = widget.NewProgressBarInfinite()
			body.Add(w.infinite)
		} else {
			w.bar = widget.NewProgressBar()
			body.Add(w.bar)
		}
	}
	if len(spec.Buttons) > 0 {
		row := container.NewHBox(layout.NewSpacer())
		for i, b := range spec.Buttons {
			i := i
			btn := widget.NewButton(b.Label, func() { f.activate(h, i) })
			if b.Primary {
				btn.Importance = widget.HighImportance
			}
			if !b.Enabled {
				btn.Disable()
			}
			w.buttons = append(w.buttons, btn)
			row.Add(btn)
		}
		body.Add(row)
	}
	return container.NewStack(bg, container.NewPadded(body))
}

func orDefault(c, def color.Color) color.Color {
	if c == nil {
		return def
	}
	return c
}

func (f *Factory) lookup(h surface.Handle) (*window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return nil, fmt.Errorf("%s: %w", h, surface.ErrHandleNotFound)
	}
	return w, nil
}

func (f *Factory) CloseSurface(h surface.Handle) error {
	f.mu.Lock()
	w, ok := f.windows[h]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	f.fireClosed(h)
	w.win.Close()
	return nil
}

// fireClosed runs the close callbacks once, whichever path closed the window.
func (f *Factory) fireClosed(h surface.Handle) {
	f.mu.Lock()
	w, ok := f.windows[h]
	if !ok || w.closed {
		f.mu.Unlock()
		return
	}
	w.closed = true
	callbacks := w.onClosed
	w.onClosed = nil
	delete(f.windows, h)
	f.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

func (f *Factory) OnSurfaceClosed(h surface.Handle, fn func()) error {
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	f.mu.Lock()
	w.onClosed = append(w.onClosed, fn)
	f.mu.Unlock()
	return nil
}

func (f *Factory) OnButtonActivated(h surface.Handle, index int, fn func()) error {
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(w.buttons) {
		return fmt.Errorf("button %d out of range", index)
	}
	f.mu.Lock()
	w.onButton[index] = fn
	f.mu.Unlock()
	return nil
}

func (f *Factory) OnDismissed(h surface.Handle, fn func(surface.Dismissal)) error {
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	f.mu.Lock()
	w.onDismiss = fn
	f.mu.Unlock()
	return nil
}

func (f *Factory) activate(h surface.Handle, i int) {
	f.mu.Lock()
	w, ok := f.windows[h]
	if !ok || w.closed || w.fired[i] {
		f.mu.Unlock()
		return
	}
	fn := w.onButton[i]
	w.fired[i] = true
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *Factory) dismiss(h surface.Handle, d surface.Dismissal) {
	f.mu.Lock()
	var fn func(surface.Dismissal)
	if w, ok := f.windows[h]; ok && !w.closed {
		fn = w.onDismiss
	}
	f.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}

func (f *Factory) EnumerateVisualTree(h surface.Handle) ([]surface.Control, error) {
	w, err := f.lookup(h)
	if err != nil {
		return nil, err
	}
	var out []surface.Control
	var walk func(o fyne.CanvasObject)
	walk = func(o fyne.CanvasObject) {
		switch v := o.(type) {
		case *fyne.Container:
			for _, child := range v.Objects {
				walk(child)
			}
		case *canvas.Text:
			if v == w.title {
				out = append(out, surface.Control{Name: "Title", Kind: "Text", Value: v.Text, Enabled: true, Visible: v.Visible()})
			}
		case *widget.Label:
			if v == w.message {
				out = append(out, surface.Control{Name: "Message", Kind: "Label", Value: v.Text, Enabled: true, Visible: v.Visible()})
			}
		case *widget.ProgressBar:
			out = append(out, surface.Control{Name: "Progress", Kind: "ProgressBar", Value: int(v.Value * 100), Enabled: true, Visible: v.Visible()})
		case *widget.ProgressBarInfinite:
			out = append(out, surface.Control{Name: "Progress", Kind: "ProgressBar", Enabled: true, Visible: v.Visible(),
				Properties: map[string]any{"indeterminate": true}})
		case *widget.Button:
			for i, b := range w.buttons {
				if b == v {
					out = append(out, surface.Control{
						Name:       fmt.Sprintf("Button%d", i),
						Kind:       "Button",
						Value:      v.Text,
						Enabled:    !v.Disabled(),
						Visible:    v.Visible(),
						Properties: map[string]any{"primary": v.Importance == widget.HighImportance},
					})
				}
			}
		}
	}
	walk(w.win.Content())
	return out, nil
}

func (f *Factory) SetProgress(h surface.Handle, percent int) error {
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	if w.bar == nil {
		return nil
	}
	w.bar.SetValue(float64(percent) / 100)
	return nil
}

func (f *Factory) SetStatus(h surface.Handle, text string) error {
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	w.message.SetText(text)
	return nil
}

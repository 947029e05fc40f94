package fyneui

import (
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"notify-shell/src/uithread"
)

// Dispatcher posts work onto the fyne main goroutine.
type Dispatcher struct {
	stopped atomic.Bool
}

// Post queues fn with fyne.Do. After Stop it returns uithread.ErrStopped.
func (d *Dispatcher) Post(fn func()) error {
	if d.stopped.Load() {
		return uithread.ErrStopped
	}
	fyne.Do(fn)
	return nil
}

// Stop refuses further work; call it once the fyne app has quit.
func (d *Dispatcher) Stop() { d.stopped.Store(true) }

// NewApp creates the fyne application, with a stable ID when one is given.
func NewApp(id string) fyne.App {
	if id == "" {
		return app.New()
	}
	return app.NewWithID(id)
}

// SendNative returns a sender for OS-level notifications through a.
func SendNative(a fyne.App) func(title, message string) error {
	return func(title, message string) error {
		a.SendNotification(fyne.NewNotification(title, message))
		return nil
	}
}

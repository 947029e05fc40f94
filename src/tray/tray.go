// Package tray puts the resident host in the system tray.
package tray

import (
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Actions are the menu callbacks. They run on the fyne main goroutine and
// should hand slow work to a goroutine.
type Actions struct {
	CloseAll func()
	Describe func()
	Quit     func()
}

// Tray is the installed tray menu.
type Tray struct {
	mu     sync.Mutex
	menu   *fyne.Menu
	status *fyne.MenuItem
}

// Install adds the tray icon and menu. It returns nil when the platform has no tray.
func Install(a fyne.App, title string, actions Actions) *Tray {
	a.SetIcon(Icon)
	desk, ok := a.(desktop.App)
	if !ok {
		log.Println("Tray icon not supported on this platform")
		return nil
	}
	t := &Tray{status: fyne.NewMenuItem("Starting...", nil)}
	t.status.Disabled = true
	t.menu = fyne.NewMenu(title,
		t.status,
		fyne.NewMenuItemSeparator(),
		item("Close all notifications", actions.CloseAll),
		item("Open surfaces", actions.Describe),
		fyne.NewMenuItemSeparator(),
		item("Quit", actions.Quit),
	)
	desk.SetSystemTrayMenu(t.menu)
	desk.SetSystemTrayIcon(Icon)
	return t
}

func item(label string, action func()) *fyne.MenuItem {
	if action == nil {
		action = func() {}
	}
	return fyne.NewMenuItem(label, action)
}

// SetStatus replaces the informational first line of the menu. Call it on
// the fyne main goroutine.
func (t *Tray) SetStatus(text string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.status.Label = text
	t.mu.Unlock()
	t.menu.Refresh()
}

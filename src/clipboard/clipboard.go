package clipboard

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	writeMu  sync.Mutex
	initOnce sync.Once
	initErr  error

	// swapped in tests
	initClipboard = clipboard.Init
	writeText     = func(b []byte) { clipboard.Write(clipboard.FmtText, b) }
)

// Init prepares the system clipboard. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		if err := initClipboard(); err != nil {
			initErr = fmt.Errorf("clipboard unavailable: %w", err)
		}
	})
	return initErr
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	if err := Init(); err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	writeText([]byte(text))
	return nil
}

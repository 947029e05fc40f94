package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Combo is a parsed hotkey such as "Ctrl+Alt+D".
type Combo struct {
	Spec string
	keys []key
}

type key struct {
	name     string
	rawcodes []uint16
}

// Parse converts a hotkey string to the rawcodes each part may arrive as.
func Parse(spec string) (Combo, error) {
	c := Combo{Spec: spec}
	for _, name := range parseHotkey(spec) {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return Combo{}, fmt.Errorf("hotkey %q: unknown key %q", spec, name)
		}
		c.keys = append(c.keys, key{name: name, rawcodes: codes})
	}
	if len(c.keys) == 0 {
		return Combo{}, fmt.Errorf("hotkey %q: no keys", spec)
	}
	return c, nil
}

// matcher tracks pressed keys and reports when the whole combination is down.
type matcher struct {
	mu      sync.Mutex
	combo   Combo
	pressed []bool
}

func newMatcher(c Combo) *matcher {
	return &matcher{combo: c, pressed: make([]bool, len(c.keys))}
}

// feed applies one key event and reports whether the combination fired.
func (m *matcher) feed(down bool, rawcode uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, k := range m.combo.keys {
		for _, rc := range k.rawcodes {
			if rc == rawcode {
				m.pressed[i] = down
			}
		}
	}
	if !down {
		return false
	}
	for _, p := range m.pressed {
		if !p {
			return false
		}
	}
	for i := range m.pressed {
		m.pressed[i] = false
	}
	return true
}

// Listen registers a global hotkey and calls callback from the hook goroutine
// each time it is pressed. The returned stop function ends the hook.
func Listen(spec string, callback func()) (func(), error) {
	combo, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	m := newMatcher(combo)
	evChan := gohook.Start()
	if evChan == nil {
		return nil, fmt.Errorf("hotkey %q: hook unavailable", spec)
	}
	log.Printf("Hotkey listener configured for: %s", spec)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyUp {
				continue
			}
			if m.feed(ev.Kind == gohook.KeyDown, ev.Rawcode) {
				log.Printf("Hotkey activated: %s", spec)
				if callback != nil {
					callback()
				}
			}
		}
		log.Printf("Hotkey event channel closed")
	}()

	var once sync.Once
	return func() { once.Do(gohook.End) }, nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(spec string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(spec), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super", "meta":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

var specialKeys = map[string][]uint16{
	"ctrl":      {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":       {164, 165}, // VK_LMENU, VK_RMENU
	"shift":     {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":       {91, 92},   // VK_LWIN, VK_RWIN
	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pagedown":  {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
func keyNameToRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))
	if codes, ok := specialKeys[name]; ok {
		return codes
	}
	if len(name) == 1 {
		switch c := name[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 && name == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 is 112
	}
	return nil
}

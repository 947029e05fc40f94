//go:build !windows

package theme

import (
	"os"
	"strings"
)

// systemMode honours the GTK_THEME ":dark" variant convention; anything else is light.
func systemMode() (Mode, error) {
	if strings.HasSuffix(strings.ToLower(os.Getenv("GTK_THEME")), ":dark") {
		return ModeDark, nil
	}
	return ModeLight, nil
}

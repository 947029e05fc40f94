//go:build windows

package theme

import (
	"golang.org/x/sys/windows/registry"
)

const personalizeKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\Themes\Personalize`

// systemMode reads AppsUseLightTheme from the current user's hive; 0 means dark.
func systemMode() (Mode, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, personalizeKey, registry.QUERY_VALUE)
	if err != nil {
		return ModeLight, err
	}
	defer k.Close()

	v, _, err := k.GetIntegerValue("AppsUseLightTheme")
	if err != nil {
		return ModeLight, err
	}
	if v == 0 {
		return ModeDark, nil
	}
	return ModeLight, nil
}

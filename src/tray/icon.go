package tray

import (
	_ "embed"

	"fyne.io/fyne/v2"
)

//go:embed icon.svg
var iconSVG []byte

// Icon is the tray and application icon.
var Icon = fyne.NewStaticResource("notify-shell.svg", iconSVG)

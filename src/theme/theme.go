package theme

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned for accent strings that are not hex colors.
var ErrInvalidColor = errors.New("invalid color")

// Mode selects a palette.
type Mode string

const (
	ModeAuto  Mode = "Auto"
	ModeLight Mode = "Light"
	ModeDark  Mode = "Dark"
)

// ParseMode accepts auto/light/dark in any case. Unknown values mean Auto.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light":
		return ModeLight
	case "dark":
		return ModeDark
	default:
		return ModeAuto
	}
}

// Type is the notification category; it picks the accent color.
type Type string

const (
	Info     Type = "Info"
	Success  Type = "Success"
	Warning  Type = "Warning"
	Error    Type = "Error"
	Question Type = "Question"
)

// ParseType maps a user string to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return Info, nil
	case "success":
		return Success, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	case "question":
		return Question, nil
	}
	return Info, fmt.Errorf("unknown notification type %q", s)
}

// Palette is the full set of colors surfaces are painted with.
type Palette struct {
	Mode             Mode
	Background       color.NRGBA
	Surface          color.NRGBA
	OnSurface        color.NRGBA
	OnSurfaceVariant color.NRGBA
	Primary          color.NRGBA
	OnPrimary        color.NRGBA
	Success          color.NRGBA
	Warning          color.NRGBA
	Error            color.NRGBA
	Info             color.NRGBA
	Border           color.NRGBA
}

func rgb(r, g, b uint8) color.NRGBA { return color.NRGBA{R: r, G: g, B: b, A: 0xff} }

// Light returns the light palette.
func Light() Palette {
	return Palette{
		Mode:             ModeLight,
		Background:       rgb(0xff, 0xff, 0xff), // White
		Surface:          rgb(0xf5, 0xf5, 0xf5), // WhiteSmoke
		OnSurface:        rgb(0x00, 0x00, 0x00),
		OnSurfaceVariant: rgb(0xa9, 0xa9, 0xa9), // DarkGray
		Primary:          rgb(0x1e, 0x90, 0xff), // DodgerBlue
		OnPrimary:        rgb(0xff, 0xff, 0xff),
		Success:          rgb(0x00, 0x80, 0x00), // Green
		Warning:          rgb(0xff, 0x8c, 0x00), // DarkOrange
		Error:            rgb(0xdc, 0x14, 0x3c), // Crimson
		Info:             rgb(0x41, 0x69, 0xe1), // RoyalBlue
		Border:           rgb(0xd3, 0xd3, 0xd3), // LightGray
	}
}

// Dark returns the dark palette.
func Dark() Palette {
	return Palette{
		Mode:             ModeDark,
		Background:       rgb(32, 32, 32),
		Surface:          rgb(48, 48, 48),
		OnSurface:        rgb(0xff, 0xff, 0xff),
		OnSurfaceVariant: rgb(0xd3, 0xd3, 0xd3), // LightGray
		Primary:          rgb(0x87, 0xce, 0xeb), // SkyBlue
		OnPrimary:        rgb(0x00, 0x00, 0x00),
		Success:          rgb(0x90, 0xee, 0x90), // LightGreen
		Warning:          rgb(0xff, 0xa5, 0x00), // Orange
		Error:            rgb(0xf0, 0x80, 0x80), // LightCoral
		Info:             rgb(0xad, 0xd8, 0xe6), // LightBlue
		Border:           rgb(64, 64, 64),
	}
}

// detectSystem is swapped in tests.
var detectSystem = systemMode

// DetectSystem reports the OS light/dark preference, falling back to Light.
func DetectSystem() Mode {
	m, err := detectSystem()
	if err != nil {
		log.Printf("Theme: system detection failed, using Light: %v", err)
		return ModeLight
	}
	return m
}

// Resolve returns the palette for mode, detecting the OS preference for Auto.
func Resolve(mode Mode) Palette {
	if mode == ModeAuto || mode == "" {
		mode = DetectSystem()
	}
	if mode == ModeDark {
		return Dark()
	}
	return Light()
}

// Accent is the type-specific highlight color.
func (p Palette) Accent(t Type) color.NRGBA {
	switch t {
	case Success:
		return p.Success
	case Warning:
		return p.Warning
	case Error:
		return p.Error
	case Question:
		return p.Primary
	default:
		return p.Info
	}
}

// ParseHex reads #rrggbb or #rgb; the leading # is optional.
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return rgb(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

// WithAccent returns p with its primary color replaced by accent. An empty
// accent leaves p unchanged.
func (p Palette) WithAccent(accent string) (Palette, error) {
	if strings.TrimSpace(accent) == "" {
		return p, nil
	}
	c, err := ParseHex(accent)
	if err != nil {
		return p, err
	}
	p.Primary = c
	return p, nil
}

// Hex formats c as #rrggbb.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Summary is the JSON-friendly view of a palette.
type Summary struct {
	Mode   Mode              `json:"mode"`
	Colors map[string]string `json:"colors"`
}

// Summarize renders p for output.
func (p Palette) Summarize() Summary {
	return Summary{
		Mode: p.Mode,
		Colors: map[string]string{
			"background":       Hex(p.Background),
			"surface":          Hex(p.Surface),
			"onSurface":        Hex(p.OnSurface),
			"onSurfaceVariant": Hex(p.OnSurfaceVariant),
			"primary":          Hex(p.Primary),
			"onPrimary":        Hex(p.OnPrimary),
			"success":          Hex(p.Success),
			"warning":          Hex(p.Warning),
			"error":            Hex(p.Error),
			"info":             Hex(p.Info),
			"border":           Hex(p.Border),
		},
	}
}

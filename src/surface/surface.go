// Package surface defines the live-window vocabulary shared by the registry,
// dialogs, progress sessions and the toolkit-backed UI factory.
package surface

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/google/uuid"
)

var (
	ErrHandleNotFound    = errors.New("surface not found")
	ErrSurfaceCreation   = errors.New("surface creation failed")
	ErrCloseFailed       = errors.New("surface close failed")
	ErrAlreadyRegistered = errors.New("surface already registered")
)

// Handle identifies one live surface. Only identity matters.
type Handle string

// NewHandle returns a fresh, unique handle.
func NewHandle() Handle { return Handle(uuid.NewString()) }

func (h Handle) String() string { return string(h) }

// Kind is the family a surface belongs to.
type Kind string

const (
	KindToast    Kind = "toast"
	KindDialog   Kind = "dialog"
	KindProgress Kind = "progress"
)

// Chrome selects the window decorations.
type Chrome int

const (
	ChromeDefault Chrome = iota
	ChromeNone
	ChromeMinimizeOnly
	ChromeCloseOnly
)

// Taskbar selects taskbar presence.
type Taskbar int

const (
	TaskbarVisible Taskbar = iota
	TaskbarHidden
	TaskbarIconOnly
)

// Position is an advisory screen anchor.
type Position string

const (
	TopLeft      Position = "TopLeft"
	TopCenter    Position = "TopCenter"
	TopRight     Position = "TopRight"
	MiddleLeft   Position = "MiddleLeft"
	MiddleCenter Position = "MiddleCenter"
	MiddleRight  Position = "MiddleRight"
	BottomLeft   Position = "BottomLeft"
	BottomCenter Position = "BottomCenter"
	BottomRight  Position = "BottomRight"
	Custom       Position = "Custom"
)

// Colors carries the theme colors a surface is painted with.
type Colors struct {
	Background color.Color
	Surface    color.Color
	Text       color.Color
	SubText    color.Color
	Border     color.Color
}

// ButtonSpec is the visual part of a button; its meaning lives with the caller.
type ButtonSpec struct {
	Label   string
	Primary bool
	Enabled bool
}

// Spec is the declarative description handed to a Factory.
type Spec struct {
	Kind          Kind
	Title         string
	Message       string
	Accent        color.Color
	Colors        Colors
	Buttons       []ButtonSpec
	Width         int
	Height        int
	Chrome        Chrome
	Taskbar       Taskbar
	Topmost       bool
	Position      Position
	Indeterminate bool
	Cancellable   bool
}

// Validate rejects descriptions no factory could materialize.
func (s Spec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", s.Width, s.Height)
	}
	if s.Kind == KindDialog && s.Title == "" && s.Message == "" {
		return errors.New("dialog needs a title or a message")
	}
	return nil
}

// Control is a snapshot of one element of a surface's visual tree.
type Control struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Value      any            `json:"value,omitempty"`
	Enabled    bool           `json:"enabled"`
	Visible    bool           `json:"visible"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Dismissal is a non-button way of leaving a surface.
type Dismissal int

const (
	// DismissAccept is the Enter-key path.
	DismissAccept Dismissal = iota
	// DismissReject is the Escape-key path.
	DismissReject
)

// Factory materializes surfaces. Every method must run on the UI thread.
type Factory interface {
	CreateSurface(spec Spec) (Handle, error)
	// CloseSurface is idempotent.
	CloseSurface(h Handle) error
	// OnSurfaceClosed registers a callback fired exactly once when h closes.
	OnSurfaceClosed(h Handle, fn func()) error
	// OnButtonActivated registers a callback for button index on h.
	OnButtonActivated(h Handle, index int, fn func()) error
	// OnDismissed registers a callback for keyboard dismissal of h.
	OnDismissed(h Handle, fn func(Dismissal)) error
	EnumerateVisualTree(h Handle) ([]Control, error)
}

// ProgressView is implemented by factories able to show progress surfaces.
type ProgressView interface {
	SetProgress(h Handle, percent int) error
	SetStatus(h Handle, text string) error
}

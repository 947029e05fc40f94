// Package toast shows short-lived, buttonless notifications.
package toast

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"notify-shell/src/dialog"
	"notify-shell/src/host"
	"notify-shell/src/logutil"
	"notify-shell/src/surface"
	"notify-shell/src/theme"
)

var (
	ErrRateLimited       = errors.New("too many notifications, dropped")
	ErrNativeUnavailable = errors.New("native notifications unavailable")
)

// NativeSender delivers an OS-level notification.
type NativeSender func(title, message string) error

// Options configures a Notifier. A zero DefaultDuration means toasts stay
// until closed.
type Options struct {
	Rate            float64
	Burst           int
	DefaultDuration time.Duration
	Width           int
	Height          int
	Native          NativeSender
}

// Request describes one toast. Duration 0 uses the notifier default; Sticky
// disables auto-dismiss.
type Request struct {
	Title    string           `json:"title"`
	Message  string           `json:"message"`
	Type     theme.Type       `json:"type,omitempty"`
	Duration time.Duration    `json:"duration_ns,omitempty"`
	Sticky   bool             `json:"sticky,omitempty"`
	Position surface.Position `json:"position,omitempty"`
	Native   bool             `json:"native,omitempty"`
	Accent   string           `json:"accent,omitempty"`
}

// Notifier shows toasts on a host, dropping bursts over its rate limit.
type Notifier struct {
	host    *host.Host
	limiter *rate.Limiter
	opts    Options
}

// New builds a notifier for h.
func New(h *host.Host, opts Options) *Notifier {
	if opts.Rate <= 0 {
		opts.Rate = 4
	}
	if opts.Burst <= 0 {
		opts.Burst = 8
	}
	if opts.Width <= 0 {
		opts.Width = 350
	}
	if opts.Height <= 0 {
		opts.Height = 120
	}
	return &Notifier{
		host:    h,
		limiter: rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		opts:    opts,
	}
}

// Show displays req. Native toasts are handed to the OS and return a nil dialog.
func (n *Notifier) Show(ctx context.Context, req Request) (*dialog.Dialog, error) {
	if !n.limiter.Allow() {
		log.Printf("Toast: dropped %q, rate limited", logutil.Sanitize(req.Title))
		return nil, ErrRateLimited
	}
	if req.Type == "" {
		req.Type = theme.Info
	}
	if req.Native {
		if n.opts.Native == nil {
			return nil, ErrNativeUnavailable
		}
		return nil, n.opts.Native(req.Title, req.Message)
	}

	timeout := req.Duration
	if timeout <= 0 {
		timeout = n.opts.DefaultDuration
	}
	if req.Sticky {
		timeout = 0
	}
	position := req.Position
	if position == "" {
		position = surface.TopRight
	}
	return dialog.Show(ctx, n.host, dialog.Request{
		Kind:     surface.KindToast,
		Title:    req.Title,
		Message:  req.Message,
		Type:     req.Type,
		Timeout:  timeout,
		Width:    n.opts.Width,
		Height:   n.opts.Height,
		Position: position,
		Chrome:   surface.ChromeNone,
		Taskbar:  surface.TaskbarHidden,
		Topmost:  true,
		Accent:   req.Accent,
	})
}

// Quick shows message titled with the type name.
func (n *Notifier) Quick(ctx context.Context, t theme.Type, message string) (*dialog.Dialog, error) {
	if t == "" {
		t = theme.Info
	}
	return n.Show(ctx, Request{Title: string(t), Message: message, Type: t})
}

// Common shows one of the preset notifications. A non-empty custom message
// replaces the preset text.
func (n *Notifier) Common(ctx context.Context, name, custom string) (*dialog.Dialog, error) {
	p := LookupPreset(name)
	msg := p.Message
	if custom != "" {
		msg = custom
	}
	return n.Show(ctx, Request{Title: p.Title, Message: msg, Type: p.Type})
}

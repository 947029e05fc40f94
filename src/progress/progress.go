// Package progress drives one long-running progress surface through its
// lifecycle: Pending, Running, then exactly one of Completed, Cancelled or Failed.
package progress

import (
	"context"
	"log"
	"sync"
	"time"

	"notify-shell/src/host"
	"notify-shell/src/surface"
	"notify-shell/src/uithread"
)

// State is the lifecycle position of a session.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateCancelled:
		return "Cancelled"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s >= StateCompleted }

// Request describes the surface to open.
type Request struct {
	Title         string           `json:"title"`
	Message       string           `json:"message,omitempty"`
	Indeterminate bool             `json:"indeterminate,omitempty"`
	Cancellable   bool             `json:"cancellable,omitempty"`
	Width         int              `json:"width,omitempty"`
	Height        int              `json:"height,omitempty"`
	Position      surface.Position `json:"position,omitempty"`
}

// Result is the externally visible outcome of a session.
type Result struct {
	State           State         `json:"state"`
	WasCompleted    bool          `json:"was_completed"`
	WasCancelled    bool          `json:"was_cancelled"`
	FinalPercentage int           `json:"final_percentage"`
	FinalMessage    string        `json:"final_message"`
	Err             string        `json:"error,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
}

// Failure is the result reported when a surface could not be opened at all.
func Failure(err error) Result {
	now := surface.Now()
	r := Result{State: StateFailed, StartTime: now, EndTime: now}
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

// Session is a live progress surface.
type Session struct {
	host          *host.Host
	view          surface.ProgressView
	handle        surface.Handle
	record        *surface.Record
	indeterminate bool

	mu           sync.Mutex
	state        State
	percent      int
	message      string
	wasCancelled bool
	err          error
	start        time.Time
	end          time.Time
	grace        *uithread.Timer
	done         chan struct{}
}

// Open shows a progress surface and registers it with h.
func Open(ctx context.Context, h *host.Host, req Request) (*Session, error) {
	s := &Session{
		host:          h,
		indeterminate: req.Indeterminate,
		message:       req.Message,
		start:         surface.Now(),
		done:          make(chan struct{}),
	}
	if v, ok := h.Factory.(surface.ProgressView); ok {
		s.view = v
	}

	spec := surface.Spec{
		Kind:          surface.KindProgress,
		Title:         req.Title,
		Message:       req.Message,
		Accent:        h.Palette().Primary,
		Colors:        h.Colors(),
		Width:         req.Width,
		Height:        req.Height,
		Chrome:        surface.ChromeCloseOnly,
		Taskbar:       surface.TaskbarVisible,
		Position:      req.Position,
		Indeterminate: req.Indeterminate,
		Cancellable:   req.Cancellable,
	}
	if spec.Width == 0 {
		spec.Width = 400
	}
	if spec.Height == 0 {
		spec.Height = 150
	}
	if spec.Position == "" {
		spec.Position = surface.MiddleCenter
	}
	if req.Cancellable {
		spec.Buttons = []surface.ButtonSpec{{Label: "Cancel", Enabled: true}}
	}

	var openErr error
	err := h.Call(ctx, func() {
		handle, rec, err := h.Open(spec, func(*surface.Record) { s.windowClosed() })
		if err != nil {
			openErr = err
			return
		}
		s.handle = handle
		s.record = rec
		if req.Cancellable {
			err := h.Factory.OnButtonActivated(handle, 0, func() {
				s.Cancel()
				if err := h.Factory.CloseSurface(handle); err != nil {
					log.Printf("Progress: close after cancel %s: %v", handle, err)
				}
			})
			if err != nil {
				log.Printf("Progress: cancel button not wired for %s: %v", handle, err)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if openErr != nil {
		return nil, openErr
	}
	return s, nil
}

// Handle identifies the session's surface.
func (s *Session) Handle() surface.Handle { return s.handle }

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update moves the bar and replaces the status text. An empty message keeps
// the previous one. Updates after a terminal state are ignored.
func (s *Session) Update(percent int, message string) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	if !s.indeterminate {
		p := clamp(percent)
		if p > s.percent {
			s.percent = p
		}
	}
	if message != "" {
		s.message = message
	}
	pct, msg := s.percent, s.message
	s.mu.Unlock()
	s.render(pct, msg)
}

// Complete finishes the session at 100% and closes the surface after the grace interval.
func (s *Session) Complete(finalMessage string) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.percent = 100
	if finalMessage != "" {
		s.message = finalMessage
	}
	s.finishLocked(StateCompleted)
	msg := s.message
	s.mu.Unlock()

	s.record.Resolve(surface.Terminal{Outcome: surface.OutcomeCompleted, ButtonIndex: -1})
	s.render(100, msg)

	handle, reg := s.handle, s.host.Registry
	timer := uithread.AfterFunc(s.host.UI, s.host.CompleteGrace(), func() {
		if !reg.IsOpen(handle) {
			return
		}
		if err := s.host.Factory.CloseSurface(handle); err != nil {
			log.Printf("Progress: grace close %s: %v", handle, err)
		}
	})
	s.mu.Lock()
	s.grace = timer
	s.mu.Unlock()
}

// Cancel marks the session cancelled. The surface stays up until closed.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.wasCancelled = true
	s.finishLocked(StateCancelled)
	s.mu.Unlock()
	s.record.Resolve(surface.Terminal{
		Outcome:      surface.OutcomeCancelled,
		ButtonID:     surface.SentinelCancelled,
		ButtonIndex:  -1,
		WasCancelled: true,
	})
}

// Fail marks the session failed with err. The surface stays up until closed.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.err = err
	s.finishLocked(StateFailed)
	s.mu.Unlock()
	s.record.Resolve(surface.Terminal{
		Outcome:     surface.OutcomeError,
		ButtonID:    surface.SentinelError,
		ButtonIndex: -1,
		Err:         err,
	})
}

// Close removes the surface now, cancelling a pending grace close.
func (s *Session) Close() error {
	s.mu.Lock()
	timer := s.grace
	s.grace = nil
	s.mu.Unlock()
	timer.Stop()

	handle, reg := s.handle, s.host.Registry
	return s.host.UI.Post(func() {
		if !reg.IsOpen(handle) {
			return
		}
		if err := s.host.Factory.CloseSurface(handle); err != nil {
			log.Printf("Progress: close %s: %v", handle, err)
		}
	})
}

// Result reports the session so far. Active sessions measure duration against now.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Result{
		State:           s.state,
		WasCompleted:    s.state == StateCompleted,
		WasCancelled:    s.wasCancelled,
		FinalPercentage: s.percent,
		FinalMessage:    s.message,
		StartTime:       s.start,
		EndTime:         s.end,
	}
	if s.err != nil {
		r.Err = s.err.Error()
	}
	if s.state.Terminal() {
		r.Duration = s.end.Sub(s.start)
	} else {
		r.Duration = surface.Now().Sub(s.start)
	}
	return r
}

// windowClosed runs on the UI thread when the surface goes away.
func (s *Session) windowClosed() {
	s.mu.Lock()
	timer := s.grace
	s.grace = nil
	if !s.state.Terminal() {
		s.wasCancelled = true
		s.finishLocked(StateCancelled)
	}
	s.mu.Unlock()
	timer.Stop()
}

func (s *Session) finishLocked(st State) {
	s.state = st
	s.end = surface.Now()
	close(s.done)
}

func (s *Session) render(percent int, message string) {
	if s.view == nil {
		return
	}
	handle, reg, view, indeterminate := s.handle, s.host.Registry, s.view, s.indeterminate
	err := s.host.UI.Post(func() {
		if !reg.IsOpen(handle) {
			return
		}
		if !indeterminate {
			if err := view.SetProgress(handle, percent); err != nil {
				log.Printf("Progress: set progress on %s: %v", handle, err)
			}
		}
		if err := view.SetStatus(handle, message); err != nil {
			log.Printf("Progress: set status on %s: %v", handle, err)
		}
	})
	if err != nil {
		log.Printf("Progress: update for %s dropped: %v", handle, err)
	}
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

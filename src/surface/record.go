package surface

import (
	"sync"
	"time"
)

// Now is the clock used for record timestamps. Tests stub it.
var Now = time.Now

// Outcome is the kind of result a surface ended with.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeButtonClicked
	OutcomeCancelled
	OutcomeTimedOut
	OutcomeError
	OutcomeCompleted
)

var outcomeNames = [...]string{
	OutcomePending:       "Pending",
	OutcomeButtonClicked: "ButtonClicked",
	OutcomeCancelled:     "Cancelled",
	OutcomeTimedOut:      "TimedOut",
	OutcomeError:         "Error",
	OutcomeCompleted:     "Completed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "Unknown"
	}
	return outcomeNames[o]
}

// MarshalText lets outcomes appear by name in JSON output.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Terminal reports whether o is a final outcome.
func (o Outcome) Terminal() bool { return o != OutcomePending }

const (
	// SentinelCancelled is the button id recorded when a surface closes without a cancel button.
	SentinelCancelled = "Cancelled"
	// SentinelTimeout is the button id recorded when a surface is dismissed by its timer.
	SentinelTimeout = "Timeout"
	// SentinelError is the button id recorded when a surface fails.
	SentinelError = "Error"
)

// Terminal describes the single final mutation applied to a Record.
type Terminal struct {
	Outcome      Outcome
	ButtonID     string
	ButtonIndex  int
	IsDefault    bool
	IsCancel     bool
	WasCancelled bool
	Err          error
}

// Result is a point-in-time copy of a Record.
type Result struct {
	Outcome         Outcome        `json:"outcome"`
	ButtonID        string         `json:"button_id,omitempty"`
	ButtonIndex     int            `json:"button_index"`
	IsDefault       bool           `json:"is_default"`
	IsCancel        bool           `json:"is_cancel"`
	ClickedAt       time.Time      `json:"clicked_at"`
	ControlValues   map[string]any `json:"control_values,omitempty"`
	WasCancelled    bool           `json:"was_cancelled"`
	OpenedAt        time.Time      `json:"opened_at"`
	DisplayDuration time.Duration  `json:"display_duration_ns"`
	Err             string         `json:"error,omitempty"`
}

// Record accumulates the outcome of one surface. It starts Pending and is
// resolved exactly once; later resolutions are ignored.
type Record struct {
	mu            sync.Mutex
	outcome       Outcome
	buttonID      string
	buttonIndex   int
	isDefault     bool
	isCancel      bool
	clickedAt     time.Time
	controlValues map[string]any
	wasCancelled  bool
	openedAt      time.Time
	duration      time.Duration
	err           error
	done          chan struct{}
}

// NewRecord returns a Pending record opened now.
func NewRecord() *Record {
	return &Record{
		outcome:       OutcomePending,
		buttonIndex:   -1,
		openedAt:      Now(),
		controlValues: make(map[string]any),
		done:          make(chan struct{}),
	}
}

// Resolve applies t if the record is still pending and reports whether it did.
func (r *Record) Resolve(t Terminal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome.Terminal() {
		return false
	}
	if !t.Outcome.Terminal() {
		return false
	}
	now := Now()
	r.outcome = t.Outcome
	r.buttonID = t.ButtonID
	r.buttonIndex = t.ButtonIndex
	r.isDefault = t.IsDefault
	r.isCancel = t.IsCancel
	r.wasCancelled = t.WasCancelled
	r.err = t.Err
	r.clickedAt = now
	r.duration = now.Sub(r.openedAt)
	close(r.done)
	return true
}

// SetControlValue records a named control value while the record is pending.
func (r *Record) SetControlValue(name string, v any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome.Terminal() {
		return false
	}
	r.controlValues[name] = v
	return true
}

// Outcome returns the current outcome.
func (r *Record) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// Done is closed once the record reaches a terminal outcome.
func (r *Record) Done() <-chan struct{} { return r.done }

// Snapshot copies the record. A pending record reports live elapsed time.
func (r *Record) Snapshot() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := Result{
		Outcome:      r.outcome,
		ButtonID:     r.buttonID,
		ButtonIndex:  r.buttonIndex,
		IsDefault:    r.isDefault,
		IsCancel:     r.isCancel,
		ClickedAt:    r.clickedAt,
		WasCancelled: r.wasCancelled,
		OpenedAt:     r.openedAt,
	}
	if len(r.controlValues) > 0 {
		res.ControlValues = make(map[string]any, len(r.controlValues))
		for k, v := range r.controlValues {
			res.ControlValues[k] = v
		}
	}
	if r.err != nil {
		res.Err = r.err.Error()
	}
	if r.outcome.Terminal() {
		res.DisplayDuration = r.duration
	} else {
		res.DisplayDuration = Now().Sub(r.openedAt)
	}
	return res
}

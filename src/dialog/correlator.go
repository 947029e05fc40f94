package dialog

import (
	"strings"

	"notify-shell/src/surface"
)

// Button describes one dialog button and what clicking it means.
type Button struct {
	ID        string `json:"id,omitempty"`
	Label     string `json:"label"`
	Result    string `json:"result,omitempty"`
	IsDefault bool   `json:"is_default,omitempty"`
	IsCancel  bool   `json:"is_cancel,omitempty"`
}

// Token is the value reported when the button is chosen.
func (b Button) Token() string {
	if b.Result != "" {
		return b.Result
	}
	return b.Label
}

// DefaultButtons is the set used when a dialog asks for none.
func DefaultButtons() []Button {
	return []Button{{ID: "ok_button", Label: "OK", Result: "OK", IsDefault: true}}
}

// ConfirmButtons is the Yes/No pair used by confirmations.
func ConfirmButtons() []Button {
	return []Button{
		{ID: "yes_button", Label: "Yes", Result: "Yes", IsDefault: true},
		{ID: "no_button", Label: "No", Result: "No", IsCancel: true},
	}
}

func normalize(buttons []Button) []Button {
	out := make([]Button, len(buttons))
	for i, b := range buttons {
		if b.Result == "" {
			b.Result = b.Label
		}
		if b.ID == "" {
			b.ID = strings.ToLower(strings.ReplaceAll(b.Label, " ", "_")) + "_button"
		}
		out[i] = b
	}
	return out
}

// DismissKind is how a dialog was left without a button click.
type DismissKind int

const (
	DismissAccept DismissKind = iota
	DismissReject
	DismissCloseBox
	DismissTimeout
)

func fromSurface(d surface.Dismissal) DismissKind {
	if d == surface.DismissAccept {
		return DismissAccept
	}
	return DismissReject
}

// Correlator maps UI events for one dialog onto its record. It does not
// touch the UI and is safe to call from the UI thread's callbacks.
type Correlator struct {
	record  *surface.Record
	buttons []Button
}

// NewCorrelator binds buttons to rec.
func NewCorrelator(rec *surface.Record, buttons []Button) *Correlator {
	return &Correlator{record: rec, buttons: buttons}
}

// Activate resolves the record with button i. Late or repeated activations
// report false.
func (c *Correlator) Activate(i int) bool {
	if i < 0 || i >= len(c.buttons) {
		return false
	}
	b := c.buttons[i]
	return c.record.Resolve(surface.Terminal{
		Outcome:      surface.OutcomeButtonClicked,
		ButtonID:     b.Token(),
		ButtonIndex:  i,
		IsDefault:    b.IsDefault,
		IsCancel:     b.IsCancel,
		WasCancelled: b.IsCancel,
	})
}

// Dismiss resolves the record for a non-button exit.
func (c *Correlator) Dismiss(kind DismissKind) bool {
	switch kind {
	case DismissAccept:
		i := c.index(func(b Button) bool { return b.IsDefault })
		if i < 0 {
			return false
		}
		return c.Activate(i)
	case DismissTimeout:
		return c.record.Resolve(surface.Terminal{
			Outcome:      surface.OutcomeTimedOut,
			ButtonID:     surface.SentinelTimeout,
			ButtonIndex:  -1,
			WasCancelled: true,
		})
	default:
		i := c.index(func(b Button) bool { return b.IsCancel })
		if i < 0 {
			return c.record.Resolve(surface.Terminal{
				Outcome:      surface.OutcomeCancelled,
				ButtonID:     surface.SentinelCancelled,
				ButtonIndex:  -1,
				WasCancelled: true,
			})
		}
		b := c.buttons[i]
		return c.record.Resolve(surface.Terminal{
			Outcome:      surface.OutcomeCancelled,
			ButtonID:     b.Token(),
			ButtonIndex:  i,
			IsDefault:    b.IsDefault,
			IsCancel:     true,
			WasCancelled: true,
		})
	}
}

func (c *Correlator) index(match func(Button) bool) int {
	for i, b := range c.buttons {
		if match(b) {
			return i
		}
	}
	return -1
}

// Package messages holds the requests and updates exchanged between the CLI
// client and the resident host.
package messages

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"notify-shell/src/dialog"
	"notify-shell/src/progress"
	"notify-shell/src/theme"
	"notify-shell/src/toast"
)

// Message is implemented by everything sent on the wire.
type Message interface {
	Type() string
}

// Request operations.
const (
	OpToast    = "toast"
	OpQuick    = "quick"
	OpCommon   = "common"
	OpDialog   = "dialog"
	OpConfirm  = "confirm"
	OpProgress = "progress"
	OpList     = "list"
	OpCloseAll = "close-all"
	OpTheme    = "theme"
	OpSelfTest = "test"
)

// QuickArgs is a one-line notification titled by its type.
type QuickArgs struct {
	Type    theme.Type `json:"type"`
	Message string     `json:"message"`
}

// CommonArgs selects a preset notification.
type CommonArgs struct {
	Name   string `json:"name"`
	Custom string `json:"custom,omitempty"`
}

// Request is one client invocation. Exactly the field matching Op is used.
// Theme and Accent apply to the theme and test ops; ShowAll makes the test op
// display sample notifications.
type Request struct {
	Op       string            `json:"op"`
	Wait     bool              `json:"wait,omitempty"`
	Toast    *toast.Request    `json:"toast,omitempty"`
	Quick    *QuickArgs        `json:"quick,omitempty"`
	Common   *CommonArgs       `json:"common,omitempty"`
	Dialog   *dialog.Request   `json:"dialog,omitempty"`
	Progress *progress.Request `json:"progress,omitempty"`
	Theme    string            `json:"theme,omitempty"`
	Accent   string            `json:"accent,omitempty"`
	ShowAll  bool              `json:"show_all,omitempty"`
}

func (r Request) Type() string { return r.Op }

// Validate checks that the payload for Op is present.
func (r Request) Validate() error {
	missing := func(what string) error { return fmt.Errorf("%s request without %s payload", r.Op, what) }
	switch r.Op {
	case OpToast:
		if r.Toast == nil {
			return missing("toast")
		}
	case OpQuick:
		if r.Quick == nil {
			return missing("quick")
		}
	case OpCommon:
		if r.Common == nil {
			return missing("common")
		}
	case OpDialog, OpConfirm:
		if r.Dialog == nil {
			return missing("dialog")
		}
	case OpProgress:
		if r.Progress == nil {
			return missing("progress")
		}
	case OpList, OpCloseAll, OpTheme, OpSelfTest:
	case "":
		return errors.New("request without op")
	default:
		return fmt.Errorf("unknown op %q", r.Op)
	}
	return nil
}

// Update kinds streamed after a progress request.
const (
	UpdateProgress = "update"
	UpdateComplete = "complete"
	UpdateFail     = "fail"
	UpdateCancel   = "cancel"
)

// Update is one progress step sent by the client.
type Update struct {
	Kind    string `json:"kind"`
	Percent int    `json:"percent,omitempty"`
	Message string `json:"message,omitempty"`
}

func (u Update) Type() string { return u.Kind }

// ParseUpdate reads one human-typed progress line:
//
//	<percent> [message]
//	done [message]
//	fail <message>
//	cancel
func ParseUpdate(line string) (Update, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Update{}, errors.New("empty progress line")
	}
	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(head) {
	case "done", "complete":
		return Update{Kind: UpdateComplete, Message: rest}, nil
	case "fail":
		if rest == "" {
			rest = "failed"
		}
		return Update{Kind: UpdateFail, Message: rest}, nil
	case "cancel":
		return Update{Kind: UpdateCancel}, nil
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(head, "%"))
	if err != nil {
		return Update{}, fmt.Errorf("bad progress line %q: want <percent> [message], done, fail or cancel", line)
	}
	return Update{Kind: UpdateProgress, Percent: pct, Message: rest}, nil
}

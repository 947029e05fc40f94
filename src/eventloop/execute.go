package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"

	"notify-shell/src/dialog"
	"notify-shell/src/host"
	"notify-shell/src/messages"
	"notify-shell/src/progress"
	"notify-shell/src/surface"
	"notify-shell/src/theme"
	"notify-shell/src/toast"
)

var (
	ErrClientGone = errors.New("client went away before finishing")
	ErrUnknownOp  = errors.New("unknown operation")
)

// Shown reports a toast that was displayed without waiting for it.
type Shown struct {
	Handle surface.Handle `json:"handle,omitempty"`
	Native bool           `json:"native,omitempty"`
}

// Execute runs one request against h. Progress requests consume updates
// until a terminal update arrives or the channel closes. It is shared by the
// resident host and the standalone CLI.
func Execute(ctx context.Context, h *host.Host, n *toast.Notifier, req messages.Request, updates <-chan messages.Update) (any, error) {
	if err := req.Validate(); err != nil {
		if req.Op != "" && !knownOp(req.Op) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
		}
		return nil, err
	}
	switch req.Op {
	case messages.OpToast:
		d, err := n.Show(ctx, *req.Toast)
		return shown(ctx, d, req.Toast.Native, req.Wait, err)
	case messages.OpQuick:
		d, err := n.Quick(ctx, req.Quick.Type, req.Quick.Message)
		return shown(ctx, d, false, req.Wait, err)
	case messages.OpCommon:
		d, err := n.Common(ctx, req.Common.Name, req.Common.Custom)
		return shown(ctx, d, false, req.Wait, err)
	case messages.OpDialog, messages.OpConfirm:
		dr := *req.Dialog
		if req.Op == messages.OpConfirm {
			if len(dr.Buttons) == 0 {
				dr.Buttons = dialog.ConfirmButtons()
			}
			if dr.Type == "" {
				dr.Type = theme.Question
			}
		}
		d, err := dialog.Show(ctx, h, dr)
		if err != nil {
			return nil, err
		}
		return d.Wait(ctx)
	case messages.OpProgress:
		return runProgress(ctx, h, *req.Progress, updates)
	case messages.OpList:
		return h.Describe(ctx)
	case messages.OpCloseAll:
		report, err := h.CloseAll(ctx)
		if report.Err != nil {
			log.Printf("Eventloop: close-all: %v", report.Err)
		}
		return report, err
	case messages.OpTheme:
		p, err := requestPalette(h, req)
		if err != nil {
			return nil, err
		}
		return p.Summarize(), nil
	case messages.OpSelfTest:
		return selfTest(ctx, h, n, req)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
}

func knownOp(op string) bool {
	switch op {
	case messages.OpToast, messages.OpQuick, messages.OpCommon, messages.OpDialog, messages.OpConfirm,
		messages.OpProgress, messages.OpList, messages.OpCloseAll, messages.OpTheme, messages.OpSelfTest:
		return true
	}
	return false
}

// requestPalette is the host palette, or the requested mode, with the
// requested accent applied.
func requestPalette(h *host.Host, req messages.Request) (theme.Palette, error) {
	p := h.Palette()
	if req.Theme != "" {
		p = theme.Resolve(theme.ParseMode(req.Theme))
	}
	return p.WithAccent(req.Accent)
}

func shown(ctx context.Context, d *dialog.Dialog, native, wait bool, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if d == nil {
		return Shown{Native: native}, nil
	}
	if wait {
		return d.Wait(ctx)
	}
	return Shown{Handle: d.Handle()}, nil
}

func runProgress(ctx context.Context, h *host.Host, req progress.Request, updates <-chan messages.Update) (any, error) {
	s, err := progress.Open(ctx, h, req)
	if err != nil {
		return progress.Failure(err), err
	}
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				s.Fail(ErrClientGone)
				closeSession(s)
				return s.Result(), nil
			}
			apply(s, u)
			if s.State().Terminal() {
				return finish(ctx, h, s)
			}
		case <-s.Done():
			closeSession(s)
			return s.Result(), nil
		case <-ctx.Done():
			s.Fail(ctx.Err())
			closeSession(s)
			return s.Result(), ctx.Err()
		}
	}
}

func apply(s *progress.Session, u messages.Update) {
	switch u.Kind {
	case messages.UpdateProgress:
		s.Update(u.Percent, u.Message)
	case messages.UpdateComplete:
		s.Complete(u.Message)
	case messages.UpdateFail:
		s.Fail(errors.New(u.Message))
	case messages.UpdateCancel:
		s.Cancel()
	default:
		log.Printf("Eventloop: ignoring progress update %q", u.Kind)
	}
}

// finish lets a completed surface linger for its grace interval; other
// terminal states close at once.
func finish(ctx context.Context, h *host.Host, s *progress.Session) (any, error) {
	if s.State() == progress.StateCompleted {
		if err := h.Registry.Wait(ctx, s.Handle()); err != nil {
			return s.Result(), err
		}
		return s.Result(), nil
	}
	closeSession(s)
	return s.Result(), nil
}

func closeSession(s *progress.Session) {
	if err := s.Close(); err != nil {
		log.Printf("Eventloop: close progress %s: %v", s.Handle(), err)
	}
}

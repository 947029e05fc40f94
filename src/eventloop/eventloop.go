package eventloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"notify-shell/src/config"
	"notify-shell/src/host"
	"notify-shell/src/hotkey"
	"notify-shell/src/messages"
	"notify-shell/src/singleinstance"
	"notify-shell/src/toast"
	"notify-shell/src/worker"
)

// ErrBusy is reported to clients when every worker is occupied.
var ErrBusy = errors.New("Busy, please retry")

// Loop is the single-threaded coordinator for delegated requests and the dismiss hotkey.
type Loop struct {
	host       *host.Host
	notifier   *toast.Notifier
	pool       *worker.Pool
	srv        singleinstance.Server
	dismissCh  chan struct{}
	stopHotkey func()
	onDismiss  func(closed int)
}

// connTarget answers a delegated client.
type connTarget struct {
	conn singleinstance.Conn
}

func (t connTarget) OnSuccess(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return t.conn.RespondError(fmt.Sprintf("encode result: %v", err))
	}
	return t.conn.RespondSuccess(body)
}

func (t connTarget) OnFailure(err error) error {
	if err == nil {
		return t.conn.RespondError("unknown error")
	}
	return t.conn.RespondError(err.Error())
}

// New creates a loop serving h. cfg may be nil.
func New(cfg *config.Config, h *host.Host, n *toast.Notifier) *Loop {
	workers := 16
	if cfg != nil && cfg.MaxConcurrent > 0 {
		workers = cfg.MaxConcurrent
	}
	return &Loop{
		host:      h,
		notifier:  n,
		pool:      worker.New(workers),
		srv:       singleinstance.NewServer(),
		dismissCh: make(chan struct{}, 4),
	}
}

// OnDismiss sets a callback run after each dismiss-all pass.
func (l *Loop) OnDismiss(fn func(closed int)) { l.onDismiss = fn }

// StartHotkey registers a global hotkey and posts dismiss-all events into the loop.
func (l *Loop) StartHotkey(combo string) error {
	if combo == "" {
		return nil
	}
	stop, err := hotkey.Listen(combo, l.DismissAll)
	if err != nil {
		return err
	}
	l.stopHotkey = stop
	return nil
}

// DismissAll asks the loop to close every open surface. It never blocks.
func (l *Loop) DismissAll() {
	select {
	case l.dismissCh <- struct{}{}:
	default:
	}
}

// Start binds the resident port. Run calls it when needed; calling it first
// lets the caller report a second instance before the UI starts.
func (l *Loop) Start(ctx context.Context) error {
	return l.srv.Start(ctx)
}

// Port is the bound resident port, or 0.
func (l *Loop) Port() int { return l.srv.Port() }

// Run serves client requests until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.srv.Start(ctx); err != nil {
		return err
	}
	if p := l.srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
	}
	defer func() {
		_ = l.srv.Close()
		if l.stopHotkey != nil {
			l.stopHotkey()
		}
		l.pool.Close()
	}()

	// Accept loop in background so dismiss events are never starved
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		defer close(reqCh)
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				return
			}
			select {
			case reqCh <- conn:
			case <-ctx.Done():
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.dismissCh:
			l.handleDismiss(ctx)
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		}
	}
}

func (l *Loop) handleDismiss(ctx context.Context) {
	go func() {
		report, err := l.host.CloseAll(ctx)
		if err != nil {
			log.Printf("handleDismiss: %v", err)
			return
		}
		log.Printf("handleDismiss: closed %d surface(s), %d failure(s)", report.Closed, report.Failed)
		if l.onDismiss != nil {
			l.onDismiss(report.Closed)
		}
	}()
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	reqCtx, cancel := context.WithCancel(ctx)
	// Queued jobs skipped at shutdown never run, so the conn closes with the request ctx.
	context.AfterFunc(reqCtx, func() { _ = conn.Close() })
	submitted := l.pool.Submit(reqCtx, func(jobCtx context.Context) {
		defer cancel()
		l.serve(jobCtx, conn)
	})
	if !submitted {
		st := l.pool.Stats()
		log.Printf("handleConn: busy (%d/%d workers, %d dropped), rejecting %s", st.Active, st.Workers, st.Dropped, conn.Request().Op)
		_ = connTarget{conn}.OnFailure(ErrBusy)
		cancel()
	}
}

func (l *Loop) serve(ctx context.Context, conn singleinstance.Conn) {
	req := conn.Request()
	var updates <-chan messages.Update
	if req.Op == messages.OpProgress {
		updates = pumpUpdates(ctx, conn)
	}
	target := connTarget{conn}
	v, err := Execute(ctx, l.host, l.notifier, req, updates)
	if err != nil {
		log.Printf("serve: %s failed: %v", req.Op, err)
		_ = target.OnFailure(err)
		return
	}
	if err := target.OnSuccess(v); err != nil {
		log.Printf("serve: %s reply failed: %v", req.Op, err)
	}
}

// pumpUpdates turns the connection's update stream into a channel closed at
// end of input.
func pumpUpdates(ctx context.Context, conn singleinstance.Conn) <-chan messages.Update {
	ch := make(chan messages.Update)
	go func() {
		defer close(ch)
		for {
			u, err := conn.NextUpdate(ctx)
			if err != nil {
				return
			}
			select {
			case ch <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

package eventloop

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-shell/src/config"
	"notify-shell/src/dialog"
	"notify-shell/src/host"
	"notify-shell/src/messages"
	"notify-shell/src/progress"
	"notify-shell/src/registry"
	"notify-shell/src/singleinstance"
	"notify-shell/src/surface"
	"notify-shell/src/surface/surfacetest"
	"notify-shell/src/theme"
	"notify-shell/src/toast"
	"notify-shell/src/uithread"
)

type env struct {
	host     *host.Host
	factory  *surfacetest.Factory
	notifier *toast.Notifier
}

func newEnv(t *testing.T) env {
	t.Helper()
	loop := uithread.New(32)
	t.Cleanup(loop.Close)
	f := surfacetest.New()
	h := host.New(loop, f, host.Options{CompleteGrace: 10 * time.Millisecond})
	return env{host: h, factory: f, notifier: toast.New(h, toast.Options{DefaultDuration: time.Hour})}
}

type outcome struct {
	v   any
	err error
}

// execAsync runs Execute in the background and waits for n surfaces to be open.
func (e env) execAsync(t *testing.T, req messages.Request, updates <-chan messages.Update, n int) <-chan outcome {
	t.Helper()
	out := make(chan outcome, 1)
	go func() {
		v, err := Execute(context.Background(), e.host, e.notifier, req, updates)
		out <- outcome{v, err}
	}()
	require.Eventually(t, func() bool { return e.host.Registry.Len() == n }, time.Second, 5*time.Millisecond)
	return out
}

func (e env) click(t *testing.T, index int) {
	t.Helper()
	h := e.factory.Last()
	require.NoError(t, e.host.Call(context.Background(), func() { _ = e.factory.Click(h, index) }))
}

func receive(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return")
		return outcome{}
	}
}

func TestToastWithoutWaitReturnsHandle(t *testing.T) {
	e := newEnv(t)
	v, err := Execute(context.Background(), e.host, e.notifier,
		messages.Request{Op: messages.OpToast, Toast: &toast.Request{Title: "Saved", Message: "ok"}}, nil)
	require.NoError(t, err)
	s, ok := v.(Shown)
	require.True(t, ok)
	assert.True(t, e.host.Registry.IsOpen(s.Handle))
}

func TestToastWaitReturnsTimeout(t *testing.T) {
	e := newEnv(t)
	v, err := Execute(context.Background(), e.host, e.notifier, messages.Request{
		Op:    messages.OpToast,
		Wait:  true,
		Toast: &toast.Request{Title: "t", Duration: 20 * time.Millisecond},
	}, nil)
	require.NoError(t, err)
	r, ok := v.(surface.Result)
	require.True(t, ok)
	assert.Equal(t, surface.OutcomeTimedOut, r.Outcome)
}

func TestQuickAndCommon(t *testing.T) {
	e := newEnv(t)
	_, err := Execute(context.Background(), e.host, e.notifier,
		messages.Request{Op: messages.OpQuick, Quick: &messages.QuickArgs{Type: theme.Warning, Message: "disk low"}}, nil)
	require.NoError(t, err)
	w, _ := e.factory.Window(e.factory.Last())
	assert.Equal(t, "disk low", w.Spec.Message)

	_, err = Execute(context.Background(), e.host, e.notifier,
		messages.Request{Op: messages.OpCommon, Common: &messages.CommonArgs{Name: "SaveComplete"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, e.host.Registry.Len())
}

func TestDialogReturnsClickedButton(t *testing.T) {
	e := newEnv(t)
	out := e.execAsync(t, messages.Request{Op: messages.OpDialog, Dialog: &dialog.Request{
		Title:   "Save?",
		Buttons: []dialog.Button{{Label: "OK", IsDefault: true}, {Label: "Cancel", IsCancel: true}},
	}}, nil, 1)
	e.click(t, 0)

	o := receive(t, out)
	require.NoError(t, o.err)
	r := o.v.(surface.Result)
	assert.Equal(t, surface.OutcomeButtonClicked, r.Outcome)
	assert.Equal(t, "OK", r.ButtonID)
}

func TestConfirmDefaultsToYesNo(t *testing.T) {
	e := newEnv(t)
	out := e.execAsync(t, messages.Request{Op: messages.OpConfirm, Dialog: &dialog.Request{Title: "Delete?"}}, nil, 1)
	w, ok := e.factory.Window(e.factory.Last())
	require.True(t, ok)
	require.Len(t, w.Spec.Buttons, 2)
	assert.Equal(t, "Yes", w.Spec.Buttons[0].Label)
	e.click(t, 1)

	r := receive(t, out).v.(surface.Result)
	assert.Equal(t, "No", r.ButtonID)
	assert.True(t, r.WasCancelled)
}

func TestProgressStreamCompletes(t *testing.T) {
	e := newEnv(t)
	updates := make(chan messages.Update)
	out := e.execAsync(t, messages.Request{Op: messages.OpProgress, Progress: &progress.Request{Title: "Copying"}}, updates, 1)
	updates <- messages.Update{Kind: messages.UpdateProgress, Percent: 40, Message: "working"}
	updates <- messages.Update{Kind: messages.UpdateProgress, Percent: 10}
	updates <- messages.Update{Kind: messages.UpdateComplete, Message: "done"}

	o := receive(t, out)
	require.NoError(t, o.err)
	r := o.v.(progress.Result)
	assert.Equal(t, progress.StateCompleted, r.State)
	assert.Equal(t, 100, r.FinalPercentage)
	assert.Equal(t, "done", r.FinalMessage)
	assert.Zero(t, e.host.Registry.Len(), "grace close finished before returning")
}

func TestProgressEndOfInputFails(t *testing.T) {
	e := newEnv(t)
	updates := make(chan messages.Update)
	out := e.execAsync(t, messages.Request{Op: messages.OpProgress, Progress: &progress.Request{Title: "Copying"}}, updates, 1)
	updates <- messages.Update{Kind: messages.UpdateProgress, Percent: 30}
	close(updates)

	r := receive(t, out).v.(progress.Result)
	assert.Equal(t, progress.StateFailed, r.State)
	assert.Equal(t, 30, r.FinalPercentage)
	assert.Equal(t, ErrClientGone.Error(), r.Err)
	require.Eventually(t, func() bool { return e.host.Registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestProgressFailUpdate(t *testing.T) {
	e := newEnv(t)
	updates := make(chan messages.Update, 1)
	out := e.execAsync(t, messages.Request{Op: messages.OpProgress, Progress: &progress.Request{Title: "Copying"}}, updates, 1)
	updates <- messages.Update{Kind: messages.UpdateFail, Message: "disk full"}

	r := receive(t, out).v.(progress.Result)
	assert.Equal(t, progress.StateFailed, r.State)
	assert.Equal(t, "disk full", r.Err)
}

func TestProgressCancelButton(t *testing.T) {
	e := newEnv(t)
	updates := make(chan messages.Update)
	defer close(updates)
	out := e.execAsync(t, messages.Request{Op: messages.OpProgress, Progress: &progress.Request{Title: "Copying", Cancellable: true}}, updates, 1)
	e.click(t, 0)

	r := receive(t, out).v.(progress.Result)
	assert.Equal(t, progress.StateCancelled, r.State)
	assert.True(t, r.WasCancelled)
}

func TestProgressEndsWhenCloseAllFails(t *testing.T) {
	e := newEnv(t)
	updates := make(chan messages.Update)
	defer close(updates)
	out := e.execAsync(t, messages.Request{Op: messages.OpProgress, Progress: &progress.Request{Title: "Copying"}}, updates, 1)
	updates <- messages.Update{Kind: messages.UpdateProgress, Percent: 30}
	handle := e.factory.Last()
	require.Eventually(t, func() bool {
		w, _ := e.factory.Window(handle)
		return w.Percent == 30
	}, time.Second, 5*time.Millisecond)

	e.factory.CloseErr = errors.New("boom")
	report, err := e.host.CloseAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	r := receive(t, out).v.(progress.Result)
	assert.Equal(t, progress.StateCancelled, r.State)
	assert.True(t, r.WasCancelled)
	assert.Equal(t, 30, r.FinalPercentage)
}

func TestListCloseAllAndTheme(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	v, err := Execute(ctx, e.host, e.notifier, messages.Request{Op: messages.OpList}, nil)
	require.NoError(t, err)
	assert.Empty(t, v)

	for i := 0; i < 2; i++ {
		_, err := Execute(ctx, e.host, e.notifier, messages.Request{Op: messages.OpToast, Toast: &toast.Request{Title: "t" + strconv.Itoa(i), Sticky: true}}, nil)
		require.NoError(t, err)
	}
	v, err = Execute(ctx, e.host, e.notifier, messages.Request{Op: messages.OpList}, nil)
	require.NoError(t, err)
	assert.Len(t, v, 2)

	v, err = Execute(ctx, e.host, e.notifier, messages.Request{Op: messages.OpCloseAll}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, v.(registry.CloseReport).Closed)
	assert.Zero(t, e.host.Registry.Len())

	v, err = Execute(ctx, e.host, e.notifier, messages.Request{Op: messages.OpTheme}, nil)
	require.NoError(t, err)
	assert.Equal(t, theme.ModeLight, v.(theme.Summary).Mode)
	v, err = Execute(ctx, e.host, e.notifier, messages.Request{Op: messages.OpTheme, Theme: "dark"}, nil)
	require.NoError(t, err)
	assert.Equal(t, theme.ModeDark, v.(theme.Summary).Mode)

	v, err = Execute(ctx, e.host, e.notifier, messages.Request{Op: messages.OpTheme, Theme: "dark", Accent: "#0a0b0c"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "#0a0b0c", v.(theme.Summary).Colors["primary"])
	assert.Equal(t, theme.Hex(theme.Dark().Info), v.(theme.Summary).Colors["info"])

	_, err = Execute(ctx, e.host, e.notifier, messages.Request{Op: messages.OpTheme, Accent: "nope"}, nil)
	assert.ErrorIs(t, err, theme.ErrInvalidColor)
}

func TestSelfTestThemeOnly(t *testing.T) {
	e := newEnv(t)
	v, err := Execute(context.Background(), e.host, e.notifier, messages.Request{Op: messages.OpSelfTest, Theme: "dark"}, nil)
	require.NoError(t, err)

	r := v.(SelfTestReport)
	assert.True(t, r.Passed)
	assert.Equal(t, theme.ModeDark, r.Theme.Mode)
	require.Len(t, r.Steps, 1)
	assert.Equal(t, "theme Dark", r.Steps[0].Name)
	assert.Zero(t, e.host.Registry.Len())
}

func TestSelfTestShowsEachType(t *testing.T) {
	e := newEnv(t)
	v, err := Execute(context.Background(), e.host, e.notifier,
		messages.Request{Op: messages.OpSelfTest, ShowAll: true, Accent: "#336699"}, nil)
	require.NoError(t, err)

	r := v.(SelfTestReport)
	assert.True(t, r.Passed)
	require.Len(t, r.Steps, 4)
	assert.Equal(t, "#336699", r.Theme.Colors["primary"])

	infos, err := e.host.Describe(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)
	for i, want := range []string{"Info", "Success", "Warning"} {
		assert.Equal(t, "toast "+want, r.Steps[i+1].Name)
		assert.Equal(t, r.Steps[i+1].Handle, infos[i].Handle)
		assert.Equal(t, want, infos[i].Title)
		assert.Equal(t, surface.KindToast, infos[i].Kind)
	}
}

func TestSelfTestWaitsForSamples(t *testing.T) {
	e := newEnv(t)
	out := e.execAsync(t, messages.Request{Op: messages.OpSelfTest, ShowAll: true, Wait: true}, nil, 3)
	_, err := e.host.CloseAll(context.Background())
	require.NoError(t, err)

	o := receive(t, out)
	require.NoError(t, o.err)
	assert.True(t, o.v.(SelfTestReport).Passed)
}

func TestSelfTestReportsDroppedSamples(t *testing.T) {
	e := newEnv(t)
	n := toast.New(e.host, toast.Options{Rate: 0.001, Burst: 1, DefaultDuration: time.Hour})
	v, err := Execute(context.Background(), e.host, n, messages.Request{Op: messages.OpSelfTest, ShowAll: true}, nil)
	require.NoError(t, err)

	r := v.(SelfTestReport)
	assert.False(t, r.Passed)
	require.Len(t, r.Steps, 4)
	assert.True(t, r.Steps[1].OK)
	assert.False(t, r.Steps[2].OK)
	assert.Equal(t, toast.ErrRateLimited.Error(), r.Steps[2].Err)
}

func TestUnknownOp(t *testing.T) {
	e := newEnv(t)
	_, err := Execute(context.Background(), e.host, e.notifier, messages.Request{Op: "explode"}, nil)
	assert.ErrorIs(t, err, ErrUnknownOp)

	_, err = Execute(context.Background(), e.host, e.notifier, messages.Request{Op: messages.OpDialog}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownOp)
}

func usePort(t *testing.T) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
	require.NoError(t, l.Close())
	t.Setenv("SINGLEINSTANCE_PORT_START", port)
	t.Setenv("SINGLEINSTANCE_PORT_END", port)
}

func startLoop(t *testing.T, e env, workers int) (*Loop, context.CancelFunc, <-chan error) {
	t.Helper()
	usePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	l := New(&config.Config{MaxConcurrent: workers}, e.host, e.notifier)
	if err := l.Start(ctx); err != nil {
		cancel()
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	errs := make(chan error, 1)
	go func() { errs <- l.Run(ctx) }()
	return l, cancel, errs
}

func TestLoopServesDelegatedRequests(t *testing.T) {
	e := newEnv(t)
	l, cancel, errs := startLoop(t, e, 2)
	assert.NotZero(t, l.Port())

	ctx := context.Background()
	delegated, body, err := singleinstance.NewClient().TryDelegate(ctx, messages.Request{Op: messages.OpList}, nil)
	require.NoError(t, err)
	require.True(t, delegated)
	assert.JSONEq(t, `[]`, string(body))

	replies := make(chan []byte, 1)
	go func() {
		req := messages.Request{Op: messages.OpDialog, Dialog: &dialog.Request{Title: "Proceed?"}}
		_, b, err := singleinstance.NewClient().TryDelegate(ctx, req, nil)
		assert.NoError(t, err)
		replies <- b
	}()
	require.Eventually(t, func() bool { return e.host.Registry.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	e.click(t, 0)

	var r surface.Result
	select {
	case b := <-replies:
		require.NoError(t, json.Unmarshal(b, &r))
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
	assert.Equal(t, "OK", r.ButtonID)

	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)
}

func TestLoopRejectsWhenBusy(t *testing.T) {
	e := newEnv(t)
	_, cancel, errs := startLoop(t, e, 1)
	ctx := context.Background()
	block := messages.Request{Op: messages.OpDialog, Dialog: &dialog.Request{Title: "Hold"}}

	// The dialog occupies the worker; the first probe then takes the queue slot.
	go func() { _, _, _ = singleinstance.NewClient().TryDelegate(ctx, block, nil) }()
	require.Eventually(t, func() bool { return e.host.Registry.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		probe, stop := context.WithTimeout(ctx, 300*time.Millisecond)
		defer stop()
		_, _, err := singleinstance.NewClient().TryDelegate(probe, messages.Request{Op: messages.OpList}, nil)
		return err != nil && err.Error() == ErrBusy.Error()
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)
}

func TestDismissAllClosesSurfaces(t *testing.T) {
	e := newEnv(t)
	l, cancel, errs := startLoop(t, e, 2)
	closed := make(chan int, 1)
	l.OnDismiss(func(n int) { closed <- n })

	_, err := Execute(context.Background(), e.host, e.notifier, messages.Request{Op: messages.OpToast, Toast: &toast.Request{Title: "t", Sticky: true}}, nil)
	require.NoError(t, err)
	l.DismissAll()

	select {
	case n := <-closed:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("dismiss did not run")
	}
	assert.Zero(t, e.host.Registry.Len())

	cancel()
	<-errs
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-shell/src/config"
	"notify-shell/src/eventloop"
	"notify-shell/src/messages"
	"notify-shell/src/runtimeinit"
	"notify-shell/src/theme"
)

type fakeClient struct {
	delegated bool
	body      string
	err       error
	req       messages.Request
	updates   []messages.Update
	called    bool
}

func (f *fakeClient) TryDelegate(ctx context.Context, req messages.Request, updates <-chan messages.Update) (bool, []byte, error) {
	f.called = true
	f.req = req
	if f.delegated && updates != nil {
		for u := range updates {
			f.updates = append(f.updates, u)
		}
	}
	return f.delegated, []byte(f.body), f.err
}

type harness struct {
	app            *cliApp
	client         *fakeClient
	standaloneReqs []messages.Request
	stdout, stderr bytes.Buffer
}

func newHarness(client *fakeClient, stdin string) *harness {
	h := &harness{client: client}
	h.app = &cliApp{
		client: client,
		standalone: func(ctx context.Context, rt *runtimeinit.Runtime, req messages.Request, updates <-chan messages.Update) (any, error) {
			h.standaloneReqs = append(h.standaloneReqs, req)
			return map[string]string{"ran": "standalone"}, nil
		},
		bootstrap: func(runtimeinit.Options) (*runtimeinit.Runtime, error) {
			return &runtimeinit.Runtime{Config: &config.Config{}, Palette: theme.Light()}, nil
		},
		stdin: strings.NewReader(stdin),
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := newRootCmd(h.app)
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestToastDelegates(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true, body: `{"handle":"abc"}`}, "")
	require.NoError(t, h.run("toast", "--title", "Build", "--type", "success", "--duration", "3s", "all", "green"))

	req := h.client.req
	assert.Equal(t, messages.OpToast, req.Op)
	require.NotNil(t, req.Toast)
	assert.Equal(t, "Build", req.Toast.Title)
	assert.Equal(t, "all green", req.Toast.Message)
	assert.Equal(t, theme.Success, req.Toast.Type)
	assert.Equal(t, 3*time.Second, req.Toast.Duration)
	assert.False(t, req.Wait)
	assert.Equal(t, "{\"handle\":\"abc\"}\n", h.stdout.String())
	assert.Empty(t, h.standaloneReqs)
}

func TestQuickRejectsUnknownType(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true}, "")
	err := h.run("quick", "loud", "hello")
	require.Error(t, err)
	assert.False(t, h.client.called)

	require.NoError(t, h.run("quick", "--wait", "warning", "disk", "low"))
	assert.Equal(t, theme.Warning, h.client.req.Quick.Type)
	assert.Equal(t, "disk low", h.client.req.Quick.Message)
	assert.True(t, h.client.req.Wait)
}

func TestCommonPreset(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true}, "")
	require.NoError(t, h.run("common", "SaveComplete", "Saved", "report.pdf"))
	assert.Equal(t, "SaveComplete", h.client.req.Common.Name)
	assert.Equal(t, "Saved report.pdf", h.client.req.Common.Custom)
}

func TestDialogButtons(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true, body: `{"outcome":"ButtonClicked","button_id":"Retry"}`}, "")
	require.NoError(t, h.run("--json", "dialog", "--title", "Upload failed", "--button", "Retry:default",
		"--button", "Cancel:cancel", "--timeout", "30s", "Try again?"))

	req := h.client.req.Dialog
	require.NotNil(t, req)
	require.Len(t, req.Buttons, 2)
	assert.True(t, req.Buttons[0].IsDefault)
	assert.Equal(t, "Cancel", req.Buttons[1].Label)
	assert.True(t, req.Buttons[1].IsCancel)
	assert.Equal(t, 30*time.Second, req.Timeout)
	assert.Equal(t, "Try again?", req.Message)

	var out map[string]any
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.Equal(t, "Retry", out["button_id"])
}

func TestConfirmOp(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true}, "")
	require.NoError(t, h.run("confirm", "--title", "Delete?", "Really?"))
	assert.Equal(t, messages.OpConfirm, h.client.req.Op)
	assert.Empty(t, h.client.req.Dialog.Buttons)
}

func TestProgressStreamsStdin(t *testing.T) {
	stdin := "10 starting\n\nnot-a-line\n50% halfway\ndone finished\n99 ignored\n"
	h := newHarness(&fakeClient{delegated: true, body: `{"state":"Completed"}`}, stdin)
	require.NoError(t, h.run("progress", "--title", "Copy", "--cancellable"))

	assert.Equal(t, messages.OpProgress, h.client.req.Op)
	assert.True(t, h.client.req.Progress.Cancellable)
	require.Len(t, h.client.updates, 3)
	assert.Equal(t, 10, h.client.updates[0].Percent)
	assert.Equal(t, "halfway", h.client.updates[1].Message)
	assert.Equal(t, messages.UpdateComplete, h.client.updates[2].Kind)
}

func TestFallsBackToStandalone(t *testing.T) {
	h := newHarness(&fakeClient{}, "")
	require.NoError(t, h.run("list"))
	assert.True(t, h.client.called)
	require.Len(t, h.standaloneReqs, 1)
	assert.Equal(t, messages.OpList, h.standaloneReqs[0].Op)
	assert.Equal(t, "{\"ran\":\"standalone\"}\n", h.stdout.String())

	h = newHarness(&fakeClient{err: errors.New("dial refused")}, "")
	require.NoError(t, h.run("theme", "dark"))
	require.Len(t, h.standaloneReqs, 1)
	assert.Equal(t, "dark", h.standaloneReqs[0].Theme)
}

func TestStandaloneFlagSkipsDelegation(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true}, "")
	require.NoError(t, h.run("--standalone", "close-all"))
	assert.False(t, h.client.called)
	assert.Len(t, h.standaloneReqs, 1)
}

func TestResidentErrorIsReported(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true, err: errors.New("Busy, please retry")}, "")
	err := h.run("list")
	assert.ErrorIs(t, err, errReported)
	assert.Equal(t, "Error: Busy, please retry\n", h.stderr.String())
	assert.Empty(t, h.standaloneReqs)

	h = newHarness(&fakeClient{delegated: true, err: errors.New("Busy, please retry")}, "")
	assert.ErrorIs(t, h.run("--json", "list"), errReported)
	assert.JSONEq(t, `{"error":"Busy, please retry"}`, h.stdout.String())
}

func TestParseButton(t *testing.T) {
	assert.Equal(t, "OK", parseButton("OK").Label)
	b := parseButton("Abort:cancel:default")
	assert.Equal(t, "Abort", b.Label)
	assert.True(t, b.IsCancel)
	assert.True(t, b.IsDefault)
}

func TestStandaloneNeedsRuntime(t *testing.T) {
	_, err := runStandalone(context.Background(), nil, messages.Request{Op: messages.OpList}, nil)
	assert.Error(t, err)
}

func TestStandaloneThemeIsHeadless(t *testing.T) {
	rt := &runtimeinit.Runtime{Config: &config.Config{}, Palette: theme.Dark()}
	v, err := runStandalone(context.Background(), rt, messages.Request{Op: messages.OpTheme}, nil)
	require.NoError(t, err)
	assert.Equal(t, theme.ModeDark, v.(theme.Summary).Mode)
}

func TestAccentFlags(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true}, "")
	require.NoError(t, h.run("theme", "--accent", "#ff8800", "dark"))
	assert.Equal(t, "#ff8800", h.client.req.Accent)
	assert.Equal(t, "dark", h.client.req.Theme)

	require.NoError(t, h.run("toast", "--accent", "#123", "hi"))
	assert.Equal(t, "#123", h.client.req.Toast.Accent)

	require.NoError(t, h.run("dialog", "--mode", "dark", "--accent", "#abcdef", "Proceed?"))
	assert.Equal(t, theme.ModeDark, h.client.req.Dialog.Theme)
	assert.Equal(t, "#abcdef", h.client.req.Dialog.Accent)
}

func TestSelfTestCmd(t *testing.T) {
	h := newHarness(&fakeClient{delegated: true, body: `{"passed":true}`}, "")
	require.NoError(t, h.run("test", "--show-all", "--accent", "#00ff00", "light"))
	req := h.client.req
	assert.Equal(t, messages.OpSelfTest, req.Op)
	assert.True(t, req.ShowAll)
	assert.Equal(t, "#00ff00", req.Accent)
	assert.Equal(t, "light", req.Theme)
	assert.False(t, req.Wait)
}

func TestStandaloneSelfTestWithoutSamplesIsHeadless(t *testing.T) {
	assert.True(t, headless(messages.Request{Op: messages.OpSelfTest}))
	assert.False(t, headless(messages.Request{Op: messages.OpSelfTest, ShowAll: true}))
	assert.False(t, headless(messages.Request{Op: messages.OpToast}))

	rt := &runtimeinit.Runtime{Config: &config.Config{}, Palette: theme.Dark()}
	v, err := runStandalone(context.Background(), rt, messages.Request{Op: messages.OpSelfTest, Accent: "#010203"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "#010203", v.(eventloop.SelfTestReport).Theme.Colors["primary"])
	assert.Equal(t, theme.ModeDark, v.(eventloop.SelfTestReport).Theme.Mode)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-shell/src/messages"
	"notify-shell/src/singleinstance"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts, singleinstance.NewClient)
	require.NoError(t, cmd.ParseFlags([]string{}))
	assert.Equal(t, 50, opts.n)
	assert.Equal(t, "toast", opts.mode)
	assert.Equal(t, 5*time.Second, opts.deadline)
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts, singleinstance.NewClient)
	require.NoError(t, cmd.ParseFlags([]string{"--n", "3", "--mode", "list", "--deadline", "7s"}))
	assert.Equal(t, 3, opts.n)
	assert.Equal(t, "list", opts.mode)
	assert.Equal(t, 7*time.Second, opts.deadline)
}

// scriptedClient answers calls in turn: ok, busy, no resident, error.
type scriptedClient struct{ calls *atomic.Int32 }

func (c scriptedClient) TryDelegate(ctx context.Context, req messages.Request, _ <-chan messages.Update) (bool, []byte, error) {
	switch c.calls.Add(1) % 4 {
	case 1:
		return true, []byte(`{}`), nil
	case 2:
		return true, nil, errors.New("Busy, please retry")
	case 3:
		return false, nil, nil
	}
	return true, nil, errors.New("boom")
}

func TestRunTalliesOutcomes(t *testing.T) {
	var calls atomic.Int32
	var out bytes.Buffer
	err := runWithOptions(stressOptions{n: 8, mode: "list", deadline: time.Second},
		func() singleinstance.Client { return scriptedClient{&calls} }, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "launched=8 ok=2 busy=2 no-resident=2 err=2")
}

func TestUnknownMode(t *testing.T) {
	err := runWithOptions(stressOptions{n: 1, mode: "std"}, singleinstance.NewClient, &bytes.Buffer{})
	assert.EqualError(t, err, `unknown mode "std"`)
}

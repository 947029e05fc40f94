package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	s, err := Text("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", s)

	s, err = Text(map[string]int{"closed": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"closed":2}`, s)

	s, err = Text(nil)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = Text(make(chan int))
	assert.Error(t, err)
}

func TestStdoutTarget(t *testing.T) {
	var out, errOut bytes.Buffer
	tgt := StdoutTarget{Writer: &out, ErrWriter: &errOut}

	require.NoError(t, tgt.OnSuccess(json.RawMessage(`{"a":1}`)))
	require.NoError(t, tgt.OnSuccess(""))
	require.NoError(t, tgt.OnFailure(errors.New("busy")))
	assert.Equal(t, "{\"a\":1}\n", out.String())
	assert.Equal(t, "Error: busy\n", errOut.String())
}

func TestJSONTarget(t *testing.T) {
	var out bytes.Buffer
	tgt := JSONTarget{Writer: &out}

	require.NoError(t, tgt.OnSuccess(json.RawMessage(`{"outcome":"ButtonClicked"}`)))
	assert.Equal(t, "{\n  \"outcome\": \"ButtonClicked\"\n}\n", out.String())

	out.Reset()
	require.NoError(t, tgt.OnFailure(errors.New("nope")))
	assert.JSONEq(t, `{"error":"nope"}`, out.String())
}

type failingTarget struct{ err error }

func (f failingTarget) OnSuccess(any) error   { return f.err }
func (f failingTarget) OnFailure(error) error { return f.err }

func TestMultiDeliversToAll(t *testing.T) {
	var a, b bytes.Buffer
	m := Multi(StdoutTarget{Writer: &a}, failingTarget{errors.New("clipboard gone")}, StdoutTarget{Writer: &b})

	err := m.OnSuccess("hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clipboard gone")
	assert.Equal(t, "hello\n", a.String())
	assert.Equal(t, "hello\n", b.String())

	assert.NoError(t, Multi(StdoutTarget{Writer: &a, ErrWriter: &b}).OnFailure(errors.New("x")))
}

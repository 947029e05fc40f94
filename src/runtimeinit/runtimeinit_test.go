package runtimeinit

import (
	"io"
	"log"
	"os"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-shell/src/config"
	"notify-shell/src/theme"
)

type closer struct{ closed bool }

func (c *closer) Close() error { c.closed = true; return nil }

func TestBootstrap(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/.env", []byte("ENABLE_FILE_LOGGING=true\nLOG_FILE=/tmp/x.log\n"), 0644))
	stubs := gostub.Stub(&config.FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()
	t.Setenv("ENABLE_FILE_LOGGING", "")
	os.Unsetenv("ENABLE_FILE_LOGGING")
	t.Setenv("LOG_FILE", "")
	os.Unsetenv("LOG_FILE")

	var gotEnable bool
	var gotPath string
	c := &closer{}
	rt, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{EnvPathOverride: "/cfg/.env", ThemeOverride: "dark"},
		SetupLogging: func(enable bool, path string) io.Closer {
			gotEnable, gotPath = enable, path
			return c
		},
	})
	require.NoError(t, err)
	assert.True(t, gotEnable)
	assert.Equal(t, "/tmp/x.log", gotPath)
	assert.Equal(t, theme.ModeDark, rt.Palette.Mode)
	require.NoError(t, rt.Logs.Close())
	assert.True(t, c.closed)
}

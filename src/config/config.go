package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"notify-shell/src/theme"
)

const (
	EnvFileEnvVar  = "NOTIFY_SHELL_ENV"
	DefaultAppID   = "io.notifyshell.host"
	DefaultHotkey  = "Ctrl+Alt+D"
	envFileName    = ".env"
	defaultToastS  = 5
	defaultRate    = 4.0
	defaultBurst   = 8
	defaultGraceMS = 500
	defaultWorkers = 16
)

// FsFactory returns the filesystem env files are read from.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// executable is swapped in tests.
var executable = os.Executable

type LoadOptions struct {
	ThemeOverride   string
	EnvPathOverride string
}

type Config struct {
	EnableFileLogging bool
	LogFile           string
	Theme             theme.Mode
	ToastDuration     time.Duration
	ToastRate         float64
	ToastBurst        int
	CompleteGrace     time.Duration
	DismissHotkey     string
	MaxConcurrent     int
	AppID             string
	EnvPath           string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions reads configuration in priority order:
// 1) LoadOptions overrides
// 2) process environment
// 3) .env next to the executable, or the file named by NOTIFY_SHELL_ENV
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	fs := FsFactory()
	envPath := strings.TrimSpace(opts.EnvPathOverride)
	if envPath == "" {
		envPath = resolveEnvPath(fs)
	}
	values := readDotenvValues(fs, envPath)
	exportPortRange(values)
	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(values[key])
	}

	cfg := &Config{
		EnableFileLogging: strings.EqualFold(get("ENABLE_FILE_LOGGING"), "true"),
		LogFile:           get("LOG_FILE"),
		Theme:             theme.ParseMode(get("THEME")),
		ToastDuration:     time.Duration(intValue(get, "TOAST_DURATION_SEC", defaultToastS, 0)) * time.Second,
		ToastRate:         floatValue(get, "TOAST_RATE_PER_SEC", defaultRate),
		ToastBurst:        intValue(get, "TOAST_BURST", defaultBurst, 1),
		CompleteGrace:     time.Duration(intValue(get, "PROGRESS_COMPLETE_GRACE_MS", defaultGraceMS, 1)) * time.Millisecond,
		DismissHotkey:     getWithDefault(get, "DISMISS_HOTKEY", DefaultHotkey),
		MaxConcurrent:     intValue(get, "MAX_CONCURRENT_REQUESTS", defaultWorkers, 1),
		AppID:             getWithDefault(get, "APP_ID", DefaultAppID),
		EnvPath:           envPath,
	}
	if o := strings.TrimSpace(opts.ThemeOverride); o != "" {
		cfg.Theme = theme.ParseMode(o)
	}
	return cfg, nil
}

// exportPortRange copies the resident port range from the env file into the
// process environment, where singleinstance reads it. Set variables win.
func exportPortRange(values map[string]string) {
	for _, key := range []string{"SINGLEINSTANCE_PORT_START", "SINGLEINSTANCE_PORT_END"} {
		if _, set := os.LookupEnv(key); set || values[key] == "" {
			continue
		}
		_ = os.Setenv(key, values[key])
	}
}

func resolveEnvPath(fs afero.Fs) string {
	if execPath, err := executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), envFileName)
		if ok, _ := afero.Exists(fs, exeEnv); ok {
			return exeEnv
		}
	}
	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if ok, _ := afero.Exists(fs, alt); ok {
			return alt
		}
	}
	return ""
}

func readDotenvValues(fs afero.Fs, envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}
	data, err := afero.ReadFile(fs, envPath)
	if err != nil {
		log.Printf("Config: cannot read %s: %v", envPath, err)
		return map[string]string{}
	}
	values, err := godotenv.Unmarshal(string(data))
	if err != nil {
		log.Printf("Config: cannot parse %s: %v", envPath, err)
		return map[string]string{}
	}
	return values
}

func getWithDefault(get func(string) string, key, def string) string {
	if v := get(key); v != "" {
		return v
	}
	return def
}

func intValue(get func(string) string, key string, def, min int) int {
	v := get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		log.Printf("Config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func floatValue(get func(string) string, key string, def float64) float64 {
	v := get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("Config: invalid %s=%q, using %g", key, v, def)
		return def
	}
	return f
}

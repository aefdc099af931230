package logging

import (
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// EnvLogLevel overrides the default level when no flag is given.
	EnvLogLevel = "TRELLIS_LOG_LEVEL"
	// EnvLogPath appends log output to a file in addition to stderr.
	EnvLogPath = "TRELLIS_LOG_PATH"

	defaultLevel = "info"
)

// Settings is the resolved logger configuration.
type Settings struct {
	Level string
	JSON  bool
}

// ResolveLevel picks the log level: flag value, then TRELLIS_LOG_LEVEL, then info.
// A "json:<level>" value switches the logger to JSON output.
func ResolveLevel(flagValue string) Settings {
	raw := flagValue
	if raw == "" {
		raw = os.Getenv(EnvLogLevel)
	}
	if raw == "" {
		raw = defaultLevel
	}

	s := Settings{Level: raw}
	if rest, ok := strings.CutPrefix(strings.ToLower(raw), "json:"); ok {
		s.JSON = true
		s.Level = rest
	}
	if s.Level == "" {
		s.Level = defaultLevel
	}
	return s
}

// LinePrefix is written in front of every non-JSON log line.
func LinePrefix() string {
	if runtime.GOOS == "windows" {
		return "[TR] "
	}
	return "🔨 "
}

// NewLogger creates a new hclog logger with standard settings
func NewLogger(name string, settings Settings, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	if path := os.Getenv(EnvLogPath); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			output = io.MultiWriter(output, f)
		}
	}

	if !settings.JSON {
		output = NewPrefixWriter(LinePrefix(), output)
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(settings.Level),
		JSONFormat: settings.JSON,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

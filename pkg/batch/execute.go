// SPDX-License-Identifier: Apache-2.0
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/logging"
	"github.com/provide-io/trellis/pkg/utils/permissions"
)

// LogTimeFormat is the timestamp suffix of every log file name.
const LogTimeFormat = "2006_01_02_15_04_05"

// Executor serialises every external step through one Runner.
type Executor struct {
	Runner Runner
	// Output is the console stream. Nil discards console output.
	Output io.Writer
	// PrefixOutput tags every streamed line with the task label.
	PrefixOutput bool
	Logger       hclog.Logger

	now func() time.Time
}

// Step is a batch together with its retry budget and log name.
type Step struct {
	*Batch
	Retries int
	// LogName enables <LogDir>/<LogName>_<timestamp>.txt. LogDir defaults
	// to Logs inside the working directory.
	LogName string
	LogDir  string
}

func (s Step) logDir() string {
	if s.LogDir != "" {
		return s.LogDir
	}
	return filepath.Join(s.Dir, "Logs")
}

// Execute runs s, retrying up to s.Retries more times after a failure.
// Exhausting the budget yields a *errors.CommandError.
func (e *Executor) Execute(ctx context.Context, s Step) error {
	logger := e.logger()
	attempts := 1 + max(s.Retries, 0)

	var (
		code    int
		logFile string
	)
	logger.Info(fmt.Sprintf("🔨 %s ...", s.Task))
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 1 {
			logger.Warn(fmt.Sprintf("⚠️ %s failed, retry %d", s.Task, attempt-1), "exit_code", code)
		}

		var err error
		code, logFile, err = e.attempt(ctx, s)
		if err != nil {
			return err
		}
		if code == 0 {
			logger.Info(fmt.Sprintf("✅ %s succeeded", s.Task), "attempt", attempt)
			return nil
		}
	}

	logger.Error(fmt.Sprintf("❌ %s failed", s.Task), "exit_code", code, "attempts", attempts)
	return &terrors.CommandError{
		Task:     s.Task,
		ExitCode: code,
		Attempts: attempts,
		LogFile:  logFile,
	}
}

func (e *Executor) attempt(ctx context.Context, s Step) (int, string, error) {
	console := e.Output
	if console == nil {
		console = io.Discard
	}
	var pw *logging.PrefixWriter
	if e.PrefixOutput {
		pw = logging.NewPrefixWriter("["+s.Task+"] ", console)
		console = pw
	}

	out := console
	var logFile string
	if s.LogName != "" {
		f, path, err := e.openLog(s)
		if err != nil {
			return 0, "", err
		}
		defer f.Close()
		out = io.MultiWriter(console, f)
		logFile = path
	}

	code, err := e.Runner.Run(ctx, s.Batch, out)
	if pw != nil {
		pw.Flush()
	}
	return code, logFile, err
}

// openLog creates the step log and writes the commands it is about to run.
func (e *Executor) openLog(s Step) (*os.File, string, error) {
	dir := s.logDir()
	if err := os.MkdirAll(dir, permissions.DirPerms); err != nil {
		return nil, "", fmt.Errorf("creating log directory: %w", err)
	}
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", s.LogName, now().Format(LogTimeFormat)))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, permissions.FilePerms)
	if err != nil {
		return nil, "", fmt.Errorf("opening log %s: %w", path, err)
	}
	fmt.Fprintf(f, "%s\n", strings.Join(s.Lines, "\n"))
	fmt.Fprintf(f, "%s\n", strings.Repeat("-", 72))
	return f, path, nil
}

func (e *Executor) logger() hclog.Logger {
	if e.Logger == nil {
		return hclog.NewNullLogger()
	}
	return e.Logger
}

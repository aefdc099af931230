// SPDX-License-Identifier: Apache-2.0
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/trellis/pkg/platform"
	"github.com/provide-io/trellis/pkg/utils/permissions"
)

// Runner executes a batch once. A non-zero exit is reported through the
// returned code with a nil error; err is reserved for failures to run at all.
type Runner interface {
	Run(ctx context.Context, b *Batch, out io.Writer) (exitCode int, err error)
}

// ScriptRunner writes the batch to a script file inside b.Dir and runs it with
// /bin/sh or cmd.exe.
type ScriptRunner struct {
	Family platform.Family
	Logger hclog.Logger
}

// NewScriptRunner returns a runner for the host family.
func NewScriptRunner(family platform.Family, logger hclog.Logger) *ScriptRunner {
	return &ScriptRunner{Family: family, Logger: logger.Named("batch")}
}

func (r *ScriptRunner) Run(ctx context.Context, b *Batch, out io.Writer) (int, error) {
	ext := ".sh"
	if r.Family == platform.Windows {
		ext = ".bat"
	}

	f, err := os.CreateTemp(b.Dir, "trellis_*"+ext)
	if err != nil {
		return 0, fmt.Errorf("creating script for %q: %w", b.Task, err)
	}
	script := f.Name()
	defer func() {
		if err := os.Remove(script); err != nil && !os.IsNotExist(err) {
			r.Logger.Warn("⚠️ Failed to delete script", "path", script, "error", err)
		}
	}()

	if _, err := f.WriteString(b.Script(r.Family)); err != nil {
		f.Close()
		return 0, fmt.Errorf("writing script for %q: %w", b.Task, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("writing script for %q: %w", b.Task, err)
	}
	if err := os.Chmod(script, permissions.ScriptPerms); err != nil {
		return 0, fmt.Errorf("chmod script for %q: %w", b.Task, err)
	}

	var cmd *exec.Cmd
	if r.Family == platform.Windows {
		cmd = exec.CommandContext(ctx, "cmd", "/C", script)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", script)
	}
	cmd.Dir = b.Dir
	cmd.Env = b.Environ(os.Environ())
	cmd.Stdout = out
	cmd.Stderr = out

	logEnvironmentTrace(cmd.Env, r.Logger)
	r.Logger.Debug("🚀 Executing batch", "task", b.Task, "dir", b.Dir, "script", script)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.Logger.Debug("⏹️ Batch exited", "task", b.Task, "code", exitErr.ExitCode())
			if code := exitErr.ExitCode(); code > 0 {
				return code, nil
			}
			// Killed by a signal.
			return 1, nil
		}
		return 0, fmt.Errorf("running %q: %w", b.Task, err)
	}
	return 0, nil
}

// logEnvironmentTrace logs the subprocess environment at trace level with
// credentials redacted.
func logEnvironmentTrace(env []string, logger hclog.Logger) {
	if !logger.IsTrace() {
		return
	}
	logger.Trace("🌍 Environment passed to batch:")
	for _, e := range env {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if isSensitiveKey(key) {
			value = "***"
		}
		logger.Trace("  →", "key", key, "value", value)
	}
}

func isSensitiveKey(key string) bool {
	switch key {
	case "SSH_AUTH_SOCK", "GITHUB_TOKEN", "AWS_SECRET_ACCESS_KEY", "PASSWORD":
		return true
	}
	upper := strings.ToUpper(key)
	for _, s := range []string{"TOKEN", "SECRET", "PASSWORD"} {
		if strings.Contains(upper, s) {
			return true
		}
	}
	return false
}

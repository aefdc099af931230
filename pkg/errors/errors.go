// SPDX-License-Identifier: Apache-2.0
// Package errors defines the failure taxonomy shared by every trellis component.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Detection errors 🔍
	ErrToolNotFound            = errors.New("❌ tool not found")
	ErrUnsupportedPlatform     = errors.New("❌ unsupported platform")
	ErrUnsupportedArchitecture = errors.New("❌ unsupported architecture")
	ErrUnsupportedVersion      = errors.New("❌ unsupported version")

	// Toolchain errors 🔧
	ErrIncompatibleToolchain = errors.New("❌ incompatible toolchain")
	ErrVersionTooLow         = errors.New("❌ version too low")

	// Execution errors 🚀
	ErrExternalCommandFailed = errors.New("❌ external command failed")
	ErrLocked                = errors.New("❌ build tree locked by another process")

	// Solution errors 📄
	ErrInvalidSolution = errors.New("❌ invalid solution")
)

// ToolNotFound reports a missing tool together with the hint a user needs to fix it.
func ToolNotFound(tool, hint string) error {
	if hint == "" {
		return fmt.Errorf("%w: %s", ErrToolNotFound, tool)
	}
	return fmt.Errorf("%w: %s (%s)", ErrToolNotFound, tool, hint)
}

func UnsupportedPlatform(platform string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
}

func UnsupportedArchitecture(arch string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedArchitecture, arch)
}

func UnsupportedVersion(what, version string) error {
	return fmt.Errorf("%w: %s %q", ErrUnsupportedVersion, what, version)
}

func IncompatibleToolchain(generator, compiler string) error {
	return fmt.Errorf("%w: generator %q cannot be used with compiler %q", ErrIncompatibleToolchain, generator, compiler)
}

// VersionTooLow reports a tool whose merged version is below the minimum.
func VersionTooLow(tool string, have, want int) error {
	return fmt.Errorf("%w: %s %s found, %s or newer is required",
		ErrVersionTooLow, tool, dotted(have), dotted(want))
}

// dotted renders a merged version (39) back into its major.minor form (3.9).
func dotted(v int) string {
	s := fmt.Sprint(v)
	if len(s) < 2 {
		return s
	}
	return s[:1] + "." + s[1:]
}

// CommandError is returned when an external command batch exits non-zero
// after its retry budget is exhausted.
type CommandError struct {
	Task     string
	ExitCode int
	Attempts int
	LogFile  string
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %q exited with code %d", ErrExternalCommandFailed, e.Task, e.ExitCode)
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.LogFile != "" {
		fmt.Fprintf(&b, " (log: %s)", e.LogFile)
	}
	return b.String()
}

func (e *CommandError) Is(target error) bool {
	return target == ErrExternalCommandFailed
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return cmdErr.ExitCode
	}
	return 1
}

// 🌳🔨🧱

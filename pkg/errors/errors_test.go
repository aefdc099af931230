package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{"tool not found", ToolNotFound("cmake", "set TRELLIS_CMAKE"), ErrToolNotFound, "TRELLIS_CMAKE"},
		{"platform", UnsupportedPlatform("beos"), ErrUnsupportedPlatform, "beos"},
		{"arch", UnsupportedArchitecture("mips"), ErrUnsupportedArchitecture, "mips"},
		{"version", UnsupportedVersion("android", "4.0"), ErrUnsupportedVersion, "4.0"},
		{"toolchain", IncompatibleToolchain("xcode", "gcc"), ErrIncompatibleToolchain, "xcode"},
		{"too low", VersionTooLow("cmake", 38, 39), ErrVersionTooLow, "3.8 found, 3.9"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.sentinel)
			assert.Contains(t, tc.err.Error(), tc.contains)
		})
	}
}

func TestCommandError(t *testing.T) {
	err := fmt.Errorf("build step: %w", &CommandError{Task: "Build", ExitCode: 2, Attempts: 4, LogFile: "Logs/Build.txt"})

	assert.ErrorIs(t, err, ErrExternalCommandFailed)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, 2, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 1, ExitCode(ToolNotFound("gcc", "")))
	assert.Equal(t, 1, ExitCode(&CommandError{Task: "Configure", ExitCode: -1}))
}

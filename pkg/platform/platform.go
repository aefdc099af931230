// SPDX-License-Identifier: Apache-2.0
// Package platform identifies host operating systems, target platforms and
// CPU architectures.
package platform

import (
	"strings"

	terrors "github.com/provide-io/trellis/pkg/errors"
)

// Family is the operating system family of the machine running trellis.
type Family string

const (
	Windows Family = "windows"
	Linux   Family = "linux"
	Darwin  Family = "darwin"
)

// ParseFamily matches a raw platform identifier (runtime.GOOS, sys.platform
// style strings such as "win32" or "linux2") by prefix.
func ParseFamily(raw string) (Family, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "win"):
		return Windows, nil
	case strings.HasPrefix(s, "linux"):
		return Linux, nil
	case strings.HasPrefix(s, "darwin"):
		return Darwin, nil
	}
	return "", terrors.UnsupportedPlatform(raw)
}

// Platform returns the target platform that builds natively on this family.
func (f Family) Platform() Platform {
	return Platform(f)
}

// Platform is a build target platform.
type Platform string

const (
	TargetWindows Platform = "windows"
	TargetLinux   Platform = "linux"
	TargetDarwin  Platform = "darwin"
	TargetIOS     Platform = "ios"
	TargetAndroid Platform = "android"
)

// Platforms lists every supported target platform.
var Platforms = []Platform{TargetWindows, TargetLinux, TargetDarwin, TargetIOS, TargetAndroid}

// ParsePlatform parses an exact, case-insensitive platform name.
func ParsePlatform(raw string) (Platform, error) {
	s := Platform(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range Platforms {
		if p == s {
			return p, nil
		}
	}
	return "", terrors.UnsupportedPlatform(raw)
}

// IsMobile reports whether the platform is android or ios.
func (p Platform) IsMobile() bool {
	return p == TargetAndroid || p == TargetIOS
}

func (p Platform) String() string { return string(p) }

func (p Platform) MarshalText() ([]byte, error) { return []byte(p), nil }

// Arch is a CPU architecture from the closed set trellis builds for.
type Arch string

const (
	X86   Arch = "x86"
	X64   Arch = "x64"
	Arm32 Arch = "arm32"
	Arm64 Arch = "arm64"
)

// Archs lists every supported architecture.
var Archs = []Arch{X86, X64, Arm32, Arm64}

// ParseArch parses a requested architecture. The generic "arm" request
// resolves to Arm32; parsing an already normalised value is a no-op.
func ParseArch(raw string) (Arch, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "arm" {
		return Arm32, nil
	}
	for _, a := range Archs {
		if string(a) == s {
			return a, nil
		}
	}
	return "", terrors.UnsupportedArchitecture(raw)
}

// NormalizeMachine maps a raw host machine string (uname -m,
// PROCESSOR_ARCHITECTURE) to an Arch. Only 64-bit hosts are supported.
func NormalizeMachine(raw string) (Arch, error) {
	switch strings.TrimSpace(raw) {
	case "AMD64", "amd64", "x86_64", "X86_64", "x64":
		return X64, nil
	case "ARM64", "arm64", "aarch64", "AARCH64":
		return Arm64, nil
	}
	return "", terrors.UnsupportedArchitecture(raw)
}

func (a Arch) String() string { return string(a) }

func (a Arch) MarshalText() ([]byte, error) { return []byte(a), nil }

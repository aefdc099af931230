// SPDX-License-Identifier: Apache-2.0
// Package target resolves a requested build target into a platform,
// architecture set and configuration set.
package target

import (
	"fmt"
	"strings"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
	"github.com/provide-io/trellis/pkg/toolchain"
)

const (
	// DefaultAndroidAPILevel is used when no Android version is requested.
	DefaultAndroidAPILevel = 21

	auto = "auto"
	all  = "all"
)

var androidAPILevels = map[string]int{
	"5.0": 21,
	"5.1": 22,
	"6.0": 23,
	"7.0": 24,
	"7.1": 25,
	"8.0": 26,
	"8.1": 27,
	"9.0": 28,
}

var (
	defaultConfigs = []string{"Debug", "Release"}
	allConfigs     = []string{"Debug", "Release", "MinSizeRel", "RelWithDebInfo"}
)

// Request is the user's target selection; empty strings mean "auto".
type Request struct {
	Target       string
	Archs        string
	Configs      string
	PreferShared bool
}

// AndroidFinder locates an Android toolchain.
type AndroidFinder interface {
	FindAndroid() (*toolchain.AndroidInstall, error)
}

// Target is a resolved build target.
type Target struct {
	Platform platform.Platform `json:"platform"`
	// Name is embedded in build directory names: the host display name for
	// desktop targets, "Android" or "iOS" for mobile ones.
	Name           string                    `json:"name"`
	APILevel       int                       `json:"api_level,omitempty"`
	Archs          []platform.Arch           `json:"archs"`
	Configs        []string                  `json:"configs"`
	PreferShared   bool                      `json:"prefer_shared"`
	BuildShared    bool                      `json:"build_shared"`
	CrossCompiling bool                      `json:"cross_compiling"`
	Android        *toolchain.AndroidInstall `json:"android,omitempty"`
}

// Resolve turns req into a Target for host. android is consulted only for
// android targets.
func Resolve(req Request, host platform.Host, android AndroidFinder) (*Target, error) {
	t := &Target{PreferShared: req.PreferShared}

	name, version, hasVersion := strings.Cut(strings.TrimSpace(req.Target), " ")
	name = strings.ToLower(name)

	switch {
	case name == "" || name == auto:
		t.Platform = host.Family.Platform()
	case strings.HasPrefix(name, "android"):
		t.Platform = platform.TargetAndroid
		t.APILevel = DefaultAndroidAPILevel
		if hasVersion {
			level, ok := androidAPILevels[strings.TrimSpace(version)]
			if !ok {
				return nil, terrors.UnsupportedVersion("android", strings.TrimSpace(version))
			}
			t.APILevel = level
		}
		install, err := android.FindAndroid()
		if err != nil {
			return nil, err
		}
		t.Android = install
	case name == string(platform.TargetIOS):
		if host.Family != platform.Darwin {
			return nil, fmt.Errorf("%w: ios targets need a darwin host", terrors.ErrUnsupportedPlatform)
		}
		t.Platform = platform.TargetIOS
	case name == string(host.Family):
		t.Platform = host.Family.Platform()
	default:
		return nil, terrors.UnsupportedPlatform(req.Target)
	}

	switch t.Platform {
	case platform.TargetAndroid:
		t.Name = "Android"
	case platform.TargetIOS:
		t.Name = "iOS"
	default:
		t.Name = host.DisplayName
	}

	t.CrossCompiling = host.Family.Platform() != t.Platform
	t.BuildShared = req.PreferShared && !t.Platform.IsMobile()

	archs, err := ResolveArchs(req.Archs, t.Platform)
	if err != nil {
		return nil, err
	}
	t.Archs = archs
	t.Configs = ResolveConfigs(req.Configs)

	return t, nil
}

// ResolveArchs expands an architecture request: "auto" is one default
// architecture for the platform, "all" every supported one, anything else a
// pipe-delimited list kept in order without duplicates.
func ResolveArchs(raw string, p platform.Platform) ([]platform.Arch, error) {
	switch raw = strings.ToLower(strings.TrimSpace(raw)); raw {
	case "", auto:
		if p.IsMobile() {
			return []platform.Arch{platform.Arm64}, nil
		}
		return []platform.Arch{platform.X64}, nil
	case all:
		switch p {
		case platform.TargetAndroid:
			return []platform.Arch{platform.Arm64, platform.Arm32, platform.X64, platform.X86}, nil
		case platform.TargetIOS:
			return []platform.Arch{platform.Arm64, platform.X64}, nil
		}
		return []platform.Arch{platform.X64}, nil
	}

	var archs []platform.Arch
	seen := map[platform.Arch]bool{}
	for _, part := range strings.Split(raw, "|") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		a, err := platform.ParseArch(part)
		if err != nil {
			return nil, err
		}
		if !seen[a] {
			seen[a] = true
			archs = append(archs, a)
		}
	}
	if len(archs) == 0 {
		return nil, terrors.UnsupportedArchitecture(raw)
	}
	return archs, nil
}

// ResolveConfigs expands a configuration request: "auto" is Debug and
// Release, "all" the four CMake configurations, anything else a
// pipe-delimited list kept verbatim in order without duplicates.
func ResolveConfigs(raw string) []string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", auto:
		return append([]string(nil), defaultConfigs...)
	case all:
		return append([]string(nil), allConfigs...)
	}

	var configs []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		configs = append(configs, part)
	}
	return configs
}

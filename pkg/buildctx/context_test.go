package buildctx

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/trellis/pkg/config"
	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
	"github.com/provide-io/trellis/pkg/target"
	"github.com/provide-io/trellis/pkg/toolchain"
)

type probeRunner map[string]string

func (p probeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	out, ok := p[strings.TrimSpace(name+" "+strings.Join(args, " "))]
	if !ok {
		return nil, errors.New("exec: not found")
	}
	return []byte(out), nil
}

var linuxHost = platform.Host{Family: platform.Linux, Arch: platform.X64, DisplayName: "Ubuntu_20_04"}

func linuxLocator(cmakeVersion string) *toolchain.Locator {
	path := map[string]string{
		"g++":   "/usr/bin/g++",
		"cmake": "/usr/bin/cmake",
		"make":  "/usr/bin/make",
	}
	l := toolchain.NewLocator(linuxHost, hclog.NewNullLogger())
	l.Getenv = func(string) (string, bool) { return "", false }
	l.LookPath = func(name string) (string, error) {
		if p, ok := path[name]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}
	l.HomeDir = func() (string, error) { return "", errors.New("no home") }
	l.Runner = probeRunner{
		"/usr/bin/g++ -dumpfullversion": "9.3.0\n",
		"/usr/bin/cmake --version":      "cmake version " + cmakeVersion + "\n\nCMake suite maintained by Kitware\n",
	}
	return l
}

func TestNewResolvesLinuxDefaults(t *testing.T) {
	host := linuxHost
	seed := config.New()
	seed.Set("bin_dir_name", "out")

	c, err := New(context.Background(), Options{Config: seed, Jobs: 6}, Deps{
		Host:    &host,
		Locator: linuxLocator("3.16.3"),
	})
	require.NoError(t, err)

	assert.Equal(t, platform.TargetLinux, c.Target.Platform)
	assert.Equal(t, "Ubuntu_20_04", c.Target.Name)
	assert.False(t, c.CrossCompiling())
	assert.Equal(t, toolchain.GeneratorMake, c.Toolchain.Generator)
	assert.Equal(t, "gcc93", c.Toolchain.CompilerTag())
	assert.Equal(t, "/usr/bin/cmake", c.CMakePath)
	assert.Equal(t, 316, c.CMakeVersion)
	assert.Equal(t, "/usr/bin/make", c.MakeProgram)
	assert.Equal(t, 6, c.Jobs)
	assert.Equal(t, []string{"Debug", "Release"}, c.Target.Configs)

	c.SetConfig("need_gen", "TRUE")
	assert.Equal(t, "TRUE", c.GetConfig("NEED_GEN", ""))
	assert.Equal(t, "out", c.GetConfig("BIN_DIR_NAME", "bin"))
	_, ok := seed.Lookup("NEED_GEN")
	assert.False(t, ok, "the seed table is not mutated")

	assert.Equal(t, "doc", c.GetConfig("doc_dir_name", "doc"))
	_, ok = c.Config().Lookup("DOC_DIR_NAME")
	assert.True(t, ok, "defaults are recorded")
}

func TestNewDefaultsJobsToCPUCount(t *testing.T) {
	host := linuxHost
	c, err := New(context.Background(), Options{}, Deps{Host: &host, Locator: linuxLocator("3.9.0")})
	require.NoError(t, err)
	assert.Positive(t, c.Jobs)
}

func TestNewRejectsOldCMake(t *testing.T) {
	host := linuxHost
	_, err := New(context.Background(), Options{}, Deps{Host: &host, Locator: linuxLocator("3.8.2")})
	assert.ErrorIs(t, err, terrors.ErrVersionTooLow)
	assert.Contains(t, err.Error(), "3.8 found, 3.9")
}

func TestNewPropagatesResolutionErrors(t *testing.T) {
	host := linuxHost
	testCases := []struct {
		name string
		opts Options
		want error
	}{
		{"ios on linux", Options{Target: "ios"}, terrors.ErrUnsupportedPlatform},
		{"unknown generator", Options{Generator: "vs2022"}, terrors.ErrIncompatibleToolchain},
		{"xcode on linux", Options{Generator: "xcode"}, terrors.ErrIncompatibleToolchain},
		{"bad arch", Options{Archs: "mips"}, terrors.ErrUnsupportedArchitecture},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(context.Background(), tc.opts, Deps{Host: &host, Locator: linuxLocator("3.16.3")})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDisplay(t *testing.T) {
	color.NoColor = true
	host := linuxHost
	c, err := New(context.Background(), Options{Configs: "Release"}, Deps{Host: &host, Locator: linuxLocator("3.16.3")})
	require.NoError(t, err)

	var buf bytes.Buffer
	c.Display(&buf)
	out := buf.String()

	assert.Contains(t, out, "Build information:")
	assert.Contains(t, out, "\tCMake version: 316\n")
	assert.Contains(t, out, "\tTarget platform: Ubuntu_20_04\n")
	assert.Contains(t, out, "\tGenerator: Unix Makefiles\n")
	assert.Contains(t, out, "\tCompiler: gcc93\n")
	assert.Contains(t, out, "\tArchitectures: x64\n")
	assert.Contains(t, out, "\tConfigurations: Release\n")
	assert.NotContains(t, out, "Android")
}

func TestCrossCompiling(t *testing.T) {
	testCases := []struct {
		name        string
		targetCross bool
		archCross   []bool
		want        bool
	}{
		{"native", false, []bool{false}, false},
		{"foreign platform", true, []bool{false}, true},
		{"foreign arch", false, []bool{false, true}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Context{
				Target:    &target.Target{CrossCompiling: tc.targetCross},
				Toolchain: &toolchain.Toolchain{},
			}
			for _, cross := range tc.archCross {
				c.Toolchain.Archs = append(c.Toolchain.Archs, toolchain.ArchSpec{CrossCompiling: cross})
			}
			assert.Equal(t, tc.want, c.CrossCompiling())
		})
	}
}

package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
)

func TestCheckCompatible(t *testing.T) {
	testCases := []struct {
		gen      Generator
		compiler Compiler
		target   platform.Platform
		host     platform.Family
		ok       bool
	}{
		{GeneratorVS2019, CompilerVC142, platform.TargetWindows, platform.Windows, true},
		{GeneratorVS2019, CompilerVC140, platform.TargetWindows, platform.Windows, true},
		{GeneratorVS2017, CompilerVC142, platform.TargetWindows, platform.Windows, false},
		{GeneratorVS2015, CompilerVC141, platform.TargetWindows, platform.Windows, false},
		{GeneratorVS2019, CompilerClang, platform.TargetWindows, platform.Windows, false},
		{GeneratorXcode, CompilerClang, platform.TargetDarwin, platform.Darwin, true},
		{GeneratorXcode, CompilerGCC, platform.TargetDarwin, platform.Darwin, false},
		{GeneratorXcode, CompilerClang, platform.TargetLinux, platform.Linux, false},
		{GeneratorMake, CompilerGCC, platform.TargetLinux, platform.Linux, true},
		{GeneratorNinja, CompilerClang, platform.TargetLinux, platform.Linux, true},
		{GeneratorMake, CompilerMinGW, platform.TargetWindows, platform.Windows, true},
		{GeneratorNinja, CompilerVC142, platform.TargetWindows, platform.Windows, true},
		{GeneratorMake, CompilerVC141, platform.TargetLinux, platform.Linux, false},
		{GeneratorMake, CompilerGCC, platform.TargetAndroid, platform.Linux, false},
		{GeneratorNinja, CompilerClang, platform.TargetAndroid, platform.Linux, true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.gen)+"_"+string(tc.compiler)+"_"+string(tc.target), func(t *testing.T) {
			err := CheckCompatible(tc.gen, tc.compiler, tc.target, tc.host)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, terrors.ErrIncompatibleToolchain)
			}
		})
	}
}

func TestGeneratorProperties(t *testing.T) {
	assert.True(t, GeneratorVS2017.MultiConfig())
	assert.True(t, GeneratorXcode.MultiConfig())
	assert.False(t, GeneratorMake.MultiConfig())
	assert.False(t, GeneratorNinja.MultiConfig())

	assert.Equal(t, "Visual Studio 16 2019", GeneratorVS2019.DisplayName(platform.Windows))
	assert.Equal(t, "MinGW Makefiles", GeneratorMake.DisplayName(platform.Windows))
	assert.Equal(t, "Unix Makefiles", GeneratorMake.DisplayName(platform.Linux))
	assert.Equal(t, 15, GeneratorVS2017.VSVersion())

	assert.Equal(t, "vc", CompilerVC141.ShortName())
	assert.Equal(t, "mgw", CompilerMinGW.ShortName())
	assert.Equal(t, "gcc", CompilerGCC.ShortName())

	g, err := ParseGenerator("auto")
	require.NoError(t, err)
	assert.Equal(t, GeneratorAuto, g)
	_, err = ParseGenerator("vs2022")
	assert.ErrorIs(t, err, terrors.ErrIncompatibleToolchain)
}

func TestResolveLinux(t *testing.T) {
	l, _ := newTestLocator(linuxHost, nil, map[string]string{"g++": "/usr/bin/g++"}, map[string]string{
		"/usr/bin/g++ -dumpfullversion": "9.2.1\n",
	})

	tc, err := l.Resolve(context.Background(), Request{
		Target: platform.TargetLinux,
		Archs:  []platform.Arch{platform.X64},
	})
	require.NoError(t, err)
	assert.Equal(t, GeneratorMake, tc.Generator)
	assert.Equal(t, CompilerGCC, tc.Compiler)
	assert.Equal(t, "gcc92", tc.CompilerTag())
	assert.Equal(t, "Unix Makefiles", tc.GeneratorName)
	assert.False(t, tc.MultiConfig)
	require.Len(t, tc.Archs, 1)
	assert.False(t, tc.Archs[0].CrossCompiling)
	assert.Empty(t, tc.Archs[0].CompilerRoot)
}

func TestResolveAndroidStudio(t *testing.T) {
	ndk := "/sdk/ndk/21.3"
	install := &AndroidInstall{Studio: true, SDK: "/sdk", NDK: ndk}
	clang := install.Clang(linuxHost)
	l, _ := newTestLocator(linuxHost, nil, nil, map[string]string{
		clang + " --version": "Android (6454773 based on r365631c2) clang version 9.0.8\n",
	})

	tc, err := l.Resolve(context.Background(), Request{
		Target:  platform.TargetAndroid,
		Archs:   []platform.Arch{platform.Arm64, platform.X64},
		Android: install,
	})
	require.NoError(t, err)
	assert.Equal(t, GeneratorNinja, tc.Generator)
	assert.Equal(t, CompilerClang, tc.Compiler)
	assert.Equal(t, 90, tc.CompilerVersion)
	require.Len(t, tc.Archs, 2)
	for _, spec := range tc.Archs {
		assert.True(t, spec.CrossCompiling)
		assert.Equal(t, "Ninja", spec.GeneratorName)
	}
}

func TestResolveDarwinRejectsArm64(t *testing.T) {
	host := platform.Host{Family: platform.Darwin, Arch: platform.X64}
	l, _ := newTestLocator(host, nil, map[string]string{"clang++": "/usr/bin/clang++"}, map[string]string{
		"/usr/bin/clang++ --version": "Apple clang version 11.0.0 (clang-1100.0.33.17)\n",
	})

	tc, err := l.Resolve(context.Background(), Request{Target: platform.TargetDarwin, Archs: []platform.Arch{platform.X64}})
	require.NoError(t, err)
	assert.Equal(t, GeneratorXcode, tc.Generator)
	assert.True(t, tc.MultiConfig)

	_, err = l.Resolve(context.Background(), Request{Target: platform.TargetDarwin, Archs: []platform.Arch{platform.Arm64}})
	assert.ErrorIs(t, err, terrors.ErrUnsupportedArchitecture)
}

func TestResolveIncompatibleRequest(t *testing.T) {
	l, _ := newTestLocator(linuxHost, nil, nil, nil)
	_, err := l.Resolve(context.Background(), Request{
		Target:    platform.TargetLinux,
		Archs:     []platform.Arch{platform.X64},
		Generator: GeneratorXcode,
		Compiler:  CompilerGCC,
	})
	assert.ErrorIs(t, err, terrors.ErrIncompatibleToolchain)
}

// fakeVisualStudio lays out a Program Files tree with one Visual Studio edition.
func fakeVisualStudio(t *testing.T, name, edition string) (string, string) {
	t.Helper()
	programFiles := t.TempDir()
	folder := filepath.Join(programFiles, "Microsoft Visual Studio", name, edition, "VC", "Auxiliary", "Build")
	require.NoError(t, os.MkdirAll(folder, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, vcvarsAll), []byte("@echo off\n"), 0644))
	return programFiles, folder
}

func TestFindVSFolderProbesEditions(t *testing.T) {
	windowsHost := platform.Host{Family: platform.Windows, Arch: platform.X64}
	programFiles, folder := fakeVisualStudio(t, "2019", "BuildTools")

	l, _ := newTestLocator(windowsHost, map[string]string{"ProgramFiles(x86)": programFiles}, nil, nil)
	assert.Equal(t, programFiles, l.ProgramFilesFolder())
	assert.Equal(t, folder, l.FindVSFolder(context.Background(), 16, "2019"))
	assert.Equal(t, "", l.FindVSFolder(context.Background(), 15, "2017"))
}

func TestFindVSFolderUsesVSWhere(t *testing.T) {
	windowsHost := platform.Host{Family: platform.Windows, Arch: platform.X64}
	programFiles := t.TempDir()
	installer := filepath.Join(programFiles, "Microsoft Visual Studio", "Installer")
	require.NoError(t, os.MkdirAll(installer, 0755))
	vswhere := filepath.Join(installer, "vswhere.exe")
	require.NoError(t, os.WriteFile(vswhere, nil, 0755))

	install := t.TempDir()
	folder := filepath.Join(install, "VC", "Auxiliary", "Build")
	require.NoError(t, os.MkdirAll(folder, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, vcvarsAll), nil, 0644))

	l, runner := newTestLocator(windowsHost, map[string]string{"ProgramFiles(x86)": programFiles}, nil, map[string]string{
		vswhere + " -products * -latest -requires " + vcToolsProduct +
			" -property installationPath -version [16.0,17.0) -prerelease": install + "\r\n",
	})

	assert.Equal(t, folder, l.FindVSFolder(context.Background(), 16, "2019"))
	assert.Equal(t, folder, l.FindVSFolder(context.Background(), 16, "2019"))
	assert.Len(t, runner.calls, 1)
}

func TestResolveWindowsAutoSelectsNewestVisualStudio(t *testing.T) {
	windowsHost := platform.Host{Family: platform.Windows, Arch: platform.X64}
	programFiles, folder := fakeVisualStudio(t, "Preview", "Community")
	l, _ := newTestLocator(windowsHost, map[string]string{"ProgramFiles(x86)": programFiles}, nil, nil)

	tc, err := l.Resolve(context.Background(), Request{
		Target: platform.TargetWindows,
		Archs:  []platform.Arch{platform.X64, platform.Arm64},
	})
	require.NoError(t, err)
	assert.Equal(t, GeneratorVS2019, tc.Generator)
	assert.Equal(t, CompilerVC142, tc.Compiler)
	assert.Equal(t, "vc142", tc.CompilerTag())
	assert.Equal(t, 16, tc.VSVersion)
	require.Len(t, tc.Archs, 2)
	assert.Equal(t, "amd64", tc.Archs[0].VCVarsArgs)
	assert.Equal(t, "x64", tc.Archs[0].MSBuildPlatform)
	assert.Equal(t, filepath.Join(folder, vcvarsAll), tc.Archs[0].VCVarsAll)
	assert.Equal(t, "amd64_arm64", tc.Archs[1].VCVarsArgs)
	assert.True(t, tc.Archs[1].CrossCompiling)

	tc, err = l.Resolve(context.Background(), Request{
		Target:    platform.TargetWindows,
		Archs:     []platform.Arch{platform.Arm32},
		Generator: GeneratorVS2019,
		Compiler:  CompilerVC141,
	})
	require.NoError(t, err)
	assert.Equal(t, "amd64_arm -vcvars_ver=14.1", tc.Archs[0].VCVarsArgs)
	assert.Equal(t, "ARM", tc.Archs[0].MSBuildPlatform)

	_, err = l.Resolve(context.Background(), Request{
		Target: platform.TargetWindows,
		Archs:  []platform.Arch{platform.X86},
	})
	assert.ErrorIs(t, err, terrors.ErrUnsupportedArchitecture)
}

func TestResolveWindowsWithoutCompilerFails(t *testing.T) {
	windowsHost := platform.Host{Family: platform.Windows, Arch: platform.X64}
	l, _ := newTestLocator(windowsHost, map[string]string{"ProgramFiles(x86)": t.TempDir()}, nil, nil)

	_, err := l.Resolve(context.Background(), Request{
		Target: platform.TargetWindows,
		Archs:  []platform.Arch{platform.X64},
	})
	assert.ErrorIs(t, err, terrors.ErrToolNotFound)
}

func TestResolveWindowsFallsBackToMinGW(t *testing.T) {
	windowsHost := platform.Host{Family: platform.Windows, Arch: platform.X64}
	gpp := filepath.Join("C:", "mingw64", "bin", "g++.exe")
	l, _ := newTestLocator(windowsHost,
		map[string]string{"ProgramFiles(x86)": t.TempDir()},
		map[string]string{"g++": gpp},
		map[string]string{gpp + " -dumpfullversion": "8.1.0"})

	tc, err := l.Resolve(context.Background(), Request{
		Target: platform.TargetWindows,
		Archs:  []platform.Arch{platform.X64},
	})
	require.NoError(t, err)
	assert.Equal(t, GeneratorMake, tc.Generator)
	assert.Equal(t, CompilerMinGW, tc.Compiler)
	assert.Equal(t, "mgw81", tc.CompilerTag())
	assert.Equal(t, "MinGW Makefiles", tc.GeneratorName)
	assert.Equal(t, filepath.Dir(gpp), tc.Archs[0].CompilerRoot)
}

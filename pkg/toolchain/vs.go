package toolchain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
)

const (
	vcvarsAll      = "VCVARSALL.BAT"
	vcToolsProduct = "Microsoft.VisualStudio.Component.VC.Tools.x86.x64"
	envVS140Tools  = "VS140COMNTOOLS"
)

var (
	vsEditions = []string{"Community", "Professional", "Enterprise", "BuildTools"}
)

// MSVCInstall is a located Visual C++ toolset.
type MSVCInstall struct {
	// Root is the directory holding the environment setup script.
	Root string
	// VCVarsAll is the absolute path of vcvarsall.bat.
	VCVarsAll string
	// Options are extra vcvarsall arguments selecting an older toolset.
	Options string
}

// ProgramFilesFolder returns the 32-bit Program Files directory, where
// Visual Studio installs itself.
func (l *Locator) ProgramFilesFolder() string {
	return l.memoString("programfiles", func() string {
		if l.Host.Arch == platform.X64 {
			if v, ok := l.env("ProgramFiles(x86)"); ok {
				return v
			}
			if v := knownProgramFiles(true); v != "" {
				return v
			}
			return `C:\Program Files (x86)`
		}
		if v, ok := l.env("ProgramFiles"); ok {
			return v
		}
		if v := knownProgramFiles(false); v != "" {
			return v
		}
		return `C:\Program Files`
	})
}

// FindVSFolder returns the VC\Auxiliary\Build folder of a Visual Studio
// 2017+ installation, or "" when none is installed. vswhere is queried when
// present; otherwise the Preview and release editions are probed in order.
func (l *Locator) FindVSFolder(ctx context.Context, major int, year string) string {
	return l.memoString(fmt.Sprintf("vs:%d", major), func() string {
		programFiles := l.ProgramFilesFolder()
		vswhere := filepath.Join(programFiles, "Microsoft Visual Studio", "Installer", "vswhere.exe")

		if exists(vswhere) {
			out, err := l.output(ctx, vswhere,
				"-products", "*",
				"-latest",
				"-requires", vcToolsProduct,
				"-property", "installationPath",
				"-version", fmt.Sprintf("[%d.0,%d.0)", major, major+1),
				"-prerelease")
			if err != nil {
				l.logger.Warn("⚠️ vswhere failed", "error", err)
				return ""
			}
			location := strings.TrimSpace(firstLine(out))
			if location == "" {
				return ""
			}
			folder := filepath.Join(location, "VC", "Auxiliary", "Build")
			if exists(filepath.Join(folder, vcvarsAll)) {
				return folder
			}
			return ""
		}

		for _, name := range []string{"Preview", year} {
			for _, edition := range vsEditions {
				folder := filepath.Join(programFiles, "Microsoft Visual Studio", name, edition, "VC", "Auxiliary", "Build")
				if exists(filepath.Join(folder, vcvarsAll)) {
					l.logger.Debug("🔍 Found Visual Studio", "version", major, "folder", folder)
					return folder
				}
			}
		}
		return ""
	})
}

// FindVS2015 locates the Visual C++ 14.0 toolset through VS140COMNTOOLS or
// its default install folder.
func (l *Locator) FindVS2015() (*MSVCInstall, error) {
	if v, ok := l.env(envVS140Tools); ok {
		root := filepath.Join(v, "..", "..", "VC", "bin")
		return &MSVCInstall{Root: root, VCVarsAll: filepath.Join(root, "..", vcvarsAll)}, nil
	}
	root := filepath.Join(l.ProgramFilesFolder(), "Microsoft Visual Studio 14.0", "VC", "bin")
	script := filepath.Join(root, "..", vcvarsAll)
	if exists(script) {
		return &MSVCInstall{Root: root, VCVarsAll: script}, nil
	}
	return nil, terrors.ToolNotFound("vc140", fmt.Sprintf("install Visual Studio 2015 or set %s", envVS140Tools))
}

// HasVS2015 reports whether FindVS2015 would succeed.
func (l *Locator) HasVS2015() bool {
	_, err := l.FindVS2015()
	return err == nil
}

// FindMSVC resolves the install that provides compiler when driven by gen.
// IDE generators pin the Visual Studio release; make and ninja use the
// release that ships the toolset natively.
func (l *Locator) FindMSVC(ctx context.Context, gen Generator, compiler Compiler) (*MSVCInstall, error) {
	host := gen
	if !gen.IsIDE() {
		switch compiler {
		case CompilerVC142:
			host = GeneratorVS2019
		case CompilerVC141:
			host = GeneratorVS2017
		default:
			host = GeneratorVS2015
		}
	}

	var folder string
	switch host {
	case GeneratorVS2019:
		folder = l.FindVSFolder(ctx, 16, "2019")
	case GeneratorVS2017:
		folder = l.FindVSFolder(ctx, 15, "2017")
	case GeneratorVS2015:
		return l.FindVS2015()
	}
	if folder == "" {
		return nil, terrors.ToolNotFound(string(compiler),
			fmt.Sprintf("no %s toolset found for Visual Studio %d", compiler, host.VSVersion()))
	}

	install := &MSVCInstall{Root: folder, VCVarsAll: filepath.Join(folder, vcvarsAll)}
	switch {
	case host == GeneratorVS2019 && compiler == CompilerVC141:
		install.Options = "-vcvars_ver=14.1"
	case (host == GeneratorVS2019 || host == GeneratorVS2017) && compiler == CompilerVC140:
		install.Options = "-vcvars_ver=14.0"
	}
	return install, nil
}

// VCVarsArch returns the vcvarsall host_target argument and the MSBuild
// platform name for an architecture. Only x64-hosted toolsets are used.
func VCVarsArch(arch platform.Arch) (vcvars, msbuild string, err error) {
	switch arch {
	case platform.X64:
		return "amd64", "x64", nil
	case platform.Arm32:
		return "amd64_arm", "ARM", nil
	case platform.Arm64:
		return "amd64_arm64", "ARM64", nil
	}
	return "", "", fmt.Errorf("%w: Visual C++ cannot target %q", terrors.ErrUnsupportedArchitecture, arch)
}

func (l *Locator) memoString(key string, probe func() string) string {
	v, _ := l.memo(key, func() (string, error) { return probe(), nil })
	return v
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

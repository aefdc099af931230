package toolchain

import (
	"context"
	"fmt"
	"path/filepath"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
)

// Request is the input of toolchain resolution.
type Request struct {
	Target    platform.Platform
	Archs     []platform.Arch
	Generator Generator
	Compiler  Compiler
	Android   *AndroidInstall
}

// ArchSpec is the toolchain bound to one target architecture.
type ArchSpec struct {
	Arch          platform.Arch `json:"arch"`
	GeneratorName string        `json:"generator"`
	CompilerRoot  string        `json:"compiler_root,omitempty"`
	// VCVarsAll and VCVarsArgs set up the MSVC environment before a step runs.
	VCVarsAll  string `json:"vcvarsall,omitempty"`
	VCVarsArgs string `json:"vcvarsall_args,omitempty"`
	// MSBuildPlatform is the -A / Platform= value for Visual Studio.
	MSBuildPlatform string `json:"msbuild_platform,omitempty"`
	CrossCompiling  bool   `json:"cross_compiling"`
}

// Toolchain is a validated generator and compiler pair with one ArchSpec
// per requested architecture.
type Toolchain struct {
	Generator       Generator  `json:"generator"`
	GeneratorName   string     `json:"generator_name"`
	VSVersion       int        `json:"vs_version,omitempty"`
	Compiler        Compiler   `json:"compiler"`
	CompilerVersion int        `json:"compiler_version"`
	CompilerPath    string     `json:"compiler_path,omitempty"`
	CompilerRoot    string     `json:"compiler_root,omitempty"`
	MultiConfig     bool       `json:"multi_config"`
	Archs           []ArchSpec `json:"archs"`
}

// CompilerTag is the compiler name and version embedded in directory names, e.g. "gcc92".
func (t *Toolchain) CompilerTag() string {
	return fmt.Sprintf("%s%d", t.Compiler.ShortName(), t.CompilerVersion)
}

// Resolve selects, validates and locates a toolchain for req.
func (l *Locator) Resolve(ctx context.Context, req Request) (*Toolchain, error) {
	gen, compiler, err := l.selectToolchain(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := CheckCompatible(gen, compiler, req.Target, l.Host.Family); err != nil {
		return nil, err
	}

	tc := &Toolchain{
		Generator:     gen,
		GeneratorName: gen.DisplayName(l.Host.Family),
		VSVersion:     gen.VSVersion(),
		Compiler:      compiler,
		MultiConfig:   gen.MultiConfig(),
	}

	var msvc *MSVCInstall
	switch {
	case compiler.IsMSVC():
		if msvc, err = l.FindMSVC(ctx, gen, compiler); err != nil {
			return nil, err
		}
		tc.CompilerRoot = msvc.Root
		tc.CompilerVersion = compiler.ToolsetVersion()
	case compiler == CompilerClang:
		if err := l.resolveClang(ctx, req, tc); err != nil {
			return nil, err
		}
	default:
		if tc.CompilerPath, err = l.FindGCC(); err != nil {
			return nil, err
		}
		if tc.CompilerVersion, err = l.GCCVersion(ctx, tc.CompilerPath); err != nil {
			return nil, err
		}
		if req.Target == platform.TargetWindows {
			tc.CompilerRoot = filepath.Dir(tc.CompilerPath)
		}
	}

	for _, arch := range req.Archs {
		spec, err := l.archSpec(tc, msvc, req.Target, arch)
		if err != nil {
			return nil, err
		}
		tc.Archs = append(tc.Archs, spec)
	}

	l.logger.Debug("🔧 Resolved toolchain",
		"generator", tc.Generator, "compiler", tc.CompilerTag(), "archs", len(tc.Archs))
	return tc, nil
}

func (l *Locator) resolveClang(ctx context.Context, req Request, tc *Toolchain) error {
	var err error
	if req.Target == platform.TargetAndroid {
		if req.Android == nil {
			return terrors.ToolNotFound("Android NDK", "android targets need a located NDK")
		}
		tc.CompilerPath = req.Android.Clang(l.Host)
	} else if tc.CompilerPath, err = l.FindClang(); err != nil {
		return err
	}
	if tc.CompilerVersion, err = l.ClangVersion(ctx, tc.CompilerPath); err != nil {
		return err
	}
	if req.Target == platform.TargetWindows {
		tc.CompilerRoot = filepath.Dir(tc.CompilerPath)
	}
	return nil
}

// selectToolchain fills in whichever of generator and compiler was left on auto.
func (l *Locator) selectToolchain(ctx context.Context, req Request) (Generator, Compiler, error) {
	gen, compiler := req.Generator, req.Compiler
	studio := req.Android != nil && req.Android.Studio

	switch {
	case gen == GeneratorAuto && compiler == CompilerAuto:
		return l.autoSelect(ctx, req.Target, studio)

	case compiler == CompilerAuto:
		switch gen {
		case GeneratorVS2019:
			return gen, CompilerVC142, nil
		case GeneratorVS2017:
			return gen, CompilerVC141, nil
		case GeneratorVS2015:
			return gen, CompilerVC140, nil
		case GeneratorXcode:
			return gen, CompilerClang, nil
		}
		c, err := l.defaultCompiler(req.Target)
		return gen, c, err

	case gen == GeneratorAuto:
		switch {
		case compiler == CompilerVC142:
			return GeneratorVS2019, compiler, nil
		case compiler == CompilerVC141:
			return GeneratorVS2017, compiler, nil
		case compiler == CompilerVC140:
			return GeneratorVS2015, compiler, nil
		case compiler == CompilerClang && (req.Target == platform.TargetDarwin || req.Target == platform.TargetIOS):
			return GeneratorXcode, compiler, nil
		case req.Target == platform.TargetAndroid && studio:
			return GeneratorNinja, compiler, nil
		}
		return GeneratorMake, compiler, nil
	}
	return gen, compiler, nil
}

// autoSelect picks the generator and compiler when both are on auto.
// Windows desktop prefers the newest Visual Studio, then clang, then MinGW.
func (l *Locator) autoSelect(ctx context.Context, target platform.Platform, studio bool) (Generator, Compiler, error) {
	switch target {
	case platform.TargetWindows:
		switch {
		case l.FindVSFolder(ctx, 16, "2019") != "":
			return GeneratorVS2019, CompilerVC142, nil
		case l.FindVSFolder(ctx, 15, "2017") != "":
			return GeneratorVS2017, CompilerVC141, nil
		case l.HasVS2015():
			return GeneratorVS2015, CompilerVC140, nil
		}
		c, err := l.defaultCompiler(target)
		return GeneratorMake, c, err
	case platform.TargetLinux:
		return GeneratorMake, CompilerGCC, nil
	case platform.TargetAndroid:
		if studio {
			return GeneratorNinja, CompilerClang, nil
		}
		return GeneratorMake, CompilerClang, nil
	case platform.TargetDarwin, platform.TargetIOS:
		return GeneratorXcode, CompilerClang, nil
	}
	return "", "", terrors.UnsupportedPlatform(string(target))
}

// defaultCompiler is the compiler used with make or ninja when none was requested.
func (l *Locator) defaultCompiler(target platform.Platform) (Compiler, error) {
	switch target {
	case platform.TargetLinux:
		return CompilerGCC, nil
	case platform.TargetAndroid, platform.TargetDarwin, platform.TargetIOS:
		return CompilerClang, nil
	case platform.TargetWindows:
		if _, err := l.FindClang(); err == nil {
			return CompilerClang, nil
		}
		if _, err := l.FindGCC(); err == nil {
			return CompilerMinGW, nil
		}
		return "", terrors.ToolNotFound("C++ compiler",
			"install Visual Studio 2015 or newer, clang++ or MinGW g++")
	}
	return "", terrors.UnsupportedPlatform(string(target))
}

// CheckCompatible validates a generator/compiler pair for a target.
func CheckCompatible(gen Generator, compiler Compiler, target platform.Platform, host platform.Family) error {
	ok := false
	switch gen {
	case GeneratorVS2019:
		ok = compiler.IsMSVC()
	case GeneratorVS2017:
		ok = compiler == CompilerVC141 || compiler == CompilerVC140
	case GeneratorVS2015:
		ok = compiler == CompilerVC140
	case GeneratorXcode:
		ok = compiler == CompilerClang
	case GeneratorMake, GeneratorNinja:
		ok = compiler == CompilerClang || compiler == CompilerGCC || compiler == CompilerMinGW ||
			(compiler.IsMSVC() && host == platform.Windows)
	}

	switch {
	case gen.IsIDE() || compiler.IsMSVC() || compiler == CompilerMinGW:
		ok = ok && target == platform.TargetWindows
	case gen == GeneratorXcode:
		ok = ok && (target == platform.TargetDarwin || target == platform.TargetIOS)
	}
	if target == platform.TargetAndroid {
		ok = ok && compiler == CompilerClang
	}

	if !ok {
		return terrors.IncompatibleToolchain(gen.String(), compiler.String())
	}
	return nil
}

func (l *Locator) archSpec(tc *Toolchain, msvc *MSVCInstall, target platform.Platform, arch platform.Arch) (ArchSpec, error) {
	spec := ArchSpec{
		Arch:           arch,
		GeneratorName:  tc.GeneratorName,
		CompilerRoot:   tc.CompilerRoot,
		CrossCompiling: target != l.Host.Family.Platform() || arch != l.Host.Arch,
	}

	switch target {
	case platform.TargetDarwin:
		// TODO: accept arm64 once CMAKE_OSX_ARCHITECTURES handles Apple silicon hosts.
		if arch != platform.X64 {
			return spec, fmt.Errorf("%w: darwin builds only target x64, got %q", terrors.ErrUnsupportedArchitecture, arch)
		}
	case platform.TargetIOS:
		if arch != platform.Arm64 && arch != platform.X64 {
			return spec, fmt.Errorf("%w: ios builds target arm64 or x64, got %q", terrors.ErrUnsupportedArchitecture, arch)
		}
	}

	if msvc != nil {
		vcvars, msbuild, err := VCVarsArch(arch)
		if err != nil {
			return spec, err
		}
		spec.VCVarsAll = msvc.VCVarsAll
		spec.VCVarsArgs = vcvars
		if msvc.Options != "" {
			spec.VCVarsArgs += " " + msvc.Options
		}
		spec.MSBuildPlatform = msbuild
	}
	return spec, nil
}

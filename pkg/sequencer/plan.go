// SPDX-License-Identifier: Apache-2.0
package sequencer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/provide-io/trellis/pkg/batch"
	"github.com/provide-io/trellis/pkg/config"
	"github.com/provide-io/trellis/pkg/platform"
	"github.com/provide-io/trellis/pkg/solution"
	"github.com/provide-io/trellis/pkg/toolchain"
)

// cmakeInput is the generated CMake directory relative to a build tree.
const cmakeInput = "../cmake"

// Phase is a state of the per-architecture sequence.
type Phase string

const (
	PhasePreGenerate Phase = "PreGenerate"
	PhaseConfigure   Phase = "Configure"
	PhaseBuild       Phase = "Build"
	PhaseInstall     Phase = "Install"
)

// Step is one planned external invocation.
type Step struct {
	batch.Step
	Phase       Phase
	Arch        platform.Arch
	Config      string // empty for multi-config configure and pre-generation
	CompileInfo string
	// Clean recreates Dir before the step runs.
	Clean bool
}

// Plan returns the ordered steps for sol: architectures in order, and for
// each one pre-generation, configure, build and install.
func (s *Sequencer) Plan(sol *solution.Solution, layout Layout, req Request) ([]Step, error) {
	var steps []Step
	for _, spec := range s.bc.Toolchain.Archs {
		var (
			archSteps []Step
			err       error
		)
		if s.bc.Toolchain.MultiConfig {
			archSteps, err = s.planMultiConfig(sol, layout, req, spec)
		} else {
			archSteps, err = s.planSingleConfig(sol, layout, req, spec)
		}
		if err != nil {
			return nil, err
		}
		steps = append(steps, archSteps...)
	}
	return steps, nil
}

// CompileInfo names the build tree of arch, e.g. make_ubuntu_20_04_gcc93_x64.
func (s *Sequencer) CompileInfo(arch platform.Arch) string {
	ci := fmt.Sprintf("%s_%s_%s_%s",
		s.bc.Toolchain.Generator, strings.ToLower(s.bc.Target.Name), s.bc.Toolchain.CompilerTag(), arch)
	if s.bc.Target.BuildShared {
		ci += "_shared"
	}
	return ci
}

func (s *Sequencer) planMultiConfig(sol *solution.Solution, layout Layout, req Request, spec toolchain.ArchSpec) ([]Step, error) {
	tc := s.bc.Toolchain
	ci := s.CompileInfo(spec.Arch)
	env := s.stepEnv(ci)
	name := sol.Name()

	cmakeOpts, err := s.archOptions(layout, req, spec)
	if err != nil {
		return nil, err
	}
	toolset := s.toolset()
	if tc.Generator.IsIDE() {
		cmakeOpts = append(cmakeOpts, "-A", spec.MSBuildPlatform)
	}

	steps := s.preGenerate(sol, layout, spec, ci, env, toolset, cmakeOpts)

	dir := filepath.Join(layout.Build, ci)
	sc := newScript(s.bc.Host.Family)
	sc.extendPath(filepath.Dir(s.bc.CMakePath), spec.CompilerRoot)
	sc.vcvars(spec, dir)
	sc.command(s.bc.CMakePath, append(append(append([]string{"-G", spec.GeneratorName}, toolset...), cmakeOpts...), cmakeInput)...)
	steps = append(steps, s.step(PhaseConfigure, spec, "", ci, req.Clean, env, batch.Step{
		Batch:   &batch.Batch{Task: "CMake " + name, Dir: dir, Lines: sc.lines},
		LogName: "cmake_" + strings.ToLower(name),
	}))

	for _, phase := range s.phases(req) {
		for _, cfg := range s.bc.Target.Configs {
			sc := newScript(s.bc.Host.Family)
			sc.vcvars(spec, dir)
			switch {
			case tc.Generator.IsIDE():
				project := "ALL_BUILD"
				if phase == PhaseInstall {
					project = "INSTALL"
				}
				sc.msbuild(tc.VSVersion, project, cfg, spec.MSBuildPlatform, s.bc.Jobs)
			default:
				target := "ALL_BUILD"
				if phase == PhaseInstall {
					target = "install"
				}
				sc.xcodebuild(target, cfg, s.bc.Jobs)
			}
			steps = append(steps, s.phaseStep(phase, name, cfg, spec, ci, env, req, dir, sc))
		}
	}
	return steps, nil
}

func (s *Sequencer) planSingleConfig(sol *solution.Solution, layout Layout, req Request, spec toolchain.ArchSpec) ([]Step, error) {
	ci := s.CompileInfo(spec.Arch)
	env := s.stepEnv(ci)
	name := sol.Name()

	base, err := s.archOptions(layout, req, spec)
	if err != nil {
		return nil, err
	}

	var steps []Step
	for i, cfg := range s.bc.Target.Configs {
		cfgOpts, err := s.configOptions(base, spec, cfg)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			steps = append(steps, s.preGenerate(sol, layout, spec, ci, env, nil, cfgOpts)...)
		}

		dir := filepath.Join(layout.Build, ci+"-"+strings.ToLower(cfg))
		sc := newScript(s.bc.Host.Family)
		sc.extendPath(filepath.Dir(s.bc.CMakePath), spec.CompilerRoot)
		sc.vcvars(spec, dir)
		sc.command(s.bc.CMakePath, append(append([]string{"-G", spec.GeneratorName}, cfgOpts...), cmakeInput)...)
		steps = append(steps, s.step(PhaseConfigure, spec, cfg, ci, req.Clean, env, batch.Step{
			Batch:   &batch.Batch{Task: fmt.Sprintf("CMake %s %s", name, cfg), Dir: dir, Lines: sc.lines},
			LogName: fmt.Sprintf("cmake_%s_%s", strings.ToLower(name), strings.ToLower(cfg)),
		}))

		for _, phase := range s.phases(req) {
			sc := newScript(s.bc.Host.Family)
			sc.vcvars(spec, dir)
			target := ""
			if phase == PhaseInstall {
				target = "install"
			}
			sc.make(s.bc.MakeProgram, target, s.bc.Jobs)
			steps = append(steps, s.phaseStep(phase, name, cfg, spec, ci, env, req, dir, sc))
		}
	}
	return steps, nil
}

// preGenerate configures every project that carries its own CMakeLists.txt
// in build/gen_<compile info>/<project>.
func (s *Sequencer) preGenerate(sol *solution.Solution, layout Layout, spec toolchain.ArchSpec,
	ci string, env *config.Table, toolset, options []string) []Step {
	var steps []Step
	for _, gen := range sol.PreGenerations() {
		dir := filepath.Join(layout.Build, "gen_"+ci, gen.Name)
		sc := newScript(s.bc.Host.Family)
		sc.vcvars(spec, dir)
		args := []string{"-G", spec.GeneratorName}
		args = append(args, toolset...)
		args = append(args, options...)
		args = append(args, gen.Options...)
		args = append(args, gen.Dir)
		sc.command(s.bc.CMakePath, args...)
		steps = append(steps, s.step(PhasePreGenerate, spec, "", ci, true, env, batch.Step{
			Batch:   &batch.Batch{Task: "Generate " + gen.Name, Dir: dir, Lines: sc.lines},
			LogName: "gen_" + gen.Name,
		}))
	}
	return steps
}

func (s *Sequencer) phases(req Request) []Phase {
	var phases []Phase
	if req.GenerateOnly {
		return nil
	}
	if req.Build {
		phases = append(phases, PhaseBuild)
	}
	if req.Install {
		phases = append(phases, PhaseInstall)
	}
	return phases
}

func (s *Sequencer) phaseStep(phase Phase, name, cfg string, spec toolchain.ArchSpec, ci string,
	env *config.Table, req Request, dir string, sc *script) Step {
	retries := 0
	if phase == PhaseBuild {
		retries = req.BuildRetries
	}
	verb := "build"
	if phase == PhaseInstall {
		verb = "install"
	}
	return s.step(phase, spec, cfg, ci, false, env, batch.Step{
		Batch: &batch.Batch{
			Task:  fmt.Sprintf("%s %s %s", string(phase), name, cfg),
			Dir:   dir,
			Lines: sc.lines,
		},
		Retries: retries,
		LogName: fmt.Sprintf("%s_%s_%s", verb, strings.ToLower(name), strings.ToLower(cfg)),
	})
}

func (s *Sequencer) step(phase Phase, spec toolchain.ArchSpec, cfg, ci string, clean bool, env *config.Table, bs batch.Step) Step {
	bs.Env = env
	return Step{Step: bs, Phase: phase, Arch: spec.Arch, Config: cfg, CompileInfo: ci, Clean: clean}
}

// stepEnv is the table exported to the steps of one architecture.
func (s *Sequencer) stepEnv(ci string) *config.Table {
	env := s.bc.Config().Clone()
	env.Set("COMPILE_INFO", ci)
	return env
}

// toolset selects the Visual C++ toolset of IDE generators.
func (s *Sequencer) toolset() []string {
	if !s.bc.Toolchain.Generator.IsIDE() {
		return nil
	}
	return []string{"-T", fmt.Sprintf("v%d,host=x64", s.bc.Toolchain.CompilerVersion)}
}

// archOptions builds the CMake options of one architecture from scratch.
func (s *Sequencer) archOptions(layout Layout, req Request, spec toolchain.ArchSpec) ([]string, error) {
	out := append([]string(nil), req.CMakeArgs...)
	if !s.bc.Toolchain.Compiler.IsMSVC() {
		out = append(out, "-DBUILD_ARCH_NAME="+string(spec.Arch))
	}

	switch s.bc.Target.Platform {
	case platform.TargetAndroid:
		file, err := s.bc.Target.Android.ToolchainFile(layout.ModulePath)
		if err != nil {
			return nil, err
		}
		level := s.bc.Target.APILevel
		out = append(out,
			"-DCMAKE_TOOLCHAIN_FILE="+file,
			fmt.Sprintf("-DANDROID_NATIVE_API_LEVEL=%d", level),
			fmt.Sprintf("-DANDROID_PLATFORM=android-%d", level))
	case platform.TargetDarwin:
		out = append(out, "-DCMAKE_OSX_ARCHITECTURES=x86_64")
	case platform.TargetIOS:
		file, err := toolchain.IOSToolchainFile(layout.ModulePath)
		if err != nil {
			return nil, err
		}
		out = append(out, "-DCMAKE_TOOLCHAIN_FILE="+file, "-DDEPLOYMENT_TARGET=11.0")
		if spec.Arch == platform.Arm64 {
			out = append(out, "-DPLATFORM=OS64")
		} else {
			out = append(out, "-DPLATFORM=SIMULATOR64")
		}
	}
	return out, nil
}

// configOptions extends base with the options of one single-config tree.
func (s *Sequencer) configOptions(base []string, spec toolchain.ArchSpec, cfg string) ([]string, error) {
	out := append([]string(nil), base...)
	android := s.bc.Target.Platform == platform.TargetAndroid

	switch {
	case android:
		out = append(out, "-DCMAKE_MAKE_PROGRAM="+s.bc.MakeProgram)
	case s.bc.Toolchain.Compiler == toolchain.CompilerClang:
		if _, ok := s.getenv("CC"); !ok {
			out = append(out, "-DCMAKE_C_COMPILER=clang")
		}
		if _, ok := s.getenv("CXX"); !ok {
			out = append(out, "-DCMAKE_CXX_COMPILER=clang++")
		}
	}

	out = append(out, "-DCMAKE_BUILD_TYPE="+cfg)

	if android {
		abi, triple, err := toolchain.AndroidABI(spec.Arch)
		if err != nil {
			return nil, err
		}
		out = append(out,
			"-DANDROID_STL=c++_static",
			"-DANDROID_ABI="+abi,
			"-DANDROID_TOOLCHAIN_NAME="+triple+"-clang")
	}
	return out, nil
}

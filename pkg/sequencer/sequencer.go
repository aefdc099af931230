// SPDX-License-Identifier: Apache-2.0
// Package sequencer plans and runs the CMake invocations of a solution:
// pre-generation, configure, build and install for every architecture and
// configuration, one batch at a time.
package sequencer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/trellis/internal/workdir"
	"github.com/provide-io/trellis/pkg/archive"
	"github.com/provide-io/trellis/pkg/batch"
	"github.com/provide-io/trellis/pkg/buildctx"
	"github.com/provide-io/trellis/pkg/solution"
)

// DefaultBuildRetries is the retry budget of Build steps.
const DefaultBuildRetries = 3

// Request selects the phases of a run.
type Request struct {
	// GenerateOnly stops after configure.
	GenerateOnly bool
	Clean        bool
	Build        bool
	Install      bool
	BuildRetries int
	// CMakeArgs are passed to every configure invocation before trellis' own.
	CMakeArgs []string
	// Archive packs the install prefix after the install phase.
	Archive *archive.Format
}

// Layout is the directory tree of one solution.
type Layout struct {
	Root     string
	Binary   string
	Build    string
	Document string
	Install  string
	// ModulePath holds Trellis.cmake and the toolchain files.
	ModulePath string
	Dist       string
}

// Sequencer drives the steps of one BuildContext.
type Sequencer struct {
	bc     *buildctx.Context
	exec   *batch.Executor
	logger hclog.Logger

	// Getenv reads the process environment; tests replace it.
	Getenv func(string) (string, bool)
}

// New returns a Sequencer executing through exec.
func New(bc *buildctx.Context, exec *batch.Executor, logger hclog.Logger) *Sequencer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Sequencer{
		bc:     bc,
		exec:   exec,
		logger: logger.Named("sequencer"),
		Getenv: os.LookupEnv,
	}
}

func (s *Sequencer) getenv(key string) (string, bool) {
	if s.Getenv == nil {
		return os.LookupEnv(key)
	}
	return s.Getenv(key)
}

// Prepare records the solution layout in the configuration table and
// prepares the binary directory.
func (s *Sequencer) Prepare(sol *solution.Solution, req Request) (Layout, error) {
	root := sol.Dir()
	cfg := s.bc.Config()

	cfg.SetBool("NEED_GEN", req.GenerateOnly)
	cfg.SetBool("NEED_CLEAR", req.Clean)
	cfg.Set("ROOT_PATH", root)

	layout := Layout{
		Root:     root,
		Binary:   filepath.Join(root, cfg.Get("BIN_DIR_NAME", "bin")),
		Build:    filepath.Join(root, "build"),
		Document: filepath.Join(root, "doc"),
		Install:  filepath.Join(root, "prefix"),
		Dist:     filepath.Join(root, "dist"),
	}
	cfg.Set("BINARY_PATH", layout.Binary)
	cfg.Set("BUILD_PATH", layout.Build)
	cfg.Set("DOCUMENT_PATH", layout.Document)
	cfg.Get("INC_DIR_NAME", "include")
	cfg.Get("SRC_DIR_NAME", "src")
	cfg.Get("LIB_DIR_NAME", "lib")
	cfg.Set("INSTALL_PATH", layout.Install)

	module := cfg.Get("TRELLIS_BUILD_PATH", "Build")
	if !filepath.IsAbs(module) {
		module = filepath.Join(root, module)
	}
	layout.ModulePath = module
	cfg.Set("TRELLIS_BUILD_PATH", module)

	cfg.Set("PREFER_LIB", libKind(s.bc.Target.PreferShared))
	cfg.Set("BUILD_LIB", libKind(s.bc.Target.BuildShared))

	if err := workdir.Ensure(layout.Binary, req.Clean, false, s.logger); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

func libKind(shared bool) string {
	if shared {
		return "SHARED"
	}
	return "STATIC"
}

// Run emits the CMake input of sol and executes its plan. The first failing
// step aborts the run; directories it created are left in place.
func (s *Sequencer) Run(ctx context.Context, sol *solution.Solution, req Request) error {
	logger := s.logger.With("solution", sol.Name())
	logger.Info("🚀 Building solution", "path", sol.Path())

	layout, err := s.Prepare(sol, req)
	if err != nil {
		return err
	}
	if _, err := sol.Emit(layout.Build, req.Clean, logger); err != nil {
		return err
	}

	steps, err := s.Plan(sol, layout, req)
	if err != nil {
		return err
	}
	logger.Debug("📋 Planned steps", "count", len(steps))

	for _, st := range steps {
		if err := s.execute(ctx, st); err != nil {
			return err
		}
	}

	if req.Archive != nil {
		if err := s.archive(sol, layout, req); err != nil {
			return err
		}
	}

	logger.Info("✅ Solution done")
	return nil
}

func (s *Sequencer) execute(ctx context.Context, st Step) error {
	generator := s.bc.Toolchain.GeneratorName
	recreate := st.Clean
	if st.Phase == PhaseConfigure && !recreate && workdir.NeedsRecreate(st.Dir, generator) {
		s.logger.Warn("⚠️ Build tree was configured by another generator, recreating",
			"path", st.Dir, "generator", generator)
		recreate = true
	}
	if err := workdir.Ensure(st.Dir, recreate, true, s.logger); err != nil {
		return err
	}

	if st.Phase == PhaseConfigure {
		workdir.ClearStamp(st.Dir)
	}
	if err := s.exec.Execute(ctx, st.Step); err != nil {
		return err
	}
	if st.Phase == PhaseConfigure {
		if err := workdir.MarkConfigured(st.Dir, generator, st.CompileInfo); err != nil {
			return fmt.Errorf("stamping %s: %w", st.Dir, err)
		}
	}
	return nil
}

// ArchivePath is where the install prefix of sol is packed.
func (s *Sequencer) ArchivePath(sol *solution.Solution, layout Layout, f archive.Format) string {
	name := fmt.Sprintf("%s_%s.%s", sol.Name(), strings.ToLower(s.bc.Target.Name), f.Ext)
	return filepath.Join(layout.Dist, name)
}

func (s *Sequencer) archive(sol *solution.Solution, layout Layout, req Request) error {
	if !req.Install || req.GenerateOnly {
		s.logger.Warn("⚠️ Archive requested without install, skipping", "solution", sol.Name())
		return nil
	}
	_, err := archive.Create(layout.Install, s.ArchivePath(sol, layout, *req.Archive), *req.Archive, s.logger)
	return err
}

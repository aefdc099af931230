// SPDX-License-Identifier: Apache-2.0
// Package buildctx assembles the resolved configuration of one trellis run:
// host, target, toolchain, tool paths and the key/value table handed to
// every external command.
package buildctx

import (
	"context"
	"runtime"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/trellis/pkg/config"
	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
	"github.com/provide-io/trellis/pkg/target"
	"github.com/provide-io/trellis/pkg/toolchain"
)

// Options are the user's selections. Empty strings mean "auto".
type Options struct {
	Target       string
	Generator    string
	Compiler     string
	Archs        string
	Configs      string
	CMake        string
	PreferShared bool
	// Jobs is the build parallelism; zero means the logical CPU count.
	Jobs int
	// Config seeds the key/value table. It is cloned, never mutated.
	Config *config.Table
}

// Deps are the collaborators New uses; nil fields get production defaults.
type Deps struct {
	Host    *platform.Host
	Locator *toolchain.Locator
	Logger  hclog.Logger
}

// Context is the resolved configuration. It is built once per invocation and
// only mutated through SetConfig before the command sequence starts.
type Context struct {
	Host         platform.Host        `json:"host"`
	Target       *target.Target       `json:"target"`
	Toolchain    *toolchain.Toolchain `json:"toolchain"`
	CMakePath    string               `json:"cmake_path"`
	CMakeVersion int                  `json:"cmake_version"`
	MakeProgram  string               `json:"make_program"`
	Jobs         int                  `json:"jobs"`

	config *config.Table
}

// New runs probe, target resolution, tool location and toolchain validation
// in that order. Any failure is fatal to the run.
func New(ctx context.Context, opts Options, deps Deps) (*Context, error) {
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var host platform.Host
	if deps.Host != nil {
		host = *deps.Host
	} else {
		var err error
		if host, err = platform.DetectHost(); err != nil {
			return nil, err
		}
	}
	logger.Named("probe").Debug("🔍 Detected host",
		"family", host.Family, "arch", host.Arch, "name", host.DisplayName)

	locator := deps.Locator
	if locator == nil {
		locator = toolchain.NewLocator(host, logger)
	}

	gen, err := toolchain.ParseGenerator(opts.Generator)
	if err != nil {
		return nil, err
	}
	compiler, err := toolchain.ParseCompiler(opts.Compiler)
	if err != nil {
		return nil, err
	}

	tgt, err := target.Resolve(target.Request{
		Target:       opts.Target,
		Archs:        opts.Archs,
		Configs:      opts.Configs,
		PreferShared: opts.PreferShared,
	}, host, locator)
	if err != nil {
		return nil, err
	}
	logger.Named("resolver").Debug("🎯 Resolved target",
		"platform", tgt.Platform, "name", tgt.Name, "archs", tgt.Archs, "configs", tgt.Configs)

	tc, err := locator.Resolve(ctx, toolchain.Request{
		Target:    tgt.Platform,
		Archs:     tgt.Archs,
		Generator: gen,
		Compiler:  compiler,
		Android:   tgt.Android,
	})
	if err != nil {
		return nil, err
	}

	cmakePath, err := locator.FindCMake(opts.CMake, tgt.Android)
	if err != nil {
		return nil, err
	}
	cmakeVersion, err := locator.CMakeVersion(ctx, cmakePath)
	if err != nil {
		return nil, err
	}
	if cmakeVersion < toolchain.MinCMakeVersion {
		return nil, terrors.VersionTooLow("cmake", cmakeVersion, toolchain.MinCMakeVersion)
	}

	c := &Context{
		Host:         host,
		Target:       tgt,
		Toolchain:    tc,
		CMakePath:    cmakePath,
		CMakeVersion: cmakeVersion,
		MakeProgram:  locator.MakeProgram(tc.Generator, tgt.Platform, tgt.Android, cmakePath),
		Jobs:         opts.Jobs,
		config:       config.New(),
	}
	if c.Jobs <= 0 {
		c.Jobs = runtime.NumCPU()
	}
	if opts.Config != nil {
		c.config = opts.Config.Clone()
	}

	// CMake scripts find an install located at a default path only through
	// the table.
	if a := tgt.Android; a != nil && a.FromDefault {
		key, value := a.Environ()
		c.config.Set(key, value)
	}
	return c, nil
}

// Config returns the key/value table exported to every external command.
func (c *Context) Config() *config.Table {
	if c.config == nil {
		c.config = config.New()
	}
	return c.config
}

// SetConfig stores value under the upper-cased key.
func (c *Context) SetConfig(key, value string) { c.Config().Set(key, value) }

// GetConfig returns the value under key, recording def when it is missing.
func (c *Context) GetConfig(key, def string) string { return c.Config().Get(key, def) }

// CrossCompiling reports whether any architecture is a cross build.
func (c *Context) CrossCompiling() bool {
	if c.Target.CrossCompiling {
		return true
	}
	for _, a := range c.Toolchain.Archs {
		if a.CrossCompiling {
			return true
		}
	}
	return false
}

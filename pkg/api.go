package pkg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/trellis/internal/lock"
	"github.com/provide-io/trellis/pkg/batch"
	"github.com/provide-io/trellis/pkg/buildctx"
	"github.com/provide-io/trellis/pkg/config"
	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/sequencer"
	"github.com/provide-io/trellis/pkg/solution"
)

// Options is everything one trellis invocation needs.
type Options struct {
	// Solutions is a "|"-separated list of directories below Root holding a
	// solution.yaml. Empty means Root itself.
	Solutions string
	Root      string
	// ConfigFile is the dotenv file seeding the key/value table. A sibling
	// <ConfigFile>.default is copied into place when it is missing.
	ConfigFile string

	Context  buildctx.Options
	Sequence sequencer.Request
	// Deps overrides host probing and tool lookup.
	Deps buildctx.Deps

	PrefixOutput bool
	// Output receives the build summary and tool output. Nil means stdout.
	Output io.Writer
	Logger hclog.Logger
}

func (o *Options) defaults() {
	if o.Solutions == "" {
		o.Solutions = "."
	}
	if o.Root == "" {
		o.Root = "."
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = hclog.NewNullLogger()
	}
}

// Resolve loads the configuration table and builds the BuildContext.
func Resolve(ctx context.Context, opts Options) (*buildctx.Context, error) {
	opts.defaults()

	if opts.ConfigFile != "" {
		table, created, err := config.Load(opts.ConfigFile, opts.ConfigFile+".default")
		if err != nil {
			return nil, err
		}
		if created {
			opts.Logger.Info("📝 Generated config from template", "path", opts.ConfigFile)
		}
		if opts.Context.Config != nil {
			for _, k := range opts.Context.Config.Keys() {
				v, _ := opts.Context.Config.Lookup(k)
				table.Set(k, v)
			}
		}
		opts.Context.Config = table
	}

	deps := opts.Deps
	if deps.Logger == nil {
		deps.Logger = opts.Logger
	}
	return buildctx.New(ctx, opts.Context, deps)
}

// Run resolves the build context once and drives every solution through the
// sequencer, holding the build directory lock of each while it runs.
func Run(ctx context.Context, opts Options) error {
	opts.defaults()
	logger := opts.Logger

	solutions, err := solution.List(opts.Solutions, opts.Root)
	if err != nil {
		return err
	}
	if len(solutions) == 0 {
		return fmt.Errorf("%w: no %s found in %q under %s",
			terrors.ErrInvalidSolution, solution.FileName, opts.Solutions, opts.Root)
	}

	bc, err := Resolve(ctx, opts)
	if err != nil {
		return err
	}
	bc.Display(opts.Output)

	exec := &batch.Executor{
		Runner:       batch.NewScriptRunner(bc.Host.Family, logger),
		Output:       opts.Output,
		PrefixOutput: opts.PrefixOutput,
		Logger:       logger.Named("batch"),
	}
	seq := sequencer.New(bc, exec, logger)

	for _, sol := range solutions {
		if err := runSolution(ctx, seq, sol, opts.Sequence, logger); err != nil {
			return err
		}
	}
	return nil
}

func runSolution(ctx context.Context, seq *sequencer.Sequencer, sol *solution.Solution, req sequencer.Request, logger hclog.Logger) error {
	lk, err := lock.Acquire(filepath.Join(sol.Dir(), "build"), logger)
	if err != nil {
		return err
	}
	defer lk.Release()
	return seq.Run(ctx, sol, req)
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/provide-io/trellis/pkg"
	"github.com/provide-io/trellis/pkg/archive"
	"github.com/provide-io/trellis/pkg/buildctx"
	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/logging"
	"github.com/provide-io/trellis/pkg/sequencer"
	"github.com/provide-io/trellis/pkg/utils/shellparse"
)

const version = "0.3.0"

// flags holds the command line of one invocation.
type flags struct {
	target       string
	project      string
	compiler     string
	arch         string
	configSet    string
	cmake        string
	configFile   string
	cmakeArgs    string
	archive      string
	logLevel     string
	static       bool
	gen          bool
	clean        bool
	build        bool
	install      bool
	noPause      bool
	prefixOutput bool
	versionFlag  bool
	buildRetries int
	jobs         int
}

var (
	f       flags
	rootCmd *cobra.Command
)

func getBuilderTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func init() {
	rootCmd = newRootCmd(&f)
}

func newRootCmd(f *flags) *cobra.Command {
	root := &cobra.Command{
		Use:   "trellis [solutions]",
		Short: "Generate, build and install CMake solutions",
		Long: `Generate, build and install CMake solutions for every requested
architecture and configuration. solutions is a "|"-separated list of
directories holding a solution.yaml (default ".").`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.versionFlag {
				printVersion(cmd.OutOrStdout())
				return nil
			}
			opts, err := f.options(args, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return pkg.Run(cmd.Context(), opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.target, "target", "t", "auto", `Target platform, e.g. "linux" or "android 9.0"`)
	pf.StringVarP(&f.project, "project", "p", "auto", "Project generator (vs2019, vs2017, vs2015, xcode, make, ninja)")
	pf.StringVarP(&f.compiler, "compiler", "c", "auto", "Compiler (vc142, vc141, vc140, clang, gcc, mingw)")
	pf.StringVarP(&f.arch, "arch", "a", "auto", `Architectures: "auto", "all" or "|"-separated list`)
	pf.StringVar(&f.configSet, "config-set", "auto", `Configurations: "auto", "all" or "|"-separated list`)
	pf.BoolVar(&f.static, "static", false, "Prefer static libraries")
	pf.StringVar(&f.cmake, "cmake", "", "Path to cmake (default: $TRELLIS_CMAKE or PATH)")
	pf.StringVar(&f.configFile, "config", "build.env", "Key/value configuration file")
	pf.IntVarP(&f.jobs, "jobs", "j", 0, "Build parallelism (default: logical CPU count)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); json:<level> for JSON")
	pf.BoolVar(&f.noPause, "no-pause", false, "Do not wait for a key press after a fatal error")

	fl := root.Flags()
	fl.BoolVar(&f.gen, "gen", false, "Generate build trees only")
	fl.BoolVar(&f.clean, "clean", false, "Recreate build trees")
	fl.BoolVar(&f.build, "build", false, "Build every configuration")
	fl.BoolVar(&f.install, "install", false, "Install every configuration")
	fl.StringVar(&f.archive, "archive", "", "Pack the install prefix (tar, tar.gz, tar.bz2)")
	fl.IntVar(&f.buildRetries, "build-retries", sequencer.DefaultBuildRetries, "Retries of a failed build step")
	fl.StringVar(&f.cmakeArgs, "cmake-args", "", "Extra options passed to every cmake configure")
	fl.BoolVar(&f.prefixOutput, "prefix-output", false, "Prefix tool output with the step name")
	fl.BoolVarP(&f.versionFlag, "version", "V", false, "Show version information")

	root.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Resolve and print the build context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.options(nil, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			bc, err := pkg.Resolve(cmd.Context(), opts)
			if err != nil {
				return err
			}
			bc.Display(cmd.OutOrStdout())
			return nil
		},
	})
	return root
}

// options turns the command line into pkg.Options.
func (f *flags) options(args []string, out io.Writer) (pkg.Options, error) {
	opts := pkg.Options{
		ConfigFile: f.configFile,
		Context: buildctx.Options{
			Target:       f.target,
			Generator:    f.project,
			Compiler:     f.compiler,
			Archs:        f.arch,
			Configs:      f.configSet,
			CMake:        f.cmake,
			PreferShared: !f.static,
			Jobs:         f.jobs,
		},
		Sequence: sequencer.Request{
			GenerateOnly: f.gen,
			Clean:        f.clean,
			Build:        f.build,
			Install:      f.install,
			BuildRetries: f.buildRetries,
		},
		PrefixOutput: f.prefixOutput,
		Output:       out,
		Logger:       logging.NewLogger("trellis", logging.ResolveLevel(f.logLevel), nil),
	}
	if len(args) > 0 {
		opts.Solutions = args[0]
	}

	if f.cmakeArgs != "" {
		extra, err := shellparse.Split(f.cmakeArgs)
		if err != nil {
			return opts, fmt.Errorf("parsing --cmake-args: %w", err)
		}
		opts.Sequence.CMakeArgs = extra
	}
	if f.archive != "" {
		format, err := archive.ParseFormat(f.archive)
		if err != nil {
			return opts, err
		}
		opts.Sequence.Archive = &format
	}
	return opts, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "trellis %s\n", version)
	fmt.Fprintf(w, "Built: %s\n", getBuilderTimestamp())
}

// shouldPause reports whether a fatal error waits for acknowledgment.
func shouldPause(noPause bool, stdin *os.File, getenv func(string) string) bool {
	if noPause || getenv("CI") != "" {
		return false
	}
	fd := stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	if shouldPause(f.noPause, os.Stdin, os.Getenv) {
		fmt.Fprint(os.Stderr, "Press Enter to continue...")
		bufio.NewReader(os.Stdin).ReadString('\n')
	}
	os.Exit(terrors.ExitCode(err))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fatal(err)
	}
}

package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru/v2"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
)

const (
	// EnvCMake overrides the cmake executable.
	EnvCMake = "TRELLIS_CMAKE"

	// MinCMakeVersion is the lowest supported CMake, merged (3.9).
	MinCMakeVersion = 39
)

// CommandRunner runs a version probe and returns its standard output.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Locator finds build tools on the host. Lookups are memoised for the
// lifetime of the Locator.
type Locator struct {
	Host     platform.Host
	Getenv   func(string) (string, bool)
	LookPath func(string) (string, error)
	HomeDir  func() (string, error)
	Runner   CommandRunner

	logger hclog.Logger
	cache  *lru.Cache[string, string]
}

// NewLocator returns a Locator that reads the process environment and PATH.
func NewLocator(host platform.Host, logger hclog.Logger) *Locator {
	cache, _ := lru.New[string, string](128)
	return &Locator{
		Host:     host,
		Getenv:   os.LookupEnv,
		LookPath: exec.LookPath,
		HomeDir:  os.UserHomeDir,
		Runner:   execRunner{},
		logger:   logger.Named("locator"),
		cache:    cache,
	}
}

// env returns a non-empty environment value.
func (l *Locator) env(key string) (string, bool) {
	v, ok := l.Getenv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// memo caches the successful result of probe under key.
func (l *Locator) memo(key string, probe func() (string, error)) (string, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err := probe()
	if err != nil {
		return "", err
	}
	l.cache.Add(key, v)
	return v, nil
}

// which resolves an executable name through PATH.
func (l *Locator) which(name string) (string, bool) {
	p, err := l.LookPath(name)
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}

// FindCMake returns the cmake executable: an explicit path, TRELLIS_CMAKE,
// the newest cmake bundled in an Android SDK, then PATH.
func (l *Locator) FindCMake(explicit string, android *AndroidInstall) (string, error) {
	if explicit != "" && explicit != "auto" {
		return explicit, nil
	}
	if v, ok := l.env(EnvCMake); ok {
		return v, nil
	}
	if android != nil && android.Studio {
		root := filepath.Join(android.SDK, "cmake")
		ver, err := MaxVersionDir(root)
		if err != nil {
			return "", terrors.ToolNotFound("cmake", fmt.Sprintf("no CMake under %q", root))
		}
		return filepath.Join(root, ver, "bin", exeName(l.Host.Family, "cmake")), nil
	}
	if p, ok := l.which("cmake"); ok {
		return p, nil
	}
	return "", terrors.ToolNotFound("cmake",
		fmt.Sprintf("install CMake 3.9+, set %s, or put its directory on PATH", EnvCMake))
}

// CMakeVersion runs cmake --version and returns the merged version.
func (l *Locator) CMakeVersion(ctx context.Context, cmakePath string) (int, error) {
	out, err := l.memo("version:"+cmakePath, func() (string, error) {
		return l.output(ctx, cmakePath, "--version")
	})
	if err != nil {
		return 0, terrors.ToolNotFound("cmake", err.Error())
	}
	fields := strings.Fields(out)
	if len(fields) < 3 {
		return 0, fmt.Errorf("unexpected cmake --version output %q", out)
	}
	return MergeVersion(fields[2])
}

// FindGCC returns the g++ executable. CXX wins on non-Windows hosts.
func (l *Locator) FindGCC() (string, error) {
	return l.findCompiler("g++", "g++ 7.1+")
}

// FindClang returns the clang++ executable. CXX wins on non-Windows hosts.
func (l *Locator) FindClang() (string, error) {
	return l.findCompiler("clang++", "clang++ 3.6+")
}

func (l *Locator) findCompiler(name, minimum string) (string, error) {
	if l.Host.Family != platform.Windows {
		if v, ok := l.env("CXX"); ok {
			if fields := strings.Fields(v); len(fields) > 0 {
				return fields[0], nil
			}
		}
	}
	if p, ok := l.which(name); ok {
		return p, nil
	}
	return "", terrors.ToolNotFound(name,
		fmt.Sprintf("install %s, set its path into CXX, or put its directory on PATH", minimum))
}

// GCCVersion returns the merged version of a g++ binary.
func (l *Locator) GCCVersion(ctx context.Context, gccPath string) (int, error) {
	out, err := l.memo("version:"+gccPath, func() (string, error) {
		out, err := l.output(ctx, gccPath, "-dumpfullversion")
		if err != nil || strings.TrimSpace(out) == "" {
			// compilers older than GCC 7 only know -dumpversion
			return l.output(ctx, gccPath, "-dumpversion")
		}
		return out, nil
	})
	if err != nil {
		return 0, terrors.ToolNotFound("g++", err.Error())
	}
	return MergeVersion(strings.TrimSpace(out))
}

// ClangVersion returns the merged version of a clang binary, read from the
// token following "version" in its --version banner.
func (l *Locator) ClangVersion(ctx context.Context, clangPath string) (int, error) {
	out, err := l.memo("version:"+clangPath, func() (string, error) {
		return l.output(ctx, clangPath, "--version")
	})
	if err != nil {
		return 0, terrors.ToolNotFound("clang", err.Error())
	}
	fields := strings.Fields(out)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return MergeVersion(fields[i+1])
		}
	}
	return 0, fmt.Errorf("unexpected clang --version output %q", out)
}

// MakeProgram returns the build tool driven after configuration.
func (l *Locator) MakeProgram(gen Generator, target platform.Platform, android *AndroidInstall, cmakePath string) string {
	var name string
	switch {
	case gen == GeneratorNinja && target == platform.TargetAndroid:
		return filepath.Join(filepath.Dir(cmakePath), exeName(l.Host.Family, "ninja"))
	case gen == GeneratorNinja:
		name = "ninja"
	case l.Host.Family == platform.Windows && target == platform.TargetAndroid && android != nil:
		return android.PrebuiltMake()
	case l.Host.Family == platform.Windows:
		name = "mingw32-make.exe"
	default:
		name = "make"
	}
	if p, ok := l.which(name); ok {
		return p
	}
	return name
}

func (l *Locator) output(ctx context.Context, name string, args ...string) (string, error) {
	l.logger.Debug("🔍 Probing tool", "path", name, "args", args)
	out, err := l.Runner.Output(ctx, name, args...)
	if err != nil {
		return "", fmt.Errorf("running %s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

func exeName(host platform.Family, name string) string {
	if host == platform.Windows {
		return name + ".exe"
	}
	return name
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package sequencer

import (
	"fmt"
	"strings"

	"github.com/provide-io/trellis/pkg/platform"
	"github.com/provide-io/trellis/pkg/toolchain"
	"github.com/provide-io/trellis/pkg/utils/shellparse"
)

// script accumulates the lines of one batch in the host's dialect.
type script struct {
	windows bool
	lines   []string
}

func newScript(host platform.Family) *script {
	return &script{windows: host == platform.Windows}
}

func (s *script) dialect() shellparse.Dialect {
	if s.windows {
		return shellparse.Cmd
	}
	return shellparse.POSIX
}

func (s *script) add(line string) { s.lines = append(s.lines, line) }

// command appends a quoted command line.
func (s *script) command(name string, args ...string) {
	s.add(shellparse.Join(s.dialect(), append([]string{name}, args...)...))
}

// exitOnFailure stops the script with the exit code of the previous
// command when that command failed.
func (s *script) exitOnFailure() {
	if s.windows {
		s.add("@if ERRORLEVEL 1 exit /B %ERRORLEVEL%")
	} else {
		s.add("rc=$?; if [ $rc -ne 0 ]; then exit $rc; fi")
	}
}

// extendPath prepends the CMake directory and compiler root to PATH.
func (s *script) extendPath(dirs ...string) {
	var keep []string
	for _, d := range dirs {
		if d != "" {
			keep = append(keep, d)
		}
	}
	if len(keep) == 0 {
		return
	}
	if s.windows {
		s.add(fmt.Sprintf(`@SET "PATH=%s;%%PATH%%"`, strings.Join(keep, ";")))
	} else {
		s.add(fmt.Sprintf(`export PATH="$PATH:%s"`, strings.Join(keep, ":")))
	}
}

// vcvars loads the MSVC environment for spec and returns to dir, which
// vcvarsall.bat may have changed.
func (s *script) vcvars(spec toolchain.ArchSpec, dir string) {
	if spec.VCVarsAll == "" {
		return
	}
	s.add(fmt.Sprintf("@CALL %s %s", shellparse.Quote(shellparse.Cmd, spec.VCVarsAll), spec.VCVarsArgs))
	s.add(fmt.Sprintf("@CD /d %s", shellparse.Quote(shellparse.Cmd, dir)))
}

// msbuild builds one project of a Visual Studio tree.
func (s *script) msbuild(vsVersion int, project, config, msbuildPlatform string, jobs int) {
	s.add(fmt.Sprintf("@SET VisualStudioVersion=%d.0", vsVersion))
	props := "Configuration=" + config
	if msbuildPlatform != "" {
		props += ",Platform=" + msbuildPlatform
	}
	s.add(fmt.Sprintf("@MSBuild %s.vcxproj /nologo /m:%d /v:m /p:%s", project, jobs, props))
	s.exitOnFailure()
}

// xcodebuild builds one target of an Xcode tree.
func (s *script) xcodebuild(target, config string, jobs int) {
	s.command("xcodebuild", "-target", target, "-jobs", fmt.Sprint(jobs), "-configuration", config)
	s.exitOnFailure()
}

// make runs a Makefile or Ninja tree. An empty target builds everything.
func (s *script) make(program, target string, jobs int) {
	args := []string{fmt.Sprintf("-j%d", jobs)}
	if target != "" {
		args = append(args, target)
	}
	line := shellparse.Join(s.dialect(), append([]string{program}, args...)...)
	if s.windows {
		line = "@" + line
	}
	s.add(line)
	s.exitOnFailure()
}

// SPDX-License-Identifier: Apache-2.0
package solution

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/trellis/internal/workdir"
)

// ListsFile is the generated root file inside <build>/cmake.
const ListsFile = "CMakeLists.txt"

const rule = "############################################################################\n"

// Emit writes <buildDir>/cmake/CMakeLists.txt when the descriptor is newer
// than the existing output or clean is set. It reports whether it wrote.
func (s *Solution) Emit(buildDir string, clean bool, logger hclog.Logger) (bool, error) {
	cmakeDir := filepath.Join(buildDir, "cmake")
	if err := workdir.Ensure(cmakeDir, clean, true, logger); err != nil {
		return false, err
	}

	out := filepath.Join(cmakeDir, ListsFile)
	modified, err := workdir.IsFileModified(out, s.path)
	if err != nil {
		return false, err
	}
	if !modified && !clean {
		logger.Debug("✅ CMake input up to date", "path", out)
		return false, nil
	}

	logger.Info("📝 Generating CMake input", "solution", s.name, "path", out)
	var buf bytes.Buffer
	s.Render(&buf, time.Now())
	if err := workdir.WriteFile(out, buf.Bytes(), logger); err != nil {
		return false, fmt.Errorf("writing %s: %w", out, err)
	}
	return true, nil
}

// Render writes the CMake root file. now is stamped into the header.
func (s *Solution) Render(w io.Writer, now time.Time) {
	fmt.Fprint(w, rule)
	fmt.Fprint(w, "##\n")
	fmt.Fprint(w, "## -------------------------------------------------------------------------\n")
	fmt.Fprintf(w, "##  Solution:    %s\n", s.name)
	fmt.Fprintf(w, "##  Generated:   %s by Trellis\n", now.Format("2006/01/02 15:04"))
	fmt.Fprint(w, "## -------------------------------------------------------------------------\n")
	fmt.Fprint(w, "##\n")
	fmt.Fprint(w, rule)
	fmt.Fprint(w, "\n")

	fmt.Fprintf(w, "CMAKE_MINIMUM_REQUIRED(VERSION %s)\n\n", s.cmakeMinVer)
	fmt.Fprintf(w, "PROJECT(%s)\n\n", s.name)
	fmt.Fprint(w, "FILE(TO_CMAKE_PATH $ENV{TRELLIS_BUILD_PATH} TRELLIS_BUILD_PATH)\n")
	fmt.Fprint(w, "LIST(APPEND CMAKE_MODULE_PATH ${TRELLIS_BUILD_PATH}/cmake)\n")
	fmt.Fprint(w, "INCLUDE(Trellis)\n")
	fmt.Fprint(w, "\n")

	for i, g := range s.groups {
		if i > 0 {
			fmt.Fprint(w, "\n")
		}
		s.renderGroup(w, g)
	}
}

func (s *Solution) renderGroup(w io.Writer, g *Group) {
	const tab = "  "
	flag := "NO_" + strings.ToUpper(g.Name)
	fmt.Fprintf(w, "IF((NOT DEFINED ENV{%s}) OR (NOT $ENV{%s}))\n", flag, flag)
	fmt.Fprintf(w, "%sSET(BUILD_GROUP %s)\n", tab, cmakeString(g.Name))
	for _, p := range g.Projects {
		fmt.Fprint(w, "\n")
		s.renderProject(w, tab, p)
	}
	fmt.Fprint(w, "ENDIF()\n")
}

func (s *Solution) renderProject(w io.Writer, tab string, p *Project) {
	if p.Version != "" {
		fmt.Fprintf(w, "%sSET(%s_VERSION %s)\n", tab, strings.ToUpper(p.Name), cmakeString(p.Version))
	}

	// A sibling <name>.cmake wins over the declared type.
	if s.delegates(p) {
		fmt.Fprintf(w, "%sINCLUDE(../../%s/%s.cmake)\n", tab, p.Path, p.Name)
		return
	}

	switch p.Kind {
	case KindLib:
		fmt.Fprintf(w, "%sADD_LIB(%s %s %s %s %s false)\n",
			tab, cmakeString(p.Group), cmakeString(p.Name), cmakeList(p.Defs), cmakeList(p.Incs), cmakeList(p.Libs))
	case KindApp:
		version := p.Version
		if version == "" {
			version = "0,0,0"
		}
		appID := p.AppID
		if appID == "" {
			appID = fmt.Sprintf("com.%s.%s", strings.ToLower(s.name), strings.ToLower(p.Name))
		}
		fmt.Fprintf(w, "%sADD_APP(%s %s %s %s %s)\n",
			tab, cmakeString(p.Group), cmakeString(p.Name), cmakeString(version), cmakeString(appID), cmakeList(p.Libs))
	case KindPlugin:
		fmt.Fprintf(w, "%sADD_PLUGIN(%s %s %s)\n", tab, cmakeString(p.Group), cmakeString(p.Name), cmakeList(p.Incs))
	default:
		return
	}

	if p.PCH != "" {
		fmt.Fprintf(w, "%sADD_PRECOMPILED_HEADER(%s %s)\n", tab, cmakeString(p.Name), cmakeString(p.PCH))
	}
	if len(p.WD) > 0 {
		fmt.Fprintf(w, "%sDISABLE_WARNINGS(%s %s)\n", tab, cmakeString(p.Name), cmakeList(p.WD))
	}
}

var cmakeEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// cmakeString renders v as a CMake quoted argument. Only backslash and
// double quote are escaped; everything else is kept byte for byte.
func cmakeString(v string) string {
	return `"` + cmakeEscaper.Replace(v) + `"`
}

// cmakeList renders values as one quoted, semicolon-separated CMake list.
func cmakeList(values []string) string {
	return cmakeString(strings.Join(values, ";"))
}

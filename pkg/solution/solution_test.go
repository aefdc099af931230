package solution

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrors "github.com/provide-io/trellis/pkg/errors"
)

const demoSolution = `name: Demo
cmake_min_ver: "3.12"
projects:
  core:
    base:
      type: lib
      version: 1.2
      defs: [USE_FOO, "LEVEL=2"]
      incs: include
      libs:
        - m
        - pthread
      pch: pch.h
      wd: [4996]
    zlib: lib
  apps:
    viewer:
      type: app
      libs: base
    bridge: plugin
`

func writeSolution(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func touch(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadPreservesOrder(t *testing.T) {
	s, err := Load(writeSolution(t, t.TempDir(), demoSolution))
	require.NoError(t, err)

	assert.Equal(t, "Demo", s.Name())
	assert.Equal(t, "3.12", s.CMakeMinVersion())

	require.Len(t, s.Groups(), 2)
	assert.Equal(t, "core", s.Groups()[0].Name)
	assert.Equal(t, "apps", s.Groups()[1].Name)

	var names []string
	for _, p := range s.Projects() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"base", "zlib", "viewer", "bridge"}, names)

	base := s.Projects()[0]
	assert.Equal(t, KindLib, base.Kind)
	assert.Equal(t, "core/base", base.Path)
	assert.Equal(t, "1.2", base.Version)
	assert.Equal(t, []string{"USE_FOO", "LEVEL=2"}, base.Defs)
	assert.Equal(t, []string{"include"}, base.Incs)
	assert.Equal(t, []string{"m", "pthread"}, base.Libs)
	assert.Equal(t, []string{"4996"}, base.WD)
	assert.Equal(t, "pch.h", base.PCH)

	assert.Equal(t, KindLib, s.Projects()[1].Kind)
	assert.Equal(t, KindPlugin, s.Projects()[3].Kind)
}

func TestLoadDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Engine")
	s, err := Load(writeSolution(t, dir, "projects:\n  core:\n    base: lib\n"))
	require.NoError(t, err)

	assert.Equal(t, "Engine", s.Name())
	assert.Equal(t, DefaultCMakeMinVersion, s.CMakeMinVersion())
	assert.Equal(t, dir, s.Dir())
}

func TestLoadRejectsInvalidDescriptors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"unknown type", "projects:\n  core:\n    base: dll\n"},
		{"missing type", "projects:\n  core:\n    base:\n"},
		{"group is a list", "projects:\n  core: [a, b]\n"},
		{"defs is a mapping", "projects:\n  core:\n    base:\n      type: lib\n      defs: {a: b}\n"},
		{"delegate without file", "projects:\n  core:\n    base: delegate\n"},
		{"malformed yaml", "projects: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeSolution(t, t.TempDir(), tc.content))
			assert.ErrorIs(t, err, terrors.ErrInvalidSolution)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.ErrorIs(t, err, terrors.ErrInvalidSolution)
}

func TestList(t *testing.T) {
	root := t.TempDir()
	writeSolution(t, filepath.Join(root, "engine"), "name: Engine\n")
	writeSolution(t, filepath.Join(root, "tools"), "name: Tools\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0755))

	solutions, err := List("tools|docs|missing|engine", root)
	require.NoError(t, err)
	require.Len(t, solutions, 2)
	assert.Equal(t, "Tools", solutions[0].Name())
	assert.Equal(t, "Engine", solutions[1].Name())
}

func TestRender(t *testing.T) {
	s, err := Load(writeSolution(t, t.TempDir(), demoSolution))
	require.NoError(t, err)

	var buf bytes.Buffer
	s.Render(&buf, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))

	want := rule +
		"##\n" +
		"## -------------------------------------------------------------------------\n" +
		"##  Solution:    Demo\n" +
		"##  Generated:   2024/05/01 09:30 by Trellis\n" +
		"## -------------------------------------------------------------------------\n" +
		"##\n" +
		rule +
		"\n" +
		"CMAKE_MINIMUM_REQUIRED(VERSION 3.12)\n\n" +
		"PROJECT(Demo)\n\n" +
		"FILE(TO_CMAKE_PATH $ENV{TRELLIS_BUILD_PATH} TRELLIS_BUILD_PATH)\n" +
		"LIST(APPEND CMAKE_MODULE_PATH ${TRELLIS_BUILD_PATH}/cmake)\n" +
		"INCLUDE(Trellis)\n" +
		"\n" +
		"IF((NOT DEFINED ENV{NO_CORE}) OR (NOT $ENV{NO_CORE}))\n" +
		"  SET(BUILD_GROUP \"core\")\n" +
		"\n" +
		"  SET(BASE_VERSION \"1.2\")\n" +
		"  ADD_LIB(\"core\" \"base\" \"USE_FOO;LEVEL=2\" \"include\" \"m;pthread\" false)\n" +
		"  ADD_PRECOMPILED_HEADER(\"base\" \"pch.h\")\n" +
		"  DISABLE_WARNINGS(\"base\" \"4996\")\n" +
		"\n" +
		"  ADD_LIB(\"core\" \"zlib\" \"\" \"\" \"\" false)\n" +
		"ENDIF()\n" +
		"\n" +
		"IF((NOT DEFINED ENV{NO_APPS}) OR (NOT $ENV{NO_APPS}))\n" +
		"  SET(BUILD_GROUP \"apps\")\n" +
		"\n" +
		"  ADD_APP(\"apps\" \"viewer\" \"0,0,0\" \"com.demo.viewer\" \"base\")\n" +
		"\n" +
		"  ADD_PLUGIN(\"apps\" \"bridge\" \"\")\n" +
		"ENDIF()\n"

	assert.Equal(t, want, buf.String())
}

func TestRenderDelegateWinsOverType(t *testing.T) {
	dir := t.TempDir()
	content := "name: Demo\nprojects:\n  core:\n    base:\n      type: lib\n      path: third_party/base\n      pch: pch.h\n    glue: delegate\n"
	touch(t, filepath.Join(dir, "third_party", "base", "base.cmake"), "# custom\n")
	touch(t, filepath.Join(dir, "core", "glue", "glue.cmake"), "# custom\n")

	s, err := Load(writeSolution(t, dir, content))
	require.NoError(t, err)

	var buf bytes.Buffer
	s.Render(&buf, time.Now())
	out := buf.String()

	assert.Contains(t, out, "  INCLUDE(../../third_party/base/base.cmake)\n")
	assert.Contains(t, out, "  INCLUDE(../../core/glue/glue.cmake)\n")
	assert.NotContains(t, out, "ADD_LIB")
	assert.NotContains(t, out, "ADD_PRECOMPILED_HEADER")
}

func TestRenderEscapesCMakeStrings(t *testing.T) {
	content := "name: Demo\nprojects:\n  core:\n    base:\n      type: lib\n" +
		"      defs: [\"MSG=\\\"h\\u00e9llo\\\"\", \"CTRL=a\\x01b\"]\n" +
		"      pch: 'inc\\pch.h'\n"
	s, err := Load(writeSolution(t, t.TempDir(), content))
	require.NoError(t, err)

	var buf bytes.Buffer
	s.Render(&buf, time.Now())
	out := buf.String()

	assert.Contains(t, out, "  ADD_LIB(\"core\" \"base\" \"MSG=\\\"h\u00e9llo\\\";CTRL=a\x01b\" \"\" \"\" false)\n")
	assert.Contains(t, out, "  ADD_PRECOMPILED_HEADER(\"base\" \"inc\\\\pch.h\")\n")
	assert.NotContains(t, out, `\x01`)
	assert.NotContains(t, out, `\u00e9`)
}

func TestCMakeString(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`C:\sdk\include`, `"C:\\sdk\\include"`},
		{"tab\there", "\"tab\there\""},
		{"caf\u00e9", "\"caf\u00e9\""},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, cmakeString(tc.in))
		})
	}

	assert.Equal(t, `"a;b\"c"`, cmakeList([]string{"a", `b"c`}))
}

func TestPreGenerations(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "core", "base", "CMakeLists.txt"), "")
	s, err := Load(writeSolution(t, dir, demoSolution))
	require.NoError(t, err)

	gens := s.PreGenerations()
	require.Len(t, gens, 1)
	assert.Equal(t, "base", gens[0].Name)
	assert.Equal(t, filepath.Join(dir, "core", "base"), gens[0].Dir)
	assert.Equal(t, []string{"-DBUILD_GROUP=core", "-DBASE_VERSION=1.2"}, gens[0].Options)
}

func TestEmitStaleness(t *testing.T) {
	root := t.TempDir()
	descriptor := writeSolution(t, root, demoSolution)
	buildDir := filepath.Join(root, "build")
	out := filepath.Join(buildDir, "cmake", ListsFile)

	var logs bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Info})

	s, err := Load(descriptor)
	require.NoError(t, err)

	wrote, err := s.Emit(buildDir, false, logger)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Contains(t, logs.String(), "Generating CMake input")

	// Pin the output to a known instant after the descriptor.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(descriptor, past, past))
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	logs.Reset()
	wrote, err = s.Emit(buildDir, false, logger)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.NotContains(t, logs.String(), "Generating")
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(descriptor, future, future))
	wrote, err = s.Emit(buildDir, false, logger)
	require.NoError(t, err)
	assert.True(t, wrote)

	require.NoError(t, os.Chtimes(descriptor, past, past))
	wrote, err = s.Emit(buildDir, true, logger)
	require.NoError(t, err)
	assert.True(t, wrote, "clean always regenerates")
	assert.FileExists(t, out)
}

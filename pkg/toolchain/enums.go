// SPDX-License-Identifier: Apache-2.0
// Package toolchain locates CMake, compilers, IDEs and mobile SDKs, and
// resolves them into a consistent generator/compiler/architecture tuple.
package toolchain

import (
	"fmt"
	"strings"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
)

// Generator is a CMake project generator family.
type Generator string

const (
	GeneratorAuto   Generator = ""
	GeneratorVS2019 Generator = "vs2019"
	GeneratorVS2017 Generator = "vs2017"
	GeneratorVS2015 Generator = "vs2015"
	GeneratorXcode  Generator = "xcode"
	GeneratorMake   Generator = "make"
	GeneratorNinja  Generator = "ninja"
)

var generators = []Generator{
	GeneratorVS2019, GeneratorVS2017, GeneratorVS2015,
	GeneratorXcode, GeneratorMake, GeneratorNinja,
}

// ParseGenerator parses a generator name; "auto" and "" yield GeneratorAuto.
func ParseGenerator(raw string) (Generator, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == "auto" {
		return GeneratorAuto, nil
	}
	for _, g := range generators {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: unknown project generator %q", terrors.ErrIncompatibleToolchain, raw)
}

// IsIDE reports whether the generator produces Visual Studio solutions.
func (g Generator) IsIDE() bool {
	switch g {
	case GeneratorVS2019, GeneratorVS2017, GeneratorVS2015:
		return true
	}
	return false
}

// MultiConfig reports whether one configured tree can build every configuration.
func (g Generator) MultiConfig() bool {
	return g.IsIDE() || g == GeneratorXcode
}

// VSVersion returns the Visual Studio major version, or 0 for other generators.
func (g Generator) VSVersion() int {
	switch g {
	case GeneratorVS2019:
		return 16
	case GeneratorVS2017:
		return 15
	case GeneratorVS2015:
		return 14
	}
	return 0
}

// DisplayName returns the name passed to cmake -G.
func (g Generator) DisplayName(host platform.Family) string {
	switch g {
	case GeneratorVS2019:
		return "Visual Studio 16 2019"
	case GeneratorVS2017:
		return "Visual Studio 15 2017"
	case GeneratorVS2015:
		return "Visual Studio 14 2015"
	case GeneratorXcode:
		return "Xcode"
	case GeneratorNinja:
		return "Ninja"
	case GeneratorMake:
		if host == platform.Windows {
			return "MinGW Makefiles"
		}
		return "Unix Makefiles"
	}
	return ""
}

func (g Generator) String() string {
	if g == GeneratorAuto {
		return "auto"
	}
	return string(g)
}

func (g Generator) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// Compiler is a compiler family, with MSVC split by toolset version.
type Compiler string

const (
	CompilerAuto  Compiler = ""
	CompilerVC142 Compiler = "vc142"
	CompilerVC141 Compiler = "vc141"
	CompilerVC140 Compiler = "vc140"
	CompilerClang Compiler = "clang"
	CompilerGCC   Compiler = "gcc"
	CompilerMinGW Compiler = "mingw"
)

var compilers = []Compiler{
	CompilerVC142, CompilerVC141, CompilerVC140,
	CompilerClang, CompilerGCC, CompilerMinGW,
}

// ParseCompiler parses a compiler name; "auto" and "" yield CompilerAuto.
func ParseCompiler(raw string) (Compiler, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == "auto" {
		return CompilerAuto, nil
	}
	for _, c := range compilers {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown compiler %q", terrors.ErrIncompatibleToolchain, raw)
}

// IsMSVC reports whether the compiler is a Visual C++ toolset.
func (c Compiler) IsMSVC() bool {
	switch c {
	case CompilerVC142, CompilerVC141, CompilerVC140:
		return true
	}
	return false
}

// ShortName is the compiler tag embedded in build directory names.
func (c Compiler) ShortName() string {
	switch {
	case c.IsMSVC():
		return "vc"
	case c == CompilerMinGW:
		return "mgw"
	}
	return string(c)
}

// ToolsetVersion returns 142, 141 or 140 for MSVC toolsets and 0 otherwise.
func (c Compiler) ToolsetVersion() int {
	switch c {
	case CompilerVC142:
		return 142
	case CompilerVC141:
		return 141
	case CompilerVC140:
		return 140
	}
	return 0
}

func (c Compiler) String() string {
	if c == CompilerAuto {
		return "auto"
	}
	return string(c)
}

func (c Compiler) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

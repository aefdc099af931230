package buildctx

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Display prints the build summary.
func (c *Context) Display(w io.Writer) {
	cyan := color.New(color.FgCyan).SprintFunc()
	grn := color.New(color.FgHiGreen).SprintFunc()

	row := func(label string, value any) {
		fmt.Fprintf(w, "\t%s %v\n", cyan(label+":"), value)
	}

	fmt.Fprintf(w, "%s\n", grn("Build information:"))
	row("CMake path", c.CMakePath)
	row("CMake version", c.CMakeVersion)
	row("Host platform", fmt.Sprintf("%s (%s)", c.Host.DisplayName, c.Host.Arch))
	target := c.Target.Name
	if c.Target.APILevel > 0 {
		target = fmt.Sprintf("%s (API level %d)", target, c.Target.APILevel)
	}
	row("Target platform", target)
	if a := c.Target.Android; a != nil {
		row("Android NDK", a.NDK)
		if a.Studio {
			row("Android SDK", a.SDK)
		}
	}
	row("Cross compiling", c.CrossCompiling())
	row("Generator", c.Toolchain.GeneratorName)
	row("Compiler", c.Toolchain.CompilerTag())
	if c.Toolchain.CompilerRoot != "" {
		row("Compiler root", c.Toolchain.CompilerRoot)
	}
	row("Make program", c.MakeProgram)

	archs := make([]string, len(c.Toolchain.Archs))
	for i, a := range c.Toolchain.Archs {
		archs[i] = string(a.Arch)
	}
	row("Architectures", strings.Join(archs, ", "))
	row("Configurations", strings.Join(c.Target.Configs, ", "))

	lib := "static"
	if c.Target.BuildShared {
		lib = "shared"
	}
	row("Libraries", lib)
	row("Jobs", c.Jobs)
	fmt.Fprintln(w)
}

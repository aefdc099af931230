package platform

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"runtime"
	"strings"
)

// Host describes the machine trellis runs on.
type Host struct {
	Family      Family `json:"family"`
	Arch        Arch   `json:"arch"`
	DisplayName string `json:"display_name"`
	Machine     string `json:"machine"`
}

var issueVersion = regexp.MustCompile(`\d+\.\d+`)

// DetectHost probes the running machine.
func DetectHost() (Host, error) {
	family, err := ParseFamily(runtime.GOOS)
	if err != nil {
		return Host{}, err
	}

	machine := hostMachine()
	arch, err := NormalizeMachine(machine)
	if err != nil {
		return Host{}, err
	}

	return Host{
		Family:      family,
		Arch:        arch,
		DisplayName: DisplayName(family),
		Machine:     machine,
	}, nil
}

// DisplayName returns the host name embedded in build directory names.
func DisplayName(f Family) string {
	switch f {
	case Windows:
		return "Windows"
	case Darwin:
		return "Darwin"
	}
	osRelease, _ := os.ReadFile("/etc/os-release")
	issue, _ := os.ReadFile("/etc/issue")
	return LinuxDisplayName(osRelease, issue)
}

// LinuxDisplayName formats a distribution as "{Id}_{version}" with dots in the
// version replaced by underscores. os-release ID and VERSION_ID are preferred,
// then the first word of the issue banner with its first "N.N" version, then
// the literal "Linux".
func LinuxDisplayName(osRelease, issue []byte) string {
	desc := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(osRelease))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		value = strings.NewReplacer(`"`, "", "'", "").Replace(value)
		desc[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if id, version := desc["id"], desc["version_id"]; id != "" && version != "" {
		return capitalize(id) + "_" + strings.ReplaceAll(version, ".", "_")
	}

	banner := strings.TrimSpace(string(issue))
	if banner != "" {
		name := strings.Fields(banner)[0]
		if v := issueVersion.FindString(banner); v != "" {
			return capitalize(name) + "_" + strings.ReplaceAll(v, ".", "_")
		}
	}

	return "Linux"
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

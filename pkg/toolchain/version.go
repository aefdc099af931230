package toolchain

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var versionName = regexp.MustCompile(`^\d+(\.\d+)*$`)

// MergeVersion concatenates the first two components of a dotted version
// into one integer: "9.2.1" is 92 and "3.10.2" is 310. A lone major
// version is read as "<major>.0". Non-digit suffixes on a component
// ("0-rc1") are ignored.
func MergeVersion(version string) (int, error) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) == 1 {
		parts = append(parts, "0")
	}

	var merged strings.Builder
	for _, part := range parts[:2] {
		digits := leadingDigits(part)
		if digits == "" {
			return 0, fmt.Errorf("invalid version %q", version)
		}
		merged.WriteString(digits)
	}
	return strconv.Atoi(merged.String())
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// CompareVersions compares dotted versions component by component as
// integers, padding the shorter one with zeros. It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(pa) {
			x, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			y, _ = strconv.Atoi(pb[i])
		}
		switch {
		case x > y:
			return 1
		case x < y:
			return -1
		}
	}
	return 0
}

// MaxVersion returns the greatest version-shaped name, or "" when none match.
func MaxVersion(names []string) string {
	best := ""
	for _, name := range names {
		if !versionName.MatchString(name) {
			continue
		}
		if best == "" || CompareVersions(name, best) > 0 {
			best = name
		}
	}
	return best
}

// MaxVersionDir returns the name of the highest version-named subdirectory of dir.
func MaxVersionDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if best := MaxVersion(names); best != "" {
		return best, nil
	}
	return "", fmt.Errorf("no versioned directory in %s", dir)
}

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrors "github.com/provide-io/trellis/pkg/errors"
)

func TestParseFamily(t *testing.T) {
	testCases := []struct {
		raw  string
		want Family
	}{
		{"win32", Windows},
		{"windows", Windows},
		{"linux", Linux},
		{"linux2", Linux},
		{"darwin", Darwin},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseFamily(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseFamily("freebsd")
	assert.ErrorIs(t, err, terrors.ErrUnsupportedPlatform)
}

func TestNormalizeMachine(t *testing.T) {
	for _, raw := range []string{"AMD64", "x86_64"} {
		got, err := NormalizeMachine(raw)
		require.NoError(t, err)
		assert.Equal(t, X64, got)
	}
	for _, raw := range []string{"ARM64", "aarch64", "arm64"} {
		got, err := NormalizeMachine(raw)
		require.NoError(t, err)
		assert.Equal(t, Arm64, got)
	}

	_, err := NormalizeMachine("i686")
	assert.ErrorIs(t, err, terrors.ErrUnsupportedArchitecture)
}

func TestParseArchIsIdempotent(t *testing.T) {
	first, err := ParseArch("arm")
	require.NoError(t, err)
	assert.Equal(t, Arm32, first)

	second, err := ParseArch(string(first))
	require.NoError(t, err)
	assert.Equal(t, Arm32, second)

	for _, a := range Archs {
		got, err := ParseArch(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err = ParseArch("mips")
	assert.ErrorIs(t, err, terrors.ErrUnsupportedArchitecture)
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("Android")
	require.NoError(t, err)
	assert.Equal(t, TargetAndroid, p)
	assert.True(t, p.IsMobile())
	assert.False(t, TargetLinux.IsMobile())
	assert.Equal(t, TargetDarwin, Darwin.Platform())

	_, err = ParsePlatform("solaris")
	assert.ErrorIs(t, err, terrors.ErrUnsupportedPlatform)
}

func TestLinuxDisplayName(t *testing.T) {
	testCases := []struct {
		name      string
		osRelease string
		issue     string
		want      string
	}{
		{
			name:      "os-release",
			osRelease: "NAME=\"Ubuntu\"\nID=ubuntu\nVERSION_ID=\"18.04\"\n",
			want:      "Ubuntu_18_04",
		},
		{
			name:      "os-release upper case id",
			osRelease: "ID='CentOS'\nVERSION_ID=\"7\"\n",
			want:      "Centos_7",
		},
		{
			name:      "os-release without version falls back to issue",
			osRelease: "ID=arch\n",
			issue:     "Arch Linux 2019.01 \\r (\\l)\n",
			want:      "Arch_2019_01",
		},
		{
			name:  "issue banner",
			issue: "Debian GNU/Linux 9.4 \\n \\l\n",
			want:  "Debian_9_4",
		},
		{
			name:  "issue without version",
			issue: "Welcome\n",
			want:  "Linux",
		},
		{
			name: "nothing available",
			want: "Linux",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LinuxDisplayName([]byte(tc.osRelease), []byte(tc.issue)))
		})
	}
}

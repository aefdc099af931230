package toolchain

import (
	"fmt"
	"path/filepath"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/platform"
)

const (
	EnvAndroidNDK = "ANDROID_NDK"
	EnvAndroidSDK = "ANDROID_SDK"
)

// AndroidInstall is a located Android native toolchain. Studio installs are
// SDK trees carrying both ndk/ and cmake/; otherwise NDK points at a
// standalone NDK.
type AndroidInstall struct {
	Studio bool   `json:"studio"`
	SDK    string `json:"sdk,omitempty"`
	NDK    string `json:"ndk"`
	// FromDefault is set when the install was found at a default location
	// rather than through ANDROID_NDK / ANDROID_SDK.
	FromDefault bool `json:"from_default,omitempty"`
}

// Environ returns the variable that names this install to CMake scripts.
func (a AndroidInstall) Environ() (string, string) {
	if a.Studio {
		return EnvAndroidSDK, a.SDK
	}
	return EnvAndroidNDK, a.NDK
}

// hostTag returns the NDK prebuilt directory name for a host.
func hostTag(host platform.Host) string {
	tag := string(host.Family)
	if host.Arch == platform.X64 {
		tag += "-x86_64"
	}
	return tag
}

// Clang returns the NDK's prebuilt clang for the host.
func (a AndroidInstall) Clang(host platform.Host) string {
	return filepath.Join(a.NDK, "toolchains", "llvm", "prebuilt", hostTag(host), "bin", exeName(host.Family, "clang"))
}

// PrebuiltMake returns the NDK's bundled make.exe on Windows hosts.
func (a AndroidInstall) PrebuiltMake() string {
	dir := filepath.Join(a.NDK, "prebuilt", "windows")
	if !isDir(dir) {
		dir = filepath.Join(a.NDK, "prebuilt", "windows-x86_64")
	}
	return filepath.Join(dir, "bin", "make.exe")
}

// ToolchainFile returns the NDK's android.toolchain.cmake, falling back to
// the copy shipped in the trellis CMake module directory.
func (a AndroidInstall) ToolchainFile(modulePath string) (string, error) {
	for _, candidate := range []string{
		filepath.Join(a.NDK, "build", "cmake", "android.toolchain.cmake"),
		filepath.Join(modulePath, "cmake", "android.toolchain.cmake"),
	} {
		if exists(candidate) {
			return filepath.Abs(candidate)
		}
	}
	return "", terrors.ToolNotFound("android.toolchain.cmake", "expected under "+a.NDK+"/build/cmake")
}

// FindAndroid locates an Android toolchain: ANDROID_NDK, then ANDROID_SDK,
// then the default SDK and NDK install locations of the host.
func (l *Locator) FindAndroid() (*AndroidInstall, error) {
	if v, ok := l.env(EnvAndroidNDK); ok {
		return &AndroidInstall{NDK: v}, nil
	}
	if v, ok := l.env(EnvAndroidSDK); ok {
		return l.studioInstall(v)
	}

	sdks, ndks := l.defaultAndroidLocations()
	for _, dir := range sdks {
		if isDir(filepath.Join(dir, "ndk")) && isDir(filepath.Join(dir, "cmake")) {
			install, err := l.studioInstall(dir)
			if err != nil {
				return nil, err
			}
			install.FromDefault = true
			return install, nil
		}
	}
	for _, dir := range ndks {
		if isDir(dir) {
			return &AndroidInstall{NDK: dir, FromDefault: true}, nil
		}
	}

	return nil, terrors.ToolNotFound("Android NDK",
		fmt.Sprintf("define an %q or an %q environment variable pointing at your NDK or SDK", EnvAndroidNDK, EnvAndroidSDK))
}

func (l *Locator) studioInstall(sdk string) (*AndroidInstall, error) {
	ndkRoot := filepath.Join(sdk, "ndk")
	ver, err := MaxVersionDir(ndkRoot)
	if err != nil {
		return nil, terrors.ToolNotFound("Android NDK", fmt.Sprintf("no NDK version under %q", ndkRoot))
	}
	return &AndroidInstall{Studio: true, SDK: sdk, NDK: filepath.Join(ndkRoot, ver)}, nil
}

func (l *Locator) defaultAndroidLocations() (sdks, ndks []string) {
	home, err := l.HomeDir()
	switch l.Host.Family {
	case platform.Windows:
		if err == nil {
			base := filepath.Join(home, "AppData", "Local", "Android")
			sdks = append(sdks, filepath.Join(base, "sdk"))
			ndks = append(ndks, filepath.Join(base, "android-ndk-r16b"))
		}
	case platform.Darwin:
		if err == nil {
			base := filepath.Join(home, "Library", "Android")
			sdks = append(sdks, filepath.Join(base, "sdk"))
			ndks = append(ndks, filepath.Join(base, "android-ndk-r16b"))
		}
	default:
		ndks = append(ndks, "/usr/local/android-ndk")
	}
	return sdks, ndks
}

// AndroidABI maps an architecture to its Android ABI and toolchain triple.
func AndroidABI(arch platform.Arch) (abi, triple string, err error) {
	switch arch {
	case platform.X86:
		return "x86", "i686-linux-android", nil
	case platform.X64:
		return "x86_64", "x86_64-linux-android", nil
	case platform.Arm32:
		return "armeabi-v7a", "arm-linux-androideabi", nil
	case platform.Arm64:
		return "arm64-v8a", "aarch64-linux-android", nil
	}
	return "", "", terrors.UnsupportedArchitecture(string(arch))
}

// IOSToolchainFile returns ios.toolchain.cmake from the trellis CMake module
// directory.
func IOSToolchainFile(modulePath string) (string, error) {
	path := filepath.Join(modulePath, "cmake", "ios.toolchain.cmake")
	if !exists(path) {
		return "", terrors.ToolNotFound("ios.toolchain.cmake", "expected under "+filepath.Join(modulePath, "cmake"))
	}
	return filepath.Abs(path)
}

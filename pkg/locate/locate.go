// Package locate finds build artifacts and toolchain binaries among the
// known candidate filesystem layouts. Lookups are pure and side-effect
// free: each returns the first matching path and a found flag.
package locate

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// FirstExisting returns the first candidate path that exists.
func FirstExisting(candidates ...string) (string, bool) {
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Exists reports whether a path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether a path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Adb locates the Android bridge tool: PATH first, then the SDK
// platform-tools layout.
func Adb(sdkRoot, goos string) (string, bool) {
	if fromPath, err := exec.LookPath("adb"); err == nil {
		return fromPath, true
	}
	candidates := []string{}
	if goos == "windows" {
		candidates = append(candidates, filepath.Join(sdkRoot, "platform-tools", "adb.exe"))
	}
	candidates = append(candidates, filepath.Join(sdkRoot, "platform-tools", "adb"))
	return FirstExisting(candidates...)
}

// Emulator locates the Android emulator binary: PATH first, then the SDK
// emulator layout.
func Emulator(sdkRoot, goos string) (string, bool) {
	if fromPath, err := exec.LookPath("emulator"); err == nil {
		return fromPath, true
	}
	candidates := []string{}
	if goos == "windows" {
		candidates = append(candidates, filepath.Join(sdkRoot, "emulator", "emulator.exe"))
	}
	candidates = append(candidates, filepath.Join(sdkRoot, "emulator", "emulator"))
	return FirstExisting(candidates...)
}

// DaemonBinary locates the companion background-service binary produced by
// the host build.
func DaemonBinary(hostBuildDir string) (string, bool) {
	return FirstExisting(
		filepath.Join(hostBuildDir, "src", "daemon", "whats_on_daemon"),
		filepath.Join(hostBuildDir, "src", "daemon", "whats_on_daemon.exe"),
	)
}

// GradleProject locates the generated Gradle project inside the Android
// build directory. Fixed candidate layouts are probed first; a recursive
// scan for a wrapper script covers refactored build layouts.
func GradleProject(androidBuildDir string) (string, bool) {
	candidates := []string{
		filepath.Join(androidBuildDir, "src", "app", "android-build"),
		filepath.Join(androidBuildDir, "android-build"),
		filepath.Join(androidBuildDir, "src", "app"),
	}
	for _, dir := range candidates {
		if _, ok := FirstExisting(
			filepath.Join(dir, "gradlew"),
			filepath.Join(dir, "gradlew.bat"),
		); ok {
			return dir, true
		}
	}

	found := ""
	_ = filepath.WalkDir(androidBuildDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return filepath.SkipAll
		}
		if !d.IsDir() && (d.Name() == "gradlew" || d.Name() == "gradlew.bat") {
			found = filepath.Dir(path)
			return filepath.SkipAll
		}
		return nil
	})
	if found != "" {
		return found, true
	}
	return "", false
}

// GradleWrapper returns the wrapper script to invoke for a Gradle project,
// preferring the shell script over the batch file.
func GradleWrapper(gradleDir string) (string, bool) {
	return FirstExisting(
		filepath.Join(gradleDir, "gradlew"),
		filepath.Join(gradleDir, "gradlew.bat"),
	)
}

// DebugAPK locates the produced debug package, preferring the most
// specific Gradle output path and falling back to a recursive search.
// When several match, the lexicographically last wins (newest variant
// suffix).
func DebugAPK(gradleDir string) (string, bool) {
	debugDir := filepath.Join(gradleDir, "build", "outputs", "apk", "debug")
	if matches := debugAPKsIn(debugDir, false); len(matches) > 0 {
		return matches[len(matches)-1], true
	}
	outputsDir := filepath.Join(gradleDir, "build", "outputs", "apk")
	if matches := debugAPKsIn(outputsDir, true); len(matches) > 0 {
		return matches[len(matches)-1], true
	}
	return "", false
}

func debugAPKsIn(dir string, recursive bool) []string {
	var matches []string
	if !IsDir(dir) {
		return nil
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.Contains(name, "debug") && strings.HasSuffix(name, ".apk") {
			matches = append(matches, path)
		}
		return nil
	})
	sort.Strings(matches)
	return matches
}

// CMakePackageDir returns the cmake package directory of an installed
// prefix, e.g. <prefix>/lib/cmake/LVRS.
func CMakePackageDir(prefix, packageName string) string {
	return filepath.Join(prefix, "lib", "cmake", packageName)
}

// LatestDir returns the lexicographically last subdirectory of parent.
func LatestDir(parent string) (string, bool) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return "", false
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) == 0 {
		return "", false
	}
	sort.Strings(dirs)
	return filepath.Join(parent, dirs[len(dirs)-1]), true
}

var versionDir = regexp.MustCompile(`^\d+(\.\d+)*$`)

// LatestVersionDir returns the highest version-named subdirectory of
// parent (numeric dotted names only, compared component-wise).
func LatestVersionDir(parent string) (string, bool) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return "", false
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && versionDir.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Slice(names, func(i, j int) bool {
		return versionLess(names[i], names[j])
	})
	return filepath.Join(parent, names[len(names)-1]), true
}

func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			// Numeric component-wise compare; equal-width padding keeps
			// string comparison correct for differing digit counts.
			return len(as[i]) < len(bs[i]) || (len(as[i]) == len(bs[i]) && as[i] < bs[i])
		}
	}
	return len(as) < len(bs)
}

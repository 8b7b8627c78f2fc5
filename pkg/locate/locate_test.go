package locate

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFirstExisting(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "second")
	touch(t, second)

	got, ok := FirstExisting("", filepath.Join(dir, "first"), second)
	if !ok || got != second {
		t.Errorf("FirstExisting = %q, %v; want %q", got, ok, second)
	}

	if _, ok := FirstExisting(filepath.Join(dir, "nope")); ok {
		t.Error("FirstExisting should report no match")
	}
}

func TestGradleProject(t *testing.T) {
	buildDir := t.TempDir()

	if _, ok := GradleProject(buildDir); ok {
		t.Error("empty build dir should have no Gradle project")
	}

	// A refactored layout found only by the recursive scan.
	nested := filepath.Join(buildDir, "out", "gradle-project")
	touch(t, filepath.Join(nested, "gradlew"))
	if got, ok := GradleProject(buildDir); !ok || got != nested {
		t.Errorf("GradleProject = %q, %v; want %q", got, ok, nested)
	}

	// The canonical layout wins over the scan.
	canonical := filepath.Join(buildDir, "src", "app", "android-build")
	touch(t, filepath.Join(canonical, "gradlew"))
	if got, ok := GradleProject(buildDir); !ok || got != canonical {
		t.Errorf("GradleProject = %q, %v; want %q", got, ok, canonical)
	}
}

func TestDebugAPK(t *testing.T) {
	gradleDir := t.TempDir()

	if _, ok := DebugAPK(gradleDir); ok {
		t.Error("no APK should be found in an empty project")
	}

	// Fallback location, discovered recursively.
	nested := filepath.Join(gradleDir, "build", "outputs", "apk", "full", "debug", "app-full-debug.apk")
	touch(t, nested)
	if got, ok := DebugAPK(gradleDir); !ok || got != nested {
		t.Errorf("DebugAPK = %q, %v; want %q", got, ok, nested)
	}

	// The canonical debug dir takes precedence; the last name wins there.
	first := filepath.Join(gradleDir, "build", "outputs", "apk", "debug", "app-arm-debug.apk")
	second := filepath.Join(gradleDir, "build", "outputs", "apk", "debug", "app-x86-debug.apk")
	touch(t, first)
	touch(t, second)
	if got, ok := DebugAPK(gradleDir); !ok || got != second {
		t.Errorf("DebugAPK = %q, %v; want %q", got, ok, second)
	}

	// Release APKs never match.
	release := filepath.Join(gradleDir, "build", "outputs", "apk", "debug", "app-release.apk")
	touch(t, release)
	if got, _ := DebugAPK(gradleDir); got == release {
		t.Error("release APK must not be selected")
	}
}

func TestDaemonBinary(t *testing.T) {
	buildDir := t.TempDir()
	if _, ok := DaemonBinary(buildDir); ok {
		t.Error("no daemon expected in an empty build dir")
	}
	want := filepath.Join(buildDir, "src", "daemon", "whats_on_daemon")
	touch(t, want)
	if got, ok := DaemonBinary(buildDir); !ok || got != want {
		t.Errorf("DaemonBinary = %q, %v; want %q", got, ok, want)
	}
}

func TestLatestVersionDir(t *testing.T) {
	parent := t.TempDir()
	for _, name := range []string{"6.2.4", "6.9.1", "6.10.0", "Tools", "notaversion"} {
		if err := os.MkdirAll(filepath.Join(parent, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	got, ok := LatestVersionDir(parent)
	if !ok {
		t.Fatal("expected a version dir")
	}
	if filepath.Base(got) != "6.10.0" {
		t.Errorf("LatestVersionDir = %q, want 6.10.0 (numeric compare, not lexicographic)", got)
	}

	if _, ok := LatestVersionDir(filepath.Join(parent, "Tools")); ok {
		t.Error("dir without version children should report no match")
	}
}

func TestLatestDir(t *testing.T) {
	parent := t.TempDir()
	for _, name := range []string{"26.1.10909125", "27.0.12077973"} {
		if err := os.MkdirAll(filepath.Join(parent, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	got, ok := LatestDir(parent)
	if !ok || filepath.Base(got) != "27.0.12077973" {
		t.Errorf("LatestDir = %q, %v", got, ok)
	}
}

func TestAdbFromSDK(t *testing.T) {
	sdk := t.TempDir()
	touch(t, filepath.Join(sdk, "platform-tools", "adb"))

	got, ok := Adb(sdk, "linux")
	if !ok {
		t.Fatal("adb should be found")
	}
	// PATH may win when the host has adb installed; either is usable.
	if got == "" {
		t.Error("adb path should not be empty")
	}
}

package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func testSnapshot() Snapshot {
	return Snapshot{
		QtHostPrefix:   "/home/dev/Qt/6.9.1/gcc_64",
		AndroidSDKRoot: "/home/dev/Android/Sdk",
		AndroidAVD:     "Pixel 7 API 35",
		Java21Home:     "/usr/lib/jvm/java-21",
	}
}

func TestVarsOmitsEmpty(t *testing.T) {
	vars := testSnapshot().Vars()
	if _, ok := vars["ANDROID_NDK_ROOT"]; ok {
		t.Error("unresolved entries must be omitted")
	}
	if vars["ANDROID_SDK_ROOT"] != "/home/dev/Android/Sdk" {
		t.Errorf("ANDROID_SDK_ROOT = %q", vars["ANDROID_SDK_ROOT"])
	}
	if vars["ANDROID_HOME"] != vars["ANDROID_SDK_ROOT"] {
		t.Error("ANDROID_HOME should mirror the SDK root")
	}
}

func TestWriteAll(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "dev-env")
	if err := WriteAll(testSnapshot(), outputDir); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	for _, name := range []string{"dev_env.sh", "dev_env.yaml", "build_all.sh", "README.txt"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	shell, err := os.ReadFile(filepath.Join(outputDir, "dev_env.sh"))
	if err != nil {
		t.Fatal(err)
	}
	script := string(shell)
	if !strings.Contains(script, "export ANDROID_SDK_ROOT=/home/dev/Android/Sdk") {
		t.Errorf("shell snapshot missing SDK export:\n%s", script)
	}
	// Values with spaces come out shell-quoted.
	if !strings.Contains(script, "export ANDROID_AVD='Pixel 7 API 35'") {
		t.Errorf("AVD name should be quoted:\n%s", script)
	}
	// Exports are sorted for stable diffs.
	sdkIdx := strings.Index(script, "ANDROID_SDK_ROOT")
	javaIdx := strings.Index(script, "JAVA21_HOME")
	if sdkIdx < 0 || javaIdx < 0 || sdkIdx > javaIdx {
		t.Error("exports should be sorted by name")
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "dev_env.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var restored Snapshot
	if err := yaml.Unmarshal(data, &restored); err != nil {
		t.Fatalf("yaml snapshot does not parse: %v", err)
	}
	if restored.QtHostPrefix != "/home/dev/Qt/6.9.1/gcc_64" {
		t.Errorf("restored QtHostPrefix = %q", restored.QtHostPrefix)
	}

	info, err := os.Stat(filepath.Join(outputDir, "build_all.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Error("build_all.sh should be executable")
	}
}

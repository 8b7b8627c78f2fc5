// Package envfile writes the developer-environment artifacts: a
// sourceable shell snapshot, a machine-readable YAML snapshot, a wrapper
// script for the build command, and a checklist of manual setup actions
// that still need a human.
package envfile

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iisacc-Justmoong/WhatSon/pkg/config"
	"github.com/iisacc-Justmoong/WhatSon/pkg/interfaces"
	"github.com/iisacc-Justmoong/WhatSon/pkg/locate"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// Snapshot is the resolved environment in exportable form.
type Snapshot struct {
	QtVersionRoot   string `yaml:"qt_version_root"`
	QtHostPrefix    string `yaml:"qt_host_prefix"`
	QtIOSPrefix     string `yaml:"qt_ios_prefix"`
	QtAndroidPrefix string `yaml:"qt_android_prefix"`

	LVRSPrefix        string `yaml:"lvrs_prefix"`
	LVRSAndroidPrefix string `yaml:"lvrs_android_prefix"`
	LVRSSourceDir     string `yaml:"lvrs_source_dir"`

	AndroidSDKRoot string `yaml:"android_sdk_root"`
	AndroidNDKRoot string `yaml:"android_ndk_root"`
	AndroidAVD     string `yaml:"android_avd"`
	AndroidPackage string `yaml:"android_package"`

	Java21Home string `yaml:"java21_home"`
}

// FromContext extracts the exportable slice of a resolved context.
func FromContext(buildCtx *config.BuildContext) Snapshot {
	return Snapshot{
		QtVersionRoot:     buildCtx.QtVersionRoot,
		QtHostPrefix:      buildCtx.QtHostPrefix,
		QtIOSPrefix:       buildCtx.QtIOSPrefix,
		QtAndroidPrefix:   buildCtx.QtAndroidPrefix,
		LVRSPrefix:        buildCtx.LVRSPrefix,
		LVRSAndroidPrefix: buildCtx.LVRSAndroidPrefix,
		LVRSSourceDir:     buildCtx.LVRSSourceDir,
		AndroidSDKRoot:    buildCtx.AndroidSDKRoot,
		AndroidNDKRoot:    buildCtx.AndroidNDKRoot,
		AndroidAVD:        buildCtx.AndroidAVD,
		AndroidPackage:    buildCtx.AndroidPackage,
		Java21Home:        buildCtx.Java21Home,
	}
}

// Vars maps the snapshot onto the environment variable names the build
// tooling reads.
func (s Snapshot) Vars() map[string]string {
	vars := map[string]string{
		"QT_VERSION_ROOT":         s.QtVersionRoot,
		"QT_HOST_PREFIX":          s.QtHostPrefix,
		"QT_IOS_PREFIX":           s.QtIOSPrefix,
		"QT_ANDROID_PREFIX":       s.QtAndroidPrefix,
		"LVRS_PREFIX":             s.LVRSPrefix,
		"LVRS_ANDROID_PREFIX":     s.LVRSAndroidPrefix,
		"LVRS_SOURCE_DIR":         s.LVRSSourceDir,
		"ANDROID_SDK_ROOT":        s.AndroidSDKRoot,
		"ANDROID_HOME":            s.AndroidSDKRoot,
		"ANDROID_NDK_ROOT":        s.AndroidNDKRoot,
		"ANDROID_AVD":             s.AndroidAVD,
		"WHATSON_ANDROID_PACKAGE": s.AndroidPackage,
		"JAVA21_HOME":             s.Java21Home,
	}
	for key, value := range vars {
		if value == "" {
			delete(vars, key)
		}
	}
	return vars
}

// WriteAll writes every artifact into outputDir.
func WriteAll(s Snapshot, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	if err := writeShell(s, filepath.Join(outputDir, "dev_env.sh")); err != nil {
		return err
	}
	if err := writeYAML(s, filepath.Join(outputDir, "dev_env.yaml")); err != nil {
		return err
	}
	if err := writeWrapper(filepath.Join(outputDir, "build_all.sh")); err != nil {
		return err
	}
	return writeReadme(filepath.Join(outputDir, "README.txt"))
}

func writeShell(s Snapshot, path string) error {
	vars := s.Vars()
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# Generated development environment. Source this file:\n")
	b.WriteString("#   . ./dev_env.sh\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "export %s=%s\n", key, runner.Quote(vars[key]))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeYAML(s Snapshot, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeWrapper(path string) error {
	script := `#!/bin/sh
# Sources the generated environment, then runs the build orchestrator.
set -e
here=$(CDPATH= cd -- "$(dirname -- "$0")" && pwd)
. "$here/dev_env.sh"
exec buildall "$@"
`
	return os.WriteFile(path, []byte(script), 0o755)
}

func writeReadme(path string) error {
	text := `Development environment artifacts for the WhatSon build tooling.

dev_env.sh    shell exports for the resolved toolchain locations
dev_env.yaml  the same snapshot in machine-readable form
build_all.sh  wrapper that sources dev_env.sh and runs buildall

Re-run "devenv" after installing or moving any toolchain.
`
	return os.WriteFile(path, []byte(text), 0o644)
}

var cmakeVersionLine = regexp.MustCompile(`cmake version (\d+)\.(\d+)`)

// ManualActions inspects the resolved environment and lists the setup
// steps that cannot be automated. An empty list means the machine is
// ready to build.
func ManualActions(ctx context.Context, buildCtx *config.BuildContext, run interfaces.CommandRunner) []string {
	var actions []string

	if ok, version := cmakeAtLeast(ctx, run, 3, 24); !ok {
		if version == "" {
			actions = append(actions, "install CMake 3.24 or newer")
		} else {
			actions = append(actions, fmt.Sprintf("upgrade CMake to 3.24 or newer (found %s)", version))
		}
	}
	for _, tool := range []string{"git", "python3"} {
		if _, err := exec.LookPath(tool); err != nil {
			actions = append(actions, fmt.Sprintf("install %s", tool))
		}
	}
	if buildCtx.GOOS == "darwin" {
		if _, err := exec.LookPath("xcrun"); err != nil {
			actions = append(actions, "install the Xcode command line tools (xcode-select --install)")
		}
	}

	if !locate.Exists(buildCtx.QtHostPrefix) {
		actions = append(actions, fmt.Sprintf("install the Qt host kit (expected at %s)", buildCtx.QtHostPrefix))
	}
	if !locate.Exists(buildCtx.QtAndroidPrefix) {
		actions = append(actions, fmt.Sprintf("install the Qt Android kit (expected at %s)", buildCtx.QtAndroidPrefix))
	}
	if buildCtx.GOOS == "darwin" && !locate.Exists(buildCtx.QtIOSPrefix) {
		actions = append(actions, fmt.Sprintf("install the Qt iOS kit (expected at %s)", buildCtx.QtIOSPrefix))
	}
	if !locate.Exists(buildCtx.LVRSPrefix) {
		actions = append(actions, fmt.Sprintf("install or build LVRS (expected at %s)", buildCtx.LVRSPrefix))
	}
	if !locate.Exists(buildCtx.AndroidSDKRoot) {
		actions = append(actions, fmt.Sprintf("install the Android SDK (expected at %s)", buildCtx.AndroidSDKRoot))
	}
	if buildCtx.AndroidNDKRoot == "" || !locate.Exists(buildCtx.AndroidNDKRoot) {
		actions = append(actions, "install an Android NDK (SDK Manager or Homebrew)")
	}
	if _, ok := locate.Adb(buildCtx.AndroidSDKRoot, buildCtx.GOOS); !ok {
		actions = append(actions, "install the Android platform-tools (adb)")
	}
	if buildCtx.AndroidAVD == "" {
		actions = append(actions, fmt.Sprintf("create an Android virtual device for task %q", types.TaskAndroid))
	}
	if buildCtx.Java21Home == "" || !locate.Exists(buildCtx.Java21Home) {
		actions = append(actions, "install a JDK 21 and set JAVA21_HOME")
	}

	return actions
}

func cmakeAtLeast(ctx context.Context, run interfaces.CommandRunner, major, minor int) (bool, string) {
	capture := run.Capture(ctx, []string{"cmake", "--version"}, "", nil)
	if !capture.OK() {
		return false, ""
	}
	match := cmakeVersionLine.FindStringSubmatch(capture.Stdout)
	if match == nil {
		return false, ""
	}
	gotMajor, _ := strconv.Atoi(match[1])
	gotMinor, _ := strconv.Atoi(match[2])
	version := fmt.Sprintf("%d.%d", gotMajor, gotMinor)
	if gotMajor != major {
		return gotMajor > major, version
	}
	return gotMinor >= minor, version
}

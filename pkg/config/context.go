// Package config resolves the build environment once, up front, into an
// immutable BuildContext that every component receives explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iisacc-Justmoong/WhatSon/pkg/locate"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// DefaultAndroidPackage is the application id used when neither a flag nor
// a platform manifest provides one.
const DefaultAndroidPackage = "com.lvrs.whatson"

// DefaultAppleBundleID is the bundle identifier used for iOS project
// generation and simulator cleanup.
const DefaultAppleBundleID = "com.lvrs.whatson"

// LegacyAndroidPackage is the Qt default package id left behind by older
// runs; it is always included in install cleanup.
const LegacyAndroidPackage = "org.qtproject.example.WhatSon"

// BuildContext is an immutable snapshot of everything the pipelines need:
// resolved paths, toolchain prefixes and identifiers. It is built once at
// startup and passed by reference; no component reads ambient state.
type BuildContext struct {
	RunID string
	GOOS  string
	Home  string

	Root    string
	LogsDir string

	HostBuildDir     string
	AndroidBuildDir  string
	IOSProjectDir    string
	AndroidStudioDir string

	QtVersionRoot   string
	QtHostPrefix    string
	QtIOSPrefix     string
	QtAndroidPrefix string

	LVRSPrefix           string
	LVRSAndroidPrefix    string
	LVRSSourceDir        string
	SkipAndroidLVRSBuild bool

	AndroidSDKRoot string
	AndroidNDKRoot string
	AndroidAVD     string

	// AndroidPackage is the application id; AndroidPackageExplicit records
	// whether it came from a flag/environment rather than discovery, which
	// disables runtime package-id detection.
	AndroidPackage         string
	AndroidPackageExplicit bool

	AppleBundleID string
	Java21Home    string

	NoHostRun  bool
	Sequential bool
}

// TaskLogPath returns the append-only log location for a task.
func (c *BuildContext) TaskLogPath(task types.TaskName) string {
	return filepath.Join(c.LogsDir, fmt.Sprintf("%s.log", task))
}

// EmulatorLogPath returns the auxiliary log used when an emulator has to
// be booted on behalf of a task.
func (c *BuildContext) EmulatorLogPath(task types.TaskName) string {
	return filepath.Join(c.LogsDir, fmt.Sprintf("%s.emulator.log", task))
}

// LVRSPlatformPrefix returns the per-platform LVRS package prefix when the
// root prefix carries a platforms/ dispatch layout, else the root prefix.
func (c *BuildContext) LVRSPlatformPrefix(platformName string) string {
	platformPrefix := filepath.Join(c.LVRSPrefix, "platforms", platformName)
	if locate.Exists(platformPrefix) {
		return platformPrefix
	}
	return c.LVRSPrefix
}

// AndroidEnv returns the environment overrides every Android-flavored
// external command needs.
func (c *BuildContext) AndroidEnv() map[string]string {
	env := map[string]string{
		"ANDROID_SDK_ROOT": c.AndroidSDKRoot,
		"ANDROID_HOME":     c.AndroidSDKRoot,
	}
	if c.AndroidNDKRoot != "" {
		env["ANDROID_NDK_ROOT"] = c.AndroidNDKRoot
		env["ANDROID_NDK_HOME"] = c.AndroidNDKRoot
		env["CMAKE_ANDROID_NDK"] = c.AndroidNDKRoot
	}
	return env
}

// WithJava21 layers the JDK 21 home over env when one was resolved; Gradle
// refuses newer default JDKs on the generated project.
func (c *BuildContext) WithJava21(env map[string]string) map[string]string {
	if c.Java21Home == "" || !locate.Exists(c.Java21Home) {
		return env
	}
	merged := make(map[string]string, len(env)+2)
	for k, v := range env {
		merged[k] = v
	}
	merged["JAVA_HOME"] = c.Java21Home
	merged["PATH"] = filepath.Join(c.Java21Home, "bin") + string(os.PathListSeparator) + os.Getenv("PATH")
	return merged
}

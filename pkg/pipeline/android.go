package pipeline

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iisacc-Justmoong/WhatSon/pkg/android"
	"github.com/iisacc-Justmoong/WhatSon/pkg/config"
	"github.com/iisacc-Justmoong/WhatSon/pkg/interfaces"
	"github.com/iisacc-Justmoong/WhatSon/pkg/locate"
	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// Android builds the APK, brings a device online, installs with retry,
// launches the app, and exports a sanitized Android Studio project.
//
// On macOS the full validated path runs: toolchain preconditions, an
// optional nested LVRS cross-build, cmake APK generation, the Gradle
// assembly, install and launch. Elsewhere the cmake launch target drives
// the same steps in one shot.
type Android struct {
	ctx *config.BuildContext
	run interfaces.CommandRunner
	log logger.Logger

	deviceOpts  []android.DeviceOption
	installOpts []android.InstallOption
}

// NewAndroid constructs the Android pipeline. Extra options tune device
// polling and install retry cadence.
func NewAndroid(buildCtx *config.BuildContext, run interfaces.CommandRunner, log logger.Logger, deviceOpts []android.DeviceOption, installOpts []android.InstallOption) *Android {
	return &Android{
		ctx:         buildCtx,
		run:         run,
		log:         log.WithTask(string(types.TaskAndroid)),
		deviceOpts:  deviceOpts,
		installOpts: installOpts,
	}
}

func (a *Android) Name() types.TaskName { return types.TaskAndroid }

func (a *Android) Run(ctx context.Context) types.TaskResult {
	logPath := a.ctx.TaskLogPath(types.TaskAndroid)
	if err := resetTaskLog(logPath, a.ctx.RunID); err != nil {
		return types.Failed(types.TaskAndroid, err.Error(), logPath)
	}

	adb, ok := locate.Adb(a.ctx.AndroidSDKRoot, a.ctx.GOOS)
	if !ok {
		return types.Failed(types.TaskAndroid, android.ErrNoAdb.Error(), logPath)
	}

	devices := android.NewDeviceManager(a.run, a.log, adb, a.ctx.GOOS,
		a.ctx.AndroidSDKRoot, a.ctx.AndroidAVD,
		logPath, a.ctx.EmulatorLogPath(types.TaskAndroid), a.deviceOpts...)
	installer := android.NewInstaller(a.run, a.log, adb, devices, logPath, a.installOpts...)

	serial, err := devices.Ensure(ctx)
	if err != nil {
		return types.Failed(types.TaskAndroid, fmt.Sprintf("no Android device: %v", err), logPath)
	}

	if err := cleanPath(a.ctx.AndroidBuildDir, logPath); err != nil {
		return types.Failed(types.TaskAndroid, err.Error(), logPath)
	}
	if err := os.MkdirAll(a.ctx.AndroidBuildDir, 0o755); err != nil {
		return types.Failed(types.TaskAndroid, err.Error(), logPath)
	}

	installer.ResetPackage(ctx, serial, a.ctx.AndroidPackage)
	if a.ctx.AndroidPackage != config.LegacyAndroidPackage {
		installer.ResetPackage(ctx, serial, config.LegacyAndroidPackage)
	}

	if a.ctx.GOOS == "darwin" {
		return a.runValidated(ctx, logPath, adb, serial, installer)
	}
	return a.runGeneric(ctx, logPath)
}

// runValidated is the step-by-step path with explicit toolchain checks.
func (a *Android) runValidated(ctx context.Context, logPath, adb, serial string, installer *android.Installer) types.TaskResult {
	if err := a.checkPreconditions(); err != nil {
		return types.Failed(types.TaskAndroid, err.Error(), logPath)
	}

	if err := a.ensureAndroidLVRS(ctx, logPath); err != nil {
		return types.Failed(types.TaskAndroid, fmt.Sprintf("LVRS Android build failed: %v", err), logPath)
	}

	if err := a.configure(ctx, logPath); err != nil {
		return types.Failed(types.TaskAndroid, fmt.Sprintf("cmake configure failed: %v", err), logPath)
	}
	if err := a.buildAPKTarget(ctx, logPath); err != nil {
		return types.Failed(types.TaskAndroid, fmt.Sprintf("APK target build failed: %v", err), logPath)
	}

	gradleDir, ok := locate.GradleProject(a.ctx.AndroidBuildDir)
	if !ok {
		return types.Failed(types.TaskAndroid, "generated Gradle project not found", logPath)
	}
	if err := a.assembleDebug(ctx, logPath, gradleDir); err != nil {
		return types.Failed(types.TaskAndroid, fmt.Sprintf("gradle assembleDebug failed: %v", err), logPath)
	}

	apk, ok := locate.DebugAPK(gradleDir)
	if !ok {
		return types.Failed(types.TaskAndroid, "debug APK not found after Gradle build", logPath)
	}
	a.log.Info("debug APK built", logger.WithField("apk", apk))

	packageID := a.ctx.AndroidPackage
	if !a.ctx.AndroidPackageExplicit {
		if discovered := discoverPackageID(gradleDir); discovered != "" && discovered != packageID {
			a.log.Info("using package id from build outputs", logger.WithField("package", discovered))
			packageID = discovered
			// The task-start reset only saw the configured id.
			installer.ResetPackage(ctx, serial, packageID)
		}
	}

	serial, err := installer.InstallWithRetry(ctx, apk, packageID, 3)
	if err != nil {
		return types.Failed(types.TaskAndroid, err.Error(), logPath)
	}

	if err := a.launch(ctx, logPath, adb, serial, packageID); err != nil {
		return types.Failed(types.TaskAndroid, fmt.Sprintf("app launch failed: %v", err), logPath)
	}

	if err := ExportStudioProject(gradleDir, a.ctx.AndroidStudioDir, logPath); err != nil {
		a.log.Warn("Android Studio export failed", logger.WithField("error", err.Error()))
	}

	detail := fmt.Sprintf("installed and launched %s on %s", packageID, serial)
	if pid := a.probePid(ctx, adb, serial, packageID); pid != "" {
		detail += fmt.Sprintf(" (pid %s)", pid)
	}
	return types.Success(types.TaskAndroid, detail, logPath)
}

// runGeneric delegates to the cmake launch target, which generates,
// assembles, installs and launches in one build graph. The configure uses
// the host Qt/LVRS prefixes only; the launch target owns the
// cross-compilation setup.
func (a *Android) runGeneric(ctx context.Context, logPath string) types.TaskResult {
	if err := a.configureGeneric(ctx, logPath); err != nil {
		return types.Failed(types.TaskAndroid, fmt.Sprintf("cmake configure failed: %v", err), logPath)
	}
	if _, err := a.run.Run(ctx, runner.Command{
		Args:    []string{"cmake", "--build", a.ctx.AndroidBuildDir, "--target", "launch_WhatSon_android"},
		Env:     a.ctx.WithJava21(a.ctx.AndroidEnv()),
		LogPath: logPath,
		Check:   true,
	}); err != nil {
		return types.Failed(types.TaskAndroid, fmt.Sprintf("launch target failed: %v", err), logPath)
	}

	if gradleDir, ok := locate.GradleProject(a.ctx.AndroidBuildDir); ok {
		if err := ExportStudioProject(gradleDir, a.ctx.AndroidStudioDir, logPath); err != nil {
			a.log.Warn("Android Studio export failed", logger.WithField("error", err.Error()))
		}
	}
	return types.Success(types.TaskAndroid, "built, installed and launched via launch target", logPath)
}

// checkPreconditions verifies the cross-toolchain pieces in dependency
// order so the failure names the first missing one.
func (a *Android) checkPreconditions() error {
	checks := []struct {
		name string
		path string
	}{
		{"Qt Android kit", a.ctx.QtAndroidPrefix},
		{"Qt host kit", a.ctx.QtHostPrefix},
		{"Android SDK", a.ctx.AndroidSDKRoot},
		{"Android NDK", a.ctx.AndroidNDKRoot},
	}
	for _, check := range checks {
		if check.path == "" || !locate.Exists(check.path) {
			return &PreconditionError{Name: check.name, Path: check.path}
		}
	}
	return nil
}

// ensureAndroidLVRS cross-builds and installs the LVRS dependency for
// Android when its cmake package is not already present.
func (a *Android) ensureAndroidLVRS(ctx context.Context, logPath string) error {
	packageDir := locate.CMakePackageDir(a.ctx.LVRSAndroidPrefix, "LVRS")
	if locate.Exists(filepath.Join(packageDir, "LVRSConfig.cmake")) {
		return nil
	}
	if a.ctx.SkipAndroidLVRSBuild {
		return &PreconditionError{Name: "LVRS Android package", Path: packageDir}
	}
	if !locate.Exists(filepath.Join(a.ctx.LVRSSourceDir, "CMakeLists.txt")) {
		return &PreconditionError{Name: "LVRS source tree", Path: a.ctx.LVRSSourceDir}
	}

	a.log.Info("cross-building LVRS for Android", logger.WithField("source", a.ctx.LVRSSourceDir))
	buildDir := filepath.Join(a.ctx.AndroidBuildDir, "lvrs-android")
	env := a.ctx.AndroidEnv()
	toolchain := filepath.Join(a.ctx.AndroidNDKRoot, "build", "cmake", "android.toolchain.cmake")

	steps := [][]string{
		{
			"cmake",
			"-S", a.ctx.LVRSSourceDir,
			"-B", buildDir,
			"-DCMAKE_TOOLCHAIN_FILE=" + toolchain,
			"-DANDROID_ABI=arm64-v8a",
			"-DANDROID_PLATFORM=android-28",
			"-DCMAKE_BUILD_TYPE=Release",
			"-DCMAKE_INSTALL_PREFIX=" + a.ctx.LVRSAndroidPrefix,
			"-DBUILD_TESTING=OFF",
		},
		{"cmake", "--build", buildDir, "--parallel"},
		{"cmake", "--install", buildDir},
	}
	for _, args := range steps {
		if _, err := a.run.Run(ctx, runner.Command{Args: args, Env: env, LogPath: logPath, Check: true}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Android) configure(ctx context.Context, logPath string) error {
	toolchain := filepath.Join(a.ctx.QtAndroidPrefix, "lib", "cmake", "Qt6", "qt.toolchain.cmake")
	var prefixes []string
	if locate.Exists(a.ctx.QtAndroidPrefix) {
		prefixes = append(prefixes, a.ctx.QtAndroidPrefix)
	}
	if locate.Exists(a.ctx.LVRSAndroidPrefix) {
		prefixes = append(prefixes, a.ctx.LVRSAndroidPrefix)
	}

	args := []string{
		"cmake",
		"-S", a.ctx.Root,
		"-B", a.ctx.AndroidBuildDir,
		"-DCMAKE_TOOLCHAIN_FILE=" + toolchain,
		"-DQT_HOST_PATH=" + a.ctx.QtHostPrefix,
		"-DANDROID_SDK_ROOT=" + a.ctx.AndroidSDKRoot,
		"-DANDROID_NDK_ROOT=" + a.ctx.AndroidNDKRoot,
		"-DCMAKE_BUILD_TYPE=Debug",
	}
	if len(prefixes) > 0 {
		args = append(args, "-DCMAKE_PREFIX_PATH="+strings.Join(prefixes, ";"))
	}
	if lvrsDir := locate.CMakePackageDir(a.ctx.LVRSAndroidPrefix, "LVRS"); locate.Exists(lvrsDir) {
		args = append(args, "-DLVRS_DIR="+lvrsDir)
	}

	_, err := a.run.Run(ctx, runner.Command{
		Args:    args,
		Env:     a.ctx.AndroidEnv(),
		LogPath: logPath,
		Check:   true,
	})
	return err
}

func (a *Android) configureGeneric(ctx context.Context, logPath string) error {
	var prefixes []string
	if locate.Exists(a.ctx.QtHostPrefix) {
		prefixes = append(prefixes, a.ctx.QtHostPrefix)
	}
	hostLVRS := a.ctx.LVRSPlatformPrefix(a.ctx.GOOS)
	if locate.Exists(hostLVRS) {
		prefixes = append(prefixes, hostLVRS)
	}

	args := []string{
		"cmake",
		"-S", a.ctx.Root,
		"-B", a.ctx.AndroidBuildDir,
		"-DCMAKE_BUILD_TYPE=Debug",
	}
	if len(prefixes) > 0 {
		args = append(args, "-DCMAKE_PREFIX_PATH="+strings.Join(prefixes, ";"))
	}
	if lvrsDir := locate.CMakePackageDir(hostLVRS, "LVRS"); locate.Exists(lvrsDir) {
		args = append(args, "-DLVRS_DIR="+lvrsDir)
	}

	_, err := a.run.Run(ctx, runner.Command{
		Args:    args,
		Env:     a.ctx.AndroidEnv(),
		LogPath: logPath,
		Check:   true,
	})
	return err
}

func (a *Android) buildAPKTarget(ctx context.Context, logPath string) error {
	_, err := a.run.Run(ctx, runner.Command{
		Args:    []string{"cmake", "--build", a.ctx.AndroidBuildDir, "--target", "WhatSon_make_apk"},
		Env:     a.ctx.WithJava21(a.ctx.AndroidEnv()),
		LogPath: logPath,
		Check:   true,
	})
	return err
}

func (a *Android) assembleDebug(ctx context.Context, logPath, gradleDir string) error {
	wrapper, ok := locate.GradleWrapper(gradleDir)
	if !ok {
		return &PreconditionError{Name: "Gradle wrapper", Path: gradleDir}
	}
	if filepath.Ext(wrapper) != ".bat" {
		_ = os.Chmod(wrapper, 0o755)
	}
	_, err := a.run.Run(ctx, runner.Command{
		Args:    []string{wrapper, "assembleDebug"},
		Dir:     gradleDir,
		Env:     a.ctx.WithJava21(a.ctx.AndroidEnv()),
		LogPath: logPath,
		Check:   true,
	})
	return err
}

func (a *Android) launch(ctx context.Context, logPath, adb, serial, packageID string) error {
	_, _ = a.run.Run(ctx, runner.Command{
		Args:    []string{adb, "-s", serial, "shell", "am", "force-stop", packageID},
		LogPath: logPath,
	})
	_, err := a.run.Run(ctx, runner.Command{
		Args: []string{
			adb, "-s", serial, "shell", "monkey",
			"-p", packageID,
			"-c", "android.intent.category.LAUNCHER", "1",
		},
		LogPath: logPath,
		Check:   true,
	})
	return err
}

func (a *Android) probePid(ctx context.Context, adb, serial, packageID string) string {
	capture := a.run.Capture(ctx, []string{adb, "-s", serial, "shell", "pidof", packageID}, "", nil)
	if !capture.OK() {
		return ""
	}
	return strings.TrimSpace(capture.Stdout)
}

type gradleOutputMetadata struct {
	ApplicationID string `json:"applicationId"`
	Elements      []struct {
		ApplicationID string `json:"applicationId"`
	} `json:"elements"`
}

// discoverPackageID reads the application id the Gradle build actually
// produced, since the generated project may override the configured one.
// Probes, in order: the output metadata next to the APK, the generated
// gradle.properties, and the project manifest.
func discoverPackageID(gradleDir string) string {
	metaPath := filepath.Join(gradleDir, "build", "outputs", "apk", "debug", "output-metadata.json")
	if data, err := os.ReadFile(metaPath); err == nil {
		var meta gradleOutputMetadata
		if json.Unmarshal(data, &meta) == nil {
			if meta.ApplicationID != "" {
				return meta.ApplicationID
			}
			for _, element := range meta.Elements {
				if element.ApplicationID != "" {
					return element.ApplicationID
				}
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join(gradleDir, "gradle.properties")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if value, found := strings.CutPrefix(strings.TrimSpace(line), "androidPackageName="); found {
				if value = strings.TrimSpace(value); value != "" {
					return value
				}
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join(gradleDir, "AndroidManifest.xml")); err == nil {
		if pkg := manifestPackageAttr(data); pkg != "" {
			return pkg
		}
	}
	return ""
}

func manifestPackageAttr(data []byte) string {
	var manifest struct {
		Package string `xml:"package,attr"`
	}
	if err := xml.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return strings.TrimSpace(manifest.Package)
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iisacc-Justmoong/WhatSon/pkg/config"
	"github.com/iisacc-Justmoong/WhatSon/pkg/interfaces"
	"github.com/iisacc-Justmoong/WhatSon/pkg/locate"
	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// IOS generates the Xcode project artifact for the simulator. The task
// only runs on macOS; elsewhere it reports skipped without touching any
// external tool.
type IOS struct {
	ctx *config.BuildContext
	run interfaces.CommandRunner
	log logger.Logger
}

// NewIOS constructs the iOS pipeline.
func NewIOS(buildCtx *config.BuildContext, run interfaces.CommandRunner, log logger.Logger) *IOS {
	return &IOS{ctx: buildCtx, run: run, log: log.WithTask(string(types.TaskIOS))}
}

func (p *IOS) Name() types.TaskName { return types.TaskIOS }

func (p *IOS) Run(ctx context.Context) types.TaskResult {
	if p.ctx.GOOS != "darwin" {
		return types.Skipped(types.TaskIOS, "iOS Xcode project generation is macOS-only", "")
	}

	logPath := p.ctx.TaskLogPath(types.TaskIOS)
	if err := resetTaskLog(logPath, p.ctx.RunID); err != nil {
		return types.Failed(types.TaskIOS, err.Error(), logPath)
	}

	p.cleanupSimulators(ctx, logPath)

	if err := cleanPath(p.ctx.IOSProjectDir, logPath); err != nil {
		return types.Failed(types.TaskIOS, err.Error(), logPath)
	}
	if err := os.MkdirAll(p.ctx.IOSProjectDir, 0o755); err != nil {
		return types.Failed(types.TaskIOS, err.Error(), logPath)
	}

	if !locate.Exists(p.ctx.QtIOSPrefix) {
		return types.Failed(types.TaskIOS, (&PreconditionError{Name: "Qt iOS kit", Path: p.ctx.QtIOSPrefix}).Error(), logPath)
	}

	if err := p.ensureIOSLVRS(ctx, logPath); err != nil {
		return types.Failed(types.TaskIOS, fmt.Sprintf("LVRS iOS build failed: %v", err), logPath)
	}

	if err := p.generateProject(ctx, logPath); err != nil {
		return types.Failed(types.TaskIOS, fmt.Sprintf("Xcode project generation failed: %v", err), logPath)
	}

	project := filepath.Join(p.ctx.IOSProjectDir, "WhatSon.xcodeproj")
	if !locate.Exists(project) {
		matches, _ := filepath.Glob(filepath.Join(p.ctx.IOSProjectDir, "*.xcodeproj"))
		if len(matches) == 0 {
			return types.Failed(types.TaskIOS, "no .xcodeproj produced", logPath)
		}
		project = matches[0]
	}
	return types.Success(types.TaskIOS, fmt.Sprintf("Xcode project generated at %s", project), logPath)
}

// cleanupSimulators removes stale app installs from booted simulators so
// a later manual run starts clean. Best-effort.
func (p *IOS) cleanupSimulators(ctx context.Context, logPath string) {
	capture := p.run.Capture(ctx, []string{"xcrun", "simctl", "list", "devices", "booted", "-j"}, "", nil)
	if !capture.OK() {
		return
	}
	var listing struct {
		Devices map[string][]struct {
			UDID  string `json:"udid"`
			State string `json:"state"`
		} `json:"devices"`
	}
	if err := json.Unmarshal([]byte(capture.Stdout), &listing); err != nil {
		return
	}
	for _, devices := range listing.Devices {
		for _, device := range devices {
			if device.State != "Booted" {
				continue
			}
			_, _ = p.run.Run(ctx, runner.Command{
				Args:    []string{"xcrun", "simctl", "terminate", device.UDID, p.ctx.AppleBundleID},
				LogPath: logPath,
			})
			_, _ = p.run.Run(ctx, runner.Command{
				Args:    []string{"xcrun", "simctl", "uninstall", device.UDID, p.ctx.AppleBundleID},
				LogPath: logPath,
			})
		}
	}
}

// simulatorSDKPath asks the Xcode toolchain where the simulator SDK
// lives, for the backtrace library hints the cross-build needs.
func (p *IOS) simulatorSDKPath(ctx context.Context) string {
	capture := p.run.Capture(ctx, []string{"xcrun", "--sdk", "iphonesimulator", "--show-sdk-path"}, "", nil)
	if !capture.OK() {
		return ""
	}
	return strings.TrimSpace(capture.Stdout)
}

// ensureIOSLVRS cross-builds LVRS for the simulator when its cmake
// package is not already installed under the platform prefix.
func (p *IOS) ensureIOSLVRS(ctx context.Context, logPath string) error {
	prefix := p.ctx.LVRSPlatformPrefix("ios")
	packageDir := locate.CMakePackageDir(prefix, "LVRS")
	if locate.Exists(filepath.Join(packageDir, "LVRSConfig.cmake")) {
		return nil
	}
	if !locate.Exists(filepath.Join(p.ctx.LVRSSourceDir, "CMakeLists.txt")) {
		return &PreconditionError{Name: "LVRS source tree", Path: p.ctx.LVRSSourceDir}
	}

	p.log.Info("cross-building LVRS for the iOS simulator", logger.WithField("source", p.ctx.LVRSSourceDir))
	buildDir := filepath.Join(p.ctx.IOSProjectDir, "lvrs-ios")
	args := []string{
		"cmake",
		"-S", p.ctx.LVRSSourceDir,
		"-B", buildDir,
		"-G", "Xcode",
		"-DCMAKE_SYSTEM_NAME=iOS",
		"-DCMAKE_OSX_SYSROOT=iphonesimulator",
		"-DCMAKE_OSX_ARCHITECTURES=arm64",
		"-DCMAKE_INSTALL_PREFIX=" + prefix,
		"-DLVRS_BUILD_SHARED_LIBS=OFF",
		"-DBUILD_TESTING=OFF",
		"-DCMAKE_XCODE_ATTRIBUTE_CODE_SIGNING_ALLOWED=NO",
		"-DCMAKE_XCODE_ATTRIBUTE_CODE_SIGNING_REQUIRED=NO",
	}
	if sdkPath := p.simulatorSDKPath(ctx); sdkPath != "" {
		args = append(args,
			"-DBacktrace_INCLUDE_DIR="+filepath.Join(sdkPath, "usr", "include"),
			"-DBacktrace_LIBRARY="+filepath.Join(sdkPath, "usr", "lib", "libc.tbd"),
		)
	}

	steps := [][]string{
		args,
		{"cmake", "--build", buildDir, "--config", "Release", "--parallel"},
		{"cmake", "--install", buildDir, "--config", "Release"},
	}
	for _, step := range steps {
		if _, err := p.run.Run(ctx, runner.Command{Args: step, LogPath: logPath, Check: true}); err != nil {
			return err
		}
	}
	return nil
}

func (p *IOS) generateProject(ctx context.Context, logPath string) error {
	prefix := p.ctx.LVRSPlatformPrefix("ios")
	toolchain := filepath.Join(p.ctx.QtIOSPrefix, "lib", "cmake", "Qt6", "qt.toolchain.cmake")

	var prefixes []string
	if locate.Exists(p.ctx.QtIOSPrefix) {
		prefixes = append(prefixes, p.ctx.QtIOSPrefix)
	}
	if locate.Exists(prefix) {
		prefixes = append(prefixes, prefix)
	}

	args := []string{
		"cmake",
		"-S", p.ctx.Root,
		"-B", p.ctx.IOSProjectDir,
		"-G", "Xcode",
		"-DCMAKE_TOOLCHAIN_FILE=" + toolchain,
		"-DQT_HOST_PATH=" + p.ctx.QtHostPrefix,
		"-DCMAKE_OSX_SYSROOT=iphonesimulator",
		"-DWHATSON_APPLE_BUNDLE_ID=" + p.ctx.AppleBundleID,
		"-DCMAKE_XCODE_ATTRIBUTE_CODE_SIGNING_ALLOWED=NO",
		"-DCMAKE_XCODE_ATTRIBUTE_CODE_SIGNING_REQUIRED=NO",
	}
	if len(prefixes) > 0 {
		args = append(args, "-DCMAKE_PREFIX_PATH="+strings.Join(prefixes, ";"))
	}
	if lvrsDir := locate.CMakePackageDir(prefix, "LVRS"); locate.Exists(lvrsDir) {
		args = append(args, "-DLVRS_DIR="+lvrsDir)
	}

	_, err := p.run.Run(ctx, runner.Command{Args: args, LogPath: logPath, Check: true})
	return err
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/iisacc-Justmoong/WhatSon/pkg/config"
	"github.com/iisacc-Justmoong/WhatSon/pkg/interfaces"
	"github.com/iisacc-Justmoong/WhatSon/pkg/locate"
	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/platform"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// Host builds the desktop application and its companion daemon, runs the
// daemon healthcheck, and smoke-launches the app in the background.
type Host struct {
	ctx  *config.BuildContext
	run  interfaces.CommandRunner
	plat platform.Platform
	log  logger.Logger
}

// NewHost constructs the host pipeline.
func NewHost(buildCtx *config.BuildContext, run interfaces.CommandRunner, plat platform.Platform, log logger.Logger) *Host {
	return &Host{ctx: buildCtx, run: run, plat: plat, log: log.WithTask(string(types.TaskHost))}
}

func (h *Host) Name() types.TaskName { return types.TaskHost }

func (h *Host) Run(ctx context.Context) types.TaskResult {
	logPath := h.ctx.TaskLogPath(types.TaskHost)
	if err := resetTaskLog(logPath, h.ctx.RunID); err != nil {
		return types.Failed(types.TaskHost, err.Error(), logPath)
	}

	h.stopRunningApp(ctx, logPath)

	if err := cleanPath(h.ctx.HostBuildDir, logPath); err != nil {
		return types.Failed(types.TaskHost, err.Error(), logPath)
	}
	if err := os.MkdirAll(h.ctx.HostBuildDir, 0o755); err != nil {
		return types.Failed(types.TaskHost, err.Error(), logPath)
	}

	if err := h.configure(ctx, logPath); err != nil {
		return types.Failed(types.TaskHost, fmt.Sprintf("cmake configure failed: %v", err), logPath)
	}
	if err := h.build(ctx, logPath); err != nil {
		return types.Failed(types.TaskHost, fmt.Sprintf("cmake build failed: %v", err), logPath)
	}

	if daemon, ok := locate.DaemonBinary(h.ctx.HostBuildDir); ok {
		h.log.Info("running daemon healthcheck")
		if _, err := h.run.Run(ctx, runner.Command{
			Args:    []string{daemon, "--healthcheck"},
			LogPath: logPath,
			Check:   true,
		}); err != nil {
			return types.Failed(types.TaskHost, fmt.Sprintf("daemon healthcheck failed: %v", err), logPath)
		}
	} else {
		h.log.Warn("daemon binary not found, skipping healthcheck")
	}

	if h.ctx.NoHostRun {
		return types.Success(types.TaskHost, "built (launch skipped)", logPath)
	}

	appBinary, ok := locate.FirstExisting(h.plat.AppBinaryCandidates(h.ctx.HostBuildDir)...)
	if !ok {
		return types.Failed(types.TaskHost, "app binary not found after build", logPath)
	}

	for _, args := range h.plat.StopAppCommands(appBinary) {
		_, _ = h.run.Run(ctx, runner.Command{Args: args, LogPath: logPath})
	}

	pid, err := h.run.StartDetached([]string{appBinary}, h.ctx.Root, logPath)
	if err != nil {
		return types.Failed(types.TaskHost, fmt.Sprintf("app launch failed: %v", err), logPath)
	}
	h.log.Success("app launched", logger.WithField("pid", pid))

	if reveal, ok := h.plat.RevealCommand(appBinary); ok {
		_, _ = h.run.Run(ctx, runner.Command{Args: reveal, LogPath: logPath})
	}

	return types.Success(types.TaskHost, fmt.Sprintf("built and launched (pid %d)", pid), logPath)
}

func (h *Host) stopRunningApp(ctx context.Context, logPath string) {
	for _, args := range h.plat.StopProcessCommands() {
		_, _ = h.run.Run(ctx, runner.Command{Args: args, LogPath: logPath})
	}
}

func (h *Host) configure(ctx context.Context, logPath string) error {
	var prefixes []string
	if locate.Exists(h.ctx.QtHostPrefix) {
		prefixes = append(prefixes, h.ctx.QtHostPrefix)
	}
	hostLVRS := h.ctx.LVRSPlatformPrefix(h.ctx.GOOS)
	if locate.Exists(hostLVRS) {
		prefixes = append(prefixes, hostLVRS)
	}

	args := []string{
		"cmake",
		"-S", h.ctx.Root,
		"-B", h.ctx.HostBuildDir,
		"-DCMAKE_BUILD_TYPE=Debug",
		"-DWHATSON_ENABLE_IOS_XCODEPROJ_ON_BUILD=OFF",
	}
	if len(prefixes) > 0 {
		args = append(args, "-DCMAKE_PREFIX_PATH="+strings.Join(prefixes, ";"))
	}
	if lvrsDir := locate.CMakePackageDir(hostLVRS, "LVRS"); locate.Exists(lvrsDir) {
		args = append(args, "-DLVRS_DIR="+lvrsDir)
	}

	_, err := h.run.Run(ctx, runner.Command{Args: args, LogPath: logPath, Check: true})
	return err
}

func (h *Host) build(ctx context.Context, logPath string) error {
	_, err := h.run.Run(ctx, runner.Command{
		Args: []string{
			"cmake", "--build", h.ctx.HostBuildDir,
			"--target", "WhatSon", "whats_on_daemon",
			"--parallel",
		},
		LogPath: logPath,
		Check:   true,
	})
	return err
}

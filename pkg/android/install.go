package android

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iisacc-Justmoong/WhatSon/pkg/interfaces"
	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
)

const (
	defaultInstallAttempts = 3
	defaultRetryInterval   = 2 * time.Second
)

// Installer installs a package onto a device with retry. Each attempt
// re-verifies the device, and failed attempts are followed by a cleanup
// of stale installs before the next try.
type Installer struct {
	run     interfaces.CommandRunner
	log     logger.Logger
	adb     string
	devices *DeviceManager

	taskLogPath   string
	retryInterval time.Duration
}

// InstallOption tunes an Installer.
type InstallOption func(*Installer)

// WithRetryInterval overrides the pause between install attempts.
func WithRetryInterval(interval time.Duration) InstallOption {
	return func(i *Installer) { i.retryInterval = interval }
}

// NewInstaller builds an installer sharing the device manager's adb.
func NewInstaller(run interfaces.CommandRunner, log logger.Logger, adb string, devices *DeviceManager, taskLogPath string, opts ...InstallOption) *Installer {
	i := &Installer{
		run:           run,
		log:           log,
		adb:           adb,
		devices:       devices,
		taskLogPath:   taskLogPath,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// InstallWithRetry installs the package, retrying up to attempts times.
// Between failed attempts the package is force-stopped and uninstalled so
// the next try starts from a clean slate; no cleanup runs after the final
// failure so the device state stays inspectable. Returns the serial the
// package landed on.
func (i *Installer) InstallWithRetry(ctx context.Context, apkPath, packageID string, attempts int) (string, error) {
	if attempts <= 0 {
		attempts = defaultInstallAttempts
	}

	var serial string
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		serial, err = i.devices.Ensure(ctx)
		if err != nil {
			if attempt >= attempts {
				return backoff.Permanent(err)
			}
			return err
		}

		i.log.Info("installing package",
			logger.WithField("attempt", attempt),
			logger.WithField("serial", serial))
		code, err := i.run.Run(ctx, runner.Command{
			Args:    []string{i.adb, "-s", serial, "install", "-r", apkPath},
			LogPath: i.taskLogPath,
		})
		if err == nil && code == 0 {
			return nil
		}

		if attempt >= attempts {
			return backoff.Permanent(&InstallError{
				APKPath:    apkPath,
				LastSerial: serial,
				Attempts:   attempts,
			})
		}

		i.log.Warn("install failed, cleaning up before retry",
			logger.WithField("attempt", attempt))
		i.cleanup(ctx, serial, packageID)
		return &InstallError{APKPath: apkPath, LastSerial: serial, Attempts: attempt}
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(i.retryInterval), uint64(attempts-1))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return serial, err
	}
	i.log.Success("package installed", logger.WithField("serial", serial))
	return serial, nil
}

// cleanup removes every trace of a stale install. All steps are
// best-effort; devices without the package report failures we ignore.
func (i *Installer) cleanup(ctx context.Context, serial, packageID string) {
	steps := [][]string{
		{i.adb, "-s", serial, "shell", "am", "force-stop", packageID},
		{i.adb, "-s", serial, "uninstall", packageID},
		{i.adb, "-s", serial, "shell", "cmd", "package", "uninstall", "--user", "0", packageID},
	}
	for _, args := range steps {
		_, _ = i.run.Run(ctx, runner.Command{Args: args, LogPath: i.taskLogPath})
	}
}

// ResetPackage clears prior installs of a package id before a fresh
// install cycle. Best-effort; missing packages are not an error.
func (i *Installer) ResetPackage(ctx context.Context, serial, packageID string) {
	probe := i.run.Capture(ctx, []string{i.adb, "-s", serial, "shell", "pm", "list", "packages", packageID}, "", nil)
	if probe.OK() && probe.Stdout == "" {
		return
	}
	steps := [][]string{
		{i.adb, "-s", serial, "shell", "am", "force-stop", packageID},
		{i.adb, "-s", serial, "shell", "pm", "clear", packageID},
		{i.adb, "-s", serial, "uninstall", packageID},
	}
	for _, args := range steps {
		_, _ = i.run.Run(ctx, runner.Command{Args: args, LogPath: i.taskLogPath})
	}
}

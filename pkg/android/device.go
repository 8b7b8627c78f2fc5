// Package android manages the device side of the Android pipeline:
// bringing a device online (connected hardware or a booted emulator) and
// installing packages with retry and cleanup between attempts.
package android

import (
	"context"
	"strings"
	"time"

	"github.com/iisacc-Justmoong/WhatSon/pkg/interfaces"
	"github.com/iisacc-Justmoong/WhatSon/pkg/locate"
	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
)

const (
	defaultBootPollInterval = 2 * time.Second
	defaultBootPollAttempts = 180
)

// DeviceManager brings an Android device online. A connected device is
// used as-is; otherwise an emulator is booted from the configured virtual
// device profile and polled until its boot completes.
type DeviceManager struct {
	run  interfaces.CommandRunner
	log  logger.Logger
	adb  string
	goos string

	sdkRoot string
	avd     string

	taskLogPath     string
	emulatorLogPath string

	bootPollInterval time.Duration
	bootPollAttempts int

	emulatorStarted bool
}

// DeviceOption tunes a DeviceManager.
type DeviceOption func(*DeviceManager)

// WithBootPoll overrides the boot polling cadence.
func WithBootPoll(interval time.Duration, attempts int) DeviceOption {
	return func(m *DeviceManager) {
		m.bootPollInterval = interval
		m.bootPollAttempts = attempts
	}
}

// NewDeviceManager builds a manager around a located adb binary.
func NewDeviceManager(run interfaces.CommandRunner, log logger.Logger, adb, goos, sdkRoot, avd, taskLogPath, emulatorLogPath string, opts ...DeviceOption) *DeviceManager {
	m := &DeviceManager{
		run:              run,
		log:              log,
		adb:              adb,
		goos:             goos,
		sdkRoot:          sdkRoot,
		avd:              avd,
		taskLogPath:      taskLogPath,
		emulatorLogPath:  emulatorLogPath,
		bootPollInterval: defaultBootPollInterval,
		bootPollAttempts: defaultBootPollAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ConnectedDevice returns the serial of the first device in the "device"
// state, if any.
func (m *DeviceManager) ConnectedDevice(ctx context.Context) (string, bool) {
	capture := m.run.Capture(ctx, []string{m.adb, "devices", "-l"}, "", nil)
	if !capture.OK() {
		return "", false
	}
	for _, line := range strings.Split(capture.Stdout, "\n")[1:] {
		parts := strings.Fields(line)
		if len(parts) >= 2 && parts[1] == "device" {
			return parts[0], true
		}
	}
	return "", false
}

// Ensure returns the serial of a ready device, booting an emulator when
// nothing is connected. Repeated calls reuse an already booted emulator.
func (m *DeviceManager) Ensure(ctx context.Context) (string, error) {
	if serial, ok := m.ConnectedDevice(ctx); ok {
		m.log.Info("using connected device", logger.WithField("serial", serial))
		return serial, nil
	}

	avd, err := m.resolveAVD(ctx)
	if err != nil {
		return "", err
	}

	emulator, ok := locate.Emulator(m.sdkRoot, m.goos)
	if !ok {
		return "", ErrNoEmulator
	}

	if !m.emulatorStarted {
		m.log.Info("booting emulator", logger.WithField("avd", avd))
		pid, err := m.run.StartDetached(
			[]string{emulator, "-avd", avd, "-netdelay", "none", "-netspeed", "full"},
			"", m.emulatorLogPath,
		)
		if err != nil {
			return "", err
		}
		m.emulatorStarted = true
		m.log.Debug("emulator process started", logger.WithField("pid", pid))
	}

	if _, err := m.run.Run(ctx, runner.Command{
		Args:    []string{m.adb, "wait-for-device"},
		LogPath: m.taskLogPath,
	}); err != nil {
		return "", err
	}

	if err := m.waitForBoot(ctx); err != nil {
		return "", err
	}

	serial, ok := m.ConnectedDevice(ctx)
	if !ok {
		return "", ErrBootTimeout
	}
	m.log.Success("emulator ready", logger.WithField("serial", serial))
	return serial, nil
}

func (m *DeviceManager) resolveAVD(ctx context.Context) (string, error) {
	if m.avd != "" {
		return m.avd, nil
	}
	emulator, ok := locate.Emulator(m.sdkRoot, m.goos)
	if !ok {
		return "", ErrNoEmulator
	}
	capture := m.run.Capture(ctx, []string{emulator, "-list-avds"}, "", nil)
	if capture.OK() {
		for _, line := range strings.Split(capture.Stdout, "\n") {
			name := strings.TrimSpace(line)
			if name != "" && !strings.HasPrefix(name, "INFO") {
				m.avd = name
				return name, nil
			}
		}
	}
	return "", ErrNoAVD
}

// waitForBoot polls the boot-completed system property until the device
// reports 1 or the attempt budget is exhausted.
func (m *DeviceManager) waitForBoot(ctx context.Context) error {
	for attempt := 0; attempt < m.bootPollAttempts; attempt++ {
		capture := m.run.Capture(ctx, []string{m.adb, "shell", "getprop", "sys.boot_completed"}, "", nil)
		if capture.OK() && strings.TrimSpace(capture.Stdout) == "1" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.bootPollInterval):
		}
	}
	return ErrBootTimeout
}

package android

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
)

func connectedFake(installFn func(attempt int) (int, error)) *fakeRunner {
	installs := 0
	fake := &fakeRunner{
		captureFn: func(args []string) runner.Capture {
			if isDevicesQuery(args) {
				return runner.Capture{Stdout: "List of devices attached\nemulator-5554\tdevice\n"}
			}
			return runner.Capture{}
		},
	}
	fake.runFn = func(args []string) (int, error) {
		if strings.Contains(strings.Join(args, " "), "install -r") {
			installs++
			return installFn(installs)
		}
		return 0, nil
	}
	return fake
}

func newTestInstaller(t *testing.T, fake *fakeRunner) *Installer {
	t.Helper()
	devices := NewDeviceManager(fake, logger.NopLogger{}, "adb", "linux", fakeSDK(t), "", "t.log", "t.emulator.log")
	return NewInstaller(fake, logger.NopLogger{}, "adb", devices, "t.log",
		WithRetryInterval(time.Millisecond))
}

func TestInstallSucceedsOnThirdAttempt(t *testing.T) {
	fake := connectedFake(func(attempt int) (int, error) {
		if attempt < 3 {
			return 1, nil
		}
		return 0, nil
	})
	installer := newTestInstaller(t, fake)

	serial, err := installer.InstallWithRetry(context.Background(), "/tmp/app-debug.apk", "com.lvrs.whatson", 3)
	if err != nil {
		t.Fatalf("InstallWithRetry: %v", err)
	}
	if serial != "emulator-5554" {
		t.Errorf("serial = %q, want emulator-5554", serial)
	}
	if got := fake.countRuns("install -r"); got != 3 {
		t.Errorf("install attempts = %d, want 3", got)
	}
	// Cleanup runs after the two failed attempts only.
	if got := fake.countRuns("am force-stop"); got != 2 {
		t.Errorf("cleanup cycles = %d, want 2", got)
	}
}

func TestInstallFailsAfterAllAttempts(t *testing.T) {
	fake := connectedFake(func(int) (int, error) {
		return 1, nil
	})
	installer := newTestInstaller(t, fake)

	_, err := installer.InstallWithRetry(context.Background(), "/tmp/app-debug.apk", "com.lvrs.whatson", 3)
	var installErr *InstallError
	if !errors.As(err, &installErr) {
		t.Fatalf("expected *InstallError, got %v", err)
	}
	if installErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", installErr.Attempts)
	}
	if installErr.APKPath != "/tmp/app-debug.apk" {
		t.Errorf("APKPath = %q, want the attempted APK", installErr.APKPath)
	}
	if installErr.LastSerial != "emulator-5554" {
		t.Errorf("LastSerial = %q, want emulator-5554", installErr.LastSerial)
	}
	if got := fake.countRuns("install -r"); got != 3 {
		t.Errorf("install attempts = %d, want 3", got)
	}
	// No cleanup after the final failure; the device stays inspectable.
	if got := fake.countRuns("am force-stop"); got != 2 {
		t.Errorf("cleanup cycles = %d, want 2", got)
	}
}

func TestInstallDeviceLossIsRetried(t *testing.T) {
	devicesCalls := 0
	installs := 0
	fake := &fakeRunner{}
	fake.captureFn = func(args []string) runner.Capture {
		if isDevicesQuery(args) {
			devicesCalls++
			// The device disappears for the first attempt, then returns.
			if devicesCalls == 1 {
				return runner.Capture{Stdout: "List of devices attached\n"}
			}
			return runner.Capture{Stdout: "List of devices attached\nemulator-5554\tdevice\n"}
		}
		if strings.Contains(strings.Join(args, " "), "list-avds") {
			return runner.Capture{Stdout: ""}
		}
		return runner.Capture{}
	}
	fake.runFn = func(args []string) (int, error) {
		if strings.Contains(strings.Join(args, " "), "install -r") {
			installs++
			return 0, nil
		}
		return 0, nil
	}

	installer := newTestInstaller(t, fake)
	serial, err := installer.InstallWithRetry(context.Background(), "/tmp/app-debug.apk", "com.lvrs.whatson", 3)
	if err != nil {
		t.Fatalf("InstallWithRetry: %v", err)
	}
	if serial != "emulator-5554" {
		t.Errorf("serial = %q, want emulator-5554", serial)
	}
	if installs != 1 {
		t.Errorf("installs = %d, want 1", installs)
	}
}

func TestResetPackageSkipsWhenAbsent(t *testing.T) {
	fake := &fakeRunner{
		captureFn: func(args []string) runner.Capture {
			if strings.Contains(strings.Join(args, " "), "pm list packages") {
				return runner.Capture{Stdout: ""}
			}
			return runner.Capture{}
		},
	}
	installer := newTestInstaller(t, fake)

	installer.ResetPackage(context.Background(), "emulator-5554", "org.qtproject.example.WhatSon")
	if got := fake.countRuns("uninstall"); got != 0 {
		t.Errorf("uninstalls = %d, want 0 for an absent package", got)
	}
}

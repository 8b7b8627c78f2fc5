package android

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
)

// fakeRunner records every invocation and answers from the configured
// callbacks, so device and install logic runs without spawning anything.
type fakeRunner struct {
	mu       sync.Mutex
	runs     [][]string
	detached [][]string

	runFn     func(args []string) (int, error)
	captureFn func(args []string) runner.Capture
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (int, error) {
	f.mu.Lock()
	f.runs = append(f.runs, cmd.Args)
	f.mu.Unlock()
	if f.runFn != nil {
		return f.runFn(cmd.Args)
	}
	return 0, nil
}

func (f *fakeRunner) Capture(_ context.Context, args []string, _ string, _ map[string]string) runner.Capture {
	if f.captureFn != nil {
		return f.captureFn(args)
	}
	return runner.Capture{}
}

func (f *fakeRunner) StartDetached(args []string, _ string, _ string) (int, error) {
	f.mu.Lock()
	f.detached = append(f.detached, args)
	f.mu.Unlock()
	return 4242, nil
}

func (f *fakeRunner) countRuns(substrings ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, args := range f.runs {
		joined := strings.Join(args, " ")
		matched := true
		for _, substr := range substrings {
			if !strings.Contains(joined, substr) {
				matched = false
				break
			}
		}
		if matched {
			count++
		}
	}
	return count
}

// fakeSDK lays out an SDK directory with adb and emulator stubs so the
// locators find them without consulting PATH results.
func fakeSDK(t *testing.T) string {
	t.Helper()
	sdk := t.TempDir()
	for _, rel := range []string{
		filepath.Join("platform-tools", "adb"),
		filepath.Join("emulator", "emulator"),
	} {
		path := filepath.Join(sdk, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return sdk
}

func isDevicesQuery(args []string) bool {
	return len(args) >= 2 && args[1] == "devices"
}

func isBootProbe(args []string) bool {
	return strings.Contains(strings.Join(args, " "), "sys.boot_completed")
}

func TestEnsureUsesConnectedDevice(t *testing.T) {
	fake := &fakeRunner{
		captureFn: func(args []string) runner.Capture {
			if isDevicesQuery(args) {
				return runner.Capture{Stdout: "List of devices attached\nR58M123ABC\tdevice usb:1-1\n"}
			}
			return runner.Capture{ExitCode: 1}
		},
	}
	m := NewDeviceManager(fake, logger.NopLogger{}, "adb", "linux", fakeSDK(t), "", "t.log", "t.emulator.log")

	serial, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if serial != "R58M123ABC" {
		t.Errorf("serial = %q, want R58M123ABC", serial)
	}
	if len(fake.detached) != 0 {
		t.Errorf("no emulator should be launched, got %v", fake.detached)
	}
}

func TestEnsureFailsWithoutAVD(t *testing.T) {
	fake := &fakeRunner{
		captureFn: func(args []string) runner.Capture {
			if isDevicesQuery(args) {
				return runner.Capture{Stdout: "List of devices attached\n"}
			}
			// emulator -list-avds with nothing configured
			return runner.Capture{Stdout: ""}
		},
	}
	m := NewDeviceManager(fake, logger.NopLogger{}, "adb", "linux", fakeSDK(t), "", "t.log", "t.emulator.log")

	_, err := m.Ensure(context.Background())
	if !errors.Is(err, ErrNoAVD) {
		t.Fatalf("err = %v, want ErrNoAVD", err)
	}
	if len(fake.detached) != 0 {
		t.Errorf("no emulator should be launched, got %v", fake.detached)
	}
}

func TestEnsureBootsEmulator(t *testing.T) {
	devicesCalls := 0
	fake := &fakeRunner{}
	fake.captureFn = func(args []string) runner.Capture {
		switch {
		case isDevicesQuery(args):
			devicesCalls++
			if devicesCalls == 1 {
				return runner.Capture{Stdout: "List of devices attached\n"}
			}
			return runner.Capture{Stdout: "List of devices attached\nemulator-5554\tdevice\n"}
		case isBootProbe(args):
			return runner.Capture{Stdout: "1\n"}
		}
		return runner.Capture{ExitCode: 1}
	}
	m := NewDeviceManager(fake, logger.NopLogger{}, "adb", "linux", fakeSDK(t), "Pixel_7",
		"t.log", "t.emulator.log", WithBootPoll(time.Millisecond, 5))

	serial, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if serial != "emulator-5554" {
		t.Errorf("serial = %q, want emulator-5554", serial)
	}
	if len(fake.detached) != 1 {
		t.Fatalf("emulator should be launched exactly once, got %d", len(fake.detached))
	}
	launch := strings.Join(fake.detached[0], " ")
	for _, want := range []string{"-avd Pixel_7", "-netdelay none", "-netspeed full"} {
		if !strings.Contains(launch, want) {
			t.Errorf("emulator launch %q missing %q", launch, want)
		}
	}
	if got := fake.countRuns("wait-for-device"); got != 1 {
		t.Errorf("wait-for-device runs = %d, want 1", got)
	}
}

func TestEnsureBootTimeout(t *testing.T) {
	bootProbes := 0
	fake := &fakeRunner{}
	fake.captureFn = func(args []string) runner.Capture {
		switch {
		case isDevicesQuery(args):
			return runner.Capture{Stdout: "List of devices attached\n"}
		case isBootProbe(args):
			bootProbes++
			return runner.Capture{Stdout: "0\n"}
		}
		return runner.Capture{ExitCode: 1}
	}
	m := NewDeviceManager(fake, logger.NopLogger{}, "adb", "linux", fakeSDK(t), "Pixel_7",
		"t.log", "t.emulator.log", WithBootPoll(time.Millisecond, 3))

	_, err := m.Ensure(context.Background())
	if !errors.Is(err, ErrBootTimeout) {
		t.Fatalf("err = %v, want ErrBootTimeout", err)
	}
	if bootProbes != 3 {
		t.Errorf("boot probes = %d, want the full attempt budget of 3", bootProbes)
	}
}

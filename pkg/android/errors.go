package android

import (
	"errors"
	"fmt"
)

// ErrNoAdb is returned when no adb binary can be located on PATH or in
// the SDK.
var ErrNoAdb = errors.New("adb not found on PATH or in the Android SDK")

// ErrNoEmulator is returned when no device is connected and the emulator
// binary cannot be located.
var ErrNoEmulator = errors.New("emulator binary not found on PATH or in the Android SDK")

// ErrNoAVD is returned when no device is connected and no virtual device
// profile is configured or discoverable.
var ErrNoAVD = errors.New("no Android virtual device configured")

// ErrBootTimeout is returned when a launched emulator never reports a
// completed boot within the polling budget.
var ErrBootTimeout = errors.New("emulator did not finish booting in time")

// InstallError reports a package install that failed after every retry
// attempt.
type InstallError struct {
	APKPath    string
	LastSerial string
	Attempts   int
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("failed to install %s on device %s after %d attempts", e.APKPath, e.LastSerial, e.Attempts)
}

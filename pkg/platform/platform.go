// Package platform isolates host-OS specific knowledge: where the host
// build drops the application binary, how to stop a running instance, and
// how a launched app is surfaced to the user. One implementation is
// selected at startup and injected, keeping pipeline logic branch-free.
package platform

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// Platform exposes the host-OS capabilities the pipelines need.
type Platform interface {
	// GOOS is the runtime.GOOS value this platform serves.
	GOOS() string

	// AppBinaryCandidates lists the known output layouts of the host app
	// binary inside the host build directory, most specific first.
	AppBinaryCandidates(hostBuildDir string) []string

	// AppBundle resolves the enclosing .app bundle of a binary, when the
	// platform has such a notion.
	AppBundle(appBinary string) (string, bool)

	// StopAppCommands returns best-effort commands that terminate a
	// running instance of the given binary.
	StopAppCommands(appBinary string) [][]string

	// StopProcessCommands returns best-effort commands that terminate any
	// previously launched instance by process name.
	StopProcessCommands() [][]string

	// RevealCommand returns an optional command that brings the launched
	// app to the foreground (macOS "open -a").
	RevealCommand(appBinary string) ([]string, bool)
}

// ForGOOS selects the platform implementation for a GOOS value.
func ForGOOS(goos string) Platform {
	switch goos {
	case "darwin":
		return darwinPlatform{}
	case "windows":
		return windowsPlatform{}
	default:
		return unixPlatform{goos: goos}
	}
}

type darwinPlatform struct{}

func (darwinPlatform) GOOS() string { return "darwin" }

func (darwinPlatform) AppBinaryCandidates(hostBuildDir string) []string {
	return []string{
		filepath.Join(hostBuildDir, "src", "app", "bin", "WhatSon.app", "Contents", "MacOS", "WhatSon"),
	}
}

func (darwinPlatform) AppBundle(appBinary string) (string, bool) {
	current := appBinary
	for i := 0; i < 4; i++ {
		if strings.HasSuffix(current, ".app") {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", false
}

func (darwinPlatform) StopAppCommands(appBinary string) [][]string {
	if !hasTool("pkill") {
		return nil
	}
	return [][]string{{"pkill", "-f", appBinary}}
}

func (darwinPlatform) StopProcessCommands() [][]string {
	if !hasTool("pkill") {
		return nil
	}
	return [][]string{
		{"pkill", "-x", "WhatSon"},
		{"pkill", "-f", "WhatSon.app/Contents/MacOS/WhatSon"},
	}
}

func (p darwinPlatform) RevealCommand(appBinary string) ([]string, bool) {
	bundle, ok := p.AppBundle(appBinary)
	if !ok || !hasTool("open") {
		return nil, false
	}
	return []string{"open", "-a", bundle}, true
}

type windowsPlatform struct{}

func (windowsPlatform) GOOS() string { return "windows" }

func (windowsPlatform) AppBinaryCandidates(hostBuildDir string) []string {
	return []string{
		filepath.Join(hostBuildDir, "src", "app", "bin", "WhatSon.exe"),
		filepath.Join(hostBuildDir, "src", "app", "WhatSon.exe"),
	}
}

func (windowsPlatform) AppBundle(string) (string, bool) { return "", false }

func (windowsPlatform) StopAppCommands(string) [][]string {
	return [][]string{{"taskkill", "/IM", "WhatSon.exe", "/F"}}
}

func (windowsPlatform) StopProcessCommands() [][]string {
	return [][]string{{"taskkill", "/IM", "WhatSon.exe", "/F"}}
}

func (windowsPlatform) RevealCommand(string) ([]string, bool) { return nil, false }

type unixPlatform struct {
	goos string
}

func (p unixPlatform) GOOS() string { return p.goos }

func (unixPlatform) AppBinaryCandidates(hostBuildDir string) []string {
	return []string{
		filepath.Join(hostBuildDir, "src", "app", "bin", "WhatSon"),
		filepath.Join(hostBuildDir, "src", "app", "WhatSon"),
	}
}

func (unixPlatform) AppBundle(string) (string, bool) { return "", false }

func (unixPlatform) StopAppCommands(appBinary string) [][]string {
	if !hasTool("pkill") {
		return nil
	}
	return [][]string{{"pkill", "-f", appBinary}}
}

func (unixPlatform) StopProcessCommands() [][]string {
	if !hasTool("pkill") {
		return nil
	}
	return [][]string{{"pkill", "-x", "WhatSon"}}
}

func (unixPlatform) RevealCommand(string) ([]string, bool) { return nil, false }

func hasTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

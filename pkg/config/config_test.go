package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

func TestResolveDefaults(t *testing.T) {
	root := t.TempDir()

	ctx, err := Resolve(Options{Root: root, GOOS: "linux"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if ctx.RunID == "" {
		t.Error("RunID should be assigned")
	}
	if ctx.Root != root {
		t.Errorf("Root = %q, want %q", ctx.Root, root)
	}
	if want := filepath.Join(root, "build", "automation-logs"); ctx.LogsDir != want {
		t.Errorf("LogsDir = %q, want %q", ctx.LogsDir, want)
	}
	if ctx.AndroidPackage != DefaultAndroidPackage {
		t.Errorf("AndroidPackage = %q, want the default", ctx.AndroidPackage)
	}
	if ctx.AndroidPackageExplicit {
		t.Error("a defaulted package id must not count as explicit")
	}
}

func TestResolveExplicitPackage(t *testing.T) {
	ctx, err := Resolve(Options{Root: t.TempDir(), GOOS: "linux", AndroidPackage: "com.example.custom"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ctx.AndroidPackage != "com.example.custom" {
		t.Errorf("AndroidPackage = %q", ctx.AndroidPackage)
	}
	if !ctx.AndroidPackageExplicit {
		t.Error("a flag-provided package id must count as explicit")
	}
}

func TestManifestPackageDiscovery(t *testing.T) {
	root := t.TempDir()
	manifest := `<?xml version="1.0"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android"
          package="com.example.discovered">
</manifest>`
	path := filepath.Join(root, "platform", "Android", "AndroidManifest.xml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := manifestPackage(root); got != "com.example.discovered" {
		t.Errorf("manifestPackage = %q", got)
	}

	ctx, err := Resolve(Options{Root: root, GOOS: "linux"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ctx.AndroidPackage != "com.example.discovered" {
		t.Errorf("AndroidPackage = %q, want the discovered id", ctx.AndroidPackage)
	}
	if ctx.AndroidPackageExplicit {
		t.Error("a discovered package id must not count as explicit")
	}
}

func TestDefaultQtHostPrefix(t *testing.T) {
	qtRoot := t.TempDir()

	// Without any kit installed the first candidate names the expectation.
	if got := defaultQtHostPrefix("linux", qtRoot); got != filepath.Join(qtRoot, "gcc_64") {
		t.Errorf("linux default = %q", got)
	}
	if got := defaultQtHostPrefix("darwin", qtRoot); got != filepath.Join(qtRoot, "macos") {
		t.Errorf("darwin default = %q", got)
	}

	// An installed later candidate wins over a missing earlier one.
	mingw := filepath.Join(qtRoot, "mingw_64")
	if err := os.MkdirAll(mingw, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := defaultQtHostPrefix("windows", qtRoot); got != mingw {
		t.Errorf("windows = %q, want the installed mingw kit", got)
	}
}

func TestDetectAVD(t *testing.T) {
	home := t.TempDir()
	if got := detectAVD(home); got != "" {
		t.Errorf("no AVDs: got %q", got)
	}

	avdDir := filepath.Join(home, ".android", "avd")
	if err := os.MkdirAll(avdDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Pixel_7.ini", "Tablet.ini"} {
		if err := os.WriteFile(filepath.Join(avdDir, name), []byte("path=x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := detectAVD(home); got != "Pixel_7" {
		t.Errorf("detectAVD = %q, want Pixel_7", got)
	}
}

func TestTaskLogPaths(t *testing.T) {
	ctx := &BuildContext{LogsDir: "/var/log/whatson"}
	if got := ctx.TaskLogPath(types.TaskAndroid); got != filepath.Join("/var/log/whatson", "android.log") {
		t.Errorf("TaskLogPath = %q", got)
	}
	if got := ctx.EmulatorLogPath(types.TaskAndroid); got != filepath.Join("/var/log/whatson", "android.emulator.log") {
		t.Errorf("EmulatorLogPath = %q", got)
	}
}

func TestAndroidEnv(t *testing.T) {
	ctx := &BuildContext{AndroidSDKRoot: "/sdk"}
	env := ctx.AndroidEnv()
	if env["ANDROID_SDK_ROOT"] != "/sdk" || env["ANDROID_HOME"] != "/sdk" {
		t.Errorf("env = %v", env)
	}
	if _, ok := env["ANDROID_NDK_ROOT"]; ok {
		t.Error("NDK vars should be absent when no NDK is resolved")
	}

	ctx.AndroidNDKRoot = "/sdk/ndk/27.0"
	env = ctx.AndroidEnv()
	if env["ANDROID_NDK_ROOT"] != "/sdk/ndk/27.0" || env["CMAKE_ANDROID_NDK"] != "/sdk/ndk/27.0" {
		t.Errorf("env = %v", env)
	}
}

func TestWithJava21(t *testing.T) {
	java := t.TempDir()
	ctx := &BuildContext{Java21Home: java}
	env := ctx.WithJava21(map[string]string{"ANDROID_HOME": "/sdk"})
	if env["JAVA_HOME"] != java {
		t.Errorf("JAVA_HOME = %q", env["JAVA_HOME"])
	}
	if env["ANDROID_HOME"] != "/sdk" {
		t.Error("existing entries must be preserved")
	}

	missing := &BuildContext{Java21Home: filepath.Join(java, "nope")}
	env = missing.WithJava21(map[string]string{"A": "b"})
	if _, ok := env["JAVA_HOME"]; ok {
		t.Error("a missing JDK home must not be exported")
	}
}

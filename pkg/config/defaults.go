package config

import (
	"encoding/xml"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/iisacc-Justmoong/WhatSon/pkg/locate"
)

// Options carries the raw CLI flag values; empty fields fall back to
// environment variables and then to per-OS default layouts, the same
// precedence the developer environment tooling documents.
type Options struct {
	Root    string
	LogsDir string

	HostBuildDir     string
	AndroidBuildDir  string
	IOSProjectDir    string
	AndroidStudioDir string

	QtVersionRoot   string
	QtHostPrefix    string
	QtIOSPrefix     string
	QtAndroidPrefix string

	LVRSPrefix           string
	LVRSAndroidPrefix    string
	LVRSSourceDir        string
	SkipAndroidLVRSBuild bool

	AndroidSDKRoot string
	AndroidNDKRoot string
	AndroidAVD     string
	AndroidPackage string
	AppleBundleID  string
	Java21Home     string

	NoHostRun  bool
	Sequential bool

	// GOOS overrides the detected host OS; used by tests.
	GOOS string
}

// javaHomeProbe resolves a JDK 21 home via the platform locator tool.
// Overridable in tests.
var javaHomeProbe = func() string {
	locator := "/usr/libexec/java_home"
	if !locate.Exists(locator) {
		return ""
	}
	out, err := exec.Command(locator, "-v", "21").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Resolve builds the immutable BuildContext from flags, environment and
// per-OS defaults.
func Resolve(opts Options) (*BuildContext, error) {
	env := viper.New()
	env.AutomaticEnv()

	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(firstNonEmpty(opts.Root, "."))
	if err != nil {
		return nil, err
	}

	qtVersionRoot := firstNonEmpty(opts.QtVersionRoot, env.GetString("QT_VERSION_ROOT"), defaultQtVersionRoot(home))
	qtHostPrefix := firstNonEmpty(opts.QtHostPrefix, env.GetString("QT_HOST_PREFIX"), defaultQtHostPrefix(goos, qtVersionRoot))
	qtIOSPrefix := firstNonEmpty(opts.QtIOSPrefix, env.GetString("QT_IOS_PREFIX"), filepath.Join(qtVersionRoot, "ios"))
	qtAndroidPrefix := firstNonEmpty(opts.QtAndroidPrefix, env.GetString("QT_ANDROID_PREFIX"), defaultQtAndroidPrefix(qtVersionRoot))

	lvrsPrefix := firstNonEmpty(opts.LVRSPrefix, env.GetString("LVRS_PREFIX"), defaultLVRSPrefix(home, root))
	lvrsAndroidPrefix := firstNonEmpty(opts.LVRSAndroidPrefix, env.GetString("LVRS_ANDROID_PREFIX"), defaultLVRSAndroidPrefix(home, lvrsPrefix))
	lvrsSourceDir := firstNonEmpty(opts.LVRSSourceDir, env.GetString("LVRS_SOURCE_DIR"), defaultLVRSSourceDir(home, root))

	sdkRoot := firstNonEmpty(opts.AndroidSDKRoot, env.GetString("ANDROID_SDK_ROOT"), defaultAndroidSDK(goos, home, env))
	ndkRoot := firstNonEmpty(opts.AndroidNDKRoot, env.GetString("ANDROID_NDK_ROOT"))
	if ndkRoot == "" {
		ndkRoot = resolveNDK(goos, sdkRoot)
	}

	androidPackage := firstNonEmpty(opts.AndroidPackage, env.GetString("WHATSON_ANDROID_PACKAGE"))
	explicit := androidPackage != ""
	if androidPackage == "" {
		androidPackage = firstNonEmpty(manifestPackage(root), DefaultAndroidPackage)
	}

	java21 := firstNonEmpty(opts.Java21Home, env.GetString("JAVA21_HOME"), env.GetString("JAVA_HOME"))
	if java21 == "" && goos == "darwin" {
		java21 = resolveJava21Darwin()
	}

	ctx := &BuildContext{
		RunID: uuid.NewString(),
		GOOS:  goos,
		Home:  home,

		Root:    root,
		LogsDir: firstNonEmpty(opts.LogsDir, filepath.Join(root, "build", "automation-logs")),

		HostBuildDir:     firstNonEmpty(opts.HostBuildDir, filepath.Join(root, "build", "host-auto")),
		AndroidBuildDir:  firstNonEmpty(opts.AndroidBuildDir, filepath.Join(root, "build", "android-auto")),
		IOSProjectDir:    firstNonEmpty(opts.IOSProjectDir, filepath.Join(root, "build", "ios-xcode-artifact")),
		AndroidStudioDir: firstNonEmpty(opts.AndroidStudioDir, filepath.Join(root, "build", "android-studio-artifact")),

		QtVersionRoot:   qtVersionRoot,
		QtHostPrefix:    qtHostPrefix,
		QtIOSPrefix:     qtIOSPrefix,
		QtAndroidPrefix: qtAndroidPrefix,

		LVRSPrefix:           lvrsPrefix,
		LVRSAndroidPrefix:    lvrsAndroidPrefix,
		LVRSSourceDir:        lvrsSourceDir,
		SkipAndroidLVRSBuild: opts.SkipAndroidLVRSBuild,

		AndroidSDKRoot: sdkRoot,
		AndroidNDKRoot: ndkRoot,
		AndroidAVD:     firstNonEmpty(opts.AndroidAVD, env.GetString("ANDROID_AVD"), detectAVD(home)),

		AndroidPackage:         androidPackage,
		AndroidPackageExplicit: explicit,

		AppleBundleID: firstNonEmpty(opts.AppleBundleID, env.GetString("WHATSON_APPLE_BUNDLE_ID"), DefaultAppleBundleID),
		Java21Home:    java21,

		NoHostRun:  opts.NoHostRun,
		Sequential: opts.Sequential,
	}
	return ctx, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultAndroidSDK(goos, home string, env *viper.Viper) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Android", "sdk")
	case "windows":
		if local := env.GetString("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Android", "Sdk")
		}
	}
	return filepath.Join(home, "Android", "Sdk")
}

func defaultQtVersionRoot(home string) string {
	qtHome := filepath.Join(home, "Qt")
	if latest, ok := locate.LatestVersionDir(qtHome); ok {
		return latest
	}
	return qtHome
}

func defaultQtHostPrefix(goos, qtVersionRoot string) string {
	var candidates []string
	switch goos {
	case "darwin":
		candidates = []string{filepath.Join(qtVersionRoot, "macos")}
	case "windows":
		candidates = []string{
			filepath.Join(qtVersionRoot, "msvc2022_64"),
			filepath.Join(qtVersionRoot, "msvc2019_64"),
			filepath.Join(qtVersionRoot, "mingw_64"),
		}
	default:
		candidates = []string{filepath.Join(qtVersionRoot, "gcc_64")}
	}
	if existing, ok := locate.FirstExisting(candidates...); ok {
		return existing
	}
	return candidates[0]
}

func defaultQtAndroidPrefix(qtVersionRoot string) string {
	candidates := []string{
		filepath.Join(qtVersionRoot, "android_arm64_v8a"),
		filepath.Join(qtVersionRoot, "android_x86_64"),
		filepath.Join(qtVersionRoot, "android"),
	}
	if existing, ok := locate.FirstExisting(candidates...); ok {
		return existing
	}
	return candidates[0]
}

func defaultLVRSPrefix(home, root string) string {
	candidates := []string{
		filepath.Join(home, ".local", "LVRS"),
		"/local/LVRS",
		filepath.Join(filepath.Dir(root), "LVRS"),
	}
	if existing, ok := locate.FirstExisting(candidates...); ok {
		return existing
	}
	return candidates[0]
}

func defaultLVRSAndroidPrefix(home, lvrsPrefix string) string {
	platformAndroid := filepath.Join(lvrsPrefix, "platforms", "android")
	if locate.Exists(platformAndroid) {
		return platformAndroid
	}
	fallback := filepath.Join(home, ".local", "LVRS-android")
	if locate.Exists(fallback) {
		return fallback
	}
	return platformAndroid
}

func defaultLVRSSourceDir(home, root string) string {
	candidates := []string{
		filepath.Join(home, "Developer", "LVRS"),
		filepath.Join(filepath.Dir(root), "LVRS"),
		filepath.Join(filepath.Dir(filepath.Dir(root)), "LVRS"),
		"/local/LVRS",
	}
	for _, candidate := range candidates {
		if locate.Exists(filepath.Join(candidate, "CMakeLists.txt")) {
			return candidate
		}
	}
	return candidates[0]
}

func resolveNDK(goos, sdkRoot string) string {
	if latest, ok := locate.LatestDir(filepath.Join(sdkRoot, "ndk")); ok {
		return latest
	}
	if goos != "darwin" {
		return ""
	}
	// Homebrew installs land outside the SDK.
	if ndk := homebrewCaskNDK("/opt/homebrew/Caskroom/android-ndk"); ndk != "" {
		return ndk
	}
	if locate.Exists("/opt/homebrew/share/android-ndk") {
		return "/opt/homebrew/share/android-ndk"
	}
	return ""
}

func homebrewCaskNDK(caskRoot string) string {
	entries, err := os.ReadDir(caskRoot)
	if err != nil {
		return ""
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	for _, version := range versions {
		base := filepath.Join(caskRoot, version)
		if direct := filepath.Join(base, "Contents", "NDK"); locate.Exists(direct) {
			return direct
		}
		if apps, _ := filepath.Glob(filepath.Join(base, "*.app", "Contents", "NDK")); len(apps) > 0 {
			sort.Strings(apps)
			return apps[len(apps)-1]
		}
		for _, name := range []string{"ndk", "NDK"} {
			if fallback := filepath.Join(base, name); locate.Exists(fallback) {
				return fallback
			}
		}
	}
	return ""
}

func resolveJava21Darwin() string {
	if resolved := javaHomeProbe(); resolved != "" && locate.Exists(resolved) {
		return resolved
	}
	candidates := []string{
		"/opt/homebrew/opt/openjdk@21/libexec/openjdk.jdk/Contents/Home",
		"/Library/Java/JavaVirtualMachines/openjdk-21.jdk/Contents/Home",
		"/Library/Java/JavaVirtualMachines/temurin-21.jdk/Contents/Home",
	}
	if existing, ok := locate.FirstExisting(candidates...); ok {
		return existing
	}
	return ""
}

// detectAVD scans the local virtual-device store for the first profile.
func detectAVD(home string) string {
	avdRoot := filepath.Join(home, ".android", "avd")
	inis, err := filepath.Glob(filepath.Join(avdRoot, "*.ini"))
	if err != nil || len(inis) == 0 {
		return ""
	}
	sort.Strings(inis)
	return strings.TrimSuffix(filepath.Base(inis[0]), ".ini")
}

type androidManifest struct {
	Package string `xml:"package,attr"`
}

// manifestPackage reads the application id from the platform
// AndroidManifest when one is checked in.
func manifestPackage(root string) string {
	candidates := []string{
		filepath.Join(root, "platform", "Android", "AndroidManifest.xml"),
		filepath.Join(root, "platform", "android", "AndroidManifest.xml"),
		filepath.Join(root, "android", "AndroidManifest.xml"),
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var manifest androidManifest
		if err := xml.Unmarshal(data, &manifest); err != nil {
			continue
		}
		if pkg := strings.TrimSpace(manifest.Package); pkg != "" {
			return pkg
		}
	}
	return ""
}

// Package cli provides the command-line interfaces for the WhatSon build
// tooling: the build orchestrator and the developer-environment helper.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iisacc-Justmoong/WhatSon/pkg/config"
	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
)

// flagValues holds the shared flag surface both commands expose.
type flagValues struct {
	opts      config.Options
	verbosity string
}

func (f *flagValues) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&f.opts.Root, "root", ".", "project root directory")
	flags.StringVar(&f.opts.LogsDir, "logs-dir", "", "task log directory (default: <root>/build/automation-logs)")

	flags.StringVar(&f.opts.HostBuildDir, "host-build-dir", "", "host build directory")
	flags.StringVar(&f.opts.AndroidBuildDir, "android-build-dir", "", "Android build directory")
	flags.StringVar(&f.opts.IOSProjectDir, "ios-project-dir", "", "iOS Xcode project output directory")
	flags.StringVar(&f.opts.AndroidStudioDir, "android-studio-dir", "", "Android Studio project export directory")

	flags.StringVar(&f.opts.QtVersionRoot, "qt-version-root", "", "Qt version root (default: newest under ~/Qt)")
	flags.StringVar(&f.opts.QtHostPrefix, "qt-host-prefix", "", "Qt host kit prefix")
	flags.StringVar(&f.opts.QtIOSPrefix, "qt-ios-prefix", "", "Qt iOS kit prefix")
	flags.StringVar(&f.opts.QtAndroidPrefix, "qt-android-prefix", "", "Qt Android kit prefix")

	flags.StringVar(&f.opts.LVRSPrefix, "lvrs-prefix", "", "LVRS install prefix")
	flags.StringVar(&f.opts.LVRSAndroidPrefix, "android-lvrs-prefix", "", "LVRS Android install prefix")
	flags.StringVar(&f.opts.LVRSSourceDir, "lvrs-source-dir", "", "LVRS source checkout for cross-builds")
	flags.BoolVar(&f.opts.SkipAndroidLVRSBuild, "skip-android-lvrs-build", false, "fail instead of cross-building LVRS for Android")

	flags.StringVar(&f.opts.AndroidSDKRoot, "android-sdk-root", "", "Android SDK root")
	flags.StringVar(&f.opts.AndroidNDKRoot, "android-ndk-root", "", "Android NDK root")
	flags.StringVar(&f.opts.AndroidAVD, "android-avd", "", "Android virtual device name")
	flags.StringVar(&f.opts.AndroidPackage, "android-package", "", "Android application id (default: discovered)")
	flags.StringVar(&f.opts.Java21Home, "java21-home", "", "JDK 21 home for Gradle")

	flags.StringVarP(&f.verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")
}

func (f *flagValues) logger() logger.Logger {
	return logger.CreateLogger(f.verbosity)
}

func printSuccess(message string) {
	fmt.Printf("%s %s\n", color.GreenString("[whatson]"), message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("[whatson]"), message)
}

func printInfo(message string) {
	fmt.Printf("%s %s\n", color.CyanString("[whatson]"), message)
}

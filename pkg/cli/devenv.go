package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/iisacc-Justmoong/WhatSon/pkg/config"
	"github.com/iisacc-Justmoong/WhatSon/pkg/envfile"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
)

// ExecuteDevEnv runs the developer-environment CLI.
func ExecuteDevEnv(version string) error {
	return newDevEnvCmd(version).Execute()
}

func newDevEnvCmd(version string) *cobra.Command {
	flags := &flagValues{}
	var (
		strict    bool
		printOnly bool
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "devenv",
		Short: "Resolve and export the WhatSon development environment",
		Long: `Resolves every toolchain location the build needs (Qt kits, LVRS,
Android SDK/NDK, JDK 21, virtual devices), writes shell and YAML
snapshots, and lists the setup steps that still need a human.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevEnv(cmd.Context(), flags, strict, printOnly, outputDir)
		},
	}

	flags.register(cmd)
	cmd.PersistentFlags().BoolVar(&strict, "strict", false, "exit non-zero when manual actions remain")
	cmd.PersistentFlags().BoolVar(&printOnly, "print-only", false, "print the environment without writing artifacts")
	cmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "artifact directory (default: <root>/build/dev-env)")
	return cmd
}

func runDevEnv(ctx context.Context, flags *flagValues, strict, printOnly bool, outputDir string) error {
	log := flags.logger()

	buildCtx, err := config.Resolve(flags.opts)
	if err != nil {
		printError(fmt.Sprintf("environment resolution failed: %v", err))
		return err
	}

	snapshot := envfile.FromContext(buildCtx)
	vars := snapshot.Vars()
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		printInfo(fmt.Sprintf("%s=%s", key, vars[key]))
	}

	if !printOnly {
		if outputDir == "" {
			outputDir = filepath.Join(buildCtx.Root, "build", "dev-env")
		}
		if err := envfile.WriteAll(snapshot, outputDir); err != nil {
			printError(fmt.Sprintf("writing artifacts failed: %v", err))
			return err
		}
		printSuccess(fmt.Sprintf("environment artifacts written to %s", outputDir))
	}

	run := runner.New(buildCtx.Root, log)
	actions := envfile.ManualActions(ctx, buildCtx, run)
	if len(actions) == 0 {
		printSuccess("no manual actions needed")
		return nil
	}

	printInfo("manual actions:")
	for i, action := range actions {
		printInfo(fmt.Sprintf("  %d. %s", i+1, action))
	}
	if strict {
		return fmt.Errorf("%d manual actions remain", len(actions))
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iisacc-Justmoong/WhatSon/pkg/config"
	"github.com/iisacc-Justmoong/WhatSon/pkg/engine"
	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/notifier"
	"github.com/iisacc-Justmoong/WhatSon/pkg/pipeline"
	"github.com/iisacc-Justmoong/WhatSon/pkg/platform"
	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// ExecuteBuild runs the build orchestrator CLI.
func ExecuteBuild(version string) error {
	return newBuildCmd(version).Execute()
}

func newBuildCmd(version string) *cobra.Command {
	flags := &flagValues{}
	var (
		tasksSpec string
		notify    bool
	)

	cmd := &cobra.Command{
		Use:   "buildall",
		Short: "Build, deploy and launch WhatSon across platforms",
		Long: `Builds the WhatSon application for the host, Android and iOS,
deploys where a device is available, and smoke-launches the results.
Each task writes a full log under the logs directory; the console shows
one line per task.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), flags, tasksSpec, notify)
		},
	}

	flags.register(cmd)
	cmd.PersistentFlags().StringVar(&tasksSpec, "tasks", "host,android,ios", "comma-separated tasks to run")
	cmd.PersistentFlags().BoolVar(&flags.opts.Sequential, "sequential", false, "run tasks one at a time")
	cmd.PersistentFlags().BoolVar(&flags.opts.NoHostRun, "no-host-run", false, "build the host app without launching it")
	cmd.PersistentFlags().BoolVar(&notify, "notify", true, "send a desktop notification when the run finishes")
	return cmd
}

func runBuild(ctx context.Context, flags *flagValues, tasksSpec string, notify bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := flags.logger()

	tasks, err := types.ParseTasks(tasksSpec)
	if err != nil {
		printError(err.Error())
		return err
	}

	buildCtx, err := config.Resolve(flags.opts)
	if err != nil {
		printError(fmt.Sprintf("environment resolution failed: %v", err))
		return err
	}
	log.Info("run starting",
		logger.WithField("run_id", buildCtx.RunID),
		logger.WithField("tasks", tasksSpec))

	run := runner.New(buildCtx.Root, log)
	plat := platform.ForGOOS(buildCtx.GOOS)

	var pipelines []pipeline.Pipeline
	for _, task := range tasks {
		switch task {
		case types.TaskHost:
			pipelines = append(pipelines, pipeline.NewHost(buildCtx, run, plat, log))
		case types.TaskAndroid:
			pipelines = append(pipelines, pipeline.NewAndroid(buildCtx, run, log, nil, nil))
		case types.TaskIOS:
			pipelines = append(pipelines, pipeline.NewIOS(buildCtx, run, log))
		}
	}

	scheduler := engine.NewScheduler(log, flags.opts.Sequential)
	results, err := scheduler.Run(ctx, pipelines)
	if err != nil {
		printError(err.Error())
		return err
	}

	notifier.New(log, notify).NotifyRunFinished(results)

	anyFailed := false
	for _, result := range results {
		line := fmt.Sprintf("[%s] %s: %s", result.Name, result.Status, result.Detail)
		switch result.Status {
		case types.StatusSuccess:
			printSuccess(line)
		case types.StatusSkipped:
			printInfo(line)
		case types.StatusFailed:
			anyFailed = true
			printError(line)
		}
		if result.LogPath != "" {
			printInfo(fmt.Sprintf("[%s] log: %s", result.Name, result.LogPath))
		}
	}

	if anyFailed {
		return fmt.Errorf("one or more tasks failed")
	}
	return nil
}

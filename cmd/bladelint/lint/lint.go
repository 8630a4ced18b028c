// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package lint implements the lint command, both as the coordinator the user runs
// and as the worker it re-invokes for each chunk of templates.
package lint

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/matt-FFFFFF/bladelint"
	"github.com/matt-FFFFFF/bladelint/internal/compiler"
	"github.com/matt-FFFFFF/bladelint/internal/config"
	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
	"github.com/matt-FFFFFF/bladelint/internal/discovery"
	"github.com/matt-FFFFFF/bladelint/internal/inventory"
	"github.com/matt-FFFFFF/bladelint/internal/linter"
	"github.com/matt-FFFFFF/bladelint/internal/orchestrator"
	"github.com/matt-FFFFFF/bladelint/internal/report"
	"github.com/urfave/cli/v3"
)

const (
	processesFlag = "processes"
	debugFlag     = "debug"
	verboseFlag   = "verbose"
	configFlag    = "config"
	suffixFlag    = "suffix"
	workerFlag    = "worker"
	padFlag       = "pad"
	cliExitStr    = ""
)

// NewCommand returns the lint command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "lint",
		Usage: "Check the PHP generated from Blade templates for syntax errors",
		Description: `Find every Blade template below the given paths, compile it and check the result with php -l.
Paths default to the configured paths, resources/views unless a configuration file says otherwise.
A path naming a file is checked whatever its suffix.

Templates are spread over several processes. The exit status is the number of failing templates
(at most 125), 126 when the checker could not be run and 127 when the run was interrupted.`,
		ArgsUsage: "[PATH...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    processesFlag,
				Aliases: []string{"p"},
				Usage:   `Number of processes to use, or "auto" for one per CPU`,
				Value:   config.AutoProcesses,
				Sources: cli.EnvVars("BLADELINT_PROCESSES"),
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"d"},
				Usage:   "Print the generated code of each template before checking it",
				Sources: cli.EnvVars("BLADELINT_DEBUG"),
			},
			&cli.BoolFlag{
				Name:    verboseFlag,
				Aliases: []string{"v"},
				Usage:   "Print progress while checking",
			},
			&cli.StringFlag{
				Name:      configFlag,
				Aliases:   []string{"c"},
				Usage:     "Configuration file or go-getter URL, " + config.DefaultFile + " is read when present",
				TakesFile: true,
				Sources:   cli.EnvVars("BLADELINT_CONFIG"),
			},
			&cli.StringFlag{
				Name:  suffixFlag,
				Usage: "File name suffix of templates, compared case-insensitively",
			},
			&cli.BoolFlag{
				Name:   workerFlag,
				Usage:  "Check exactly the given files and report through the exit status",
				Hidden: true,
			},
			&cli.IntFlag{
				Name:   padFlag,
				Usage:  "Width of the path column in progress lines",
				Hidden: true,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	worker := cmd.Bool(workerFlag) || orchestrator.IsWorker()

	source, cleanup, err := config.Fetch(ctx, cmd.String(configFlag))
	if err != nil {
		logger.Error("could not get configuration file", "error", err)
		return cli.Exit(cliExitStr, orchestrator.FatalExitCode)
	}

	defer cleanup()

	cfg, err := loadConfig(cmd, source)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return cli.Exit(cliExitStr, orchestrator.FatalExitCode)
	}

	out := cmd.Root().Writer
	rep := report.New(out, cmd.Bool(verboseFlag))

	var walkErr error

	paths := cmd.Args().Slice()
	if !worker {
		rep.Banner(bladelint.Version)

		if len(paths) == 0 {
			paths = cfg.Paths
		}

		paths, walkErr = discovery.Find(ctx, paths, cfg.Suffix)
		if walkErr != nil {
			if ctx.Err() != nil {
				rep.Summary(0, true, nil)
				return cli.Exit(cliExitStr, orchestrator.AbortedExitCode)
			}

			logger.Warn("some paths could not be searched", "error", walkErr)
		}
	}

	fs := config.FsFactory()
	inv := inventory.Build(ctx, fs, paths)

	if worker {
		rep.Align(int(cmd.Int(padFlag)))
	} else {
		rep.Found(inv)
	}

	checker := &orchestrator.FileChecker{
		Fs:       fs,
		Compiler: compiler.New(cfg.Compiler.Command, cfg.Compiler.Args...),
		Linter:   linter.New(cfg.Checker.Command, cfg.Checker.Args...),
		Reporter: rep,
		Debug:    cfg.Debug,
	}

	processes := cfg.Processes.Resolve()
	if worker {
		processes = 1
	}

	orc := &orchestrator.Orchestrator{
		Processes: processes,
		Spawner: &orchestrator.SelfSpawner{
			Args:   workerArgs(cmd, cfg, source, inv.MaxPathLen()),
			Stdout: out,
			Stderr: cmd.Root().ErrWriter,
		},
		Unit: checker.CheckChunk,
	}

	res, err := orc.Run(ctx, inv)
	if err != nil {
		logger.Error("not all templates could be checked", "error", err)
	}

	err = errors.Join(walkErr, err)

	if !worker {
		rep.Summary(res.Errors(), res.IsAborted(), err)
	}

	code := orchestrator.ExitCode(res, err)
	logger.Debug("lint finished", "errors", res.Errors(), "aborted", res.IsAborted(), "exitCode", code)

	if code == 0 {
		return nil
	}

	return cli.Exit(cliExitStr, code)
}

// loadConfig reads the configuration file at source and applies the flags that were set on top.
func loadConfig(cmd *cli.Command, source string) (*config.Config, error) {
	cfg, err := config.Load(source)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if cmd.IsSet(processesFlag) {
		if cfg.Processes, err = config.ParseProcesses(cmd.String(processesFlag)); err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	if cmd.IsSet(debugFlag) {
		cfg.Debug = cmd.Bool(debugFlag)
	}

	if cmd.IsSet(suffixFlag) {
		cfg.Suffix = cmd.String(suffixFlag)
	}

	return cfg, cfg.Validate()
}

// workerArgs are the arguments a worker is started with, ahead of its paths.
// The worker reads the configuration file at source and never spawns workers of its own.
func workerArgs(cmd *cli.Command, cfg *config.Config, source string, width int) []string {
	args := []string{
		cmd.Name,
		"--" + workerFlag,
		"--" + processesFlag + "=1",
		"--" + padFlag + "=" + strconv.Itoa(width),
	}

	// Workers reload the configuration file, so the resolved value must override it either way.
	args = append(args, "--"+debugFlag+"="+strconv.FormatBool(cfg.Debug))

	if cmd.Bool(verboseFlag) {
		args = append(args, "--"+verboseFlag)
	}

	if source != "" {
		args = append(args, fmt.Sprintf("--%s=%s", configFlag, source))
	}

	return append(args, "--")
}

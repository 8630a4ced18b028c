// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the bladelint command-line interface (CLI).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/bladelint"
	"github.com/matt-FFFFFF/bladelint/cmd/bladelint/config"
	"github.com/matt-FFFFFF/bladelint/cmd/bladelint/lint"
	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
	"github.com/matt-FFFFFF/bladelint/internal/orchestrator"
	"github.com/matt-FFFFFF/bladelint/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		lint.NewCommand(),
		config.NewCommand(),
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "bladelint",
	Description: `bladelint compiles Laravel Blade templates and checks the generated PHP
with php -l, spreading the work over several processes.`,
	Usage:     "bladelint lint [PATH...]",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
	// Exit codes carry lint results, main exits with them.
	ExitErrHandler: func(context.Context, *cli.Command, error) {},
}

func main() {
	ctx, cancel := context.WithCancelCause(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", bladelint.Version, bladelint.Commit)

	err := rootCmd.Run(ctx, os.Args)
	code := exitCode(err)

	if errors.Is(context.Cause(ctx), signalbroker.ErrAborted) {
		ctxlog.Logger(ctx).Info("command terminated by signal")

		code = orchestrator.AbortedExitCode
	}

	signalbroker.Stop(sigCh)
	cancel(nil)
	os.Exit(code)
}

// exitCode maps the result of the root command to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	fmt.Fprintln(os.Stderr, err) //nolint:errcheck

	return orchestrator.FatalExitCode
}

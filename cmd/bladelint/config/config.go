// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config implements the config command.
package config

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/bladelint/internal/config"
	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

const configFlag = "config"

// NewCommand returns the config command, which prints the effective configuration.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration in the format of " + config.DefaultFile,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      configFlag,
				Aliases:   []string{"c"},
				Usage:     "Configuration file or go-getter URL, " + config.DefaultFile + " is read when present",
				TakesFile: true,
				Sources:   cli.EnvVars("BLADELINT_CONFIG"),
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	source, cleanup, err := config.Fetch(ctx, cmd.String(configFlag))
	if err != nil {
		ctxlog.Error(ctx, "could not get configuration file", "error", err)
		return cli.Exit("", 1)
	}

	defer cleanup()

	cfg, err := config.Load(source)
	if err != nil {
		ctxlog.Error(ctx, "invalid configuration", "error", err)
		return cli.Exit("", 1)
	}

	out, err := cfg.YAML()
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to render configuration: %s", err), 1)
	}

	_, err = cmd.Root().Writer.Write(out)

	return err //nolint:wrapcheck
}

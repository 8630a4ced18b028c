// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package linter checks generated PHP with an external syntax checker, `php -l` by default.
// The checker reads the code on stdin and reports through its exit status;
// its first diagnostic line names the input "Standard input code", which is replaced
// with the template path before it is shown to the user.
package linter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
	"github.com/matt-FFFFFF/bladelint/internal/pipeexec"
)

const (
	// DefaultCommand is the syntax checker used when none is configured.
	DefaultCommand = "php"
	// StdinMarker is the name the checker gives to code read from stdin.
	StdinMarker = "Standard input code"
)

// DefaultArgs are the arguments passed to DefaultCommand.
var DefaultArgs = []string{"-l"}

var (
	// ErrCouldNotStartChecker is returned when the checker binary cannot be launched.
	ErrCouldNotStartChecker = errors.New("could not start syntax checker")
	// ErrCheckerFailed is returned when the checker ran but the exchange itself failed.
	ErrCheckerFailed = errors.New("syntax checker failed")
)

// Result is the outcome of checking one payload.
type Result struct {
	OK         bool   // exit status was zero
	ExitCode   int    // raw checker exit status
	Diagnostic string // first diagnostic line with the stdin marker replaced; empty when OK
}

// Client runs the syntax checker once per Lint call.
// It holds no state between calls and is safe for concurrent use.
type Client struct {
	Path string
	Args []string
}

// New returns a client running path with args.
// An empty path selects `php -l`.
func New(path string, args ...string) *Client {
	if path == "" {
		return &Client{Path: DefaultCommand, Args: DefaultArgs}
	}

	return &Client{Path: path, Args: args}
}

// Lint feeds code to the checker and reports whether it is syntactically valid.
// sourcePath replaces the stdin marker in the diagnostic.
func (c *Client) Lint(ctx context.Context, code []byte, sourcePath string) (*Result, error) {
	out, err := pipeexec.Run(ctx, c.Path, c.Args, code)

	switch {
	case errors.Is(err, pipeexec.ErrCouldNotStartProcess):
		return nil, fmt.Errorf("%w: %s: %w", ErrCouldNotStartChecker, c.Path, err)
	case err != nil:
		return nil, errors.Join(ErrCheckerFailed, err)
	}

	res := &Result{
		OK:       out.ExitCode == 0,
		ExitCode: out.ExitCode,
	}

	if res.OK {
		return res, nil
	}

	line := firstLine(out.StdErr)
	if line == "" {
		line = firstLine(out.StdOut)
	}

	if line == "" {
		line = fmt.Sprintf("syntax check failed with exit code %d", out.ExitCode)
	}

	res.Diagnostic = strings.ReplaceAll(line, StdinMarker, sourcePath)

	ctxlog.Debug(ctx, "lint failed", "file", sourcePath, "exitCode", out.ExitCode)

	return res, nil
}

// firstLine returns the first non-blank line of b, trimmed.
func firstLine(b []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), len(b)+1)

	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}

	return ""
}

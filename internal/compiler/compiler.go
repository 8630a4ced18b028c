// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package compiler turns Blade templates into plain PHP that a syntax checker can validate.
//
// Blade is the built-in compiler; Command delegates to an external program such as
// a project's own artisan command. Both are deterministic and do not touch the filesystem.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matt-FFFFFF/bladelint/internal/pipeexec"
)

// ErrCompileFailed is returned when an external compiler exits unsuccessfully.
var ErrCompileFailed = errors.New("template compilation failed")

// Compiler compiles raw template text into generated code.
type Compiler interface {
	Compile(ctx context.Context, template []byte) ([]byte, error)
}

// Func adapts a function to the Compiler interface.
type Func func(ctx context.Context, template []byte) ([]byte, error)

// Compile implements Compiler.
func (f Func) Compile(ctx context.Context, template []byte) ([]byte, error) {
	return f(ctx, template)
}

// Command compiles by piping the template to an external program and reading the code from its stdout.
type Command struct {
	Path string
	Args []string
}

// Compile implements Compiler.
func (c *Command) Compile(ctx context.Context, template []byte) ([]byte, error) {
	out, err := pipeexec.Run(ctx, c.Path, c.Args, template)
	if err != nil {
		return nil, errors.Join(ErrCompileFailed, err)
	}

	if out.ExitCode != 0 {
		msg := strings.TrimSpace(string(bytes.SplitN(out.StdErr, []byte("\n"), 2)[0]))
		return nil, fmt.Errorf("%w: %s exited with code %d: %s", ErrCompileFailed, c.Path, out.ExitCode, msg)
	}

	return out.StdOut, nil
}

// New returns the external Command compiler when path is set and the built-in Blade compiler otherwise.
func New(path string, args ...string) Compiler {
	if path == "" {
		return NewBlade()
	}

	return &Command{Path: path, Args: args}
}

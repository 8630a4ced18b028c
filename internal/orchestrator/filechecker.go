// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/bladelint/internal/compiler"
	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
	"github.com/matt-FFFFFF/bladelint/internal/linter"
	"github.com/matt-FFFFFF/bladelint/internal/report"
	"github.com/spf13/afero"
)

// Linter checks generated code. *linter.Client implements it.
type Linter interface {
	Lint(ctx context.Context, code []byte, sourcePath string) (*linter.Result, error)
}

// FileChecker compiles and lints templates in the current process.
// Its CheckChunk method is the UnitFunc used inline and inside workers.
type FileChecker struct {
	Fs       afero.Fs
	Compiler compiler.Compiler
	Linter   Linter
	Reporter *report.Reporter
	Debug    bool // dump generated code before checking it
}

// CheckChunk checks paths in order and returns the number of failing templates.
//
// A template that cannot be read or compiled is checked as empty code. Should the checker
// accept that, the template is still counted as failing with the read or compile error as
// its diagnostic, so such a template can never pass.
//
// A checker that cannot be started stops the chunk and is returned as an error.
func (f *FileChecker) CheckChunk(ctx context.Context, paths []string) (int, error) {
	errorCount := 0

	for _, p := range paths {
		if ctx.Err() != nil {
			return errorCount, context.Cause(ctx)
		}

		f.Reporter.Compiling(p)

		code, genErr := f.generate(ctx, p)
		if f.Debug {
			f.Reporter.Generated(p, code)
		}

		res, err := f.Linter.Lint(ctx, code, p)
		if err != nil {
			if ctx.Err() != nil {
				return errorCount, context.Cause(ctx)
			}

			return errorCount, fmt.Errorf("checking %s: %w", p, err)
		}

		diagnostic := res.Diagnostic
		if res.OK && genErr != nil {
			diagnostic = fmt.Sprintf("%s: %v", p, genErr)
		}

		if !res.OK || genErr != nil {
			errorCount++
			f.Reporter.Failure(diagnostic)
		}
	}

	return errorCount, nil
}

// generate reads and compiles path. On failure the code is empty and the error says why.
func (f *FileChecker) generate(ctx context.Context, path string) ([]byte, error) {
	raw, err := afero.ReadFile(f.Fs, path)
	if err != nil {
		ctxlog.Warn(ctx, "could not read template", "path", path, "error", err)
		return nil, err //nolint:wrapcheck
	}

	code, err := f.Compiler.Compile(ctx, raw)
	if err != nil {
		ctxlog.Warn(ctx, "could not compile template", "path", path, "error", err)
		return nil, err //nolint:wrapcheck
	}

	return code, nil
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package discovery finds the templates to check.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
)

// ErrWalk is returned when part of a search path could not be read.
var ErrWalk = errors.New("could not search for templates")

// isFile reports whether d is a regular file or a symlink to one.
// Symlinked directories are not descended into.
func isFile(path string, d fs.DirEntry) bool {
	switch {
	case d.Type().IsRegular():
		return true
	case d.Type()&fs.ModeSymlink != 0:
		info, err := os.Stat(path)
		return err == nil && info.Mode().IsRegular()
	default:
		return false
	}
}

// Find returns every file below paths whose name ends in suffix, compared case-insensitively.
// A path naming a file is returned as is, whatever its name. The result is sorted and free of duplicates.
//
// Unreadable paths do not stop the search: the files found elsewhere are returned
// together with an error listing what was skipped.
func Find(ctx context.Context, paths []string, suffix string) ([]string, error) {
	var (
		mu    sync.Mutex
		found []string
		errs  *multierror.Error
	)

	suffix = strings.ToLower(suffix)
	conf := fastwalk.Config{Follow: false, NumWorkers: runtime.NumCPU()}

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		mu.Lock()
		defer mu.Unlock()

		if err != nil {
			errs = multierror.Append(errs, err)
			return nil
		}

		if strings.HasSuffix(strings.ToLower(d.Name()), suffix) && isFile(path, d) {
			found = append(found, path)
		}

		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		if !info.IsDir() {
			found = append(found, root)
			continue
		}

		if err := fastwalk.Walk(&conf, root, walkFn); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}

	slices.Sort(found)
	found = slices.Compact(found)

	ctxlog.Debug(ctx, "templates found", "paths", len(paths), "templates", len(found))

	if errs != nil {
		return found, fmt.Errorf("%w: %w", ErrWalk, errs)
	}

	return found, nil
}

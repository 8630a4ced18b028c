// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package inventory records the size of every template so work can be balanced across workers.
package inventory

import (
	"context"

	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
	"github.com/spf13/afero"
)

// Entry is one template file and its size in bytes.
type Entry struct {
	Path string
	Size uint64
}

// Inventory is the list of entries in the order the paths were given.
type Inventory []Entry

// Build stats every path on fs.
// A path that cannot be stat'ed is recorded with size 0 so it is still checked.
func Build(ctx context.Context, fs afero.Fs, paths []string) Inventory {
	logger := ctxlog.Logger(ctx)
	inv := make(Inventory, 0, len(paths))

	for _, p := range paths {
		var size uint64

		info, err := fs.Stat(p)
		switch {
		case err != nil:
			logger.Debug("stat failed, using size 0", "path", p, "error", err)
		case info.Size() > 0:
			size = uint64(info.Size())
		}

		inv = append(inv, Entry{Path: p, Size: size})
	}

	return inv
}

// Paths returns the paths in inventory order.
func (inv Inventory) Paths() []string {
	paths := make([]string, len(inv))
	for i, e := range inv {
		paths[i] = e.Path
	}

	return paths
}

// TotalSize is the sum of all entry sizes.
func (inv Inventory) TotalSize() uint64 {
	var total uint64
	for _, e := range inv {
		total += e.Size
	}

	return total
}

// MaxPathLen is the length of the longest path, used to align progress output.
func (inv Inventory) MaxPathLen() int {
	longest := 0
	for _, e := range inv {
		longest = max(longest, len(e.Path))
	}

	return longest
}

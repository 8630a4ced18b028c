// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package chunk splits an inventory into per-worker chunks of roughly equal total size.
//
// Files are stable-sorted by ascending size and dealt round-robin, so the file at sorted
// position i goes to chunk i mod N. This is not optimal bin packing, but it is cheap,
// keeps chunk totals close and always yields the same assignment for the same input.
package chunk

import (
	"slices"

	"github.com/matt-FFFFFF/bladelint/internal/inventory"
)

// Chunk is the ordered list of files assigned to one worker.
type Chunk []string

// EffectiveWorkers is the number of workers actually used for files files:
// min(requested, files), at least 1 when there is any work and 0 when there is none.
func EffectiveWorkers(requested, files int) int {
	if files <= 0 {
		return 0
	}

	return min(max(requested, 1), files)
}

// Partition deals the inventory into EffectiveWorkers(workers, len(inv)) non-empty chunks.
// Every path appears in exactly one chunk.
func Partition(inv inventory.Inventory, workers int) []Chunk {
	n := EffectiveWorkers(workers, len(inv))
	if n == 0 {
		return nil
	}

	sorted := slices.Clone(inv)
	slices.SortStableFunc(sorted, func(a, b inventory.Entry) int {
		switch {
		case a.Size < b.Size:
			return -1
		case a.Size > b.Size:
			return 1
		default:
			return 0
		}
	})

	chunks := make([]Chunk, n)
	for i, e := range sorted {
		chunks[i%n] = append(chunks[i%n], e.Path)
	}

	return chunks
}

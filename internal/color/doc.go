// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color colours terminal output with ANSI escape codes.
// It honours the NO_COLOR and FORCE_COLOR environment variables and otherwise enables
// colour only when stdout is a terminal, as reported by golang.org/x/term.
package color

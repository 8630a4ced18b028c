// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package report writes what the user sees: one line per failing template,
// optional progress and debug output, and the final summary.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/matt-FFFFFF/bladelint/internal/color"
	"github.com/matt-FFFFFF/bladelint/internal/inventory"
)

// Reporter formats lint progress and results.
// A nil *Reporter discards everything.
type Reporter struct {
	out     io.Writer
	verbose bool
	width   int
}

// New returns a reporter writing to out. Progress lines are only written when verbose is set.
func New(out io.Writer, verbose bool) *Reporter {
	return &Reporter{out: out, verbose: verbose}
}

// Banner writes the program banner.
func (r *Reporter) Banner(version string) {
	if r == nil {
		return
	}

	fmt.Fprintf(r.out, "%s %s\n", color.Colorize("Blade Lint", color.Bold, color.FgGreen), version) //nolint:errcheck
}

// Found announces the inventory in verbose mode and remembers the path width for progress lines.
func (r *Reporter) Found(inv inventory.Inventory) {
	if r == nil {
		return
	}

	r.width = inv.MaxPathLen()

	if !r.verbose {
		return
	}

	fmt.Fprintf(r.out, "Found %s (%s), processing now...\n", //nolint:errcheck
		english.Plural(len(inv), "blade template", ""),
		humanize.Bytes(inv.TotalSize()))
}

// Align pads progress lines to width, for workers that only see part of the inventory.
func (r *Reporter) Align(width int) {
	if r == nil {
		return
	}

	r.width = width
}

// Compiling writes a progress line for path in verbose mode.
func (r *Reporter) Compiling(path string) {
	if r == nil || !r.verbose {
		return
	}

	fmt.Fprintf(r.out, "Compiling %-*s ...\n", r.width, path) //nolint:errcheck
}

// Generated dumps the compiled code of path.
func (r *Reporter) Generated(path string, code []byte) {
	if r == nil {
		return
	}

	fmt.Fprintf(r.out, "%s\n%s\n", color.Colorize("--- "+path, color.FgYellow), code) //nolint:errcheck
}

// Failure writes the diagnostic of a template that failed the syntax check.
func (r *Reporter) Failure(diagnostic string) {
	if r == nil {
		return
	}

	fmt.Fprintln(r.out, color.Colorize(diagnostic, color.FgRed)) //nolint:errcheck
}

// Summary writes the final verdict of a run.
// fatal lists the errors that stopped part of the run, such as a checker that could not be started.
func (r *Reporter) Summary(errorCount int, aborted bool, fatal error) {
	if r == nil {
		return
	}

	var lines []string

	switch {
	case aborted:
		lines = append(lines, color.Colorize("Aborted, not all Blade templates were checked!", color.Bold, color.FgRed))
	case errorCount > 0:
		lines = append(lines, color.Colorize(
			fmt.Sprintf("Found %s in Blade templates!", english.Plural(errorCount, "error", "")),
			color.Bold, color.FgRed))
	case fatal == nil:
		lines = append(lines, color.Colorize("All Blade templates OK!", color.Bold, color.FgGreen))
	}

	if fatal != nil && !aborted {
		lines = append(lines, color.Colorize("Not all Blade templates could be checked: "+fatal.Error(), color.FgRed))
	}

	fmt.Fprintln(r.out, strings.Join(lines, "\n")) //nolint:errcheck
}

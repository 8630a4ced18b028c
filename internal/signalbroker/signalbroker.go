// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker turns OS termination signals into context cancellation.
// By default it listens for SIGINT, SIGTERM, SIGQUIT and SIGHUP. SIGKILL cannot be caught.
//
// Watch fires at most once: the first signal cancels the run context with ErrAborted as the cause.
// Whoever owns running worker processes observes the cancellation, kills and reaps them,
// and the process exits with the abort exit code.
package signalbroker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
)

// ErrAborted is the cancellation cause set when a termination signal is received.
var ErrAborted = errors.New("run aborted by signal")

var termSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	syscall.SIGHUP,
}

// New creates a channel that receives the termination signals, or sigs if given.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "signalbroker", "detail", "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop unsubscribes ch from signal delivery.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
)

// Watch waits for the first signal on sigCh and cancels the context with ErrAborted.
// It returns without cancelling if ctx is done first or sigCh is closed.
// Signals arriving after the first stay subscribed and are dropped, so a second
// Ctrl-C cannot kill the coordinator before it has reaped its workers.
func Watch(ctx context.Context, sigCh <-chan os.Signal, cancel context.CancelCauseFunc) {
	select {
	case sig, ok := <-sigCh:
		if !ok {
			return
		}

		ctxlog.Logger(ctx).Info("watchdog", "detail", "received termination signal, aborting run", "signal", sig.String())
		cancel(ErrAborted)

	case <-ctx.Done():
	}
}

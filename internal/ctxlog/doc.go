// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a structured logger through a context.Context.
// It uses the slog package and defaults to a pretty console handler writing to stderr,
// leaving stdout free for lint results.
//
// The level is read once from the BLADELINT_LOG_LEVEL environment variable.
// Worker processes inherit the environment, so they log at the same level as the coordinator.
package ctxlog

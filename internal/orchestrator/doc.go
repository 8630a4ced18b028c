// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package orchestrator distributes templates across worker processes and folds their results.
//
// A run moves through Planning, Dispatching, Collecting and Done. With one effective worker
// the templates are checked inline. With more, every chunk is handed to a new process,
// normally this program re-invoked in worker mode with exactly one process, and the
// coordinator only waits. Workers report back through their exit status alone:
// the number of failing templates, FatalExitCode or AbortedExitCode.
//
// Collection is strictly in spawn order, so a hung worker delays collecting the ones after it.
// Nothing times out; cancelling the context is the only way to stop a run early.
package orchestrator

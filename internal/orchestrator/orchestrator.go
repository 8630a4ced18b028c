// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/bladelint/internal/chunk"
	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
	"github.com/matt-FFFFFF/bladelint/internal/inventory"
)

var (
	// ErrSpawnWorker is returned when a worker process could not be built or started.
	ErrSpawnWorker = errors.New("could not spawn worker")
	// ErrWorkerFailed is returned when a worker exits with FatalExitCode or cannot be waited for.
	ErrWorkerFailed = errors.New("worker failed")
	// ErrNoSpawner is returned when more than one worker is needed but no Spawner is set.
	ErrNoSpawner = errors.New("no spawner configured for multi-process run")
)

// UnitFunc checks paths in the current process and returns how many failed.
// A returned error means the rest of the paths could not be checked.
type UnitFunc func(ctx context.Context, paths []string) (int, error)

// Orchestrator runs the templates of an inventory inline or across worker processes.
type Orchestrator struct {
	Processes int      // requested workers; values below 1 mean 1
	Spawner   Spawner  // builds worker processes, needed when more than one worker is used
	Unit      UnitFunc // checks templates inline
}

// worker is a started process and the chunk it owns. Only the orchestrator holds workers.
type worker struct {
	cmd   *exec.Cmd
	chunk chunk.Chunk
	index int
}

// Run checks every template of inv and returns the folded outcome.
// Cancelling ctx kills all running workers and yields Aborted.
// The error reports work that could not be done: spawn failures and failed workers.
// It never carries syntax errors, those are counted in the outcome.
func (o *Orchestrator) Run(ctx context.Context, inv inventory.Inventory) (Outcome, error) {
	n := chunk.EffectiveWorkers(o.Processes, len(inv))

	ctxlog.Debug(ctx, "planned run", "files", len(inv), "requestedWorkers", o.Processes, "workers", n)

	switch n {
	case 0:
		return Count(0), nil
	case 1:
		return o.runInline(ctx, inv.Paths())
	}

	if o.Spawner == nil {
		return Count(0), ErrNoSpawner
	}

	workers, spawnErr := o.dispatch(ctx, chunk.Partition(inv, n))
	res, collectErr := o.collect(ctx, workers)

	return res, multierror.Append(spawnErr, collectErr).ErrorOrNil()
}

func (o *Orchestrator) runInline(ctx context.Context, paths []string) (Outcome, error) {
	count, err := o.Unit(ctx, paths)
	if ctx.Err() != nil {
		return Aborted(), nil
	}

	return Count(count), err
}

// dispatch starts one worker per chunk, in chunk order.
// It stops at the first failure and returns the workers started so far, which still need collecting.
func (o *Orchestrator) dispatch(ctx context.Context, chunks []chunk.Chunk) ([]*worker, error) {
	logger := ctxlog.Logger(ctx)
	workers := make([]*worker, 0, len(chunks))

	for i, c := range chunks {
		if ctx.Err() != nil {
			break
		}

		cmd, err := o.Spawner.Command(ctx, c)
		if err == nil {
			err = cmd.Start()
		}

		if err != nil {
			return workers, fmt.Errorf("%w: chunk %d of %d: %w", ErrSpawnWorker, i+1, len(chunks), err)
		}

		logger.Debug("worker started", "pid", cmd.Process.Pid, "chunk", i+1, "files", len(c))

		workers = append(workers, &worker{cmd: cmd, chunk: c, index: i})
	}

	return workers, nil
}

// collect waits for every worker in spawn order and folds their exit statuses.
// While it waits, a cancelled ctx kills all workers.
func (o *Orchestrator) collect(ctx context.Context, workers []*worker) (Outcome, error) {
	logger := ctxlog.Logger(ctx)

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		select {
		case <-ctx.Done():
			logger.Info("run cancelled, killing workers", "workers", len(workers), "cause", context.Cause(ctx))

			for _, w := range workers {
				killWorker(ctx, w)
			}
		case <-done:
		}
	}()

	var (
		res  Outcome
		errs *multierror.Error
	)

	for _, w := range workers {
		waitErr := w.cmd.Wait()

		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			errs = multierror.Append(errs, fmt.Errorf("%w: worker %d: %w", ErrWorkerFailed, w.index+1, waitErr))
		}

		if w.cmd.ProcessState == nil {
			continue
		}

		code := w.cmd.ProcessState.ExitCode()
		logger.Debug("worker finished", "pid", w.cmd.Process.Pid, "chunk", w.index+1, "exitCode", code)

		if code == FatalExitCode {
			errs = multierror.Append(errs, fmt.Errorf("%w: worker %d (%d files) exited with code %d",
				ErrWorkerFailed, w.index+1, len(w.chunk), code))

			continue
		}

		res = res.Add(fromExitStatus(code))
	}

	close(done)
	<-stopped

	if ctx.Err() != nil {
		return Aborted(), errs.ErrorOrNil()
	}

	return res, errs.ErrorOrNil()
}

func killWorker(ctx context.Context, w *worker) {
	if err := w.cmd.Process.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Debug(ctx, "worker already done", "pid", w.cmd.Process.Pid)
			return
		}

		ctxlog.Error(ctx, "worker kill error", "pid", w.cmd.Process.Pid, "error", err)

		return
	}

	ctxlog.Info(ctx, "worker killed", "pid", w.cmd.Process.Pid)
}

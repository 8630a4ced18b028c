// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeexec runs a subprocess as a single request/response exchange:
// the whole request is written to stdin which is then closed, stdout and stderr
// are drained to end of stream, and finally the exit status is collected.
//
// All three pipes are closed on every path before the child is reaped.
// There is no timeout; a hung child blocks until ctx is cancelled.
package pipeexec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"

	"github.com/matt-FFFFFF/bladelint/internal/ctxlog"
)

const maxBufferSize = 8 * 1024 * 1024 // 8MB

var (
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrFailedToReadBuffer is returned when a pipe could not be read.
	ErrFailedToReadBuffer = errors.New("failed to read buffer")
	// ErrProcessCancelled is returned when the context was cancelled while the process was running.
	ErrProcessCancelled = errors.New("process cancelled")
)

// Output is the response half of the exchange.
type Output struct {
	ExitCode  int    // -1 when the process was terminated by a signal
	StdOut    []byte // at most 8MB, see Truncated
	StdErr    []byte // at most 8MB, see Truncated
	Truncated bool   // true when either stream exceeded the buffer limit
}

// Run starts path with args, feeds it input on stdin and waits for it to finish.
// A non-zero exit status is not an error; it is reported in Output.ExitCode.
// Cancelling ctx kills the process and returns ErrProcessCancelled joined with the cancellation cause.
func Run(ctx context.Context, path string, args []string, input []byte) (*Output, error) {
	logger := ctxlog.Logger(ctx).With("path", path)

	cmd := exec.CommandContext(ctx, path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	logger.Debug("process started", "pid", cmd.Process.Pid, "inputBytes", len(input))

	var (
		wg               sync.WaitGroup
		outBuf, errBuf   []byte
		outErr, errErr   error
		outOver, errOver bool
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		defer stdin.Close() //nolint:errcheck

		// The child may exit without reading everything; its exit status decides the outcome.
		if _, err := stdin.Write(input); err != nil {
			logger.Debug("stdin write incomplete", "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		outBuf, outOver, outErr = readAllUpToMax(stdout, maxBufferSize)
	}()

	go func() {
		defer wg.Done()
		errBuf, errOver, errErr = readAllUpToMax(stderr, maxBufferSize)
	}()

	wg.Wait()

	waitErr := cmd.Wait()

	res := &Output{
		ExitCode:  cmd.ProcessState.ExitCode(),
		StdOut:    outBuf,
		StdErr:    errBuf,
		Truncated: outOver || errOver,
	}

	logger.Debug("process finished", "exitCode", res.ExitCode, "stdoutBytes", len(outBuf), "stderrBytes", len(errBuf))

	if ctx.Err() != nil {
		return res, errors.Join(ErrProcessCancelled, context.Cause(ctx))
	}

	if err := errors.Join(outErr, errErr); err != nil {
		return res, err
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, waitErr
	}

	return res, nil
}

// readAllUpToMax keeps at most limit bytes but always drains r to EOF,
// so a chatty child never blocks on a full pipe.
func readAllUpToMax(r io.Reader, limit int64) ([]byte, bool, error) {
	var buf bytes.Buffer

	n, err := io.CopyN(&buf, r, limit)
	if err != nil && !errors.Is(err, io.EOF) {
		return buf.Bytes(), false, errors.Join(ErrFailedToReadBuffer, err)
	}

	if n < limit {
		return buf.Bytes(), false, nil
	}

	extra, err := io.Copy(io.Discard, r)
	if err != nil {
		return buf.Bytes(), extra > 0, errors.Join(ErrFailedToReadBuffer, err)
	}

	return buf.Bytes(), extra > 0, nil
}

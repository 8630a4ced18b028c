// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"slices"

	"github.com/matt-FFFFFF/bladelint/internal/chunk"
)

// WorkerEnvVar is set in the environment of every worker spawned by SelfSpawner.
// A process that sees it never fans out again, whatever its flags say.
const WorkerEnvVar = "BLADELINT_WORKER"

// Spawner builds the command that checks one chunk in a separate process.
// The command must not be started; the orchestrator starts, waits for and kills it.
type Spawner interface {
	Command(ctx context.Context, c chunk.Chunk) (*exec.Cmd, error)
}

// SpawnerFunc adapts a function to the Spawner interface.
type SpawnerFunc func(ctx context.Context, c chunk.Chunk) (*exec.Cmd, error)

// Command implements Spawner.
func (f SpawnerFunc) Command(ctx context.Context, c chunk.Chunk) (*exec.Cmd, error) {
	return f(ctx, c)
}

// SelfSpawner re-invokes the running executable with Args followed by the chunk's paths.
// Args must put the child in worker mode with a single process.
type SelfSpawner struct {
	Executable string    // defaults to os.Executable()
	Args       []string  // arguments placed before the paths
	Stdout     io.Writer // defaults to os.Stdout
	Stderr     io.Writer // defaults to os.Stderr
}

// Command implements Spawner.
func (s *SelfSpawner) Command(_ context.Context, c chunk.Chunk) (*exec.Cmd, error) {
	exe := s.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return nil, errors.Join(ErrSpawnWorker, err)
		}
	}

	cmd := exec.Command(exe, slices.Concat(s.Args, c)...) //nolint:gosec
	cmd.Env = append(os.Environ(), WorkerEnvVar+"=1")
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr

	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}

	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	return cmd, nil
}

// IsWorker reports whether this process was spawned as a worker.
func IsWorker() bool {
	return os.Getenv(WorkerEnvVar) != ""
}

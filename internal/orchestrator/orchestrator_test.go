// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matt-FFFFFF/bladelint/internal/chunk"
	"github.com/matt-FFFFFF/bladelint/internal/inventory"
	"github.com/matt-FFFFFF/bladelint/internal/signalbroker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// shSpawner runs script(chunk) with /bin/sh for every chunk and records what it was asked for.
type shSpawner struct {
	script func(c chunk.Chunk) string
	failAt int // 1-based chunk number to fail building, 0 for never
	chunks []chunk.Chunk
	cmds   []*exec.Cmd
}

func (s *shSpawner) Command(_ context.Context, c chunk.Chunk) (*exec.Cmd, error) {
	s.chunks = append(s.chunks, c)
	if len(s.chunks) == s.failAt {
		return nil, errors.New("fork: resource temporarily unavailable")
	}

	cmd := exec.Command("/bin/sh", "-c", s.script(c))
	s.cmds = append(s.cmds, cmd)

	return cmd, nil
}

// lockedBuffer is shared by workers writing concurrently.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func exitWith(code int) func(chunk.Chunk) string {
	return func(chunk.Chunk) string { return fmt.Sprintf("exit %d", code) }
}

func noUnit(t *testing.T) UnitFunc {
	return func(context.Context, []string) (int, error) {
		t.Error("unit must not run when workers are spawned")
		return 0, nil
	}
}

func sizedInventory(sizes ...uint64) inventory.Inventory {
	inv := make(inventory.Inventory, 0, len(sizes))
	for i, s := range sizes {
		inv = append(inv, inventory.Entry{Path: fmt.Sprintf("views/t%d.blade.php", i), Size: s})
	}

	return inv
}

func TestRun_NoFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &shSpawner{script: exitWith(0)}
	o := &Orchestrator{Processes: 4, Spawner: sp, Unit: func(context.Context, []string) (int, error) {
		t.Error("unit must not run without files")
		return 0, nil
	}}

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Count(0), res)
	assert.Empty(t, sp.chunks, "no worker may be spawned")
}

func TestRun_SingleProcess(t *testing.T) {
	tests := []struct {
		name      string
		processes int
		inv       inventory.Inventory
	}{
		{name: "one process requested", processes: 1, inv: sizedInventory(30, 10, 20)},
		{name: "zero means one", processes: 0, inv: sizedInventory(30, 10)},
		{name: "more processes than files", processes: 8, inv: sizedInventory(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string

			sp := &shSpawner{script: exitWith(0)}
			o := &Orchestrator{Processes: tt.processes, Spawner: sp, Unit: func(_ context.Context, paths []string) (int, error) {
				got = paths
				return 1, nil
			}}

			res, err := o.Run(context.Background(), tt.inv)
			require.NoError(t, err)
			assert.Equal(t, Count(1), res)
			assert.Equal(t, tt.inv.Paths(), got, "inline run keeps inventory order")
			assert.Empty(t, sp.chunks)
		})
	}
}

func TestRun_InlineFatal(t *testing.T) {
	boom := errors.New("checker missing")
	o := &Orchestrator{Processes: 1, Unit: func(context.Context, []string) (int, error) {
		return 2, boom
	}}

	res, err := o.Run(context.Background(), sizedInventory(1, 2, 3))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Count(2), res)
}

func TestRun_InlineAborted(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	o := &Orchestrator{Processes: 1, Unit: func(ctx context.Context, _ []string) (int, error) {
		cancel(signalbroker.ErrAborted)
		return 1, context.Cause(ctx)
	}}

	res, err := o.Run(ctx, sizedInventory(1, 2))
	require.NoError(t, err)
	assert.True(t, res.IsAborted())
}

func TestRun_FiveFilesThreeWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &shSpawner{script: exitWith(0)}
	o := &Orchestrator{Processes: 3, Spawner: sp, Unit: noUnit(t)}

	res, err := o.Run(context.Background(), sizedInventory(50, 10, 30, 10, 20))
	require.NoError(t, err)
	assert.Equal(t, Count(0), res)

	require.Len(t, sp.chunks, 3)
	assert.Len(t, sp.chunks[0], 2)
	assert.Len(t, sp.chunks[1], 2)
	assert.Len(t, sp.chunks[2], 1)

	for _, cmd := range sp.cmds {
		require.NotNil(t, cmd.ProcessState, "every worker must be reaped")
	}
}

func TestRun_SumsWorkerCounts(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &shSpawner{script: func(c chunk.Chunk) string { return fmt.Sprintf("exit %d", len(c)) }}
	o := &Orchestrator{Processes: 3, Spawner: sp, Unit: noUnit(t)}

	res, err := o.Run(context.Background(), sizedInventory(1, 2, 3, 4, 5, 6, 7))
	require.NoError(t, err)
	assert.Equal(t, Count(7), res)
}

func TestRun_AbortedWorkerDominates(t *testing.T) {
	tests := []struct {
		name   string
		script func(chunk.Chunk) string
	}{
		{
			name: "worker exits with abort code",
			script: func(c chunk.Chunk) string {
				if strings.HasSuffix(c[0], "t1.blade.php") {
					return "exit 127"
				}

				return "exit 3"
			},
		},
		{
			name: "worker killed by a signal",
			script: func(c chunk.Chunk) string {
				if strings.HasSuffix(c[0], "t1.blade.php") {
					return "kill -9 $$"
				}

				return "exit 3"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			sp := &shSpawner{script: tt.script}
			o := &Orchestrator{Processes: 3, Spawner: sp, Unit: noUnit(t)}

			res, err := o.Run(context.Background(), sizedInventory(1, 2, 3))
			require.NoError(t, err)
			assert.True(t, res.IsAborted())
			assert.Equal(t, AbortedExitCode, res.ExitCode())
		})
	}
}

func TestRun_FatalWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &shSpawner{script: func(c chunk.Chunk) string {
		if strings.HasSuffix(c[0], "t0.blade.php") {
			return fmt.Sprintf("exit %d", FatalExitCode)
		}

		return "exit 1"
	}}
	o := &Orchestrator{Processes: 3, Spawner: sp, Unit: noUnit(t)}

	res, err := o.Run(context.Background(), sizedInventory(1, 2, 3))
	require.ErrorIs(t, err, ErrWorkerFailed)
	assert.Equal(t, Count(2), res)
}

func TestRun_SpawnFailureStopsDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &shSpawner{script: exitWith(2), failAt: 2}
	o := &Orchestrator{Processes: 3, Spawner: sp, Unit: noUnit(t)}

	res, err := o.Run(context.Background(), sizedInventory(1, 2, 3))
	require.ErrorIs(t, err, ErrSpawnWorker)
	assert.Contains(t, err.Error(), "chunk 2 of 3")
	assert.Len(t, sp.chunks, 2, "no chunk may be dispatched after a spawn failure")
	require.Len(t, sp.cmds, 1)
	require.NotNil(t, sp.cmds[0].ProcessState, "the started worker must still be reaped")
	assert.Equal(t, Count(2), res)
}

func TestRun_StartFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	o := &Orchestrator{
		Processes: 2,
		Spawner: SpawnerFunc(func(context.Context, chunk.Chunk) (*exec.Cmd, error) {
			return exec.Command("/not/a/real/bladelint"), nil
		}),
		Unit: noUnit(t),
	}

	res, err := o.Run(context.Background(), sizedInventory(1, 2))
	require.ErrorIs(t, err, ErrSpawnWorker)
	assert.Equal(t, Count(0), res)
	assert.Equal(t, FatalExitCode, ExitCode(res, err))
}

func TestRun_NoSpawner(t *testing.T) {
	o := &Orchestrator{Processes: 2, Unit: noUnit(t)}

	_, err := o.Run(context.Background(), sizedInventory(1, 2))
	require.ErrorIs(t, err, ErrNoSpawner)
}

func TestRun_CancelKillsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sp := &shSpawner{script: func(chunk.Chunk) string { return "exec sleep 30" }}
	o := &Orchestrator{Processes: 2, Spawner: sp, Unit: noUnit(t)}

	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel(errors.New("test cancelled"))
	}()

	start := time.Now()
	res, err := o.Run(ctx, sizedInventory(1, 2))

	require.NoError(t, err)
	assert.True(t, res.IsAborted())
	assert.Less(t, time.Since(start), 10*time.Second)

	for _, cmd := range sp.cmds {
		require.NotNil(t, cmd.ProcessState, "killed workers must be reaped")
		assert.False(t, cmd.ProcessState.Exited(), "worker should have been killed")
	}
}

func TestRun_SignalWhileWorkersOutstanding(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sigCh := make(chan os.Signal, 1)
	watched := make(chan struct{})

	go func() {
		defer close(watched)
		signalbroker.Watch(ctx, sigCh, cancel)
	}()

	sp := &shSpawner{script: func(chunk.Chunk) string { return "exec sleep 30" }}
	o := &Orchestrator{Processes: 2, Spawner: sp, Unit: noUnit(t)}

	go func() {
		time.Sleep(300 * time.Millisecond)
		sigCh <- os.Interrupt
	}()

	res, err := o.Run(ctx, sizedInventory(10, 20))
	require.NoError(t, err)
	assert.Equal(t, AbortedExitCode, ExitCode(res, err))
	assert.ErrorIs(t, context.Cause(ctx), signalbroker.ErrAborted)

	<-watched

	require.Len(t, sp.cmds, 2)

	for _, cmd := range sp.cmds {
		require.NotNil(t, cmd.ProcessState)
	}
}

func TestRun_SelfSpawnerEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Stands in for the re-invoked binary: fails once per path containing "bad".
	self := filepath.Join(t.TempDir(), "bladelint")
	script := `#!/bin/sh
[ "$BLADELINT_WORKER" = 1 ] || exit 99
[ "$1" = lint ] && [ "$2" = --worker ] && [ "$3" = -- ] || exit 98
shift 3
n=0
for f in "$@"; do
  echo "checked $f"
  case "$f" in *bad*) n=$((n+1));; esac
done
exit $n
`
	require.NoError(t, os.WriteFile(self, []byte(script), 0o755))

	out := &lockedBuffer{}

	o := &Orchestrator{
		Processes: 3,
		Spawner:   &SelfSpawner{Executable: self, Args: []string{"lint", "--worker", "--"}, Stdout: out, Stderr: out},
		Unit:      noUnit(t),
	}

	inv := inventory.Inventory{
		{Path: "a.blade.php", Size: 1},
		{Path: "bad1.blade.php", Size: 2},
		{Path: "c.blade.php", Size: 3},
		{Path: "bad2.blade.php", Size: 4},
		{Path: "e.blade.php", Size: 5},
	}

	res, err := o.Run(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, Count(2), res)

	for _, p := range inv.Paths() {
		assert.Contains(t, out.String(), "checked "+p)
	}
}

func TestSelfSpawner_Command(t *testing.T) {
	s := &SelfSpawner{Executable: "/bin/echo", Args: []string{"lint", "--worker", "--processes=1", "--"}}

	cmd, err := s.Command(context.Background(), chunk.Chunk{"a.blade.php", "b.blade.php"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/bin/echo", "lint", "--worker", "--processes=1", "--", "a.blade.php", "b.blade.php"}, cmd.Args)
	assert.Contains(t, cmd.Env, WorkerEnvVar+"=1")
	assert.Equal(t, os.Stdout, cmd.Stdout)
	assert.Equal(t, os.Stderr, cmd.Stderr)
}

func TestIsWorker(t *testing.T) {
	t.Setenv(WorkerEnvVar, "")
	assert.False(t, IsWorker())

	t.Setenv(WorkerEnvVar, "1")
	assert.True(t, IsWorker())
}

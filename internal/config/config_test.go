// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"runtime"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubFs(t *testing.T, files map[string]string) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	stubs := gostub.Stub(&FsFactory, func() afero.Fs {
		return fs
	})
	t.Cleanup(stubs.Reset)
}

func TestLoad_NoFile(t *testing.T) {
	stubFs(t, nil)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingNamedFile(t *testing.T) {
	stubFs(t, nil)

	_, err := Load("custom.yaml")
	require.ErrorIs(t, err, ErrReadConfigFile)
}

func TestLoad_DefaultFile(t *testing.T) {
	stubFs(t, map[string]string{DefaultFile: `
paths:
  - resources/views
  - packages/admin/views
processes: 4
debug: true
checker:
  command: /usr/bin/php8.3
  args: ["-l", "-d", "display_errors=stderr"]
`})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"resources/views", "packages/admin/views"}, cfg.Paths)
	assert.Equal(t, Processes(4), cfg.Processes)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/usr/bin/php8.3", cfg.Checker.Command)
	assert.Equal(t, []string{"-l", "-d", "display_errors=stderr"}, cfg.Checker.Args)
	assert.Equal(t, DefaultSuffix, cfg.Suffix, "unset fields keep their defaults")
	assert.Empty(t, cfg.Compiler.Command)
}

func TestLoad_Compiler(t *testing.T) {
	stubFs(t, map[string]string{"ci/lint.yaml": `
suffix: .blade.html
processes: auto
compiler:
  command: php
  args: [artisan, blade:compile]
`})

	cfg, err := Load("ci/lint.yaml")
	require.NoError(t, err)
	assert.Equal(t, ".blade.html", cfg.Suffix)
	assert.Equal(t, Processes(0), cfg.Processes)
	assert.Equal(t, Tool{Command: "php", Args: []string{"artisan", "blade:compile"}}, cfg.Compiler)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "unknown field", content: "proceses: 4\n", wantErr: ErrParseConfigFile},
		{name: "bad processes", content: "processes: many\n", wantErr: ErrParseConfigFile},
		{name: "zero processes", content: "processes: 0\n", wantErr: ErrParseConfigFile},
		{name: "no paths", content: "paths: []\n", wantErr: ErrInvalidConfig},
		{name: "empty suffix", content: "suffix: \"\"\n", wantErr: ErrInvalidConfig},
		{name: "not yaml", content: "paths: [\n", wantErr: ErrParseConfigFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubFs(t, map[string]string{DefaultFile: tt.content})

			_, err := Load("")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Processes = 3

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "processes: 3")

	stubFs(t, map[string]string{"out.yaml": string(out)})

	got, err := Load("out.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestConfig_YAMLAuto(t *testing.T) {
	out, err := Default().YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "processes: auto")
}

func TestParseProcesses(t *testing.T) {
	tests := []struct {
		in      string
		want    Processes
		wantErr bool
	}{
		{in: "auto", want: 0},
		{in: "AUTO", want: 0},
		{in: "", want: 0},
		{in: "1", want: 1},
		{in: " 16 ", want: 16},
		{in: "0", wantErr: true},
		{in: "-2", wantErr: true},
		{in: "two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProcesses(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidProcesses)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcesses_Resolve(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), Processes(0).Resolve())
	assert.Equal(t, 3, Processes(3).Resolve())
	assert.Equal(t, "auto", Processes(0).String())
	assert.Equal(t, "3", Processes(3).String())
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// AutoProcesses is the textual form of Processes(0).
const AutoProcesses = "auto"

// ErrInvalidProcesses is returned for a processes value that is neither "auto" nor a positive integer.
var ErrInvalidProcesses = errors.New(`processes must be "auto" or a positive integer`)

// Processes is the requested number of worker processes. Zero means one per CPU.
type Processes int

// ParseProcesses reads "auto" (or an empty string) or a positive integer.
func ParseProcesses(s string) (Processes, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AutoProcesses) {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProcesses, s)
	}

	return Processes(n), nil
}

// Resolve returns the concrete number of processes.
func (p Processes) Resolve() int {
	if p <= 0 {
		return runtime.NumCPU()
	}

	return int(p)
}

func (p Processes) String() string {
	if p <= 0 {
		return AutoProcesses
	}

	return strconv.Itoa(int(p))
}

// UnmarshalYAML accepts either `auto` or an integer.
func (p *Processes) UnmarshalYAML(unmarshal func(any) error) error {
	var n int
	if err := unmarshal(&n); err == nil {
		if n < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidProcesses, n)
		}

		*p = Processes(n)

		return nil
	}

	var s string
	if err := unmarshal(&s); err != nil {
		return errors.Join(ErrInvalidProcesses, err)
	}

	v, err := ParseProcesses(s)
	if err != nil {
		return err
	}

	*p = v

	return nil
}

// MarshalYAML writes `auto` for zero and the number otherwise.
func (p Processes) MarshalYAML() (any, error) {
	if p <= 0 {
		return AutoProcesses, nil
	}

	return int(p), nil
}

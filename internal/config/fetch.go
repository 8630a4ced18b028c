// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
)

// ErrFetchConfigFile is returned when a remote configuration file cannot be downloaded.
var ErrFetchConfigFile = errors.New("failed to fetch configuration file")

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // scheme, host and path
)

// Fetch makes the configuration file at src available on the local disk.
// src uses go-getter syntax, so a team can share one file from a git repository or a bucket.
// Local paths, and an empty src, are returned unchanged.
// Otherwise the file is downloaded to a temporary directory which cleanup removes.
// Workers are pointed at the downloaded copy so the file is only fetched once per run.
func Fetch(ctx context.Context, src string) (path string, cleanup func(), err error) {
	cleanup = func() {}

	if src == "" {
		return "", cleanup, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", cleanup, errors.Join(ErrFetchConfigFile, err)
	}

	req := &getter.Request{
		Src:     src,
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	local, err := getter.Detect(req, &getter.FileGetter{})
	if err != nil {
		return "", cleanup, errors.Join(ErrFetchConfigFile, err)
	}

	if local {
		return src, cleanup, nil
	}

	// Only directories can be fetched from most sources, see hashicorp/go-getter#98.
	dirURL, fileName := splitFileNameFromGetterURL(src)
	if dirURL == "" || fileName == "" {
		return "", cleanup, fmt.Errorf("%w: invalid URL format: %s", ErrFetchConfigFile, src)
	}

	tmpDir, err := os.MkdirTemp("", "bladelint-getter-*")
	if err != nil {
		return "", cleanup, errors.Join(ErrFetchConfigFile, err)
	}

	cleanup = func() { os.RemoveAll(tmpDir) } //nolint:errcheck

	req.Src = dirURL
	req.Dst = filepath.Join(tmpDir, "g")

	client := getter.Client{
		DisableSymlinks: true,
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		cleanup()
		return "", func() {}, errors.Join(ErrFetchConfigFile, err)
	}

	return filepath.Join(res.Dst, fileName), cleanup, nil
}

// splitFileNameFromGetterURL splits a go-getter URL naming a file into the URL of its directory
// and the file name. A ref query parameter is kept on the directory URL.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]
	if before, after, found := strings.Cut(last, goGetterRefSeparator); found {
		last, ref = before, after
	}

	if filepath.Clean(last) == filepath.Dir(last) {
		return "", ""
	}

	fileName := filepath.Base(last)
	parts[len(parts)-1] = filepath.Dir(last)

	if parts[len(parts)-1] == "." {
		parts = parts[:len(parts)-1]
	}

	dirURL := strings.Join(parts, goGetterPathSeparator)
	if ref != "" {
		dirURL += goGetterRefSeparator + ref
	}

	return dirURL, fileName
}

// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-cdi.
//
// go-cdi is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-cdi is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-cdi.  If not, see <https://www.gnu.org/licenses/>.

package archive

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// compressedExtensions are the single-stream wrapper formats a bare .cdi
// image may be shipped under: not containers with a member list like ZIP,
// but a transparent filter over one file.
var compressedExtensions = map[string]bool{
	".gz":  true,
	".xz":  true,
	".br":  true,
	".lz4": true,
	".zst": true,
}

// IsCompressedExtension reports whether ext names a supported single-stream
// compression wrapper.
func IsCompressedExtension(ext string) bool {
	return compressedExtensions[strings.ToLower(ext)]
}

// IsCompressedPath is IsCompressedExtension applied to a path's extension.
func IsCompressedPath(path string) bool {
	return IsCompressedExtension(filepath.Ext(path))
}

// Decompress wraps r, a stream compressed with the format named by ext, in a
// reader producing the decompressed bytes. The returned reader must be read
// to completion (or its underlying resources released by the caller closing
// r) before r is reused.
func Decompress(r io.Reader, ext string) (io.Reader, error) {
	switch strings.ToLower(ext) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, nil
	case ".xz":
		zr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xz stream: %w", err)
		}
		return zr, nil
	case ".br":
		return brotli.NewReader(r), nil
	case ".lz4":
		return lz4.NewReader(r), nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, FormatError{Format: ext, Reason: "not a recognized compression wrapper"}
	}
}

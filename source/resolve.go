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

// Package source resolves a user-supplied path to a concrete .cdi byte
// source: the path itself, the sole (or selected) .cdi member of a ZIP/7z/RAR
// archive, or the decompressed form of a single-stream gzip/xz/brotli/lz4
// wrapper. This is the one place that input path ever touches an archive or
// compression library; everything past Resolve deals in a plain
// io.ReaderAt.
package source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-cdi"
	"github.com/ZaparooProject/go-cdi/archive"
)

// Resolved is a concrete .cdi byte source plus the means to release any
// resources (an open archive, a staged temp file) it took to produce it.
type Resolved struct {
	Reader io.ReaderAt
	Size   int64
	io.Closer
}

// Resolve inspects path's extension and produces a Resolved .cdi byte
// source. innerHint narrows which archive member to pick when path is an
// archive holding more than one .cdi file; it is ignored for bare or
// compressed paths. fs is used for every filesystem access this package
// performs directly (opening a bare .cdi, staging a decompressed copy),
// so resolution is unit-testable against an in-memory filesystem. Archive
// reading goes through the archive package, which opens archive files
// directly since the underlying zip/7z/rar libraries require a real path.
func Resolve(ctx context.Context, fs afero.Fs, path string, innerHint string) (*Resolved, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A MiSTer-style path ("/games/roms.zip/folder/disc.cdi") names the
	// archive member directly in the path itself; archive.ParsePath splits
	// that out so the caller doesn't have to pass innerHint separately. An
	// explicit innerHint still wins, since it is the more specific request.
	if p, err := archive.ParsePath(path); err != nil {
		return nil, fmt.Errorf("parse archive path %s: %w", path, err)
	} else if p != nil {
		hint := innerHint
		if hint == "" {
			hint = p.InternalPath
		}
		return resolveArchive(p.ArchivePath, hint)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case archive.IsArchiveExtension(ext):
		return resolveArchive(path, innerHint)
	case archive.IsCompressedExtension(ext):
		return resolveCompressed(ctx, fs, path, ext)
	default:
		return resolveBare(fs, path)
	}
}

// Open is Resolve followed by cdi.OpenReader. The returned Closer releases
// both the parsed container and whatever resolution opened underneath it;
// the caller only needs to call it once, after it is done with the
// container.
func Open(ctx context.Context, fs afero.Fs, path string, innerHint string) (*cdi.Container, io.Closer, error) {
	res, err := Resolve(ctx, fs, path, innerHint)
	if err != nil {
		return nil, nil, err
	}

	c, err := cdi.OpenReader(res.Reader, res.Size)
	if err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("open resolved container: %w", err)
	}
	return c, multiCloser{res, closerFunc(c.Close)}, nil
}

func resolveArchive(path, innerHint string) (*Resolved, error) {
	arc, err := archive.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	member, err := archive.DetectCDIFile(arc, innerHint)
	if err != nil {
		_ = arc.Close()
		return nil, fmt.Errorf("locate .cdi in archive %s: %w", path, err)
	}

	r, size, closer, err := arc.OpenReaderAt(member)
	if err != nil {
		_ = arc.Close()
		return nil, fmt.Errorf("open %s in archive %s: %w", member, path, err)
	}

	return &Resolved{
		Reader: r,
		Size:   size,
		Closer: multiCloser{closer, closerFunc(arc.Close)},
	}, nil
}

func resolveCompressed(ctx context.Context, fs afero.Fs, path, ext string) (*Resolved, error) {
	src, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open compressed source %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	decompressed, err := archive.Decompress(src, ext)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}

	staged, err := afero.TempFile(fs, "", "cdi-staging-*.cdi")
	if err != nil {
		return nil, fmt.Errorf("create staging file for %s: %w", path, err)
	}
	stagedPath := staged.Name()

	if _, err := copyWithContext(ctx, staged, decompressed); err != nil {
		_ = staged.Close()
		_ = fs.Remove(stagedPath)
		return nil, fmt.Errorf("stage decompressed %s: %w", path, err)
	}
	if err := staged.Close(); err != nil {
		_ = fs.Remove(stagedPath)
		return nil, fmt.Errorf("close staging file for %s: %w", path, err)
	}

	staged, err = fs.Open(stagedPath)
	if err != nil {
		_ = fs.Remove(stagedPath)
		return nil, fmt.Errorf("reopen staging file for %s: %w", path, err)
	}
	info, err := staged.Stat()
	if err != nil {
		_ = staged.Close()
		_ = fs.Remove(stagedPath)
		return nil, fmt.Errorf("stat staging file for %s: %w", path, err)
	}

	return &Resolved{
		Reader: staged,
		Size:   info.Size(),
		Closer: multiCloser{closerFunc(staged.Close), removeOnClose{fs: fs, path: stagedPath}},
	}, nil
}

// CopyRaw streams res's resolved bytes verbatim to outPath on outFS, without
// parsing the descriptor. This backs the CLI's convert operation: repackage
// whatever was resolved (archive member, decompressed wrapper, bare file) as
// a plain .cdi copy.
func CopyRaw(ctx context.Context, res *Resolved, outFS afero.Fs, outPath string) error {
	if err := outFS.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output directory for %s: %w", outPath, err)
	}
	dst, err := outFS.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer func() { _ = dst.Close() }()

	sr := io.NewSectionReader(res.Reader, 0, res.Size)
	if _, err := copyWithContext(ctx, dst, sr); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}

func resolveBare(fs afero.Fs, path string) (*Resolved, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat container %s: %w", path, err)
	}
	return &Resolved{Reader: f, Size: info.Size(), Closer: f}, nil
}

// copyWithContext is io.Copy that checks ctx between chunks, so a cancelled
// context stops an in-flight decompression of a large staged image promptly.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 256*1024)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// multiCloser closes every member in order, returning the first error but
// still attempting the rest.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// removeOnClose deletes a staged file once its reader is done with it.
type removeOnClose struct {
	fs   afero.Fs
	path string
}

func (r removeOnClose) Close() error {
	if err := r.fs.Remove(r.path); err != nil {
		return fmt.Errorf("remove staging file %s: %w", r.path, err)
	}
	return nil
}

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

// Package extract writes tracks, the IP.BIN bootstrap, the boot logo, and
// the ISO-9660 filesystem tree of a loaded CDI container out to a
// destination filesystem.
package extract

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-cdi"
	"github.com/ZaparooProject/go-cdi/iso9660"
	"github.com/ZaparooProject/go-cdi/mrimage"
)

// Kind selects which artefacts an extraction pass produces. The zero value
// extracts nothing.
type Kind struct {
	Tracks     bool
	Bootstrap  bool
	BootLogo   bool
	Filesystem bool
}

// ParseKinds parses the -e flag's letter string ("a", "il", "f", ...) into a
// Kind. "a" means every extractable artefact: tracks, IP.BIN, boot logo, and
// the filesystem tree. An earlier revision of this tool silently rewrote
// "a" to just "il", dropping filesystem extraction; this parser does not
// repeat that collapse.
func ParseKinds(s string) (Kind, error) {
	var k Kind
	for _, c := range s {
		switch c {
		case 'a':
			k = Kind{Tracks: true, Bootstrap: true, BootLogo: true, Filesystem: true}
		case 'i':
			k.Bootstrap = true
		case 'l':
			k.BootLogo = true
		case 'f':
			k.Filesystem = true
		default:
			return Kind{}, fmt.Errorf("extract: unknown extraction flag %q", string(c))
		}
	}
	return k, nil
}

// Warning is a non-fatal condition surfaced alongside a successful
// extraction, such as a container with no embedded boot logo.
type Warning struct {
	Message string
}

// Result accumulates the files written and any warnings raised during one
// extraction pass, mirroring the reference project's metadata-accumulation
// result pattern rather than printing unconditionally.
type Result struct {
	Written  []string
	Warnings []Warning
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Message: fmt.Sprintf(format, args...)})
}

// Extractor writes artefacts from c to outFS, rooted at outDir.
type Extractor struct {
	c      *cdi.Container
	outFS  afero.Fs
	outDir string
}

// New builds an Extractor. outFS is the destination filesystem abstraction;
// pass afero.NewOsFs() for real disk output or an afero.MemMapFs in tests.
func New(c *cdi.Container, outFS afero.Fs, outDir string) *Extractor {
	return &Extractor{c: c, outFS: outFS, outDir: outDir}
}

// All runs every artefact kind set in k and returns the accumulated result.
// A failure in one kind aborts the whole pass; artefacts already written by
// prior kinds are left in place, matching the "no partial success hidden
// from the caller" contract.
func (e *Extractor) All(ctx context.Context, k Kind) (*Result, error) {
	res := &Result{}
	if err := e.outFS.MkdirAll(e.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("extract: create output directory: %w", err)
	}

	if k.Tracks {
		if err := e.tracks(ctx, res); err != nil {
			return res, err
		}
	}

	var bootstrap *cdi.Bootstrap
	if k.Bootstrap || k.BootLogo || k.Filesystem {
		b, err := cdi.LocateBootstrap(ctx, e.c)
		if err != nil {
			return res, fmt.Errorf("extract: locate bootstrap: %w", err)
		}
		bootstrap = b
	}

	if k.Bootstrap {
		if err := e.ipBin(bootstrap, res); err != nil {
			return res, err
		}
	}
	if k.BootLogo {
		if err := e.bootLogo(bootstrap, res); err != nil {
			return res, err
		}
	}
	if k.Filesystem {
		if err := e.filesystem(ctx, bootstrap, res); err != nil {
			return res, err
		}
	}

	return res, nil
}

// DumpTrack extracts exactly one track by session and track index, the
// single-track counterpart to All's bulk Tracks pass. It backs the CLI's
// -s "session:track" dump mode.
func (e *Extractor) DumpTrack(ctx context.Context, session, trackIdx int) (*Result, error) {
	if err := e.outFS.MkdirAll(e.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("extract: create output directory: %w", err)
	}
	t, err := e.c.Track(session, trackIdx)
	if err != nil {
		return nil, fmt.Errorf("extract: look up session %d track %d: %w", session, trackIdx, err)
	}
	res := &Result{}
	if err := e.track(ctx, session, trackIdx, t, res); err != nil {
		return res, err
	}
	return res, nil
}

// tracks extracts every track in every session: audio tracks as WAV, data
// tracks as raw ISO payload.
func (e *Extractor) tracks(ctx context.Context, res *Result) error {
	for si, session := range e.c.Sessions {
		for ti, track := range session.Tracks {
			if err := e.track(ctx, si, ti, track, res); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Extractor) track(ctx context.Context, session, track int, t cdi.Track, res *Result) error {
	if t.Mode == cdi.ModeAudio {
		name := fmt.Sprintf("TAudio%d-%d.wav", session, track)
		out := filepath.Join(e.outDir, name)
		f, err := e.outFS.Create(out)
		if err != nil {
			return fmt.Errorf("extract: create %s: %w", out, err)
		}
		defer f.Close() //nolint:errcheck // best-effort close after a write error is already reported

		dataSize := t.Body * uint32(t.SectorSize)
		if err := writeWAVHeader(f, dataSize); err != nil {
			return fmt.Errorf("extract: write WAV header for %s: %w", out, err)
		}
		if err := e.copySectors(ctx, f, session, track, t.BaseLBA, t.Body); err != nil {
			return fmt.Errorf("extract: copy audio sectors for %s: %w", out, err)
		}
		res.Written = append(res.Written, out)
		return nil
	}

	name := fmt.Sprintf("TData%d-%d.iso", session, track)
	out := filepath.Join(e.outDir, name)
	f, err := e.outFS.Create(out)
	if err != nil {
		return fmt.Errorf("extract: create %s: %w", out, err)
	}
	defer f.Close() //nolint:errcheck // best-effort close after a write error is already reported

	if err := e.copySectors(ctx, f, session, track, t.BaseLBA, t.Body); err != nil {
		return fmt.Errorf("extract: copy data sectors for %s: %w", out, err)
	}
	res.Written = append(res.Written, out)
	return nil
}

// copySectors streams n sectors starting at baseLBA through the sector
// stream's cursor cache, one sector per read call.
func (e *Extractor) copySectors(ctx context.Context, w afero.File, session, track int, baseLBA, n uint32) error {
	for i := uint32(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := e.c.Stream().ReadSectors(ctx, session, track, baseLBA+i, 1)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write sector %d: %w", baseLBA+i, err)
		}
	}
	return nil
}

func (e *Extractor) ipBin(b *cdi.Bootstrap, res *Result) error {
	out := filepath.Join(e.outDir, "IP.BIN")
	if err := afero.WriteFile(e.outFS, out, b.Data[:], 0o644); err != nil {
		return fmt.Errorf("extract: write IP.BIN: %w", err)
	}
	res.Written = append(res.Written, out)
	return nil
}

func (e *Extractor) bootLogo(b *cdi.Bootstrap, res *Result) error {
	if !b.HasBootLogo() {
		res.warn("no embedded boot logo in bootstrap")
		return nil
	}

	img, err := mrimage.Decode(b.BootLogo())
	if err != nil {
		return fmt.Errorf("extract: decode boot logo: %w", err)
	}
	if img.Width > mrimage.MaxWidth || img.Height > mrimage.MaxHeight {
		res.warn("boot logo is %dx%d, larger than %dx%d", img.Width, img.Height, mrimage.MaxWidth, mrimage.MaxHeight)
	}

	out := filepath.Join(e.outDir, "bootlogo.bmp")
	f, err := e.outFS.Create(out)
	if err != nil {
		return fmt.Errorf("extract: create %s: %w", out, err)
	}
	defer f.Close() //nolint:errcheck // best-effort close after a write error is already reported

	if err := mrimage.WriteBMP(f, img); err != nil {
		return fmt.Errorf("extract: write %s: %w", out, err)
	}
	res.Written = append(res.Written, out)
	return nil
}

// filesystem walks the ISO-9660 tree on the bootstrap's data track and
// recreates it verbatim under the output directory.
func (e *Extractor) filesystem(ctx context.Context, b *cdi.Bootstrap, res *Result) error {
	handle, err := e.c.TrackHandleFor(b.Session, b.Track)
	if err != nil {
		return fmt.Errorf("extract: filesystem track handle: %w", err)
	}

	fs, err := iso9660.Walk(ctx, handle, 0)
	if err != nil {
		return fmt.Errorf("extract: walk filesystem: %w", err)
	}

	for _, entry := range fs.Files() {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		dest := filepath.Join(e.outDir, filepath.FromSlash(strings.TrimPrefix(entry.FullPath, "/")))

		if entry.IsDir {
			if err := e.outFS.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("extract: mkdir %s: %w", dest, err)
			}
			continue
		}

		if err := e.outFS.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("extract: mkdir %s: %w", filepath.Dir(dest), err)
		}
		data, err := fs.ReadFile(ctx, entry)
		if err != nil {
			return fmt.Errorf("extract: read %s: %w", path.Clean(entry.FullPath), err)
		}
		if err := afero.WriteFile(e.outFS, dest, data, 0o644); err != nil {
			return fmt.Errorf("extract: write %s: %w", dest, err)
		}
		res.Written = append(res.Written, dest)
	}
	return nil
}

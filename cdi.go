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

// Package cdi reads, validates, and extracts DiscJuggler (.cdi) disc images
// of Sega Dreamcast games.
package cdi

import (
	"fmt"
	"io"
	"os"
)

// Mode is a track's sector encoding.
type Mode uint32

// Track modes recognised by the descriptor parser.
const (
	ModeAudio Mode = 0
	ModeMode1 Mode = 1
	ModeMode2 Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeAudio:
		return "Audio"
	case ModeMode1:
		return "Mode1"
	case ModeMode2:
		return "Mode2"
	default:
		return fmt.Sprintf("Mode(%d)", uint32(m))
	}
}

// SectorSize is a track's on-disk sector size in bytes.
type SectorSize uint32

// Sector sizes a track may declare.
const (
	SectorSize2048 SectorSize = 2048
	SectorSize2336 SectorSize = 2336
	SectorSize2352 SectorSize = 2352
	SectorSize2368 SectorSize = 2368
	SectorSize2448 SectorSize = 2448
)

// sectorSizeClasses maps the descriptor's sector-size class field to its
// byte size, per the fixed table in the descriptor's class encoding.
var sectorSizeClasses = map[uint32]SectorSize{
	0: SectorSize2048,
	1: SectorSize2336,
	2: SectorSize2352,
	3: SectorSize2368,
	4: SectorSize2448,
}

// headerStrip is the number of bytes to skip at the start of a stored sector
// before the 2048-byte logical payload begins, keyed by (mode, sector size).
var headerStrip = map[Mode]map[SectorSize]int{
	ModeMode1: {SectorSize2352: 16, SectorSize2048: 0},
	ModeMode2: {SectorSize2352: 24, SectorSize2336: 8, SectorSize2048: 0},
	ModeAudio: {SectorSize2352: 0},
}

// Track is one recorded track within a session.
type Track struct {
	Index      int
	Filename   string
	Pregap     uint32
	Body       uint32
	Total      uint32
	Mode       Mode
	SectorSize SectorSize
	BaseLBA    uint32

	// StartMarkerOK is false when the track-start marker bytes did not
	// match the expected constant; parsing continues regardless, but
	// this is a strong signal of a third-party container variant.
	StartMarkerOK bool
}

// HeaderStripBytes returns the number of bytes to skip at the start of each
// stored sector of this track before the logical payload begins.
func (t Track) HeaderStripBytes() int {
	if byMode, ok := headerStrip[t.Mode]; ok {
		if n, ok := byMode[t.SectorSize]; ok {
			return n
		}
	}
	return 0
}

// Session is a contiguous group of tracks.
type Session struct {
	Index  int
	Tracks []Track
}

// Container is a parsed CDI disc image, opened read-only over a single file
// handle that the sector stream owns exclusively.
type Container struct {
	file     *os.File
	size     int64
	Sessions []Session

	stream *SectorStream
}

// Open parses the CDI descriptor at path and returns a ready-to-use
// Container. The underlying file is held open until Close is called.
func Open(path string) (*Container, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided path is expected
	if err != nil {
		return nil, fmt.Errorf("open CDI container: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat CDI container: %w", err)
	}

	sessions, err := parseDescriptor(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parse CDI descriptor: %w", err)
	}

	c := &Container{
		file:     f,
		size:     info.Size(),
		Sessions: sessions,
	}
	c.stream = NewSectorStream(c)
	return c, nil
}

// OpenReader parses the CDI descriptor from an already-open random-access
// source of known size, without taking ownership of a file on disk. This is
// the entry point container-source resolution (archives, decompressed
// wrappers) uses once it has staged a plain byte source.
func OpenReader(r io.ReaderAt, size int64) (*Container, error) {
	sessions, err := parseDescriptor(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse CDI descriptor: %w", err)
	}
	c := &Container{size: size, Sessions: sessions}
	c.stream = newSectorStreamReader(c, r)
	return c, nil
}

// Close releases the container's file handle, if it owns one.
func (c *Container) Close() error {
	if c.file == nil {
		return nil
	}
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("close CDI container: %w", err)
	}
	return nil
}

// Size is the total byte size of the container.
func (c *Container) Size() int64 {
	return c.size
}

// Track looks up a track by session and track index.
func (c *Container) Track(session, track int) (Track, error) {
	if session < 0 || session >= len(c.Sessions) {
		return Track{}, fmt.Errorf("session %d out of range (have %d)", session, len(c.Sessions))
	}
	s := c.Sessions[session]
	if track < 0 || track >= len(s.Tracks) {
		return Track{}, fmt.Errorf("track %d out of range in session %d (have %d)", track, session, len(s.Tracks))
	}
	return s.Tracks[track], nil
}

// Stream returns the sector stream used to read track payloads.
func (c *Container) Stream() *SectorStream {
	return c.stream
}

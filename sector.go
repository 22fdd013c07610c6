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

package cdi

import (
	"context"
	"fmt"
	"io"
)

// SectorStream translates logical (session, track, LBA) coordinates into
// file offsets and strips per-mode sector headers. It owns the container's
// single read handle; nothing else reads from it directly.
type SectorStream struct {
	c *Container
	r io.ReaderAt

	// cursor state: the absolute file offset the next sequential read
	// should start at, and the (session, track, lba) it corresponds to.
	haveCursor    bool
	cursorSession int
	cursorTrack   int
	cursorLBA     uint32
	cursorOffset  int64
}

// NewSectorStream builds a stream over a container that owns its own file.
func NewSectorStream(c *Container) *SectorStream {
	return &SectorStream{c: c, r: c.file}
}

// newSectorStreamReader builds a stream over an arbitrary reader, used when
// the container was opened via OpenReader.
func newSectorStreamReader(c *Container, r io.ReaderAt) *SectorStream {
	return &SectorStream{c: c, r: r}
}

// offset computes the absolute file offset of LBA lba within (session, track).
func (s *SectorStream) offset(session, track int, lba uint32) (int64, error) {
	t, err := s.c.Track(session, track)
	if err != nil {
		return 0, err
	}

	var off int64
	for i := 0; i < session; i++ {
		for _, pt := range s.c.Sessions[i].Tracks {
			off += int64(pt.Total) * int64(pt.SectorSize)
		}
	}
	for i := 0; i < track; i++ {
		pt := s.c.Sessions[session].Tracks[i]
		off += int64(pt.Total) * int64(pt.SectorSize)
	}
	off += int64(t.Pregap) * int64(t.SectorSize)
	off += int64(lba-t.BaseLBA) * int64(t.SectorSize)
	return off, nil
}

// ReadSectors reads n logical sectors starting at lba within (session,
// track). Data-mode tracks yield 2048-byte payloads per sector with the
// on-disk header stripped; audio tracks yield full raw 2352-byte sectors.
func (s *SectorStream) ReadSectors(ctx context.Context, session, track int, lba uint32, n uint32) ([]byte, error) {
	t, err := s.c.Track(session, track)
	if err != nil {
		return nil, err
	}
	bodyEnd := t.BaseLBA + t.Body
	if lba < t.BaseLBA || lba+n > bodyEnd {
		return nil, OutOfRangeError{Session: session, Track: track, LBA: lba, Count: n, BodyEnd: bodyEnd}
	}

	payloadSize := 2048
	if t.Mode == ModeAudio {
		payloadSize = int(t.SectorSize)
	}
	strip := t.HeaderStripBytes()

	out := make([]byte, 0, int(n)*payloadSize)
	for i := uint32(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("read sectors: %w", err)
		}

		curLBA := lba + i
		var absOffset int64
		if s.haveCursor && s.cursorSession == session && s.cursorTrack == track && s.cursorLBA == curLBA {
			absOffset = s.cursorOffset
		} else {
			absOffset, err = s.offset(session, track, curLBA)
			if err != nil {
				return nil, err
			}
		}

		raw := make([]byte, t.SectorSize)
		if _, err := s.r.ReadAt(raw, absOffset); err != nil {
			return nil, fmt.Errorf("read sector %d (session %d track %d): %w", curLBA, session, track, err)
		}

		payload := raw[strip:]
		if len(payload) < payloadSize {
			return nil, fmt.Errorf("short sector payload: have %d want %d", len(payload), payloadSize)
		}
		out = append(out, payload[:payloadSize]...)

		s.haveCursor = true
		s.cursorSession = session
		s.cursorTrack = track
		s.cursorLBA = curLBA + 1
		s.cursorOffset = absOffset + int64(t.SectorSize)
	}

	return out, nil
}

// WriteSectors writes n whole raw sectors (header included, per the track's
// mode) starting at lba within (session, track). Unlike ReadSectors this
// writes the full on-disk sector size, never just the stripped payload: an
// earlier revision of this write path stripped the header on read and then
// wrote back only the 2048-byte payload, truncating every sector it touched.
func (s *SectorStream) WriteSectors(ctx context.Context, session, track int, lba uint32, data []byte) error {
	t, err := s.c.Track(session, track)
	if err != nil {
		return err
	}
	w, ok := s.r.(io.WriterAt)
	if !ok {
		return fmt.Errorf("write sectors: underlying source is not writable")
	}
	if len(data)%int(t.SectorSize) != 0 {
		return fmt.Errorf("write sectors: data length %d not a multiple of sector size %d", len(data), t.SectorSize)
	}
	n := uint32(len(data) / int(t.SectorSize)) //nolint:gosec // sector counts fit comfortably in uint32
	bodyEnd := t.BaseLBA + t.Body
	if lba < t.BaseLBA || lba+n > bodyEnd {
		return OutOfRangeError{Session: session, Track: track, LBA: lba, Count: n, BodyEnd: bodyEnd}
	}

	for i := uint32(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("write sectors: %w", err)
		}
		off, err := s.offset(session, track, lba+i)
		if err != nil {
			return err
		}
		chunk := data[int(i)*int(t.SectorSize) : int(i+1)*int(t.SectorSize)]
		if _, err := w.WriteAt(chunk, off); err != nil {
			return fmt.Errorf("write sector %d (session %d track %d): %w", lba+i, session, track, err)
		}
	}

	s.haveCursor = false
	return nil
}

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
)

const logicalSectorSize = 2048

// TrackHandle is a track-relative view of a data track, addressed in
// 2048-byte logical sectors starting from the track's base LBA. This is the
// unit the ISO-9660 walker (and the bootstrap locator) reads in.
type TrackHandle struct {
	c       *Container
	Session int
	TrackNo int
	BaseLBA uint32
}

// TrackHandleFor returns a logical-sector view of the given track.
func (c *Container) TrackHandleFor(session, track int) (*TrackHandle, error) {
	t, err := c.Track(session, track)
	if err != nil {
		return nil, err
	}
	if t.Mode == ModeAudio {
		return nil, fmt.Errorf("track %d in session %d is audio, not a data track", track, session)
	}
	return &TrackHandle{c: c, Session: session, TrackNo: track, BaseLBA: t.BaseLBA}, nil
}

// ReadAt implements io.ReaderAt over the track's logical-sector address
// space: off and len(p) must be exact multiples of the logical sector size.
func (h *TrackHandle) ReadAt(p []byte, off int64) (int, error) {
	return h.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext is ReadAt with cancellation support for long sequential
// reads, such as a full filesystem extraction.
func (h *TrackHandle) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	if off%logicalSectorSize != 0 || len(p)%logicalSectorSize != 0 {
		return 0, fmt.Errorf("track handle reads must be sector-aligned: offset %d len %d", off, len(p))
	}
	lba := h.BaseLBA + uint32(off/logicalSectorSize) //nolint:gosec // disc LBAs fit comfortably in uint32
	n := uint32(len(p) / logicalSectorSize)          //nolint:gosec // sector counts fit comfortably in uint32

	data, err := h.c.stream.ReadSectors(ctx, h.Session, h.TrackNo, lba, n)
	if err != nil {
		return 0, err
	}
	copy(p, data)
	return len(data), nil
}

// ReadSector reads logical sector index (relative to the track's base LBA).
func (h *TrackHandle) ReadSector(ctx context.Context, index uint32) ([]byte, error) {
	return h.c.stream.ReadSectors(ctx, h.Session, h.TrackNo, h.BaseLBA+index, 1)
}

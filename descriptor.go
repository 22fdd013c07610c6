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
	"encoding/binary"
	"fmt"
	"io"

	intbin "github.com/ZaparooProject/go-cdi/internal/binary"
)

// descriptorType identifies which of the three tail-tag shapes the
// container's variable-length descriptor uses.
type descriptorType uint32

const (
	descriptorType1 descriptorType = 0x80000004
	descriptorType2 descriptorType = 0x80000005
	descriptorType3 descriptorType = 0x80000006
)

func (t descriptorType) hasExtraVariant() bool {
	return t == descriptorType2 || t == descriptorType3
}

// trackStartMarker is the 20-byte constant the authoring tool writes after a
// 4-byte per-track prefix; a mismatch is a soft warning, not fatal.
var trackStartMarker = []byte{
	0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF,
	0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF,
}

// byteCursor walks a byte slice forward, tracking bounds for every read.
type byteCursor struct {
	buf []byte
	pos int
}

func (c *byteCursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *byteCursor) need(n int) error {
	if c.remaining() < n {
		return TruncatedDescriptorError{Want: int64(c.pos + n), Have: int64(len(c.buf))}
	}
	return nil
}

func (c *byteCursor) advance(n int) {
	c.pos += n
}

// peekUint32LE reads the little-endian uint32 at the cursor's current
// position without advancing.
func (c *byteCursor) peekUint32LE() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(c.buf[c.pos : c.pos+4]), nil
}

// peekUint32LEAt reads a little-endian uint32 at offset bytes past the
// cursor's current position, without advancing.
func (c *byteCursor) peekUint32LEAt(offset int) (uint32, error) {
	at := c.pos + offset
	if at < 0 || at+4 > len(c.buf) {
		return 0, TruncatedDescriptorError{Want: int64(at + 4), Have: int64(len(c.buf))}
	}
	return binary.LittleEndian.Uint32(c.buf[at : at+4]), nil
}

func (c *byteCursor) readUint16LE() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos : c.pos+2])
	c.pos += 2
	return v, nil
}

func (c *byteCursor) bytesAt(offset, n int) ([]byte, error) {
	at := c.pos + offset
	if at < 0 || at+n > len(c.buf) {
		return nil, TruncatedDescriptorError{Want: int64(at + n), Have: int64(len(c.buf))}
	}
	return c.buf[at : at+n], nil
}

func (c *byteCursor) byteAt(offset int) (byte, error) {
	b, err := c.bytesAt(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// parseDescriptor reads the variable-length tail descriptor from r (a
// container of the given total size) and returns its sessions/tracks table.
func parseDescriptor(r io.ReaderAt, size int64) ([]Session, error) {
	if size < 8 {
		return nil, TruncatedDescriptorError{Want: 8, Have: size}
	}

	tail, err := intbin.ReadBytesAt(r, size-8, 8)
	if err != nil {
		return nil, fmt.Errorf("read descriptor tail: %w", err)
	}
	dType := descriptorType(binary.LittleEndian.Uint32(tail[0:4]))
	helper := binary.LittleEndian.Uint32(tail[4:8])

	var descOffset, descLen int64
	switch dType {
	case descriptorType3:
		descLen = int64(helper)
		descOffset = size - 8 - descLen
	case descriptorType1, descriptorType2:
		descOffset = int64(helper)
		descLen = size - descOffset
	default:
		return nil, InvalidDescriptorTypeError{Type: uint32(dType)}
	}
	if descOffset < 0 || descLen < 0 || descOffset+descLen > size {
		return nil, TruncatedDescriptorError{Want: descOffset + descLen, Have: size}
	}

	buf, err := intbin.ReadBytesAt(r, descOffset, int(descLen))
	if err != nil {
		return nil, fmt.Errorf("read descriptor body: %w", err)
	}

	return parseDescriptorBody(buf, dType)
}

func parseDescriptorBody(buf []byte, dType descriptorType) ([]Session, error) {
	cur := &byteCursor{buf: buf}

	sessionCount, err := cur.readUint16LE()
	if err != nil {
		return nil, fmt.Errorf("read session count: %w", err)
	}

	sessions := make([]Session, 0, sessionCount)
	for sIdx := 0; sIdx < int(sessionCount); sIdx++ {
		trackCount, err := cur.readUint16LE()
		if err != nil {
			return nil, fmt.Errorf("session %d: read track count: %w", sIdx, err)
		}

		tracks := make([]Track, 0, trackCount)
		for tIdx := 0; tIdx < int(trackCount); tIdx++ {
			track, err := parseTrack(cur, dType)
			if err != nil {
				return nil, fmt.Errorf("session %d track %d: %w", sIdx, tIdx, err)
			}
			track.Index = tIdx
			tracks = append(tracks, track)
		}

		// Trailing fixed skip after a session's last track. The 12-byte
		// (13 for types 2/3) run is unaccounted for in the reverse-engineered
		// layout; preserved as a fixed skip rather than guessed at.
		cur.advance(12)
		if dType.hasExtraVariant() {
			cur.advance(1)
		}

		sessions = append(sessions, Session{Index: sIdx, Tracks: tracks})
	}

	return sessions, nil
}

// parseTrack consumes one track record from cur, per the lettered algorithm
// steps a-f.
func parseTrack(cur *byteCursor, dType descriptorType) (Track, error) {
	// (a) an authoring-tool variant prefixes 8 extra bytes when the next
	// word is non-zero.
	peek, err := cur.peekUint32LE()
	if err != nil {
		return Track{}, fmt.Errorf("peek variant prefix: %w", err)
	}
	if peek != 0 {
		cur.advance(8)
	}

	// (b) 4-byte prefix, then the 20-byte track-start marker. Mismatch is a
	// soft warning only.
	marker, err := cur.bytesAt(4, 20)
	if err != nil {
		return Track{}, fmt.Errorf("read track-start marker: %w", err)
	}
	startMarkerOK := intbin.BytesEqual(marker, trackStartMarker)

	// 4 unknown bytes at relative +24, then (c) filename length+bytes at +28.
	nameLen, err := cur.byteAt(28)
	if err != nil {
		return Track{}, fmt.Errorf("read filename length: %w", err)
	}
	nameBytes, err := cur.bytesAt(29, int(nameLen))
	if err != nil {
		return Track{}, fmt.Errorf("read filename: %w", err)
	}
	filename := string(nameBytes)
	cur.advance(29 + int(nameLen))

	// (d) 19-byte fixed skip, then an optional 8-byte tool-version variant.
	cur.advance(19)
	sentinel, err := cur.peekUint32LE()
	if err != nil {
		return Track{}, fmt.Errorf("peek variant sentinel: %w", err)
	}
	if sentinel == 0x80000000 {
		cur.advance(8)
	}

	// (e) fixed-offset fields within the remaining track block.
	pregap, err := cur.peekUint32LEAt(6)
	if err != nil {
		return Track{}, fmt.Errorf("read pregap: %w", err)
	}
	body, err := cur.peekUint32LEAt(10)
	if err != nil {
		return Track{}, fmt.Errorf("read body length: %w", err)
	}
	mode, err := cur.peekUint32LEAt(20)
	if err != nil {
		return Track{}, fmt.Errorf("read mode: %w", err)
	}
	baseLBA, err := cur.peekUint32LEAt(36)
	if err != nil {
		return Track{}, fmt.Errorf("read base LBA: %w", err)
	}
	total, err := cur.peekUint32LEAt(40)
	if err != nil {
		return Track{}, fmt.Errorf("read total length: %w", err)
	}
	sizeClass, err := cur.peekUint32LEAt(60)
	if err != nil {
		return Track{}, fmt.Errorf("read sector size class: %w", err)
	}

	if mode > 2 {
		return Track{}, UnsupportedTrackModeError{Mode: mode}
	}
	sectorSize, ok := sectorSizeClasses[sizeClass]
	if !ok {
		return Track{}, UnsupportedSectorSizeError{Class: sizeClass}
	}

	// (f) fixed 93-byte advance, plus a type-2/3-only variant.
	cur.advance(93)
	if dType.hasExtraVariant() {
		word, err := cur.peekUint32LEAt(5)
		if err != nil {
			return Track{}, fmt.Errorf("peek type-2/3 variant word: %w", err)
		}
		if word == 0xFFFFFFFF {
			cur.advance(78)
		}
		cur.advance(9)
	}

	return Track{
		Filename:      filename,
		Pregap:        pregap,
		Body:          body,
		Total:         total,
		Mode:          Mode(mode),
		SectorSize:    sectorSize,
		BaseLBA:       baseLBA,
		StartMarkerOK: startMarkerOK,
	}, nil
}

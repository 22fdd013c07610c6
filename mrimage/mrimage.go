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

// Package mrimage decodes and encodes the run-length, palette-indexed "MR"
// image format used for the Dreamcast boot logo embedded in IP.BIN.
package mrimage

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headerSize      = 30
	paletteEntrySize = 4
	// MaxColors is the largest palette the format allows.
	MaxColors = 128
	// MaxWidth and MaxHeight are the boot logo's recommended bounds; images
	// larger than this are accepted with a warning, not rejected.
	MaxWidth  = 320
	MaxHeight = 94
	// MaxEncodedSize is the boot logo's reserved slot inside IP.BIN.
	MaxEncodedSize = 0x2000
	maxRunLength   = 0x17F
)

// Errors returned by Decode and Encode.
var (
	ErrInvalidMagic       = errors.New("mrimage: invalid magic")
	ErrInvalidSize        = errors.New("mrimage: invalid size field")
	ErrPaletteIndexRange  = errors.New("mrimage: palette index out of range")
	ErrImageTooLarge      = errors.New("mrimage: encoded image exceeds maximum size")
)

// Image is a decoded MR image: a flat, row-major (as stored on disk, which
// is not necessarily top-down) array of 32-bit BGRA pixels.
type Image struct {
	Width  uint32
	Height uint32
	Pixels []uint32
}

// Decode parses an MR image from buf, which must begin with the MR header.
func Decode(buf []byte) (*Image, error) {
	if len(buf) <= headerSize {
		return nil, fmt.Errorf("mrimage: decode: %w", ErrInvalidSize)
	}
	if buf[0] != 'M' || buf[1] != 'R' {
		return nil, fmt.Errorf("mrimage: decode: %w", ErrInvalidMagic)
	}

	size := binary.LittleEndian.Uint32(buf[2:6])
	if size <= headerSize || int(size) > len(buf) {
		return nil, fmt.Errorf("mrimage: decode: %w", ErrInvalidSize)
	}
	dataOffset := binary.LittleEndian.Uint32(buf[10:14])
	width := binary.LittleEndian.Uint32(buf[14:18])
	height := binary.LittleEndian.Uint32(buf[18:22])
	colors := binary.LittleEndian.Uint32(buf[26:30])

	paletteEnd := headerSize + int(colors)*paletteEntrySize
	if paletteEnd > len(buf) || int(dataOffset) > len(buf) {
		return nil, fmt.Errorf("mrimage: decode: %w", ErrInvalidSize)
	}
	palette := make([]uint32, colors)
	for i := range palette {
		off := headerSize + i*paletteEntrySize
		palette[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}

	pixelDataSize := int(size) - (headerSize + int(colors)*paletteEntrySize)
	if pixelDataSize < 0 || int(dataOffset)+pixelDataSize > len(buf) {
		return nil, fmt.Errorf("mrimage: decode: %w", ErrInvalidSize)
	}
	data := buf[dataOffset : int(dataOffset)+pixelDataSize]

	var pixels []uint32
	ptr := 0
	for ptr < len(data) {
		id := data[ptr]
		ptr++

		length := 1
		var colorIndex int
		switch {
		case id == 0x82:
			if ptr >= len(data) {
				return nil, fmt.Errorf("mrimage: decode: truncated run")
			}
			if data[ptr]&0x80 == 0x80 {
				length = int(data[ptr]&0x7F) + 0x100
				ptr++
			} else {
				length = int(id & 0x7F)
			}
			if ptr >= len(data) {
				return nil, fmt.Errorf("mrimage: decode: truncated run")
			}
			colorIndex = int(data[ptr])
			ptr++
		case id == 0x81:
			if ptr >= len(data) {
				return nil, fmt.Errorf("mrimage: decode: truncated run")
			}
			length = int(data[ptr])
			ptr++
			if ptr >= len(data) {
				return nil, fmt.Errorf("mrimage: decode: truncated run")
			}
			colorIndex = int(data[ptr])
			ptr++
		case id&0x80 == 0x80:
			length = int(id & 0x7F)
			if ptr >= len(data) {
				return nil, fmt.Errorf("mrimage: decode: truncated run")
			}
			colorIndex = int(data[ptr])
			ptr++
		default:
			colorIndex = int(id)
		}

		if colorIndex < 0 || colorIndex >= len(palette) {
			return nil, fmt.Errorf("mrimage: decode: index %d: %w", colorIndex, ErrPaletteIndexRange)
		}
		for i := 0; i < length; i++ {
			pixels = append(pixels, palette[colorIndex])
		}
	}

	return &Image{Width: width, Height: height, Pixels: pixels}, nil
}

// Encode produces an MR image from img. The palette is built greedily in
// first-seen order and capped at MaxColors; colours beyond the cap collapse
// to palette index 0. Returns ErrImageTooLarge if the encoded form would not
// fit in the boot logo's reserved slot.
func Encode(img *Image) ([]byte, error) {
	palette := make([]uint32, 0, MaxColors)
	index := make(map[uint32]int, MaxColors)
	pixelData := make([]byte, 0, len(img.Pixels))

	n := len(img.Pixels)
	for pos := 0; pos < n; {
		run := 1
		for pos+run < n && img.Pixels[pos+run] == img.Pixels[pos] && run < maxRunLength {
			run++
		}

		colorIndex, ok := index[img.Pixels[pos]]
		if !ok {
			if len(palette) < MaxColors {
				colorIndex = len(palette)
				palette = append(palette, img.Pixels[pos])
				index[img.Pixels[pos]] = colorIndex
			} else {
				colorIndex = 0
			}
		}

		switch {
		case run > 0xFF:
			pixelData = append(pixelData, 0x82, byte(0x80|(run-0x100)), byte(colorIndex))
		case run > 0x7F:
			pixelData = append(pixelData, 0x81, byte(run), byte(colorIndex))
		case run > 1:
			pixelData = append(pixelData, byte(0x80|run), byte(colorIndex))
		default:
			pixelData = append(pixelData, byte(colorIndex))
		}

		pos += run
	}

	dataOffset := headerSize + len(palette)*paletteEntrySize
	totalSize := dataOffset + len(pixelData)
	if totalSize > MaxEncodedSize {
		return nil, fmt.Errorf("mrimage: encode: %d bytes: %w", totalSize, ErrImageTooLarge)
	}

	out := make([]byte, totalSize)
	out[0], out[1] = 'M', 'R'
	binary.LittleEndian.PutUint32(out[2:6], uint32(totalSize)) //nolint:gosec // bounded by MaxEncodedSize
	binary.LittleEndian.PutUint32(out[10:14], uint32(dataOffset)) //nolint:gosec // bounded by MaxEncodedSize
	binary.LittleEndian.PutUint32(out[14:18], img.Width)
	binary.LittleEndian.PutUint32(out[18:22], img.Height)
	binary.LittleEndian.PutUint32(out[26:30], uint32(len(palette))) //nolint:gosec // capped at MaxColors
	for i, c := range palette {
		off := headerSize + i*paletteEntrySize
		binary.LittleEndian.PutUint32(out[off:off+4], c)
	}
	copy(out[dataOffset:], pixelData)

	return out, nil
}

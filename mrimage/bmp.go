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

package mrimage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const bmpHeaderSize = 54 // 14-byte file header + 40-byte BITMAPINFOHEADER

// ErrNotBMP is returned by ReadBMP when the input lacks the 'BM' magic.
var ErrNotBMP = errors.New("mrimage: not a BMP file")

// WriteBMP writes img as an uncompressed 32-bpp BMP, matching the exact
// header layout the bootstrap's boot-logo tooling expects.
func WriteBMP(w io.Writer, img *Image) error {
	dataSize := img.Width * img.Height * 4
	header := make([]byte, bmpHeaderSize)

	header[0], header[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(header[2:6], bmpHeaderSize+dataSize)
	// reserved1, reserved2 left zero.
	binary.LittleEndian.PutUint32(header[10:14], bmpHeaderSize)

	binary.LittleEndian.PutUint32(header[14:18], 40) // BITMAPINFOHEADER size
	binary.LittleEndian.PutUint32(header[18:22], img.Width)
	binary.LittleEndian.PutUint32(header[22:26], img.Height)
	binary.LittleEndian.PutUint16(header[26:28], 1)  // color planes
	binary.LittleEndian.PutUint16(header[28:30], 32) // bits per pixel
	// compression method left zero.
	binary.LittleEndian.PutUint32(header[34:38], dataSize)
	binary.LittleEndian.PutUint32(header[38:42], 0x120B) // horizontal ppm
	binary.LittleEndian.PutUint32(header[42:46], 0x120B) // vertical ppm
	// colors in palette, important colors left zero.

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("mrimage: write BMP header: %w", err)
	}

	pixelBytes := make([]byte, len(img.Pixels)*4)
	for i, p := range img.Pixels {
		binary.LittleEndian.PutUint32(pixelBytes[i*4:i*4+4], p)
	}
	if _, err := w.Write(pixelBytes); err != nil {
		return fmt.Errorf("mrimage: write BMP pixel data: %w", err)
	}
	return nil
}

// ReadBMP parses a 32-bpp BMP image back into an Image, the inverse of
// WriteBMP. Width/height beyond MaxWidth/MaxHeight are accepted with the
// caller expected to surface a warning, not an error.
func ReadBMP(data []byte) (*Image, error) {
	if len(data) < bmpHeaderSize || data[0] != 'B' || data[1] != 'M' {
		return nil, fmt.Errorf("mrimage: read BMP: %w", ErrNotBMP)
	}
	dataOffset := binary.LittleEndian.Uint32(data[10:14])
	width := binary.LittleEndian.Uint32(data[18:22])
	height := binary.LittleEndian.Uint32(data[22:26])
	bpp := binary.LittleEndian.Uint16(data[28:30])
	if bpp != 32 {
		return nil, fmt.Errorf("mrimage: read BMP: expected 32bpp, got %d", bpp)
	}

	n := width * height
	if int(dataOffset)+int(n)*4 > len(data) {
		return nil, fmt.Errorf("mrimage: read BMP: truncated pixel data")
	}
	pixels := make([]uint32, n)
	for i := range pixels {
		off := int(dataOffset) + i*4
		pixels[i] = binary.LittleEndian.Uint32(data[off : off+4])
	}

	return &Image{Width: width, Height: height, Pixels: pixels}, nil
}

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

package extract

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	wavChannels      = 2
	wavSampleRate    = 44100
	wavBitsPerSample = 16
	wavBlockAlign    = wavChannels * wavBitsPerSample / 8
	wavByteRate      = wavSampleRate * wavBlockAlign
	wavHeaderSize    = 44
)

// writeWAVHeader writes the canonical 44-byte PCM WAV header ahead of
// dataSize bytes of raw CD audio: RIFF/WAVE container, one "fmt " chunk
// describing 16-bit stereo PCM at 44100 Hz, then the "data" chunk header.
func writeWAVHeader(w io.Writer, dataSize uint32) error {
	h := make([]byte, wavHeaderSize)

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36+dataSize)
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(h[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(h[22:24], wavChannels)
	binary.LittleEndian.PutUint32(h[24:28], wavSampleRate)
	binary.LittleEndian.PutUint32(h[28:32], wavByteRate)
	binary.LittleEndian.PutUint16(h[32:34], wavBlockAlign)
	binary.LittleEndian.PutUint16(h[34:36], wavBitsPerSample)

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataSize)

	if _, err := w.Write(h); err != nil {
		return fmt.Errorf("write WAV header: %w", err)
	}
	return nil
}

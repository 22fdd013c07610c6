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

import "testing"

// FuzzDecode fuzzes the MR run-length decoder, which runs directly over
// bytes pulled from the bootstrap's boot-logo region of an arbitrary,
// untrusted container file.
func FuzzDecode(f *testing.F) {
	img := &Image{Width: 2, Height: 2, Pixels: []uint32{1, 1, 2, 3}}
	encoded, err := Encode(img)
	if err != nil {
		f.Fatalf("Encode seed: %v", err)
	}
	f.Add(encoded)
	f.Add(make([]byte, 0))
	f.Add(make([]byte, headerSize))
	f.Add([]byte{'M', 'R'})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1<<20 {
			return
		}
		_, _ = Decode(data)
	})
}

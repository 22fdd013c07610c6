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
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"

	intbin "github.com/ZaparooProject/go-cdi/internal/binary"
)

// Fixed layout offsets and sizes within the 32 KiB IP.BIN bootstrap.
const (
	BootstrapSize = 0x8000

	offsetHardwareID  = 0
	offsetVendorID    = 16
	offsetDeviceInfo  = 32
	offsetRegionCode  = 48
	offsetPeripherals = 56
	offsetProductNum  = 64
	offsetVersion     = 74
	offsetReleaseDate = 80
	offsetBootFile    = 96
	offsetManufactID  = 112
	offsetAppTitle    = 128

	offsetRegionSymbols  = 0x3700
	regionSymbolCount    = 8
	regionSymbolSize     = 32
	regionSymbolDescSize = 28

	offsetBootstrap1 = 0x3800
	bootLogoOffset   = offsetBootstrap1 + 32
)

// RegionMask is a bitmask over the three Dreamcast sales regions.
type RegionMask uint32

// Region flags, ORed together to target more than one region at once.
const (
	RegionJapan  RegionMask = 1
	RegionUSA    RegionMask = 2
	RegionEurope RegionMask = 4
)

var regionSlots = []struct {
	flag RegionMask
	code byte
	desc string
}{
	{RegionJapan, 'J', "For JAPAN,TAIWAN,PHILIPINES."},
	{RegionUSA, 'U', "For USA and CANADA.         "},
	{RegionEurope, 'E', "For EUROPE.                 "},
}

var (
	hardwareIDBytes = []byte("SEGA SEGAKATANA ")
	vendorIDBytes   = []byte("SEGA ENTERPRISES")
)

// Bootstrap is a validated 32 KiB IP.BIN payload.
type Bootstrap struct {
	Session, Track int
	Data           [BootstrapSize]byte
}

// HardwareID returns the raw 16-byte hardware ID field.
func (b *Bootstrap) HardwareID() string {
	return string(b.Data[offsetHardwareID : offsetHardwareID+16])
}

// VendorID returns the raw 16-byte hardware vendor ID field.
func (b *Bootstrap) VendorID() string {
	return string(b.Data[offsetVendorID : offsetVendorID+16])
}

// Title decodes the 128-byte application title field. Dreamcast titles are
// conventionally Shift-JIS with an ASCII subset; decoding falls back to the
// raw printable bytes when the field is not valid Shift-JIS.
func (b *Bootstrap) Title() string {
	raw := b.Data[offsetAppTitle : offsetAppTitle+128]
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil || strings.ContainsRune(string(decoded), utf8.RuneError) {
		return intbin.ExtractPrintable(raw)
	}
	return intbin.CleanString(decoded)
}

// LocateBootstrap scans sessions and tracks in order for the first data
// track whose base LBA holds the hardware-ID signature, reads its full
// 32 KiB bootstrap, and validates it.
func LocateBootstrap(ctx context.Context, c *Container) (*Bootstrap, error) {
	for si, session := range c.Sessions {
		for ti, track := range session.Tracks {
			if track.Mode == ModeAudio {
				continue
			}

			first, err := c.stream.ReadSectors(ctx, si, ti, track.BaseLBA, 1)
			if err != nil {
				return nil, fmt.Errorf("locate bootstrap: read session %d track %d: %w", si, ti, err)
			}
			if len(first) < 16 || !intbin.BytesEqual(first[:16], hardwareIDBytes) {
				continue
			}

			rest, err := c.stream.ReadSectors(ctx, si, ti, track.BaseLBA+1, 15)
			if err != nil {
				return nil, fmt.Errorf("locate bootstrap: read remaining sectors: %w", err)
			}

			b := &Bootstrap{Session: si, Track: ti}
			copy(b.Data[:2048], first)
			copy(b.Data[2048:], rest)

			if err := b.validate(); err != nil {
				return nil, err
			}
			return b, nil
		}
	}
	return nil, ErrBootstrapNotFound
}

func (b *Bootstrap) validate() error {
	if !intbin.BytesEqual(b.Data[offsetHardwareID:offsetHardwareID+16], hardwareIDBytes) ||
		!intbin.BytesEqual(b.Data[offsetVendorID:offsetVendorID+16], vendorIDBytes) {
		return BootstrapSignatureMismatchError{HardwareID: b.HardwareID(), VendorID: b.VendorID()}
	}
	return nil
}

// PatchRegion rewrites the region-code field and region-symbol table for the
// given mask. Each flag is tested independently so combined masks (e.g.
// Japan|USA) patch every requested slot; an earlier revision of this logic
// tested "region&Japan == Japan" inside a combined condition, which silently
// dropped all but one slot for multi-region masks.
func (b *Bootstrap) PatchRegion(mask RegionMask) {
	for i := 0; i < 8; i++ {
		b.Data[offsetRegionCode+i] = ' '
	}
	for slot := 0; slot < regionSymbolCount; slot++ {
		descOff := offsetRegionSymbols + slot*regionSymbolSize + 4
		for i := 0; i < regionSymbolDescSize; i++ {
			b.Data[descOff+i] = ' '
		}
	}

	for i, slot := range regionSlots {
		if mask&slot.flag == 0 {
			continue
		}
		b.Data[offsetRegionCode+i] = slot.code
		descOff := offsetRegionSymbols + i*regionSymbolSize + 4
		copy(b.Data[descOff:descOff+regionSymbolDescSize], slot.desc)
	}
}

// PatchVGA marks the bootstrap as supporting the Dreamcast VGA box.
func (b *Bootstrap) PatchVGA() {
	b.Data[offsetPeripherals+5] = '1'
}

// PatchOS sets or clears the "uses Windows CE" peripherals bit.
func (b *Bootstrap) PatchOS(isWinCE bool) {
	if isWinCE {
		b.Data[offsetPeripherals+6] = '1'
	} else {
		b.Data[offsetPeripherals+6] = '0'
	}
}

// HasBootLogo reports whether bootstrap 1 carries an embedded MR boot logo.
func (b *Bootstrap) HasBootLogo() bool {
	return b.Data[bootLogoOffset] == 'M' && b.Data[bootLogoOffset+1] == 'R'
}

// BootLogo returns the raw MR-encoded boot logo bytes, ready for
// mrimage.Decode. The slice is bounded by the reserved boot-logo region.
func (b *Bootstrap) BootLogo() []byte {
	end := bootLogoOffset + 0x2000
	if end > BootstrapSize {
		end = BootstrapSize
	}
	return b.Data[bootLogoOffset:end]
}

// InjectBootLogo clears and overwrites the boot-logo region with an already
// MR-encoded image; encoded must fit within the reserved 0x2000-byte slot.
func (b *Bootstrap) InjectBootLogo(encoded []byte) error {
	if len(encoded) > 0x2000 {
		return fmt.Errorf("inject boot logo: %w", ErrMrImageTooLarge)
	}
	region := b.Data[bootLogoOffset : bootLogoOffset+0x2000]
	for i := range region {
		region[i] = 0
	}
	copy(region, encoded)
	return nil
}

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
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no extra data.
var (
	// ErrBootstrapNotFound means no track in the container carries the
	// Dreamcast hardware signature in its first sector.
	ErrBootstrapNotFound = errors.New("bootstrap not found in any track")

	// ErrPvdNotFound means the ISO-9660 volume descriptor scan reached a
	// set terminator without seeing a primary volume descriptor.
	ErrPvdNotFound = errors.New("primary volume descriptor not found")

	// ErrPaletteIndexOutOfRange means an MR run referenced a palette slot
	// beyond the decoded palette's size.
	ErrPaletteIndexOutOfRange = errors.New("palette index out of range")

	// ErrMrImageTooLarge means an encoded MR image would exceed the
	// bootstrap's reserved 0x2000-byte logo slot.
	ErrMrImageTooLarge = errors.New("MR image exceeds maximum encoded size")
)

// InvalidDescriptorTypeError means the 8-byte tail of the container named an
// unrecognised descriptor type tag.
type InvalidDescriptorTypeError struct {
	Type uint32
}

func (e InvalidDescriptorTypeError) Error() string {
	return fmt.Sprintf("invalid CDI descriptor type: %#x", e.Type)
}

// TruncatedDescriptorError means the descriptor claimed a size or offset that
// does not fit within the container's actual length.
type TruncatedDescriptorError struct {
	Want, Have int64
}

func (e TruncatedDescriptorError) Error() string {
	return fmt.Sprintf("truncated CDI descriptor: need %d bytes, have %d", e.Want, e.Have)
}

// UnsupportedTrackModeError means a track's mode field named something other
// than Audio, Mode1, or Mode2.
type UnsupportedTrackModeError struct {
	Mode uint32
}

func (e UnsupportedTrackModeError) Error() string {
	return fmt.Sprintf("unsupported track mode: %d", e.Mode)
}

// UnsupportedSectorSizeError means a track's sector-size class field did not
// map to one of the five allowed sector sizes.
type UnsupportedSectorSizeError struct {
	Class uint32
}

func (e UnsupportedSectorSizeError) Error() string {
	return fmt.Sprintf("unsupported sector size class: %d", e.Class)
}

// BootstrapSignatureMismatchError means a candidate 32 KiB region failed the
// hardware ID / vendor ID check.
type BootstrapSignatureMismatchError struct {
	HardwareID, VendorID string
}

func (e BootstrapSignatureMismatchError) Error() string {
	return fmt.Sprintf("bootstrap signature mismatch: hardware id %q, vendor id %q", e.HardwareID, e.VendorID)
}

// OutOfRangeError means a sector read ran past the end of its track's body.
type OutOfRangeError struct {
	Session, Track int
	LBA            uint32
	Count          uint32
	BodyEnd        uint32
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("sector read out of range: session %d track %d lba %d count %d exceeds body end %d",
		e.Session, e.Track, e.LBA, e.Count, e.BodyEnd)
}

// DirectoryReadFailedError wraps a fatal failure while expanding a directory
// extent; the partial tree built so far is discarded.
type DirectoryReadFailedError struct {
	ExtentLBA uint32
	Err       error
}

func (e DirectoryReadFailedError) Error() string {
	return fmt.Sprintf("directory read failed at extent lba %d: %v", e.ExtentLBA, e.Err)
}

func (e DirectoryReadFailedError) Unwrap() error {
	return e.Err
}

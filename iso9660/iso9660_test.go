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

package iso9660

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
)

// writeLSBMSB32 writes a both-endian 32-bit field at buf[off:off+8].
func writeLSBMSB32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
	binary.BigEndian.PutUint32(buf[off+4:], v)
}

func writeLSBMSB16(buf []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(buf[off:], v)
	binary.BigEndian.PutUint16(buf[off+2:], v)
}

// writeDirRecord writes one ISO9660_DirectoryEntry at buf[off:] and returns
// the entry length written.
func writeDirRecord(buf []byte, off int, extentLBA, extentSize uint32, flags byte, ident string) int {
	identLen := len(ident)
	entryLen := 33 + identLen
	if entryLen%2 == 1 {
		entryLen++ // pad to even, per the ISO9660 record layout
	}

	buf[off] = byte(entryLen)
	writeLSBMSB32(buf, off+2, extentLBA)
	writeLSBMSB32(buf, off+10, extentSize)
	buf[off+25] = flags
	writeLSBMSB16(buf, off+28, 1)
	buf[off+32] = byte(identLen)
	copy(buf[off+33:], ident)

	return entryLen
}

// buildImage builds a minimal 2048-byte-sector in-memory disc: a single
// volume-descriptor-set terminator following the PVD, a root directory at
// LBA 20 containing "." "..", one subdirectory "SUBDIR" at LBA 21 (which
// itself contains only "." and "..") and one file "FILE.TXT;1" at LBA 22.
func buildImage(t *testing.T) []byte {
	t.Helper()

	const rootLBA, subLBA, fileLBA = 20, 21, 22
	img := make([]byte, 32*sectorSize)

	root := img[rootLBA*sectorSize:]
	off := 0
	off += writeDirRecord(root, off, rootLBA, sectorSize, flagDirectory, "\x00")
	off += writeDirRecord(root, off, rootLBA, sectorSize, flagDirectory, "\x01")
	off += writeDirRecord(root, off, subLBA, sectorSize, flagDirectory, "SUBDIR")
	_ = writeDirRecord(root, off, fileLBA, 2048, 0, "FILE.TXT;1")

	sub := img[subLBA*sectorSize:]
	off = 0
	off += writeDirRecord(sub, off, subLBA, sectorSize, flagDirectory, "\x00")
	_ = writeDirRecord(sub, off, rootLBA, sectorSize, flagDirectory, "\x01")

	pvd := img[volumeDescriptorsSector*sectorSize:]
	pvd[0] = typePrimaryVolumeDescriptor
	copy(pvd[1:6], "CD001")
	copy(pvd[offsetSystemIdentifier:], "DREAMCAST SYSTEM")
	copy(pvd[offsetVolumeIdentifier:], "GDROM")
	writeDirRecord(pvd[offsetRootDirectoryEntry:], 0, rootLBA, sectorSize, flagDirectory, "\x00")

	term := img[(volumeDescriptorsSector+1)*sectorSize:]
	term[0] = typeVolumeDescriptorSetTerm

	return img
}

func TestWalkBuildsTree(t *testing.T) {
	t.Parallel()

	img := buildImage(t)
	fs, err := Walk(context.Background(), bytes.NewReader(img), 0)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if fs.VolumeID != "GDROM" {
		t.Errorf("VolumeID = %q, want GDROM", fs.VolumeID)
	}
	if len(fs.Root.Children) != 4 {
		t.Fatalf("root children = %d, want 4 (. .. SUBDIR FILE.TXT)", len(fs.Root.Children))
	}

	sub := fs.Root.Children[2]
	if sub.Name != "SUBDIR" || !sub.IsDir {
		t.Fatalf("child[2] = %+v, want directory SUBDIR", sub)
	}
	if len(sub.Children) != 2 {
		t.Fatalf("SUBDIR children = %d, want 2 (. ..)", len(sub.Children))
	}
	if sub.Children[0].Name != "." || sub.Children[1].Name != ".." {
		t.Errorf("SUBDIR children = %+v, want [. ..]", sub.Children)
	}

	file := fs.Root.Children[3]
	if file.Name != "FILE.TXT" {
		t.Errorf("version suffix not stripped: name = %q", file.Name)
	}
	if file.FullPath != "/FILE.TXT" {
		t.Errorf("FullPath = %q, want /FILE.TXT", file.FullPath)
	}
}

func TestWalkTerminatesOverDotDot(t *testing.T) {
	t.Parallel()

	// The recursion guard: SUBDIR's ".." points back at the root LBA, which
	// is already cached by the time SUBDIR is expanded, so the walk must
	// not re-expand the root a second time underneath SUBDIR.
	img := buildImage(t)
	fs, err := Walk(context.Background(), bytes.NewReader(img), 0)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	sub := fs.Root.Children[2]
	parentRef := sub.Children[1]
	if len(parentRef.Children) != 0 {
		t.Errorf("'..' entry should not be expanded, got %d children", len(parentRef.Children))
	}
}

func TestWalkPVDNotFound(t *testing.T) {
	t.Parallel()

	img := make([]byte, 32*sectorSize)
	img[volumeDescriptorsSector*sectorSize] = typeVolumeDescriptorSetTerm

	_, err := Walk(context.Background(), bytes.NewReader(img), 0)
	if err != ErrPVDNotFound {
		t.Fatalf("Walk: err = %v, want ErrPVDNotFound", err)
	}
}

func TestFindAndReadFile(t *testing.T) {
	t.Parallel()

	img := buildImage(t)
	payload := []byte("hello, dreamcast")
	copy(img[22*sectorSize:], payload) // FILE.TXT's extent LBA, independent of the directory sectors

	fs, err := Walk(context.Background(), bytes.NewReader(img), 0)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	entry, err := fs.Find("/FILE.TXT")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	data, err := fs.ReadFile(context.Background(), entry)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, payload) {
		t.Errorf("ReadFile = %q, want prefix %q", data[:len(payload)], payload)
	}
}

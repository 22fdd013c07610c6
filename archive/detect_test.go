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

package archive_test

import (
	"errors"
	"testing"

	"github.com/ZaparooProject/go-cdi/archive"
)

func TestIsCDIFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     bool
	}{
		{"game.cdi", true},
		{"GAME.CDI", true},
		{"folder/game.cdi", true},
		{"game.iso", false},
		{"game.bin", false},
		{"game.cue", false},
		{"readme.txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()

			got := archive.IsCDIFile(tt.filename)
			if got != tt.want {
				t.Errorf("IsCDIFile(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDetectCDIFile_FindsCDI(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	files := map[string][]byte{
		"readme.txt": []byte("readme"),
		"game.cdi":   make([]byte, 100),
		"notes.doc":  []byte("notes"),
	}
	zipPath := createTestZIP(t, tmpDir, "disc.zip", files)

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	cdiPath, err := archive.DetectCDIFile(arc, "")
	if err != nil {
		t.Fatalf("detect cdi file: %v", err)
	}

	if cdiPath != "game.cdi" {
		t.Errorf("got %q, want %q", cdiPath, "game.cdi")
	}
}

func TestDetectCDIFile_NoCDI(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	files := map[string][]byte{
		"readme.txt": []byte("readme"),
		"notes.doc":  []byte("notes"),
	}
	zipPath := createTestZIP(t, tmpDir, "empty.zip", files)

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	_, err = archive.DetectCDIFile(arc, "")
	if err == nil {
		t.Error("expected error for archive with no .cdi member")
	}

	var noCDIErr archive.NoCDIFoundError
	if !errors.As(err, &noCDIErr) {
		t.Errorf("expected NoCDIFoundError, got %T", err)
	}
}

func TestDetectCDIFile_Ambiguous(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	files := map[string][]byte{
		"disc1.cdi": make([]byte, 100),
		"disc2.cdi": make([]byte, 200),
	}
	zipPath := createTestZIP(t, tmpDir, "multi.zip", files)

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	_, err = archive.DetectCDIFile(arc, "")
	if err == nil {
		t.Error("expected error for archive with multiple .cdi members")
	}

	var ambiguousErr archive.AmbiguousCDIError
	if !errors.As(err, &ambiguousErr) {
		t.Errorf("expected AmbiguousCDIError, got %T", err)
	}
}

func TestDetectCDIFile_NarrowedByName(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	files := map[string][]byte{
		"disc1.cdi": make([]byte, 100),
		"disc2.cdi": make([]byte, 200),
	}
	zipPath := createTestZIP(t, tmpDir, "multi2.zip", files)

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	cdiPath, err := archive.DetectCDIFile(arc, "disc2.cdi")
	if err != nil {
		t.Fatalf("detect cdi file: %v", err)
	}
	if cdiPath != "disc2.cdi" {
		t.Errorf("got %q, want %q", cdiPath, "disc2.cdi")
	}
}

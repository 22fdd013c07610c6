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

package archive

import (
	"fmt"
	"path/filepath"
	"strings"
)

// cdiExtension is the only member extension DetectCDIFile looks for. Unlike
// the cartridge-ROM case this tool's ancestor handled, a disc image's
// container format is unambiguous: DiscJuggler images always carry .cdi.
const cdiExtension = ".cdi"

// IsCDIFile reports whether filename has a .cdi extension.
func IsCDIFile(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == cdiExtension
}

// DetectCDIFile scans arc's file list for a .cdi member. name, when
// non-empty, narrows the search to members whose path ends in name (case
// insensitive), letting a caller disambiguate an archive holding more than
// one image. With no match, DetectCDIFile returns NoCDIFoundError; with more
// than one match and no narrowing name, it returns AmbiguousCDIError.
func DetectCDIFile(arc Archive, name string) (string, error) {
	files, err := arc.List()
	if err != nil {
		return "", fmt.Errorf("list archive files: %w", err)
	}

	var candidates []string
	for _, file := range files {
		if !IsCDIFile(file.Name) {
			continue
		}
		if name != "" && !strings.HasSuffix(strings.ToLower(file.Name), strings.ToLower(name)) {
			continue
		}
		candidates = append(candidates, file.Name)
	}

	switch len(candidates) {
	case 0:
		return "", NoCDIFoundError{Archive: "archive"}
	case 1:
		return candidates[0], nil
	default:
		return "", AmbiguousCDIError{Archive: "archive", Candidates: candidates}
	}
}

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
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the number of directory extents the walk keeps in
// memory at once. Dreamcast filesystems rarely nest more than a few hundred
// directories; this is generous headroom without holding the whole disc.
const defaultCacheSize = 256

// sectorCache caches directory-extent bytes keyed by extent LBA, so that a
// directory reached twice (for example through a ".." entry) is read from
// disc at most once.
type sectorCache struct {
	entries *lru.Cache[uint32, []byte]
}

func newSectorCache(size int) (*sectorCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[uint32, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("new sector cache: %w", err)
	}
	return &sectorCache{entries: c}, nil
}

func (c *sectorCache) has(lba uint32) bool {
	return c.entries.Contains(lba)
}

// fetch returns the cached extent for lba, reading it from src and caching
// it first if this is the first time the extent has been requested.
func (c *sectorCache) fetch(lba, size uint32, src io.ReaderAt) ([]byte, error) {
	if data, ok := c.entries.Get(lba); ok {
		return data, nil
	}

	data := make([]byte, size)
	if _, err := src.ReadAt(data, int64(lba)*sectorSize); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read extent at LBA %d: %w", lba, err)
	}
	c.entries.Add(lba, data)
	return data, nil
}

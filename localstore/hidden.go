// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package localstore

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultHiddenPath is where hidden weapon ids are kept.
const DefaultHiddenPath = "deleted_weapons.json"

// Hidden is the set of weapon ids the player deleted locally because the
// contract has no burn. Stored as a JSON array of ids.
type Hidden struct {
	path string

	mu  sync.RWMutex
	ids map[uint64]struct{}
	log log.Logger
}

// OpenHidden loads the hide-list at path. An unreadable file yields an empty
// list.
func OpenHidden(path string) *Hidden {
	if path == "" {
		path = DefaultHiddenPath
	}
	h := &Hidden{path: path, ids: make(map[uint64]struct{}), log: log.New("module", "localstore", "store", "hidden")}

	var ids []uint64
	if _, err := readJSON(path, &ids); err != nil {
		h.log.Warn("Cannot load hidden weapons, starting empty", "path", path, "err", err)
	}
	for _, id := range ids {
		h.ids[id] = struct{}{}
	}
	return h
}

// Contains reports whether id is hidden.
func (h *Hidden) Contains(id uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.ids[id]
	return ok
}

// Add hides id and persists the list.
func (h *Hidden) Add(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ids[id]; ok {
		return
	}
	h.ids[id] = struct{}{}
	h.saveLocked()
}

// Remove unhides id.
func (h *Hidden) Remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ids[id]; !ok {
		return
	}
	delete(h.ids, id)
	h.saveLocked()
}

// IDs returns the hidden ids in ascending order.
func (h *Hidden) IDs() []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sortedLocked()
}

func (h *Hidden) sortedLocked() []uint64 {
	ids := make([]uint64, 0, len(h.ids))
	for id := range h.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h *Hidden) saveLocked() {
	if err := writeJSON(h.path, h.sortedLocked()); err != nil {
		h.log.Warn("Saving hidden weapons failed, write skipped", "path", h.path, "err", err)
	}
}

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

package weapon

import (
	"math/rand"
	"sync"
	"time"
)

// Kind is the weapon family, chosen uniformly on mint.
type Kind uint8

const (
	Knife Kind = iota
	Sword
	Axe
	Sickle
)

var (
	rarityPrefixes = map[Rarity][]string{
		Common:    {"Basic", "Simple", "Plain", "Starter"},
		Rare:      {"Rare", "Fine", "Sharp", "Quality"},
		Epic:      {"Epic", "Heirloom", "Arcane", "Runic"},
		Legendary: {"Legendary", "Mythic", "Immortal", "Supreme"},
	}
	kindNames = map[Kind][]string{
		Knife:  {"Cutter", "Grass Knife", "Machete", "Knife"},
		Sword:  {"Weed Sword", "Longsword", "Twinblade", "Blade"},
		Axe:    {"Weed Axe", "Battle Axe", "Great Axe", "Hatchet"},
		Sickle: {"Weed Sickle", "Sickle", "Reaper", "Scythe"},
	}

	// Inclusive damage multiplier bounds per rarity, in percent.
	multiplierRanges = map[Rarity][2]int{
		Common:    {100, 110},
		Rare:      {120, 140},
		Epic:      {150, 180},
		Legendary: {190, 230},
	}
)

// Roll is the outcome of a mint roll.
type Roll struct {
	Name       string
	Kind       Kind
	Rarity     Rarity
	Multiplier uint64
}

// Roller produces mint rolls. It is safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a roller seeded with seed; zero seeds from the clock.
func NewRoller(seed int64) *Roller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// Rarity draws a rarity: common 55%, rare 30%, epic 12%, legendary 3%.
func (r *Roller) Rarity() Rarity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rarityFor(r.rng.Float64())
}

func rarityFor(x float64) Rarity {
	switch {
	case x < 0.55:
		return Common
	case x < 0.85:
		return Rare
	case x < 0.97:
		return Epic
	default:
		return Legendary
	}
}

// Multiplier draws a damage multiplier within the band of rarity.
func (r *Roller) Multiplier(rarity Rarity) uint64 {
	band, ok := multiplierRanges[rarity]
	if !ok {
		band = multiplierRanges[Common]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(band[0] + r.rng.Intn(band[1]-band[0]+1))
}

// Roll draws a full mint: rarity, kind, name and multiplier.
func (r *Roller) Roll() Roll {
	rarity := r.Rarity()

	r.mu.Lock()
	kind := Kind(r.rng.Intn(len(kindNames)))
	prefixes, names := rarityPrefixes[rarity], kindNames[kind]
	name := prefixes[r.rng.Intn(len(prefixes))] + " " + names[r.rng.Intn(len(names))]
	r.mu.Unlock()

	return Roll{Name: name, Kind: kind, Rarity: rarity, Multiplier: r.Multiplier(rarity)}
}

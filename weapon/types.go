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

// Package weapon defines the client-side weapon model: rarity and condition
// grades, the deterministic wear derivation, listing prices and the random
// rolls used when minting. It has no ledger dependency.
package weapon

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
)

// Rarity mirrors the on-chain WeedCutterNFT.Rarity enum.
type Rarity uint8

const (
	Common Rarity = iota
	Rare
	Epic
	Legendary
)

// String returns a human-readable rarity name.
func (r Rarity) String() string {
	switch r {
	case Common:
		return "common"
	case Rare:
		return "rare"
	case Epic:
		return "epic"
	case Legendary:
		return "legendary"
	default:
		return fmt.Sprintf("rarity(%d)", uint8(r))
	}
}

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool { return r <= Legendary }

// Condition is the six-level wear grade, S best.
type Condition uint8

const (
	ConditionS Condition = iota
	ConditionA
	ConditionB
	ConditionC
	ConditionD
	ConditionE
)

func (c Condition) String() string {
	if c > ConditionE {
		return "?"
	}
	return string("SABCDE"[c])
}

// Weapon is a weapon record as the game sees it.
type Weapon struct {
	ID               uint64         `json:"id"`
	Name             string         `json:"name"`
	Rarity           Rarity         `json:"rarity"`
	DamageMultiplier uint64         `json:"damage_multiplier"` // percent, 100 == 1.0x
	Owner            common.Address `json:"owner"`
	Price            *big.Int       `json:"price"` // wei
	ForSale          bool           `json:"for_sale"`
	Wear             float64        `json:"wear"`
	Condition        Condition      `json:"condition"`
}

// Damage returns the damage multiplier as a factor.
func (w *Weapon) Damage() float64 {
	return float64(w.DamageMultiplier) / 100
}

// FromInfo converts a ledger record, filling in wear and condition. A raw
// wear field supplied by the ledger takes precedence over the derived value.
func FromInfo(info *weedcutter.WeaponInfo) *Weapon {
	w := &Weapon{
		ID:               info.ID,
		Name:             info.Name,
		Rarity:           Rarity(info.Rarity),
		DamageMultiplier: info.DamageMultiplier,
		Owner:            info.Owner,
		Price:            new(big.Int),
		ForSale:          info.ForSale,
	}
	if info.Price != nil {
		w.Price.Set(info.Price)
	}
	w.Wear, w.Condition = FromRaw(info.ID, info.Owner, info.RawWear)
	return w
}

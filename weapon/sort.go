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

import "sort"

// SortOwned orders an inventory: unlisted before listed, then rarest first,
// then by id.
func SortOwned(ws []*Weapon) {
	sort.Slice(ws, func(i, j int) bool {
		a, b := ws[i], ws[j]
		if a.ForSale != b.ForSale {
			return !a.ForSale
		}
		if a.Rarity != b.Rarity {
			return a.Rarity > b.Rarity
		}
		return a.ID < b.ID
	})
}

// SortMarket orders market listings: cheapest first, then rarest first.
// Ties keep their ledger order.
func SortMarket(ws []*Weapon) {
	sort.SliceStable(ws, func(i, j int) bool {
		a, b := ws[i], ws[j]
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
		return a.Rarity > b.Rarity
	})
}

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
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/params"
)

// Pricing constants.
var (
	// BaseListPrice is 0.01 ETH expressed in wei.
	BaseListPrice = new(big.Int).Div(big.NewInt(params.Ether), big.NewInt(100))

	// MintCoinCost is the coin balance required before a random mint.
	MintCoinCost uint64 = 20
)

// ErrNegativePrice is returned for listing prices below zero.
var ErrNegativePrice = errors.New("weapon: price cannot be negative")

// ListPrice returns the suggested listing price for a rarity:
// 0.01 ETH * (1 + rarity * 0.5).
func ListPrice(r Rarity) *big.Int {
	// base * (2 + rarity) / 2
	p := new(big.Int).Mul(BaseListPrice, big.NewInt(int64(2+r)))
	return p.Div(p, big.NewInt(2))
}

// Range is a price band suggested for a listing.
type Range struct {
	Min         *big.Int
	Max         *big.Int
	Recommended *big.Int
}

// PriceRange derives a price band for a weapon of rarity r from the listed
// prices of same-rarity weapons on the market. Without peers the band is
// (base/2, base*2, base) around ListPrice.
func PriceRange(r Rarity, market []*Weapon) Range {
	base := ListPrice(r)

	var prices []*big.Int
	for _, w := range market {
		if w.Rarity == r && w.ForSale && w.Price != nil && w.Price.Sign() > 0 {
			prices = append(prices, w.Price)
		}
	}
	if len(prices) == 0 {
		return Range{
			Min:         new(big.Int).Div(base, big.NewInt(2)),
			Max:         new(big.Int).Mul(base, big.NewInt(2)),
			Recommended: base,
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Cmp(prices[j]) < 0 })

	median := new(big.Int).Set(prices[len(prices)/2])
	if len(prices)%2 == 0 {
		median.Add(median, prices[len(prices)/2-1])
		median.Div(median, big.NewInt(2))
	}
	rec := new(big.Int).Add(median, base)
	rec.Div(rec, big.NewInt(2))
	return Range{
		Min:         new(big.Int).Set(prices[0]),
		Max:         new(big.Int).Set(prices[len(prices)-1]),
		Recommended: rec,
	}
}

// ValidatePrice checks a user-supplied listing price.
func ValidatePrice(p *big.Int) error {
	if p == nil || p.Sign() < 0 {
		return ErrNegativePrice
	}
	return nil
}

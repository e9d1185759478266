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
	"crypto/sha256"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const wearScale = 10_000_000_000 // 1e10

var (
	wearModulus = big.NewInt(wearScale)

	// Upper bounds (exclusive) of grades S..D; anything above is E. The
	// bands hold 5/10/15/20/25/25% of uniformly distributed wear.
	conditionBounds = [...]float64{0.05, 0.15, 0.30, 0.50, 0.75}
)

// DeriveWear returns the wear of weapon id while owned by owner: the
// SHA-256 of "{id}-{owner}" (owner in EIP-55 form) read as a big-endian
// integer, modulo 1e10, divided by 1e10. The result is in [0, 1) and is the
// same for the same pair on every call.
func DeriveWear(id uint64, owner common.Address) float64 {
	sum := sha256.Sum256([]byte(strconv.FormatUint(id, 10) + "-" + owner.Hex()))
	return scaledWear(new(big.Int).SetBytes(sum[:]))
}

// DeriveCondition maps wear to its grade. Bounds are inclusive below.
func DeriveCondition(wear float64) Condition {
	for i, bound := range conditionBounds {
		if wear < bound {
			return Condition(i)
		}
	}
	return ConditionE
}

// FromRaw resolves wear and condition given the optional raw wear field of a
// ledger record. Raw values 0..5 are an explicit condition grade (wear is
// still derived); larger values are wear scaled by 1e10. Without a raw
// field both are derived.
func FromRaw(id uint64, owner common.Address, raw *big.Int) (float64, Condition) {
	if raw == nil || raw.Sign() < 0 {
		wear := DeriveWear(id, owner)
		return wear, DeriveCondition(wear)
	}
	if raw.IsUint64() && raw.Uint64() <= uint64(ConditionE) {
		return DeriveWear(id, owner), Condition(raw.Uint64())
	}
	wear := scaledWear(raw)
	return wear, DeriveCondition(wear)
}

func scaledWear(n *big.Int) float64 {
	m := new(big.Int).Mod(n, wearModulus)
	return float64(m.Uint64()) / wearScale
}

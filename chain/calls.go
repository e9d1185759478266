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

package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Fallback gas limits per contract method, used when estimation fails.
var FallbackGas = map[string]uint64{
	"recordWeedCut":         180_000,
	"mintWeapon":            350_000,
	"listWeaponForSale":     250_000,
	"purchaseWeapon":        600_000,
	"openCaseWithETH":       400_000,
	"openCaseWithCoins":     400_000,
	"openCaseFromInventory": 400_000,
	"purchaseCase":          200_000,
	"setPlayerName":         100_000,
	"burn":                  200_000,
	"createTradeOffer":      300_000,
	"acceptTradeOffer":      350_000,
	"cancelTradeOffer":      200_000,
}

func (e *Executor) submit(ctx context.Context, method string, value *big.Int, args ...interface{}) Result {
	return e.Submit(ctx, Call{Method: method, Args: args, Value: value, FallbackGas: FallbackGas[method]})
}

func u256(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// RecordWeedCut records points scored by the active account.
func (e *Executor) RecordWeedCut(ctx context.Context, points uint64) Result {
	return e.submit(ctx, "recordWeedCut", nil, u256(points))
}

// MintWeapon mints a weapon to the given player. Only the contract owner may
// mint, so the transaction is sent from the owner account.
func (e *Executor) MintWeapon(ctx context.Context, to common.Address, name string, rarity uint8, multiplier uint64) Result {
	return e.Submit(ctx, Call{
		Method:      "mintWeapon",
		Args:        []interface{}{to, name, rarity, u256(multiplier)},
		FallbackGas: FallbackGas["mintWeapon"],
		OwnerOnly:   true,
	})
}

// ListWeaponForSale lists an owned weapon at price wei.
func (e *Executor) ListWeaponForSale(ctx context.Context, weaponID uint64, price *big.Int) Result {
	return e.submit(ctx, "listWeaponForSale", nil, u256(weaponID), price)
}

// PurchaseWeapon buys a listed weapon, paying price wei.
func (e *Executor) PurchaseWeapon(ctx context.Context, weaponID uint64, price *big.Int) Result {
	return e.submit(ctx, "purchaseWeapon", price, u256(weaponID))
}

// OpenCaseWithETH opens a case paying price wei.
func (e *Executor) OpenCaseWithETH(ctx context.Context, caseID uint64, price *big.Int) Result {
	return e.submit(ctx, "openCaseWithETH", price, u256(caseID))
}

// OpenCaseWithCoins opens a case paying in game coins.
func (e *Executor) OpenCaseWithCoins(ctx context.Context, caseID uint64) Result {
	return e.submit(ctx, "openCaseWithCoins", nil, u256(caseID))
}

// PurchaseCase buys amount unopened cases with coins.
func (e *Executor) PurchaseCase(ctx context.Context, caseID, amount uint64) Result {
	return e.submit(ctx, "purchaseCase", nil, u256(caseID), u256(amount))
}

// OpenCaseFromInventory opens one previously purchased case.
func (e *Executor) OpenCaseFromInventory(ctx context.Context, caseID uint64) Result {
	return e.submit(ctx, "openCaseFromInventory", nil, u256(caseID))
}

// SetPlayerName registers the leaderboard name of the active account.
func (e *Executor) SetPlayerName(ctx context.Context, name string) Result {
	return e.submit(ctx, "setPlayerName", nil, name)
}

// Burn destroys a weapon. Only deployments that declare burn support it.
func (e *Executor) Burn(ctx context.Context, weaponID uint64) Result {
	return e.submit(ctx, "burn", nil, u256(weaponID))
}

// CreateTradeOffer offers a weapon to buyer, or to anyone when buyer is the
// zero address.
func (e *Executor) CreateTradeOffer(ctx context.Context, weaponID uint64, buyer common.Address, price *big.Int) Result {
	return e.submit(ctx, "createTradeOffer", nil, u256(weaponID), buyer, price)
}

// AcceptTradeOffer accepts an offer, paying value wei.
func (e *Executor) AcceptTradeOffer(ctx context.Context, offerID uint64, value *big.Int) Result {
	return e.submit(ctx, "acceptTradeOffer", value, u256(offerID))
}

// CancelTradeOffer withdraws an offer the active account created.
func (e *Executor) CancelTradeOffer(ctx context.Context, offerID uint64) Result {
	return e.submit(ctx, "cancelTradeOffer", nil, u256(offerID))
}

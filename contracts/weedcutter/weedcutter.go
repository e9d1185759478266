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

// Package weedcutter provides high-level Go bindings for the WeedCutterNFT
// contract: weapon NFTs earned by cutting grass, a coin balance per player,
// weapon cases, a fixed-price market and peer-to-peer trade offers.
//
// Reads go through a bind.BoundContract. Writes are only packed here; they
// are submitted by the chain executor, which owns gas, nonce and receipt
// handling.
package weedcutter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Inaglyite/block-chain-game/contracts/weedcutter/contract"
)

// Method names with dedicated handling elsewhere in the client.
const (
	MethodWeaponsForSale = "getWeaponsForSale"
	MethodBurn           = "burn"
)

// ErrUnexpectedOutput is returned when a call result does not have the shape
// the binding expects, usually because the deployed ABI differs.
var ErrUnexpectedOutput = errors.New("weedcutter: unexpected call output")

// WeedCutter is a high-level wrapper around a deployed WeedCutterNFT contract.
type WeedCutter struct {
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract
}

// DefaultABI parses the embedded reference ABI.
func DefaultABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(contract.WeedCutterABI))
}

// NewWeedCutter binds parsed to the contract at addr. Only the read side of
// the backend is needed.
func NewWeedCutter(parsed abi.ABI, addr common.Address, caller bind.ContractCaller) *WeedCutter {
	return &WeedCutter{
		abi:      parsed,
		address:  addr,
		contract: bind.NewBoundContract(addr, parsed, caller, nil, nil),
	}
}

// Address returns the contract address.
func (w *WeedCutter) Address() common.Address { return w.address }

// ABI returns the ABI the contract was bound with.
func (w *WeedCutter) ABI() abi.ABI { return w.abi }

// Supports reports whether the bound ABI declares method. It is the
// capability check used to pick between batched and per-id reads.
func (w *WeedCutter) Supports(method string) bool {
	_, ok := w.abi.Methods[method]
	return ok
}

// Pack encodes a call to method for submission.
func (w *WeedCutter) Pack(method string, args ...interface{}) ([]byte, error) {
	return w.abi.Pack(method, args...)
}

func (w *WeedCutter) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := w.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("weedcutter: %s: %w", method, err)
	}
	return out, nil
}

// ──────────────────────────────────────────────
//  Record types
// ──────────────────────────────────────────────

// WeaponInfo is a weapon record as returned by getWeaponDetails.
type WeaponInfo struct {
	ID               uint64
	Name             string
	Rarity           uint8
	DamageMultiplier uint64 // percent, 100 == 1.0x
	Owner            common.Address
	Price            *big.Int // wei
	ForSale          bool

	// RawWear is the optional 8th field some contract versions return.
	// Nil when the deployed ABI does not carry it.
	RawWear *big.Int
}

// PlayerStats is the score/coin pair kept per player.
type PlayerStats struct {
	Score uint64
	Coins uint64
}

// LeaderEntry is one row of the on-chain leaderboard.
type LeaderEntry struct {
	Rank    uint64
	Address common.Address
	Name    string
	Score   uint64
}

// CaseInfo describes a weapon case type.
type CaseInfo struct {
	ID        uint64
	Name      string
	Price     *big.Int // wei
	CoinPrice uint64
}

// OfferInfo is an on-chain trade offer.
type OfferInfo struct {
	OfferID   uint64
	WeaponID  uint64
	Seller    common.Address
	Buyer     common.Address // zero address: anyone may accept
	Price     *big.Int
	Active    bool
	CreatedAt uint64
}

// ──────────────────────────────────────────────
//  Read methods
// ──────────────────────────────────────────────

// Owner returns the contract owner, the only account allowed to mint.
func (w *WeedCutter) Owner(ctx context.Context) (common.Address, error) {
	out, err := w.call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := first(out).(common.Address)
	if !ok {
		return common.Address{}, ErrUnexpectedOutput
	}
	return addr, nil
}

// UserWeapons returns the ids of the weapons owned by user.
func (w *WeedCutter) UserWeapons(ctx context.Context, user common.Address) ([]uint64, error) {
	out, err := w.call(ctx, "getUserWeapons", user)
	if err != nil {
		return nil, err
	}
	ids, ok := first(out).([]*big.Int)
	if !ok {
		return nil, ErrUnexpectedOutput
	}
	return uint64s(ids), nil
}

// WeaponDetails reads a single weapon record.
func (w *WeedCutter) WeaponDetails(ctx context.Context, id uint64) (*WeaponInfo, error) {
	out, err := w.call(ctx, "getWeaponDetails", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	return weaponFromValues(out)
}

// WeaponsForSale reads every listed weapon in one call. Older deployments do
// not have this method; check Supports(MethodWeaponsForSale) first.
func (w *WeedCutter) WeaponsForSale(ctx context.Context) ([]*WeaponInfo, error) {
	out, err := w.call(ctx, MethodWeaponsForSale)
	if err != nil {
		return nil, err
	}
	rows, err := tupleRows(first(out))
	if err != nil {
		return nil, err
	}
	weapons := make([]*WeaponInfo, 0, len(rows))
	for _, row := range rows {
		info, err := weaponFromValues(row)
		if err != nil {
			return nil, err
		}
		weapons = append(weapons, info)
	}
	return weapons, nil
}

// NextWeaponID returns the id the next minted weapon will get. Ids start at 1.
func (w *WeedCutter) NextWeaponID(ctx context.Context) (uint64, error) {
	return w.callUint(ctx, "getNextWeaponId")
}

// PlayerStats returns the recorded score and coin balance of player.
func (w *WeedCutter) PlayerStats(ctx context.Context, player common.Address) (PlayerStats, error) {
	out, err := w.call(ctx, "getPlayerStats", player)
	if err != nil {
		return PlayerStats{}, err
	}
	if len(out) < 2 {
		return PlayerStats{}, ErrUnexpectedOutput
	}
	return PlayerStats{Score: toUint64(out[0]), Coins: toUint64(out[1])}, nil
}

// PlayerName returns the display name player registered, if any.
func (w *WeedCutter) PlayerName(ctx context.Context, player common.Address) (string, error) {
	out, err := w.call(ctx, "playerNames", player)
	if err != nil {
		return "", err
	}
	name, _ := first(out).(string)
	return name, nil
}

// Leaderboard returns the top count players. Players without a registered
// name get a placeholder derived from their address.
func (w *WeedCutter) Leaderboard(ctx context.Context, count uint64) ([]LeaderEntry, error) {
	out, err := w.call(ctx, "getLeaderboard", new(big.Int).SetUint64(count))
	if err != nil {
		return nil, err
	}
	if len(out) < 4 {
		return nil, ErrUnexpectedOutput
	}
	addrs, ok1 := out[0].([]common.Address)
	names, ok2 := out[1].([]string)
	scores, ok3 := out[2].([]*big.Int)
	ranks, ok4 := out[3].([]*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, ErrUnexpectedOutput
	}
	entries := make([]LeaderEntry, 0, len(addrs))
	for i, addr := range addrs {
		entry := LeaderEntry{Address: addr, Name: fmt.Sprintf("Player%s", addr.Hex()[:6])}
		if i < len(names) && names[i] != "" {
			entry.Name = names[i]
		}
		if i < len(scores) {
			entry.Score = scores[i].Uint64()
		}
		if i < len(ranks) {
			entry.Rank = ranks[i].Uint64()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// PlayerRank returns player's 1-based rank and the number of ranked players.
func (w *WeedCutter) PlayerRank(ctx context.Context, player common.Address) (rank, total uint64, err error) {
	out, err := w.call(ctx, "getPlayerRank", player)
	if err != nil {
		return 0, 0, err
	}
	if len(out) < 2 {
		return 0, 0, ErrUnexpectedOutput
	}
	return toUint64(out[0]), toUint64(out[1]), nil
}

// NextCaseID returns one past the highest case type id. Ids start at 1.
func (w *WeedCutter) NextCaseID(ctx context.Context) (uint64, error) {
	return w.callUint(ctx, "getNextCaseId")
}

// CaseDetails reads a case type.
func (w *WeedCutter) CaseDetails(ctx context.Context, id uint64) (*CaseInfo, error) {
	out, err := w.call(ctx, "getCaseDetails", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	if len(out) < 3 {
		return nil, ErrUnexpectedOutput
	}
	name, _ := out[0].(string)
	return &CaseInfo{ID: id, Name: name, Price: toBig(out[1]), CoinPrice: toUint64(out[2])}, nil
}

// CaseInventory returns case id → unopened amount for user.
func (w *WeedCutter) CaseInventory(ctx context.Context, user common.Address) (map[uint64]uint64, error) {
	out, err := w.call(ctx, "getAllUserCaseInventory", user)
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, ErrUnexpectedOutput
	}
	ids, ok1 := out[0].([]*big.Int)
	amounts, ok2 := out[1].([]*big.Int)
	if !ok1 || !ok2 || len(ids) != len(amounts) {
		return nil, ErrUnexpectedOutput
	}
	inv := make(map[uint64]uint64, len(ids))
	for i, id := range ids {
		inv[id.Uint64()] = amounts[i].Uint64()
	}
	return inv, nil
}

// TradeOffer reads a single on-chain trade offer.
func (w *WeedCutter) TradeOffer(ctx context.Context, id uint64) (*OfferInfo, error) {
	out, err := w.call(ctx, "getTradeOffer", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	return offerFromValues(out)
}

// UserActiveOffers returns the active offers created by user.
func (w *WeedCutter) UserActiveOffers(ctx context.Context, user common.Address) ([]*OfferInfo, error) {
	return w.offers(ctx, "getUserActiveOffers", user)
}

// UserReceivedActiveOffers returns the active offers addressed to user.
func (w *WeedCutter) UserReceivedActiveOffers(ctx context.Context, user common.Address) ([]*OfferInfo, error) {
	return w.offers(ctx, "getUserReceivedActiveOffers", user)
}

func (w *WeedCutter) offers(ctx context.Context, method string, user common.Address) ([]*OfferInfo, error) {
	out, err := w.call(ctx, method, user)
	if err != nil {
		return nil, err
	}
	rows, err := tupleRows(first(out))
	if err != nil {
		return nil, err
	}
	offers := make([]*OfferInfo, 0, len(rows))
	for _, row := range rows {
		offer, err := offerFromValues(row)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

func (w *WeedCutter) callUint(ctx context.Context, method string) (uint64, error) {
	out, err := w.call(ctx, method)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, ErrUnexpectedOutput
	}
	return toUint64(out[0]), nil
}

// ──────────────────────────────────────────────
//  Events
// ──────────────────────────────────────────────

// ParseCaseOpened returns the id of the weapon a case-opening transaction
// produced.
func (w *WeedCutter) ParseCaseOpened(receipt *types.Receipt) (uint64, bool) {
	return w.eventUint(receipt, "CaseOpened", "weaponId")
}

// ParseTradeOfferCreated returns the id of the offer a createTradeOffer
// transaction produced.
func (w *WeedCutter) ParseTradeOfferCreated(receipt *types.Receipt) (uint64, bool) {
	return w.eventUint(receipt, "TradeOfferCreated", "offerId")
}

// ParseWeaponMinted returns the id of a freshly minted weapon.
func (w *WeedCutter) ParseWeaponMinted(receipt *types.Receipt) (uint64, bool) {
	return w.eventUint(receipt, "WeaponMinted", "weaponId")
}

func (w *WeedCutter) eventUint(receipt *types.Receipt, event, field string) (uint64, bool) {
	ev, ok := w.abi.Events[event]
	if !ok || receipt == nil {
		return 0, false
	}
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != w.address || len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}
		fields := make(map[string]interface{})
		if err := w.contract.UnpackLogIntoMap(fields, event, *lg); err != nil {
			continue
		}
		if v, ok := fields[field]; ok {
			return toUint64(v), true
		}
	}
	return 0, false
}

// ──────────────────────────────────────────────
//  Decoding helpers
// ──────────────────────────────────────────────

func weaponFromValues(v []interface{}) (*WeaponInfo, error) {
	if len(v) < 7 {
		return nil, fmt.Errorf("%w: weapon record has %d fields", ErrUnexpectedOutput, len(v))
	}
	name, ok1 := v[1].(string)
	rarity, ok2 := v[2].(uint8)
	owner, ok3 := v[4].(common.Address)
	forSale, ok4 := v[6].(bool)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("%w: weapon record field types", ErrUnexpectedOutput)
	}
	info := &WeaponInfo{
		ID:               toUint64(v[0]),
		Name:             name,
		Rarity:           rarity,
		DamageMultiplier: toUint64(v[3]),
		Owner:            owner,
		Price:            toBig(v[5]),
		ForSale:          forSale,
	}
	if len(v) > 7 {
		info.RawWear = toBig(v[7])
	}
	return info, nil
}

func offerFromValues(v []interface{}) (*OfferInfo, error) {
	if len(v) < 7 {
		return nil, fmt.Errorf("%w: offer record has %d fields", ErrUnexpectedOutput, len(v))
	}
	seller, ok1 := v[2].(common.Address)
	buyer, ok2 := v[3].(common.Address)
	active, ok3 := v[5].(bool)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: offer record field types", ErrUnexpectedOutput)
	}
	return &OfferInfo{
		OfferID:   toUint64(v[0]),
		WeaponID:  toUint64(v[1]),
		Seller:    seller,
		Buyer:     buyer,
		Price:     toBig(v[4]),
		Active:    active,
		CreatedAt: toUint64(v[6]),
	}, nil
}

// tupleRows flattens a decoded tuple[] (a slice of anonymous structs built
// by the abi package) into positional field values.
func tupleRows(v interface{}) ([][]interface{}, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: want tuple slice, have %T", ErrUnexpectedOutput, v)
	}
	rows := make([][]interface{}, rv.Len())
	for i := range rows {
		el := reflect.Indirect(rv.Index(i))
		if el.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: tuple element is %s", ErrUnexpectedOutput, el.Kind())
		}
		row := make([]interface{}, el.NumField())
		for j := range row {
			row[j] = el.Field(j).Interface()
		}
		rows[i] = row
	}
	return rows, nil
}

func first(out []interface{}) interface{} {
	if len(out) == 0 {
		return nil
	}
	return out[0]
}

func toBig(v interface{}) *big.Int {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return new(big.Int)
		}
		return n
	case uint8:
		return new(big.Int).SetUint64(uint64(n))
	case uint16:
		return new(big.Int).SetUint64(uint64(n))
	case uint32:
		return new(big.Int).SetUint64(uint64(n))
	case uint64:
		return new(big.Int).SetUint64(n)
	default:
		return new(big.Int)
	}
}

func toUint64(v interface{}) uint64 {
	return toBig(v).Uint64()
}

func uint64s(ids []*big.Int) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = id.Uint64()
	}
	return out
}

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

package trade

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
	"github.com/Inaglyite/block-chain-game/weapon"
)

// On-chain offer errors, carried in chain.Result.Err with StatusRejected.
var (
	ErrOfferClosed = errors.New("trade: offer is no longer active")
	ErrNotBuyer    = errors.New("trade: offer is reserved for another buyer")
	ErrOwnOffer    = errors.New("trade: cannot accept your own offer")
)

// Offer is a ledger-recorded trade offer.
type Offer struct {
	ID        uint64
	WeaponID  uint64
	Seller    common.Address
	Buyer     common.Address // zero: anyone may accept
	Price     *big.Int
	Status    Status
	CreatedAt time.Time
}

// Public reports whether anyone may accept the offer.
func (o *Offer) Public() bool { return o.Buyer == (common.Address{}) }

func offerFromInfo(info *weedcutter.OfferInfo) *Offer {
	o := &Offer{
		ID:        info.OfferID,
		WeaponID:  info.WeaponID,
		Seller:    info.Seller,
		Buyer:     info.Buyer,
		Price:     new(big.Int),
		Status:    StatusClosed,
		CreatedAt: time.Unix(int64(info.CreatedAt), 0),
	}
	if info.Price != nil {
		o.Price.Set(info.Price)
	}
	if info.Active {
		o.Status = StatusPending
	}
	return o
}

// Offers is the on-chain trade path. Every write goes through the executor
// from the session's active account.
type Offers struct {
	exec *chain.Executor
	log  log.Logger
}

// NewOffers creates the on-chain offer path over exec.
func NewOffers(exec *chain.Executor) *Offers {
	return &Offers{exec: exec, log: log.New("module", "offers")}
}

func (o *Offers) contract() (*weedcutter.WeedCutter, error) {
	c := o.exec.Session().Contract()
	if c == nil {
		return nil, chain.ErrOffline
	}
	return c, nil
}

// Create offers weaponID to buyer, or to anyone when buyer is the zero
// address, for price wei. It returns the new offer id from the
// TradeOfferCreated event.
func (o *Offers) Create(ctx context.Context, weaponID uint64, buyer common.Address, price *big.Int) (uint64, chain.Result) {
	c, err := o.contract()
	if err != nil {
		return 0, chain.Result{Status: chain.StatusOffline, Err: err}
	}
	if err := weapon.ValidatePrice(price); err != nil {
		return 0, chain.Result{Status: chain.StatusRejected, Err: err}
	}
	res := o.exec.CreateTradeOffer(ctx, weaponID, buyer, price)
	if !res.OK() {
		return 0, res
	}
	id, ok := c.ParseTradeOfferCreated(res.Receipt)
	if !ok {
		o.log.Warn("Offer created but no TradeOfferCreated event in receipt", "tx", res.Hash.Hex())
		return 0, res
	}
	o.log.Info("Trade offer created", "offer", id, "weapon", weaponID, "buyer", buyer, "price", price)
	return id, res
}

// Accept pays for offerID at its listed price.
func (o *Offers) Accept(ctx context.Context, offerID uint64) chain.Result {
	offer, err := o.Offer(ctx, offerID)
	if errors.Is(err, chain.ErrOffline) {
		return chain.Result{Status: chain.StatusOffline, Err: err}
	}
	if err != nil {
		return chain.Result{Status: chain.StatusFailed, Err: err}
	}
	me := o.exec.Session().Account()
	switch {
	case offer.Status != StatusPending:
		return chain.Result{Status: chain.StatusRejected, Err: ErrOfferClosed}
	case offer.Seller == me:
		return chain.Result{Status: chain.StatusRejected, Err: ErrOwnOffer}
	case !offer.Public() && offer.Buyer != me:
		return chain.Result{Status: chain.StatusRejected, Err: ErrNotBuyer}
	}
	return o.exec.AcceptTradeOffer(ctx, offerID, offer.Price)
}

// Cancel withdraws offerID.
func (o *Offers) Cancel(ctx context.Context, offerID uint64) chain.Result {
	if _, err := o.contract(); err != nil {
		return chain.Result{Status: chain.StatusOffline, Err: err}
	}
	return o.exec.CancelTradeOffer(ctx, offerID)
}

// Offer reads offerID from the ledger.
func (o *Offers) Offer(ctx context.Context, offerID uint64) (*Offer, error) {
	c, err := o.contract()
	if err != nil {
		return nil, err
	}
	info, err := c.TradeOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("trade: read offer %d: %w", offerID, err)
	}
	return offerFromInfo(info), nil
}

// Outgoing lists the active offers made by the active account.
func (o *Offers) Outgoing(ctx context.Context) ([]*Offer, error) {
	c, err := o.contract()
	if err != nil {
		return nil, err
	}
	infos, err := c.UserActiveOffers(ctx, o.exec.Session().Account())
	if err != nil {
		return nil, err
	}
	return offersFromInfos(infos), nil
}

// Incoming lists the active offers addressed to the active account.
func (o *Offers) Incoming(ctx context.Context) ([]*Offer, error) {
	c, err := o.contract()
	if err != nil {
		return nil, err
	}
	infos, err := c.UserReceivedActiveOffers(ctx, o.exec.Session().Account())
	if err != nil {
		return nil, err
	}
	return offersFromInfos(infos), nil
}

func offersFromInfos(infos []*weedcutter.OfferInfo) []*Offer {
	out := make([]*Offer, 0, len(infos))
	for _, info := range infos {
		out = append(out, offerFromInfo(info))
	}
	return out
}

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

package game

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
	"github.com/Inaglyite/block-chain-game/weapon"
)

// Command errors, carried in chain.Result.Err with StatusRejected.
var (
	ErrNotEnoughCoins = errors.New("game: not enough coins")
	ErrOwnWeapon      = errors.New("game: cannot buy your own weapon")
	ErrNotForSale     = errors.New("game: weapon is not for sale")
	ErrNotYourWeapon  = errors.New("game: weapon belongs to another player")
	ErrInvalidName    = errors.New("game: player name must not be empty")
	ErrNoCases        = errors.New("game: no unopened case of that type")
)

// Job names used on the dispatcher.
const (
	jobFlush = "flush"
)

// Hider is a HiddenSet that can also hide weapons.
type Hider interface {
	HiddenSet
	Add(id uint64)
}

// Service is the command façade the game loop calls. Reads come from the
// snapshot cache; writes go through the executor, after which the slice of
// state the write touched is refreshed.
type Service struct {
	gw     *Gateway
	cache  *Cache
	agg    *Aggregator
	roller *weapon.Roller
	hidden Hider
	disp   *Dispatcher
	log    log.Logger
}

// ServiceConfig bundles the tunables of the service's components.
type ServiceConfig struct {
	FlushThreshold uint64
	FlushInterval  time.Duration
	Cache          CacheConfig
	Seed           int64
}

// NewService wires the game services over exec. hidden and disp may be nil;
// without a dispatcher Tick runs its work inline.
func NewService(exec *chain.Executor, hidden Hider, disp *Dispatcher, cfg ServiceConfig) *Service {
	gw := NewGateway(exec)
	var hs HiddenSet
	if hidden != nil {
		hs = hidden
	}
	return &Service{
		gw:     gw,
		cache:  NewCache(gw, hs, cfg.Cache),
		agg:    NewAggregator(gw, cfg.FlushThreshold, cfg.FlushInterval, time.Now()),
		roller: weapon.NewRoller(cfg.Seed),
		hidden: hidden,
		disp:   disp,
		log:    log.New("module", "game"),
	}
}

// Cache returns the snapshot cache.
func (s *Service) Cache() *Cache { return s.cache }

// Aggregator returns the score aggregator.
func (s *Service) Aggregator() *Aggregator { return s.agg }

// Gateway returns the chain gateway.
func (s *Service) Gateway() *Gateway { return s.gw }

// Available reports whether the ledger is usable.
func (s *Service) Available() bool { return s.gw.Available() }

// Start seeds the score and loads every snapshot slice. Offline it does
// nothing.
func (s *Service) Start(ctx context.Context) error {
	if !s.gw.Available() {
		s.log.Warn("Ledger offline, starting with empty state", "reason", s.gw.Session().Reason())
		return nil
	}
	if err := s.agg.Sync(ctx); err != nil {
		s.log.Warn("Initial score sync failed", "err", err)
	}
	return s.cache.Refresh(ctx, RefreshAll)
}

// ErrNoSuchAccount is returned by SwitchAccount for an index the node does
// not have.
var ErrNoSuchAccount = errors.New("game: no such node account")

// SwitchAccount makes the node account at index the active one. Points
// buffered for the previous account are flushed from it first; whatever that
// flush does not carry is dropped, because the ledger credits the sender.
// The account's slices of the snapshot are emptied and reloaded.
func (s *Service) SwitchAccount(ctx context.Context, index int) error {
	session := s.gw.Session()
	if !session.Available() {
		return chain.ErrOffline
	}
	if index < 0 || index >= len(session.Accounts()) {
		return fmt.Errorf("%w: index %d", ErrNoSuchAccount, index)
	}
	if index == session.Index() {
		return nil
	}
	if res, flushed := s.agg.Flush(ctx); flushed && !res.OK() {
		s.log.Warn("Final flush before account switch did not land", "status", res.Status, "err", res.Err)
	}
	if dropped := s.agg.Discard(); dropped > 0 {
		s.log.Warn("Dropping points of previous account", "points", dropped, "account", session.Account().Hex())
	}
	if !session.SwitchAccount(index) {
		return fmt.Errorf("%w: index %d", ErrNoSuchAccount, index)
	}
	account := RefreshOwned | RefreshPlayer | RefreshCases
	s.cache.Reset(account)
	if err := s.agg.Sync(ctx); err != nil {
		s.log.Warn("Score sync after account switch failed", "err", err)
	}
	return s.cache.Refresh(ctx, account)
}

// RecordCut adds points from gameplay. They reach the ledger on a later
// flush.
func (s *Service) RecordCut(points uint64) {
	s.agg.AddPoints(points)
}

// Tick drives background work: due score flushes and due snapshot
// refreshes. With a dispatcher the work runs on the pool and Tick returns
// immediately.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	if !s.gw.Available() {
		return
	}
	if s.agg.Due(now) {
		s.run(ctx, jobFlush, func(ctx context.Context) error {
			res, flushed := s.agg.MaybeFlush(ctx, now)
			if flushed && res.OK() {
				return s.cache.Refresh(ctx, RefreshPlayer)
			}
			if flushed && !res.OK() {
				return fmt.Errorf("score flush %s: %w", res.Status, errOr(res.Err))
			}
			return nil
		})
	}
	for _, slice := range s.cache.Due(ctx, now).Slices() {
		slice := slice
		s.run(ctx, "refresh-"+slice.String(), func(ctx context.Context) error {
			return s.cache.Refresh(ctx, slice)
		})
	}
}

func (s *Service) run(ctx context.Context, name string, fn func(context.Context) error) {
	if s.disp == nil {
		if err := fn(ctx); err != nil {
			s.log.Debug("Background job failed", "job", name, "err", err)
		}
		return
	}
	if !s.disp.Submit(name, fn) {
		s.log.Debug("Background job not started, left for a later tick", "job", name)
	}
}

// after refreshes what a finished write touched. A pending result only
// schedules the refresh, it never resubmits; the slices stay due until the
// refresh lands, so a job the dispatcher turns away is retried by Tick.
func (s *Service) after(ctx context.Context, res chain.Result, what Refresh) chain.Result {
	switch res.Status {
	case chain.StatusSuccess:
		if err := s.cache.Refresh(ctx, what); err != nil {
			s.log.Warn("Refresh after write failed", "err", err)
		}
	case chain.StatusPending:
		s.cache.Invalidate(what)
		for _, slice := range what.Slices() {
			slice := slice
			s.run(ctx, "refresh-"+slice.String(), func(ctx context.Context) error {
				return s.cache.Refresh(ctx, slice)
			})
		}
	}
	return res
}

func rejected(err error) chain.Result {
	return chain.Result{Status: chain.StatusRejected, Err: err}
}

func offline() chain.Result {
	return chain.Result{Status: chain.StatusOffline, Err: chain.ErrOffline}
}

func errOr(err error) error {
	if err == nil {
		return errors.New("no receipt")
	}
	return err
}

// MintRandomWeapon rolls a weapon and mints it to the active account. The
// player needs weapon.MintCoinCost coins; the contract owner sends the
// transaction.
func (s *Service) MintRandomWeapon(ctx context.Context) (weapon.Roll, chain.Result) {
	if !s.gw.Available() {
		return weapon.Roll{}, offline()
	}
	stats, err := s.gw.PlayerStats(ctx)
	if err != nil {
		return weapon.Roll{}, chain.Result{Status: chain.StatusFailed, Err: err}
	}
	if stats.Coins < weapon.MintCoinCost {
		return weapon.Roll{}, rejected(fmt.Errorf("%w: have %d, need %d", ErrNotEnoughCoins, stats.Coins, weapon.MintCoinCost))
	}
	roll := s.roller.Roll()
	s.log.Info("Minting weapon", "name", roll.Name, "rarity", roll.Rarity, "multiplier", roll.Multiplier)
	res := s.gw.Executor().MintWeapon(ctx, s.gw.Account(), roll.Name, uint8(roll.Rarity), roll.Multiplier)
	return roll, s.after(ctx, res, RefreshOwned|RefreshPlayer)
}

// details reads weapon id fresh from the ledger.
func (s *Service) details(ctx context.Context, id uint64) (*weedcutter.WeaponInfo, error) {
	c := s.gw.Contract()
	if c == nil {
		return nil, chain.ErrOffline
	}
	return c.WeaponDetails(ctx, id)
}

// ListForSale lists an owned weapon at price wei.
func (s *Service) ListForSale(ctx context.Context, id uint64, price *big.Int) chain.Result {
	if !s.gw.Available() {
		return offline()
	}
	if err := weapon.ValidatePrice(price); err != nil {
		return rejected(err)
	}
	info, err := s.details(ctx, id)
	if err != nil {
		return chain.Result{Status: chain.StatusFailed, Err: err}
	}
	if info.Owner != s.gw.Account() {
		return rejected(ErrNotYourWeapon)
	}
	res := s.gw.Executor().ListWeaponForSale(ctx, id, price)
	return s.after(ctx, res, RefreshOwned|RefreshMarket)
}

// SuggestPrice returns the price band for an owned weapon, from the current
// market snapshot.
func (s *Service) SuggestPrice(r weapon.Rarity) weapon.Range {
	return weapon.PriceRange(r, s.cache.Market())
}

// Purchase buys a listed weapon at its listed price.
func (s *Service) Purchase(ctx context.Context, id uint64) chain.Result {
	if !s.gw.Available() {
		return offline()
	}
	info, err := s.details(ctx, id)
	if err != nil {
		return chain.Result{Status: chain.StatusFailed, Err: err}
	}
	if info.Owner == s.gw.Account() {
		return rejected(ErrOwnWeapon)
	}
	if !info.ForSale {
		return rejected(ErrNotForSale)
	}
	res := s.gw.Executor().PurchaseWeapon(ctx, id, info.Price)
	return s.after(ctx, res, RefreshOwned|RefreshMarket)
}

// OpenCaseWithETH opens a case paying its ether price. It returns the new
// weapon id when the receipt carries it.
func (s *Service) OpenCaseWithETH(ctx context.Context, caseID uint64) (uint64, chain.Result) {
	c := s.gw.Contract()
	if c == nil {
		return 0, offline()
	}
	info, err := c.CaseDetails(ctx, caseID)
	if err != nil {
		return 0, chain.Result{Status: chain.StatusFailed, Err: err}
	}
	res := s.gw.Executor().OpenCaseWithETH(ctx, caseID, info.Price)
	return s.openedWeapon(ctx, res)
}

// OpenCaseWithCoins opens a case paying in coins.
func (s *Service) OpenCaseWithCoins(ctx context.Context, caseID uint64) (uint64, chain.Result) {
	c := s.gw.Contract()
	if c == nil {
		return 0, offline()
	}
	info, err := c.CaseDetails(ctx, caseID)
	if err != nil {
		return 0, chain.Result{Status: chain.StatusFailed, Err: err}
	}
	if stats, err := s.gw.PlayerStats(ctx); err == nil && stats.Coins < info.CoinPrice {
		return 0, rejected(fmt.Errorf("%w: have %d, need %d", ErrNotEnoughCoins, stats.Coins, info.CoinPrice))
	}
	res := s.gw.Executor().OpenCaseWithCoins(ctx, caseID)
	return s.openedWeapon(ctx, res)
}

// PurchaseCase buys amount unopened cases into the inventory.
func (s *Service) PurchaseCase(ctx context.Context, caseID, amount uint64) chain.Result {
	if !s.gw.Available() {
		return offline()
	}
	if amount == 0 {
		return rejected(errors.New("game: amount must be positive"))
	}
	res := s.gw.Executor().PurchaseCase(ctx, caseID, amount)
	return s.after(ctx, res, RefreshCases|RefreshPlayer)
}

// OpenCaseFromInventory opens a previously bought case.
func (s *Service) OpenCaseFromInventory(ctx context.Context, caseID uint64) (uint64, chain.Result) {
	c := s.gw.Contract()
	if c == nil {
		return 0, offline()
	}
	inv, err := c.CaseInventory(ctx, s.gw.Account())
	if err == nil && inv[caseID] == 0 {
		return 0, rejected(ErrNoCases)
	}
	res := s.gw.Executor().OpenCaseFromInventory(ctx, caseID)
	return s.openedWeapon(ctx, res)
}

func (s *Service) openedWeapon(ctx context.Context, res chain.Result) (uint64, chain.Result) {
	s.after(ctx, res, RefreshOwned|RefreshCases|RefreshPlayer)
	if !res.OK() {
		return 0, res
	}
	id, ok := s.gw.Contract().ParseCaseOpened(res.Receipt)
	if !ok {
		s.log.Warn("Case opened but no CaseOpened event in receipt", "tx", res.Hash.Hex())
		return 0, res
	}
	s.log.Info("Case opened", "weapon", id, "tx", res.Hash.Hex())
	return id, res
}

// SetPlayerName registers the leaderboard name.
func (s *Service) SetPlayerName(ctx context.Context, name string) chain.Result {
	if !s.gw.Available() {
		return offline()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return rejected(ErrInvalidName)
	}
	res := s.gw.Executor().SetPlayerName(ctx, name)
	return s.after(ctx, res, RefreshPlayer)
}

// DeleteWeapon burns the weapon when the contract supports it; otherwise it
// hides the weapon locally. The local path works offline too.
func (s *Service) DeleteWeapon(ctx context.Context, id uint64) chain.Result {
	if c := s.gw.Contract(); c != nil && c.Supports(weedcutter.MethodBurn) {
		res := s.gw.Executor().Burn(ctx, id)
		return s.after(ctx, res, RefreshOwned|RefreshMarket)
	}
	if s.hidden == nil {
		return rejected(errors.New("game: no local hide-list configured"))
	}
	s.hidden.Add(id)
	s.log.Info("Weapon hidden locally", "id", id)
	if s.gw.Available() {
		if err := s.cache.Refresh(ctx, RefreshOwned|RefreshMarket); err != nil {
			s.log.Warn("Refresh after hide failed", "err", err)
		}
	}
	return chain.Result{Status: chain.StatusSuccess}
}

// Score returns the displayed score and the points still pending.
func (s *Service) Score() (displayed, pending uint64) {
	return s.agg.Displayed(), s.agg.Pending()
}

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
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
	"github.com/Inaglyite/block-chain-game/weapon"
)

// Cache defaults.
const (
	DefaultMarketInterval  = 3 * time.Second
	DefaultTickInterval    = 500 * time.Millisecond
	DefaultLeaderboardSize = 10
)

// Refresh is a set of snapshot slices.
type Refresh uint8

const (
	RefreshOwned Refresh = 1 << iota
	RefreshMarket
	RefreshPlayer
	RefreshCases

	RefreshNone Refresh = 0
	RefreshAll          = RefreshOwned | RefreshMarket | RefreshPlayer | RefreshCases
)

// Slices lists the single slices in r.
func (r Refresh) Slices() []Refresh {
	var out []Refresh
	for _, s := range []Refresh{RefreshOwned, RefreshMarket, RefreshPlayer, RefreshCases} {
		if r&s != 0 {
			out = append(out, s)
		}
	}
	return out
}

func (r Refresh) String() string {
	switch r {
	case RefreshOwned:
		return "owned"
	case RefreshMarket:
		return "market"
	case RefreshPlayer:
		return "player"
	case RefreshCases:
		return "cases"
	case RefreshNone:
		return "none"
	default:
		return "multiple"
	}
}

// HiddenSet holds weapon ids the player removed locally.
type HiddenSet interface {
	Contains(id uint64) bool
}

// Stamp identifies an applied snapshot: Seq orders applications, Height is
// the ledger height observed when the read started.
type Stamp struct {
	Seq    uint64
	Height uint64
}

// Player is the per-account part of the read model.
type Player struct {
	Address     common.Address
	Name        string
	Stats       weedcutter.PlayerStats
	Rank        uint64
	RankTotal   uint64
	Leaderboard []weedcutter.LeaderEntry
}

// Cases is the case catalogue and the account's unopened cases.
type Cases struct {
	Catalogue []*weedcutter.CaseInfo
	Inventory map[uint64]uint64
}

// slot holds one slice. want counts the times the slice was marked due
// outside the height rule; have is the highest such mark a completed read
// covered. Reads begun before floor are discarded on arrival.
type slot[T any] struct {
	stamp Stamp
	set   bool
	value T

	want  uint64
	have  uint64
	floor uint64
}

// stale reports whether s needs a read: never loaded, marked since the last
// load, or loaded below height.
func (s *slot[T]) stale(height uint64) bool {
	return !s.set || s.have < s.want || s.stamp.Height < height
}

func (s *slot[T]) mark() { s.want++ }

func (s *slot[T]) reset() {
	var zero T
	s.want++
	s.floor = s.want
	s.stamp, s.set, s.value = Stamp{}, false, zero
}

// generation returns the mark a read of s starting now will cover.
func generation[T any](c *Cache, s *slot[T]) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.want
}

// Cache is the local read model of ledger state. Each slice is replaced
// wholesale by a refresh; a result read at a lower height than the one
// already applied is dropped. A slice stays due until a read covering the
// reason it became due has been applied, so a refresh that was skipped or
// failed is planned again by the next tick.
type Cache struct {
	gw              *Gateway
	hidden          HiddenSet
	marketInterval  time.Duration
	tickInterval    time.Duration
	leaderboardSize uint64
	log             log.Logger

	mu         sync.RWMutex
	seq        uint64
	owned      slot[[]*weapon.Weapon]
	market     slot[[]*weapon.Weapon]
	player     slot[Player]
	cases      slot[Cases]
	lastHeight uint64
	lastTick   time.Time
	lastMarket time.Time
	fetch      FetchStrategy
}

// CacheConfig tunes the polling policy.
type CacheConfig struct {
	MarketInterval  time.Duration
	TickInterval    time.Duration
	LeaderboardSize uint64
}

// NewCache creates an empty cache. hidden may be nil.
func NewCache(gw *Gateway, hidden HiddenSet, cfg CacheConfig) *Cache {
	if cfg.MarketInterval <= 0 {
		cfg.MarketInterval = DefaultMarketInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.LeaderboardSize == 0 {
		cfg.LeaderboardSize = DefaultLeaderboardSize
	}
	return &Cache{
		gw:              gw,
		hidden:          hidden,
		marketInterval:  cfg.MarketInterval,
		tickInterval:    cfg.TickInterval,
		leaderboardSize: cfg.LeaderboardSize,
		log:             log.New("module", "snapshot"),
	}
}

// Due decides which slices the tick at now should refresh: owned, player
// and cases while their snapshot is older than the ledger height, the
// market on its own timer, and anything invalidated and not yet re-read.
// Ticks closer together than the tick interval do nothing.
func (c *Cache) Due(ctx context.Context, now time.Time) Refresh {
	if !c.gw.Available() {
		return RefreshNone
	}
	c.mu.Lock()
	if !c.lastTick.IsZero() && now.Sub(c.lastTick) < c.tickInterval {
		c.mu.Unlock()
		return RefreshNone
	}
	c.lastTick = now
	c.mu.Unlock()

	height, err := c.gw.BlockNumber(ctx)
	if err != nil {
		c.log.Debug("Height lookup failed", "err", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && height > c.lastHeight {
		c.lastHeight = height
	}
	if c.lastMarket.IsZero() || now.Sub(c.lastMarket) >= c.marketInterval {
		c.lastMarket = now
		c.market.mark()
	}
	due := RefreshNone
	if c.owned.stale(c.lastHeight) {
		due |= RefreshOwned
	}
	if c.market.stale(0) {
		due |= RefreshMarket
	}
	if c.player.stale(c.lastHeight) {
		due |= RefreshPlayer
	}
	if c.cases.stale(c.lastHeight) {
		due |= RefreshCases
	}
	return due
}

// Invalidate marks the slices in what as due on the next tick, whatever the
// height or market timer say.
func (c *Cache) Invalidate(what Refresh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if what&RefreshOwned != 0 {
		c.owned.mark()
	}
	if what&RefreshMarket != 0 {
		c.market.mark()
	}
	if what&RefreshPlayer != 0 {
		c.player.mark()
	}
	if what&RefreshCases != 0 {
		c.cases.mark()
	}
}

// Reset empties the slices in what and discards reads of them already in
// progress. Used when the active account changes.
func (c *Cache) Reset(what Refresh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if what&RefreshOwned != 0 {
		c.owned.reset()
	}
	if what&RefreshMarket != 0 {
		c.market.reset()
	}
	if what&RefreshPlayer != 0 {
		c.player.reset()
	}
	if what&RefreshCases != 0 {
		c.cases.reset()
	}
}

// Tick runs the due refreshes inline.
func (c *Cache) Tick(ctx context.Context, now time.Time) error {
	return c.Refresh(ctx, c.Due(ctx, now))
}

// Refresh re-reads the slices in what. All requested slices are attempted;
// the first error is returned.
func (c *Cache) Refresh(ctx context.Context, what Refresh) error {
	if what == RefreshNone {
		return nil
	}
	if !c.gw.Available() {
		return chain.ErrOffline
	}
	var first error
	for _, s := range what.Slices() {
		var err error
		switch s {
		case RefreshOwned:
			err = c.RefreshOwned(ctx)
		case RefreshMarket:
			err = c.RefreshMarket(ctx)
		case RefreshPlayer:
			err = c.RefreshPlayer(ctx)
		case RefreshCases:
			err = c.RefreshCases(ctx)
		}
		if err != nil {
			c.log.Warn("Snapshot refresh failed", "slice", s, "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// begin reads the height a refresh is stamped with and the contract.
func (c *Cache) begin(ctx context.Context) (uint64, *weedcutter.WeedCutter, error) {
	contract := c.gw.Contract()
	if contract == nil {
		return 0, nil, chain.ErrOffline
	}
	height, err := c.gw.BlockNumber(ctx)
	if err != nil {
		return 0, nil, err
	}
	return height, contract, nil
}

// apply stores v, read at height by a refresh that began at mark gen, in s
// unless a newer read is already there or the slice was reset since.
func apply[T any](c *Cache, s *slot[T], height, gen uint64, v T, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen < s.floor {
		c.log.Debug("Dropping snapshot read before reset", "slice", name, "height", height)
		return false
	}
	if s.set && height < s.stamp.Height {
		c.log.Debug("Dropping stale snapshot", "slice", name, "height", height, "applied", s.stamp.Height)
		return false
	}
	c.seq++
	s.stamp = Stamp{Seq: c.seq, Height: height}
	s.set = true
	s.value = v
	if gen > s.have {
		s.have = gen
	}
	return true
}

func (c *Cache) isHidden(id uint64) bool {
	return c.hidden != nil && c.hidden.Contains(id)
}

// RefreshOwned re-reads the active account's weapons.
func (c *Cache) RefreshOwned(ctx context.Context) error {
	gen := generation(c, &c.owned)
	height, contract, err := c.begin(ctx)
	if err != nil {
		return err
	}
	account := c.gw.Account()
	ids, err := contract.UserWeapons(ctx, account)
	if err != nil {
		return err
	}
	owned := make([]*weapon.Weapon, 0, len(ids))
	for _, id := range ids {
		if c.isHidden(id) {
			continue
		}
		info, err := contract.WeaponDetails(ctx, id)
		if err != nil {
			c.log.Warn("Skipping weapon with unreadable details", "id", id, "err", err)
			continue
		}
		owned = append(owned, weapon.FromInfo(info))
	}
	weapon.SortOwned(owned)
	apply(c, &c.owned, height, gen, owned, "owned")
	return nil
}

// RefreshMarket re-reads every listed weapon.
func (c *Cache) RefreshMarket(ctx context.Context) error {
	gen := generation(c, &c.market)
	height, contract, err := c.begin(ctx)
	if err != nil {
		return err
	}
	fetch := c.strategy(contract)
	infos, err := fetch.ForSale(ctx, contract)
	if err != nil {
		return err
	}
	market := make([]*weapon.Weapon, 0, len(infos))
	for _, info := range infos {
		if !info.ForSale || c.isHidden(info.ID) {
			continue
		}
		market = append(market, weapon.FromInfo(info))
	}
	weapon.SortMarket(market)
	apply(c, &c.market, height, gen, market, "market")
	return nil
}

func (c *Cache) strategy(contract *weedcutter.WeedCutter) FetchStrategy {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetch == nil {
		c.fetch = SelectFetch(contract)
		c.log.Info("Selected market fetch strategy", "strategy", c.fetch.Name())
	}
	return c.fetch
}

// RefreshPlayer re-reads stats, name, rank and the leaderboard.
func (c *Cache) RefreshPlayer(ctx context.Context) error {
	gen := generation(c, &c.player)
	height, contract, err := c.begin(ctx)
	if err != nil {
		return err
	}
	account := c.gw.Account()
	stats, err := contract.PlayerStats(ctx, account)
	if err != nil {
		return err
	}
	p := Player{Address: account, Stats: stats}
	if p.Name, err = contract.PlayerName(ctx, account); err != nil {
		c.log.Debug("Player name unavailable", "err", err)
	}
	if p.Rank, p.RankTotal, err = contract.PlayerRank(ctx, account); err != nil {
		c.log.Debug("Player rank unavailable", "err", err)
	}
	if p.Leaderboard, err = contract.Leaderboard(ctx, c.leaderboardSize); err != nil {
		c.log.Debug("Leaderboard unavailable", "err", err)
	}
	apply(c, &c.player, height, gen, p, "player")
	return nil
}

// RefreshCases re-reads the case catalogue and inventory.
func (c *Cache) RefreshCases(ctx context.Context) error {
	gen := generation(c, &c.cases)
	height, contract, err := c.begin(ctx)
	if err != nil {
		return err
	}
	next, err := contract.NextCaseID(ctx)
	if err != nil {
		return err
	}
	cs := Cases{Inventory: map[uint64]uint64{}}
	for id := uint64(1); id < next; id++ {
		info, err := contract.CaseDetails(ctx, id)
		if err != nil {
			c.log.Debug("Skipping unreadable case", "id", id, "err", err)
			continue
		}
		cs.Catalogue = append(cs.Catalogue, info)
	}
	if inv, err := contract.CaseInventory(ctx, c.gw.Account()); err != nil {
		c.log.Debug("Case inventory unavailable", "err", err)
	} else {
		cs.Inventory = inv
	}
	apply(c, &c.cases, height, gen, cs, "cases")
	return nil
}

// Owned returns the active account's weapons, unlisted first.
func (c *Cache) Owned() []*weapon.Weapon {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*weapon.Weapon(nil), c.owned.value...)
}

// Listed returns owned weapons currently for sale.
func (c *Cache) Listed() []*weapon.Weapon {
	return filter(c.Owned(), func(w *weapon.Weapon) bool { return w.ForSale })
}

// Unlisted returns owned weapons not for sale.
func (c *Cache) Unlisted() []*weapon.Weapon {
	return filter(c.Owned(), func(w *weapon.Weapon) bool { return !w.ForSale })
}

// Market returns listed weapons, cheapest first.
func (c *Cache) Market() []*weapon.Weapon {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*weapon.Weapon(nil), c.market.value...)
}

// Player returns the player view.
func (c *Cache) Player() Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.player.value
	p.Leaderboard = append([]weedcutter.LeaderEntry(nil), p.Leaderboard...)
	return p
}

// Cases returns the case catalogue and inventory.
func (c *Cache) Cases() Cases {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cs := Cases{
		Catalogue: append([]*weedcutter.CaseInfo(nil), c.cases.value.Catalogue...),
		Inventory: make(map[uint64]uint64, len(c.cases.value.Inventory)),
	}
	for k, v := range c.cases.value.Inventory {
		cs.Inventory[k] = v
	}
	return cs
}

// Stamp returns the stamp of a single applied slice.
func (c *Cache) Stamp(slice Refresh) Stamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch slice {
	case RefreshOwned:
		return c.owned.stamp
	case RefreshMarket:
		return c.market.stamp
	case RefreshPlayer:
		return c.player.stamp
	case RefreshCases:
		return c.cases.stamp
	}
	return Stamp{}
}

func filter(ws []*weapon.Weapon, keep func(*weapon.Weapon) bool) []*weapon.Weapon {
	out := ws[:0]
	for _, w := range ws {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

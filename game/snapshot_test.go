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
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
	"github.com/Inaglyite/block-chain-game/internal/testutil"
	"github.com/Inaglyite/block-chain-game/weapon"
)

func ids(ws []*weapon.Weapon) []uint64 {
	out := make([]uint64, len(ws))
	for i, w := range ws {
		out[i] = w.ID
	}
	return out
}

func TestCache_RefreshOwnedSortsAndHides(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	common1 := w.addWeapon(testutil.Account0, "Rusty Knife", 0, 0, false)
	listed := w.addWeapon(testutil.Account0, "Epic Axe", 2, 500, true)
	epic := w.addWeapon(testutil.Account0, "Epic Sword", 2, 0, false)
	hidden := w.addWeapon(testutil.Account0, "Broken Sickle", 3, 0, false)
	w.addWeapon(testutil.Account1, "Someone Else's", 1, 0, false)

	c := NewCache(NewGateway(newTestExecutor(t, b, 0, "")), newMemHidden(hidden), CacheConfig{})
	require.NoError(t, c.RefreshOwned(context.Background()))

	assert.Equal(t, []uint64{epic, common1, listed}, ids(c.Owned()))
	assert.Equal(t, []uint64{listed}, ids(c.Listed()))
	assert.Equal(t, []uint64{epic, common1}, ids(c.Unlisted()))

	first := c.Owned()[0]
	wear, cond := weapon.FromRaw(first.ID, first.Owner, nil)
	assert.Equal(t, wear, first.Wear)
	assert.Equal(t, cond, first.Condition)
}

func TestCache_MarketStrategies(t *testing.T) {
	tests := []struct {
		name     string
		abi      func(t *testing.T) string
		strategy string
	}{
		{"batch", func(*testing.T) string { return "" }, "batch"},
		{"scan", func(t *testing.T) string { return abiWithout(t, weedcutter.MethodWeaponsForSale) }, "scan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.NewBackend()
			w := newWorld(b)
			a := w.addWeapon(testutil.Account1, "Cheap Common", 0, 100, true)
			w.addWeapon(testutil.Account1, "Unlisted", 1, 0, false)
			bRare := w.addWeapon(testutil.Account2, "Pricey Rare", 1, 900, true)
			bEpic := w.addWeapon(testutil.Account2, "Cheap Epic", 2, 100, true)
			gone := w.addWeapon(testutil.Account2, "Hidden", 0, 50, true)

			c := NewCache(NewGateway(newTestExecutor(t, b, 0, tt.abi(t))), newMemHidden(gone), CacheConfig{})
			require.NoError(t, c.RefreshMarket(context.Background()))

			assert.Equal(t, []uint64{bEpic, a, bRare}, ids(c.Market()))
			assert.Equal(t, tt.strategy, c.strategy(nil).Name())
			if tt.strategy == "scan" {
				assert.Zero(t, b.Calls("getWeaponsForSale"))
				assert.Equal(t, 1, b.Calls("getNextWeaponId"))
			} else {
				assert.Equal(t, 1, b.Calls("getWeaponsForSale"))
				assert.Zero(t, b.Calls("getNextWeaponId"))
			}
		})
	}
}

func TestCache_StaleRefreshIsDropped(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	w.addWeapon(testutil.Account0, "First", 0, 0, false)
	c := NewCache(NewGateway(newTestExecutor(t, b, 0, "")), nil, CacheConfig{})
	ctx := context.Background()

	b.SetHeight(10)
	require.NoError(t, c.RefreshOwned(ctx))
	stamp := c.Stamp(RefreshOwned)
	assert.Equal(t, uint64(10), stamp.Height)

	// A read that observed an older height loses against the applied one.
	w.addWeapon(testutil.Account0, "Second", 0, 0, false)
	b.SetHeight(9)
	require.NoError(t, c.RefreshOwned(ctx))
	assert.Len(t, c.Owned(), 1)
	assert.Equal(t, stamp, c.Stamp(RefreshOwned))

	b.SetHeight(10)
	require.NoError(t, c.RefreshOwned(ctx))
	assert.Len(t, c.Owned(), 2)
	assert.Greater(t, c.Stamp(RefreshOwned).Seq, stamp.Seq)
}

func TestCache_PlayerAndCases(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	w.setStats(testutil.Account0, 120, 30)
	w.setStats(testutil.Account1, 999, 0)
	w.cases = []*weedcutter.CaseInfo{
		{ID: 1, Name: "Starter", Price: big.NewInt(1000), CoinPrice: 10},
		{ID: 2, Name: "Premium", Price: big.NewInt(5000), CoinPrice: 50},
	}
	w.caseInv[testutil.Account0] = map[uint64]uint64{2: 3}

	c := NewCache(NewGateway(newTestExecutor(t, b, 0, "")), nil, CacheConfig{LeaderboardSize: 5})
	require.NoError(t, c.Refresh(context.Background(), RefreshPlayer|RefreshCases))

	p := c.Player()
	assert.Equal(t, testutil.Account0, p.Address)
	assert.Equal(t, weedcutter.PlayerStats{Score: 120, Coins: 30}, p.Stats)
	assert.Equal(t, uint64(1), p.Rank)
	require.Len(t, p.Leaderboard, 1)
	assert.Equal(t, "Player"+testutil.Account1.Hex()[:6], p.Leaderboard[0].Name)

	cs := c.Cases()
	require.Len(t, cs.Catalogue, 2)
	assert.Equal(t, "Premium", cs.Catalogue[1].Name)
	assert.Equal(t, map[uint64]uint64{2: 3}, cs.Inventory)
}

func TestCache_Due(t *testing.T) {
	b := testutil.NewBackend()
	newWorld(b)
	c := NewCache(NewGateway(newTestExecutor(t, b, 0, "")), nil, CacheConfig{
		MarketInterval: 3 * time.Second,
		TickInterval:   500 * time.Millisecond,
	})
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	assert.Equal(t, RefreshAll, c.Due(ctx, now))
	assert.Equal(t, RefreshNone, c.Due(ctx, now.Add(100*time.Millisecond)), "throttled")
	assert.Equal(t, RefreshAll, c.Due(ctx, now.Add(time.Second)), "nothing loaded yet")

	require.NoError(t, c.Refresh(ctx, RefreshAll))
	assert.Equal(t, RefreshNone, c.Due(ctx, now.Add(1500*time.Millisecond)), "same height, market not due")

	b.SetHeight(2)
	assert.Equal(t, RefreshOwned|RefreshPlayer|RefreshCases, c.Due(ctx, now.Add(2*time.Second)))
	require.NoError(t, c.Refresh(ctx, RefreshOwned|RefreshPlayer|RefreshCases))
	assert.Equal(t, RefreshMarket, c.Due(ctx, now.Add(3*time.Second)))
}

func TestCache_SkippedRefreshStaysDue(t *testing.T) {
	b := testutil.NewBackend()
	newWorld(b)
	c := NewCache(NewGateway(newTestExecutor(t, b, 0, "")), nil, CacheConfig{MarketInterval: time.Hour})
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, c.Refresh(ctx, RefreshAll))
	c.Due(ctx, now)
	require.NoError(t, c.Refresh(ctx, RefreshMarket))

	b.SetHeight(7)
	assert.Equal(t, RefreshOwned|RefreshPlayer|RefreshCases, c.Due(ctx, now.Add(time.Second)))
	require.NoError(t, c.Refresh(ctx, RefreshPlayer|RefreshCases))

	// No new block, but owned was never re-read at height 7.
	assert.Equal(t, RefreshOwned, c.Due(ctx, now.Add(2*time.Second)))
	require.NoError(t, c.Refresh(ctx, RefreshOwned))
	assert.Equal(t, RefreshNone, c.Due(ctx, now.Add(3*time.Second)))
}

func TestCache_InvalidateAndReset(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	w.addWeapon(testutil.Account0, "Knife", 0, 0, false)
	c := NewCache(NewGateway(newTestExecutor(t, b, 0, "")), nil, CacheConfig{MarketInterval: time.Hour})
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, c.Refresh(ctx, RefreshAll))
	c.Due(ctx, now)
	require.NoError(t, c.Refresh(ctx, RefreshMarket))
	assert.Equal(t, RefreshNone, c.Due(ctx, now.Add(time.Second)))

	c.Invalidate(RefreshMarket)
	assert.Equal(t, RefreshMarket, c.Due(ctx, now.Add(2*time.Second)))
	require.NoError(t, c.Refresh(ctx, RefreshMarket))

	// A read that began before the reset must not repopulate the slice.
	gen := generation(c, &c.owned)
	c.Reset(RefreshOwned)
	assert.Empty(t, c.Owned())
	assert.False(t, apply(c, &c.owned, 1, gen, []*weapon.Weapon{{ID: 99}}, "owned"))
	assert.Empty(t, c.Owned())
	assert.Equal(t, RefreshOwned, c.Due(ctx, now.Add(3*time.Second)))

	require.NoError(t, c.RefreshOwned(ctx))
	assert.Len(t, c.Owned(), 1)
}

func TestCache_Offline(t *testing.T) {
	c := NewCache(NewGateway(offlineExecutor()), nil, CacheConfig{})
	ctx := context.Background()

	assert.Equal(t, RefreshNone, c.Due(ctx, time.Now()))
	assert.ErrorIs(t, c.Refresh(ctx, RefreshAll), chain.ErrOffline)
	assert.Empty(t, c.Owned())
	assert.Empty(t, c.Market())
}

func TestRefresh_Slices(t *testing.T) {
	assert.Equal(t, []Refresh{RefreshOwned, RefreshCases}, (RefreshOwned | RefreshCases).Slices())
	assert.Empty(t, RefreshNone.Slices())
	assert.Equal(t, "market", RefreshMarket.String())
	assert.Equal(t, "multiple", RefreshAll.String())
}

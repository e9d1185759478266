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

func newTestService(t *testing.T, b *testutil.Backend, index int, hidden Hider) *Service {
	t.Helper()
	s := NewService(newTestExecutor(t, b, index, ""), hidden, nil, ServiceConfig{Seed: 7})
	require.NoError(t, s.Start(context.Background()))
	return s
}

func TestService_MintRequiresCoins(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	w.setStats(testutil.Account1, 0, weapon.MintCoinCost-1)
	s := newTestService(t, b, 1, nil)

	_, res := s.MintRandomWeapon(context.Background())
	assert.Equal(t, chain.StatusRejected, res.Status)
	assert.ErrorIs(t, res.Err, ErrNotEnoughCoins)
	assert.Empty(t, b.Sent())
}

func TestService_MintFromOwner(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	w.setStats(testutil.Account1, 0, weapon.MintCoinCost)
	s := newTestService(t, b, 1, nil)

	roll, res := s.MintRandomWeapon(context.Background())
	require.True(t, res.OK(), res.Err)
	assert.NotEmpty(t, roll.Name)

	sent := b.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "mintWeapon", sent[0].Method)
	assert.Equal(t, testutil.Account0, sent[0].Request.From, "minted by the contract owner")
	assert.Equal(t, testutil.Account1, sent[0].Args[0], "minted to the player")

	owned := s.Cache().Owned()
	require.Len(t, owned, 1)
	assert.Equal(t, roll.Name, owned[0].Name)
	assert.Equal(t, roll.Rarity, owned[0].Rarity)
}

func TestService_ListAndPurchase(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	mine := w.addWeapon(testutil.Account1, "My Knife", 0, 0, false)
	theirs := w.addWeapon(testutil.Account2, "Their Sword", 1, 0, false)
	s := newTestService(t, b, 1, nil)
	ctx := context.Background()

	res := s.ListForSale(ctx, theirs, big.NewInt(10))
	assert.ErrorIs(t, res.Err, ErrNotYourWeapon)
	res = s.ListForSale(ctx, mine, big.NewInt(-1))
	assert.Equal(t, chain.StatusRejected, res.Status)

	res = s.ListForSale(ctx, mine, big.NewInt(2500))
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, []uint64{mine}, ids(s.Cache().Listed()))
	assert.Equal(t, []uint64{mine}, ids(s.Cache().Market()))

	res = s.Purchase(ctx, mine)
	assert.ErrorIs(t, res.Err, ErrOwnWeapon)
	res = s.Purchase(ctx, theirs)
	assert.ErrorIs(t, res.Err, ErrNotForSale)

	// Another player buys the listing at its price.
	buyer := newTestService(t, b, 2, nil)
	res = buyer.Purchase(ctx, mine)
	require.True(t, res.OK(), res.Err)
	last := b.Sent()[len(b.Sent())-1]
	assert.Equal(t, "purchaseWeapon", last.Method)
	assert.Equal(t, big.NewInt(2500), last.Request.Value)
	assert.ElementsMatch(t, []uint64{theirs, mine}, ids(buyer.Cache().Owned()))
	assert.Empty(t, buyer.Cache().Market())
}

func TestService_Cases(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	w.cases = []*weedcutter.CaseInfo{{ID: 1, Name: "Starter", Price: big.NewInt(1000), CoinPrice: 10}}
	w.setStats(testutil.Account1, 0, 15)
	s := newTestService(t, b, 1, nil)
	ctx := context.Background()

	id, res := s.OpenCaseWithCoins(ctx, 1)
	require.True(t, res.OK(), res.Err)
	assert.NotZero(t, id)
	assert.Equal(t, []uint64{id}, ids(s.Cache().Owned()))

	_, res = s.OpenCaseWithCoins(ctx, 1)
	assert.ErrorIs(t, res.Err, ErrNotEnoughCoins)

	_, res = s.OpenCaseFromInventory(ctx, 1)
	assert.ErrorIs(t, res.Err, ErrNoCases)

	res = s.PurchaseCase(ctx, 1, 2)
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, map[uint64]uint64{1: 2}, s.Cache().Cases().Inventory)

	second, res := s.OpenCaseFromInventory(ctx, 1)
	require.True(t, res.OK(), res.Err)
	assert.Greater(t, second, id)
	assert.Equal(t, map[uint64]uint64{1: 1}, s.Cache().Cases().Inventory)
}

func TestService_SetPlayerName(t *testing.T) {
	b := testutil.NewBackend()
	newWorld(b)
	s := newTestService(t, b, 1, nil)
	ctx := context.Background()

	assert.ErrorIs(t, s.SetPlayerName(ctx, "   ").Err, ErrInvalidName)
	require.True(t, s.SetPlayerName(ctx, " mower ").OK())
	assert.Equal(t, "mower", s.Cache().Player().Name)
}

func TestService_DeleteHidesWithoutBurn(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	keep := w.addWeapon(testutil.Account1, "Keep", 0, 0, false)
	drop := w.addWeapon(testutil.Account1, "Drop", 0, 0, false)
	hidden := newMemHidden()
	s := newTestService(t, b, 1, hidden)

	res := s.DeleteWeapon(context.Background(), drop)
	require.True(t, res.OK())
	assert.True(t, hidden.Contains(drop))
	assert.Equal(t, []uint64{keep}, ids(s.Cache().Owned()))
	assert.Empty(t, b.Sent(), "no burn in the ABI, nothing is sent")
}

func TestService_CutsFlushOnTick(t *testing.T) {
	b := testutil.NewBackend()
	newWorld(b)
	s := newTestService(t, b, 1, nil)
	ctx := context.Background()

	s.RecordCut(10)
	s.RecordCut(10)
	s.RecordCut(10)
	displayed, pending := s.Score()
	assert.Equal(t, uint64(30), displayed)
	assert.Equal(t, uint64(30), pending)

	s.Tick(ctx, time.Now())
	assert.Empty(t, b.Sent(), "neither threshold met")

	s.Tick(ctx, time.Now().Add(DefaultFlushInterval))
	sent := b.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "recordWeedCut", sent[0].Method)
	assert.Equal(t, uint64(30), sent[0].Args[0].(*big.Int).Uint64())

	displayed, pending = s.Score()
	assert.Equal(t, uint64(30), displayed)
	assert.Zero(t, pending)
	assert.Equal(t, uint64(30), s.Cache().Player().Stats.Score)
}

func TestService_TickOnDispatcher(t *testing.T) {
	b := testutil.NewBackend()
	newWorld(b)
	disp := NewDispatcher(context.Background(), 2)
	s := NewService(newTestExecutor(t, b, 1, ""), nil, disp, ServiceConfig{FlushThreshold: 5})
	ctx := context.Background()

	s.RecordCut(5)
	s.Tick(ctx, time.Now())
	disp.Close()

	var jobs []string
	for u := range disp.Updates() {
		assert.NoError(t, u.Err, u.Job)
		jobs = append(jobs, u.Job)
	}
	assert.Contains(t, jobs, jobFlush)
	assert.Zero(t, s.Aggregator().Pending())
}

func TestService_TickRetriesRefreshSkippedWhileBusy(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	w.addWeapon(testutil.Account0, "Old Knife", 0, 0, false)
	disp := NewDispatcher(context.Background(), 4)
	defer disp.Close()
	s := NewService(newTestExecutor(t, b, 0, ""), nil, disp, ServiceConfig{})
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.Len(t, s.Cache().Owned(), 1)

	// An owned refresh from an earlier tick still holds the job name.
	release := make(chan struct{})
	require.True(t, disp.Submit("refresh-owned", func(context.Context) error {
		<-release
		return nil
	}))
	fresh := w.addWeapon(testutil.Account0, "New Sword", 1, 0, false)
	b.SetHeight(5)

	now := time.Unix(1_700_000_000, 0)
	s.Tick(ctx, now)
	close(release)
	disp.Wait()
	assert.Len(t, s.Cache().Owned(), 1, "owned refresh for block 5 was not started")

	// No new block since, owned is still due.
	s.Tick(ctx, now.Add(time.Second))
	disp.Wait()
	assert.Contains(t, ids(s.Cache().Owned()), fresh)
	assert.Equal(t, uint64(5), s.Cache().Stamp(RefreshOwned).Height)
}

func TestService_SwitchAccount(t *testing.T) {
	b := testutil.NewBackend()
	w := newWorld(b)
	w.addWeapon(testutil.Account0, "Zero's Knife", 0, 0, false)
	theirs := w.addWeapon(testutil.Account1, "One's Axe", 2, 0, false)
	w.setStats(testutil.Account0, 100, 0)
	w.setStats(testutil.Account1, 40, 5)
	s := newTestService(t, b, 0, nil)
	ctx := context.Background()

	s.RecordCut(7)
	require.NoError(t, s.SwitchAccount(ctx, 1))

	sent := b.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "recordWeedCut", sent[0].Method)
	assert.Equal(t, testutil.Account0, sent[0].Request.From, "points go to the account that earned them")
	assert.Equal(t, uint64(7), sent[0].Args[0].(*big.Int).Uint64())
	assert.Equal(t, uint64(107), w.statsFor(testutil.Account0).Score)

	displayed, pending := s.Score()
	assert.Zero(t, pending)
	assert.Equal(t, uint64(40), displayed)
	assert.Equal(t, testutil.Account1, s.Gateway().Account())
	assert.Equal(t, []uint64{theirs}, ids(s.Cache().Owned()))
	assert.Equal(t, testutil.Account1, s.Cache().Player().Address)
	assert.Equal(t, uint64(40), s.Cache().Player().Stats.Score)

	// Switching to the active account changes nothing.
	require.NoError(t, s.SwitchAccount(ctx, 1))
	assert.Len(t, b.Sent(), 1)
}

func TestService_SwitchAccountDropsUndeliveredPoints(t *testing.T) {
	b := testutil.NewBackend()
	newWorld(b)
	s := newTestService(t, b, 0, nil)
	ctx := context.Background()

	b.FailSends(errors.New("nonce too low"))
	s.RecordCut(9)
	require.NoError(t, s.SwitchAccount(ctx, 2))

	assert.Empty(t, b.Sent())
	_, pending := s.Score()
	assert.Zero(t, pending, "never credited to the new account")
	assert.Equal(t, testutil.Account2, s.Gateway().Account())

	// The next flush carries only the new account's points.
	s.RecordCut(4)
	res, flushed := s.Aggregator().Flush(ctx)
	require.True(t, flushed)
	require.True(t, res.OK(), res.Err)
	sent := b.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testutil.Account2, sent[0].Request.From)
	assert.Equal(t, uint64(4), sent[0].Args[0].(*big.Int).Uint64())
}

func TestService_SwitchAccountErrors(t *testing.T) {
	b := testutil.NewBackend()
	newWorld(b)
	s := newTestService(t, b, 0, nil)
	ctx := context.Background()

	s.RecordCut(3)
	assert.ErrorIs(t, s.SwitchAccount(ctx, 3), ErrNoSuchAccount)
	assert.ErrorIs(t, s.SwitchAccount(ctx, -1), ErrNoSuchAccount)
	_, pending := s.Score()
	assert.Equal(t, uint64(3), pending, "a refused switch keeps the buffer")
	assert.Equal(t, testutil.Account0, s.Gateway().Account())

	off := NewService(offlineExecutor(), nil, nil, ServiceConfig{})
	assert.ErrorIs(t, off.SwitchAccount(ctx, 0), chain.ErrOffline)
}

func TestService_Offline(t *testing.T) {
	hidden := newMemHidden()
	s := NewService(offlineExecutor(), hidden, nil, ServiceConfig{})
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	_, res := s.MintRandomWeapon(ctx)
	assert.Equal(t, chain.StatusOffline, res.Status)
	assert.Equal(t, chain.StatusOffline, s.Purchase(ctx, 1).Status)
	assert.Equal(t, chain.StatusOffline, s.ListForSale(ctx, 1, big.NewInt(1)).Status)
	_, res = s.OpenCaseWithETH(ctx, 1)
	assert.Equal(t, chain.StatusOffline, res.Status)

	s.RecordCut(80)
	s.Tick(ctx, time.Now().Add(time.Hour))
	_, pending := s.Score()
	assert.Equal(t, uint64(80), pending)

	// Local deletion still works.
	assert.True(t, s.DeleteWeapon(ctx, 3).OK())
	assert.True(t, hidden.Contains(3))
}

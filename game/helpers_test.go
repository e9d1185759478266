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
	"encoding/json"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
	"github.com/Inaglyite/block-chain-game/contracts/weedcutter/contract"
	"github.com/Inaglyite/block-chain-game/internal/testutil"
)

type forSaleRow struct {
	Id               *big.Int
	Name             string
	Rarity           uint8
	DamageMultiplier *big.Int
	Owner            common.Address
	Price            *big.Int
	ForSale          bool
}

// world is a small in-memory WeedCutterNFT served through a testutil
// backend. Sent transactions are applied to it when mined.
type world struct {
	b *testutil.Backend

	mu      sync.Mutex
	weapons map[uint64]*weedcutter.WeaponInfo
	nextID  uint64
	stats   map[common.Address]*weedcutter.PlayerStats
	names   map[common.Address]string
	cases   []*weedcutter.CaseInfo
	caseInv map[common.Address]map[uint64]uint64
}

func newWorld(b *testutil.Backend) *world {
	w := &world{
		b:       b,
		weapons: make(map[uint64]*weedcutter.WeaponInfo),
		nextID:  1,
		stats:   make(map[common.Address]*weedcutter.PlayerStats),
		names:   make(map[common.Address]string),
		caseInv: make(map[common.Address]map[uint64]uint64),
	}
	b.Handle("owner", func([]interface{}) ([]interface{}, error) {
		return []interface{}{testutil.Account0}, nil
	})
	b.Handle("getUserWeapons", w.userWeapons)
	b.Handle("getWeaponDetails", w.weaponDetails)
	b.Handle("getWeaponsForSale", w.weaponsForSale)
	b.Handle("getNextWeaponId", func([]interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return []interface{}{new(big.Int).SetUint64(w.nextID)}, nil
	})
	b.Handle("getPlayerStats", func(args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		s := w.statsFor(args[0].(common.Address))
		return []interface{}{new(big.Int).SetUint64(s.Score), new(big.Int).SetUint64(s.Coins)}, nil
	})
	b.Handle("playerNames", func(args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return []interface{}{w.names[args[0].(common.Address)]}, nil
	})
	b.Handle("getPlayerRank", func([]interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(1), big.NewInt(1)}, nil
	})
	b.Handle("getLeaderboard", func([]interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		s := w.statsFor(testutil.Account1)
		return []interface{}{
			[]common.Address{testutil.Account1},
			[]string{w.names[testutil.Account1]},
			[]*big.Int{new(big.Int).SetUint64(s.Score)},
			[]*big.Int{big.NewInt(1)},
		}, nil
	})
	b.Handle("getNextCaseId", func([]interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return []interface{}{big.NewInt(int64(len(w.cases) + 1))}, nil
	})
	b.Handle("getCaseDetails", func(args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		id := args[0].(*big.Int).Uint64()
		if id == 0 || id > uint64(len(w.cases)) {
			return nil, testutil.ErrReverted
		}
		c := w.cases[id-1]
		return []interface{}{c.Name, c.Price, new(big.Int).SetUint64(c.CoinPrice)}, nil
	})
	b.Handle("getAllUserCaseInventory", func(args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		var ids, amounts []*big.Int
		inv := w.caseInv[args[0].(common.Address)]
		keys := make([]uint64, 0, len(inv))
		for id := range inv {
			keys = append(keys, id)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, id := range keys {
			ids = append(ids, new(big.Int).SetUint64(id))
			amounts = append(amounts, new(big.Int).SetUint64(inv[id]))
		}
		return []interface{}{ids, amounts}, nil
	})
	b.OnMine(w.mine)
	return w
}

func (w *world) statsFor(a common.Address) *weedcutter.PlayerStats {
	s, ok := w.stats[a]
	if !ok {
		s = new(weedcutter.PlayerStats)
		w.stats[a] = s
	}
	return s
}

func (w *world) addWeapon(owner common.Address, name string, rarity uint8, price int64, forSale bool) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.weapons[id] = &weedcutter.WeaponInfo{
		ID: id, Name: name, Rarity: rarity, DamageMultiplier: 100 + uint64(rarity)*30,
		Owner: owner, Price: big.NewInt(price), ForSale: forSale,
	}
	return id
}

func (w *world) setStats(a common.Address, score, coins uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	*w.statsFor(a) = weedcutter.PlayerStats{Score: score, Coins: coins}
}

func (w *world) userWeapons(args []interface{}) ([]interface{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	owner := args[0].(common.Address)
	var ids []*big.Int
	for id := uint64(1); id < w.nextID; id++ {
		if wp, ok := w.weapons[id]; ok && wp.Owner == owner {
			ids = append(ids, new(big.Int).SetUint64(id))
		}
	}
	return []interface{}{ids}, nil
}

func (w *world) weaponDetails(args []interface{}) ([]interface{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	wp, ok := w.weapons[args[0].(*big.Int).Uint64()]
	if !ok {
		return nil, testutil.ErrReverted
	}
	return []interface{}{
		new(big.Int).SetUint64(wp.ID), wp.Name, wp.Rarity,
		new(big.Int).SetUint64(wp.DamageMultiplier), wp.Owner, wp.Price, wp.ForSale,
	}, nil
}

func (w *world) weaponsForSale([]interface{}) ([]interface{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var rows []forSaleRow
	for id := uint64(1); id < w.nextID; id++ {
		wp, ok := w.weapons[id]
		if !ok || !wp.ForSale {
			continue
		}
		rows = append(rows, forSaleRow{
			Id: new(big.Int).SetUint64(wp.ID), Name: wp.Name, Rarity: wp.Rarity,
			DamageMultiplier: new(big.Int).SetUint64(wp.DamageMultiplier),
			Owner:            wp.Owner, Price: wp.Price, ForSale: true,
		})
	}
	return []interface{}{rows}, nil
}

// mine applies the state change of a sent transaction.
func (w *world) mine(tx testutil.SentTx) (uint64, []*types.Log) {
	w.mu.Lock()
	defer w.mu.Unlock()
	from := tx.Request.From
	switch tx.Method {
	case "recordWeedCut":
		pts := tx.Args[0].(*big.Int).Uint64()
		s := w.statsFor(from)
		s.Score += pts
		s.Coins += pts / 10
	case "mintWeapon":
		to := tx.Args[0].(common.Address)
		id := w.nextID
		w.nextID++
		w.weapons[id] = &weedcutter.WeaponInfo{
			ID: id, Name: tx.Args[1].(string), Rarity: tx.Args[2].(uint8),
			DamageMultiplier: tx.Args[3].(*big.Int).Uint64(), Owner: to, Price: new(big.Int),
		}
	case "listWeaponForSale":
		wp := w.weapons[tx.Args[0].(*big.Int).Uint64()]
		if wp == nil || wp.Owner != from {
			return types.ReceiptStatusFailed, nil
		}
		wp.Price, wp.ForSale = tx.Args[1].(*big.Int), true
	case "purchaseWeapon":
		wp := w.weapons[tx.Args[0].(*big.Int).Uint64()]
		if wp == nil || !wp.ForSale || tx.Request.Value == nil || tx.Request.Value.Cmp(wp.Price) != 0 {
			return types.ReceiptStatusFailed, nil
		}
		wp.Owner, wp.ForSale = from, false
	case "openCaseWithCoins", "openCaseFromInventory":
		caseID := tx.Args[0].(*big.Int).Uint64()
		if caseID == 0 || caseID > uint64(len(w.cases)) {
			return types.ReceiptStatusFailed, nil
		}
		c := w.cases[caseID-1]
		if tx.Method == "openCaseWithCoins" {
			s := w.statsFor(from)
			if s.Coins < c.CoinPrice {
				return types.ReceiptStatusFailed, nil
			}
			s.Coins -= c.CoinPrice
		} else {
			if w.caseInv[from][caseID] == 0 {
				return types.ReceiptStatusFailed, nil
			}
			w.caseInv[from][caseID]--
		}
		id := w.nextID
		w.nextID++
		w.weapons[id] = &weedcutter.WeaponInfo{ID: id, Name: "Case Drop", DamageMultiplier: 100, Owner: from, Price: new(big.Int)}
		lg := w.b.EventLog("CaseOpened",
			[]common.Hash{common.BytesToHash(from.Bytes()), common.BigToHash(new(big.Int).SetUint64(caseID))},
			new(big.Int).SetUint64(id))
		return types.ReceiptStatusSuccessful, []*types.Log{lg}
	case "purchaseCase":
		caseID := tx.Args[0].(*big.Int).Uint64()
		if w.caseInv[from] == nil {
			w.caseInv[from] = make(map[uint64]uint64)
		}
		w.caseInv[from][caseID] += tx.Args[1].(*big.Int).Uint64()
	case "setPlayerName":
		w.names[from] = tx.Args[0].(string)
	}
	return types.ReceiptStatusSuccessful, nil
}

// abiWithout returns the reference ABI document minus the named methods.
func abiWithout(t *testing.T, methods ...string) string {
	t.Helper()
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(contract.WeedCutterABI), &entries))
	drop := make(map[string]bool)
	for _, m := range methods {
		drop[m] = true
	}
	kept := entries[:0]
	for _, e := range entries {
		if name, _ := e["name"].(string); e["type"] == "function" && drop[name] {
			continue
		}
		kept = append(kept, e)
	}
	out, err := json.Marshal(kept)
	require.NoError(t, err)
	return string(out)
}

// newTestExecutor sets up a session on account index against b. abiJSON
// empty means the reference ABI.
func newTestExecutor(t *testing.T, b *testutil.Backend, index int, abiJSON string) *chain.Executor {
	t.Helper()
	dir := t.TempDir()
	abiPath := testutil.WriteABI(t, dir, "WeedCutterNFT.json")
	if abiJSON != "" {
		abiPath = testutil.WriteFile(t, dir, "custom/WeedCutterNFT.json", `{"abi": `+abiJSON+`}`)
	}
	resolver := chain.NewResolver(
		[]string{abiPath},
		[]string{testutil.WriteDeployment(t, dir, "contract-info.json", testutil.ContractAddress)},
	)
	sess := chain.NewSession(b, resolver, "http://127.0.0.1:8545", index)
	sess.Setup(context.Background())
	require.True(t, sess.Available(), sess.Reason())
	return chain.NewExecutor(sess, chain.NewMemoryJournal(), chain.ExecutorConfig{
		ReceiptTimeout: 200 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
		RetryBackoff:   time.Millisecond,
	})
}

func offlineExecutor() *chain.Executor {
	return chain.NewExecutor(chain.OfflineSession("http://127.0.0.1:8545", chain.ErrUnreachable), nil, chain.ExecutorConfig{})
}

type memHidden struct {
	mu  sync.Mutex
	ids map[uint64]bool
}

func newMemHidden(ids ...uint64) *memHidden {
	h := &memHidden{ids: make(map[uint64]bool)}
	for _, id := range ids {
		h.ids[id] = true
	}
	return h
}

func (h *memHidden) Contains(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ids[id]
}

func (h *memHidden) Add(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids[id] = true
}

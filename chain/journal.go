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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Inaglyite/block-chain-game/ledger"
)

// Journal entry states.
const (
	JournalPending   = "pending"
	JournalConfirmed = "confirmed"
	JournalFailed    = "failed"
)

const journalPrefix = "tx:"

// Entry is one journaled transaction.
type Entry struct {
	Hash        common.Hash    `json:"hash"`
	Method      string         `json:"method"`
	From        common.Address `json:"from"`
	Nonce       uint64         `json:"nonce"`
	Status      string         `json:"status"`
	SubmittedAt int64          `json:"submitted_at"`
	Block       uint64         `json:"block,omitempty"`
}

// Journal persists every submitted transaction so that outcomes left unknown
// by a receipt timeout can be settled later. A nil *Journal is valid and
// records nothing.
type Journal struct {
	mu  sync.Mutex
	db  *leveldb.DB
	log log.Logger
}

// OpenJournal opens (or creates) a journal database in dir.
func OpenJournal(dir string) (*Journal, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: open journal %q: %w", dir, err)
	}
	return &Journal{db: db, log: log.New("module", "journal")}, nil
}

// NewMemoryJournal returns a journal that lives only in memory.
func NewMemoryJournal() *Journal {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic(err) // memory storage cannot fail to open
	}
	return &Journal{db: db, log: log.New("module", "journal")}
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}

// Get returns the entry for hash.
func (j *Journal) Get(hash common.Hash) (*Entry, error) {
	data, err := j.db.Get(journalKey(hash), nil)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Put stores e, replacing any previous entry for the same hash.
func (j *Journal) Put(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return j.db.Put(journalKey(e.Hash), data, nil)
}

// Entries returns every journaled transaction, oldest first.
func (j *Journal) Entries() ([]Entry, error) {
	it := j.db.NewIterator(util.BytesPrefix([]byte(journalPrefix)), nil)
	defer it.Release()

	var entries []Entry
	for it.Next() {
		var e Entry
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			j.log.Warn("Skipping corrupt journal entry", "key", string(it.Key()), "err", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].SubmittedAt != entries[b].SubmittedAt {
			return entries[a].SubmittedAt < entries[b].SubmittedAt
		}
		return entries[a].Nonce < entries[b].Nonce
	})
	return entries, nil
}

// Pending returns the entries whose outcome is still unknown.
func (j *Journal) Pending() ([]Entry, error) {
	all, err := j.Entries()
	if err != nil {
		return nil, err
	}
	var pending []Entry
	for _, e := range all {
		if e.Status == JournalPending {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Reconcile looks up receipts for every pending entry and records the final
// status of those that have been mined. It returns the settled entries.
func (j *Journal) Reconcile(ctx context.Context, backend ledger.Backend) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	pending, err := j.Pending()
	if err != nil {
		return nil, err
	}
	var settled []Entry
	for _, e := range pending {
		receipt, err := backend.TransactionReceipt(ctx, e.Hash)
		if errors.Is(err, ethereum.NotFound) {
			continue
		}
		if err != nil {
			return settled, fmt.Errorf("chain: receipt for %s: %w", e.Hash.Hex(), err)
		}
		applyReceipt(&e, receipt)
		if err := j.Put(e); err != nil {
			return settled, err
		}
		j.log.Info("Reconciled transaction", "tx", e.Hash.Hex(), "method", e.Method, "status", e.Status, "block", e.Block)
		settled = append(settled, e)
	}
	return settled, nil
}

func (j *Journal) submitted(e Entry) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.Put(e); err != nil {
		j.log.Warn("Journal write failed", "tx", e.Hash.Hex(), "err", err)
	}
}

func (j *Journal) complete(hash common.Hash, receipt *types.Receipt) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	e, err := j.Get(hash)
	if err != nil {
		j.log.Warn("Journal lookup failed", "tx", hash.Hex(), "err", err)
		return
	}
	applyReceipt(e, receipt)
	if err := j.Put(*e); err != nil {
		j.log.Warn("Journal write failed", "tx", hash.Hex(), "err", err)
	}
}

func applyReceipt(e *Entry, receipt *types.Receipt) {
	e.Status = JournalFailed
	if receipt.Status == types.ReceiptStatusSuccessful {
		e.Status = JournalConfirmed
	}
	if receipt.BlockNumber != nil {
		e.Block = receipt.BlockNumber.Uint64()
	}
}

func journalKey(hash common.Hash) []byte {
	return []byte(journalPrefix + hash.Hex())
}

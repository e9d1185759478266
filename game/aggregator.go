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
)

// Aggregator defaults.
const (
	DefaultFlushThreshold = 50
	DefaultFlushInterval  = 3 * time.Second
)

// ScoreLedger is what the aggregator needs from the chain.
type ScoreLedger interface {
	Available() bool
	RecordWeedCut(ctx context.Context, points uint64) chain.Result
	PlayerStats(ctx context.Context) (weedcutter.PlayerStats, error)
}

// Aggregator buffers score increments locally and writes them to the ledger
// in batches, once enough points have piled up or enough time has passed.
// Points are removed from the buffer only after a flush attempt resolves
// in a way that does not lose them: a mined receipt, or a transaction the
// node accepted under a known hash.
type Aggregator struct {
	ledger    ScoreLedger
	threshold uint64
	interval  time.Duration
	log       log.Logger

	mu        sync.Mutex
	pending   uint64
	score     uint64 // authoritative, as last read from the ledger
	coins     uint64
	lastFlush time.Time
	inFlight  bool
	epoch     uint64 // bumped by Discard; a flush from an older epoch leaves the buffer alone
}

// NewAggregator creates an aggregator. Zero threshold or interval take the
// defaults; now starts the interval clock.
func NewAggregator(ledger ScoreLedger, threshold uint64, interval time.Duration, now time.Time) *Aggregator {
	if threshold == 0 {
		threshold = DefaultFlushThreshold
	}
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Aggregator{
		ledger:    ledger,
		threshold: threshold,
		interval:  interval,
		lastFlush: now,
		log:       log.New("module", "aggregator"),
	}
}

// Sync replaces the authoritative score and coins with the ledger's.
func (a *Aggregator) Sync(ctx context.Context) error {
	if !a.ledger.Available() {
		return chain.ErrOffline
	}
	stats, err := a.ledger.PlayerStats(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.score, a.coins = stats.Score, stats.Coins
	a.mu.Unlock()
	return nil
}

// AddPoints buffers delta points. The displayed score moves immediately.
func (a *Aggregator) AddPoints(delta uint64) {
	if delta == 0 {
		return
	}
	a.mu.Lock()
	a.pending += delta
	a.mu.Unlock()
}

// Due reports whether a flush would be attempted at now.
func (a *Aggregator) Due(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dueLocked(now)
}

func (a *Aggregator) dueLocked(now time.Time) bool {
	if a.inFlight || a.pending == 0 {
		return false
	}
	return a.pending >= a.threshold || now.Sub(a.lastFlush) >= a.interval
}

// MaybeFlush writes the buffered points if a threshold is met. It returns
// whether an attempt was made and its result. A flush already in flight is
// never started again. Offline, points keep accumulating and nothing is
// sent.
func (a *Aggregator) MaybeFlush(ctx context.Context, now time.Time) (chain.Result, bool) {
	return a.flush(ctx, now, false)
}

// Flush writes whatever is buffered now, thresholds or not.
func (a *Aggregator) Flush(ctx context.Context) (chain.Result, bool) {
	return a.flush(ctx, time.Now(), true)
}

// Discard empties the buffer and returns the points dropped. A flush in
// flight finishes without touching the buffer or the score.
func (a *Aggregator) Discard() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.pending
	a.pending = 0
	a.epoch++
	return n
}

func (a *Aggregator) flush(ctx context.Context, now time.Time, force bool) (chain.Result, bool) {
	if !a.ledger.Available() {
		return chain.Result{Status: chain.StatusOffline, Err: chain.ErrOffline}, false
	}
	a.mu.Lock()
	if a.inFlight || a.pending == 0 || (!force && !a.dueLocked(now)) {
		a.mu.Unlock()
		return chain.Result{}, false
	}
	n, epoch := a.pending, a.epoch
	a.inFlight = true
	a.lastFlush = now
	a.mu.Unlock()

	a.log.Debug("Flushing points", "points", n)
	res := a.ledger.RecordWeedCut(ctx, n)

	var stats *weedcutter.PlayerStats
	if res.Status == chain.StatusSuccess {
		if s, err := a.ledger.PlayerStats(ctx); err != nil {
			a.log.Warn("Re-reading score after flush failed", "err", err)
		} else {
			stats = &s
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight = false
	if epoch != a.epoch {
		a.log.Debug("Buffer discarded during flush", "points", n, "status", res.Status)
		return res, true
	}
	switch {
	case res.Status == chain.StatusSuccess,
		res.Status == chain.StatusPending && res.Hash != (common.Hash{}):
		a.pending -= n
		if stats != nil {
			a.score, a.coins = stats.Score, stats.Coins
		} else {
			a.score += n
		}
		if res.Status == chain.StatusPending {
			a.log.Warn("Score flush outcome unknown, awaiting refresh", "points", n, "tx", res.Hash.Hex())
		} else {
			a.log.Info("Flushed points", "points", n, "score", a.score)
		}
	default:
		a.log.Warn("Score flush failed, points kept for retry", "points", n, "status", res.Status, "err", res.Err)
	}
	return res, true
}

// Displayed is the score shown to the player: the authoritative score plus
// everything not yet confirmed.
func (a *Aggregator) Displayed() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score + a.pending
}

// Pending returns the points not yet written.
func (a *Aggregator) Pending() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Score returns the last authoritative score.
func (a *Aggregator) Score() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score
}

// Coins returns the last authoritative coin balance.
func (a *Aggregator) Coins() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coins
}

// InFlight reports whether a flush is running.
func (a *Aggregator) InFlight() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight
}

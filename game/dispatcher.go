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

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Update reports a finished background job to the game loop.
type Update struct {
	Job      string
	Err      error
	Duration time.Duration
}

// Dispatcher runs ledger work on a bounded pool so the game loop never
// blocks on the network. Jobs with the same name never run concurrently;
// a job submitted while its namesake is running, or while the pool is
// full, is not started and Submit reports false. Callers keep the work
// due on their side so a later tick plans it again.
type Dispatcher struct {
	ctx     context.Context
	grp     *errgroup.Group
	updates chan Update
	log     log.Logger

	mu     sync.Mutex
	busy   map[string]bool
	closed bool
}

// NewDispatcher creates a pool of workers goroutines. Jobs run under ctx.
func NewDispatcher(ctx context.Context, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	grp := new(errgroup.Group)
	grp.SetLimit(workers)
	return &Dispatcher{
		ctx:     ctx,
		grp:     grp,
		updates: make(chan Update, 64),
		busy:    make(map[string]bool),
		log:     log.New("module", "dispatcher"),
	}
}

// Updates delivers job completions. It is closed by Close.
func (d *Dispatcher) Updates() <-chan Update { return d.updates }

// Submit starts fn as job name if a worker is free. It reports whether the
// job was accepted.
func (d *Dispatcher) Submit(name string, fn func(ctx context.Context) error) bool {
	d.mu.Lock()
	if d.closed || d.busy[name] {
		d.mu.Unlock()
		return false
	}
	d.busy[name] = true
	d.mu.Unlock()

	started := d.grp.TryGo(func() error {
		start := time.Now()
		err := fn(d.ctx)

		d.mu.Lock()
		delete(d.busy, name)
		d.mu.Unlock()

		d.deliver(Update{Job: name, Err: err, Duration: time.Since(start)})
		return nil
	})
	if !started {
		d.mu.Lock()
		delete(d.busy, name)
		d.mu.Unlock()
		d.log.Debug("Worker pool full, dropping job", "job", name)
	}
	return started
}

// Busy reports whether job name is running.
func (d *Dispatcher) Busy(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy[name]
}

func (d *Dispatcher) deliver(u Update) {
	select {
	case d.updates <- u:
	default:
		d.log.Warn("Update channel full, dropping update", "job", u.Job, "err", u.Err)
	}
}

// Wait blocks until every accepted job finished.
func (d *Dispatcher) Wait() {
	d.grp.Wait()
}

// Close stops accepting jobs, waits for running ones and closes Updates.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.grp.Wait()
	close(d.updates)
}

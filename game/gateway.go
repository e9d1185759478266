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

// Package game is the surface the game loop consumes: the pending score
// aggregator, the snapshot cache of ledger state, the worker pool that keeps
// ledger calls off the loop, and the Service command façade. Every entry
// point checks the session's availability first and degrades to local,
// deterministic results when the ledger is offline.
package game

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
)

// Gateway joins the session and the executor into the view the game needs:
// reads for the active account and the score write.
type Gateway struct {
	session *chain.Session
	exec    *chain.Executor
}

// NewGateway wraps exec and the session it sends for.
func NewGateway(exec *chain.Executor) *Gateway {
	return &Gateway{session: exec.Session(), exec: exec}
}

// Session returns the underlying session.
func (g *Gateway) Session() *chain.Session { return g.session }

// Executor returns the underlying executor.
func (g *Gateway) Executor() *chain.Executor { return g.exec }

// Available reports whether the ledger may be used.
func (g *Gateway) Available() bool { return g.session.Available() }

// Account returns the active account.
func (g *Gateway) Account() common.Address { return g.session.Account() }

// Contract returns the bound contract, nil when offline.
func (g *Gateway) Contract() *weedcutter.WeedCutter {
	if !g.session.Available() {
		return nil
	}
	return g.session.Contract()
}

// BlockNumber returns the ledger height.
func (g *Gateway) BlockNumber(ctx context.Context) (uint64, error) {
	return g.session.BlockNumber(ctx)
}

// PlayerStats reads the active account's score and coins.
func (g *Gateway) PlayerStats(ctx context.Context) (weedcutter.PlayerStats, error) {
	c := g.Contract()
	if c == nil {
		return weedcutter.PlayerStats{}, chain.ErrOffline
	}
	return c.PlayerStats(ctx, g.session.Account())
}

// RecordWeedCut writes points for the active account.
func (g *Gateway) RecordWeedCut(ctx context.Context, points uint64) chain.Result {
	return g.exec.RecordWeedCut(ctx, points)
}

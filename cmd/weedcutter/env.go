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

package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/urfave/cli/v2"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/config"
	"github.com/Inaglyite/block-chain-game/game"
	"github.com/Inaglyite/block-chain-game/ledger"
	"github.com/Inaglyite/block-chain-game/localstore"
	"github.com/Inaglyite/block-chain-game/trade"
)

// env is everything a command may need, built once per invocation.
type env struct {
	cfg      config.Config
	client   *ledger.Client
	session  *chain.Session
	journal  *chain.Journal
	exec     *chain.Executor
	hidden   *localstore.Hidden
	svc      *game.Service
	registry *trade.Registry
	offers   *trade.Offers
}

// loadConfig reads the configuration and applies the global flags on top.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return cfg, err
	}
	if c.IsSet(rpcFlag.Name) {
		cfg.RPCURL = c.String(rpcFlag.Name)
	}
	if c.IsSet(accountFlag.Name) {
		cfg.AccountIndex = c.Int(accountFlag.Name)
	}
	return cfg, cfg.Validate()
}

// newEnv connects to the ledger and wires the game services. Contract
// resolution failures are fatal; any other ledger failure leaves the client
// in offline mode.
func newEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Context
	e := &env{cfg: cfg}

	client, err := ledger.Dial(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		e.session = chain.OfflineSession(cfg.RPCURL, err)
	} else {
		e.client = client
		e.session = chain.NewSession(client, chain.NewResolver(cfg.ABIPaths, cfg.AddressPaths), cfg.RPCURL, cfg.AccountIndex)
		e.session.Setup(ctx)
	}
	var rerr *chain.ResolveError
	if errors.As(e.session.Err(), &rerr) {
		e.close()
		return nil, rerr
	}
	if !e.session.Available() {
		log.Warn("Running in offline mode", "reason", e.session.Reason())
	}

	if cfg.JournalDir != "" {
		if e.journal, err = chain.OpenJournal(cfg.JournalDir); err != nil {
			log.Warn("Transaction journal unavailable", "err", err)
		}
	}
	e.exec = chain.NewExecutor(e.session, e.journal, cfg.Executor())
	e.hidden = localstore.OpenHidden(cfg.HiddenStore)

	e.svc = game.NewService(e.exec, e.hidden, nil, cfg.Service())

	e.registry = trade.NewRegistry(localstore.OpenUsers(cfg.UserStore), trade.RegistryConfig{
		Pool: func() []common.Address {
			if e.session.Available() {
				return e.session.Accounts()
			}
			return cfg.Pool()
		},
	})
	e.offers = trade.NewOffers(e.exec)
	return e, nil
}

func (e *env) close() {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			log.Warn("Closing journal failed", "err", err)
		}
	}
	if e.client != nil {
		e.client.Close()
	}
}

// start loads the snapshot cache.
func (e *env) start(ctx context.Context) error {
	if err := e.svc.Start(ctx); err != nil && !errors.Is(err, chain.ErrOffline) {
		return err
	}
	return nil
}

// withEnv adapts a command body that needs an env.
func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := newEnv(c)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(c, e)
	}
}

// withLoadedEnv is withEnv with the snapshot cache loaded.
func withLoadedEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return withEnv(func(c *cli.Context, e *env) error {
		if err := e.start(c.Context); err != nil {
			return err
		}
		return fn(c, e)
	})
}

// report prints the outcome of a write and turns failures into errors.
func report(what string, res chain.Result) error {
	switch res.Status {
	case chain.StatusSuccess:
		block := uint64(0)
		if res.Receipt != nil && res.Receipt.BlockNumber != nil {
			block = res.Receipt.BlockNumber.Uint64()
		}
		fmt.Printf("%s: ok (tx %s, block %d)\n", what, res.Hash.Hex(), block)
		return nil
	case chain.StatusPending:
		fmt.Printf("%s: still pending (tx %s); run `journal reconcile` later\n", what, res.Hash.Hex())
		return nil
	}
	if res.Err != nil {
		return fmt.Errorf("%s: %s: %w", what, res.Status, res.Err)
	}
	return fmt.Errorf("%s: %s", what, res.Status)
}

func argUint(c *cli.Context, i int, name string) (uint64, error) {
	s := c.Args().Get(i)
	if s == "" {
		return 0, fmt.Errorf("missing <%s>", name)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid <%s> %q: %w", name, s, err)
	}
	return n, nil
}

// parseEther converts a decimal amount of ether into wei.
func parseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	r.Mul(r, new(big.Rat).SetInt64(params.Ether))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q has more precision than wei", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// formatEther renders wei as ether.
func formatEther(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return f.Text('f', 4) + " ETH"
}

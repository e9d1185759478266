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
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
	"github.com/Inaglyite/block-chain-game/ledger"
)

// Session errors.
var (
	ErrOffline     = errors.New("chain: ledger unavailable (offline mode)")
	ErrUnreachable = errors.New("chain: ledger unreachable")
	ErrNoAccounts  = errors.New("chain: node exposes no unlocked accounts")
	ErrNotOwner    = errors.New("chain: contract owner is not an unlocked node account")
)

// Session owns the active identity: the resolved contract, the node's
// account list, the active account and whether the ledger is usable at all.
// Only Setup and SwitchAccount mutate it; everything else reads.
type Session struct {
	backend   ledger.Backend
	resolver  *Resolver
	rpcURL    string
	requested int

	mu             sync.RWMutex
	available      bool
	reason         string
	err            error
	resolution     *Resolution
	contract       *weedcutter.WeedCutter
	accounts       []common.Address
	index          int
	account        common.Address
	owner          common.Address
	ownerAvailable bool

	log log.Logger
}

// NewSession creates a session that will use accountIndex once set up. The
// session starts offline; call Setup.
func NewSession(backend ledger.Backend, resolver *Resolver, rpcURL string, accountIndex int) *Session {
	if resolver == nil {
		resolver = NewResolver(nil, nil)
	}
	return &Session{
		backend:   backend,
		resolver:  resolver,
		rpcURL:    rpcURL,
		requested: accountIndex,
		reason:    "not set up",
		log:       log.New("module", "session"),
	}
}

// OfflineSession returns a session that is permanently offline, for when no
// connection to the node could even be created.
func OfflineSession(rpcURL string, err error) *Session {
	s := NewSession(nil, nil, rpcURL, 0)
	s.goOffline(err)
	return s
}

// Setup performs the startup handshake: liveness check, contract
// resolution, account selection and the best-effort owner lookup. It never
// fails; on any error the session goes offline and keeps the reason.
func (s *Session) Setup(ctx context.Context) {
	if s.backend == nil {
		s.goOffline(fmt.Errorf("%w: no connection", ErrUnreachable))
		return
	}
	if err := s.setup(ctx); err != nil {
		s.goOffline(err)
	}
}

func (s *Session) setup(ctx context.Context) error {
	s.log.Info("Connecting to ledger", "rpc", s.rpcURL)
	height, err := s.backend.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading block height: %v", ErrUnreachable, err)
	}
	s.log.Info("Connected to ledger", "block", height)

	res, err := s.resolver.Resolve(ctx, func(ctx context.Context, addr common.Address) ([]byte, error) {
		return s.backend.CodeAt(ctx, addr, nil)
	})
	if err != nil {
		return err
	}
	contract := weedcutter.NewWeedCutter(res.ABI, res.Address, s.backend)

	accounts, err := s.backend.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("chain: listing accounts: %w", err)
	}
	if len(accounts) == 0 {
		return ErrNoAccounts
	}
	idx := s.requested
	if idx < 0 {
		idx = 0
	}
	if idx > len(accounts)-1 {
		idx = len(accounts) - 1
	}
	if idx != s.requested {
		s.log.Warn("Requested account index out of range, falling back", "requested", s.requested, "using", idx)
	}
	s.log.Info("Using account", "index", idx, "address", accounts[idx].Hex())

	var (
		owner          common.Address
		ownerAvailable bool
	)
	if o, err := contract.Owner(ctx); err != nil {
		s.log.Warn("Cannot read contract owner, minting disabled", "err", err)
	} else {
		owner = o
		ownerAvailable = containsAddress(accounts, o)
		if ownerAvailable {
			s.log.Info("Contract owner is an unlocked account", "owner", o.Hex())
		} else {
			s.log.Warn("Contract owner not among node accounts, minting may be restricted", "owner", o.Hex())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolution = res
	s.contract = contract
	s.accounts = accounts
	s.index = idx
	s.account = accounts[idx]
	s.owner = owner
	s.ownerAvailable = ownerAvailable
	s.available = true
	s.reason = ""
	s.err = nil
	s.log.Info("Ledger session ready", "contract", res.Address.Hex(), "abi", res.ABIPath, "deployment", res.AddressPath)
	return nil
}

func (s *Session) goOffline(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = false
	s.err = err
	s.reason = fmt.Sprintf("%v (RPC: %s)", err, s.rpcURL)
	s.log.Error("Ledger setup failed, entering offline mode", "err", err, "rpc", s.rpcURL)
}

// SwitchAccount makes accounts[index] the active account. It does not re-run
// Setup.
func (s *Session) SwitchAccount(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return false
	}
	if index < 0 || index >= len(s.accounts) {
		s.log.Warn("Account index out of range", "index", index, "accounts", len(s.accounts))
		return false
	}
	s.index = index
	s.account = s.accounts[index]
	s.log.Info("Switched account", "index", index, "address", s.account.Hex())
	return true
}

// Available reports whether the ledger may be used. It is the only place
// online-ness is decided.
func (s *Session) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

// Reason is a human-readable explanation of why the session is offline.
func (s *Session) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Err returns the error that sent the session offline, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Account returns the active account; the zero address when offline.
func (s *Session) Account() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// Index returns the active account index.
func (s *Session) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Accounts returns the node's accounts; empty when offline.
func (s *Session) Accounts() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.available {
		return nil
	}
	return append([]common.Address(nil), s.accounts...)
}

// Contract returns the resolved contract, nil before a successful Setup.
func (s *Session) Contract() *weedcutter.WeedCutter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contract
}

// Resolution returns how the contract was resolved.
func (s *Session) Resolution() *Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolution
}

// Owner returns the contract owner and whether it is an unlocked account of
// the node, which gates owner-only operations.
func (s *Session) Owner() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, s.ownerAvailable
}

// OwnerAvailable reports whether owner-only operations can be sent.
func (s *Session) OwnerAvailable() bool {
	_, ok := s.Owner()
	return ok
}

// RPCURL returns the endpoint the session talks to.
func (s *Session) RPCURL() string { return s.rpcURL }

// Backend returns the ledger backend, nil for an OfflineSession.
func (s *Session) Backend() ledger.Backend { return s.backend }

// BlockNumber returns the current ledger height.
func (s *Session) BlockNumber(ctx context.Context) (uint64, error) {
	if !s.Available() {
		return 0, ErrOffline
	}
	return s.backend.BlockNumber(ctx)
}

// Balance returns the active account's balance in wei, zero when offline or
// on error.
func (s *Session) Balance(ctx context.Context) *big.Int {
	if !s.Available() {
		return new(big.Int)
	}
	bal, err := s.backend.BalanceAt(ctx, s.Account())
	if err != nil {
		s.log.Warn("Balance lookup failed", "err", err)
		return new(big.Int)
	}
	return bal
}

func containsAddress(list []common.Address, addr common.Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

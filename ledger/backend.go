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

// Package ledger is the thin JSON-RPC leaf the sync layer talks to. It knows
// nothing about weapons, scores or trades; it only moves bytes and numbers
// between the client and an Ethereum node whose accounts are unlocked and
// signed for by the node itself.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the set of node operations consumed by the session, the
// transaction executor and the snapshot cache. It embeds bind.ContractCaller
// so a Backend can be handed straight to a bound contract for reads.
type Backend interface {
	bind.ContractCaller

	// BlockNumber returns the current head height. It doubles as the
	// liveness check.
	BlockNumber(ctx context.Context) (uint64, error)

	// Accounts lists the node's unlocked accounts (eth_accounts).
	Accounts(ctx context.Context) ([]common.Address, error)

	// BalanceAt returns the balance of account at the latest block.
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)

	// SuggestGasPrice returns the node's current legacy gas price.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// PendingNonceAt returns the pending-inclusive transaction count.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)

	// NonceAt returns the confirmed transaction count at blockNumber
	// (nil means latest).
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)

	// EstimateGas simulates msg and returns the gas it would use.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)

	// SendManagedTransaction submits req for the node to sign with an
	// unlocked account (eth_sendTransaction) and returns its hash.
	SendManagedTransaction(ctx context.Context, req TxRequest) (common.Hash, error)

	// TransactionReceipt returns the receipt of a mined transaction, or
	// ethereum.NotFound while it is still pending.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// Close releases the underlying connection.
	Close()
}

// TxRequest is a legacy-priced transaction handed to the node for signing.
type TxRequest struct {
	From     common.Address
	To       common.Address
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int // nil for non-payable calls
	Data     []byte
	Nonce    uint64
}

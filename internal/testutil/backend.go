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

// Package testutil provides an in-memory ledger node for tests. Contract
// calls are dispatched by 4-byte selector to per-method handlers and their
// results are packed with the real ABI, so bindings are exercised end to end
// without a running node.
package testutil

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
	"github.com/Inaglyite/block-chain-game/ledger"
)

// ErrReverted is returned for calls to methods without a handler.
var ErrReverted = errors.New("execution reverted")

// Handler answers an eth_call for one contract method.
type Handler func(args []interface{}) ([]interface{}, error)

// SentTx is a transaction the backend accepted.
type SentTx struct {
	Request ledger.TxRequest
	Method  string
	Args    []interface{}
	Hash    common.Hash
}

// MineFunc decides the outcome of a sent transaction. It returns the receipt
// status and any logs to attach.
type MineFunc func(tx SentTx) (status uint64, logs []*types.Log)

// Backend is an in-memory ledger.Backend.
type Backend struct {
	mu sync.Mutex

	abi      abi.ABI
	contract common.Address

	height      uint64
	heightErr   error
	accounts    []common.Address
	accountsErr error
	code        map[common.Address][]byte
	balances    map[common.Address]*big.Int

	gasPrice       *big.Int
	gasPriceErr    error
	estimate       uint64
	estimateErr    error
	pendingNonce   map[common.Address]uint64
	pendingErr     error
	confirmedNonce map[common.Address]uint64

	sendErrs  []error
	onSend    func(req ledger.TxRequest) error
	sent      []SentTx
	receipts  map[common.Hash]*types.Receipt
	withhold  bool
	mine      MineFunc
	handlers  map[string]Handler
	callCount map[string]int
}

// Accounts used by NewBackend, mirroring a local development node.
var (
	Account0 = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	Account1 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	Account2 = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")

	ContractAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

// NewBackend returns a live node with three unlocked accounts and the
// reference WeedCutterNFT contract deployed at ContractAddress.
func NewBackend() *Backend {
	parsed, err := weedcutter.DefaultABI()
	if err != nil {
		panic(err)
	}
	return NewBackendWithABI(parsed)
}

// NewBackendWithABI is NewBackend with a custom contract ABI.
func NewBackendWithABI(parsed abi.ABI) *Backend {
	return &Backend{
		abi:            parsed,
		contract:       ContractAddress,
		height:         1,
		accounts:       []common.Address{Account0, Account1, Account2},
		code:           map[common.Address][]byte{ContractAddress: {0x60, 0x80, 0x60, 0x40}},
		balances:       make(map[common.Address]*big.Int),
		gasPrice:       big.NewInt(1_000_000_000),
		estimate:       100_000,
		pendingNonce:   make(map[common.Address]uint64),
		confirmedNonce: make(map[common.Address]uint64),
		receipts:       make(map[common.Hash]*types.Receipt),
		handlers:       make(map[string]Handler),
		callCount:      make(map[string]int),
	}
}

// ABI returns the contract ABI the backend decodes calls with.
func (b *Backend) ABI() abi.ABI { return b.abi }

// ──────────────────────────────────────────────
//  Configuration
// ──────────────────────────────────────────────

func (b *Backend) SetHeight(h uint64)         { b.with(func() { b.height = h }) }
func (b *Backend) SetHeightErr(err error)     { b.with(func() { b.heightErr = err }) }
func (b *Backend) SetAccountsErr(err error)   { b.with(func() { b.accountsErr = err }) }
func (b *Backend) SetGasPrice(p *big.Int)     { b.with(func() { b.gasPrice = p }) }
func (b *Backend) SetGasPriceErr(err error)   { b.with(func() { b.gasPriceErr = err }) }
func (b *Backend) SetEstimate(gas uint64)     { b.with(func() { b.estimate = gas }) }
func (b *Backend) SetEstimateErr(err error)   { b.with(func() { b.estimateErr = err }) }
func (b *Backend) SetPendingNonceErr(e error) { b.with(func() { b.pendingErr = e }) }
func (b *Backend) WithholdReceipts(w bool)    { b.with(func() { b.withhold = w }) }
func (b *Backend) OnMine(fn MineFunc)         { b.with(func() { b.mine = fn }) }

// SetAccounts replaces the unlocked account list.
func (b *Backend) SetAccounts(accounts ...common.Address) {
	b.with(func() { b.accounts = accounts })
}

// SetCode deploys code at addr. Empty code removes the contract.
func (b *Backend) SetCode(addr common.Address, code []byte) {
	b.with(func() { b.code[addr] = code })
}

// SetBalance sets the balance of addr.
func (b *Backend) SetBalance(addr common.Address, wei *big.Int) {
	b.with(func() { b.balances[addr] = wei })
}

// SetNonces sets the pending and confirmed nonce of addr.
func (b *Backend) SetNonces(addr common.Address, pending, confirmed uint64) {
	b.with(func() {
		b.pendingNonce[addr] = pending
		b.confirmedNonce[addr] = confirmed
	})
}

// FailSends makes the next len(errs) sends fail with errs in order.
func (b *Backend) FailSends(errs ...error) {
	b.with(func() { b.sendErrs = append(b.sendErrs, errs...) })
}

// OnSend installs fn to run before every send, outside the backend lock. A
// non-nil error fails the send.
func (b *Backend) OnSend(fn func(req ledger.TxRequest) error) {
	b.with(func() { b.onSend = fn })
}

// Handle installs the eth_call handler for method.
func (b *Backend) Handle(method string, h Handler) {
	b.with(func() { b.handlers[method] = h })
}

// Sent returns the transactions accepted so far.
func (b *Backend) Sent() []SentTx {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SentTx(nil), b.sent...)
}

// Calls returns how many times method was called via eth_call.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callCount[method]
}

// EventLog builds a log for event emitted by the contract. topics are the
// indexed arguments; data the non-indexed ones, in ABI order.
func (b *Backend) EventLog(event string, topics []common.Hash, data ...interface{}) *types.Log {
	ev, ok := b.abi.Events[event]
	if !ok {
		panic(fmt.Sprintf("testutil: unknown event %s", event))
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: b.contract,
		Topics:  append([]common.Hash{ev.ID}, topics...),
		Data:    packed,
	}
}

func (b *Backend) with(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// ──────────────────────────────────────────────
//  ledger.Backend
// ──────────────────────────────────────────────

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.height, b.heightErr
}

func (b *Backend) Accounts(ctx context.Context) ([]common.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.accountsErr != nil {
		return nil, b.accountsErr
	}
	return append([]common.Address(nil), b.accounts...), nil
}

func (b *Backend) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (b *Backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code[account], nil
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, ErrReverted
	}
	method, err := b.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	h := b.handlers[method.Name]
	b.callCount[method.Name]++
	b.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrReverted, method.Name)
	}
	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gasPriceErr != nil {
		return nil, b.gasPriceErr
	}
	return new(big.Int).Set(b.gasPrice), nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingErr != nil {
		return 0, b.pendingErr
	}
	return b.pendingNonce[account], nil
}

func (b *Backend) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.confirmedNonce[account], nil
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return b.estimate, nil
}

func (b *Backend) SendManagedTransaction(ctx context.Context, req ledger.TxRequest) (common.Hash, error) {
	b.mu.Lock()
	onSend := b.onSend
	b.mu.Unlock()
	if onSend != nil {
		if err := onSend(req); err != nil {
			return common.Hash{}, err
		}
	}

	b.mu.Lock()
	if len(b.sendErrs) > 0 {
		err := b.sendErrs[0]
		b.sendErrs = b.sendErrs[1:]
		if err != nil {
			b.mu.Unlock()
			return common.Hash{}, err
		}
	}

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], req.Nonce)
	tx := SentTx{
		Request: req,
		Hash:    crypto.Keccak256Hash(req.From.Bytes(), nonce[:], req.Data),
	}
	if len(req.Data) >= 4 {
		if method, err := b.abi.MethodById(req.Data[:4]); err == nil {
			tx.Method = method.Name
			tx.Args, _ = method.Inputs.Unpack(req.Data[4:])
		}
	}
	b.sent = append(b.sent, tx)
	if req.Nonce+1 > b.pendingNonce[req.From] {
		b.pendingNonce[req.From] = req.Nonce + 1
	}
	withhold, mine := b.withhold, b.mine
	b.mu.Unlock()

	if withhold {
		return tx.Hash, nil
	}
	status, logs := types.ReceiptStatusSuccessful, []*types.Log(nil)
	if mine != nil {
		status, logs = mine(tx)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.height++
	b.confirmedNonce[req.From] = b.pendingNonce[req.From]
	b.receipts[tx.Hash] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash,
		BlockNumber: new(big.Int).SetUint64(b.height),
		GasUsed:     req.Gas / 2,
		Logs:        logs,
	}
	return tx.Hash, nil
}

// Mine stores a receipt for a transaction previously withheld.
func (b *Backend) Mine(hash common.Hash, status uint64) {
	b.with(func() {
		b.height++
		b.receipts[hash] = &types.Receipt{Status: status, TxHash: hash, BlockNumber: new(big.Int).SetUint64(b.height)}
	})
}

func (b *Backend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (b *Backend) Close() {}

var _ ledger.Backend = (*Backend)(nil)

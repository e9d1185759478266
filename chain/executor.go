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
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"

	"github.com/Inaglyite/block-chain-game/ledger"
)

// Status is the interpreted outcome of a submitted call.
type Status int

const (
	// StatusSuccess means the receipt was mined with status 1.
	StatusSuccess Status = iota
	// StatusFailed means the receipt reported failure, or the send itself
	// failed after all retries.
	StatusFailed
	// StatusPending means the node accepted the transaction (Hash is set)
	// but its receipt did not arrive in time. Refresh state, do not
	// resubmit.
	StatusPending
	// StatusOffline means no network attempt was made.
	StatusOffline
	// StatusRejected means the call was refused before sending.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusPending:
		return "pending"
	case StatusOffline:
		return "offline"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Send errors reported with StatusFailed when nothing is known to have
// reached the node under a hash.
var (
	// ErrStaleNonce means the node refused the nonce and a fresh lookup did
	// not yield a newer one. Nothing was sent.
	ErrStaleNonce = errors.New("chain: nonce refused by node")
	// ErrUnconfirmedSend means an earlier attempt may have reached the node
	// but its hash was never returned, so the outcome cannot be tracked.
	ErrUnconfirmedSend = errors.New("chain: send outcome unknown")
)

// Call is a mutating contract call.
type Call struct {
	Method      string
	Args        []interface{}
	Value       *big.Int       // wei attached, nil for none
	FallbackGas uint64         // used when estimation fails
	From        common.Address // zero means the active account
	OwnerOnly   bool           // send from the contract owner
}

// Result is what Submit reports back. It is a value, not an error: only
// Status decides success.
type Result struct {
	Status  Status
	Hash    common.Hash
	Receipt *types.Receipt
	Err     error
}

// OK reports whether the transaction was mined successfully.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// ExecutorConfig tunes gas, retry and receipt handling.
type ExecutorConfig struct {
	ReceiptTimeout   time.Duration
	PollInterval     time.Duration
	GasPremiumPct    uint64
	FallbackGasPrice *big.Int
	MaxAttempts      int
	RetryBackoff     time.Duration
}

// DefaultExecutorConfig returns the settings used against a local node.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		ReceiptTimeout:   30 * time.Second,
		PollInterval:     500 * time.Millisecond,
		GasPremiumPct:    120,
		FallbackGasPrice: big.NewInt(5 * params.GWei),
		MaxAttempts:      3,
		RetryBackoff:     250 * time.Millisecond,
	}
}

// defaultFallbackGas is used for calls that name no fallback of their own.
const defaultFallbackGas = 300_000

// Executor carries every mutating call to the ledger along one path: gas
// estimate, gas price, nonce, send, receipt wait and status interpretation.
type Executor struct {
	session *Session
	journal *Journal
	cfg     ExecutorConfig
	log     log.Logger

	// mu serializes nonce acquisition and send so that the nonce for
	// transaction N+1 observes the submission of N.
	mu sync.Mutex
}

// NewExecutor creates an executor bound to session. journal may be nil.
func NewExecutor(session *Session, journal *Journal, cfg ExecutorConfig) *Executor {
	def := DefaultExecutorConfig()
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = def.ReceiptTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.GasPremiumPct == 0 {
		cfg.GasPremiumPct = def.GasPremiumPct
	}
	if cfg.FallbackGasPrice == nil || cfg.FallbackGasPrice.Sign() <= 0 {
		cfg.FallbackGasPrice = def.FallbackGasPrice
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	return &Executor{
		session: session,
		journal: journal,
		cfg:     cfg,
		log:     log.New("module", "executor"),
	}
}

// Session returns the session the executor sends for.
func (e *Executor) Session() *Session { return e.session }

// Journal returns the transaction journal, possibly nil.
func (e *Executor) Journal() *Journal { return e.journal }

// Submit sends call and waits for its receipt. It never panics and never
// returns an error for estimate or gas price failures; those fall back to
// fixed values.
func (e *Executor) Submit(ctx context.Context, call Call) Result {
	if !e.session.Available() {
		return Result{Status: StatusOffline, Err: ErrOffline}
	}
	contract, backend := e.session.Contract(), e.session.Backend()

	from := call.From
	if call.OwnerOnly {
		owner, ok := e.session.Owner()
		if !ok {
			e.log.Warn("Refusing owner-only call", "method", call.Method, "owner", owner.Hex())
			return Result{Status: StatusRejected, Err: ErrNotOwner}
		}
		from = owner
	}
	if from == (common.Address{}) {
		from = e.session.Account()
	}
	data, err := contract.Pack(call.Method, call.Args...)
	if err != nil {
		return Result{Status: StatusRejected, Err: fmt.Errorf("chain: packing %s: %w", call.Method, err)}
	}
	to := contract.Address()
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	req := ledger.TxRequest{
		From:     from,
		To:       to,
		Value:    value,
		Data:     data,
		Gas:      e.estimateGas(ctx, backend, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}, call),
		GasPrice: e.gasPrice(ctx, backend),
	}

	hash, res, ok := e.send(ctx, backend, call.Method, req)
	if !ok {
		return res
	}
	receipt, err := e.waitReceipt(ctx, backend, hash)
	if err != nil {
		e.log.Warn("Receipt not received in time, treating as pending", "method", call.Method, "tx", hash.Hex(), "timeout", e.cfg.ReceiptTimeout)
		return Result{Status: StatusPending, Hash: hash, Err: err}
	}
	e.journal.complete(hash, receipt)
	if receipt.Status != types.ReceiptStatusSuccessful {
		e.log.Warn("Transaction failed", "method", call.Method, "tx", hash.Hex(), "block", receipt.BlockNumber)
		return Result{Status: StatusFailed, Hash: hash, Receipt: receipt, Err: fmt.Errorf("chain: %s reverted in tx %s", call.Method, hash.Hex())}
	}
	e.log.Info("Transaction mined", "method", call.Method, "tx", hash.Hex(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
	return Result{Status: StatusSuccess, Hash: hash, Receipt: receipt}
}

func (e *Executor) estimateGas(ctx context.Context, backend ledger.Backend, msg ethereum.CallMsg, call Call) uint64 {
	gas, err := backend.EstimateGas(ctx, msg)
	if err != nil || gas == 0 {
		fallback := call.FallbackGas
		if fallback == 0 {
			fallback = defaultFallbackGas
		}
		e.log.Warn("Gas estimation failed, using fallback limit", "method", call.Method, "gas", fallback, "err", err)
		return fallback
	}
	return gas * 3 / 2
}

func (e *Executor) gasPrice(ctx context.Context, backend ledger.Backend) *big.Int {
	price, err := backend.SuggestGasPrice(ctx)
	if err != nil || price == nil || price.Sign() <= 0 {
		e.log.Warn("Gas price lookup failed, using fallback", "price", e.cfg.FallbackGasPrice, "err", err)
		return new(big.Int).Set(e.cfg.FallbackGasPrice)
	}
	price = new(big.Int).Mul(price, new(big.Int).SetUint64(e.cfg.GasPremiumPct))
	return price.Div(price, big.NewInt(100))
}

func (e *Executor) nonce(ctx context.Context, backend ledger.Backend, from common.Address) (uint64, error) {
	nonce, err := backend.PendingNonceAt(ctx, from)
	if err == nil {
		return nonce, nil
	}
	e.log.Warn("Pending nonce lookup failed, using confirmed count", "account", from.Hex(), "err", err)
	nonce, err = backend.NonceAt(ctx, from, nil)
	if err != nil {
		return 0, fmt.Errorf("chain: nonce for %s: %w", from.Hex(), err)
	}
	return nonce, nil
}

// send acquires the nonce and submits req, retrying transient failures with
// the same nonce. A nonce the node refuses on the first attempt is re-read
// once; a refusal after a transient failure cannot be told apart from an
// accepted earlier attempt and fails without a hash. ok is false when res is
// already the final result.
func (e *Executor) send(ctx context.Context, backend ledger.Backend, method string, req ledger.TxRequest) (hash common.Hash, res Result, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nonce, err := e.nonce(ctx, backend, req.From)
	if err != nil {
		return common.Hash{}, Result{Status: StatusFailed, Err: err}, false
	}
	req.Nonce = nonce

	backoff := e.cfg.RetryBackoff
	var (
		delivered bool // an earlier attempt with this nonce may have reached the node
		refreshed bool // the nonce has been re-read once after a refusal
	)
	for attempt := 1; ; attempt++ {
		hash, err = backend.SendManagedTransaction(ctx, req)
		if err == nil {
			break
		}
		switch classifySendError(err) {
		case sendKnown:
			if delivered {
				e.log.Warn("Earlier attempt may have been accepted without a hash", "method", method, "nonce", nonce, "err", err)
				return common.Hash{}, Result{Status: StatusFailed, Err: fmt.Errorf("%w: %v", ErrUnconfirmedSend, err)}, false
			}
			if !refreshed {
				refreshed = true
				if fresh, nerr := e.nonce(ctx, backend, req.From); nerr == nil && fresh > nonce {
					e.log.Warn("Nonce was stale, retrying with fresh nonce", "method", method, "stale", nonce, "nonce", fresh, "err", err)
					nonce, req.Nonce = fresh, fresh
					continue
				}
			}
			e.log.Warn("Node refused nonce, nothing sent", "method", method, "nonce", nonce, "err", err)
			return common.Hash{}, Result{Status: StatusFailed, Err: fmt.Errorf("%w: %v", ErrStaleNonce, err)}, false
		case sendFatal:
			e.log.Warn("Transaction refused by node", "method", method, "err", err)
			return common.Hash{}, Result{Status: StatusRejected, Err: err}, false
		}
		delivered = true
		if attempt >= e.cfg.MaxAttempts {
			e.log.Error("Sending transaction failed", "method", method, "attempts", attempt, "err", err)
			return common.Hash{}, Result{Status: StatusFailed, Err: err}, false
		}
		e.log.Warn("Sending transaction failed, retrying", "method", method, "attempt", attempt, "nonce", nonce, "err", err)
		select {
		case <-ctx.Done():
			return common.Hash{}, Result{Status: StatusFailed, Err: ctx.Err()}, false
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	e.log.Debug("Transaction submitted", "method", method, "tx", hash.Hex(), "from", req.From.Hex(), "nonce", nonce, "gas", req.Gas, "gasPrice", req.GasPrice)
	e.journal.submitted(Entry{
		Hash:        hash,
		Method:      method,
		From:        req.From,
		Nonce:       nonce,
		Status:      JournalPending,
		SubmittedAt: time.Now().Unix(),
	})
	return hash, Result{}, true
}

func (e *Executor) waitReceipt(ctx context.Context, backend ledger.Backend, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			e.log.Debug("Receipt lookup failed", "tx", hash.Hex(), "err", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type sendClass int

const (
	sendRetry sendClass = iota
	sendKnown
	sendFatal
)

// classifySendError sorts node errors by their message, the only stable
// signal JSON-RPC nodes give.
func classifySendError(err error) sendClass {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already known"),
		strings.Contains(msg, "known transaction"),
		strings.Contains(msg, "nonce too low"):
		return sendKnown
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "execution reverted"),
		strings.Contains(msg, "invalid opcode"),
		strings.Contains(msg, "unknown account"):
		return sendFatal
	default:
		return sendRetry
	}
}

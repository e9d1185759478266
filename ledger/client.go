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

package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultCallTimeout bounds every individual RPC round trip.
const DefaultCallTimeout = 2 * time.Second

// Client implements Backend on top of a go-ethereum RPC connection.
type Client struct {
	url     string
	rpc     *rpc.Client
	eth     *ethclient.Client
	timeout time.Duration
}

// Dial connects to the node at url. Dialing an HTTP endpoint does not contact
// the node, so a successful Dial says nothing about liveness; check with
// BlockNumber.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %s: %w", url, err)
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Client{url: url, rpc: rc, eth: ethclient.NewClient(rc), timeout: timeout}, nil
}

// URL returns the endpoint the client was dialed with.
func (c *Client) URL() string { return c.url }

func (c *Client) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.BlockNumber(ctx)
}

func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	var accounts []common.Address
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.BalanceAt(ctx, account, nil)
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.CodeAt(ctx, account, blockNumber)
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.CallContract(ctx, msg, blockNumber)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.SuggestGasPrice(ctx)
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.PendingNonceAt(ctx, account)
}

func (c *Client) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.NonceAt(ctx, account, blockNumber)
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.EstimateGas(ctx, msg)
}

func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.TransactionReceipt(ctx, hash)
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.eth.ChainID(ctx)
}

// sendTxArgs is the eth_sendTransaction argument object.
type sendTxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data"`
	Nonce    hexutil.Uint64  `json:"nonce"`
}

func (c *Client) SendManagedTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()

	to := req.To
	args := sendTxArgs{
		From:     req.From,
		To:       &to,
		Gas:      hexutil.Uint64(req.Gas),
		GasPrice: (*hexutil.Big)(req.GasPrice),
		Data:     req.Data,
		Nonce:    hexutil.Uint64(req.Nonce),
	}
	if req.Value != nil && req.Value.Sign() > 0 {
		args.Value = (*hexutil.Big)(req.Value)
	}
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

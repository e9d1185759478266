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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/Inaglyite/block-chain-game/internal/testutil"
)

const testRPC = "http://127.0.0.1:8545"

// captureLogs routes the root logger into a buffer for the rest of the test.
// Loggers derived from the root must be created after the call.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Root()
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(&buf, log.LevelTrace, false)))
	t.Cleanup(func() { log.SetDefault(prev) })
	return &buf
}

// testResolver writes a valid ABI artifact and a deployment document for
// testutil.ContractAddress into a temp dir.
func testResolver(t *testing.T) *Resolver {
	t.Helper()
	dir := t.TempDir()
	return NewResolver(
		[]string{testutil.WriteABI(t, dir, "WeedCutterNFT.json")},
		[]string{testutil.WriteDeployment(t, dir, "contract-info.json", testutil.ContractAddress)},
	)
}

func withOwner(b *testutil.Backend, owner common.Address) {
	b.Handle("owner", func([]interface{}) ([]interface{}, error) {
		return []interface{}{owner}, nil
	})
}

func newTestSession(t *testing.T, b *testutil.Backend, index int) *Session {
	t.Helper()
	s := NewSession(b, testResolver(t), testRPC, index)
	s.Setup(context.Background())
	require.True(t, s.Available(), s.Reason())
	return s
}

func testExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		ReceiptTimeout: 100 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
		RetryBackoff:   time.Millisecond,
	}
}

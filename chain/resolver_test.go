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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Inaglyite/block-chain-game/internal/testutil"
)

func codeAt(b *testutil.Backend) func(context.Context, common.Address) ([]byte, error) {
	return func(ctx context.Context, addr common.Address) ([]byte, error) {
		return b.CodeAt(ctx, addr, nil)
	}
}

func TestResolve_SkipsAddressWithoutCode(t *testing.T) {
	dir := t.TempDir()
	b := testutil.NewBackend()

	abiPath := testutil.WriteABI(t, dir, "WeedCutterNFT.json")
	empty := testutil.WriteDeployment(t, dir, "contract-info.json", testutil.Account1)
	deployed := testutil.WriteDeployment(t, dir, "scripts/contract-info.json", testutil.ContractAddress)

	res, err := NewResolver([]string{abiPath}, []string{empty, deployed}).Resolve(context.Background(), codeAt(b))
	require.NoError(t, err)
	assert.Equal(t, testutil.ContractAddress, res.Address)
	assert.Equal(t, deployed, res.AddressPath)
	assert.Equal(t, abiPath, res.ABIPath)
	assert.True(t, res.RejectedFor(empty, ReasonNoCode))
	assert.Contains(t, res.ABI.Methods, "recordWeedCut")
}

func TestResolve_AllZeroCodeIsNoCode(t *testing.T) {
	dir := t.TempDir()
	b := testutil.NewBackend()
	b.SetCode(testutil.ContractAddress, []byte{0, 0, 0})

	path := testutil.WriteDeployment(t, dir, "contract-info.json", testutil.ContractAddress)
	_, err := NewResolver([]string{testutil.WriteABI(t, dir, "abi.json")}, []string{path}).Resolve(context.Background(), codeAt(b))

	var rerr *ResolveError
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.Rejected(path, ReasonNoCode))
}

func TestResolve_AggregatesEveryRejection(t *testing.T) {
	dir := t.TempDir()

	missing := dir + "/absent.json"
	garbage := testutil.WriteFile(t, dir, "garbage.json", "{not json")
	noField := testutil.WriteFile(t, dir, "nofield.json", `{"network": "localhost"}`)
	invalid := testutil.WriteFile(t, dir, "invalid.json", `{"address": "0x1234"}`)
	badSum := testutil.WriteFile(t, dir, "badsum.json", `{"address": "0x5fbDB2315678afecb367f032d93F642f64180aa3"}`)
	lookup := testutil.WriteDeployment(t, dir, "lookup.json", testutil.ContractAddress)

	failing := func(ctx context.Context, addr common.Address) ([]byte, error) {
		return nil, errors.New("connection refused")
	}
	r := NewResolver([]string{testutil.WriteABI(t, dir, "abi.json")}, []string{missing, garbage, noField, invalid, badSum, lookup})
	_, err := r.Resolve(context.Background(), failing)

	var rerr *ResolveError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "contract address", rerr.What)
	require.Len(t, rerr.Candidates, 6)
	assert.True(t, rerr.Rejected(missing, ReasonMissing))
	assert.True(t, rerr.Rejected(garbage, ReasonParse))
	assert.True(t, rerr.Rejected(noField, ReasonNoAddress))
	assert.True(t, rerr.Rejected(invalid, ReasonInvalidAddr))
	assert.True(t, rerr.Rejected(badSum, ReasonBadChecksum))
	assert.True(t, rerr.Rejected(lookup, ReasonCodeLookup))

	// The message names every candidate.
	for _, c := range rerr.Candidates {
		assert.Contains(t, err.Error(), c.Path)
	}
}

func TestResolve_ABIFallback(t *testing.T) {
	dir := t.TempDir()
	b := testutil.NewBackend()

	noABI := testutil.WriteFile(t, dir, "WeedCutterNFT.json", `{"bytecode": "0x00"}`)
	badABI := testutil.WriteFile(t, dir, "bad.json", `{"abi": [{"type": "function", "name": 7}]}`)
	good := testutil.WriteABI(t, dir, "scripts/WeedCutterNFT.json")
	addr := testutil.WriteDeployment(t, dir, "contract-info.json", testutil.ContractAddress)

	res, err := NewResolver([]string{noABI, badABI, good}, []string{addr}).Resolve(context.Background(), codeAt(b))
	require.NoError(t, err)
	assert.Equal(t, good, res.ABIPath)
	assert.True(t, res.RejectedFor(noABI, ReasonNoABI))
	assert.True(t, res.RejectedFor(badABI, ReasonInvalidABI))
}

func TestResolve_NoABI(t *testing.T) {
	dir := t.TempDir()
	_, err := NewResolver([]string{dir + "/a.json", dir + "/b.json"}, nil).Resolve(context.Background(), codeAt(testutil.NewBackend()))

	var rerr *ResolveError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "contract ABI", rerr.What)
	assert.Len(t, rerr.Candidates, 2)
}

func TestNewResolver_Defaults(t *testing.T) {
	r := NewResolver(nil, nil)
	assert.Equal(t, DefaultABIPaths, r.ABIPaths)
	assert.Equal(t, DefaultAddressPaths, r.AddressPaths)
}

func TestChecksumAddress(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0x5FbDB2315678afecb367f032d93F642f64180aa3", false},
		{"0x5fbdb2315678afecb367f032d93f642f64180aa3", false},
		{"0x5FBDB2315678AFECB367F032D93F642F64180AA3", false},
		{"0x5fbDB2315678afecb367f032d93F642f64180aa3", true},
		{"5FbDB2315678afecb367f032d93F642f64180aa3", false},
		{"0xnothex", true},
	}
	for _, tt := range tests {
		addr, err := checksumAddress(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, testutil.ContractAddress, addr)
	}
}

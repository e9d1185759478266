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

package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Inaglyite/block-chain-game/contracts/weedcutter/contract"
)

// WriteABI writes an artifact document {"abi": [...]} holding the reference
// ABI to dir/name and returns its path.
func WriteABI(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteFile(t, dir, name, `{"abi": `+contract.WeedCutterABI+`}`)
}

// WriteDeployment writes a deployment document {"address": "..."} to
// dir/name and returns its path.
func WriteDeployment(t testing.TB, dir, name string, addr common.Address) string {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{"address": addr.Hex(), "network": "localhost"})
	if err != nil {
		t.Fatal(err)
	}
	return WriteFile(t, dir, name, string(data))
}

// WriteFile writes content to dir/name and returns its path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

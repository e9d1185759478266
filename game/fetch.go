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

package game

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Inaglyite/block-chain-game/contracts/weedcutter"
)

// FetchStrategy reads the weapons currently listed for sale.
type FetchStrategy interface {
	Name() string
	ForSale(ctx context.Context, c *weedcutter.WeedCutter) ([]*weedcutter.WeaponInfo, error)
}

// SelectFetch picks the batched read when the deployed ABI declares it and
// the per-id scan otherwise.
func SelectFetch(c *weedcutter.WeedCutter) FetchStrategy {
	if c.Supports(weedcutter.MethodWeaponsForSale) {
		return BatchFetch{}
	}
	return ScanFetch{}
}

// BatchFetch reads the market with one getWeaponsForSale call.
type BatchFetch struct{}

func (BatchFetch) Name() string { return "batch" }

func (BatchFetch) ForSale(ctx context.Context, c *weedcutter.WeedCutter) ([]*weedcutter.WeaponInfo, error) {
	return c.WeaponsForSale(ctx)
}

// ScanFetch walks every weapon id below getNextWeaponId and keeps the
// listed ones. Ids whose details cannot be read are skipped.
type ScanFetch struct{}

func (ScanFetch) Name() string { return "scan" }

func (ScanFetch) ForSale(ctx context.Context, c *weedcutter.WeedCutter) ([]*weedcutter.WeaponInfo, error) {
	next, err := c.NextWeaponID(ctx)
	if err != nil {
		return nil, err
	}
	var listed []*weedcutter.WeaponInfo
	for id := uint64(1); id < next; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := c.WeaponDetails(ctx, id)
		if err != nil {
			log.Debug("Skipping unreadable weapon", "id", id, "err", err)
			continue
		}
		if info.ForSale {
			listed = append(listed, info)
		}
	}
	return listed, nil
}

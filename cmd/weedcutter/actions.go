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
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/game"
)

var mintCommand = &cli.Command{
	Name:  "mint",
	Usage: "Spend coins on a random weapon (sent by the contract owner)",
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		roll, res := e.svc.MintRandomWeapon(c.Context)
		if err := report("mint", res); err != nil {
			return err
		}
		fmt.Printf("Minted %s %s (%.2fx)\n", roll.Rarity, roll.Name, float64(roll.Multiplier)/100)
		return nil
	}),
}

var listCommand = &cli.Command{
	Name:        "list",
	Usage:       "List a weapon for sale",
	ArgsUsage:   "<weapon-id> [price-eth]",
	Description: "Without a price the suggested price for the weapon's rarity is used.",
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		id, err := argUint(c, 0, "weapon-id")
		if err != nil {
			return err
		}
		w := findOwned(e, id)
		if w == nil {
			return fmt.Errorf("weapon %d: %w", id, game.ErrNotYourWeapon)
		}
		suggested := e.svc.SuggestPrice(w.Rarity)
		price := suggested.Recommended
		if s := c.Args().Get(1); s != "" {
			if price, err = parseEther(s); err != nil {
				return err
			}
		}
		fmt.Printf("Suggested range %s .. %s, listing at %s\n",
			formatEther(suggested.Min), formatEther(suggested.Max), formatEther(price))
		return report("list", e.svc.ListForSale(c.Context, id, price))
	}),
}

var buyCommand = &cli.Command{
	Name:      "buy",
	Usage:     "Buy a listed weapon at its price",
	ArgsUsage: "<weapon-id>",
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		id, err := argUint(c, 0, "weapon-id")
		if err != nil {
			return err
		}
		return report("buy", e.svc.Purchase(c.Context, id))
	}),
}

var openCaseCommand = &cli.Command{
	Name:      "open-case",
	Usage:     "Open a weapon case",
	ArgsUsage: "<case-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "pay", Usage: "eth, coins or inventory", Value: "coins"},
	},
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		id, err := argUint(c, 0, "case-id")
		if err != nil {
			return err
		}
		var (
			weaponID uint64
			res      chain.Result
		)
		switch strings.ToLower(c.String("pay")) {
		case "eth":
			weaponID, res = e.svc.OpenCaseWithETH(c.Context, id)
		case "coins":
			weaponID, res = e.svc.OpenCaseWithCoins(c.Context, id)
		case "inventory":
			weaponID, res = e.svc.OpenCaseFromInventory(c.Context, id)
		default:
			return fmt.Errorf("unknown payment %q", c.String("pay"))
		}
		if err := report("open-case", res); err != nil {
			return err
		}
		if w := findOwned(e, weaponID); w != nil {
			fmt.Printf("Unboxed #%d %s %s (%s)\n", w.ID, w.Rarity, w.Name, w.Condition)
		} else if weaponID != 0 {
			fmt.Printf("Unboxed weapon #%d\n", weaponID)
		}
		return nil
	}),
}

var buyCaseCommand = &cli.Command{
	Name:      "buy-case",
	Usage:     "Buy unopened cases with coins",
	ArgsUsage: "<case-id> [amount]",
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		id, err := argUint(c, 0, "case-id")
		if err != nil {
			return err
		}
		amount := uint64(1)
		if c.Args().Len() > 1 {
			if amount, err = argUint(c, 1, "amount"); err != nil {
				return err
			}
		}
		return report("buy-case", e.svc.PurchaseCase(c.Context, id, amount))
	}),
}

var nameCommand = &cli.Command{
	Name:      "name",
	Usage:     "Set the leaderboard name of the active account",
	ArgsUsage: "<name>",
	Action: withEnv(func(c *cli.Context, e *env) error {
		return report("name", e.svc.SetPlayerName(c.Context, strings.Join(c.Args().Slice(), " ")))
	}),
}

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "Delete a weapon (burned when the contract supports it, hidden locally otherwise)",
	ArgsUsage: "<weapon-id>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "undo", Usage: "Unhide a locally deleted weapon"},
	},
	Action: withEnv(func(c *cli.Context, e *env) error {
		id, err := argUint(c, 0, "weapon-id")
		if err != nil {
			return err
		}
		if c.Bool("undo") {
			e.hidden.Remove(id)
			fmt.Printf("Weapon %d is visible again\n", id)
			return nil
		}
		if err := e.start(c.Context); err != nil {
			return err
		}
		return report("delete", e.svc.DeleteWeapon(c.Context, id))
	}),
}

var cutCommand = &cli.Command{
	Name:      "cut",
	Usage:     "Record cut points and wait until they reach the ledger",
	ArgsUsage: "<points>...",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "timeout", Usage: "Give up waiting after this long", Value: time.Minute},
	},
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		if c.Args().Len() == 0 {
			return errors.New("missing <points>")
		}
		for i := 0; i < c.Args().Len(); i++ {
			p, err := argUint(c, i, "points")
			if err != nil {
				return err
			}
			e.svc.RecordCut(p)
		}
		if !e.svc.Available() {
			_, pending := e.svc.Score()
			fmt.Printf("Offline: %s points kept pending\n", humanize.Comma(int64(pending)))
			return nil
		}

		deadline := time.Now().Add(c.Duration("timeout"))
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			e.svc.Tick(c.Context, time.Now())
			displayed, pending := e.svc.Score()
			if pending == 0 {
				fmt.Printf("Score %s\n", humanize.Comma(int64(displayed)))
				return nil
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("%s points still pending", humanize.Comma(int64(pending)))
			}
			select {
			case <-c.Context.Done():
				return c.Context.Err()
			case <-ticker.C:
			}
		}
	}),
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run the background loop: score flushes and snapshot refreshes",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "tick", Usage: "Loop period", Value: 500 * time.Millisecond},
	},
	Action: withEnv(func(c *cli.Context, e *env) error {
		ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		disp := game.NewDispatcher(ctx, e.cfg.Workers)
		svc := game.NewService(e.exec, e.hidden, disp, e.cfg.Service())
		if err := svc.Start(ctx); err != nil {
			log.Warn("Initial refresh failed", "err", err)
		}
		log.Info("Game loop running", "workers", e.cfg.Workers, "online", svc.Available())
		return loop(ctx, svc, disp, c.Duration("tick"))
	}),
}

func loop(ctx context.Context, svc *game.Service, disp *game.Dispatcher, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	defer disp.Close()
	for {
		select {
		case <-ctx.Done():
			log.Info("Game loop stopping")
			return nil
		case u := <-disp.Updates():
			if u.Err != nil {
				log.Warn("Background job failed", "job", u.Job, "elapsed", u.Duration, "err", u.Err)
				continue
			}
			log.Debug("Background job done", "job", u.Job, "elapsed", u.Duration)
			if u.Job == "flush" {
				displayed, _ := svc.Score()
				log.Info("Score flushed", "score", humanize.Comma(int64(displayed)))
			}
		case now := <-ticker.C:
			svc.Tick(ctx, now)
		}
	}
}

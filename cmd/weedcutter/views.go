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
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/Inaglyite/block-chain-game/weapon"
)

var infoCommand = &cli.Command{
	Name:  "info",
	Usage: "Print connection, contract and player information",
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		s := e.session
		fmt.Printf("Ledger:    %s\n", s.RPCURL())
		if !s.Available() {
			fmt.Printf("Status:    offline (%s)\n", s.Reason())
			displayed, pending := e.svc.Score()
			fmt.Printf("Score:     %s (%s pending)\n", humanize.Comma(int64(displayed)), humanize.Comma(int64(pending)))
			return nil
		}
		height, _ := s.BlockNumber(c.Context)
		res := s.Resolution()
		fmt.Printf("Block:     %s\n", humanize.Comma(int64(height)))
		fmt.Printf("Contract:  %s (abi %s, address %s)\n", res.Address.Hex(), res.ABIPath, res.AddressPath)
		for _, rej := range res.Rejected {
			fmt.Printf("  skipped  %s\n", rej)
		}
		owner, ok := s.Owner()
		fmt.Printf("Owner:     %s (unlocked: %t)\n", owner.Hex(), ok)
		fmt.Printf("Account:   #%d %s\n", s.Index(), s.Account().Hex())
		fmt.Printf("Balance:   %s\n", formatEther(s.Balance(c.Context)))

		p := e.svc.Cache().Player()
		if p.Name != "" {
			fmt.Printf("Name:      %s\n", p.Name)
		}
		displayed, pending := e.svc.Score()
		fmt.Printf("Score:     %s (%s pending)\n", humanize.Comma(int64(displayed)), humanize.Comma(int64(pending)))
		fmt.Printf("Coins:     %s\n", humanize.Comma(int64(p.Stats.Coins)))
		if p.Rank > 0 {
			fmt.Printf("Rank:      %s of %d\n", humanize.Ordinal(int(p.Rank)), p.RankTotal)
		}
		return nil
	}),
}

var accountsCommand = &cli.Command{
	Name:  "accounts",
	Usage: "List the node's unlocked accounts",
	Action: withEnv(func(c *cli.Context, e *env) error {
		if !e.session.Available() {
			for i, a := range e.cfg.Pool() {
				fmt.Printf("  %d  %s  (configured pool)\n", i, a.Hex())
			}
			return nil
		}
		owner, _ := e.session.Owner()
		for i, a := range e.session.Accounts() {
			marker := " "
			if i == e.session.Index() {
				marker = "*"
			}
			note := ""
			if a == owner {
				note = "  owner"
			}
			fmt.Printf("%s %d  %s%s\n", marker, i, a.Hex(), note)
		}
		return nil
	}),
}

var weaponsCommand = &cli.Command{
	Name:  "weapons",
	Usage: "List the active account's weapons",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "listed", Usage: "Only weapons listed for sale"},
		&cli.BoolFlag{Name: "unlisted", Usage: "Only weapons not listed for sale"},
	},
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		ws := e.svc.Cache().Owned()
		switch {
		case c.Bool("listed"):
			ws = e.svc.Cache().Listed()
		case c.Bool("unlisted"):
			ws = e.svc.Cache().Unlisted()
		}
		printWeapons(ws)
		return nil
	}),
}

var marketCommand = &cli.Command{
	Name:  "market",
	Usage: "List weapons for sale, cheapest first",
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		printWeapons(e.svc.Cache().Market())
		return nil
	}),
}

var casesCommand = &cli.Command{
	Name:  "cases",
	Usage: "List case types and unopened cases",
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		cs := e.svc.Cache().Cases()
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCOINS\tOWNED")
		for _, ci := range cs.Catalogue {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", ci.ID, ci.Name, formatEther(ci.Price), humanize.Comma(int64(ci.CoinPrice)), cs.Inventory[ci.ID])
		}
		return tw.Flush()
	}),
}

var leaderboardCommand = &cli.Command{
	Name:  "leaderboard",
	Usage: "Show the top players",
	Action: withLoadedEnv(func(c *cli.Context, e *env) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tPLAYER\tADDRESS\tSCORE")
		for _, l := range e.svc.Cache().Player().Leaderboard {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", humanize.Ordinal(int(l.Rank)), l.Name, l.Address.Hex(), humanize.Comma(int64(l.Score)))
		}
		return tw.Flush()
	}),
}

func printWeapons(ws []*weapon.Weapon) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRARITY\tDAMAGE\tCONDITION\tWEAR\tPRICE\tOWNER")
	for _, w := range ws {
		price := "-"
		if w.ForSale {
			price = formatEther(w.Price)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2fx\t%s\t%.4f\t%s\t%s\n",
			w.ID, w.Name, w.Rarity, w.Damage(), w.Condition, w.Wear, price, w.Owner.Hex())
	}
	tw.Flush()
}

func findOwned(e *env, id uint64) *weapon.Weapon {
	for _, w := range e.svc.Cache().Owned() {
		if w.ID == id {
			return w
		}
	}
	return nil
}

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
	"errors"
	"fmt"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/Inaglyite/block-chain-game/localstore"
)

var userCommand = &cli.Command{
	Name:  "user",
	Usage: "Manage local user identities",
	Subcommands: []*cli.Command{
		{
			Name:      "register",
			Usage:     "Create a user with a wallet address and trade key pair",
			ArgsUsage: "<username> <email> <password>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				if c.Args().Len() != 3 {
					return errors.New("want <username> <email> <password>")
				}
				u, err := e.registry.Register(c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
				if err != nil {
					return err
				}
				fmt.Printf("Registered %s with wallet %s\n", u.Username, u.WalletAddress)
				return nil
			}),
		},
		{
			Name:      "login",
			Usage:     "Check a user's password",
			ArgsUsage: "<username> <password>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				u, err := e.registry.Login(c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return err
				}
				fmt.Printf("Welcome back %s (level %d, wallet %s, member since %s)\n",
					u.Username, u.Profile.Level, u.WalletAddress, humanize.Time(u.CreatedAt))
				return nil
			}),
		},
		{
			Name:      "search",
			Usage:     "Find users by name",
			ArgsUsage: "<query>",
			Flags:     []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				results := e.registry.SearchUsers(u.Username, c.Args().First())
				if len(results) == 0 {
					fmt.Println("No users found")
					return nil
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USER\tLEVEL\tWALLET")
				for _, r := range results {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Username, r.Level, r.WalletAddress)
				}
				return tw.Flush()
			}),
		},
	},
}

var friendCommand = &cli.Command{
	Name:  "friend",
	Usage: "Manage friends",
	Subcommands: []*cli.Command{
		{
			Name:      "add",
			Usage:     "Send a friend request",
			ArgsUsage: "<username>",
			Flags:     []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				if err := e.registry.SendFriendRequest(u.Username, c.Args().First()); err != nil {
					return err
				}
				fmt.Printf("Friend request sent to %s\n", c.Args().First())
				return nil
			}),
		},
		{
			Name:      "accept",
			Usage:     "Accept a friend request",
			ArgsUsage: "<username>",
			Flags:     []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				if err := e.registry.AcceptFriendRequest(u.Username, c.Args().First()); err != nil {
					return err
				}
				fmt.Printf("You and %s are now friends\n", c.Args().First())
				return nil
			}),
		},
		{
			Name:      "reject",
			Usage:     "Reject a friend request",
			ArgsUsage: "<username>",
			Flags:     []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				return e.registry.RejectFriendRequest(u.Username, c.Args().First())
			}),
		},
		{
			Name:  "list",
			Usage: "List friends and pending requests",
			Flags: []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				fmt.Println("Friends:")
				for _, f := range e.registry.Friends(u.Username) {
					fmt.Printf("  %s\n", f)
				}
				fmt.Println("Requests:")
				for _, f := range e.registry.FriendRequests(u.Username) {
					fmt.Printf("  %s\n", f)
				}
				return nil
			}),
		},
	},
}

var tradeCommand = &cli.Command{
	Name:  "trade",
	Usage: "Peer-to-peer weapon trades between friends",
	Subcommands: []*cli.Command{
		{
			Name:      "send",
			Usage:     "Offer one of your weapons to a friend",
			ArgsUsage: "<friend> <weapon-id> <price-eth>",
			Flags:     []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				id, err := argUint(c, 1, "weapon-id")
				if err != nil {
					return err
				}
				price, err := parseEther(c.Args().Get(2))
				if err != nil {
					return err
				}
				if err := stash(c, e, u, id); err != nil {
					return err
				}
				req, err := e.registry.SendTrade(u.Username, c.Args().First(), id, price)
				if err != nil {
					return err
				}
				fmt.Printf("Trade %s sent to %s\n", req.TradeID, req.ToUser)
				return nil
			}),
		},
		{
			Name:      "accept",
			Usage:     "Accept a trade request after verifying its signature",
			ArgsUsage: "<trade-id>",
			Flags:     []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				req, err := e.registry.AcceptTrade(u.Username, c.Args().First())
				if err != nil {
					return err
				}
				fmt.Printf("Accepted trade %s from %s\n", req.TradeID, req.FromUser)
				return nil
			}),
		},
		{
			Name:      "reject",
			Usage:     "Reject a trade request",
			ArgsUsage: "<trade-id>",
			Flags:     []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				return e.registry.RejectTrade(u.Username, c.Args().First())
			}),
		},
		{
			Name:      "complete",
			Usage:     "Complete an accepted trade and take the weapon",
			ArgsUsage: "<trade-id>",
			Flags:     []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				if err := e.registry.CompleteTrade(u.Username, c.Args().First()); err != nil {
					return err
				}
				fmt.Printf("Trade %s completed\n", c.Args().First())
				return nil
			}),
		},
		{
			Name:  "list",
			Usage: "List trade requests and locally held weapons",
			Flags: []cli.Flag{userFlag, passwordFlag},
			Action: withUser(func(c *cli.Context, e *env, u *localstore.User) error {
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TRADE\tFROM\tWEAPON\tPRICE\tSTATUS\tSENT")
				for _, r := range e.registry.TradeRequests(u.Username) {
					price, _ := new(big.Int).SetString(r.PriceWei, 10)
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
						r.TradeID, r.FromUser, r.WeaponID, formatEther(price), r.Status, humanize.Time(r.CreatedAt))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Println()
				printWeapons(e.registry.LocalWeapons(u.Username))
				return nil
			}),
		},
	},
}

// withUser adapts a command body acting as --user, after checking
// --password.
func withUser(fn func(c *cli.Context, e *env, u *localstore.User) error) cli.ActionFunc {
	return withEnv(func(c *cli.Context, e *env) error {
		u, err := e.registry.Login(c.String(userFlag.Name), c.String(passwordFlag.Name))
		if err != nil {
			return err
		}
		return fn(c, e, u)
	})
}

// stash copies an owned ledger weapon into the user's local inventory so a
// completed trade can hand it over.
func stash(c *cli.Context, e *env, u *localstore.User, id uint64) error {
	for _, w := range e.registry.LocalWeapons(u.Username) {
		if w.ID == id {
			return nil
		}
	}
	if err := e.start(c.Context); err != nil {
		return err
	}
	if w := findOwned(e, id); w != nil {
		return e.registry.GiveLocalWeapon(u.Username, w)
	}
	return nil
}

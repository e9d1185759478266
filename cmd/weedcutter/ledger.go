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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/contracts/weedcutter/contract"
	"github.com/Inaglyite/block-chain-game/trade"
)

var offerCommand = &cli.Command{
	Name:  "offer",
	Usage: "On-chain trade offers",
	Subcommands: []*cli.Command{
		{
			Name:      "create",
			Usage:     "Offer a weapon, optionally reserved for one buyer",
			ArgsUsage: "<weapon-id> <price-eth> [buyer-address]",
			Action: withEnv(func(c *cli.Context, e *env) error {
				id, err := argUint(c, 0, "weapon-id")
				if err != nil {
					return err
				}
				price, err := parseEther(c.Args().Get(1))
				if err != nil {
					return err
				}
				var buyer common.Address
				if s := c.Args().Get(2); s != "" {
					if !common.IsHexAddress(s) {
						return fmt.Errorf("invalid buyer address %q", s)
					}
					buyer = common.HexToAddress(s)
				}
				offerID, res := e.offers.Create(c.Context, id, buyer, price)
				if err := report("offer create", res); err != nil {
					return err
				}
				if offerID != 0 {
					fmt.Printf("Offer #%d created\n", offerID)
				}
				return nil
			}),
		},
		{
			Name:      "accept",
			Usage:     "Accept an offer, paying its price",
			ArgsUsage: "<offer-id>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				id, err := argUint(c, 0, "offer-id")
				if err != nil {
					return err
				}
				return report("offer accept", e.offers.Accept(c.Context, id))
			}),
		},
		{
			Name:      "cancel",
			Usage:     "Cancel one of your offers",
			ArgsUsage: "<offer-id>",
			Action: withEnv(func(c *cli.Context, e *env) error {
				id, err := argUint(c, 0, "offer-id")
				if err != nil {
					return err
				}
				return report("offer cancel", e.offers.Cancel(c.Context, id))
			}),
		},
		{
			Name:  "list",
			Usage: "List your active outgoing and incoming offers",
			Action: withEnv(func(c *cli.Context, e *env) error {
				out, err := e.offers.Outgoing(c.Context)
				if err != nil {
					return err
				}
				in, err := e.offers.Incoming(c.Context)
				if err != nil {
					return err
				}
				fmt.Println("Outgoing:")
				if err := printOffers(out); err != nil {
					return err
				}
				fmt.Println("Incoming:")
				return printOffers(in)
			}),
		},
	},
}

func printOffers(offers []*trade.Offer) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFER\tWEAPON\tSELLER\tBUYER\tPRICE\tSTATUS\tCREATED")
	for _, o := range offers {
		buyer := "anyone"
		if !o.Public() {
			buyer = o.Buyer.Hex()
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.WeaponID, o.Seller.Hex(), buyer, formatEther(o.Price), o.Status, humanize.Time(o.CreatedAt))
	}
	return tw.Flush()
}

var journalCommand = &cli.Command{
	Name:  "journal",
	Usage: "Inspect and settle journaled transactions",
	Subcommands: []*cli.Command{
		{
			Name:  "pending",
			Usage: "List transactions whose outcome is unknown",
			Action: withEnv(func(c *cli.Context, e *env) error {
				if e.journal == nil {
					return errors.New("no transaction journal configured")
				}
				pending, err := e.journal.Pending()
				if err != nil {
					return err
				}
				return printEntries(pending)
			}),
		},
		{
			Name:  "reconcile",
			Usage: "Look up receipts for pending transactions",
			Action: withEnv(func(c *cli.Context, e *env) error {
				if e.journal == nil {
					return errors.New("no transaction journal configured")
				}
				if !e.session.Available() {
					return chain.ErrOffline
				}
				settled, err := e.journal.Reconcile(c.Context, e.session.Backend())
				if err != nil {
					return err
				}
				fmt.Printf("Settled %d transaction(s)\n", len(settled))
				return printEntries(settled)
			}),
		},
	},
}

func printEntries(entries []chain.Entry) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TX\tMETHOD\tFROM\tNONCE\tSTATUS\tSUBMITTED")
	for _, en := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			en.Hash.Hex(), en.Method, en.From.Hex(), en.Nonce, en.Status, humanize.Time(time.Unix(en.SubmittedAt, 0)))
	}
	return tw.Flush()
}

var abiCommand = &cli.Command{
	Name:  "abi",
	Usage: "Contract ABI utilities",
	Subcommands: []*cli.Command{
		{
			Name:      "export",
			Usage:     "Write the built-in ABI as a deployment artifact",
			ArgsUsage: "[file]",
			Action: func(c *cli.Context) error {
				path := c.Args().First()
				if path == "" {
					path = chain.DefaultABIPaths[0]
				}
				doc, err := json.MarshalIndent(struct {
					ContractName string          `json:"contractName"`
					ABI          json.RawMessage `json:"abi"`
				}{"WeedCutterNFT", json.RawMessage(contract.WeedCutterABI)}, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, append(doc, '\n'), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", path)
				return nil
			},
		},
	},
}

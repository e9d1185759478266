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

// weedcutter is the command-line client of the WeedCutter game.
//
// It connects to a development node, resolves the WeedCutterNFT contract
// from the local deployment files and exposes every game operation as a
// subcommand. When the node is unreachable the client runs in offline mode:
// reads come back empty and writes report the offline status.
//
// Usage:
//
//	weedcutter [--config <file>] [--rpc <url>] [--account <index>] <command> [args]
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML configuration file",
	}
	rpcFlag = &cli.StringFlag{
		Name:  "rpc",
		Usage: "Ledger JSON-RPC endpoint (overrides config and RPC_URL)",
	}
	accountFlag = &cli.IntFlag{
		Name:  "account",
		Usage: "Index of the node account to play as",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Log level: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}

	userFlag = &cli.StringFlag{
		Name:     "user",
		Usage:    "Local username to act as",
		Required: true,
	}
	passwordFlag = &cli.StringFlag{
		Name:     "password",
		Usage:    "Password of --user",
		Required: true,
		EnvVars:  []string{"WEEDCUTTER_PASSWORD"},
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "weedcutter",
		Usage:   "Play WeedCutter against a ledger node",
		Version: "0.1.0",
		Flags:   []cli.Flag{configFlag, rpcFlag, accountFlag, verbosityFlag},
		Before: func(c *cli.Context) error {
			setupLogging(c.Int(verbosityFlag.Name))
			return nil
		},
		Commands: []*cli.Command{
			infoCommand,
			accountsCommand,
			weaponsCommand,
			marketCommand,
			casesCommand,
			leaderboardCommand,
			mintCommand,
			listCommand,
			buyCommand,
			openCaseCommand,
			buyCaseCommand,
			nameCommand,
			deleteCommand,
			cutCommand,
			runCommand,
			userCommand,
			friendCommand,
			tradeCommand,
			offerCommand,
			journalCommand,
			abiCommand,
		},
	}
}

func setupLogging(verbosity int) {
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(verbosity), true)
	log.SetDefault(log.NewLogger(handler))
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

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

// Package config loads the client configuration. Values are layered:
// built-in defaults, then an optional YAML file, then environment
// variables. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"gopkg.in/yaml.v3"

	"github.com/Inaglyite/block-chain-game/chain"
	"github.com/Inaglyite/block-chain-game/game"
	"github.com/Inaglyite/block-chain-game/ledger"
	"github.com/Inaglyite/block-chain-game/localstore"
)

// Environment variables consulted by Load.
const (
	EnvRPCURL  = "RPC_URL"
	EnvAccount = "WEEDCUTTER_ACCOUNT"
)

// DefaultRPCURL is the local development node.
const DefaultRPCURL = "http://127.0.0.1:8545"

// Config is the client configuration.
type Config struct {
	RPCURL       string        `yaml:"rpc_url"`
	RPCTimeout   time.Duration `yaml:"rpc_timeout"`
	AccountIndex int           `yaml:"account_index"`

	ABIPaths     []string `yaml:"abi_paths"`
	AddressPaths []string `yaml:"address_paths"`

	UserStore   string `yaml:"user_store"`
	HiddenStore string `yaml:"hidden_store"`
	JournalDir  string `yaml:"journal_dir"`

	ReceiptTimeout       time.Duration `yaml:"receipt_timeout"`
	GasPricePremiumPct   uint64        `yaml:"gas_price_premium_pct"`
	FallbackGasPriceGwei uint64        `yaml:"fallback_gas_price_gwei"`

	FlushThreshold        uint64        `yaml:"flush_threshold"`
	FlushInterval         time.Duration `yaml:"flush_interval"`
	MarketRefreshInterval time.Duration `yaml:"market_refresh_interval"`
	AutoRefreshInterval   time.Duration `yaml:"auto_refresh_interval"`
	LeaderboardSize       uint64        `yaml:"leaderboard_size"`
	Workers               int           `yaml:"workers"`

	// AddressPool is the set of ledger-known addresses wallets are assigned
	// from while the ledger is offline.
	AddressPool []string `yaml:"address_pool,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	exec := chain.DefaultExecutorConfig()
	return Config{
		RPCURL:                DefaultRPCURL,
		RPCTimeout:            ledger.DefaultCallTimeout,
		ABIPaths:              append([]string(nil), chain.DefaultABIPaths...),
		AddressPaths:          append([]string(nil), chain.DefaultAddressPaths...),
		UserStore:             localstore.DefaultUsersPath,
		HiddenStore:           localstore.DefaultHiddenPath,
		JournalDir:            "txjournal",
		ReceiptTimeout:        exec.ReceiptTimeout,
		GasPricePremiumPct:    exec.GasPremiumPct,
		FallbackGasPriceGwei:  new(big.Int).Div(exec.FallbackGasPrice, big.NewInt(params.GWei)).Uint64(),
		FlushThreshold:        game.DefaultFlushThreshold,
		FlushInterval:         game.DefaultFlushInterval,
		MarketRefreshInterval: game.DefaultMarketInterval,
		AutoRefreshInterval:   game.DefaultTickInterval,
		LeaderboardSize:       game.DefaultLeaderboardSize,
		Workers:               4,
	}
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRPCURL); ok && v != "" {
		c.RPCURL = v
	}
	if v, ok := lookup(EnvAccount); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvAccount, v, err)
		}
		c.AccountIndex = n
	}
	return nil
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc_url must be set"))
	}
	if c.AccountIndex < 0 {
		errs = append(errs, errors.New("account_index must not be negative"))
	}
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"rpc_timeout", c.RPCTimeout},
		{"receipt_timeout", c.ReceiptTimeout},
		{"flush_interval", c.FlushInterval},
		{"market_refresh_interval", c.MarketRefreshInterval},
		{"auto_refresh_interval", c.AutoRefreshInterval},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}
	if c.FlushThreshold == 0 {
		errs = append(errs, errors.New("flush_threshold must be positive"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.GasPricePremiumPct < 100 {
		errs = append(errs, errors.New("gas_price_premium_pct must be at least 100"))
	}
	for _, a := range c.AddressPool {
		if !common.IsHexAddress(a) {
			errs = append(errs, fmt.Errorf("address_pool: invalid address %q", a))
		}
	}
	return errors.Join(errs...)
}

// Pool returns the configured address pool.
func (c Config) Pool() []common.Address {
	out := make([]common.Address, 0, len(c.AddressPool))
	for _, a := range c.AddressPool {
		out = append(out, common.HexToAddress(a))
	}
	return out
}

// Executor returns the executor settings.
func (c Config) Executor() chain.ExecutorConfig {
	cfg := chain.DefaultExecutorConfig()
	cfg.ReceiptTimeout = c.ReceiptTimeout
	cfg.GasPremiumPct = c.GasPricePremiumPct
	if c.FallbackGasPriceGwei > 0 {
		cfg.FallbackGasPrice = new(big.Int).Mul(new(big.Int).SetUint64(c.FallbackGasPriceGwei), big.NewInt(params.GWei))
	}
	return cfg
}

// Service returns the game service settings.
func (c Config) Service() game.ServiceConfig {
	return game.ServiceConfig{
		FlushThreshold: c.FlushThreshold,
		FlushInterval:  c.FlushInterval,
		Cache: game.CacheConfig{
			MarketInterval:  c.MarketRefreshInterval,
			TickInterval:    c.AutoRefreshInterval,
			LeaderboardSize: c.LeaderboardSize,
		},
	}
}

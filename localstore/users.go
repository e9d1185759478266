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

package localstore

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Inaglyite/block-chain-game/weapon"
)

// DefaultUsersPath is where registered users are kept.
const DefaultUsersPath = "user_data.json"

// Profile holds per-user game statistics.
type Profile struct {
	Level       int    `json:"level"`
	TotalScore  uint64 `json:"total_score"`
	GamesPlayed int    `json:"games_played"`
}

// TradeRequest is a peer-to-peer trade offer stored in the recipient's
// record. EncryptedID is the trade id encrypted to the recipient's public
// key, hex encoded.
type TradeRequest struct {
	TradeID     string    `json:"trade_id"`
	FromUser    string    `json:"from_user"`
	ToUser      string    `json:"to_user"`
	WeaponID    uint64    `json:"weapon_id"`
	PriceWei    string    `json:"price_wei"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	EncryptedID string    `json:"encrypted_signature,omitempty"`
}

// TradeRecord is one entry of a user's trade history.
type TradeRecord struct {
	TradeID      string    `json:"trade_id"`
	Counterparty string    `json:"counterparty"`
	Role         string    `json:"role"` // "buyer" or "seller"
	WeaponID     uint64    `json:"weapon_id"`
	PriceWei     string    `json:"price_wei"`
	CompletedAt  time.Time `json:"completed_at"`
}

// User is a registered local identity, distinct from the wallet account.
type User struct {
	Username       string           `json:"username"`
	Email          string           `json:"email"`
	PasswordHash   string           `json:"password_hash"`
	Salt           string           `json:"salt"`
	WalletAddress  string           `json:"wallet_address"`
	PublicKey      string           `json:"public_key"`
	PrivateKey     string           `json:"private_key"`
	CreatedAt      time.Time        `json:"created_at"`
	Friends        []string         `json:"friends"`
	FriendRequests []string         `json:"friend_requests"`
	TradeRequests  []*TradeRequest  `json:"trade_requests"`
	TradeHistory   []*TradeRecord   `json:"trade_history,omitempty"`
	LocalWeapons   []*weapon.Weapon `json:"local_weapons,omitempty"`
	Profile        Profile          `json:"profile"`
}

// Users is the file-backed user store. All mutation goes through Update,
// which serializes read-modify-write of the whole document.
type Users struct {
	path string

	mu    sync.Mutex
	users map[string]*User
	log   log.Logger
}

// OpenUsers loads the store at path. An unreadable or corrupt file yields an
// empty store.
func OpenUsers(path string) *Users {
	if path == "" {
		path = DefaultUsersPath
	}
	s := &Users{path: path, users: make(map[string]*User), log: log.New("module", "localstore", "store", "users")}
	found, err := readJSON(path, &s.users)
	switch {
	case err != nil:
		s.log.Warn("Cannot load user store, starting empty", "path", path, "err", err)
		s.users = make(map[string]*User)
	case found:
		s.log.Info("Loaded user store", "path", path, "users", len(s.users))
	}
	if s.users == nil {
		s.users = make(map[string]*User)
	}
	return s
}

// Path returns the store's file.
func (s *Users) Path() string { return s.path }

// Get returns a copy of username's record.
func (s *Users) Get(username string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, false
	}
	return cloneUser(u), true
}

// All returns copies of every record, ordered by username.
func (s *Users) All() []*User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Len returns the number of users.
func (s *Users) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Update runs fn on a working copy of the store. If fn succeeds the copy
// replaces the store and is persisted; if it fails nothing changes. A failed
// write is logged and skipped, the in-memory store keeps the change.
func (s *Users) Update(fn func(users map[string]*User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := make(map[string]*User, len(s.users))
	for name, u := range s.users {
		work[name] = cloneUser(u)
	}
	if err := fn(work); err != nil {
		return err
	}
	s.users = work
	if err := writeJSON(s.path, s.users); err != nil {
		s.log.Warn("Saving user store failed, write skipped", "path", s.path, "err", err)
	}
	return nil
}

func cloneUser(u *User) *User {
	data, err := json.Marshal(u)
	if err != nil {
		c := *u
		return &c
	}
	var c User
	if err := json.Unmarshal(data, &c); err != nil {
		c := *u
		return &c
	}
	return &c
}

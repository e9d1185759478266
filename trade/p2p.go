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

package trade

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/Inaglyite/block-chain-game/localstore"
	"github.com/Inaglyite/block-chain-game/weapon"
)

const (
	// DefaultKeyBits is the RSA modulus size of registered users.
	DefaultKeyBits = 2048

	passwordIterations = 100_000
	passwordKeyLen     = 32
	saltBytes          = 16

	minUsername = 3
	minPassword = 6
	minQuery    = 2
	maxResults  = 10
)

// Registry errors.
var (
	ErrUsernameTooShort = errors.New("trade: username must be at least 3 characters")
	ErrUsernameTaken    = errors.New("trade: username already exists")
	ErrInvalidEmail     = errors.New("trade: invalid email address")
	ErrEmailTaken       = errors.New("trade: email already registered")
	ErrPasswordTooShort = errors.New("trade: password must be at least 6 characters")
	ErrUnknownUser      = errors.New("trade: no such user")
	ErrWrongPassword    = errors.New("trade: wrong password")
	ErrNoAddresses      = errors.New("trade: no ledger addresses to assign")

	ErrSelfFriend      = errors.New("trade: cannot befriend yourself")
	ErrAlreadyFriends  = errors.New("trade: already friends")
	ErrRequestExists   = errors.New("trade: friend request already sent")
	ErrNoFriendRequest = errors.New("trade: no friend request from that user")

	ErrNotFriends        = errors.New("trade: trades are only possible between friends")
	ErrNoTradeRequest    = errors.New("trade: no such trade request")
	ErrMissingSignature  = errors.New("trade: trade request carries no signature")
	ErrSignatureMismatch = errors.New("trade: signature verification failed")
)

// AddressSource yields the ledger-known addresses wallets are assigned from.
type AddressSource func() []common.Address

// StaticPool returns an AddressSource over a fixed list.
func StaticPool(addrs ...common.Address) AddressSource {
	return func() []common.Address { return addrs }
}

// RegistryConfig configures a Registry. Zero KeyBits means DefaultKeyBits.
type RegistryConfig struct {
	KeyBits int
	Pool    AddressSource
}

// Registry manages local user identities, their friendships and the
// peer-to-peer trade requests exchanged between friends.
type Registry struct {
	users   *localstore.Users
	pool    AddressSource
	keyBits int
	now     func() time.Time
	log     log.Logger
}

// NewRegistry creates a registry over users.
func NewRegistry(users *localstore.Users, cfg RegistryConfig) *Registry {
	if cfg.KeyBits == 0 {
		cfg.KeyBits = DefaultKeyBits
	}
	if cfg.Pool == nil {
		cfg.Pool = StaticPool()
	}
	return &Registry{
		users:   users,
		pool:    cfg.Pool,
		keyBits: cfg.KeyBits,
		now:     time.Now,
		log:     log.New("module", "trade"),
	}
}

// SearchResult is the public view of a user returned by SearchUsers.
type SearchResult struct {
	Username      string `json:"username"`
	WalletAddress string `json:"wallet_address"`
	Level         int    `json:"level"`
}

// Register creates a user with a fresh RSA key pair and a wallet address
// taken round-robin from the pool.
func (r *Registry) Register(username, email, password string) (*localstore.User, error) {
	if len(username) < minUsername {
		return nil, ErrUsernameTooShort
	}
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPassword {
		return nil, ErrPasswordTooShort
	}
	pool := r.pool()
	if len(pool) == 0 {
		return nil, ErrNoAddresses
	}
	if _, ok := r.users.Get(username); ok {
		return nil, ErrUsernameTaken
	}
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	privPEM, pubPEM, err := generateKeys(r.keyBits)
	if err != nil {
		return nil, err
	}
	user := &localstore.User{
		Username:       username,
		Email:          email,
		PasswordHash:   hashPassword(password, salt),
		Salt:           salt,
		PublicKey:      pubPEM,
		PrivateKey:     privPEM,
		CreatedAt:      r.now(),
		Friends:        []string{},
		FriendRequests: []string{},
		TradeRequests:  []*localstore.TradeRequest{},
		Profile:        localstore.Profile{Level: 1},
	}
	err = r.users.Update(func(users map[string]*localstore.User) error {
		if _, ok := users[username]; ok {
			return ErrUsernameTaken
		}
		for _, u := range users {
			if u.Email == email {
				return ErrEmailTaken
			}
		}
		user.WalletAddress = pool[len(users)%len(pool)].Hex()
		users[username] = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("Registered user", "user", username, "wallet", user.WalletAddress)
	u, _ := r.users.Get(username)
	return u, nil
}

// Login verifies a password and returns the user's record.
func (r *Registry) Login(username, password string) (*localstore.User, error) {
	u, ok := r.users.Get(username)
	if !ok {
		return nil, ErrUnknownUser
	}
	want, err := hex.DecodeString(u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("trade: corrupt password hash for %s: %w", username, err)
	}
	got, _ := hex.DecodeString(hashPassword(password, u.Salt))
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return nil, ErrWrongPassword
	}
	return u, nil
}

// SearchUsers finds users whose username or email contains query, ignoring
// case. self is excluded from the results.
func (r *Registry) SearchUsers(self, query string) []SearchResult {
	if len(query) < minQuery {
		return nil
	}
	q := strings.ToLower(query)

	var out []SearchResult
	for _, u := range r.users.All() {
		if u.Username == self {
			continue
		}
		if !strings.Contains(strings.ToLower(u.Username), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		level := u.Profile.Level
		if level == 0 {
			level = 1
		}
		out = append(out, SearchResult{Username: u.Username, WalletAddress: u.WalletAddress, Level: level})
		if len(out) == maxResults {
			break
		}
	}
	return out
}

// SendFriendRequest asks target to befriend from.
func (r *Registry) SendFriendRequest(from, target string) error {
	if from == target {
		return ErrSelfFriend
	}
	return r.users.Update(func(users map[string]*localstore.User) error {
		me, them, err := pair(users, from, target)
		if err != nil {
			return err
		}
		if contains(me.Friends, target) {
			return ErrAlreadyFriends
		}
		if contains(them.FriendRequests, from) {
			return ErrRequestExists
		}
		them.FriendRequests = append(them.FriendRequests, from)
		return nil
	})
}

// AcceptFriendRequest makes user and requester friends of each other.
func (r *Registry) AcceptFriendRequest(user, requester string) error {
	return r.users.Update(func(users map[string]*localstore.User) error {
		me, ok := users[user]
		if !ok {
			return ErrUnknownUser
		}
		if !contains(me.FriendRequests, requester) {
			return ErrNoFriendRequest
		}
		them, ok := users[requester]
		if !ok {
			return ErrUnknownUser
		}
		me.FriendRequests = remove(me.FriendRequests, requester)
		if !contains(me.Friends, requester) {
			me.Friends = append(me.Friends, requester)
		}
		if !contains(them.Friends, user) {
			them.Friends = append(them.Friends, user)
		}
		return nil
	})
}

// RejectFriendRequest drops requester's pending request.
func (r *Registry) RejectFriendRequest(user, requester string) error {
	return r.users.Update(func(users map[string]*localstore.User) error {
		me, ok := users[user]
		if !ok {
			return ErrUnknownUser
		}
		if !contains(me.FriendRequests, requester) {
			return ErrNoFriendRequest
		}
		me.FriendRequests = remove(me.FriendRequests, requester)
		return nil
	})
}

// Friends lists user's friends.
func (r *Registry) Friends(user string) []string {
	u, ok := r.users.Get(user)
	if !ok {
		return nil
	}
	return u.Friends
}

// FriendRequests lists users waiting for user to accept them.
func (r *Registry) FriendRequests(user string) []string {
	u, ok := r.users.Get(user)
	if !ok {
		return nil
	}
	return u.FriendRequests
}

// SendTrade offers weapon weaponID from seller to friend buyer for price
// wei. The trade id is encrypted to the buyer's public key and stored with
// the request.
func (r *Registry) SendTrade(seller, buyer string, weaponID uint64, price *big.Int) (*localstore.TradeRequest, error) {
	if err := weapon.ValidatePrice(price); err != nil {
		return nil, err
	}
	var req *localstore.TradeRequest
	err := r.users.Update(func(users map[string]*localstore.User) error {
		me, them, err := pair(users, seller, buyer)
		if err != nil {
			return err
		}
		if !contains(me.Friends, buyer) {
			return ErrNotFriends
		}
		pub, err := parsePublicKey(them.PublicKey)
		if err != nil {
			return err
		}
		id := uuid.NewString()
		sig, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(id), nil)
		if err != nil {
			return fmt.Errorf("trade: encrypt trade id: %w", err)
		}
		req = &localstore.TradeRequest{
			TradeID:     id,
			FromUser:    seller,
			ToUser:      buyer,
			WeaponID:    weaponID,
			PriceWei:    price.String(),
			Status:      string(StatusPending),
			CreatedAt:   r.now(),
			EncryptedID: hex.EncodeToString(sig),
		}
		them.TradeRequests = append(them.TradeRequests, req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("Trade request sent", "id", req.TradeID, "from", seller, "to", buyer, "weapon", weaponID)
	return req, nil
}

// TradeRequests lists the trade requests addressed to user.
func (r *Registry) TradeRequests(user string) []*localstore.TradeRequest {
	u, ok := r.users.Get(user)
	if !ok {
		return nil
	}
	return u.TradeRequests
}

// AcceptTrade accepts a pending request addressed to user. The stored
// ciphertext must decrypt under user's private key to exactly the trade id,
// otherwise the request stays pending and ErrSignatureMismatch is returned.
func (r *Registry) AcceptTrade(user, tradeID string) (*localstore.TradeRequest, error) {
	var out localstore.TradeRequest
	err := r.users.Update(func(users map[string]*localstore.User) error {
		me, req, err := findRequest(users, user, tradeID)
		if err != nil {
			return err
		}
		if err := verify(me, req); err != nil {
			return err
		}
		return move(req, StatusAccepted, &out)
	})
	if err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			r.log.Warn("Trade signature verification failed", "id", tradeID, "user", user)
		}
		return nil, err
	}
	r.log.Info("Trade request accepted", "id", tradeID, "user", user)
	return &out, nil
}

// RejectTrade rejects a pending request addressed to user.
func (r *Registry) RejectTrade(user, tradeID string) error {
	return r.users.Update(func(users map[string]*localstore.User) error {
		_, req, err := findRequest(users, user, tradeID)
		if err != nil {
			return err
		}
		return move(req, StatusRejected, nil)
	})
}

// CompleteTrade finishes an accepted request addressed to user. The weapon
// record moves from the seller's local collection to the buyer's and both
// users get a history entry. The ledger is not touched.
func (r *Registry) CompleteTrade(user, tradeID string) error {
	err := r.users.Update(func(users map[string]*localstore.User) error {
		buyer, req, err := findRequest(users, user, tradeID)
		if err != nil {
			return err
		}
		seller, ok := users[req.FromUser]
		if !ok {
			return fmt.Errorf("%w: seller %s", ErrUnknownUser, req.FromUser)
		}
		if err := move(req, StatusCompleted, nil); err != nil {
			return err
		}

		w := takeWeapon(seller, req.WeaponID)
		if w == nil {
			w = &weapon.Weapon{ID: req.WeaponID}
		}
		w.Owner = common.HexToAddress(buyer.WalletAddress)
		w.ForSale = false
		buyer.LocalWeapons = append(buyer.LocalWeapons, w)

		at := r.now()
		seller.TradeHistory = append(seller.TradeHistory, &localstore.TradeRecord{
			TradeID: req.TradeID, Counterparty: buyer.Username, Role: "seller",
			WeaponID: req.WeaponID, PriceWei: req.PriceWei, CompletedAt: at,
		})
		buyer.TradeHistory = append(buyer.TradeHistory, &localstore.TradeRecord{
			TradeID: req.TradeID, Counterparty: seller.Username, Role: "buyer",
			WeaponID: req.WeaponID, PriceWei: req.PriceWei, CompletedAt: at,
		})
		return nil
	})
	if err == nil {
		r.log.Info("Trade completed", "id", tradeID, "user", user)
	}
	return err
}

// LocalWeapons returns user's local ownership records, sorted by id.
func (r *Registry) LocalWeapons(user string) []*weapon.Weapon {
	u, ok := r.users.Get(user)
	if !ok {
		return nil
	}
	sort.Slice(u.LocalWeapons, func(i, j int) bool { return u.LocalWeapons[i].ID < u.LocalWeapons[j].ID })
	return u.LocalWeapons
}

// GiveLocalWeapon records w in user's local collection. It seeds the
// collection peer-to-peer trades move weapons between.
func (r *Registry) GiveLocalWeapon(user string, w *weapon.Weapon) error {
	return r.users.Update(func(users map[string]*localstore.User) error {
		u, ok := users[user]
		if !ok {
			return ErrUnknownUser
		}
		takeWeapon(u, w.ID)
		c := *w
		c.Owner = common.HexToAddress(u.WalletAddress)
		u.LocalWeapons = append(u.LocalWeapons, &c)
		return nil
	})
}

func pair(users map[string]*localstore.User, a, b string) (*localstore.User, *localstore.User, error) {
	ua, ok := users[a]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownUser, a)
	}
	ub, ok := users[b]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownUser, b)
	}
	return ua, ub, nil
}

func findRequest(users map[string]*localstore.User, user, id string) (*localstore.User, *localstore.TradeRequest, error) {
	u, ok := users[user]
	if !ok {
		return nil, nil, ErrUnknownUser
	}
	for _, req := range u.TradeRequests {
		if req.TradeID == id {
			return u, req, nil
		}
	}
	return nil, nil, ErrNoTradeRequest
}

func move(req *localstore.TradeRequest, next Status, out *localstore.TradeRequest) error {
	st, err := Status(req.Status).Move(next)
	if err != nil {
		return err
	}
	req.Status = string(st)
	if out != nil {
		*out = *req
	}
	return nil
}

func verify(u *localstore.User, req *localstore.TradeRequest) error {
	if req.EncryptedID == "" {
		return ErrMissingSignature
	}
	ct, err := hex.DecodeString(req.EncryptedID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	priv, err := parsePrivateKey(u.PrivateKey)
	if err != nil {
		return err
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), nil, priv, ct, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	if string(plain) != req.TradeID {
		return ErrSignatureMismatch
	}
	return nil
}

func takeWeapon(u *localstore.User, id uint64) *weapon.Weapon {
	for i, w := range u.LocalWeapons {
		if w.ID == id {
			u.LocalWeapons = append(u.LocalWeapons[:i], u.LocalWeapons[i+1:]...)
			return w
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// hashPassword derives the PBKDF2-HMAC-SHA256 hash of password. The salt is
// used as its hex text, not the decoded bytes.
func hashPassword(password, salt string) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(password), []byte(salt), passwordIterations, passwordKeyLen, sha256.New))
}

func newSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("trade: salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func generateKeys(bits int) (privPEM, pubPEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", fmt.Errorf("trade: generate key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", err
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", err
	}
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub}))
	return privPEM, pubPEM, nil
}

func parsePublicKey(s string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return nil, errors.New("trade: public key is not PEM")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("trade: parse public key: %w", err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("trade: public key is not RSA")
	}
	return pub, nil
}

func parsePrivateKey(s string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return nil, errors.New("trade: private key is not PEM")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("trade: parse private key: %w", err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("trade: private key is not RSA")
	}
	return priv, nil
}

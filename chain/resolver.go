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

// Package chain decides which contract and account the client trusts and
// carries every mutating call to the ledger: contract resolution, the
// account session with its online/offline flag, the transaction executor and
// its journal.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Default candidate locations, in priority order.
var (
	DefaultABIPaths     = []string{"WeedCutterNFT.json", "scripts/WeedCutterNFT.json"}
	DefaultAddressPaths = []string{"contract-info.json", "scripts/contract-info.json"}
)

// Reject reasons reported per candidate.
const (
	ReasonMissing      = "file missing"
	ReasonUnreadable   = "read failed"
	ReasonParse        = "parse error"
	ReasonNoABI        = "missing abi field"
	ReasonInvalidABI   = "invalid abi"
	ReasonNoAddress    = "missing address field"
	ReasonInvalidAddr  = "invalid address"
	ReasonBadChecksum  = "bad checksum"
	ReasonCodeLookup   = "code lookup failed"
	ReasonNoCode       = "no code"
	ReasonNoCandidates = "no candidates configured"
)

// CandidateError records why one candidate file was rejected.
type CandidateError struct {
	Path   string
	Reason string
	Err    error
}

func (c CandidateError) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", c.Path, c.Reason, c.Err)
	}
	return fmt.Sprintf("%s: %s", c.Path, c.Reason)
}

// ResolveError is returned when no candidate qualifies. It keeps every
// per-candidate rejection so callers can show why each one failed.
type ResolveError struct {
	What       string // "contract ABI" or "contract address"
	Candidates []CandidateError
}

func (e *ResolveError) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		parts[i] = c.String()
	}
	return fmt.Sprintf("chain: no usable %s, tried: %s", e.What, strings.Join(parts, " | "))
}

// Rejected reports whether path was rejected for reason.
func (e *ResolveError) Rejected(path, reason string) bool {
	return rejected(e.Candidates, path, reason)
}

// DeploymentInfo is the deployment document written by the deploy script.
type DeploymentInfo struct {
	Address  string `json:"address"`
	Deployer string `json:"deployer,omitempty"`
	Network  string `json:"network,omitempty"`
	ChainID  uint64 `json:"chainId,omitempty"`
}

// Resolution is a successfully resolved contract.
type Resolution struct {
	ABI         abi.ABI
	ABIPath     string
	Address     common.Address
	AddressPath string
	Info        DeploymentInfo

	// Rejected lists the candidates passed over before the winners,
	// ABI candidates first.
	Rejected []CandidateError
}

// RejectedFor reports whether path was passed over for reason.
func (r *Resolution) RejectedFor(path, reason string) bool {
	return rejected(r.Rejected, path, reason)
}

// Resolver locates the ABI and deployed address among ranked candidates.
type Resolver struct {
	ABIPaths     []string
	AddressPaths []string

	log log.Logger
}

// NewResolver returns a resolver over the given candidates, falling back to
// the defaults when a list is empty.
func NewResolver(abiPaths, addressPaths []string) *Resolver {
	if len(abiPaths) == 0 {
		abiPaths = DefaultABIPaths
	}
	if len(addressPaths) == 0 {
		addressPaths = DefaultAddressPaths
	}
	return &Resolver{ABIPaths: abiPaths, AddressPaths: addressPaths, log: log.New("module", "resolver")}
}

// Resolve loads the first parseable ABI and the first address candidate whose
// address actually holds code on the ledger.
func (r *Resolver) Resolve(ctx context.Context, codeAt func(context.Context, common.Address) ([]byte, error)) (*Resolution, error) {
	res := &Resolution{}

	parsed, abiPath, rejectedABI, err := r.resolveABI()
	res.Rejected = append(res.Rejected, rejectedABI...)
	if err != nil {
		return nil, err
	}
	res.ABI, res.ABIPath = parsed, abiPath
	if abiPath != r.ABIPaths[0] {
		r.log.Warn("Using fallback contract ABI", "path", abiPath)
	}

	var rejects []CandidateError
	for _, path := range r.AddressPaths {
		info, addr, cerr := loadAddress(path)
		if cerr != nil {
			rejects = append(rejects, *cerr)
			continue
		}
		code, err := codeAt(ctx, addr)
		if err != nil {
			rejects = append(rejects, CandidateError{Path: path, Reason: ReasonCodeLookup, Err: err})
			continue
		}
		if !hasCode(code) {
			rejects = append(rejects, CandidateError{Path: path, Reason: ReasonNoCode, Err: fmt.Errorf("nothing deployed at %s", addr.Hex())})
			continue
		}
		if path != r.AddressPaths[0] {
			r.log.Warn("Primary deployment file not usable, using fallback", "path", path, "address", addr.Hex())
		}
		res.Address, res.AddressPath, res.Info = addr, path, info
		res.Rejected = append(res.Rejected, rejects...)
		return res, nil
	}
	if len(r.AddressPaths) == 0 {
		rejects = append(rejects, CandidateError{Path: "-", Reason: ReasonNoCandidates})
	}
	return nil, &ResolveError{What: "contract address", Candidates: rejects}
}

func (r *Resolver) resolveABI() (abi.ABI, string, []CandidateError, error) {
	var rejects []CandidateError
	for _, path := range r.ABIPaths {
		parsed, cerr := loadABI(path)
		if cerr != nil {
			rejects = append(rejects, *cerr)
			continue
		}
		return parsed, path, rejects, nil
	}
	if len(r.ABIPaths) == 0 {
		rejects = append(rejects, CandidateError{Path: "-", Reason: ReasonNoCandidates})
	}
	return abi.ABI{}, "", rejects, &ResolveError{What: "contract ABI", Candidates: rejects}
}

func loadABI(path string) (abi.ABI, *CandidateError) {
	data, cerr := readCandidate(path)
	if cerr != nil {
		return abi.ABI{}, cerr
	}
	var doc struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return abi.ABI{}, &CandidateError{Path: path, Reason: ReasonParse, Err: err}
	}
	if len(doc.ABI) == 0 || string(doc.ABI) == "null" {
		return abi.ABI{}, &CandidateError{Path: path, Reason: ReasonNoABI}
	}
	parsed, err := abi.JSON(bytes.NewReader(doc.ABI))
	if err != nil {
		return abi.ABI{}, &CandidateError{Path: path, Reason: ReasonInvalidABI, Err: err}
	}
	return parsed, nil
}

func loadAddress(path string) (DeploymentInfo, common.Address, *CandidateError) {
	var info DeploymentInfo
	data, cerr := readCandidate(path)
	if cerr != nil {
		return info, common.Address{}, cerr
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, common.Address{}, &CandidateError{Path: path, Reason: ReasonParse, Err: err}
	}
	if info.Address == "" {
		return info, common.Address{}, &CandidateError{Path: path, Reason: ReasonNoAddress}
	}
	addr, err := checksumAddress(info.Address)
	if err != nil {
		reason := ReasonInvalidAddr
		if errors.Is(err, errBadChecksum) {
			reason = ReasonBadChecksum
		}
		return info, common.Address{}, &CandidateError{Path: path, Reason: reason, Err: err}
	}
	return info, addr, nil
}

func readCandidate(path string) ([]byte, *CandidateError) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &CandidateError{Path: path, Reason: ReasonMissing}
	}
	if err != nil {
		return nil, &CandidateError{Path: path, Reason: ReasonUnreadable, Err: err}
	}
	return data, nil
}

var errBadChecksum = errors.New("mixed-case address fails EIP-55 checksum")

// checksumAddress validates s as a hex address. All-lower and all-upper
// forms are accepted as unchecksummed; a mixed-case form must match EIP-55.
func checksumAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a hex address", s)
	}
	addr := common.HexToAddress(s)
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if "0x"+body != addr.Hex() {
			return common.Address{}, fmt.Errorf("%w: %s", errBadChecksum, s)
		}
	}
	return addr, nil
}

// hasCode treats all-zero code as no code.
func hasCode(code []byte) bool {
	for _, b := range code {
		if b != 0 {
			return true
		}
	}
	return false
}

func rejected(list []CandidateError, path, reason string) bool {
	for _, c := range list {
		if c.Path == path && c.Reason == reason {
			return true
		}
	}
	return false
}

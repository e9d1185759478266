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

// Package trade implements weapon trade offers between players. Offers
// either live on the ledger, recorded by the WeedCutterNFT contract, or pass
// peer-to-peer through the local user store, where each offer is bound to
// its recipient by an RSA-OAEP encrypted trade id.
package trade

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an offer is moved to a status its
// current status does not lead to.
var ErrInvalidTransition = errors.New("trade: invalid status transition")

// Status is the lifecycle state of a trade offer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"

	// StatusClosed is an on-chain offer that is no longer active: accepted,
	// cancelled or superseded. The contract does not say which.
	StatusClosed Status = "closed"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusCompleted},
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanMove reports whether an offer in status s may move to next.
func (s Status) CanMove(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Move validates the transition from s to next.
func (s Status) Move(next Status) (Status, error) {
	if !s.CanMove(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package keeper implements attested operator identities. A keeper becomes Active once
// its enclave attestation is registered, and from then on its signatures authorize gas
// withdrawals and forced liquidations.
package keeper

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

var logger = log.WithContext("pkg", "keeper")

type Status = uint8

const (
	StatusPending   = Status(iota) // created, waiting for attestation
	StatusActive                   // attested
	StatusSuspended                // stopped by a guardian
)

// StatusName returns a printable status.
func StatusName(s Status) string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusSuspended:
		return "suspended"
	}
	return fmt.Sprintf("status(%d)", s)
}

// Stats are the performance counters of a keeper.
type Stats struct {
	Attempts     uint64
	Successes    uint64
	Failures     uint64
	Profit       uint64 // cumulative, saturating
	GasUsed      uint64 // cumulative, saturating
	LastActiveMs uint64
}

// State is the persisted form of an identity.
type State struct {
	Index         uint64
	ID            stakepool.Bytes32
	Operator      stakepool.Address // receives keeper fees and liquidation rewards
	Name          string
	AttestationID stakepool.Bytes32 // reference of the attested enclave identity
	Status        Status
	PublicKey     []byte // bound by RegisterAttestation, empty while pending
	Stats         Stats
	Nonces        []uint64 // consumed liquidation nonces, ascending
}

// Capability authorizes mutation of exactly one identity.
type Capability struct {
	target stakepool.Bytes32
}

// Identity is a keeper. It is safe for concurrent use.
type Identity struct {
	mu       sync.RWMutex
	index    uint64
	id       stakepool.Bytes32
	operator stakepool.Address
	name     string
	attestID stakepool.Bytes32
	status   Status
	pubkey   []byte
	stats    Stats
	nonces   map[uint64]struct{}
	verifier attestation.Verifier
}

// New creates a pending identity and the single capability for it.
func New(index uint64, operator stakepool.Address, name string, attestationID stakepool.Bytes32) (*Identity, *Capability) {
	id := stakepool.DeriveID("keeper", operator.Bytes(), index)
	k := &Identity{
		index:    index,
		id:       id,
		operator: operator,
		name:     name,
		attestID: attestationID,
		status:   StatusPending,
		nonces:   make(map[uint64]struct{}),
	}
	logger.Info("keeper created", "id", id.AbbrevString(), "operator", operator, "name", name)
	return k, &Capability{target: id}
}

// Restore rebuilds an identity from its persisted state. The verifier is required to
// check signatures of an already attested keeper.
func Restore(s State, verifier attestation.Verifier) (*Identity, *Capability) {
	k := &Identity{
		index:    s.Index,
		id:       s.ID,
		operator: s.Operator,
		name:     s.Name,
		attestID: s.AttestationID,
		status:   s.Status,
		pubkey:   append([]byte(nil), s.PublicKey...),
		stats:    s.Stats,
		nonces:   make(map[uint64]struct{}, len(s.Nonces)),
		verifier: verifier,
	}
	for _, n := range s.Nonces {
		k.nonces[n] = struct{}{}
	}
	return k, &Capability{target: s.ID}
}

// Snapshot returns the persisted form.
func (k *Identity) Snapshot() State {
	k.mu.RLock()
	defer k.mu.RUnlock()

	nonces := make([]uint64, 0, len(k.nonces))
	for n := range k.nonces {
		nonces = append(nonces, n)
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })

	return State{
		Index:         k.index,
		ID:            k.id,
		Operator:      k.operator,
		Name:          k.name,
		AttestationID: k.attestID,
		Status:        k.status,
		PublicKey:     append([]byte(nil), k.pubkey...),
		Stats:         k.stats,
		Nonces:        nonces,
	}
}

func (k *Identity) Index() uint64                    { return k.index }
func (k *Identity) ID() stakepool.Bytes32            { return k.id }
func (k *Identity) Operator() stakepool.Address      { return k.operator }
func (k *Identity) AttestationID() stakepool.Bytes32 { return k.attestID }

func (k *Identity) Name() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.name
}

func (k *Identity) Status() Status {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.status
}

// IsActive returns true when the keeper may act.
func (k *Identity) IsActive() bool {
	return k.Status() == StatusActive
}

func (k *Identity) Stats() Stats {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.stats
}

// PublicKey returns the bound enclave key, nil while pending.
func (k *Identity) PublicKey() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.pubkey) == 0 {
		return nil
	}
	return append([]byte(nil), k.pubkey...)
}

// Authorize checks that c was issued for this identity.
func (k *Identity) Authorize(c *Capability) error {
	if c == nil || c.target != k.id {
		return reverts.Newf(reverts.CodeInvalidCapability, "keeper %v", k.id.AbbrevString())
	}
	return nil
}

// RegisterAttestation binds the enclave key found in document and activates the keeper.
func (k *Identity) RegisterAttestation(
	c *Capability,
	verifier attestation.Verifier,
	document []byte,
	expected attestation.Measurements,
) error {
	if err := k.Authorize(c); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.status != StatusPending {
		return reverts.Newf(reverts.CodeInvalidStatus, "cannot attest a %v keeper", StatusName(k.status))
	}
	pub, err := verifier.ExtractPubkey(document, expected)
	if err != nil {
		return err
	}
	k.pubkey = pub
	k.verifier = verifier
	k.status = StatusActive
	logger.Info("keeper activated", "id", k.id.AbbrevString())
	return nil
}

func (k *Identity) transition(actor stakepool.Address, ac access.Controller, from, to Status) error {
	if err := ac.RequireRole(actor, access.RoleGuardian); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.status != from {
		return reverts.Newf(reverts.CodeInvalidStatus, "keeper is %v, want %v", StatusName(k.status), StatusName(from))
	}
	k.status = to
	logger.Info("keeper status changed", "id", k.id.AbbrevString(), "status", StatusName(to), "by", actor)
	return nil
}

// Suspend moves an active keeper to suspended.
func (k *Identity) Suspend(actor stakepool.Address, ac access.Controller) error {
	return k.transition(actor, ac, StatusActive, StatusSuspended)
}

// Reactivate moves a suspended keeper back to active.
func (k *Identity) Reactivate(actor stakepool.Address, ac access.Controller) error {
	return k.transition(actor, ac, StatusSuspended, StatusActive)
}

func (k *Identity) Rename(c *Capability, name string) error {
	if err := k.Authorize(c); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.name = name
	return nil
}

// VerifySignature checks signature over the canonical message of intent, timestampMs
// and payload. Staleness of timestampMs is for the caller to bound.
func (k *Identity) VerifySignature(intent attestation.Intent, timestampMs uint64, payload, signature []byte) bool {
	k.mu.RLock()
	pub, verifier := k.pubkey, k.verifier
	k.mu.RUnlock()

	if len(pub) == 0 || verifier == nil {
		return false
	}
	return verifier.Verify(pub, attestation.EncodeIntentMessage(intent, timestampMs, payload), signature)
}

// UpdateStats records the outcome of one attempt.
func (k *Identity) UpdateStats(c *Capability, success bool, profit, gasUsed, timestampMs uint64) error {
	if err := k.Authorize(c); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	k.stats.Attempts++
	if success {
		k.stats.Successes++
		k.stats.Profit = saturatingAdd(k.stats.Profit, profit)
	} else {
		k.stats.Failures++
	}
	k.stats.GasUsed = saturatingAdd(k.stats.GasUsed, gasUsed)
	k.stats.LastActiveMs = timestampMs
	return nil
}

// ConsumeNonce marks nonce as used, failing with NonceReused on replay.
func (k *Identity) ConsumeNonce(c *Capability, nonce uint64) error {
	if err := k.Authorize(c); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.nonces[nonce]; ok {
		return reverts.Newf(reverts.CodeNonceReused, "nonce %d", nonce)
	}
	k.nonces[nonce] = struct{}{}
	return nil
}

// ReleaseNonce undoes ConsumeNonce for a call that aborted afterwards.
func (k *Identity) ReleaseNonce(c *Capability, nonce uint64) {
	if k.Authorize(c) != nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.nonces, nonce)
}

func saturatingAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}

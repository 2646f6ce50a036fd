// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package attestation validates enclave attestation documents and signatures made with
// the keys they bind.
package attestation

import (
	"crypto/ecdsa"
	"crypto/ed25519"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru"

	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

var logger = log.WithContext("pkg", "attestation")

// Verifier is the contract keepers rely on.
type Verifier interface {
	// Verify checks signature over message with a key returned by ExtractPubkey.
	Verify(pubkey, message, signature []byte) bool
	// ExtractPubkey validates document against the expected measurements and returns
	// the key it binds, failing with MeasurementMismatch.
	ExtractPubkey(document []byte, expected Measurements) ([]byte, error)
}

// EnclaveVerifier accepts documents signed by one of a fixed set of vendor roots.
//
// A bound key is the key type byte followed by the raw key: 32 bytes for ed25519, the
// 65 byte uncompressed point for secp256k1.
type EnclaveVerifier struct {
	roots map[stakepool.Address]struct{}
	cache *lru.Cache
}

var _ Verifier = (*EnclaveVerifier)(nil)

// NewEnclaveVerifier creates a verifier trusting the given roots; cacheSize bounds
// the number of memoised signature checks.
func NewEnclaveVerifier(roots []stakepool.Address, cacheSize int) (*EnclaveVerifier, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	v := &EnclaveVerifier{
		roots: make(map[stakepool.Address]struct{}, len(roots)),
		cache: cache,
	}
	for _, r := range roots {
		v.roots[r] = struct{}{}
	}
	return v, nil
}

func (v *EnclaveVerifier) ExtractPubkey(document []byte, expected Measurements) ([]byte, error) {
	doc, signer, err := DecodeDocument(document)
	if err != nil {
		return nil, reverts.Newf(reverts.CodeMeasurementMismatch, "malformed document: %v", err)
	}
	if _, ok := v.roots[signer]; !ok {
		return nil, reverts.Newf(reverts.CodeMeasurementMismatch, "untrusted root %v", signer)
	}
	if !doc.Matches(expected) {
		return nil, reverts.Newf(reverts.CodeMeasurementMismatch, "module %v", doc.ModuleID)
	}

	switch doc.KeyType {
	case KeyTypeEd25519:
		if len(doc.PublicKey) != ed25519.PublicKeySize {
			return nil, reverts.Newf(reverts.CodeMeasurementMismatch, "bad ed25519 key length %d", len(doc.PublicKey))
		}
		return append([]byte{byte(KeyTypeEd25519)}, doc.PublicKey...), nil
	case KeyTypeSecp256k1:
		pub, err := secp256k1.ParsePubKey(doc.PublicKey)
		if err != nil {
			return nil, reverts.Newf(reverts.CodeMeasurementMismatch, "bad secp256k1 key: %v", err)
		}
		return append([]byte{byte(KeyTypeSecp256k1)}, pub.SerializeUncompressed()...), nil
	}
	return nil, reverts.Newf(reverts.CodeMeasurementMismatch, "unsupported key type %v", doc.KeyType)
}

func (v *EnclaveVerifier) Verify(pubkey, message, signature []byte) bool {
	key := stakepool.Blake2b(pubkey, message, signature)
	if ok, cached := v.cache.Get(key); cached {
		return ok.(bool)
	}
	ok := verify(pubkey, message, signature)
	v.cache.Add(key, ok)
	if !ok {
		logger.Debug("signature rejected", "key", KeyType(firstByte(pubkey)))
	}
	return ok
}

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func verify(pubkey, message, signature []byte) bool {
	if len(pubkey) < 2 {
		return false
	}
	raw := pubkey[1:]
	switch KeyType(pubkey[0]) {
	case KeyTypeEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(raw), message, signature)
	case KeyTypeSecp256k1:
		if len(signature) < 64 {
			return false
		}
		hash := stakepool.Blake2b(message)
		return crypto.VerifySignature(raw, hash[:], signature[:64])
	}
	return false
}

// Sign signs message with a secp256k1 enclave key the way Verify expects.
func Sign(message []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	hash := stakepool.Blake2b(message)
	return crypto.Sign(hash[:], key)
}

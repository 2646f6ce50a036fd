// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package attestation

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/stakepool"
)

// KeyType is the scheme of the key an enclave binds in its document.
type KeyType uint8

const (
	KeyTypeEd25519 KeyType = iota + 1
	KeyTypeSecp256k1
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeEd25519:
		return "ed25519"
	case KeyTypeSecp256k1:
		return "secp256k1"
	}
	return fmt.Sprintf("keytype(%d)", uint8(k))
}

// PCR is one platform measurement register.
type PCR struct {
	Index uint8
	Value []byte
}

// Measurements lists the registers a document must carry with equal values.
type Measurements []PCR

// Document is the statement an enclave produces about itself.
type Document struct {
	ModuleID    string
	TimestampMs uint64
	PCRs        []PCR
	KeyType     KeyType
	PublicKey   []byte
}

// SigningHash returns the digest the vendor root key signs.
func (d *Document) SigningHash() stakepool.Bytes32 {
	data, err := rlp.EncodeToBytes(d)
	if err != nil {
		panic(err)
	}
	return stakepool.Blake2b(data)
}

// Matches reports whether every expected register is present with the same value.
func (d *Document) Matches(expected Measurements) bool {
	for _, want := range expected {
		found := false
		for _, have := range d.PCRs {
			if have.Index == want.Index {
				found = bytes.Equal(have.Value, want.Value)
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type signedDocument struct {
	Document  Document
	Signature []byte
}

// EncodeDocument signs doc with a vendor root key and returns the wire form.
func EncodeDocument(doc *Document, root *ecdsa.PrivateKey) ([]byte, error) {
	hash := doc.SigningHash()
	sig, err := crypto.Sign(hash[:], root)
	if err != nil {
		return nil, errors.Wrap(err, "sign document")
	}
	return rlp.EncodeToBytes(&signedDocument{*doc, sig})
}

// DecodeDocument parses the wire form and recovers the address of the signing root.
func DecodeDocument(data []byte) (*Document, stakepool.Address, error) {
	var signed signedDocument
	if err := rlp.DecodeBytes(data, &signed); err != nil {
		return nil, stakepool.Address{}, errors.Wrap(err, "decode document")
	}
	hash := signed.Document.SigningHash()
	pub, err := crypto.Ecrecover(hash[:], signed.Signature)
	if err != nil {
		return nil, stakepool.Address{}, errors.Wrap(err, "recover document signer")
	}
	return &signed.Document, stakepool.PubkeyToAddress(pub), nil
}

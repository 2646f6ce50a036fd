// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package attestation

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

var measurements = Measurements{
	{Index: 0, Value: []byte("image")},
	{Index: 8, Value: []byte("signing-cert")},
}

func newVerifier(t *testing.T) (*EnclaveVerifier, func(*Document) []byte) {
	root, err := crypto.GenerateKey()
	require.NoError(t, err)

	rootAddr := stakepool.PubkeyToAddress(crypto.FromECDSAPub(&root.PublicKey))
	v, err := NewEnclaveVerifier([]stakepool.Address{rootAddr}, 16)
	require.NoError(t, err)

	encode := func(doc *Document) []byte {
		data, err := EncodeDocument(doc, root)
		require.NoError(t, err)
		return data
	}
	return v, encode
}

func TestExtractSecp256k1(t *testing.T) {
	v, encode := newVerifier(t)
	enclave, err := crypto.GenerateKey()
	require.NoError(t, err)

	doc := &Document{
		ModuleID:    "keeper-1",
		TimestampMs: 1_700_000_000_000,
		PCRs:        append(measurements, PCR{Index: 4, Value: []byte("extra")}),
		KeyType:     KeyTypeSecp256k1,
		PublicKey:   crypto.CompressPubkey(&enclave.PublicKey),
	}
	pub, err := v.ExtractPubkey(encode(doc), measurements)
	require.NoError(t, err)
	assert.Equal(t, byte(KeyTypeSecp256k1), pub[0])
	assert.Equal(t, crypto.FromECDSAPub(&enclave.PublicKey), pub[1:])

	msg := EncodeIntentMessage(IntentLiquidation, 42, []byte("payload"))
	sig, err := Sign(msg, enclave)
	require.NoError(t, err)
	assert.True(t, v.Verify(pub, msg, sig))
	// served from cache
	assert.True(t, v.Verify(pub, msg, sig))

	other := EncodeIntentMessage(IntentGasWithdrawal, 42, []byte("payload"))
	assert.False(t, v.Verify(pub, other, sig))
}

func TestExtractEd25519(t *testing.T) {
	v, encode := newVerifier(t)
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	doc := &Document{ModuleID: "keeper-2", PCRs: measurements, KeyType: KeyTypeEd25519, PublicKey: pubKey}
	pub, err := v.ExtractPubkey(encode(doc), measurements)
	require.NoError(t, err)

	msg := EncodeIntentMessage(IntentConfigUpdate, 7, nil)
	assert.True(t, v.Verify(pub, msg, ed25519.Sign(privKey, msg)))
	assert.False(t, v.Verify(pub, msg, make([]byte, ed25519.SignatureSize)))
}

func TestExtractRejects(t *testing.T) {
	v, encode := newVerifier(t)
	enclave, _ := crypto.GenerateKey()
	good := Document{ModuleID: "k", PCRs: measurements, KeyType: KeyTypeSecp256k1, PublicKey: crypto.CompressPubkey(&enclave.PublicKey)}

	stranger, _ := crypto.GenerateKey()
	foreign, err := EncodeDocument(&good, stranger)
	require.NoError(t, err)

	wrongPCR := good
	wrongPCR.PCRs = Measurements{{Index: 0, Value: []byte("other")}, measurements[1]}

	missingPCR := good
	missingPCR.PCRs = measurements[:1]

	badKey := good
	badKey.PublicKey = []byte{1, 2, 3}

	unknownType := good
	unknownType.KeyType = 9

	tests := []struct {
		name string
		doc  []byte
	}{
		{"garbage", []byte{0xff, 0x00}},
		{"untrusted root", foreign},
		{"wrong pcr", encode(&wrongPCR)},
		{"missing pcr", encode(&missingPCR)},
		{"bad key", encode(&badKey)},
		{"unknown key type", encode(&unknownType)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ExtractPubkey(tt.doc, measurements)
			assert.True(t, reverts.Is(err, reverts.CodeMeasurementMismatch), "got %v", err)
		})
	}
}

func TestVerifyMalformedKey(t *testing.T) {
	v, _ := newVerifier(t)
	assert.False(t, v.Verify(nil, []byte("m"), []byte("s")))
	assert.False(t, v.Verify([]byte{byte(KeyTypeSecp256k1), 1}, []byte("m"), make([]byte, 65)))
	assert.False(t, v.Verify([]byte{7, 1, 2}, []byte("m"), []byte("s")))
}

func TestEncodeIntentMessage(t *testing.T) {
	a := EncodeIntentMessage(IntentLiquidation, 1, []byte{1})
	assert.NotEqual(t, a, EncodeIntentMessage(IntentConfigUpdate, 1, []byte{1}))
	assert.NotEqual(t, a, EncodeIntentMessage(IntentLiquidation, 2, []byte{1}))
	assert.NotEqual(t, a, EncodeIntentMessage(IntentLiquidation, 1, []byte{2}))
	assert.Equal(t, EncodeIntentMessage(IntentLiquidation, 1, nil), EncodeIntentMessage(IntentLiquidation, 1, []byte{}))
	assert.Equal(t, "gas-withdrawal", IntentGasWithdrawal.String())
}

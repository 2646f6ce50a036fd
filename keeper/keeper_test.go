// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package keeper

import (
	"crypto/ecdsa"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

var (
	operator = stakepool.BytesToAddress([]byte("operator"))
	admin    = stakepool.BytesToAddress([]byte("admin"))
	pcrs     = attestation.Measurements{{Index: 0, Value: []byte("keeper-image")}}
)

type fixture struct {
	verifier *attestation.EnclaveVerifier
	document []byte
	enclave  *ecdsa.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	root, err := crypto.GenerateKey()
	require.NoError(t, err)
	enclave, err := crypto.GenerateKey()
	require.NoError(t, err)

	v, err := attestation.NewEnclaveVerifier(
		[]stakepool.Address{stakepool.PubkeyToAddress(crypto.FromECDSAPub(&root.PublicKey))}, 8)
	require.NoError(t, err)

	doc, err := attestation.EncodeDocument(&attestation.Document{
		ModuleID:  "keeper",
		PCRs:      pcrs,
		KeyType:   attestation.KeyTypeSecp256k1,
		PublicKey: crypto.CompressPubkey(&enclave.PublicKey),
	}, root)
	require.NoError(t, err)
	return &fixture{v, doc, enclave}
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	ac := access.New(admin)
	k, c := New(0, operator, "k0", stakepool.Bytes32{1})
	assert.Equal(t, StatusPending, k.Status())
	assert.Nil(t, k.PublicKey())

	// only active keepers can be suspended
	assert.True(t, reverts.Is(k.Suspend(admin, ac), reverts.CodeInvalidStatus))

	err := k.RegisterAttestation(c, f.verifier, f.document, attestation.Measurements{{Index: 0, Value: []byte("other")}})
	assert.True(t, reverts.Is(err, reverts.CodeMeasurementMismatch))
	assert.Equal(t, StatusPending, k.Status())

	require.NoError(t, k.RegisterAttestation(c, f.verifier, f.document, pcrs))
	assert.True(t, k.IsActive())
	assert.NotNil(t, k.PublicKey())

	err = k.RegisterAttestation(c, f.verifier, f.document, pcrs)
	assert.True(t, reverts.Is(err, reverts.CodeInvalidStatus))

	assert.True(t, reverts.Is(k.Suspend(operator, ac), reverts.CodeUnauthorized))
	require.NoError(t, k.Suspend(admin, ac))
	assert.Equal(t, StatusSuspended, k.Status())
	assert.True(t, reverts.Is(k.Suspend(admin, ac), reverts.CodeInvalidStatus))

	require.NoError(t, k.Reactivate(admin, ac))
	assert.True(t, k.IsActive())
	assert.True(t, reverts.Is(k.Reactivate(admin, ac), reverts.CodeInvalidStatus))
}

func TestCapabilityMismatch(t *testing.T) {
	f := newFixture(t)
	k, _ := New(0, operator, "k0", stakepool.Bytes32{})
	_, other := New(1, operator, "k1", stakepool.Bytes32{})

	assert.True(t, reverts.Is(k.RegisterAttestation(other, f.verifier, f.document, pcrs), reverts.CodeInvalidCapability))
	assert.True(t, reverts.Is(k.UpdateStats(other, true, 1, 1, 1), reverts.CodeInvalidCapability))
	assert.True(t, reverts.Is(k.UpdateStats(nil, true, 1, 1, 1), reverts.CodeInvalidCapability))
	assert.True(t, reverts.Is(k.Rename(other, "x"), reverts.CodeInvalidCapability))
	assert.True(t, reverts.Is(k.ConsumeNonce(other, 1), reverts.CodeInvalidCapability))
	assert.Equal(t, Stats{}, k.Stats())
	assert.Equal(t, "k0", k.Name())
}

func TestVerifySignature(t *testing.T) {
	f := newFixture(t)
	k, c := New(0, operator, "k0", stakepool.Bytes32{})

	msg := attestation.EncodeIntentMessage(attestation.IntentLiquidation, 100, []byte("p"))
	sig, err := attestation.Sign(msg, f.enclave)
	require.NoError(t, err)

	// nothing bound yet
	assert.False(t, k.VerifySignature(attestation.IntentLiquidation, 100, []byte("p"), sig))

	require.NoError(t, k.RegisterAttestation(c, f.verifier, f.document, pcrs))
	assert.True(t, k.VerifySignature(attestation.IntentLiquidation, 100, []byte("p"), sig))
	assert.False(t, k.VerifySignature(attestation.IntentGasWithdrawal, 100, []byte("p"), sig))
	assert.False(t, k.VerifySignature(attestation.IntentLiquidation, 101, []byte("p"), sig))
	assert.False(t, k.VerifySignature(attestation.IntentLiquidation, 100, []byte("q"), sig))
}

func TestUpdateStats(t *testing.T) {
	k, c := New(0, operator, "k0", stakepool.Bytes32{})
	require.NoError(t, k.UpdateStats(c, true, 50, 10, 1000))
	require.NoError(t, k.UpdateStats(c, false, 99, 5, 2000))
	require.NoError(t, k.UpdateStats(c, true, math.MaxUint64, 0, 3000))

	s := k.Stats()
	assert.Equal(t, uint64(3), s.Attempts)
	assert.Equal(t, uint64(2), s.Successes)
	assert.Equal(t, uint64(1), s.Failures)
	assert.Equal(t, uint64(math.MaxUint64), s.Profit)
	assert.Equal(t, uint64(15), s.GasUsed)
	assert.Equal(t, uint64(3000), s.LastActiveMs)
}

func TestNonces(t *testing.T) {
	k, c := New(0, operator, "k0", stakepool.Bytes32{})
	require.NoError(t, k.ConsumeNonce(c, 7))
	assert.True(t, reverts.Is(k.ConsumeNonce(c, 7), reverts.CodeNonceReused))

	k.ReleaseNonce(c, 7)
	require.NoError(t, k.ConsumeNonce(c, 7))
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	k, c := New(3, operator, "k3", stakepool.Bytes32{9})
	require.NoError(t, k.RegisterAttestation(c, f.verifier, f.document, pcrs))
	require.NoError(t, k.ConsumeNonce(c, 5))
	require.NoError(t, k.ConsumeNonce(c, 2))
	require.NoError(t, k.UpdateStats(c, true, 1, 2, 3))

	state := k.Snapshot()
	assert.Equal(t, []uint64{2, 5}, state.Nonces)

	restored, rc := Restore(state, f.verifier)
	assert.Equal(t, state, restored.Snapshot())
	assert.Equal(t, k.ID(), restored.ID())
	assert.True(t, reverts.Is(restored.ConsumeNonce(rc, 5), reverts.CodeNonceReused))

	msg := attestation.EncodeIntentMessage(attestation.IntentLiquidation, 1, nil)
	sig, err := attestation.Sign(msg, f.enclave)
	require.NoError(t, err)
	assert.True(t, restored.VerifySignature(attestation.IntentLiquidation, 1, nil, sig))
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/stakepool"
)

var (
	admin          = stakepool.BytesToAddress([]byte("admin"))
	alice          = stakepool.BytesToAddress([]byte("alice"))
	bob            = stakepool.BytesToAddress([]byte("bob"))
	keeperOperator = stakepool.BytesToAddress([]byte("keeper"))
)

type testEnv struct {
	pool    *Pool
	access  *access.Registry
	bank    *bank.Bank
	keeper  *keeper.Identity
	cap     *keeper.Capability
	enclave *ecdsa.PrivateKey
}

func activeKeeper(t *testing.T, index uint64) (*keeper.Identity, *keeper.Capability, *ecdsa.PrivateKey) {
	root, err := crypto.GenerateKey()
	require.NoError(t, err)
	enclave, err := crypto.GenerateKey()
	require.NoError(t, err)

	v, err := attestation.NewEnclaveVerifier(
		[]stakepool.Address{stakepool.PubkeyToAddress(crypto.FromECDSAPub(&root.PublicKey))}, 4)
	require.NoError(t, err)
	doc, err := attestation.EncodeDocument(&attestation.Document{
		ModuleID:  "keeper",
		KeyType:   attestation.KeyTypeSecp256k1,
		PublicKey: crypto.CompressPubkey(&enclave.PublicKey),
	}, root)
	require.NoError(t, err)

	k, c := keeper.New(index, keeperOperator, "keeper", stakepool.Bytes32{})
	require.NoError(t, k.RegisterAttestation(c, v, doc, nil))
	return k, c, enclave
}

const orderTimestampMs = 1_700_000_000_000

// signedOrder builds a liquidation order for pos signed by enclave, allowing the
// whole position to be taken.
func signedOrder(t *testing.T, enclave *ecdsa.PrivateKey, pos *Position, amount, claimedGas, nonce uint64) ForceUnstakeRequest {
	payload := LiquidationPayload{
		PositionID:     pos.ID(),
		Amount:         amount,
		ClaimedGasDebt: claimedGas,
		Nonce:          nonce,
	}
	msg := attestation.EncodeIntentMessage(attestation.IntentLiquidation, orderTimestampMs, payload.Encode())
	sig, err := attestation.Sign(msg, enclave)
	require.NoError(t, err)
	return ForceUnstakeRequest{
		Amount:         amount,
		ClaimedGasDebt: claimedGas,
		Nonce:          nonce,
		Signature:      sig,
		TimestampMs:    orderTimestampMs,
		MaxRatioBps:    stakepool.MaxBps,
	}
}

func newEnv(t *testing.T, protocolBps, keeperBps uint64) *testEnv {
	ac := access.New(admin)
	b := bank.New()
	k, c, enclave := activeKeeper(t, 0)
	p, err := New(0, Params{Name: "test", ProtocolFeeBps: protocolBps, KeeperFeeBps: keeperBps, Keeper: k.ID()}, ac, b)
	require.NoError(t, err)
	return &testEnv{p, ac, b, k, c, enclave}
}

func (e *testEnv) open(t *testing.T, owner stakepool.Address, stake uint64) *Position {
	pos, err := e.pool.OpenPosition(owner, "")
	require.NoError(t, err)
	if stake > 0 {
		require.NoError(t, e.pool.Stake(pos, stake))
	}
	return pos
}

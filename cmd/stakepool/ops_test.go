// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/registry"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

func TestOfflineOperations(t *testing.T) {
	var (
		admin = stakepool.BytesToAddress([]byte("admin"))
		op    = stakepool.BytesToAddress([]byte("operator"))
		alice = stakepool.BytesToAddress([]byte("alice"))
		bob   = stakepool.BytesToAddress([]byte("bob"))
	)
	root, err := crypto.GenerateKey()
	require.NoError(t, err)
	enclave, err := crypto.GenerateKey()
	require.NoError(t, err)
	verifier, err := attestation.NewEnclaveVerifier(
		[]stakepool.Address{stakepool.PubkeyToAddress(crypto.FromECDSAPub(&root.PublicKey))}, 4)
	require.NoError(t, err)
	doc, err := attestation.EncodeDocument(&attestation.Document{
		ModuleID:  "keeper",
		KeyType:   attestation.KeyTypeSecp256k1,
		PublicKey: crypto.CompressPubkey(&enclave.PublicKey),
	}, root)
	require.NoError(t, err)
	events, err := eventdb.NewMem()
	require.NoError(t, err)
	defer events.Close()

	reg := registry.New(access.New(admin), bank.New(), verifier, events)
	k, c, err := reg.CreateKeeper(op, "bot", stakepool.Bytes32{})
	require.NoError(t, err)
	require.NoError(t, k.RegisterAttestation(c, verifier, doc, nil))
	p, _, err := reg.CreatePool(admin, pool.Params{Name: "main", KeeperFeeBps: 1000, Keeper: k.ID()})
	require.NoError(t, err)
	caps := map[stakepool.Bytes32]*keeper.Capability{k.ID(): c}

	run := func(o operation, args opArgs) (any, error) {
		return o(reg, caps, &args)
	}

	res, err := run(openPositionOp, opArgs{actor: alice, amount: 1000, metadata: "a"})
	require.NoError(t, err)
	a := res.(positionView)
	assert.Equal(t, alice, a.Owner)
	assert.Equal(t, "1000", a.Shares)
	res, err = run(openPositionOp, opArgs{actor: bob, amount: 1000})
	require.NoError(t, err)
	b := res.(positionView)

	_, err = run(stakeOp, opArgs{position: a.ID, actor: bob, amount: 1})
	assert.True(t, reverts.Is(err, reverts.CodeUnauthorized))

	// 10% keeper fee to the bound keeper's operator, 90 to each staker
	_, err = run(depositRewardsOp, opArgs{amount: 200})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), reg.Bank().BalanceOf(op, bank.AssetReward).Uint64())
	res, err = run(withdrawRewardsOp, opArgs{position: a.ID, actor: alice})
	require.NoError(t, err)
	assert.Equal(t, uint64(90), res)
	assert.Equal(t, uint64(90), reg.Bank().BalanceOf(alice, bank.AssetReward).Uint64())

	_, err = run(chargeGasOp, opArgs{keeper: k.ID(), actor: alice, amount: 100})
	assert.True(t, reverts.Is(err, reverts.CodeUnauthorized))
	_, err = run(chargeGasOp, opArgs{keeper: k.ID(), actor: op, amount: 100})
	require.NoError(t, err)
	_, err = run(takeGasOp, opArgs{keeper: k.ID(), actor: op, amount: 30})
	require.NoError(t, err)
	assert.Equal(t, uint64(30), reg.Bank().BalanceOf(op, bank.AssetStake).Uint64())

	// alice's 50 gas comes out of her principal
	res, err = run(unstakeOp, opArgs{position: a.ID, actor: alice, amount: 500})
	require.NoError(t, err)
	assert.Equal(t, pool.UnstakeResult{Principal: 450, GasCost: 50}, res)
	assert.Equal(t, uint64(450), reg.Bank().BalanceOf(alice, bank.AssetStake).Uint64())

	res, err = run(withdrawGasOp, opArgs{position: b.ID, actor: bob})
	require.NoError(t, err)
	assert.Equal(t, uint64(50), res)
	assert.Equal(t, uint64(2000-30-450-50), p.Info().StakeBalance)

	_, err = run(suspendKeeperOp, opArgs{keeper: k.ID(), actor: alice})
	assert.True(t, reverts.Is(err, reverts.CodeUnauthorized))
	_, err = run(suspendKeeperOp, opArgs{keeper: k.ID(), actor: admin})
	require.NoError(t, err)
	_, err = run(takeGasOp, opArgs{keeper: k.ID(), actor: op, amount: 1})
	assert.True(t, reverts.Is(err, reverts.CodeKeeperNotActive))
	res, err = run(reactivateKeeperOp, opArgs{keeper: k.ID(), actor: admin})
	require.NoError(t, err)
	assert.Equal(t, keeper.StatusActive, res.(keeper.State).Status)

	_, err = run(closePositionOp, opArgs{position: a.ID, actor: alice})
	assert.Error(t, err)
	_, err = run(unstakeOp, opArgs{position: a.ID, actor: alice, amount: 500})
	require.NoError(t, err)
	_, err = run(closePositionOp, opArgs{position: a.ID, actor: alice})
	require.NoError(t, err)
	assert.Equal(t, 1, p.PositionCount())
}

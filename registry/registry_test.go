// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/lvldb"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/store"
)

var (
	admin    = stakepool.BytesToAddress([]byte("admin"))
	operator = stakepool.BytesToAddress([]byte("operator"))
	alice    = stakepool.BytesToAddress([]byte("alice"))
)

type env struct {
	reg      *Registry
	access   *access.Registry
	verifier *attestation.EnclaveVerifier
	events   *eventdb.EventDB
	document []byte
}

func newEnv(t *testing.T) *env {
	root, err := crypto.GenerateKey()
	require.NoError(t, err)
	enclave, err := crypto.GenerateKey()
	require.NoError(t, err)
	v, err := attestation.NewEnclaveVerifier(
		[]stakepool.Address{stakepool.PubkeyToAddress(crypto.FromECDSAPub(&root.PublicKey))}, 16)
	require.NoError(t, err)
	doc, err := attestation.EncodeDocument(&attestation.Document{
		ModuleID:  "keeper",
		KeyType:   attestation.KeyTypeSecp256k1,
		PublicKey: crypto.CompressPubkey(&enclave.PublicKey),
	}, root)
	require.NoError(t, err)

	events, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	ac := access.New(admin)
	require.NoError(t, ac.Grant(admin, operator, access.RoleOperator))
	return &env{New(ac, bank.New(), v, events), ac, v, events, doc}
}

func TestCreate(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.reg.CreatePool(alice, pool.Params{Name: "a"})
	assert.True(t, reverts.Is(err, reverts.CodeUnauthorized))

	_, _, err = e.reg.CreatePool(operator, pool.Params{Name: "a", Keeper: stakepool.Bytes32{1}})
	assert.True(t, reverts.Is(err, reverts.CodeNotFound))

	_, _, err = e.reg.CreatePool(operator, pool.Params{Name: "a", ProtocolFeeBps: 10000})
	assert.True(t, reverts.Is(err, reverts.CodeInvalidFeeRate))

	k, _, err := e.reg.CreateKeeper(operator, "bot", stakepool.Bytes32{})
	require.NoError(t, err)
	assert.Equal(t, keeper.StatusPending, k.Status())

	p0, i0, err := e.reg.CreatePool(operator, pool.Params{Name: "a", Keeper: k.ID()})
	require.NoError(t, err)
	p1, i1, err := e.reg.CreatePool(operator, pool.Params{Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), i0)
	assert.Equal(t, uint64(1), i1)
	assert.NotEqual(t, p0.ID(), p1.ID())

	got, err := e.reg.Pool(1)
	require.NoError(t, err)
	assert.Same(t, p1, got)
	_, err = e.reg.Pool(2)
	assert.True(t, reverts.Is(err, reverts.CodeNotFound))

	gotKeeper, err := e.reg.Keeper(k.ID())
	require.NoError(t, err)
	assert.Same(t, k, gotKeeper)
	_, err = e.reg.Keeper(stakepool.Bytes32{9})
	assert.True(t, reverts.Is(err, reverts.CodeNotFound))

	assert.Len(t, e.reg.Pools(), 2)
	assert.Len(t, e.reg.Keepers(), 1)

	require.NoError(t, e.access.Pause(admin))
	_, _, err = e.reg.CreatePool(operator, pool.Params{Name: "c"})
	assert.True(t, reverts.Is(err, reverts.CodePaused))
}

func TestCollectProtocolFeeIsLogged(t *testing.T) {
	e := newEnv(t)
	p, index, err := e.reg.CreatePool(operator, pool.Params{Name: "a", ProtocolFeeBps: 1000})
	require.NoError(t, err)
	pos, err := p.OpenPosition(alice, "")
	require.NoError(t, err)
	require.NoError(t, p.Stake(pos, 100))
	_, err = p.DepositRewards(500, stakepool.Address{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = e.reg.CollectProtocolFee(ctx, operator, index, 1)
	assert.True(t, reverts.Is(err, reverts.CodeUnauthorized))

	fee, err := e.reg.CollectProtocolFee(ctx, admin, index, 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), fee)

	fees, err := e.events.FeeCollections(ctx, nil)
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, eventdb.FeeCollection{PoolIndex: index, Collector: admin, Amount: 50, TimestampMs: 42}, *fees[0])
}

func TestSaveLoad(t *testing.T) {
	e := newEnv(t)
	k, c, err := e.reg.CreateKeeper(operator, "bot", stakepool.Bytes32{5})
	require.NoError(t, err)
	require.NoError(t, k.RegisterAttestation(c, e.verifier, e.document, nil))
	require.NoError(t, k.ConsumeNonce(c, 3))

	for i := range 4 {
		p, _, err := e.reg.CreatePool(operator, pool.Params{Name: "p", KeeperFeeBps: 100, Keeper: k.ID()})
		require.NoError(t, err)
		pos, err := p.OpenPosition(alice, "m")
		require.NoError(t, err)
		require.NoError(t, p.Stake(pos, uint64(1000*(i+1))))
		_, err = p.DepositRewards(200, k.Operator())
		require.NoError(t, err)
	}

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	s := store.New(db)
	ctx := context.Background()
	require.NoError(t, e.reg.Save(ctx, s))

	loaded, caps, err := Load(ctx, s, e.access, e.verifier, nil)
	require.NoError(t, err)

	require.Len(t, loaded.Pools(), 4)
	for i, p := range e.reg.Pools() {
		assert.Equal(t, p.Snapshot(), loaded.Pools()[i].Snapshot())
	}
	lk, err := loaded.Keeper(k.ID())
	require.NoError(t, err)
	assert.Equal(t, k.Snapshot(), lk.Snapshot())
	assert.True(t, lk.IsActive())

	// restored capability still gates the restored identity
	require.Contains(t, caps, k.ID())
	assert.NoError(t, lk.Authorize(caps[k.ID()]))
	assert.True(t, reverts.Is(lk.ConsumeNonce(caps[k.ID()], 3), reverts.CodeNonceReused))

	assert.Equal(t, e.reg.Bank().Entries(), loaded.Bank().Entries())
	assert.Equal(t, uint64(8), loaded.Bank().BalanceOf(operator, bank.AssetReward).Uint64())

	// new pools continue the index sequence
	_, index, err := loaded.CreatePool(operator, pool.Params{Name: "next"})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), index)
}

func TestLoadEmpty(t *testing.T) {
	e := newEnv(t)
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	r, caps, err := Load(context.Background(), store.New(db), e.access, e.verifier, nil)
	require.NoError(t, err)
	assert.Empty(t, r.Pools())
	assert.Empty(t, r.Keepers())
	assert.Empty(t, caps)
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/lvldb"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/stakepool"
)

var (
	admin = stakepool.BytesToAddress([]byte("admin"))
	alice = stakepool.BytesToAddress([]byte("alice"))
)

func newPool(t *testing.T, index uint64, payee bank.Payee) *pool.Pool {
	p, err := pool.New(index, pool.Params{Name: "p", ProtocolFeeBps: 100, KeeperFeeBps: 0}, access.New(admin), payee)
	require.NoError(t, err)
	pos, err := p.OpenPosition(alice, "meta")
	require.NoError(t, err)
	require.NoError(t, p.Stake(pos, 3000))
	_, err = p.DepositRewards(700, stakepool.Address{})
	require.NoError(t, err)
	require.NoError(t, p.UpdateAccumulators(0, 11))
	return p
}

func TestPoolCodec(t *testing.T) {
	want := newPool(t, 3, bank.New()).Snapshot()

	data, err := EncodePool(want)
	require.NoError(t, err)
	got, err := DecodePool(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = DecodePool([]byte("garbage"))
	assert.Error(t, err)
}

func TestKeeperCodec(t *testing.T) {
	k, c := keeper.New(5, alice, "bot", stakepool.Bytes32{9})
	require.NoError(t, k.ConsumeNonce(c, 4))
	require.NoError(t, k.ConsumeNonce(c, 2))
	require.NoError(t, k.UpdateStats(c, true, 10, 3, 1000))

	data, err := EncodeKeeper(k.Snapshot())
	require.NoError(t, err)
	got, err := DecodeKeeper(data)
	require.NoError(t, err)
	assert.Equal(t, k.Snapshot(), got)
	assert.Equal(t, []uint64{2, 4}, got.Nonces)
}

func TestWriteAndLoad(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	s := New(db)

	// an empty store loads nothing
	v, err := s.Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	pools, err := s.LoadPools()
	require.NoError(t, err)
	assert.Empty(t, pools)

	b := bank.New()
	b.Credit(alice, bank.AssetReward, 42)
	p0, p1 := newPool(t, 0, b), newPool(t, 1, b)
	k, _ := keeper.New(0, alice, "bot", stakepool.Bytes32{})

	snap := &Snapshot{Pools: map[uint64][]byte{}, Keepers: map[uint64][]byte{}, Bank: b.Entries()}
	for _, p := range []*pool.Pool{p1, p0} {
		data, err := EncodePool(p.Snapshot())
		require.NoError(t, err)
		snap.Pools[p.Index()] = data
	}
	data, err := EncodeKeeper(k.Snapshot())
	require.NoError(t, err)
	snap.Keepers[0] = data
	require.NoError(t, s.Write(snap))

	v, err = s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint64(schemaVersion), v)

	pools, err = s.LoadPools()
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, uint64(0), pools[0].Index)
	assert.Equal(t, p1.Snapshot(), pools[1])

	keepers, err := s.LoadKeepers()
	require.NoError(t, err)
	require.Len(t, keepers, 1)
	assert.Equal(t, k.ID(), keepers[0].ID)

	entries, err := s.LoadBank()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint256.NewInt(42), entries[0].Balance)

	restored, err := pool.Restore(pools[1], access.New(admin), b)
	require.NoError(t, err)
	assert.Equal(t, p1.Snapshot(), restored.Snapshot())
}

func TestUnsupportedVersion(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, metaBucket.NewPutter(db).Put(versionKey, indexKey(schemaVersion+1)))

	_, err = New(db).LoadPools()
	assert.ErrorContains(t, err, "unsupported schema version")
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/stakepool/stakepool"
)

func TestCredit(t *testing.T) {
	b := New()
	alice := stakepool.BytesToAddress([]byte("alice"))
	bob := stakepool.BytesToAddress([]byte("bob"))

	b.Credit(alice, AssetReward, 300)
	b.Credit(alice, AssetReward, 200)
	b.Credit(alice, AssetStake, 7)
	b.Credit(bob, AssetStake, 0)

	assert.Equal(t, uint64(500), b.BalanceOf(alice, AssetReward).Uint64())
	assert.Equal(t, uint64(7), b.BalanceOf(alice, AssetStake).Uint64())
	assert.True(t, b.BalanceOf(bob, AssetStake).IsZero())
	assert.Len(t, b.Entries(), 2)

	restored := New()
	restored.Restore(b.Entries())
	assert.Equal(t, b.Entries(), restored.Entries())
}

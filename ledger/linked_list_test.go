// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/stakepool/stakepool"
)

func collect(l *linkedList) []stakepool.Bytes32 {
	var ids []stakepool.Bytes32
	l.Iter(stakepool.Bytes32{}, func(id stakepool.Bytes32, _ *Record) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func TestLinkedList(t *testing.T) {
	l := newLinkedList()
	a, b, c := stakepool.Bytes32{1}, stakepool.Bytes32{2}, stakepool.Bytes32{3}

	assert.True(t, l.Add(a, newRecord()))
	assert.True(t, l.Add(b, newRecord()))
	assert.True(t, l.Add(c, newRecord()))
	assert.False(t, l.Add(b, newRecord()), "duplicate")
	assert.False(t, l.Add(stakepool.Bytes32{}, newRecord()), "zero id")
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []stakepool.Bytes32{a, b, c}, collect(l))

	// remove head
	assert.True(t, l.Remove(a))
	assert.Equal(t, b, l.head)
	assert.Equal(t, []stakepool.Bytes32{b, c}, collect(l))

	// remove tail
	assert.True(t, l.Remove(c))
	assert.Equal(t, b, l.tail)
	assert.Equal(t, []stakepool.Bytes32{b}, collect(l))

	assert.False(t, l.Remove(c))

	// remove the last one, list becomes empty
	assert.True(t, l.Remove(b))
	assert.True(t, l.head.IsZero())
	assert.True(t, l.tail.IsZero())
	assert.Empty(t, collect(l))

	// re-adding after emptying links head and tail again
	assert.True(t, l.Add(c, newRecord()))
	assert.True(t, l.Add(a, newRecord()))
	assert.Equal(t, []stakepool.Bytes32{c, a}, collect(l))
}

func TestLinkedListRemoveMiddle(t *testing.T) {
	l := newLinkedList()
	ids := []stakepool.Bytes32{{1}, {2}, {3}, {4}}
	for _, id := range ids {
		l.Add(id, newRecord())
	}
	assert.True(t, l.Remove(ids[1]))
	assert.True(t, l.Remove(ids[2]))

	n, ok := l.Get(ids[0])
	assert.True(t, ok)
	assert.Equal(t, ids[3], n.next)
	n, _ = l.Get(ids[3])
	assert.Equal(t, ids[0], n.prev)
}

func TestLinkedListIterStops(t *testing.T) {
	l := newLinkedList()
	for i := byte(1); i <= 5; i++ {
		l.Add(stakepool.Bytes32{i}, newRecord())
	}
	var seen int
	l.Iter(stakepool.Bytes32{3}, func(stakepool.Bytes32, *Record) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}

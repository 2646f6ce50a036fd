// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/vechain/stakepool/stakepool"
)

type node struct {
	record *Record
	prev   stakepool.Bytes32
	next   stakepool.Bytes32
}

// linkedList is a doubly linked list of positions in insertion order. A zero id marks
// the absence of a neighbour.
type linkedList struct {
	nodes map[stakepool.Bytes32]*node
	head  stakepool.Bytes32
	tail  stakepool.Bytes32
}

func newLinkedList() *linkedList {
	return &linkedList{nodes: make(map[stakepool.Bytes32]*node)}
}

// Add appends a new entry to the tail of the list.
func (l *linkedList) Add(id stakepool.Bytes32, record *Record) bool {
	if _, exists := l.nodes[id]; exists || id.IsZero() {
		return false
	}
	n := &node{record: record, prev: l.tail}
	if l.tail.IsZero() {
		// list is currently empty, set this entry to head & tail
		l.head = id
	} else {
		l.nodes[l.tail].next = id
	}
	l.tail = id
	l.nodes[id] = n
	return true
}

// Remove unlinks an entry, returning false if it is not present.
func (l *linkedList) Remove(id stakepool.Bytes32) bool {
	n, ok := l.nodes[id]
	if !ok {
		return false
	}
	if n.prev.IsZero() {
		l.head = n.next
	} else {
		l.nodes[n.prev].next = n.next
	}
	if n.next.IsZero() {
		l.tail = n.prev
	} else {
		l.nodes[n.next].prev = n.prev
	}
	delete(l.nodes, id)
	return true
}

func (l *linkedList) Get(id stakepool.Bytes32) (*node, bool) {
	n, ok := l.nodes[id]
	return n, ok
}

func (l *linkedList) Len() int {
	return len(l.nodes)
}

// Iter walks the list from start (head when zero) and stops when the callback returns false.
func (l *linkedList) Iter(start stakepool.Bytes32, callback func(stakepool.Bytes32, *Record) bool) {
	ptr := start
	if ptr.IsZero() {
		ptr = l.head
	}
	for !ptr.IsZero() {
		n, ok := l.nodes[ptr]
		if !ok {
			return
		}
		if !callback(ptr, n.record) {
			return
		}
		ptr = n.next
	}
}

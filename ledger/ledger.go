// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger keeps the per-position accounting records of a pool. A ledger is owned
// by exactly one pool and is not safe for concurrent use on its own: the pool's lock
// serializes every call.
package ledger

import (
	"github.com/holiman/uint256"

	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

// Ledger maps position ids to records in insertion order.
type Ledger struct {
	poolID  stakepool.Bytes32
	list    *linkedList
	counter uint64
}

// New creates an empty ledger for the given pool.
func New(poolID stakepool.Bytes32) *Ledger {
	return &Ledger{
		poolID: poolID,
		list:   newLinkedList(),
	}
}

// PoolID returns the owning pool id.
func (l *Ledger) PoolID() stakepool.Bytes32 {
	return l.poolID
}

// Open inserts a zero valued record and returns its fresh id.
func (l *Ledger) Open() stakepool.Bytes32 {
	l.counter++
	id := stakepool.DeriveID("position", l.poolID.Bytes(), l.counter)
	l.list.Add(id, newRecord())
	return id
}

// Close removes a record. The caller is expected to have unstaked fully; a record
// still holding shares is reported as PositionNotFound, like an unknown id.
func (l *Ledger) Close(id stakepool.Bytes32) error {
	n, ok := l.list.Get(id)
	if !ok {
		return reverts.Newf(reverts.CodePositionNotFound, "position %v", id.AbbrevString())
	}
	if !n.record.IsEmpty() {
		return reverts.Newf(reverts.CodePositionNotFound, "position %v still holds %v shares", id.AbbrevString(), n.record.Shares.Dec())
	}
	l.list.Remove(id)
	return nil
}

// Get returns a copy of the record.
func (l *Ledger) Get(id stakepool.Bytes32) (Record, error) {
	n, ok := l.list.Get(id)
	if !ok {
		return Record{}, reverts.Newf(reverts.CodePositionNotFound, "position %v", id.AbbrevString())
	}
	return n.record.Clone(), nil
}

// Has returns whether the position is open.
func (l *Ledger) Has(id stakepool.Bytes32) bool {
	_, ok := l.list.Get(id)
	return ok
}

// Len returns the number of open positions.
func (l *Ledger) Len() int {
	return l.list.Len()
}

func (l *Ledger) record(id stakepool.Bytes32) (*Record, error) {
	n, ok := l.list.Get(id)
	if !ok {
		return nil, reverts.Newf(reverts.CodePositionNotFound, "position %v", id.AbbrevString())
	}
	return n.record, nil
}

// IncrementShares adds delta shares and prices the current accumulators into the debts,
// so the new shares earn nothing that accrued before this call. The debt grows by the
// exact product, so staking in several steps prices the same as staking once.
func (l *Ledger) IncrementShares(id stakepool.Bytes32, delta, accReward, accGas *uint256.Int) error {
	r, err := l.record(id)
	if err != nil {
		return err
	}
	shares, overflow := new(uint256.Int).AddOverflow(r.Shares, delta)
	if overflow || !stakepool.Fits128(shares) {
		return reverts.New(reverts.CodeOverflow, "shares")
	}
	rewardInc, ok := stakepool.Scaled(delta, accReward)
	if !ok {
		return reverts.New(reverts.CodeOverflow, "reward debt")
	}
	gasInc, ok := stakepool.Scaled(delta, accGas)
	if !ok {
		return reverts.New(reverts.CodeOverflow, "gas debt")
	}
	rewardDebt, overflow := new(uint256.Int).AddOverflow(r.RewardDebt, rewardInc)
	if overflow || !stakepool.Fits128(rewardDebt) {
		return reverts.New(reverts.CodeOverflow, "reward debt")
	}
	gasDebt, overflow := new(uint256.Int).AddOverflow(r.GasDebt, gasInc)
	if overflow || !stakepool.Fits128(gasDebt) {
		return reverts.New(reverts.CodeOverflow, "gas debt")
	}

	r.Shares = shares
	r.RewardDebt = rewardDebt
	r.GasDebt = gasDebt
	return nil
}

// DecrementShares removes delta shares and releases the matching debts. Callers harvest
// first, leaving the debts at exactly shares * acc.
func (l *Ledger) DecrementShares(id stakepool.Bytes32, delta, accReward, accGas *uint256.Int) error {
	r, err := l.record(id)
	if err != nil {
		return err
	}
	if delta.Gt(r.Shares) {
		return reverts.Newf(reverts.CodeInsufficientShares, "have %v, want %v", r.Shares.Dec(), delta.Dec())
	}
	rewardDec, ok := stakepool.Scaled(delta, accReward)
	if !ok {
		return reverts.New(reverts.CodeOverflow, "reward debt")
	}
	gasDec, ok := stakepool.Scaled(delta, accGas)
	if !ok {
		return reverts.New(reverts.CodeOverflow, "gas debt")
	}

	r.Shares = new(uint256.Int).Sub(r.Shares, delta)
	r.RewardDebt = saturatingSub(r.RewardDebt, rewardDec)
	r.GasDebt = saturatingSub(r.GasDebt, gasDec)
	return nil
}

// Harvest settles both accumulators in full and returns what was pending.
func (l *Ledger) Harvest(id stakepool.Bytes32, accReward, accGas *uint256.Int) (reward, gas *uint256.Int, err error) {
	r, err := l.record(id)
	if err != nil {
		return nil, nil, err
	}
	rewardAcc, reward, ok := pending(r.Shares, accReward, r.RewardDebt)
	if !ok {
		return nil, nil, reverts.New(reverts.CodeOverflow, "reward")
	}
	gasAcc, gas, ok := pending(r.Shares, accGas, r.GasDebt)
	if !ok {
		return nil, nil, reverts.New(reverts.CodeOverflow, "gas")
	}
	r.RewardDebt = rewardAcc
	r.GasDebt = gasAcc
	return reward, gas, nil
}

// SettleReward settles only the reward debt and returns what was pending.
func (l *Ledger) SettleReward(id stakepool.Bytes32, accReward *uint256.Int) (*uint256.Int, error) {
	return l.settle(id, accReward, func(r *Record) **uint256.Int { return &r.RewardDebt })
}

// SettleGas settles only the gas debt and returns what was pending.
func (l *Ledger) SettleGas(id stakepool.Bytes32, accGas *uint256.Int) (*uint256.Int, error) {
	return l.settle(id, accGas, func(r *Record) **uint256.Int { return &r.GasDebt })
}

func (l *Ledger) settle(id stakepool.Bytes32, acc *uint256.Int, debt func(*Record) **uint256.Int) (*uint256.Int, error) {
	r, err := l.record(id)
	if err != nil {
		return nil, err
	}
	d := debt(r)
	accumulated, owed, ok := pending(r.Shares, acc, *d)
	if !ok {
		return nil, reverts.New(reverts.CodeOverflow, "settle")
	}
	*d = accumulated
	return owed, nil
}

// PreviewHarvest computes what Harvest would return without settling.
func (l *Ledger) PreviewHarvest(id stakepool.Bytes32, accReward, accGas *uint256.Int) (reward, gas *uint256.Int, err error) {
	r, err := l.record(id)
	if err != nil {
		return nil, nil, err
	}
	_, reward, ok := pending(r.Shares, accReward, r.RewardDebt)
	if !ok {
		return nil, nil, reverts.New(reverts.CodeOverflow, "reward")
	}
	_, gas, ok = pending(r.Shares, accGas, r.GasDebt)
	if !ok {
		return nil, nil, reverts.New(reverts.CodeOverflow, "gas")
	}
	return reward, gas, nil
}

// FetchPage returns up to limit entries in insertion order, starting at cursor (inclusive,
// head when zero), and the cursor of the following page (zero when exhausted).
func (l *Ledger) FetchPage(cursor stakepool.Bytes32, limit int) ([]Entry, stakepool.Bytes32, error) {
	if !cursor.IsZero() && !l.Has(cursor) {
		return nil, stakepool.Bytes32{}, reverts.Newf(reverts.CodeNotFound, "cursor %v", cursor.AbbrevString())
	}
	entries := make([]Entry, 0, max(limit, 0))
	if limit <= 0 {
		return entries, stakepool.Bytes32{}, nil
	}
	var next stakepool.Bytes32
	l.list.Iter(cursor, func(id stakepool.Bytes32, r *Record) bool {
		if len(entries) == limit {
			next = id
			return false
		}
		entries = append(entries, Entry{ID: id, Record: r.Clone()})
		return true
	})
	return entries, next, nil
}

// Iter walks every record in insertion order.
func (l *Ledger) Iter(callback func(stakepool.Bytes32, Record) bool) {
	l.list.Iter(stakepool.Bytes32{}, func(id stakepool.Bytes32, r *Record) bool {
		return callback(id, r.Clone())
	})
}

// TotalShares sums the shares of every record.
func (l *Ledger) TotalShares() *uint256.Int {
	sum := new(uint256.Int)
	l.list.Iter(stakepool.Bytes32{}, func(_ stakepool.Bytes32, r *Record) bool {
		sum.Add(sum, r.Shares)
		return true
	})
	return sum
}

// Counter returns the id counter, persisted so reopened ledgers never reuse ids.
func (l *Ledger) Counter() uint64 {
	return l.counter
}

// Restore rebuilds a ledger from persisted entries, preserving their order.
func Restore(poolID stakepool.Bytes32, counter uint64, entries []Entry) *Ledger {
	l := New(poolID)
	l.counter = counter
	for _, e := range entries {
		rec := e.Record.Clone()
		l.list.Add(e.ID, &rec)
	}
	return l
}

func saturatingSub(a, b *uint256.Int) *uint256.Int {
	if b.Gt(a) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

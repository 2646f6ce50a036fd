// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/holiman/uint256"

	"github.com/vechain/stakepool/stakepool"
)

// Record is the accounting truth of one position. Debts stay scaled by Precision: each
// holds shares * acc as of the last settlement, so pending amounts are
// (shares * acc - debt) / Precision.
type Record struct {
	Shares     *uint256.Int
	RewardDebt *uint256.Int
	GasDebt    *uint256.Int
}

func newRecord() *Record {
	return &Record{
		Shares:     new(uint256.Int),
		RewardDebt: new(uint256.Int),
		GasDebt:    new(uint256.Int),
	}
}

// Clone returns a deep copy.
func (r *Record) Clone() Record {
	return Record{
		Shares:     r.Shares.Clone(),
		RewardDebt: r.RewardDebt.Clone(),
		GasDebt:    r.GasDebt.Clone(),
	}
}

// IsEmpty returns whether the record holds no shares.
func (r *Record) IsEmpty() bool {
	return r.Shares == nil || r.Shares.IsZero()
}

// Entry is a record with its position id, as returned by pagination.
type Entry struct {
	ID     stakepool.Bytes32
	Record Record
}

// pending settles one accumulator for the given share count. accumulated is scaled,
// owed is in base units. Debt never exceeds shares * acc while accumulators only grow,
// so the clamp at zero guards corrupted input only.
func pending(shares, acc, debt *uint256.Int) (accumulated, owed *uint256.Int, ok bool) {
	accumulated, ok = stakepool.Scaled(shares, acc)
	if !ok {
		return nil, nil, false
	}
	if accumulated.Cmp(debt) <= 0 {
		return accumulated, new(uint256.Int), true
	}
	owed = new(uint256.Int).Sub(accumulated, debt)
	return accumulated, owed.Div(owed, stakepool.Precision), true
}

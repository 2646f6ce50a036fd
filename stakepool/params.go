// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import "github.com/holiman/uint256"

// Constants of the accounting engine.
const (
	// MaxBps is the basis point denominator; fee rates are expressed out of it.
	MaxBps uint64 = 10_000

	// PrecisionValue scales the per-share accumulators.
	PrecisionValue uint64 = 1_000_000_000_000
)

var (
	// Precision is PrecisionValue as a 256-bit integer.
	Precision = uint256.NewInt(PrecisionValue)

	// MaxUint128 bounds shares, debts and accumulators.
	MaxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
)

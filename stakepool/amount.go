// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Fits128 reports whether v can be stored as an unsigned 128-bit value.
func Fits128(v *uint256.Int) bool {
	return v.BitLen() <= 128
}

// Zero returns a new zero value.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// U128 converts a base unit amount.
func U128(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Scaled returns shares * acc, a settled amount still scaled by Precision. Position debts
// are kept in this form so repeated share changes never round. ok is false when the
// result exceeds 128 bits.
func Scaled(shares, acc *uint256.Int) (v *uint256.Int, ok bool) {
	v, overflow := new(uint256.Int).MulOverflow(shares, acc)
	if overflow || !Fits128(v) {
		return nil, false
	}
	return v, true
}

// PerShare returns amount * Precision / totalShares, the accumulator increment of a deposit.
// totalShares must be non-zero.
func PerShare(amount uint64, totalShares *uint256.Int) (v *uint256.Int, ok bool) {
	v, overflow := new(uint256.Int).MulDivOverflow(uint256.NewInt(amount), Precision, totalShares)
	if overflow || !Fits128(v) {
		return nil, false
	}
	return v, true
}

// Bps returns amount * bps / MaxBps truncated toward zero.
func Bps(amount, bps uint64) uint64 {
	v, _ := new(uint256.Int).MulDivOverflow(uint256.NewInt(amount), uint256.NewInt(bps), uint256.NewInt(MaxBps))
	return v.Uint64()
}

// ToBig converts a possibly nil value to big.Int for encoding.
func ToBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

// FromBig converts a decoded big.Int back, failing when it exceeds 128 bits.
func FromBig(b *big.Int) (*uint256.Int, bool) {
	if b == nil {
		return new(uint256.Int), true
	}
	v, overflow := uint256.FromBig(b)
	if overflow || !Fits128(v) {
		return nil, false
	}
	return v, true
}

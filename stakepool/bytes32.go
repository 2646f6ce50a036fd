// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"encoding"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Bytes32 identifies pools, positions, keepers and attestations.
type Bytes32 [32]byte

var (
	_ encoding.TextMarshaler   = Bytes32{}
	_ encoding.TextUnmarshaler = (*Bytes32)(nil)
)

func (b Bytes32) String() string {
	return hexutil.Encode(b[:])
}

// AbbrevString keeps the first and last four bytes, for logs.
func (b Bytes32) AbbrevString() string {
	return fmt.Sprintf("0x%x…%x", b[:4], b[28:])
}

func (b Bytes32) Bytes() []byte { return b[:] }

func (b Bytes32) IsZero() bool { return b == Bytes32{} }

// MarshalText writes the 0x prefixed hex form, used by both JSON and YAML.
func (b Bytes32) MarshalText() ([]byte, error) {
	return hexutil.Bytes(b[:]).MarshalText()
}

func (b *Bytes32) UnmarshalText(text []byte) error {
	parsed, err := ParseBytes32(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBytes32 accepts exactly 64 hex digits, optionally 0x prefixed.
func ParseBytes32(s string) (Bytes32, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(digits) != 2*len(Bytes32{}) {
		return Bytes32{}, errors.Errorf("bytes32: want 64 hex digits, got %q", s)
	}
	var b Bytes32
	if _, err := hex.Decode(b[:], []byte(digits)); err != nil {
		return Bytes32{}, errors.Wrap(err, "bytes32")
	}
	return b, nil
}

// BytesToBytes32 left pads b, or keeps its last 32 bytes when longer.
func BytesToBytes32(b []byte) Bytes32 {
	return Bytes32(common.BytesToHash(b))
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package attestation

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Intent namespaces a signed message to one class of call, so a signature made for
// one operation can never be replayed against another.
type Intent uint8

const (
	IntentLiquidation Intent = iota
	IntentConfigUpdate
	IntentGasWithdrawal
)

func (i Intent) String() string {
	switch i {
	case IntentLiquidation:
		return "liquidation"
	case IntentConfigUpdate:
		return "config-update"
	case IntentGasWithdrawal:
		return "gas-withdrawal"
	}
	return fmt.Sprintf("intent(%d)", uint8(i))
}

type intentMessage struct {
	Intent      uint8
	TimestampMs uint64
	Payload     []byte
}

// EncodeIntentMessage returns the canonical bytes an enclave signs: the RLP list
// [intent, timestampMs, payload].
func EncodeIntentMessage(intent Intent, timestampMs uint64, payload []byte) []byte {
	if payload == nil {
		payload = []byte{}
	}
	data, err := rlp.EncodeToBytes(&intentMessage{uint8(intent), timestampMs, payload})
	if err != nil {
		panic(err) // fixed shape, never fails
	}
	return data
}

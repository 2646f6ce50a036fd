// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/stakepool"
)

type Pool struct {
	Index                uint64                `json:"index"`
	ID                   stakepool.Bytes32     `json:"id"`
	Name                 string                `json:"name"`
	StakeBalance         uint64                `json:"stakeBalance"`
	RewardBalance        uint64                `json:"rewardBalance"`
	TotalShares          *math.HexOrDecimal256 `json:"totalShares"`
	AccRewardPerShare    *math.HexOrDecimal256 `json:"accRewardPerShare"`
	AccGasPerShare       *math.HexOrDecimal256 `json:"accGasPerShare"`
	ProtocolFeeBps       uint64                `json:"protocolFeeBps"`
	KeeperFeeBps         uint64                `json:"keeperFeeBps"`
	UnclaimedProtocolFee uint64                `json:"unclaimedProtocolFee"`
	Keeper               *stakepool.Bytes32    `json:"keeper"`
	Positions            uint64                `json:"positions"`
}

type Position struct {
	ID            stakepool.Bytes32     `json:"id"`
	Owner         stakepool.Address     `json:"owner"`
	Metadata      string                `json:"metadata"`
	Shares        *math.HexOrDecimal256 `json:"shares"`
	RewardDebt    *math.HexOrDecimal256 `json:"rewardDebt"`
	GasDebt       *math.HexOrDecimal256 `json:"gasDebt"`
	PendingReward *math.HexOrDecimal256 `json:"pendingReward,omitempty"`
	PendingGas    *math.HexOrDecimal256 `json:"pendingGas,omitempty"`
}

type PositionPage struct {
	Positions []*Position        `json:"positions"`
	Next      *stakepool.Bytes32 `json:"next"` // null on the last page
}

func hex256(v *uint256.Int) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(stakepool.ToBig(v))
}

func convertPool(s pool.State, positions uint64) *Pool {
	p := &Pool{
		Index:                s.Index,
		ID:                   s.ID,
		Name:                 s.Name,
		StakeBalance:         s.StakeBalance,
		RewardBalance:        s.RewardBalance,
		TotalShares:          hex256(s.TotalShares),
		AccRewardPerShare:    hex256(s.AccRewardPerShare),
		AccGasPerShare:       hex256(s.AccGasPerShare),
		ProtocolFeeBps:       s.ProtocolFeeBps,
		KeeperFeeBps:         s.KeeperFeeBps,
		UnclaimedProtocolFee: s.UnclaimedProtocolFee,
		Positions:            positions,
	}
	if !s.Keeper.IsZero() {
		k := s.Keeper
		p.Keeper = &k
	}
	return p
}

func convertPosition(s pool.PositionState) *Position {
	return &Position{
		ID:         s.ID,
		Owner:      s.Owner,
		Metadata:   s.Metadata,
		Shares:     hex256(s.Record.Shares),
		RewardDebt: hex256(s.Record.RewardDebt),
		GasDebt:    hex256(s.Record.GasDebt),
	}
}

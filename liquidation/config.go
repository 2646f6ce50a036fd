// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidation

import (
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/stakepool"
)

// Config holds the liquidation constants.
type Config struct {
	MinAmount       uint64 `yaml:"min-amount"`
	MaxRatioBps     uint64 `yaml:"max-ratio-bps"`     // share of a position seizable in one call
	PenaltyBps      uint64 `yaml:"penalty-bps"`       // returned to the pool
	KeeperRewardBps uint64 `yaml:"keeper-reward-bps"` // paid to the keeper operator
	ProtocolBps     uint64 `yaml:"protocol-bps"`      // returned to the pool as well
}

func DefaultConfig() Config {
	return Config{
		MinAmount:       1000,
		MaxRatioBps:     8000,
		PenaltyBps:      500,
		KeeperRewardBps: 300,
		ProtocolBps:     200,
	}
}

func (c Config) Validate() error {
	if c.MaxRatioBps == 0 || c.MaxRatioBps > stakepool.MaxBps {
		return errors.Errorf("max ratio %d bps out of range", c.MaxRatioBps)
	}
	if c.PenaltyBps+c.KeeperRewardBps+c.ProtocolBps > stakepool.MaxBps {
		return errors.New("liquidation splits exceed 100%")
	}
	return nil
}

// Split divides liquidated principal; Remainder absorbs the truncation.
type Split struct {
	Penalty      uint64
	KeeperReward uint64
	Protocol     uint64
	Remainder    uint64
}

func (c Config) Split(principal uint64) Split {
	s := Split{
		Penalty:      stakepool.Bps(principal, c.PenaltyBps),
		KeeperReward: stakepool.Bps(principal, c.KeeperRewardBps),
		Protocol:     stakepool.Bps(principal, c.ProtocolBps),
	}
	s.Remainder = principal - s.Penalty - s.KeeperReward - s.Protocol
	return s
}

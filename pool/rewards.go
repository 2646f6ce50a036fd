// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/holiman/uint256"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

// FeeSplit is the outcome of splitting a reward deposit.
type FeeSplit struct {
	ProtocolFee uint64
	KeeperFee   uint64
	Net         uint64
}

// SplitFees truncates both fees toward zero; the remainder goes to stakers.
func SplitFees(gross, protocolBps, keeperBps uint64) FeeSplit {
	protocolFee := stakepool.Bps(gross, protocolBps)
	keeperFee := stakepool.Bps(gross, keeperBps)
	return FeeSplit{
		ProtocolFee: protocolFee,
		KeeperFee:   keeperFee,
		Net:         gross - protocolFee - keeperFee,
	}
}

// advance returns acc moved forward by amount spread over the current shares. With no
// shares the accumulator is returned unchanged and the amount stays undistributed.
func (p *Pool) advance(acc *uint256.Int, amount uint64) (*uint256.Int, error) {
	if amount == 0 || p.totalShares.IsZero() {
		return acc, nil
	}
	inc, ok := stakepool.PerShare(amount, p.totalShares)
	if !ok {
		return nil, reverts.New(reverts.CodeOverflow, "accumulator increment")
	}
	next, overflow := new(uint256.Int).AddOverflow(acc, inc)
	if overflow || !stakepool.Fits128(next) {
		return nil, reverts.New(reverts.CodeOverflow, "accumulator")
	}
	return next, nil
}

// UpdateAccumulators spreads additional reward and gas over the current shares. The
// caller must already have moved the matching funds into the pool. It is a no-op on a
// pool without shares.
func (p *Pool) UpdateAccumulators(additionalReward, additionalGas uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateAccumulators(additionalReward, additionalGas)
}

func (p *Pool) updateAccumulators(additionalReward, additionalGas uint64) error {
	accReward, err := p.advance(p.accReward, additionalReward)
	if err != nil {
		return err
	}
	accGas, err := p.advance(p.accGas, additionalGas)
	if err != nil {
		return err
	}
	if p.totalShares.IsZero() && (additionalReward > 0 || additionalGas > 0) {
		logger.Warn("accumulators not advanced, pool has no shares",
			"pool", p.index, "reward", additionalReward, "gas", additionalGas)
	}
	p.accReward = accReward
	p.accGas = accGas
	return nil
}

// DepositRewards takes in gross reward, pays the keeper fee to keeperAddr at once,
// accrues the protocol fee and distributes the rest to stakers.
func (p *Pool) DepositRewards(gross uint64, keeperAddr stakepool.Address) (FeeSplit, error) {
	if err := p.access.AssertNotPaused(); err != nil {
		return FeeSplit{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	split := SplitFees(gross, p.protocolFeeBps, p.keeperFeeBps)
	kept := gross - split.KeeperFee
	balance := p.rewardBalance + kept
	if balance < p.rewardBalance {
		return FeeSplit{}, reverts.New(reverts.CodeOverflow, "reward balance")
	}
	unclaimed := p.unclaimedProtocolFee + split.ProtocolFee
	if unclaimed < p.unclaimedProtocolFee {
		return FeeSplit{}, reverts.New(reverts.CodeOverflow, "protocol fee")
	}
	if err := p.updateAccumulators(split.Net, 0); err != nil {
		return FeeSplit{}, err
	}
	p.rewardBalance = balance
	p.unclaimedProtocolFee = unclaimed
	if split.KeeperFee > 0 {
		p.payee.Credit(keeperAddr, bank.AssetReward, split.KeeperFee)
	}
	p.observe("deposit_rewards")

	logger.Debug("rewards deposited", "pool", p.index, "gross", gross,
		"protocolFee", split.ProtocolFee, "keeperFee", split.KeeperFee, "net", split.Net)
	return split, nil
}

// CollectProtocolFee pays out the accrued protocol fee to an admin.
func (p *Pool) CollectProtocolFee(actor stakepool.Address) (uint64, error) {
	if err := p.access.RequireRole(actor, access.RoleAdmin); err != nil {
		return 0, err
	}
	if err := p.access.AssertNotPaused(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fee := p.unclaimedProtocolFee
	if fee == 0 {
		return 0, reverts.New(reverts.CodeNoProtocolFee, "")
	}
	if p.rewardBalance < fee {
		return 0, reverts.Newf(reverts.CodeInsufficientRewardBalance, "accrued %d, held %d", fee, p.rewardBalance)
	}
	p.rewardBalance -= fee
	p.unclaimedProtocolFee = 0
	p.observe("collect_protocol_fee")

	logger.Info("protocol fee collected", "pool", p.index, "amount", fee, "by", actor)
	return fee, nil
}

// SetFeeRates changes both fee rates; future deposits use them.
func (p *Pool) SetFeeRates(actor stakepool.Address, protocolBps, keeperBps uint64) error {
	if err := p.access.RequireRole(actor, access.RoleAdmin); err != nil {
		return err
	}
	if err := ValidateFees(protocolBps, keeperBps); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.protocolFeeBps = protocolBps
	p.keeperFeeBps = keeperBps
	logger.Info("fee rates changed", "pool", p.index, "protocolBps", protocolBps, "keeperBps", keeperBps, "by", actor)
	return nil
}

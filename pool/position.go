// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/holiman/uint256"

	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

// Position is the handle a staker holds. Its share count is a cached copy for display;
// the pool's ledger is the accounting truth.
type Position struct {
	id       stakepool.Bytes32
	poolID   stakepool.Bytes32
	owner    stakepool.Address
	metadata string
	shares   *uint256.Int
}

func (pos *Position) ID() stakepool.Bytes32     { return pos.id }
func (pos *Position) PoolID() stakepool.Bytes32 { return pos.poolID }
func (pos *Position) Owner() stakepool.Address  { return pos.owner }
func (pos *Position) Metadata() string          { return pos.metadata }

// Shares returns the cached share count.
func (pos *Position) Shares() *uint256.Int {
	return new(uint256.Int).Set(pos.shares)
}

// UnstakeResult describes the coins leaving the pool on an unstake.
type UnstakeResult struct {
	Principal uint64 // staking asset returned, net of gas
	Reward    uint64 // settled reward
	GasCost   uint64 // principal retained by the pool against pending gas
}

// OpenPosition registers a new, empty position for owner.
func (p *Pool) OpenPosition(owner stakepool.Address, metadata string) (*Position, error) {
	if err := p.access.AssertNotPaused(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.ledger.Open()
	p.holders[id] = holder{owner, metadata}
	logger.Debug("position opened", "pool", p.index, "position", id.AbbrevString(), "owner", owner)
	return &Position{id: id, poolID: p.id, owner: owner, metadata: metadata, shares: new(uint256.Int)}, nil
}

// ClosePosition destroys a position holding no shares.
func (p *Pool) ClosePosition(pos *Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkPosition(pos); err != nil {
		return err
	}
	if err := p.ledger.Close(pos.id); err != nil {
		return err
	}
	delete(p.holders, pos.id)
	logger.Debug("position closed", "pool", p.index, "position", pos.id.AbbrevString())
	return nil
}

// Position returns a fresh handle for an open position.
func (p *Pool) Position(id stakepool.Bytes32) (*Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, err := p.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	h := p.holders[id]
	return &Position{id: id, poolID: p.id, owner: h.owner, metadata: h.metadata, shares: rec.Shares}, nil
}

// Positions pages through the ledger in insertion order.
func (p *Pool) Positions(cursor stakepool.Bytes32, limit int) ([]PositionState, stakepool.Bytes32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries, next, err := p.ledger.FetchPage(cursor, limit)
	if err != nil {
		return nil, stakepool.Bytes32{}, err
	}
	page := make([]PositionState, 0, len(entries))
	for _, e := range entries {
		h := p.holders[e.ID]
		page = append(page, PositionState{e.ID, h.owner, h.metadata, e.Record})
	}
	return page, next, nil
}

func (p *Pool) checkPosition(pos *Position) error {
	if pos == nil || pos.poolID != p.id {
		return reverts.Newf(reverts.CodePoolPositionMismatch, "pool %d", p.index)
	}
	return nil
}

func (p *Pool) syncShares(pos *Position) {
	if rec, err := p.ledger.Get(pos.id); err == nil {
		pos.shares = rec.Shares
	}
}

// Stake adds amount of the staking asset; every unit mints one share.
func (p *Pool) Stake(pos *Position, amount uint64) error {
	if amount == 0 {
		return reverts.New(reverts.CodeZeroStake, "")
	}
	if err := p.access.AssertNotPaused(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkPosition(pos); err != nil {
		return err
	}
	balance := p.stakeBalance + amount
	if balance < p.stakeBalance {
		return reverts.New(reverts.CodeOverflow, "stake balance")
	}
	delta := uint256.NewInt(amount)
	total := new(uint256.Int).Add(p.totalShares, delta)
	if !stakepool.Fits128(total) {
		return reverts.New(reverts.CodeOverflow, "total shares")
	}
	if err := p.ledger.IncrementShares(pos.id, delta, p.accReward, p.accGas); err != nil {
		return err
	}
	p.stakeBalance = balance
	p.totalShares = total
	p.syncShares(pos)
	p.observe("stake")

	logger.Debug("staked", "pool", p.index, "position", pos.id.AbbrevString(), "amount", amount)
	return nil
}

// unstakePlan is a fully validated unstake, applied without further checks.
type unstakePlan struct {
	id         stakepool.Bytes32
	amount     *uint256.Int
	accGas     *uint256.Int
	reward     uint64
	pendingGas *uint256.Int
	gasCost    uint64
	principal  uint64
}

// planUnstake validates an unstake of amount shares settled against accGas.
func (p *Pool) planUnstake(pos *Position, amount uint64, accGas *uint256.Int) (*unstakePlan, error) {
	if err := p.checkPosition(pos); err != nil {
		return nil, err
	}
	rec, err := p.ledger.Get(pos.id)
	if err != nil {
		return nil, err
	}
	delta := uint256.NewInt(amount)
	if delta.Gt(rec.Shares) {
		return nil, reverts.Newf(reverts.CodeInsufficientShares, "have %v, want %d", rec.Shares.Dec(), amount)
	}
	reward, gas, err := p.ledger.PreviewHarvest(pos.id, p.accReward, accGas)
	if err != nil {
		return nil, err
	}
	if !reward.IsUint64() || reward.Uint64() > p.rewardBalance {
		return nil, reverts.Newf(reverts.CodeInsufficientRewardBalance, "owed %v, held %d", reward.Dec(), p.rewardBalance)
	}

	plan := &unstakePlan{
		id:         pos.id,
		amount:     delta,
		accGas:     accGas,
		reward:     reward.Uint64(),
		pendingGas: gas,
	}
	if !gas.Lt(delta) {
		// gas owed covers the whole withdrawal: the pool keeps the principal
		plan.gasCost = amount
	} else {
		plan.gasCost = gas.Uint64()
		plan.principal = amount - plan.gasCost
	}
	if plan.principal > p.stakeBalance {
		return nil, reverts.Newf(reverts.CodeInsufficientGasBalance, "stake balance %d, principal %d", p.stakeBalance, plan.principal)
	}
	return plan, nil
}

// applyUnstake settles, burns shares and moves balances. plan must come from planUnstake
// under the same lock acquisition.
func (p *Pool) applyUnstake(pos *Position, plan *unstakePlan) error {
	p.accGas = plan.accGas
	if _, _, err := p.ledger.Harvest(plan.id, p.accReward, p.accGas); err != nil {
		return err
	}
	if err := p.ledger.DecrementShares(plan.id, plan.amount, p.accReward, p.accGas); err != nil {
		return err
	}
	p.rewardBalance -= plan.reward
	p.stakeBalance -= plan.principal
	p.totalShares = new(uint256.Int).Sub(p.totalShares, plan.amount)
	p.syncShares(pos)
	return nil
}

// Unstake burns amount shares. Pending reward is settled and returned with the principal,
// and pending gas is deducted from the principal first.
func (p *Pool) Unstake(pos *Position, amount uint64) (UnstakeResult, error) {
	if amount == 0 {
		return UnstakeResult{}, reverts.New(reverts.CodeZeroStake, "")
	}
	if err := p.access.AssertNotPaused(); err != nil {
		return UnstakeResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	plan, err := p.planUnstake(pos, amount, p.accGas)
	if err != nil {
		return UnstakeResult{}, err
	}
	if err := p.applyUnstake(pos, plan); err != nil {
		return UnstakeResult{}, err
	}
	p.observe("unstake")

	logger.Debug("unstaked", "pool", p.index, "position", pos.id.AbbrevString(),
		"amount", amount, "principal", plan.principal, "reward", plan.reward, "gas", plan.gasCost)
	return UnstakeResult{Principal: plan.principal, Reward: plan.reward, GasCost: plan.gasCost}, nil
}

// PendingYield returns what a harvest would settle now.
func (p *Pool) PendingYield(pos *Position) (reward, gas *uint256.Int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkPosition(pos); err != nil {
		return nil, nil, err
	}
	return p.ledger.PreviewHarvest(pos.id, p.accReward, p.accGas)
}

// WithdrawRewards settles the reward accumulator of the position and pays it out.
func (p *Pool) WithdrawRewards(pos *Position) (uint64, error) {
	if err := p.access.AssertNotPaused(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkPosition(pos); err != nil {
		return 0, err
	}
	reward, _, err := p.ledger.PreviewHarvest(pos.id, p.accReward, p.accGas)
	if err != nil {
		return 0, err
	}
	if !reward.IsUint64() || reward.Uint64() > p.rewardBalance {
		return 0, reverts.Newf(reverts.CodeInsufficientRewardBalance, "owed %v, held %d", reward.Dec(), p.rewardBalance)
	}
	if _, err := p.ledger.SettleReward(pos.id, p.accReward); err != nil {
		return 0, err
	}
	p.rewardBalance -= reward.Uint64()
	p.observe("withdraw_rewards")

	logger.Debug("rewards withdrawn", "pool", p.index, "position", pos.id.AbbrevString(), "amount", reward.Uint64())
	return reward.Uint64(), nil
}

// WithdrawGas settles the gas accumulator of the position and pays the pending amount
// out of the staking balance.
func (p *Pool) WithdrawGas(pos *Position) (uint64, error) {
	if err := p.access.AssertNotPaused(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkPosition(pos); err != nil {
		return 0, err
	}
	_, gas, err := p.ledger.PreviewHarvest(pos.id, p.accReward, p.accGas)
	if err != nil {
		return 0, err
	}
	if !gas.IsUint64() || gas.Uint64() > p.stakeBalance {
		return 0, reverts.Newf(reverts.CodeInsufficientGasBalance, "owed %v, held %d", gas.Dec(), p.stakeBalance)
	}
	if _, err := p.ledger.SettleGas(pos.id, p.accGas); err != nil {
		return 0, err
	}
	p.stakeBalance -= gas.Uint64()
	p.observe("withdraw_gas")

	logger.Debug("gas withdrawn", "pool", p.index, "position", pos.id.AbbrevString(), "amount", gas.Uint64())
	return gas.Uint64(), nil
}

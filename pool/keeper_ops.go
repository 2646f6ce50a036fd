// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

func authorizeKeeper(k *keeper.Identity, c *keeper.Capability) error {
	if k == nil {
		return reverts.New(reverts.CodeInvalidCapability, "no keeper")
	}
	if err := k.Authorize(c); err != nil {
		return err
	}
	if !k.IsActive() {
		return reverts.Newf(reverts.CodeKeeperNotActive, "keeper %v is %v", k.ID().AbbrevString(), keeper.StatusName(k.Status()))
	}
	return nil
}

// authorizePoolKeeper additionally requires k to be the keeper bound to the pool.
// Callers hold the lock.
func (p *Pool) authorizePoolKeeper(k *keeper.Identity, c *keeper.Capability) error {
	if err := authorizeKeeper(k, c); err != nil {
		return err
	}
	if k.ID() != p.keeper {
		return reverts.Newf(reverts.CodeInvalidCapability, "keeper %v is not bound to pool %d", k.ID().AbbrevString(), p.index)
	}
	return nil
}

// SetKeeper binds another keeper to the pool.
func (p *Pool) SetKeeper(actor stakepool.Address, keeperID stakepool.Bytes32) error {
	if err := p.access.RequireRole(actor, access.RoleAdmin); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keeper = keeperID
	logger.Info("keeper bound", "pool", p.index, "keeper", keeperID.AbbrevString(), "by", actor)
	return nil
}

// TakeGas pays amount of the staking asset out to the pool's keeper as gas reimbursement.
func (p *Pool) TakeGas(k *keeper.Identity, c *keeper.Capability, amount uint64) (uint64, error) {
	if err := p.access.AssertNotPaused(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizePoolKeeper(k, c); err != nil {
		return 0, err
	}
	if amount > p.stakeBalance {
		return 0, reverts.Newf(reverts.CodeInsufficientGasBalance, "want %d, held %d", amount, p.stakeBalance)
	}
	p.stakeBalance -= amount
	p.observe("take_gas")

	logger.Debug("gas taken", "pool", p.index, "keeper", k.ID().AbbrevString(), "amount", amount)
	return amount, nil
}

// ChargeGas records gas the pool's keeper spent for the stakers, as debt spread over
// the current shares.
func (p *Pool) ChargeGas(k *keeper.Identity, c *keeper.Capability, amount uint64) error {
	if err := p.access.AssertNotPaused(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizePoolKeeper(k, c); err != nil {
		return err
	}
	if err := p.updateAccumulators(0, amount); err != nil {
		return err
	}
	p.observe("charge_gas")
	return nil
}

// LiquidationPayload is what a keeper signs to order one forced unstake.
type LiquidationPayload struct {
	PositionID     stakepool.Bytes32
	Amount         uint64
	ClaimedGasDebt uint64
	Nonce          uint64
}

// Encode returns the RLP encoding placed in the intent message.
func (lp *LiquidationPayload) Encode() []byte {
	data, err := rlp.EncodeToBytes(lp)
	if err != nil {
		panic(err) // fixed shape, never fails
	}
	return data
}

// ForceUnstakeRequest is a keeper-signed order to liquidate part of a position.
type ForceUnstakeRequest struct {
	Amount         uint64
	ClaimedGasDebt uint64
	Nonce          uint64
	// Signature by the keeper enclave over LiquidationPayload, liquidation intent.
	Signature   []byte
	TimestampMs uint64

	MinAmount   uint64
	MaxRatioBps uint64 // share of the position seizable in one call

	// Retain returns how much of the liquidated principal stays in the pool.
	Retain func(principal uint64) uint64
}

// ForcedUnstake is the outcome of a forced unstake.
type ForcedUnstake struct {
	Principal  uint64       // liquidated principal, net of gas
	Retained   uint64       // part of Principal kept in the pool
	Released   uint64       // part of Principal leaving the pool
	Reward     uint64       // reward settled for the position owner
	GasCost    uint64       // principal kept against pending gas
	PendingGas *uint256.Int // gas settled by the harvest
}

// ForceUnstake liquidates req.Amount shares of pos on a keeper's signed order. Under one
// lock acquisition it bounds the amount against the position's current shares, checks
// the signature and consumes the nonce, pushes the claimed gas debt into the gas
// accumulator, proves the position owes at least that much and unstakes. Nothing
// changes when any check fails.
func (p *Pool) ForceUnstake(k *keeper.Identity, c *keeper.Capability, pos *Position, req ForceUnstakeRequest) (ForcedUnstake, error) {
	if req.Amount == 0 {
		return ForcedUnstake{}, reverts.New(reverts.CodeZeroStake, "")
	}
	if err := p.access.AssertNotPaused(); err != nil {
		return ForcedUnstake{}, err
	}
	if err := authorizeKeeper(k, c); err != nil {
		return ForcedUnstake{}, err
	}
	if req.MaxRatioBps == 0 || req.MaxRatioBps > stakepool.MaxBps {
		return ForcedUnstake{}, reverts.Newf(reverts.CodeAmountTooLarge, "ratio %d bps", req.MaxRatioBps)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkPosition(pos); err != nil {
		return ForcedUnstake{}, err
	}
	rec, err := p.ledger.Get(pos.id)
	if err != nil {
		return ForcedUnstake{}, err
	}
	if req.Amount < req.MinAmount {
		return ForcedUnstake{}, reverts.Newf(reverts.CodeAmountTooSmall, "%d below %d", req.Amount, req.MinAmount)
	}
	limit, _ := new(uint256.Int).MulDivOverflow(rec.Shares, uint256.NewInt(req.MaxRatioBps), uint256.NewInt(stakepool.MaxBps))
	if uint256.NewInt(req.Amount).Gt(limit) {
		return ForcedUnstake{}, reverts.Newf(reverts.CodeAmountTooLarge, "%d above %v", req.Amount, limit.Dec())
	}

	payload := LiquidationPayload{
		PositionID:     pos.id,
		Amount:         req.Amount,
		ClaimedGasDebt: req.ClaimedGasDebt,
		Nonce:          req.Nonce,
	}
	if !k.VerifySignature(attestation.IntentLiquidation, req.TimestampMs, payload.Encode(), req.Signature) {
		return ForcedUnstake{}, reverts.New(reverts.CodeInvalidKeeperSignature, "")
	}
	if req.ClaimedGasDebt == 0 {
		return ForcedUnstake{}, reverts.New(reverts.CodeInsufficientGasDebt, "no gas debt claimed")
	}
	if err := k.ConsumeNonce(c, req.Nonce); err != nil {
		return ForcedUnstake{}, err
	}
	res, err := p.forceUnstake(pos, req)
	if err != nil {
		k.ReleaseNonce(c, req.Nonce)
		return ForcedUnstake{}, err
	}

	logger.Info("position force unstaked", "pool", p.index, "position", pos.id.AbbrevString(),
		"keeper", k.ID().AbbrevString(), "amount", req.Amount, "principal", res.Principal,
		"retained", res.Retained, "gas", res.GasCost)
	return res, nil
}

// forceUnstake runs the debt proof and the unstake; callers hold the lock.
func (p *Pool) forceUnstake(pos *Position, req ForceUnstakeRequest) (ForcedUnstake, error) {
	accGas, err := p.advance(p.accGas, req.ClaimedGasDebt)
	if err != nil {
		return ForcedUnstake{}, err
	}
	plan, err := p.planUnstake(pos, req.Amount, accGas)
	if err != nil {
		return ForcedUnstake{}, err
	}
	if plan.pendingGas.Lt(uint256.NewInt(req.ClaimedGasDebt)) {
		return ForcedUnstake{}, reverts.Newf(reverts.CodeInsufficientGasDebt,
			"pending %v, claimed %d", plan.pendingGas.Dec(), req.ClaimedGasDebt)
	}
	var retained uint64
	if req.Retain != nil {
		retained = req.Retain(plan.principal)
	}
	if retained > plan.principal {
		return ForcedUnstake{}, reverts.Newf(reverts.CodeAmountTooLarge, "retain %d of %d", retained, plan.principal)
	}

	if err := p.applyUnstake(pos, plan); err != nil {
		return ForcedUnstake{}, err
	}
	p.stakeBalance += retained
	p.observe("force_unstake")

	return ForcedUnstake{
		Principal:  plan.principal,
		Retained:   retained,
		Released:   plan.principal - retained,
		Reward:     plan.reward,
		GasCost:    plan.gasCost,
		PendingGas: plan.pendingGas,
	}, nil
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package liquidation executes keeper-signed forced liquidations of under-collateralized
// positions.
package liquidation

import (
	"context"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/metrics"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

var (
	logger = log.WithContext("pkg", "liquidation")

	metricLiquidations = metrics.LazyLoadCounterVec("liquidations_count", []string{"result"})
	metricLiquidated   = metrics.LazyLoadHistogram("liquidated_principal", metrics.BucketAmounts)
)

// Request carries the inputs of one liquidation.
type Request struct {
	Pool           *pool.Pool
	Position       *pool.Position
	Keeper         *keeper.Identity
	Capability     *keeper.Capability
	Amount         uint64
	ClaimedGasDebt uint64
	Nonce          uint64
	Signature      []byte
	NowMs          uint64
	Liquidator     stakepool.Address
}

// Record is the structured trace of a completed liquidation.
type Record struct {
	PoolIndex      uint64
	PoolID         stakepool.Bytes32
	PositionID     stakepool.Bytes32
	Owner          stakepool.Address
	KeeperID       stakepool.Bytes32
	Operator       stakepool.Address
	Liquidator     stakepool.Address
	Amount         uint64
	ClaimedGasDebt uint64
	Nonce          uint64
	GasCost        uint64
	Principal      uint64
	Penalty        uint64
	KeeperReward   uint64
	Protocol       uint64
	Remainder      uint64
	OwnerReward    uint64
	TimestampMs    uint64
}

// RecordSink stores liquidation records.
type RecordSink interface {
	AppendLiquidation(ctx context.Context, r *Record) error
}

// Result is returned to the liquidator.
type Result struct {
	Remainder uint64
	Record    Record
}

// Engine runs liquidations. It holds no state of its own and is safe for concurrent use.
type Engine struct {
	cfg    Config
	access access.Controller
	payee  bank.Payee
	sink   RecordSink
}

// NewEngine creates an engine; sink may be nil.
func NewEngine(cfg Config, ac access.Controller, payee bank.Payee, sink RecordSink) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, access: ac, payee: payee, sink: sink}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Execute liquidates req.Amount shares of req.Position. Every check runs before the pool
// is touched, and a failure leaves pool, keeper and payee unchanged.
func (e *Engine) Execute(ctx context.Context, req *Request) (*Result, error) {
	res, err := e.execute(ctx, req)
	if err != nil {
		metricLiquidations().AddWithLabel(1, map[string]string{"result": reverts.CodeOf(err).String()})
		logger.Debug("liquidation rejected", "err", err)
		return nil, err
	}
	metricLiquidations().AddWithLabel(1, map[string]string{"result": "ok"})
	metricLiquidated().Observe(int64(res.Record.Principal))
	return res, nil
}

func (e *Engine) execute(ctx context.Context, req *Request) (*Result, error) {
	if err := e.access.AssertNotPaused(); err != nil {
		return nil, err
	}
	k := req.Keeper
	if k == nil {
		return nil, reverts.New(reverts.CodeInvalidCapability, "no keeper")
	}
	if req.Pool == nil || req.Position == nil {
		return nil, reverts.New(reverts.CodePoolPositionMismatch, "")
	}

	// 1 to 6 run in the pool under its lock, so the position cannot change between the
	// bounds check and the unstake
	var split Split
	forced, err := req.Pool.ForceUnstake(k, req.Capability, req.Position, pool.ForceUnstakeRequest{
		Amount:         req.Amount,
		ClaimedGasDebt: req.ClaimedGasDebt,
		Nonce:          req.Nonce,
		Signature:      req.Signature,
		TimestampMs:    req.NowMs,
		MinAmount:      e.cfg.MinAmount,
		MaxRatioBps:    e.cfg.MaxRatioBps,
		Retain: func(principal uint64) uint64 {
			split = e.cfg.Split(principal)
			return split.Penalty + split.Protocol
		},
	})
	if err != nil {
		return nil, err
	}

	// 7. pay out and record
	e.payee.Credit(k.Operator(), bank.AssetStake, split.KeeperReward)
	e.payee.Credit(req.Position.Owner(), bank.AssetReward, forced.Reward)
	if err := k.UpdateStats(req.Capability, true, split.KeeperReward, req.ClaimedGasDebt, req.NowMs); err != nil {
		// capability was checked by the pool
		logger.Error("keeper stats not updated", "keeper", k.ID().AbbrevString(), "err", err)
	}

	rec := Record{
		PoolIndex:      req.Pool.Index(),
		PoolID:         req.Pool.ID(),
		PositionID:     req.Position.ID(),
		Owner:          req.Position.Owner(),
		KeeperID:       k.ID(),
		Operator:       k.Operator(),
		Liquidator:     req.Liquidator,
		Amount:         req.Amount,
		ClaimedGasDebt: req.ClaimedGasDebt,
		Nonce:          req.Nonce,
		GasCost:        forced.GasCost,
		Principal:      forced.Principal,
		Penalty:        split.Penalty,
		KeeperReward:   split.KeeperReward,
		Protocol:       split.Protocol,
		Remainder:      split.Remainder,
		OwnerReward:    forced.Reward,
		TimestampMs:    req.NowMs,
	}
	logger.Info("position liquidated",
		"pool", rec.PoolIndex,
		"position", rec.PositionID.AbbrevString(),
		"keeper", rec.KeeperID.AbbrevString(),
		"amount", rec.Amount,
		"principal", rec.Principal,
		"penalty", rec.Penalty,
		"keeperReward", rec.KeeperReward,
		"protocol", rec.Protocol,
		"remainder", rec.Remainder,
	)
	if e.sink != nil {
		if err := e.sink.AppendLiquidation(ctx, &rec); err != nil {
			logger.Warn("liquidation record not stored", "position", rec.PositionID.AbbrevString(), "err", err)
		}
	}
	return &Result{Remainder: split.Remainder, Record: rec}, nil
}

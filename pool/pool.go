// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pool implements a staking pool: custody of the staking and reward assets,
// the per-share accumulators and the fee split applied to reward deposits.
//
// Yield is settled lazily. A deposit only advances an accumulator; a position learns
// about it the next time it is staked, unstaked or harvested.
package pool

import (
	"strconv"
	"sync"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/ledger"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/metrics"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

var (
	logger = log.WithContext("pkg", "pool")

	metricStakeBalance  = metrics.LazyLoadGaugeVec("pool_stake_balance", []string{"pool"})
	metricRewardBalance = metrics.LazyLoadGaugeVec("pool_reward_balance", []string{"pool"})
	metricOperations    = metrics.LazyLoadCounterVec("pool_operations_count", []string{"op"})
)

// Params configures a new pool.
type Params struct {
	Name           string
	ProtocolFeeBps uint64
	KeeperFeeBps   uint64
	Keeper         stakepool.Bytes32 // id of the keeper allowed to take gas
}

// ValidateFees checks both rates are below 100% and so is their sum.
func ValidateFees(protocolBps, keeperBps uint64) error {
	if protocolBps >= stakepool.MaxBps || keeperBps >= stakepool.MaxBps || protocolBps+keeperBps >= stakepool.MaxBps {
		return reverts.Newf(reverts.CodeInvalidFeeRate, "protocol %d bps, keeper %d bps", protocolBps, keeperBps)
	}
	return nil
}

type holder struct {
	owner    stakepool.Address
	metadata string
}

// Pool is safe for concurrent use; one mutex serializes every operation on it.
type Pool struct {
	mu sync.Mutex

	index uint64
	id    stakepool.Bytes32
	name  string

	stakeBalance  uint64
	rewardBalance uint64
	totalShares   *uint256.Int
	accReward     *uint256.Int
	accGas        *uint256.Int

	protocolFeeBps       uint64
	keeperFeeBps         uint64
	unclaimedProtocolFee uint64
	keeper               stakepool.Bytes32

	ledger  *ledger.Ledger
	holders map[stakepool.Bytes32]holder

	access access.Controller
	payee  bank.Payee
}

// New creates an empty pool.
func New(index uint64, params Params, ac access.Controller, payee bank.Payee) (*Pool, error) {
	if err := ValidateFees(params.ProtocolFeeBps, params.KeeperFeeBps); err != nil {
		return nil, err
	}
	id := stakepool.DeriveID("pool", nil, index)
	return &Pool{
		index:          index,
		id:             id,
		name:           params.Name,
		totalShares:    new(uint256.Int),
		accReward:      new(uint256.Int),
		accGas:         new(uint256.Int),
		protocolFeeBps: params.ProtocolFeeBps,
		keeperFeeBps:   params.KeeperFeeBps,
		keeper:         params.Keeper,
		ledger:         ledger.New(id),
		holders:        make(map[stakepool.Bytes32]holder),
		access:         ac,
		payee:          payee,
	}, nil
}

func (p *Pool) Index() uint64         { return p.index }
func (p *Pool) ID() stakepool.Bytes32 { return p.id }

// Keeper returns the id of the keeper bound to the pool.
func (p *Pool) Keeper() stakepool.Bytes32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keeper
}

// PositionCount returns the number of open positions.
func (p *Pool) PositionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Len()
}

// PositionState is a position together with its accounting record.
type PositionState struct {
	ID       stakepool.Bytes32
	Owner    stakepool.Address
	Metadata string
	Record   ledger.Record
}

// State is the persisted form of a pool.
type State struct {
	Index                uint64
	ID                   stakepool.Bytes32
	Name                 string
	StakeBalance         uint64
	RewardBalance        uint64
	TotalShares          *uint256.Int
	AccRewardPerShare    *uint256.Int
	AccGasPerShare       *uint256.Int
	ProtocolFeeBps       uint64
	KeeperFeeBps         uint64
	UnclaimedProtocolFee uint64
	Keeper               stakepool.Bytes32
	Counter              uint64 // position id counter
	Positions            []PositionState
}

func (p *Pool) stateLocked() State {
	return State{
		Index:                p.index,
		ID:                   p.id,
		Name:                 p.name,
		StakeBalance:         p.stakeBalance,
		RewardBalance:        p.rewardBalance,
		TotalShares:          new(uint256.Int).Set(p.totalShares),
		AccRewardPerShare:    new(uint256.Int).Set(p.accReward),
		AccGasPerShare:       new(uint256.Int).Set(p.accGas),
		ProtocolFeeBps:       p.protocolFeeBps,
		KeeperFeeBps:         p.keeperFeeBps,
		UnclaimedProtocolFee: p.unclaimedProtocolFee,
		Keeper:               p.keeper,
		Counter:              p.ledger.Counter(),
	}
}

// Info returns the pool attributes without its positions.
func (p *Pool) Info() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Snapshot returns the full persisted form, positions in insertion order.
func (p *Pool) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stateLocked()
	s.Positions = make([]PositionState, 0, p.ledger.Len())
	p.ledger.Iter(func(id stakepool.Bytes32, r ledger.Record) bool {
		h := p.holders[id]
		s.Positions = append(s.Positions, PositionState{id, h.owner, h.metadata, r})
		return true
	})
	return s
}

// Restore rebuilds a pool from its persisted form.
func Restore(s State, ac access.Controller, payee bank.Payee) (*Pool, error) {
	if err := ValidateFees(s.ProtocolFeeBps, s.KeeperFeeBps); err != nil {
		return nil, err
	}
	entries := make([]ledger.Entry, 0, len(s.Positions))
	holders := make(map[stakepool.Bytes32]holder, len(s.Positions))
	sum := new(uint256.Int)
	for _, pos := range s.Positions {
		entries = append(entries, ledger.Entry{ID: pos.ID, Record: pos.Record})
		holders[pos.ID] = holder{pos.Owner, pos.Metadata}
		sum.Add(sum, pos.Record.Shares)
	}
	if !sum.Eq(s.TotalShares) {
		return nil, errors.Errorf("pool %d: total shares %v, positions hold %v", s.Index, s.TotalShares.Dec(), sum.Dec())
	}
	p := &Pool{
		index:                s.Index,
		id:                   s.ID,
		name:                 s.Name,
		stakeBalance:         s.StakeBalance,
		rewardBalance:        s.RewardBalance,
		totalShares:          new(uint256.Int).Set(s.TotalShares),
		accReward:            new(uint256.Int).Set(s.AccRewardPerShare),
		accGas:               new(uint256.Int).Set(s.AccGasPerShare),
		protocolFeeBps:       s.ProtocolFeeBps,
		keeperFeeBps:         s.KeeperFeeBps,
		unclaimedProtocolFee: s.UnclaimedProtocolFee,
		keeper:               s.Keeper,
		ledger:               ledger.Restore(s.ID, s.Counter, entries),
		holders:              holders,
		access:               ac,
		payee:                payee,
	}
	p.observe("restore")
	return p, nil
}

// observe publishes balances; callers hold the lock.
func (p *Pool) observe(op string) {
	label := map[string]string{"pool": strconv.FormatUint(p.index, 10)}
	metricStakeBalance().SetWithLabel(clampInt64(p.stakeBalance), label)
	metricRewardBalance().SetWithLabel(clampInt64(p.rewardBalance), label)
	metricOperations().AddWithLabel(1, map[string]string{"op": op})
}

func clampInt64(v uint64) int64 {
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}

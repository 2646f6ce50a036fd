// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry creates and indexes pools and keepers, and persists them.
package registry

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/store"
)

var logger = log.WithContext("pkg", "registry")

// FeeLog records protocol fee payouts.
type FeeLog interface {
	AppendFeeCollection(ctx context.Context, f *eventdb.FeeCollection) error
}

// Registry owns every pool and keeper of one deployment.
type Registry struct {
	mu       sync.RWMutex
	pools    []*pool.Pool
	keepers  []*keeper.Identity
	byID     map[stakepool.Bytes32]*keeper.Identity
	access   access.Controller
	bank     *bank.Bank
	verifier attestation.Verifier
	feeLog   FeeLog
}

// New creates an empty registry. feeLog may be nil.
func New(ac access.Controller, b *bank.Bank, verifier attestation.Verifier, feeLog FeeLog) *Registry {
	return &Registry{
		byID:     make(map[stakepool.Bytes32]*keeper.Identity),
		access:   ac,
		bank:     b,
		verifier: verifier,
		feeLog:   feeLog,
	}
}

func (r *Registry) Access() access.Controller      { return r.access }
func (r *Registry) Bank() *bank.Bank               { return r.bank }
func (r *Registry) Verifier() attestation.Verifier { return r.verifier }

// CreatePool appends a pool; the actor needs the operator role. A non-zero keeper in
// params must already be registered.
func (r *Registry) CreatePool(actor stakepool.Address, params pool.Params) (*pool.Pool, uint64, error) {
	if err := r.access.RequireRole(actor, access.RoleOperator); err != nil {
		return nil, 0, err
	}
	if err := r.access.AssertNotPaused(); err != nil {
		return nil, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !params.Keeper.IsZero() {
		if _, ok := r.byID[params.Keeper]; !ok {
			return nil, 0, reverts.Newf(reverts.CodeNotFound, "keeper %v", params.Keeper.AbbrevString())
		}
	}
	index := uint64(len(r.pools))
	p, err := pool.New(index, params, r.access, r.bank)
	if err != nil {
		return nil, 0, err
	}
	r.pools = append(r.pools, p)
	logger.Info("pool created", "index", index, "name", params.Name, "by", actor)
	return p, index, nil
}

// CreateKeeper registers a pending keeper operated by operator.
func (r *Registry) CreateKeeper(operator stakepool.Address, name string, attestationID stakepool.Bytes32) (*keeper.Identity, *keeper.Capability, error) {
	if err := r.access.AssertNotPaused(); err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k, c := keeper.New(uint64(len(r.keepers)), operator, name, attestationID)
	r.keepers = append(r.keepers, k)
	r.byID[k.ID()] = k
	logger.Info("keeper created", "index", k.Index(), "id", k.ID().AbbrevString(), "operator", operator)
	return k, c, nil
}

// Pool returns the pool at index.
func (r *Registry) Pool(index uint64) (*pool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index >= uint64(len(r.pools)) {
		return nil, reverts.Newf(reverts.CodeNotFound, "pool %d", index)
	}
	return r.pools[index], nil
}

// Pools returns every pool ordered by index.
func (r *Registry) Pools() []*pool.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*pool.Pool(nil), r.pools...)
}

// Keeper returns the keeper with the given id.
func (r *Registry) Keeper(id stakepool.Bytes32) (*keeper.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byID[id]
	if !ok {
		return nil, reverts.Newf(reverts.CodeNotFound, "keeper %v", id.AbbrevString())
	}
	return k, nil
}

// Keepers returns every keeper ordered by index.
func (r *Registry) Keepers() []*keeper.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*keeper.Identity(nil), r.keepers...)
}

// CollectProtocolFee pays out the protocol fee of a pool and logs the payout.
func (r *Registry) CollectProtocolFee(ctx context.Context, actor stakepool.Address, index, nowMs uint64) (uint64, error) {
	p, err := r.Pool(index)
	if err != nil {
		return 0, err
	}
	fee, err := p.CollectProtocolFee(actor)
	if err != nil {
		return 0, err
	}
	if r.feeLog != nil {
		rec := &eventdb.FeeCollection{PoolIndex: index, Collector: actor, Amount: fee, TimestampMs: nowMs}
		if err := r.feeLog.AppendFeeCollection(ctx, rec); err != nil {
			logger.Warn("failed to log fee collection", "pool", index, "err", err)
		}
	}
	return fee, nil
}

// Save snapshots and encodes pools and keepers in parallel, then writes them in one batch.
func (r *Registry) Save(ctx context.Context, s *store.Store) error {
	pools, keepers := r.Pools(), r.Keepers()
	snap := &store.Snapshot{
		Pools:   make(map[uint64][]byte, len(pools)),
		Keepers: make(map[uint64][]byte, len(keepers)),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range pools {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := store.EncodePool(p.Snapshot())
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Pools[p.Index()] = data
			mu.Unlock()
			return nil
		})
	}
	for _, k := range keepers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := store.EncodeKeeper(k.Snapshot())
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Keepers[k.Index()] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "snapshot")
	}
	snap.Bank = r.bank.Entries()
	if err := s.Write(snap); err != nil {
		return err
	}
	logger.Debug("state saved", "pools", len(pools), "keepers", len(keepers))
	return nil
}

// Load rebuilds a registry from s. It returns the capability of every restored keeper,
// keyed by keeper id.
func Load(
	ctx context.Context,
	s *store.Store,
	ac access.Controller,
	verifier attestation.Verifier,
	feeLog FeeLog,
) (*Registry, map[stakepool.Bytes32]*keeper.Capability, error) {
	poolStates, err := s.LoadPools()
	if err != nil {
		return nil, nil, err
	}
	keeperStates, err := s.LoadKeepers()
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.LoadBank()
	if err != nil {
		return nil, nil, err
	}

	b := bank.New()
	b.Restore(entries)
	r := New(ac, b, verifier, feeLog)

	r.pools = make([]*pool.Pool, len(poolStates))
	g, ctx := errgroup.WithContext(ctx)
	for i, st := range poolStates {
		if st.Index != uint64(i) {
			return nil, nil, errors.Errorf("pool index gap: want %d, got %d", i, st.Index)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := pool.Restore(st, ac, b)
			if err != nil {
				return err
			}
			r.pools[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "restore pools")
	}

	caps := make(map[stakepool.Bytes32]*keeper.Capability, len(keeperStates))
	for i, st := range keeperStates {
		if st.Index != uint64(i) {
			return nil, nil, errors.Errorf("keeper index gap: want %d, got %d", i, st.Index)
		}
		k, c := keeper.Restore(st, verifier)
		r.keepers = append(r.keepers, k)
		r.byID[k.ID()] = k
		caps[k.ID()] = c
	}
	logger.Info("state loaded", "pools", len(r.pools), "keepers", len(r.keepers))
	return r, caps, nil
}

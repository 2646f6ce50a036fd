// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/registry"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/store"
)

// opArgs carries the flags shared by the offline mutation commands.
type opArgs struct {
	pool     uint64
	position stakepool.Bytes32
	keeper   stakepool.Bytes32
	actor    stakepool.Address
	amount   uint64
	metadata string
}

// operation mutates the loaded registry and returns what to print.
type operation func(reg *registry.Registry, caps map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error)

func parseOpArgs(ctx *cli.Context) (*opArgs, error) {
	args := &opArgs{
		pool:     ctx.Uint64(poolFlag.Name),
		amount:   ctx.Uint64(amountFlag.Name),
		metadata: ctx.String(metadataFlag.Name),
	}
	var err error
	if s := ctx.String(actorFlag.Name); s != "" {
		if args.actor, err = stakepool.ParseAddress(s); err != nil {
			return nil, errors.WithMessage(err, "actor")
		}
	}
	if s := ctx.String(positionFlag.Name); s != "" {
		if args.position, err = stakepool.ParseBytes32(s); err != nil {
			return nil, errors.WithMessage(err, "position")
		}
	}
	if s := ctx.String(keeperFlag.Name); s != "" {
		if args.keeper, err = stakepool.ParseBytes32(s); err != nil {
			return nil, errors.WithMessage(err, "keeper")
		}
	}
	return args, nil
}

// offlineAction runs op against the data dir and persists the result.
func offlineAction(op operation) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		initLogger(ctx)
		cfg := mustLoadConfig(ctx)
		args, err := parseOpArgs(ctx)
		if err != nil {
			return err
		}

		dataDir := makeDataDir(ctx)
		mainDB := openMainDB(ctx, dataDir, false)
		defer mainDB.Close()
		events := openEventDB(dataDir)
		defer events.Close()

		s := store.New(mainDB)
		reg, caps := loadRegistry(cfg, s, events)
		res, err := op(reg, caps, args)
		if err != nil {
			return err
		}
		if err := reg.Save(context.Background(), s); err != nil {
			return err
		}
		spew.Dump(res)
		return nil
	}
}

type positionView struct {
	Pool   uint64
	ID     stakepool.Bytes32
	Owner  stakepool.Address
	Shares string
}

func viewPosition(p *pool.Pool, pos *pool.Position) positionView {
	return positionView{p.Index(), pos.ID(), pos.Owner(), pos.Shares().Dec()}
}

// ownedPosition resolves the position and checks that actor owns it.
func ownedPosition(reg *registry.Registry, args *opArgs) (*pool.Pool, *pool.Position, error) {
	p, err := reg.Pool(args.pool)
	if err != nil {
		return nil, nil, err
	}
	pos, err := p.Position(args.position)
	if err != nil {
		return nil, nil, err
	}
	if pos.Owner() != args.actor {
		return nil, nil, reverts.Newf(reverts.CodeUnauthorized, "%v does not own %v", args.actor, pos.ID().AbbrevString())
	}
	return p, pos, nil
}

// operatedKeeper resolves the keeper and its capability, checking that actor operates it.
func operatedKeeper(reg *registry.Registry, caps map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (*keeper.Identity, *keeper.Capability, error) {
	k, err := reg.Keeper(args.keeper)
	if err != nil {
		return nil, nil, err
	}
	if k.Operator() != args.actor {
		return nil, nil, reverts.Newf(reverts.CodeUnauthorized, "%v does not operate keeper %v", args.actor, k.ID().AbbrevString())
	}
	return k, caps[k.ID()], nil
}

func openPositionOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	p, err := reg.Pool(args.pool)
	if err != nil {
		return nil, err
	}
	pos, err := p.OpenPosition(args.actor, args.metadata)
	if err != nil {
		return nil, err
	}
	if args.amount > 0 {
		if err := p.Stake(pos, args.amount); err != nil {
			return nil, err
		}
	}
	return viewPosition(p, pos), nil
}

func stakeOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	p, pos, err := ownedPosition(reg, args)
	if err != nil {
		return nil, err
	}
	if err := p.Stake(pos, args.amount); err != nil {
		return nil, err
	}
	return viewPosition(p, pos), nil
}

func unstakeOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	p, pos, err := ownedPosition(reg, args)
	if err != nil {
		return nil, err
	}
	res, err := p.Unstake(pos, args.amount)
	if err != nil {
		return nil, err
	}
	reg.Bank().Credit(args.actor, bank.AssetStake, res.Principal)
	reg.Bank().Credit(args.actor, bank.AssetReward, res.Reward)
	return res, nil
}

func closePositionOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	p, pos, err := ownedPosition(reg, args)
	if err != nil {
		return nil, err
	}
	return pos.ID(), p.ClosePosition(pos)
}

func withdrawRewardsOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	p, pos, err := ownedPosition(reg, args)
	if err != nil {
		return nil, err
	}
	reward, err := p.WithdrawRewards(pos)
	if err != nil {
		return nil, err
	}
	reg.Bank().Credit(args.actor, bank.AssetReward, reward)
	return reward, nil
}

func withdrawGasOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	p, pos, err := ownedPosition(reg, args)
	if err != nil {
		return nil, err
	}
	gas, err := p.WithdrawGas(pos)
	if err != nil {
		return nil, err
	}
	reg.Bank().Credit(args.actor, bank.AssetStake, gas)
	return gas, nil
}

// depositRewardsOp deposits into the pool; the keeper fee goes to the operator of the
// pool's bound keeper.
func depositRewardsOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	p, err := reg.Pool(args.pool)
	if err != nil {
		return nil, err
	}
	var feeTo stakepool.Address
	if !p.Keeper().IsZero() {
		k, err := reg.Keeper(p.Keeper())
		if err != nil {
			return nil, err
		}
		feeTo = k.Operator()
	}
	return p.DepositRewards(args.amount, feeTo)
}

func chargeGasOp(reg *registry.Registry, caps map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	k, c, err := operatedKeeper(reg, caps, args)
	if err != nil {
		return nil, err
	}
	p, err := reg.Pool(args.pool)
	if err != nil {
		return nil, err
	}
	if err := p.ChargeGas(k, c, args.amount); err != nil {
		return nil, err
	}
	return p.Info(), nil
}

func takeGasOp(reg *registry.Registry, caps map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	k, c, err := operatedKeeper(reg, caps, args)
	if err != nil {
		return nil, err
	}
	p, err := reg.Pool(args.pool)
	if err != nil {
		return nil, err
	}
	taken, err := p.TakeGas(k, c, args.amount)
	if err != nil {
		return nil, err
	}
	reg.Bank().Credit(k.Operator(), bank.AssetStake, taken)
	return taken, nil
}

func suspendKeeperOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	k, err := reg.Keeper(args.keeper)
	if err != nil {
		return nil, err
	}
	if err := k.Suspend(args.actor, reg.Access()); err != nil {
		return nil, err
	}
	return k.Snapshot(), nil
}

func reactivateKeeperOp(reg *registry.Registry, _ map[stakepool.Bytes32]*keeper.Capability, args *opArgs) (any, error) {
	k, err := reg.Keeper(args.keeper)
	if err != nil {
		return nil, err
	}
	if err := k.Reactivate(args.actor, reg.Access()); err != nil {
		return nil, err
	}
	return k.Snapshot(), nil
}

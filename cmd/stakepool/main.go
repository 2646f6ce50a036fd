// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakepool/api"
	"github.com/vechain/stakepool/liquidation"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/metrics"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/store"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	common := []cli.Flag{
		configFlag,
		dataDirFlag,
		cacheFlag,
		verbosityFlag,
		jsonLogsFlag,
	}
	app := cli.App{
		Version: fullVersion(),
		Name:    "stakepool",
		Usage:   "Staking pools with keeper attested liquidation",
		Flags: append([]cli.Flag{
			apiAddrFlag,
			apiCorsFlag,
			apiPageLimitFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
		}, common...),
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:   "inspect",
				Usage:  "dump the persisted state",
				Flags:  common,
				Action: inspectAction,
			},
			{
				Name:   "liquidate",
				Usage:  "execute a keeper signed liquidation request",
				Flags:  append([]cli.Flag{requestFlag}, common...),
				Action: liquidateAction,
			},
			{
				Name:   "collect-fee",
				Usage:  "pay out the accrued protocol fee of a pool",
				Flags:  append([]cli.Flag{poolFlag, actorFlag}, common...),
				Action: collectFeeAction,
			},
		},
	}
	app.Commands = append(app.Commands, offlineCommands(common)...)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func offlineCommands(common []cli.Flag) []cli.Command {
	var (
		positionFlags = []cli.Flag{poolFlag, positionFlag, actorFlag}
		keeperFlags   = []cli.Flag{poolFlag, keeperFlag, actorFlag, amountFlag}
	)
	cmd := func(name, usage string, op operation, flags ...cli.Flag) cli.Command {
		return cli.Command{
			Name:   name,
			Usage:  usage,
			Flags:  append(flags, common...),
			Action: offlineAction(op),
		}
	}
	return []cli.Command{
		cmd("open-position", "open a position owned by the actor, staking --amount if set",
			openPositionOp, poolFlag, actorFlag, amountFlag, metadataFlag),
		cmd("close-position", "close an empty position", closePositionOp, positionFlags...),
		cmd("stake", "stake into a position", stakeOp, append(positionFlags, amountFlag)...),
		cmd("unstake", "burn shares of a position", unstakeOp, append(positionFlags, amountFlag)...),
		cmd("withdraw-rewards", "pay out the pending reward of a position", withdrawRewardsOp, positionFlags...),
		cmd("withdraw-gas", "pay out the pending gas of a position", withdrawGasOp, positionFlags...),
		cmd("deposit-rewards", "deposit rewards into a pool", depositRewardsOp, poolFlag, amountFlag),
		cmd("charge-gas", "record gas a keeper spent for the stakers", chargeGasOp, keeperFlags...),
		cmd("take-gas", "pay gas reimbursement to a keeper", takeGasOp, keeperFlags...),
		cmd("suspend-keeper", "suspend an active keeper", suspendKeeperOp, keeperFlag, actorFlag),
		cmd("reactivate-keeper", "reactivate a suspended keeper", reactivateKeeperOp, keeperFlag, actorFlag),
	}
}

func defaultAction(ctx *cli.Context) error {
	initLogger(ctx)
	defer func() { log.Info("exited") }()

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}
	cfg := mustLoadConfig(ctx)
	dataDir := makeDataDir(ctx)

	mainDB := openMainDB(ctx, dataDir, false)
	defer func() { log.Info("closing state database..."); mainDB.Close() }()
	events := openEventDB(dataDir)
	defer func() { log.Info("closing event database..."); events.Close() }()

	s := store.New(mainDB)
	reg, _ := loadRegistry(cfg, s, events)

	handler := api.New(reg, events, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		PageLimit:       ctx.Uint64(apiPageLimitFlag.Name),
	})
	apiURL, stopAPI := startAPIServer(ctx, handler)
	defer func() { log.Info("stopping API server..."); stopAPI() }()

	log.Info("stakepool started",
		"version", fullVersion(),
		"dataDir", dataDir,
		"api", apiURL,
		"pools", len(reg.Pools()),
		"keepers", len(reg.Keepers()),
		"sqlite", events.SQLiteVersion())

	<-handleExitSignal().Done()
	return reg.Save(context.Background(), s)
}

func inspectAction(ctx *cli.Context) error {
	initLogger(ctx)
	db := openMainDB(ctx, makeDataDir(ctx), true)
	defer db.Close()

	s := store.New(db)
	pools, err := s.LoadPools()
	if err != nil {
		return err
	}
	keepers, err := s.LoadKeepers()
	if err != nil {
		return err
	}
	entries, err := s.LoadBank()
	if err != nil {
		return err
	}
	dump := spew.ConfigState{Indent: "  ", SortKeys: true}
	fmt.Println("# pools")
	dump.Dump(pools)
	fmt.Println("# keepers")
	dump.Dump(keepers)
	fmt.Println("# balances")
	dump.Dump(entries)
	return nil
}

func liquidateAction(ctx *cli.Context) error {
	initLogger(ctx)
	cfg := mustLoadConfig(ctx)
	req, err := loadRequest(ctx.String(requestFlag.Name))
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
	engine, err := liquidation.NewEngine(cfg.Liquidation, reg.Access(), reg.Bank(), events)
	if err != nil {
		return err
	}

	p, err := reg.Pool(req.Pool)
	if err != nil {
		return err
	}
	pos, err := p.Position(req.position)
	if err != nil {
		return err
	}
	k, err := reg.Keeper(req.keeper)
	if err != nil {
		return err
	}
	res, err := engine.Execute(context.Background(), &liquidation.Request{
		Pool:           p,
		Position:       pos,
		Keeper:         k,
		Capability:     caps[k.ID()],
		Amount:         req.Amount,
		ClaimedGasDebt: req.ClaimedGasDebt,
		Nonce:          req.Nonce,
		Signature:      req.signature,
		NowMs:          req.TimestampMs,
		Liquidator:     req.Liquidator,
	})
	if err != nil {
		return err
	}
	if err := reg.Save(context.Background(), s); err != nil {
		return err
	}
	spew.Dump(res)
	return nil
}

func collectFeeAction(ctx *cli.Context) error {
	initLogger(ctx)
	cfg := mustLoadConfig(ctx)
	actor, err := stakepool.ParseAddress(ctx.String(actorFlag.Name))
	if err != nil {
		return errors.WithMessage(err, "actor")
	}

	dataDir := makeDataDir(ctx)
	mainDB := openMainDB(ctx, dataDir, false)
	defer mainDB.Close()
	events := openEventDB(dataDir)
	defer events.Close()

	s := store.New(mainDB)
	reg, _ := loadRegistry(cfg, s, events)
	index := ctx.Uint64(poolFlag.Name)
	fee, err := reg.CollectProtocolFee(context.Background(), actor, index, uint64(time.Now().UnixMilli()))
	if err != nil {
		return err
	}
	if err := reg.Save(context.Background(), s); err != nil {
		return err
	}
	fmt.Printf("collected %d from pool %d\n", fee, index)
	return nil
}

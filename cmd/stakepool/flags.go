// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakepool/log"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the YAML deployment config",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the state and record databases",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 64,
		Usage: "megabytes of memory allocated to the state database cache",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8680",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiPageLimitFlag = cli.Uint64Flag{
		Name:  "api-page-limit",
		Value: 100,
		Usage: "limit the number of positions or records returned by one API call",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables prometheus metrics, served at /metrics",
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}

	requestFlag = cli.StringFlag{
		Name:  "request",
		Usage: "path to a YAML or JSON liquidation request",
	}
	poolFlag = cli.Uint64Flag{
		Name:  "pool",
		Usage: "pool index",
	}
	actorFlag = cli.StringFlag{
		Name:  "actor",
		Usage: "address performing the operation",
	}
	positionFlag = cli.StringFlag{
		Name:  "position",
		Usage: "position id",
	}
	keeperFlag = cli.StringFlag{
		Name:  "keeper",
		Usage: "keeper id",
	}
	amountFlag = cli.Uint64Flag{
		Name:  "amount",
		Usage: "amount of the staking or reward asset",
	}
	metadataFlag = cli.StringFlag{
		Name:  "metadata",
		Usage: "free form position label",
	}
)

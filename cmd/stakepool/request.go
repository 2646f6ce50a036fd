// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/stakepool/stakepool"
)

// liquidationRequest is the file form of a keeper signed liquidation. JSON files parse
// too, being valid YAML.
type liquidationRequest struct {
	Pool           uint64            `yaml:"pool"`
	Position       string            `yaml:"position"`
	Keeper         string            `yaml:"keeper"`
	Amount         uint64            `yaml:"amount"`
	ClaimedGasDebt uint64            `yaml:"claimed-gas-debt"`
	Nonce          uint64            `yaml:"nonce"`
	Signature      string            `yaml:"signature"`
	TimestampMs    uint64            `yaml:"timestamp-ms"`
	Liquidator     stakepool.Address `yaml:"liquidator"`

	position  stakepool.Bytes32
	keeper    stakepool.Bytes32
	signature []byte
}

func parseRequest(data []byte) (*liquidationRequest, error) {
	var req liquidationRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, errors.Wrap(err, "parse request")
	}
	var err error
	if req.position, err = stakepool.ParseBytes32(req.Position); err != nil {
		return nil, errors.WithMessage(err, "position")
	}
	if req.keeper, err = stakepool.ParseBytes32(req.Keeper); err != nil {
		return nil, errors.WithMessage(err, "keeper")
	}
	if req.signature, err = hexutil.Decode(req.Signature); err != nil {
		return nil, errors.WithMessage(err, "signature")
	}
	return &req, nil
}

func loadRequest(path string) (*liquidationRequest, error) {
	if path == "" {
		return nil, errors.Errorf("missing --%s", requestFlag.Name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read request")
	}
	return parseRequest(data)
}

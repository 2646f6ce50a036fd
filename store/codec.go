// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/ledger"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/stakepool"
)

// 128-bit values travel as big.Int, the form rlp knows.

type positionBody struct {
	ID         stakepool.Bytes32
	Owner      stakepool.Address
	Metadata   string
	Shares     *big.Int
	RewardDebt *big.Int
	GasDebt    *big.Int
}

type poolBody struct {
	Index                uint64
	ID                   stakepool.Bytes32
	Name                 string
	StakeBalance         uint64
	RewardBalance        uint64
	TotalShares          *big.Int
	AccRewardPerShare    *big.Int
	AccGasPerShare       *big.Int
	ProtocolFeeBps       uint64
	KeeperFeeBps         uint64
	UnclaimedProtocolFee uint64
	Keeper               stakepool.Bytes32
	Counter              uint64
	Positions            []positionBody
}

type bankBody struct {
	Address stakepool.Address
	Asset   uint8
	Balance *big.Int
}

func encode(v any) ([]byte, error) {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

func decode(data []byte, v any) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return errors.Wrap(err, "snappy")
	}
	return rlp.DecodeBytes(raw, v)
}

func from128(b *big.Int, what string) (*uint256.Int, error) {
	v, ok := stakepool.FromBig(b)
	if !ok {
		return nil, errors.Errorf("%s exceeds 128 bits", what)
	}
	return v, nil
}

// EncodePool returns the stored form of a pool.
func EncodePool(s pool.State) ([]byte, error) {
	body := poolBody{
		Index:                s.Index,
		ID:                   s.ID,
		Name:                 s.Name,
		StakeBalance:         s.StakeBalance,
		RewardBalance:        s.RewardBalance,
		TotalShares:          stakepool.ToBig(s.TotalShares),
		AccRewardPerShare:    stakepool.ToBig(s.AccRewardPerShare),
		AccGasPerShare:       stakepool.ToBig(s.AccGasPerShare),
		ProtocolFeeBps:       s.ProtocolFeeBps,
		KeeperFeeBps:         s.KeeperFeeBps,
		UnclaimedProtocolFee: s.UnclaimedProtocolFee,
		Keeper:               s.Keeper,
		Counter:              s.Counter,
		Positions:            make([]positionBody, 0, len(s.Positions)),
	}
	for _, p := range s.Positions {
		body.Positions = append(body.Positions, positionBody{
			ID:         p.ID,
			Owner:      p.Owner,
			Metadata:   p.Metadata,
			Shares:     stakepool.ToBig(p.Record.Shares),
			RewardDebt: stakepool.ToBig(p.Record.RewardDebt),
			GasDebt:    stakepool.ToBig(p.Record.GasDebt),
		})
	}
	data, err := encode(&body)
	return data, errors.Wrapf(err, "encode pool %d", s.Index)
}

// DecodePool parses the stored form of a pool.
func DecodePool(data []byte) (pool.State, error) {
	var body poolBody
	if err := decode(data, &body); err != nil {
		return pool.State{}, errors.Wrap(err, "decode pool")
	}
	s := pool.State{
		Index:                body.Index,
		ID:                   body.ID,
		Name:                 body.Name,
		StakeBalance:         body.StakeBalance,
		RewardBalance:        body.RewardBalance,
		ProtocolFeeBps:       body.ProtocolFeeBps,
		KeeperFeeBps:         body.KeeperFeeBps,
		UnclaimedProtocolFee: body.UnclaimedProtocolFee,
		Keeper:               body.Keeper,
		Counter:              body.Counter,
		Positions:            make([]pool.PositionState, 0, len(body.Positions)),
	}
	var err error
	if s.TotalShares, err = from128(body.TotalShares, "total shares"); err != nil {
		return pool.State{}, err
	}
	if s.AccRewardPerShare, err = from128(body.AccRewardPerShare, "reward accumulator"); err != nil {
		return pool.State{}, err
	}
	if s.AccGasPerShare, err = from128(body.AccGasPerShare, "gas accumulator"); err != nil {
		return pool.State{}, err
	}
	for _, p := range body.Positions {
		var rec ledger.Record
		if rec.Shares, err = from128(p.Shares, "shares"); err != nil {
			return pool.State{}, err
		}
		if rec.RewardDebt, err = from128(p.RewardDebt, "reward debt"); err != nil {
			return pool.State{}, err
		}
		if rec.GasDebt, err = from128(p.GasDebt, "gas debt"); err != nil {
			return pool.State{}, err
		}
		s.Positions = append(s.Positions, pool.PositionState{ID: p.ID, Owner: p.Owner, Metadata: p.Metadata, Record: rec})
	}
	return s, nil
}

// EncodeKeeper returns the stored form of a keeper.
func EncodeKeeper(s keeper.State) ([]byte, error) {
	if s.Nonces == nil {
		s.Nonces = []uint64{}
	}
	data, err := encode(&s)
	return data, errors.Wrapf(err, "encode keeper %d", s.Index)
}

// DecodeKeeper parses the stored form of a keeper.
func DecodeKeeper(data []byte) (keeper.State, error) {
	var s keeper.State
	if err := decode(data, &s); err != nil {
		return keeper.State{}, errors.Wrap(err, "decode keeper")
	}
	if len(s.PublicKey) == 0 {
		s.PublicKey = nil
	}
	return s, nil
}

func encodeBank(entries []bank.Entry) ([]byte, error) {
	bodies := make([]bankBody, 0, len(entries))
	for _, e := range entries {
		bodies = append(bodies, bankBody{e.Address, uint8(e.Asset), stakepool.ToBig(e.Balance)})
	}
	data, err := encode(bodies)
	return data, errors.Wrap(err, "encode bank")
}

func decodeBank(data []byte) ([]bank.Entry, error) {
	var bodies []bankBody
	if err := decode(data, &bodies); err != nil {
		return nil, errors.Wrap(err, "decode bank")
	}
	entries := make([]bank.Entry, 0, len(bodies))
	for _, b := range bodies {
		bal, overflow := uint256.FromBig(b.Balance)
		if overflow {
			return nil, errors.New("bank balance exceeds 256 bits")
		}
		entries = append(entries, bank.Entry{Address: b.Address, Asset: bank.Asset(b.Asset), Balance: bal})
	}
	return entries, nil
}

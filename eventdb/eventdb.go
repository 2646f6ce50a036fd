// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb keeps an append-only sqlite log of completed liquidations and
// protocol fee collections.
package eventdb

import (
	"context"
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/liquidation"
	"github.com/vechain/stakepool/stakepool"
)

type OrderType string

const (
	ASC  OrderType = "asc"
	DESC OrderType = "desc"
)

// Range bounds the record timestamp in milliseconds, both ends inclusive. A To lower
// than From leaves the upper end open.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter selects records. Nil fields match everything.
type Filter struct {
	PoolIndex *uint64            `json:"poolIndex"`
	KeeperID  *stakepool.Bytes32 `json:"keeperID"` // liquidations only
	Range     *Range             `json:"range"`
	Order     OrderType          `json:"order"` // default asc
	Options   *Options           `json:"options"`
}

// FeeCollection records one protocol fee payout.
type FeeCollection struct {
	PoolIndex   uint64
	Collector   stakepool.Address
	Amount      uint64
	TimestampMs uint64
}

// EventDB manages the record log.
type EventDB struct {
	path          string
	db            *sql.DB
	sqliteVersion string
}

var _ liquidation.RecordSink = (*EventDB)(nil)

// New opens the log at path, creating its tables.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// a memory database lives in one connection
	db.SetMaxOpenConns(1)
	for _, schema := range []string{liquidationTableSchema, feeTableSchema} {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "create tables")
		}
	}
	s, _, _ := sqlite3.Version()
	return &EventDB{
		path:          path,
		db:            db,
		sqliteVersion: s,
	}, nil
}

// NewMem creates a memory sqlite db.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// AppendLiquidation stores r. A second record for the same keeper nonce is rejected.
func (db *EventDB) AppendLiquidation(ctx context.Context, r *liquidation.Record) error {
	_, err := db.db.ExecContext(ctx, "INSERT INTO liquidation("+liquidationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		i64(r.PoolIndex),
		r.PoolID.Bytes(),
		r.PositionID.Bytes(),
		r.Owner.Bytes(),
		r.KeeperID.Bytes(),
		r.Operator.Bytes(),
		r.Liquidator.Bytes(),
		i64(r.Amount),
		i64(r.ClaimedGasDebt),
		i64(r.Nonce),
		i64(r.GasCost),
		i64(r.Principal),
		i64(r.Penalty),
		i64(r.KeeperReward),
		i64(r.Protocol),
		i64(r.Remainder),
		i64(r.OwnerReward),
		i64(r.TimestampMs))
	return errors.Wrap(err, "insert liquidation")
}

// AppendFeeCollection stores f.
func (db *EventDB) AppendFeeCollection(ctx context.Context, f *FeeCollection) error {
	_, err := db.db.ExecContext(ctx, "INSERT INTO fee(poolIndex, collector, amount, timestamp) VALUES (?, ?, ?, ?)",
		i64(f.PoolIndex), f.Collector.Bytes(), i64(f.Amount), i64(f.TimestampMs))
	return errors.Wrap(err, "insert fee collection")
}

func where(filter *Filter, withKeeper bool) (string, []any) {
	stmt := " WHERE 1"
	if filter == nil {
		return stmt + " ORDER BY seq ASC", nil
	}
	var args []any
	if filter.PoolIndex != nil {
		stmt += " AND poolIndex = ?"
		args = append(args, i64(*filter.PoolIndex))
	}
	if withKeeper && filter.KeeperID != nil {
		stmt += " AND keeperID = ?"
		args = append(args, filter.KeeperID.Bytes())
	}
	if filter.Range != nil {
		stmt += " AND timestamp >= ?"
		args = append(args, i64(filter.Range.From))
		if filter.Range.To >= filter.Range.From {
			stmt += " AND timestamp <= ?"
			args = append(args, i64(filter.Range.To))
		}
	}
	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}
	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, i64(filter.Options.Offset), i64(filter.Options.Limit))
	}
	return stmt, args
}

// Liquidations returns the records matching filter.
func (db *EventDB) Liquidations(ctx context.Context, filter *Filter) ([]*liquidation.Record, error) {
	stmt, args := where(filter, true)
	rows, err := db.db.QueryContext(ctx, "SELECT "+liquidationColumns+" FROM liquidation"+stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query liquidations")
	}
	defer rows.Close()

	var records []*liquidation.Record
	for rows.Next() {
		var (
			poolID, positionID, keeperID []byte
			owner, operator, liquidator  []byte
			n                            [12]int64
		)
		if err := rows.Scan(
			&n[0],
			&poolID,
			&positionID,
			&owner,
			&keeperID,
			&operator,
			&liquidator,
			&n[1], &n[2], &n[3], &n[4], &n[5], &n[6], &n[7], &n[8], &n[9], &n[10], &n[11],
		); err != nil {
			return nil, err
		}
		records = append(records, &liquidation.Record{
			PoolIndex:      uint64(n[0]),
			PoolID:         stakepool.BytesToBytes32(poolID),
			PositionID:     stakepool.BytesToBytes32(positionID),
			Owner:          stakepool.BytesToAddress(owner),
			KeeperID:       stakepool.BytesToBytes32(keeperID),
			Operator:       stakepool.BytesToAddress(operator),
			Liquidator:     stakepool.BytesToAddress(liquidator),
			Amount:         uint64(n[1]),
			ClaimedGasDebt: uint64(n[2]),
			Nonce:          uint64(n[3]),
			GasCost:        uint64(n[4]),
			Principal:      uint64(n[5]),
			Penalty:        uint64(n[6]),
			KeeperReward:   uint64(n[7]),
			Protocol:       uint64(n[8]),
			Remainder:      uint64(n[9]),
			OwnerReward:    uint64(n[10]),
			TimestampMs:    uint64(n[11]),
		})
	}
	return records, rows.Err()
}

// FeeCollections returns the fee payouts matching filter; KeeperID is ignored.
func (db *EventDB) FeeCollections(ctx context.Context, filter *Filter) ([]*FeeCollection, error) {
	stmt, args := where(filter, false)
	rows, err := db.db.QueryContext(ctx, "SELECT poolIndex, collector, amount, timestamp FROM fee"+stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query fee collections")
	}
	defer rows.Close()

	var fees []*FeeCollection
	for rows.Next() {
		var (
			poolIndex, amount, ts int64
			collector             []byte
		)
		if err := rows.Scan(&poolIndex, &collector, &amount, &ts); err != nil {
			return nil, err
		}
		fees = append(fees, &FeeCollection{
			PoolIndex:   uint64(poolIndex),
			Collector:   stakepool.BytesToAddress(collector),
			Amount:      uint64(amount),
			TimestampMs: uint64(ts),
		})
	}
	return fees, rows.Err()
}

// Path returns the db location.
func (db *EventDB) Path() string {
	return db.path
}

// SQLiteVersion returns the version of the linked sqlite library.
func (db *EventDB) SQLiteVersion() string {
	return db.sqliteVersion
}

func (db *EventDB) Close() error {
	return db.db.Close()
}

func i64(v uint64) int64 {
	return int64(v)
}

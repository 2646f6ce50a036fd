// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidations

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vechain/stakepool/api/utils"
	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/liquidation"
	"github.com/vechain/stakepool/stakepool"
)

type Liquidation struct {
	PoolIndex      uint64            `json:"poolIndex"`
	PoolID         stakepool.Bytes32 `json:"poolID"`
	PositionID     stakepool.Bytes32 `json:"positionID"`
	Owner          stakepool.Address `json:"owner"`
	KeeperID       stakepool.Bytes32 `json:"keeperID"`
	Operator       stakepool.Address `json:"operator"`
	Liquidator     stakepool.Address `json:"liquidator"`
	Amount         uint64            `json:"amount"`
	ClaimedGasDebt uint64            `json:"claimedGasDebt"`
	Nonce          uint64            `json:"nonce"`
	GasCost        uint64            `json:"gasCost"`
	Principal      uint64            `json:"principal"`
	Penalty        uint64            `json:"penalty"`
	KeeperReward   uint64            `json:"keeperReward"`
	Protocol       uint64            `json:"protocol"`
	Remainder      uint64            `json:"remainder"`
	OwnerReward    uint64            `json:"ownerReward"`
	TimestampMs    uint64            `json:"timestampMs"`
}

func convert(r *liquidation.Record) *Liquidation {
	l := Liquidation(*r)
	return &l
}

type Liquidations struct {
	db    *eventdb.EventDB
	limit uint64
}

// New creates the liquidation log API; limit caps the records of one response.
func New(db *eventdb.EventDB, limit uint64) *Liquidations {
	return &Liquidations{db, limit}
}

func (l *Liquidations) handleFilter(w http.ResponseWriter, req *http.Request) error {
	filter, err := utils.ParseFilter(req.URL.Query(), l.limit)
	if err != nil {
		return err
	}
	records, err := l.db.Liquidations(req.Context(), filter)
	if err != nil {
		return err
	}
	result := make([]*Liquidation, 0, len(records))
	for _, r := range records {
		result = append(result, convert(r))
	}
	return utils.WriteJSON(w, result)
}

func (l *Liquidations) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /liquidations").
		HandlerFunc(utils.WrapHandlerFunc(l.handleFilter))
}

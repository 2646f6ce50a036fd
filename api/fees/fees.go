// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fees

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vechain/stakepool/api/utils"
	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/stakepool"
)

type FeeCollection struct {
	PoolIndex   uint64            `json:"poolIndex"`
	Collector   stakepool.Address `json:"collector"`
	Amount      uint64            `json:"amount"`
	TimestampMs uint64            `json:"timestampMs"`
}

type Fees struct {
	db    *eventdb.EventDB
	limit uint64
}

func New(db *eventdb.EventDB, limit uint64) *Fees {
	return &Fees{db, limit}
}

func (f *Fees) handleFilter(w http.ResponseWriter, req *http.Request) error {
	filter, err := utils.ParseFilter(req.URL.Query(), f.limit)
	if err != nil {
		return err
	}
	fees, err := f.db.FeeCollections(req.Context(), filter)
	if err != nil {
		return err
	}
	result := make([]*FeeCollection, 0, len(fees))
	for _, fc := range fees {
		c := FeeCollection(*fc)
		result = append(result, &c)
	}
	return utils.WriteJSON(w, result)
}

func (f *Fees) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /fees").
		HandlerFunc(utils.WrapHandlerFunc(f.handleFilter))
}

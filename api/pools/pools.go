// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/api/utils"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/registry"
	"github.com/vechain/stakepool/stakepool"
)

type Pools struct {
	reg   *registry.Registry
	limit uint64
}

// New creates the pools API; limit caps a page of positions.
func New(reg *registry.Registry, limit uint64) *Pools {
	return &Pools{reg, limit}
}

func (p *Pools) pool(req *http.Request) (*pool.Pool, error) {
	index, err := strconv.ParseUint(mux.Vars(req)["index"], 10, 64)
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "index"))
	}
	return p.reg.Pool(index)
}

func (p *Pools) handleGetPools(w http.ResponseWriter, _ *http.Request) error {
	pools := p.reg.Pools()
	result := make([]*Pool, 0, len(pools))
	for _, pl := range pools {
		result = append(result, convertPool(pl.Info(), uint64(pl.PositionCount())))
	}
	return utils.WriteJSON(w, result)
}

func (p *Pools) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	pl, err := p.pool(req)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertPool(pl.Info(), uint64(pl.PositionCount())))
}

func (p *Pools) handleGetPositions(w http.ResponseWriter, req *http.Request) error {
	pl, err := p.pool(req)
	if err != nil {
		return err
	}
	query := req.URL.Query()
	var cursor stakepool.Bytes32
	if s := query.Get("cursor"); s != "" {
		if cursor, err = stakepool.ParseBytes32(s); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "cursor"))
		}
	}
	limit, err := utils.ParseLimit(query.Get("limit"), p.limit)
	if err != nil {
		return err
	}
	states, next, err := pl.Positions(cursor, int(limit))
	if err != nil {
		return err
	}
	page := &PositionPage{Positions: make([]*Position, 0, len(states))}
	for _, s := range states {
		page.Positions = append(page.Positions, convertPosition(s))
	}
	if !next.IsZero() {
		page.Next = &next
	}
	return utils.WriteJSON(w, page)
}

func (p *Pools) handleGetPosition(w http.ResponseWriter, req *http.Request) error {
	pl, err := p.pool(req)
	if err != nil {
		return err
	}
	id, err := stakepool.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	pos, err := pl.Position(id)
	if err != nil {
		return err
	}
	states, _, err := pl.Positions(id, 1)
	if err != nil {
		return err
	}
	reward, gas, err := pl.PendingYield(pos)
	if err != nil {
		return err
	}
	result := convertPosition(states[0])
	result.PendingReward = hex256(reward)
	result.PendingGas = hex256(gas)
	return utils.WriteJSON(w, result)
}

func (p *Pools) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /pools").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetPools))
	sub.Path("/{index}").
		Methods(http.MethodGet).
		Name("GET /pools/{index}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetPool))
	sub.Path("/{index}/positions").
		Methods(http.MethodGet).
		Name("GET /pools/{index}/positions").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetPositions))
	sub.Path("/{index}/positions/{id}").
		Methods(http.MethodGet).
		Name("GET /pools/{index}/positions/{id}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetPosition))
}

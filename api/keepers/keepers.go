// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package keepers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/api/utils"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/registry"
	"github.com/vechain/stakepool/stakepool"
)

type Stats struct {
	Attempts     uint64 `json:"attempts"`
	Successes    uint64 `json:"successes"`
	Failures     uint64 `json:"failures"`
	Profit       uint64 `json:"profit"`
	GasUsed      uint64 `json:"gasUsed"`
	LastActiveMs uint64 `json:"lastActiveMs"`
}

type Keeper struct {
	Index         uint64            `json:"index"`
	ID            stakepool.Bytes32 `json:"id"`
	Operator      stakepool.Address `json:"operator"`
	Name          string            `json:"name"`
	AttestationID stakepool.Bytes32 `json:"attestationID"`
	Status        string            `json:"status"`
	PublicKey     hexutil.Bytes     `json:"publicKey"`
	Stats         Stats             `json:"stats"`
}

func convertKeeper(k *keeper.Identity) *Keeper {
	s := k.Stats()
	return &Keeper{
		Index:         k.Index(),
		ID:            k.ID(),
		Operator:      k.Operator(),
		Name:          k.Name(),
		AttestationID: k.AttestationID(),
		Status:        keeper.StatusName(k.Status()),
		PublicKey:     k.PublicKey(),
		Stats:         Stats(s),
	}
}

type Keepers struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Keepers {
	return &Keepers{reg}
}

func (k *Keepers) handleGetKeepers(w http.ResponseWriter, _ *http.Request) error {
	all := k.reg.Keepers()
	result := make([]*Keeper, 0, len(all))
	for _, id := range all {
		result = append(result, convertKeeper(id))
	}
	return utils.WriteJSON(w, result)
}

func (k *Keepers) handleGetKeeper(w http.ResponseWriter, req *http.Request) error {
	id, err := stakepool.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	identity, err := k.reg.Keeper(id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertKeeper(identity))
}

func (k *Keepers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /keepers").
		HandlerFunc(utils.WrapHandlerFunc(k.handleGetKeepers))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("GET /keepers/{id}").
		HandlerFunc(utils.WrapHandlerFunc(k.handleGetKeeper))
}

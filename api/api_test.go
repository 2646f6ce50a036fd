// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/api/fees"
	"github.com/vechain/stakepool/api/keepers"
	"github.com/vechain/stakepool/api/liquidations"
	"github.com/vechain/stakepool/api/pools"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/liquidation"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/metrics"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/registry"
	"github.com/vechain/stakepool/stakepool"
)

var (
	admin = stakepool.BytesToAddress([]byte("admin"))
	alice = stakepool.BytesToAddress([]byte("alice"))
)

type fixture struct {
	srv      *httptest.Server
	reg      *registry.Registry
	position stakepool.Bytes32
	keeperID stakepool.Bytes32
}

func newFixture(t *testing.T) *fixture {
	metrics.InitializePrometheusMetrics()

	v, err := attestation.NewEnclaveVerifier(nil, 4)
	require.NoError(t, err)
	events, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	ac := access.New(admin)
	reg := registry.New(ac, bank.New(), v, events)
	k, _, err := reg.CreateKeeper(alice, "bot", stakepool.Bytes32{})
	require.NoError(t, err)

	p, _, err := reg.CreatePool(admin, pool.Params{Name: "main", ProtocolFeeBps: 100, Keeper: k.ID()})
	require.NoError(t, err)
	var first stakepool.Bytes32
	for i := range 3 {
		pos, err := p.OpenPosition(alice, "m")
		require.NoError(t, err)
		require.NoError(t, p.Stake(pos, uint64(100*(i+1))))
		if i == 0 {
			first = pos.ID()
		}
	}
	_, err = p.DepositRewards(600, stakepool.Address{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, events.AppendLiquidation(ctx, &liquidation.Record{PoolIndex: 0, KeeperID: k.ID(), Nonce: 1, Amount: 1000}))
	require.NoError(t, events.AppendLiquidation(ctx, &liquidation.Record{PoolIndex: 1, KeeperID: k.ID(), Nonce: 2, Amount: 2000}))
	_, err = reg.CollectProtocolFee(ctx, admin, 0, 99)
	require.NoError(t, err)

	srv := httptest.NewServer(New(reg, events, Options{AllowedOrigins: "*", EnableMetrics: true, PageLimit: 2}))
	t.Cleanup(srv.Close)
	return &fixture{srv, reg, first, k.ID()}
}

func (f *fixture) get(t *testing.T, path string, v any) int {
	resp, err := f.srv.Client().Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, v), string(body))
	}
	return resp.StatusCode
}

func TestPools(t *testing.T) {
	f := newFixture(t)

	var all []pools.Pool
	assert.Equal(t, http.StatusOK, f.get(t, "/pools", &all))
	require.Len(t, all, 1)
	assert.Equal(t, "main", all[0].Name)
	assert.Equal(t, uint64(600), all[0].StakeBalance)
	assert.Equal(t, uint64(3), all[0].Positions)
	assert.Equal(t, int64(600), (*big.Int)(all[0].TotalShares).Int64())

	var one pools.Pool
	assert.Equal(t, http.StatusOK, f.get(t, "/pools/0", &one))
	assert.Equal(t, all[0].ID, one.ID)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/pools/7", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/pools/x", nil))
}

func TestPositions(t *testing.T) {
	f := newFixture(t)

	var page pools.PositionPage
	assert.Equal(t, http.StatusOK, f.get(t, "/pools/0/positions", &page))
	require.Len(t, page.Positions, 2)
	require.NotNil(t, page.Next)
	assert.Equal(t, f.position, page.Positions[0].ID)

	var rest pools.PositionPage
	assert.Equal(t, http.StatusOK, f.get(t, "/pools/0/positions?cursor="+page.Next.String(), &rest))
	require.Len(t, rest.Positions, 1)
	assert.Nil(t, rest.Next)
	assert.Equal(t, int64(300), (*big.Int)(rest.Positions[0].Shares).Int64())

	assert.Equal(t, http.StatusNotFound, f.get(t, "/pools/0/positions?cursor="+stakepool.Bytes32{1}.String(), nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/pools/0/positions?limit=-1", nil))

	// 594 net reward over 600 shares, the first position holds 100
	var pos pools.Position
	assert.Equal(t, http.StatusOK, f.get(t, "/pools/0/positions/"+f.position.String(), &pos))
	assert.Equal(t, int64(99), (*big.Int)(pos.PendingReward).Int64())
	assert.Equal(t, int64(0), (*big.Int)(pos.PendingGas).Int64())
}

func TestKeepers(t *testing.T) {
	f := newFixture(t)

	var all []keepers.Keeper
	assert.Equal(t, http.StatusOK, f.get(t, "/keepers", &all))
	require.Len(t, all, 1)

	var k keepers.Keeper
	assert.Equal(t, http.StatusOK, f.get(t, "/keepers/"+f.keeperID.String(), &k))
	assert.Equal(t, "pending", k.Status)
	assert.Equal(t, alice, k.Operator)
	assert.Equal(t, "bot", k.Name)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/keepers/"+stakepool.Bytes32{2}.String(), nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/keepers/zz", nil))
}

func TestRecords(t *testing.T) {
	f := newFixture(t)

	var records []liquidations.Liquidation
	assert.Equal(t, http.StatusOK, f.get(t, "/liquidations", &records))
	assert.Len(t, records, 2)

	assert.Equal(t, http.StatusOK, f.get(t, "/liquidations?pool=1", &records))
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2000), records[0].Amount)

	assert.Equal(t, http.StatusOK, f.get(t, "/liquidations?order=desc&limit=1", &records))
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].Nonce)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/liquidations?order=sideways", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/liquidations?keeper=0x12", nil))

	var collected []fees.FeeCollection
	assert.Equal(t, http.StatusOK, f.get(t, "/fees?pool=0", &collected))
	require.Len(t, collected, 1)
	assert.Equal(t, fees.FeeCollection{PoolIndex: 0, Collector: admin, Amount: 6, TimestampMs: 99}, collected[0])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/pools", nil)

	resp, err := f.srv.Client().Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `stakepool_api_request_count{code="200",method="GET",name="GET /pools"}`)
}

func TestRequestLogger(t *testing.T) {
	h := RequestLoggerHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), log.WithContext("pkg", "api"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pools", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/pools", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

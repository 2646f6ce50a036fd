// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopByDefault(t *testing.T) {
	m := defaultNoopMetrics()
	m.GetOrCreateCountMeter("x").Add(1)
	m.GetOrCreateGaugeVecMeter("y", []string{"l"}).SetWithLabel(1, map[string]string{"l": "a"})
	assert.Nil(t, m.GetOrCreateHandler())
}

func TestPromMeters(t *testing.T) {
	m := newPrometheusMetrics()

	count := m.GetOrCreateCountMeter("count1")
	count.Add(3)
	m.GetOrCreateCountMeter("count1").Add(2)
	assert.Equal(t, 5.0, testutil.ToFloat64(count.(*promCountMeter).counter))

	vec := m.GetOrCreateCountVecMeter("countvec1", []string{"code"})
	vec.AddWithLabel(1, map[string]string{"code": "a"})
	vec.AddWithLabel(4, map[string]string{"code": "b"})
	c := vec.(*promCountVecMeter).counter
	assert.Equal(t, 1.0, testutil.ToFloat64(c.WithLabelValues("a")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.WithLabelValues("b")))

	gauge := m.GetOrCreateGaugeMeter("gauge1")
	gauge.Set(10)
	gauge.Add(-3)
	assert.Equal(t, 7.0, testutil.ToFloat64(gauge.(*promGaugeMeter).gauge))

	gv := m.GetOrCreateGaugeVecMeter("gaugevec1", []string{"pool"})
	gv.SetWithLabel(9, map[string]string{"pool": "0"})
	gv.AddWithLabel(1, map[string]string{"pool": "0"})
	assert.Equal(t, 10.0, testutil.ToFloat64(gv.(*promGaugeVecMeter).gauge.WithLabelValues("0")))

	m.GetOrCreateHistogramMeter("hist1", BucketAmounts).Observe(5000)
	m.GetOrCreateHistogramVecMeter("histvec1", []string{"path"}, BucketHTTPReqs).
		ObserveWithLabels(12, map[string]string{"path": "pools"})

	srv := httptest.NewServer(m.GetOrCreateHandler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "stakepool_count1 5")
	assert.Contains(t, string(body), "stakepool_hist1_count 1")
	assert.Contains(t, string(body), `stakepool_histvec1_count{path="pools"} 1`)
}

func TestLazyLoad(t *testing.T) {
	calls := 0
	f := LazyLoad(func() int { calls++; return calls })
	assert.Equal(t, 1, f())
	assert.Equal(t, 1, f())
}

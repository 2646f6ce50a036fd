// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/stakepool/api/fees"
	"github.com/vechain/stakepool/api/keepers"
	"github.com/vechain/stakepool/api/liquidations"
	"github.com/vechain/stakepool/api/pools"
	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/metrics"
	"github.com/vechain/stakepool/registry"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	EnableMetrics   bool
	EnableReqLogger bool
	PageLimit       uint64
}

// New return api router
func New(reg *registry.Registry, events *eventdb.EventDB, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}
	limit := opts.PageLimit
	if limit == 0 {
		limit = 100
	}

	router := mux.NewRouter()

	pools.New(reg, limit).
		Mount(router, "/pools")
	keepers.New(reg).
		Mount(router, "/keepers")
	liquidations.New(events, limit).
		Mount(router, "/liquidations")
	fees.New(events, limit).
		Mount(router, "/fees")

	if opts.EnableMetrics {
		if h := metrics.HTTPHandler(); h != nil {
			router.Path("/metrics").Methods(http.MethodGet).Handler(h)
		}
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}
	return handler.ServeHTTP
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	logger.Error("handler panic", "err", fmt.Sprint(v...))
}

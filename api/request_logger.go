// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"time"

	"github.com/pborman/uuid"

	"github.com/vechain/stakepool/log"
)

const requestIDHeader = "X-Request-Id"

// RequestLoggerHandler logs every request after it is served, tagged with an id that is
// also returned in the X-Request-Id header. The API is read only, so bodies are not logged.
func RequestLoggerHandler(handler http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		handler.ServeHTTP(w, r)
		logger.Info("API Request",
			"id", id,
			"URI", r.URL.String(),
			"Method", r.Method,
			"elapsed", time.Since(start),
		)
	})
}

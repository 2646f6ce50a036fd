// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vechain/stakepool/eventdb"
	"github.com/vechain/stakepool/stakepool"
)

// ParseUint parses s, returning def when empty.
func ParseUint(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// ParseLimit parses a page size, capped at maxLimit; zero or absent means maxLimit.
func ParseLimit(s string, maxLimit uint64) (uint64, error) {
	limit, err := ParseUint(s, maxLimit)
	if err != nil {
		return 0, BadRequest(errors.WithMessage(err, "limit"))
	}
	if limit == 0 || limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

// ParseFilter reads a record filter from the query parameters pool, keeper, from, to,
// order, offset and limit.
func ParseFilter(q url.Values, maxLimit uint64) (*eventdb.Filter, error) {
	filter := &eventdb.Filter{Order: eventdb.ASC}

	if s := q.Get("pool"); s != "" {
		index, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, BadRequest(errors.WithMessage(err, "pool"))
		}
		filter.PoolIndex = &index
	}
	if s := q.Get("keeper"); s != "" {
		id, err := stakepool.ParseBytes32(s)
		if err != nil {
			return nil, BadRequest(errors.WithMessage(err, "keeper"))
		}
		filter.KeeperID = &id
	}
	if q.Has("from") || q.Has("to") {
		from, err := ParseUint(q.Get("from"), 0)
		if err != nil {
			return nil, BadRequest(errors.WithMessage(err, "from"))
		}
		to, err := ParseUint(q.Get("to"), 0)
		if err != nil {
			return nil, BadRequest(errors.WithMessage(err, "to"))
		}
		filter.Range = &eventdb.Range{From: from, To: to}
	}
	switch order := eventdb.OrderType(q.Get("order")); order {
	case "", eventdb.ASC:
	case eventdb.DESC:
		filter.Order = eventdb.DESC
	default:
		return nil, BadRequest(errors.Errorf("order: unsupported value %q", order))
	}
	offset, err := ParseUint(q.Get("offset"), 0)
	if err != nil {
		return nil, BadRequest(errors.WithMessage(err, "offset"))
	}
	limit, err := ParseLimit(q.Get("limit"), maxLimit)
	if err != nil {
		return nil, err
	}
	filter.Options = &eventdb.Options{Offset: offset, Limit: limit}
	return filter, nil
}

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bank records coins that left a pool towards a third party, such as keeper fees.
package bank

import (
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/vechain/stakepool/stakepool"
)

// Asset identifies which of the two pool assets a credit is denominated in.
type Asset uint8

const (
	AssetStake Asset = iota
	AssetReward
)

func (a Asset) String() string {
	switch a {
	case AssetStake:
		return "stake"
	case AssetReward:
		return "reward"
	}
	return fmt.Sprintf("asset(%d)", uint8(a))
}

// Payee receives coins paid out by pools and the liquidation engine.
type Payee interface {
	Credit(to stakepool.Address, asset Asset, amount uint64)
}

type account struct {
	addr  stakepool.Address
	asset Asset
}

// Bank is an in-memory Payee which accumulates per account balances.
type Bank struct {
	mu       sync.RWMutex
	balances map[account]*uint256.Int
}

var _ Payee = (*Bank)(nil)

func New() *Bank {
	return &Bank{balances: make(map[account]*uint256.Int)}
}

// Credit adds amount to the account. Zero credits are dropped.
func (b *Bank) Credit(to stakepool.Address, asset Asset, amount uint64) {
	if amount == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := account{to, asset}
	bal, ok := b.balances[key]
	if !ok {
		bal = new(uint256.Int)
		b.balances[key] = bal
	}
	bal.Add(bal, uint256.NewInt(amount))
}

// BalanceOf returns a copy of the account balance.
func (b *Bank) BalanceOf(addr stakepool.Address, asset Asset) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if bal, ok := b.balances[account{addr, asset}]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// Entry is one account balance.
type Entry struct {
	Address stakepool.Address
	Asset   Asset
	Balance *uint256.Int
}

// Entries returns every non-zero balance ordered by address then asset.
func (b *Bank) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := make([]Entry, 0, len(b.balances))
	for key, bal := range b.balances {
		entries = append(entries, Entry{key.addr, key.asset, new(uint256.Int).Set(bal)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Address != entries[j].Address {
			return entries[i].Address.String() < entries[j].Address.String()
		}
		return entries[i].Asset < entries[j].Asset
	})
	return entries
}

// Restore replaces all balances.
func (b *Bank) Restore(entries []Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances = make(map[account]*uint256.Int, len(entries))
	for _, e := range entries {
		b.balances[account{e.Address, e.Asset}] = new(uint256.Int).Set(e.Balance)
	}
}

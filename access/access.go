// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package access implements role checks and the protocol wide pause switch.
package access

import (
	"fmt"
	"sync"

	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool"
)

var logger = log.WithContext("pkg", "access")

type Role uint8

const (
	RoleOperator Role = iota + 1
	RoleAdmin
	RoleGuardian
)

func (r Role) String() string {
	switch r {
	case RoleOperator:
		return "operator"
	case RoleAdmin:
		return "admin"
	case RoleGuardian:
		return "guardian"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole parses the name used in configuration files.
func ParseRole(s string) (Role, error) {
	switch s {
	case "operator":
		return RoleOperator, nil
	case "admin":
		return RoleAdmin, nil
	case "guardian":
		return RoleGuardian, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Controller is what the accounting engine needs from the permission layer.
type Controller interface {
	RequireRole(actor stakepool.Address, role Role) error
	AssertNotPaused() error
}

// Registry is an in-memory Controller.
type Registry struct {
	mu     sync.RWMutex
	roles  map[Role]map[stakepool.Address]struct{}
	paused bool
}

var _ Controller = (*Registry)(nil)

// New creates a registry where admin holds every role.
func New(admin stakepool.Address) *Registry {
	r := &Registry{roles: make(map[Role]map[stakepool.Address]struct{})}
	for _, role := range []Role{RoleOperator, RoleAdmin, RoleGuardian} {
		r.grant(admin, role)
	}
	return r
}

func (r *Registry) grant(addr stakepool.Address, role Role) {
	members, ok := r.roles[role]
	if !ok {
		members = make(map[stakepool.Address]struct{})
		r.roles[role] = members
	}
	members[addr] = struct{}{}
}

// HasRole reports whether addr holds role.
func (r *Registry) HasRole(addr stakepool.Address, role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roles[role][addr]
	return ok
}

func (r *Registry) RequireRole(actor stakepool.Address, role Role) error {
	if !r.HasRole(actor, role) {
		return reverts.Newf(reverts.CodeUnauthorized, "%v lacks %v role", actor, role)
	}
	return nil
}

func (r *Registry) AssertNotPaused() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.paused {
		return reverts.New(reverts.CodePaused, "protocol is paused")
	}
	return nil
}

// Grant gives grantee a role; actor must be an admin.
func (r *Registry) Grant(actor, grantee stakepool.Address, role Role) error {
	if err := r.RequireRole(actor, RoleAdmin); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grant(grantee, role)
	logger.Info("role granted", "role", role, "grantee", grantee, "by", actor)
	return nil
}

// Revoke removes a role; actor must be an admin.
func (r *Registry) Revoke(actor, grantee stakepool.Address, role Role) error {
	if err := r.RequireRole(actor, RoleAdmin); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roles[role], grantee)
	logger.Info("role revoked", "role", role, "grantee", grantee, "by", actor)
	return nil
}

// Pause stops every guarded operation; guardians may pause.
func (r *Registry) Pause(actor stakepool.Address) error {
	if err := r.RequireRole(actor, RoleGuardian); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
	logger.Warn("protocol paused", "by", actor)
	return nil
}

// Unpause resumes operations; only admins may unpause.
func (r *Registry) Unpause(actor stakepool.Address) error {
	if err := r.RequireRole(actor, RoleAdmin); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	logger.Info("protocol unpaused", "by", actor)
	return nil
}

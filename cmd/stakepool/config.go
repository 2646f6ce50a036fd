// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/stakepool/access"
	"github.com/vechain/stakepool/attestation"
	"github.com/vechain/stakepool/liquidation"
	"github.com/vechain/stakepool/pool"
	"github.com/vechain/stakepool/registry"
	"github.com/vechain/stakepool/stakepool"
)

type RoleConfig struct {
	Address stakepool.Address `yaml:"address"`
	Role    string            `yaml:"role"`
}

type MeasurementConfig struct {
	Index uint8  `yaml:"index"`
	Value string `yaml:"value"` // hex
}

type KeeperConfig struct {
	Operator      stakepool.Address `yaml:"operator"`
	Name          string            `yaml:"name"`
	AttestationID string            `yaml:"attestation-id"` // hex, optional
	Document      string            `yaml:"document"`       // attestation document file, optional
}

type PoolConfig struct {
	Name           string `yaml:"name"`
	ProtocolFeeBps uint64 `yaml:"protocol-fee-bps"`
	KeeperFeeBps   uint64 `yaml:"keeper-fee-bps"`
	Keeper         *int   `yaml:"keeper"` // index into keepers
}

// Config describes one deployment. Roles, roots and liquidation constants apply on
// every start; keepers and pools only seed an empty data dir.
type Config struct {
	Admin             stakepool.Address   `yaml:"admin"`
	Roles             []RoleConfig        `yaml:"roles"`
	AttestationRoots  []stakepool.Address `yaml:"attestation-roots"`
	Measurements      []MeasurementConfig `yaml:"measurements"`
	VerifierCacheSize int                 `yaml:"verifier-cache-size"`
	Liquidation       liquidation.Config  `yaml:"liquidation"`
	Keepers           []KeeperConfig      `yaml:"keepers"`
	Pools             []PoolConfig        `yaml:"pools"`
}

func defaultConfig() *Config {
	return &Config{
		VerifierCacheSize: 1024,
		Liquidation:       liquidation.DefaultConfig(),
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %v", path)
	}
	if err := cfg.Liquidation.Validate(); err != nil {
		return nil, errors.WithMessage(err, "liquidation")
	}
	for i, p := range cfg.Pools {
		if p.Keeper != nil && (*p.Keeper < 0 || *p.Keeper >= len(cfg.Keepers)) {
			return nil, errors.Errorf("pool %d: keeper %d not configured", i, *p.Keeper)
		}
	}
	return cfg, nil
}

func (c *Config) measurements() (attestation.Measurements, error) {
	m := make(attestation.Measurements, 0, len(c.Measurements))
	for _, pcr := range c.Measurements {
		v, err := hexutil.Decode(pcr.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "measurement %d", pcr.Index)
		}
		m = append(m, attestation.PCR{Index: pcr.Index, Value: v})
	}
	return m, nil
}

func (c *Config) newAccess() (*access.Registry, error) {
	ac := access.New(c.Admin)
	for _, r := range c.Roles {
		role, err := access.ParseRole(r.Role)
		if err != nil {
			return nil, err
		}
		if err := ac.Grant(c.Admin, r.Address, role); err != nil {
			return nil, err
		}
	}
	return ac, nil
}

func (c *Config) newVerifier() (*attestation.EnclaveVerifier, error) {
	return attestation.NewEnclaveVerifier(c.AttestationRoots, c.VerifierCacheSize)
}

// bootstrap seeds an empty registry with the configured keepers and pools.
func bootstrap(reg *registry.Registry, cfg *Config) error {
	expected, err := cfg.measurements()
	if err != nil {
		return err
	}
	ids := make([]stakepool.Bytes32, 0, len(cfg.Keepers))
	for i, kc := range cfg.Keepers {
		var attestID stakepool.Bytes32
		if kc.AttestationID != "" {
			if attestID, err = stakepool.ParseBytes32(kc.AttestationID); err != nil {
				return errors.Wrapf(err, "keeper %d attestation id", i)
			}
		}
		k, c, err := reg.CreateKeeper(kc.Operator, kc.Name, attestID)
		if err != nil {
			return err
		}
		if kc.Document != "" {
			doc, err := os.ReadFile(kc.Document)
			if err != nil {
				return errors.Wrapf(err, "keeper %d document", i)
			}
			if err := k.RegisterAttestation(c, reg.Verifier(), doc, expected); err != nil {
				return errors.WithMessagef(err, "keeper %d", i)
			}
		}
		ids = append(ids, k.ID())
	}
	for i, pc := range cfg.Pools {
		params := pool.Params{Name: pc.Name, ProtocolFeeBps: pc.ProtocolFeeBps, KeeperFeeBps: pc.KeeperFeeBps}
		if pc.Keeper != nil {
			params.Keeper = ids[*pc.Keeper]
		}
		if _, _, err := reg.CreatePool(cfg.Admin, params); err != nil {
			return errors.WithMessagef(err, "pool %d", i)
		}
	}
	return nil
}

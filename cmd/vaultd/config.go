package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/internal/logging"
	"github.com/lifehaverdev/credit-vault-sub001/journal/storeregistry"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
)

type fileConfig struct {
	Listen         string             `toml:"listen"`
	Hub            string             `toml:"hub"`
	Governance     string             `toml:"governance"`
	Beacon         string             `toml:"beacon"`
	ProxyTemplate  string             `toml:"proxy_template"`
	Implementation implementationFile `toml:"implementation"`
	Marshals       []string           `toml:"marshals"`
	Frozen         bool               `toml:"frozen"`
	LogLevel       string             `toml:"log_level"`
	Journal        journalFile        `toml:"journal"`
	Genesis        []genesisFile      `toml:"genesis"`
}

type implementationFile struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	CodeHash string `toml:"code_hash"`
}

type journalFile struct {
	// Chain is the base name; each boot writes to <chain>.<boot time>.
	Chain    string                        `toml:"chain"`
	Backends []storeregistry.BackendConfig `toml:"backends"`
}

type genesisFile struct {
	Asset  string `toml:"asset"`
	Holder string `toml:"holder"`
	Amount string `toml:"amount"`
}

type genesisBalance struct {
	Asset  address.Address
	Holder address.Address
	Amount *uint256.Int
}

type serviceConfig struct {
	Listen         string
	Hub            address.Address
	Governance     address.Address
	Beacon         address.Address
	ProxyTemplate  []byte
	Implementation ledger.Implementation
	Marshals       []address.Address
	Frozen         bool
	LogLevel       zerolog.Level
	LogLevelSet    bool
	Chain          string
	Journal        storeregistry.Config
	Genesis        []genesisBalance
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		Listen:         "127.0.0.1:7788",
		Implementation: ledger.Implementation{Name: "CreditVault", Version: "1"},
		Chain:          "vault",
		Journal: storeregistry.Config{
			Backends: []storeregistry.BackendConfig{{Name: "memory"}},
		},
	}
}

func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load vaultd config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return serviceConfig{}, fmt.Errorf("load vaultd config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	for _, f := range []struct {
		key string
		src string
		dst *address.Address
	}{
		{"hub", raw.Hub, &cfg.Hub},
		{"governance", raw.Governance, &cfg.Governance},
		{"beacon", raw.Beacon, &cfg.Beacon},
	} {
		if !meta.IsDefined(f.key) {
			continue
		}
		a, err := address.ParseAddress(strings.TrimSpace(f.src))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse %s: %w", f.key, err)
		}
		*f.dst = a
	}
	if meta.IsDefined("proxy_template") {
		b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw.ProxyTemplate), "0x"))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse proxy_template: %w", err)
		}
		cfg.ProxyTemplate = b
	}
	if meta.IsDefined("implementation", "name") {
		cfg.Implementation.Name = strings.TrimSpace(raw.Implementation.Name)
	}
	if meta.IsDefined("implementation", "version") {
		cfg.Implementation.Version = strings.TrimSpace(raw.Implementation.Version)
	}
	if meta.IsDefined("implementation", "code_hash") {
		h, err := address.ParseHash(strings.TrimSpace(raw.Implementation.CodeHash))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse implementation.code_hash: %w", err)
		}
		cfg.Implementation.CodeHash = h
	}
	if meta.IsDefined("marshals") {
		cfg.Marshals = nil
		for _, s := range raw.Marshals {
			a, err := address.ParseAddress(strings.TrimSpace(s))
			if err != nil {
				return serviceConfig{}, fmt.Errorf("parse marshals: %w", err)
			}
			cfg.Marshals = append(cfg.Marshals, a)
		}
	}
	if meta.IsDefined("frozen") {
		cfg.Frozen = raw.Frozen
	}
	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return serviceConfig{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.LogLevel, cfg.LogLevelSet = lvl, true
	}
	if meta.IsDefined("journal", "chain") {
		cfg.Chain = strings.TrimSpace(raw.Journal.Chain)
	}
	if meta.IsDefined("journal", "backends") {
		cfg.Journal.Backends = raw.Journal.Backends
	}
	for i, g := range raw.Genesis {
		bal, err := parseGenesis(g)
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse genesis[%d]: %w", i, err)
		}
		cfg.Genesis = append(cfg.Genesis, bal)
	}

	return cfg, cfg.validate()
}

func parseGenesis(g genesisFile) (genesisBalance, error) {
	var (
		out genesisBalance
		err error
	)
	if out.Asset, err = address.ParseAddress(strings.TrimSpace(g.Asset)); err != nil {
		return out, fmt.Errorf("asset: %w", err)
	}
	if out.Holder, err = address.ParseAddress(strings.TrimSpace(g.Holder)); err != nil {
		return out, fmt.Errorf("holder: %w", err)
	}
	if out.Amount, err = uint256.FromDecimal(strings.TrimSpace(g.Amount)); err != nil {
		return out, fmt.Errorf("amount: %w", err)
	}
	return out, nil
}

func (c serviceConfig) validate() error {
	switch {
	case c.Listen == "":
		return errors.New("listen address is required")
	case c.Hub.IsZero():
		return errors.New("hub address is required")
	case c.Governance.IsZero():
		return errors.New("governance address is required")
	case c.Beacon.IsZero():
		return errors.New("beacon address is required")
	case len(c.ProxyTemplate) == 0:
		return errors.New("proxy_template is required")
	case c.Chain == "":
		return errors.New("journal.chain is required")
	}
	return c.Journal.Validate()
}

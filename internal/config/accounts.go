package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Account is one entry in the registry file: where the account's fills
// and balance snapshots live, and which snapshot-store key holds its live
// state. Monitored accounts are included in the drawdown monitor's merged
// view.
type Account struct {
	Name         string `yaml:"name"`
	FillsTable   string `yaml:"fills_table"`
	BalanceTable string `yaml:"balance_table"`
	RedisKey     string `yaml:"redis_key"`
	Monitored    bool   `yaml:"monitored"`
}

type Registry struct {
	Accounts []Account `yaml:"accounts"`
}

// LoadRegistry reads and validates the accounts file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read account registry: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse account registry: %w", err)
	}
	if len(reg.Accounts) == 0 {
		return nil, fmt.Errorf("account registry %s has no accounts", path)
	}

	seen := make(map[string]bool, len(reg.Accounts))
	for i, a := range reg.Accounts {
		if a.Name == "" {
			return nil, fmt.Errorf("account %d has no name", i)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate account name %q", a.Name)
		}
		seen[a.Name] = true
		if a.FillsTable == "" {
			return nil, fmt.Errorf("account %q has no fills_table", a.Name)
		}
		if a.BalanceTable == "" {
			return nil, fmt.Errorf("account %q has no balance_table", a.Name)
		}
	}
	return &reg, nil
}

// Lookup returns the named account, or nil when unknown.
func (r *Registry) Lookup(name string) *Account {
	for i := range r.Accounts {
		if r.Accounts[i].Name == name {
			return &r.Accounts[i]
		}
	}
	return nil
}

// Monitored returns the accounts flagged for the drawdown monitor.
func (r *Registry) Monitored() []Account {
	var out []Account
	for _, a := range r.Accounts {
		if a.Monitored {
			out = append(out, a)
		}
	}
	return out
}

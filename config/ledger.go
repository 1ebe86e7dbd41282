package config

import "fmt"

// LedgerConfig defines where daily energy records are kept.
type LedgerConfig struct {
	// Backend is "sqlite", "memory" or "none". "memory" keeps the records
	// of the current process only, which makes it a sink for dry runs and
	// tests; use "sqlite" for a ledger that survives between runs.
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *LedgerConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" && c.Backend == "sqlite" {
		c.Path = "ledger.db"
	}
}

// Validate checks mandatory fields.
func (c LedgerConfig) Validate() error {
	switch c.Backend {
	case "none", "memory":
		return nil
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("path is required")
		}
		return nil
	}
	return fmt.Errorf("unknown backend %s", c.Backend)
}

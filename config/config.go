package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/vbattery/core/metrics"
	"github.com/kilianp07/vbattery/core/period"
	"github.com/kilianp07/vbattery/infra/mqtt"
)

type Config struct {
	HomeAssistant HomeAssistantConfig `json:"homeassistant"`
	Log           LogConfig           `json:"log"`
	RunLog        RunLogConfig        `json:"runlog"`
	Ledger        LedgerConfig        `json:"ledger"`
	Metrics       metrics.Config      `json:"metrics"`
	MQTT          mqtt.Config         `json:"mqtt"`
	Sentry        SentryConfig        `json:"sentry"`
}

// Load reads the configuration file at path, if present, then applies
// environment overrides. K_SECTION__KEY variables override any key; HA_URL
// and HA_TOKEN are honoured for the Home Assistant connection.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadLocal is Load without the Home Assistant connection checks, for
// commands that only read the local stores.
func LoadLocal(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, remote bool) (*Config, error) {
	k := koanf.New(".")
	if err := loadFile(k, path); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("HA_", ".", func(s string) string {
		switch s {
		case "HA_URL":
			return "homeassistant.url"
		case "HA_TOKEN":
			return "homeassistant.token"
		}
		return ""
	}), nil); err != nil {
		return nil, err
	}
	// The provider splits on "__", so K_LEDGER__BACKEND nests as ledger.backend.
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "k_")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HomeAssistant.SetDefaults()
	cfg.Log.SetDefaults()
	cfg.RunLog.SetDefaults()
	cfg.Ledger.SetDefaults()
	cfg.MQTT.SetDefaults()
	if remote {
		if err := cfg.HomeAssistant.Validate(); err != nil {
			return nil, fmt.Errorf("homeassistant: %w", err)
		}
	} else if _, err := period.ParseOffset(cfg.HomeAssistant.UTCOffset); err != nil {
		return nil, fmt.Errorf("homeassistant: %w", err)
	}
	if err := cfg.Log.Validate(); err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	if err := cfg.RunLog.Validate(); err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	return &cfg, nil
}

// loadFile loads path into k. A missing file is not an error so the tool can
// run from the environment alone.
func loadFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config format: %s", ext)
	}
	return k.Load(file.Provider(path), parser)
}

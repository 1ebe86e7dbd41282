package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/vbattery/core/period"
)

// SensorConfig identifies one long-term statistic.
type SensorConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SensorsConfig lists the five statistics a run reads or writes.
type SensorsConfig struct {
	Stock       SensorConfig `json:"stock"`
	Discharge   SensorConfig `json:"discharge"`
	GridDraw    SensorConfig `json:"grid_draw"`
	Injection   SensorConfig `json:"injection"`
	Consumption SensorConfig `json:"consumption"`
}

// HomeAssistantConfig defines the connection to the statistics store.
type HomeAssistantConfig struct {
	URL   string `json:"url"`
	Token string `json:"token"`
	// TokenURL, ClientID and ClientSecret select OAuth2 client credentials
	// instead of a long-lived token.
	TokenURL       string        `json:"token_url"`
	ClientID       string        `json:"client_id"`
	ClientSecret   string        `json:"client_secret"`
	TimeoutSeconds int           `json:"timeout_seconds"`
	UTCOffset      string        `json:"utc_offset"`
	StockReadScale float64       `json:"stock_read_scale"`
	Source         string        `json:"source"`
	Sensors        SensorsConfig `json:"sensors"`
}

func setSensor(s *SensorConfig, id, name string) {
	if s.ID == "" {
		s.ID = id
	}
	if s.Name == "" {
		s.Name = name
	}
}

// SetDefaults applies the historical sensor names and offsets.
func (c *HomeAssistantConfig) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.UTCOffset == "" {
		c.UTCOffset = "+03:00"
	}
	if c.StockReadScale == 0 {
		c.StockReadScale = 1000
	}
	if c.Source == "" {
		c.Source = "recorder"
	}
	setSensor(&c.Sensors.Stock, "sensor.urbansolar_battery_stock", "Urbansolar Battery Stock")
	setSensor(&c.Sensors.Discharge, "sensor.urbansolar_battery_out", "Urbansolar Battery Out")
	setSensor(&c.Sensors.GridDraw, "sensor.urbansolar_enedis_out", "Urbansolar Enedis Out")
	setSensor(&c.Sensors.Injection, "sensor.linky_hourly_injection", "Linky Hourly Injection")
	setSensor(&c.Sensors.Consumption, "sensor.linky_hourly_consumption", "Linky Hourly Consumption")
}

// Validate checks mandatory fields.
func (c HomeAssistantConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Token == "" && c.TokenURL == "" {
		return fmt.Errorf("token is required")
	}
	if _, err := period.ParseOffset(c.UTCOffset); err != nil {
		return err
	}
	if c.StockReadScale <= 0 {
		return fmt.Errorf("stock_read_scale must be positive")
	}
	return nil
}

// Location returns the fixed zone timestamps are expressed in.
func (c HomeAssistantConfig) Location() *time.Location {
	loc, err := period.ParseOffset(c.UTCOffset)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Timeout returns the HTTP timeout.
func (c HomeAssistantConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

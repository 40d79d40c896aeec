package predictor

import (
	"encoding/json"
	"fmt"
	"os"
)

// MaxTableBits bounds the table index width. 2^24 rows of a 65-wide
// perceptron is already ~1GB per table.
const MaxTableBits = 24

// Config holds the construction-time parameters of a perceptron predictor.
type Config struct {
	// LongHistory is the number of outcomes feeding the long-history path.
	// Default: 48.
	LongHistory int `json:"long_history"`

	// ShortHistory is the number of outcomes feeding the short-history path.
	// Default: 12.
	ShortHistory int `json:"short_history"`

	// TableBits is log2 of the number of rows in each weight table.
	// Default: 10 (1024 rows).
	TableBits int `json:"table_bits"`

	// Threshold is the confidence margin. A correct prediction whose
	// combined score magnitude is below Threshold still trains.
	// Default: 90.
	Threshold int `json:"threshold"`
}

// DefaultConfig returns the 48/12 calibration.
func DefaultConfig() Config {
	return Config{
		LongHistory:  48,
		ShortHistory: 12,
		TableBits:    10,
		Threshold:    90,
	}
}

// LongHistoryConfig returns the 64/8 calibration with the higher
// confidence threshold.
func LongHistoryConfig() Config {
	return Config{
		LongHistory:  64,
		ShortHistory: 8,
		TableBits:    10,
		Threshold:    137,
	}
}

// ConfigByName looks up a named calibration ("default" or "long").
func ConfigByName(name string) (Config, error) {
	switch name {
	case "", "default":
		return DefaultConfig(), nil
	case "long":
		return LongHistoryConfig(), nil
	default:
		return Config{}, fmt.Errorf("unknown predictor variant %q", name)
	}
}

// TableSize returns the number of rows in each weight table.
func (c Config) TableSize() int {
	return 1 << c.TableBits
}

// LoadConfig loads a Config from a JSON file. Fields absent from the file
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read predictor config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse predictor config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid predictor config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize predictor config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write predictor config file: %w", err)
	}

	return nil
}

// Validate checks that every parameter is in range.
func (c Config) Validate() error {
	if c.LongHistory <= 0 {
		return fmt.Errorf("long_history must be > 0")
	}
	if c.ShortHistory <= 0 {
		return fmt.Errorf("short_history must be > 0")
	}
	if c.TableBits <= 0 || c.TableBits > MaxTableBits {
		return fmt.Errorf("table_bits must be in [1, %d]", MaxTableBits)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be >= 0")
	}
	return nil
}

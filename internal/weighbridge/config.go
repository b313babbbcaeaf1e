package weighbridge

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"weighbridge-station/internal/core"
)

// Settings keys understood by ConfigFromSettings. All values are text at
// rest in the settings store.
const (
	KeyPortName                 = "PortName"
	KeyBaudRate                 = "BaudRate"
	KeyRegexString              = "RegexString"
	KeyStabilityEnabled         = "StabilityEnabled"
	KeyStableTime               = "StableTime"
	KeyStabilityRegex           = "StabilityRegex"
	KeyUseZeroStringDetection   = "UseZeroStringDetection"
	KeyZeroString               = "ZeroString"
	KeyZeroTolerance            = "ZeroTolerance"
	KeyRegulatoryZeroTolerance  = "RegulatoryZeroTolerance"
	KeyRequireManualZeroConfirm = "RequireManualZeroConfirmation"
	KeyBypassZeroRequirement    = "BypassZeroRequirement"
)

// Config is one immutable snapshot of the link configuration. The manager
// swaps whole snapshots under its lock; nothing mutates a Config in place.
type Config struct {
	PortName string
	BaudRate int
	DataBits int
	Parity   string // "none", "odd", "even"
	StopBits int

	WeightPattern    string
	StabilityEnabled bool
	StableTime       time.Duration
	// StabilityPattern, when non-empty, decides stability by matching the
	// raw line instead of the numeric window.
	StabilityPattern string

	UseZeroString            bool
	ZeroString               string
	ZeroTolerance            decimal.Decimal
	RegulatoryZeroTolerance  decimal.Decimal
	RequireManualZeroConfirm bool
	BypassZero               bool
}

// DefaultConfig is the built-in fallback used when the settings store is
// empty or unreadable.
func DefaultConfig() Config {
	return Config{
		PortName:                "/dev/ttyUSB0",
		BaudRate:                9600,
		DataBits:                8,
		Parity:                  "none",
		StopBits:                1,
		WeightPattern:           core.DefaultWeightPattern,
		StabilityEnabled:        true,
		StableTime:              3 * time.Second,
		ZeroTolerance:           decimal.Zero,
		RegulatoryZeroTolerance: decimal.Zero,
	}
}

// ConfigFromSettings builds a Config from store values, starting from the
// defaults. Malformed numerics and booleans fall back to the default for
// that field rather than failing the load; a station must come up with a
// working (if generic) configuration no matter what is in the store.
func ConfigFromSettings(values map[string]string) Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(values[KeyPortName]); v != "" {
		cfg.PortName = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(values[KeyBaudRate])); err == nil && v > 0 {
		cfg.BaudRate = v
	}
	if v := values[KeyRegexString]; strings.TrimSpace(v) != "" {
		cfg.WeightPattern = v
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(values[KeyStabilityEnabled])); err == nil {
		cfg.StabilityEnabled = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(values[KeyStableTime]), 64); err == nil && v > 0 {
		cfg.StableTime = time.Duration(v * float64(time.Second))
	}
	cfg.StabilityPattern = strings.TrimSpace(values[KeyStabilityRegex])
	if v, err := strconv.ParseBool(strings.TrimSpace(values[KeyUseZeroStringDetection])); err == nil {
		cfg.UseZeroString = v
	}
	cfg.ZeroString = strings.TrimSpace(values[KeyZeroString])
	if v, err := decimal.NewFromString(strings.TrimSpace(values[KeyZeroTolerance])); err == nil {
		cfg.ZeroTolerance = v
	}
	if v, err := decimal.NewFromString(strings.TrimSpace(values[KeyRegulatoryZeroTolerance])); err == nil {
		cfg.RegulatoryZeroTolerance = v
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(values[KeyRequireManualZeroConfirm])); err == nil {
		cfg.RequireManualZeroConfirm = v
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(values[KeyBypassZeroRequirement])); err == nil {
		cfg.BypassZero = v
	}

	return cfg
}

// Validate rejects a snapshot that could not drive a link: missing port,
// non-positive baud rate, or patterns that do not compile. Called before a
// snapshot is ever applied, so the manager never holds a broken config.
func (c Config) Validate() error {
	if strings.TrimSpace(c.PortName) == "" {
		return errors.New("port name is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.BaudRate)
	}
	if strings.TrimSpace(c.WeightPattern) == "" {
		return errors.New("weight pattern is required")
	}
	if _, err := regexp.Compile(c.WeightPattern); err != nil {
		return fmt.Errorf("invalid weight pattern: %w", err)
	}
	if c.StabilityPattern != "" {
		if _, err := regexp.Compile(c.StabilityPattern); err != nil {
			return fmt.Errorf("invalid stability pattern: %w", err)
		}
	}
	return nil
}

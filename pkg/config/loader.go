package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

// LoadStrategy reads and validates a strategy file.
func LoadStrategy(path string) (*StrategyConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, bterrors.Wrap(err, bterrors.KindConfig, component, "load", "cannot read "+path)
	}
	return ParseStrategy(raw)
}

// ParseStrategy decodes YAML strictly, rejecting unknown keys, then validates.
func ParseStrategy(raw []byte) (*StrategyConfig, error) {
	var cfg StrategyConfig
	if err := decodeStrict(raw, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSweep reads and validates a sweep file.
func LoadSweep(path string) (*SweepConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, bterrors.Wrap(err, bterrors.KindConfig, component, "load", "cannot read "+path)
	}
	return ParseSweep(raw)
}

// ParseSweep decodes and validates a sweep definition.
func ParseSweep(raw []byte) (*SweepConfig, error) {
	var cfg SweepConfig
	if err := decodeStrict(raw, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeStrict(raw []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return bterrors.NewConfigError(component, "parse", "empty document")
		}
		return bterrors.Wrap(err, bterrors.KindConfig, component, "parse", "invalid yaml")
	}
	return nil
}

// Marshal renders a strategy back to YAML, used to store the configuration
// next to a run's results.
func (c *StrategyConfig) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, bterrors.Wrap(err, bterrors.KindConfig, component, "marshal", "cannot encode strategy")
	}
	if err := enc.Close(); err != nil {
		return nil, bterrors.Wrap(err, bterrors.KindConfig, component, "marshal", "cannot encode strategy")
	}
	return buf.Bytes(), nil
}

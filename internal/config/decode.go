package config

import (
	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	In       string `validate:"required"`
	Out      string `validate:"required"`
	Errors   string `validate:"required"`
	LogLevel string
	// Contracts pins addresses to a contract kind, e.g. 0xabc=pair_factory.
	// Unpinned logs are matched by signature and topic count.
	Contracts map[string]string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":       "./data/typed_events.jsonl",
		"errors":    "./data/decode_errors.jsonl",
		"log-level": "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		In:        v.GetString("in"),
		Out:       v.GetString("out"),
		Errors:    v.GetString("errors"),
		LogLevel:  v.GetString("log-level"),
		Contracts: getStringMap(v, "contracts"),
	}
	if err := check(cfg); err != nil {
		return DecodeConfig{}, err
	}
	return cfg, nil
}

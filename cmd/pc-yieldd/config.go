// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"encoding/hex"
	"time"

	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/protocol"
	"github.com/spf13/viper"
)

// Config is the daemon configuration, loaded from a TOML file.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `mapstructure:"listen"`

	// DataDir is the Badger database directory.
	DataDir string `mapstructure:"data-dir"`

	// SettlementLog is the file outbound transfers are appended to.
	SettlementLog string `mapstructure:"settlement-log"`

	LogFormat string `mapstructure:"log-format"`
	LogLevel  string `mapstructure:"log-level"`

	// Deployment parameters. These only matter on first start - afterwards
	// the persisted parameters win.
	Mode           string        `mapstructure:"mode"`
	Genesis        time.Time     `mapstructure:"genesis"`
	EpochLength    time.Duration `mapstructure:"epoch-length"`
	SeasonEnd      time.Time     `mapstructure:"season-end"`
	LockLength     time.Duration `mapstructure:"lock-length"`
	CooldownLength time.Duration `mapstructure:"cooldown-length"`
	AllowlistRoot  string        `mapstructure:"allowlist-root"`
	Admin          string        `mapstructure:"admin"`
	Funder         string        `mapstructure:"funder"`
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("listen", ":8080")
	v.SetDefault("data-dir", "data")
	v.SetDefault("settlement-log", "settlement.log")
	v.SetDefault("log-format", "text")
	v.SetDefault("log-level", "info")

	err := v.ReadInConfig()
	if err != nil {
		return nil, errors.UnknownError.WithFormat("read config: %w", err)
	}

	c := new(Config)
	err = v.Unmarshal(c)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("unmarshal config: %w", err)
	}
	return c, nil
}

// Params converts the deployment section of the config.
func (c *Config) Params() (*protocol.Params, error) {
	mode, ok := protocol.ModeByName(c.Mode)
	if !ok {
		return nil, errors.UnknownError.WithFormat("unknown mode %q", c.Mode)
	}

	p := &protocol.Params{
		Mode:           mode,
		Genesis:        c.Genesis,
		EpochLength:    c.EpochLength,
		SeasonEnd:      c.SeasonEnd,
		LockLength:     c.LockLength,
		CooldownLength: c.CooldownLength,
		Admin:          protocol.Identity(c.Admin),
		Funder:         protocol.Identity(c.Funder),
	}

	if c.AllowlistRoot != "" {
		b, err := hex.DecodeString(c.AllowlistRoot)
		if err != nil || len(b) != len(p.AllowlistRoot) {
			return nil, errors.UnknownError.WithFormat("invalid allowlist root %q", c.AllowlistRoot)
		}
		copy(p.AllowlistRoot[:], b)
	}

	return p, p.Validate()
}

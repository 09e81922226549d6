// Copyright 2021 Golem Factory
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	DefaultChain        = "rinkeby"
	DefaultStartTimeout = 120 // seconds
)

type Config struct {
	Datadir        string `mapstructure:"datadir"`
	Chain          string `mapstructure:"chain"`
	StartTimeout   int    `mapstructure:"startTimeout"` // readiness deadline in seconds
	FaucetEndpoint string `mapstructure:"faucetEndpoint"`
}

// GetConfig merges defaults, the json config file (if given) and CLI flags,
// flags winning.
func GetConfig(ctx *cli.Context) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("datadir", filepath.Join(home, ".golem"))
	v.SetDefault("chain", DefaultChain)
	v.SetDefault("startTimeout", DefaultStartTimeout)
	v.SetDefault("faucetEndpoint", "")

	if path := ctx.String(ConfigFileFlag.Name); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if d := ctx.String(DatadirFlag.Name); d != "" {
		cfg.Datadir = d
	}
	if c := ctx.String(ChainFlag.Name); c != "" {
		cfg.Chain = c
	}
	return &cfg, nil
}

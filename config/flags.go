// Copyright 2021 Golem Factory
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	log "github.com/ChainSafe/log15"
	"github.com/urfave/cli/v2"
)

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "json configuration file",
	}

	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Supports levels crit (silent) to trce (trace)",
		Value: log.LvlInfo.String(),
	}

	DatadirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Root data directory, the chain state lives underneath",
	}

	ChainFlag = &cli.StringFlag{
		Name:  "chain",
		Usage: "target ethereum chain like [rinkeby golem]",
	}

	AddressFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "recipient address as 0x-prefixed hex",
	}

	ValueFlag = &cli.StringFlag{
		Name:  "value",
		Usage: "amount to transfer in wei",
	}
)

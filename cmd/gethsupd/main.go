// Copyright 2021 Golem Factory
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"geth-supervisor/config"
	"geth-supervisor/node"

	log "github.com/ChainSafe/log15"
	"github.com/urfave/cli/v2"
)

var app = cli.NewApp()

var cliFlags = []cli.Flag{
	config.ConfigFileFlag,
	config.VerbosityFlag,
	config.DatadirFlag,
	config.ChainFlag,
}

var remoteDonateFlags = []cli.Flag{
	config.ConfigFileFlag,
	config.VerbosityFlag,
	config.AddressFlag,
}

var localDonateFlags = []cli.Flag{
	config.ConfigFileFlag,
	config.VerbosityFlag,
	config.DatadirFlag,
	config.ChainFlag,
	config.AddressFlag,
	config.ValueFlag,
}

var faucetCommand = cli.Command{
	Name:        "faucet",
	Usage:       "dispense test funds",
	Description: "The faucet command funds an address with test ether.\n",
	Subcommands: []*cli.Command{
		{
			Action: handleRemoteDonateCmd,
			Name:   "remote",
			Usage:  "request funds from the remote testnet faucet",
			Flags:  remoteDonateFlags,
			Description: "The remote subcommand asks the public faucet service to fund an address.\n" +
				"\tthe recipient address should be given.",
		}, {
			Action: handleLocalDonateCmd,
			Name:   "local",
			Usage:  "transfer funds from the built-in faucet account",
			Flags:  localDonateFlags,
			Description: "The local subcommand signs a transfer from the built-in faucet key\n" +
				"\tand submits it through the node running against the local datadir.",
		},
	},
}

// init initializes CLI
func init() {
	app.Action = run
	app.Copyright = "Copyright 2021 Golem Factory"
	app.Name = "gethsupd"
	app.Usage = "supervised ethereum node"
	app.Version = "1.0.0"
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		&faucetCommand,
	}

	app.Flags = append(app.Flags, cliFlags...)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func startLogger(ctx *cli.Context) error {
	logger := log.Root()
	var lvl log.Lvl

	if lvlToInt, err := strconv.Atoi(ctx.String(config.VerbosityFlag.Name)); err == nil {
		lvl = log.Lvl(lvlToInt)
	} else if lvl, err = log.LvlFromString(ctx.String(config.VerbosityFlag.Name)); err != nil {
		return err
	}

	logger.SetHandler(log.MultiHandler(
		log.LvlFilterHandler(
			lvl,
			log.StreamHandler(os.Stdout, log.LogfmtFormat())),
		log.Must.FileHandler("node_log.json", log.JsonFormat()),
		log.LvlFilterHandler(
			log.LvlError,
			log.Must.FileHandler("node_log_errors.json", log.JsonFormat()))))

	return nil
}

func run(ctx *cli.Context) error {
	err := startLogger(ctx)
	if err != nil {
		return err
	}

	cfg, err := config.GetConfig(ctx)
	if err != nil {
		return err
	}

	sup, err := node.NewSupervisor(node.Config{
		Datadir:      cfg.Datadir,
		Chain:        cfg.Chain,
		StartTimeout: time.Duration(cfg.StartTimeout) * time.Second,
	}, log.Root().New("chain", cfg.Chain))
	if err != nil {
		return err
	}

	if err := sup.Start(); err != nil {
		return err
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.Info("shutting down", "signal", sig.String())

	return sup.Stop()
}

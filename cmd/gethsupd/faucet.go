// Copyright 2021 Golem Factory
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"geth-supervisor/config"
	"geth-supervisor/faucet"
	"geth-supervisor/node"

	log "github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

const donateTimeout = 30 * time.Second

func handleRemoteDonateCmd(ctx *cli.Context) error {
	if err := startLogger(ctx); err != nil {
		return err
	}
	cfg, err := config.GetConfig(ctx)
	if err != nil {
		return err
	}
	addr := ctx.String(config.AddressFlag.Name)
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("invalid recipient address %q", addr)
	}

	client := faucet.NewClient(cfg.FaucetEndpoint, faucet.DefaultIdentity(), log.Root().New("module", "faucet"))
	if !client.RemoteDonate(common.HexToAddress(addr)) {
		return fmt.Errorf("faucet declined donation for %s", addr)
	}
	return nil
}

func handleLocalDonateCmd(ctx *cli.Context) error {
	if err := startLogger(ctx); err != nil {
		return err
	}
	cfg, err := config.GetConfig(ctx)
	if err != nil {
		return err
	}
	addr := ctx.String(config.AddressFlag.Name)
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("invalid recipient address %q", addr)
	}
	value, ok := new(big.Int).SetString(ctx.String(config.ValueFlag.Name), 10)
	if !ok || value.Sign() <= 0 {
		return fmt.Errorf("invalid transfer value %q", ctx.String(config.ValueFlag.Name))
	}

	cctx, cancel := context.WithTimeout(context.Background(), donateTimeout)
	defer cancel()

	backend, err := node.DialIPC(cctx, node.IPCPath(cfg.Datadir, cfg.Chain))
	if err != nil {
		return fmt.Errorf("node not reachable at %s: %w", node.IPCPath(cfg.Datadir, cfg.Chain), err)
	}
	defer backend.Close()

	client := faucet.NewClient(cfg.FaucetEndpoint, faucet.DefaultIdentity(), log.Root().New("module", "faucet"))
	hash, err := client.LocalDonate(cctx, backend, common.HexToAddress(addr), value)
	if err != nil {
		return err
	}
	log.Info("funds sent", "hash", common.BytesToHash(hash).Hex())
	return nil
}

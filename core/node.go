// Copyright 2021 Golem Factory
// SPDX-License-Identifier: LGPL-3.0-only

package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Node is the lifecycle contract of a supervised client process.
type Node interface {
	Start() error // Spawn the process and wait until it is usable
	Stop() error
	IsRunning() bool
	Name() string
}

// Backend is the slice of the node's control endpoint the faucet needs to
// fund an address: read the pending nonce, submit a signed transaction.
type Backend interface {
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error)
}

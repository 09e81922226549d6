package node

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"geth-supervisor/core"
)

// Client wraps the node's local control endpoint. Only the handful of calls
// the supervisor and faucet need are exposed.
type Client struct {
	rpc *rpc.Client
}

var _ core.Backend = (*Client)(nil)

// DialIPC connects to the node's IPC socket.
func DialIPC(ctx context.Context, path string) (*Client, error) {
	c, err := rpc.DialIPC(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

// ClientVersion queries the node's reported version string. It doubles as
// the reachability probe during startup.
func (c *Client) ClientVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.rpc.CallContext(ctx, &version, "web3_clientVersion"); err != nil {
		return "", err
	}
	return version, nil
}

// GenesisHash fetches the node-reported hash of block zero.
func (c *Client) GenesisHash(ctx context.Context) (common.Hash, error) {
	var block struct {
		Hash common.Hash `json:"hash"`
	}
	err := c.rpc.CallContext(ctx, &block, "eth_getBlockByNumber", "0x0", false)
	if err != nil {
		return common.Hash{}, err
	}
	return block.Hash, nil
}

// PendingNonceAt returns the account's transaction count including pending
// transactions.
func (c *Client) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	var nonce hexutil.Uint64
	err := c.rpc.CallContext(ctx, &nonce, "eth_getTransactionCount", addr, "pending")
	return uint64(nonce), err
}

// SendRawTransaction submits a signed transaction and returns the hash the
// node reports back.
func (c *Client) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	var result string
	err := c.rpc.CallContext(ctx, &result, "eth_sendRawTransaction", hexutil.Encode(rawTx))
	if err != nil {
		return common.Hash{}, err
	}
	if len(result) != 2+2*common.HashLength {
		return common.Hash{}, fmt.Errorf("malformed transaction hash %q", result)
	}
	return common.HexToHash(result), nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

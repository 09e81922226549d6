package faucet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"

	"geth-supervisor/core"
)

const (
	// DefaultEndpoint is the public testnet faucet service.
	DefaultEndpoint = "http://188.165.227.180:4000"

	gasLimit       = 21000
	requestTimeout = 30 * time.Second
)

// Faucet transfers always bid the minimum.
var gasPrice = big.NewInt(1)

// Identity is a faucet signing key with its derived address. Immutable once
// built; scoped to the Client it is injected into.
type Identity struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// DefaultIdentity derives the well-known faucet identity from the fixed
// "Golem Faucet" seed, space-padded to a 32-byte scalar.
func DefaultIdentity() Identity {
	key, err := crypto.ToECDSA([]byte(fmt.Sprintf("%-32s", "Golem Faucet")))
	if err != nil {
		panic("faucet: invalid built-in key seed: " + err.Error())
	}
	return Identity{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

func (id Identity) Address() common.Address {
	return id.addr
}

// Client dispenses test funds, either through a remote faucet service or by
// signing a transfer from its own identity through a local node.
type Client struct {
	endpoint string
	http     *http.Client
	identity Identity
	log      log15.Logger
}

func NewClient(endpoint string, id Identity, log log15.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: requestTimeout},
		identity: id,
		log:      log,
	}
}

// donateResponse mirrors the remote faucet's JSON payload.
type donateResponse struct {
	Paydate int64           `json:"paydate"`
	Message string          `json:"message"`
	Amount  decimal.Decimal `json:"amount"`
}

// RemoteDonate asks the remote faucet to fund addr. A decline is a result,
// not an error: the outcome is the boolean, the details go to the log.
func (c *Client) RemoteDonate(addr common.Address) bool {
	url := fmt.Sprintf("%s/donate/%s", c.endpoint, hex.EncodeToString(addr.Bytes()))
	resp, err := c.http.Get(url)
	if err != nil {
		c.log.Error("faucet request failed", "url", url, "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("faucet error code", "status", resp.StatusCode)
		return false
	}
	var donation donateResponse
	if err := json.NewDecoder(resp.Body).Decode(&donation); err != nil {
		c.log.Error("malformed faucet response", "err", err)
		return false
	}
	if donation.Paydate == 0 {
		c.log.Warn("faucet declined", "message", donation.Message)
		return false
	}
	// The paydate is not very reliable, usually some day in the past.
	amount := donation.Amount.Div(decimal.New(params.Ether, 0))
	c.log.Info("faucet donation", "eth", amount.StringFixed(6), "paydate", time.Unix(donation.Paydate, 0))
	return true
}

// LocalDonate funds addr from the faucet account through a node under our
// control and returns the submitted transaction hash. There is no decline
// path here; only a failed submission is an error.
func (c *Client) LocalDonate(ctx context.Context, backend core.Backend, to common.Address, value *big.Int) ([]byte, error) {
	nonce, err := backend.PendingNonceAt(ctx, c.identity.addr)
	if err != nil {
		return nil, err
	}
	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.HomesteadSigner{}, c.identity.key)
	if err != nil {
		return nil, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, err
	}
	hash, err := backend.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}
	eth := decimal.NewFromBigInt(value, 0).Div(decimal.New(params.Ether, 0))
	c.log.Info("faucet transfer", "eth", eth.String(), "to", to.Hex(), "hash", hash.Hex())
	return hash.Bytes(), nil
}

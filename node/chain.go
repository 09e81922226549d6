package node

import (
	"context"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
)

// ChainUnknown is returned when a genesis hash matches no known chain. It is
// a valid identification result, not an error; the caller decides what to do.
const ChainUnknown = "unknown"

// geneses maps the hash of block zero to the chain it identifies.
var geneses = map[common.Hash]string{
	common.HexToHash("0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3"): "mainnet",
	common.HexToHash("0x41941023680923e0fe4d74a34bdac8141f2540e3ae90623718e47d66d1ca4a2d"): "ropsten",
	common.HexToHash("0x6341fd3daf94b748c72ced5a5b26028f2474f5f00d824504e4fa37a75767e177"): "rinkeby",
	// Private Golem chain, hash of the bundled golem.json genesis.
	common.HexToHash("0x7d45647e7b998bf2a1dea10464eb0e07671c59fecfa0b53a5068bd53cc33887d"): "golem",
}

// ChainName maps a genesis block hash to a chain name, or ChainUnknown.
func ChainName(genesis common.Hash) string {
	if name, ok := geneses[genesis]; ok {
		return name
	}
	return ChainUnknown
}

// IdentifyChain checks which chain the connected node is running.
func IdentifyChain(ctx context.Context, client *Client, log log15.Logger) (string, error) {
	genesis, err := client.GenesisHash(ctx)
	if err != nil {
		return "", err
	}
	name := ChainName(genesis)
	log.Info("identified chain", "chain", name, "genesis", genesis.Hex())
	return name, nil
}

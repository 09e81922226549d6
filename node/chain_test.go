package node_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcore "github.com/ethereum/go-ethereum/core"
	"github.com/stretchr/testify/require"

	"geth-supervisor/node"
)

func TestChainName(t *testing.T) {
	tests := []struct {
		genesis string
		name    string
	}{
		{"0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3", "mainnet"},
		{"0x41941023680923e0fe4d74a34bdac8141f2540e3ae90623718e47d66d1ca4a2d", "ropsten"},
		{"0x6341fd3daf94b748c72ced5a5b26028f2474f5f00d824504e4fa37a75767e177", "rinkeby"},
		{"0x7d45647e7b998bf2a1dea10464eb0e07671c59fecfa0b53a5068bd53cc33887d", "golem"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.name, node.ChainName(common.HexToHash(tt.genesis)))
	}
}

func TestChainNameUnknown(t *testing.T) {
	// An unrecognized genesis identifies no chain, which is a result in its
	// own right, not an error.
	got := node.ChainName(common.HexToHash("0xdeadbeef"))
	require.Equal(t, node.ChainUnknown, got)
}

func TestChainNameBundledGolemGenesis(t *testing.T) {
	// The golem table entry must stay in sync with the bundled genesis: a
	// node init'd from golem.json has to identify as "golem", or the private
	// chain could never pass the identity check.
	raw, err := os.ReadFile(filepath.Join("chains", "golem.json"))
	require.NoError(t, err)

	genesis := new(ethcore.Genesis)
	require.NoError(t, json.Unmarshal(raw, genesis))

	hash := genesis.ToBlock(nil).Hash()
	require.Equal(t, "golem", node.ChainName(hash))
}

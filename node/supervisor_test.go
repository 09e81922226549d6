package node_test

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/ChainSafe/log15"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"geth-supervisor/core"
	"geth-supervisor/node"
)

var logger = log15.Root()

var (
	rinkebyGenesis = common.HexToHash("0x6341fd3daf94b748c72ced5a5b26028f2474f5f00d824504e4fa37a75767e177")
	mainnetGenesis = common.HexToHash("0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3")
)

// writeFakeGeth installs a stand-in geth script as the only binary on PATH.
// It answers the version query, accepts the init subcommand and otherwise
// sleeps until terminated, like the real client would from the supervisor's
// point of view.
func writeFakeGeth(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	script := `#!/bin/sh
if [ "$1" = "version" ]; then
  echo "Geth"
  echo "Version: ${FAKE_GETH_VERSION:-1.6.7}"
  exit 0
fi
for arg in "$@"; do
  if [ "$arg" = "init" ]; then
    exit "${FAKE_GETH_INIT_EXIT:-0}"
  fi
done
exec sleep 600
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geth"), []byte(script), 0755))
	// The fake dir goes first so it shadows any real geth, but the rest of
	// the PATH stays: the script needs sh and sleep to keep the child alive.
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

type fakeWeb3Service struct{}

func (s *fakeWeb3Service) ClientVersion() string {
	return "Geth/v1.6.7-fake"
}

type fakeEthService struct {
	mu      sync.Mutex
	genesis common.Hash
	nonce   uint64
}

func (s *fakeEthService) GetBlockByNumber(number string, full bool) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{"number": "0x0", "hash": s.genesis}, nil
}

func (s *fakeEthService) GetTransactionCount(addr common.Address, block string) (hexutil.Uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hexutil.Uint64(s.nonce), nil
}

func (s *fakeEthService) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// serveIPC answers the node control protocol on the socket the supervisor
// will poll, standing in for a running geth.
func serveIPC(t *testing.T, ipcPath string, genesis common.Hash) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(ipcPath), 0700))
	l, err := net.Listen("unix", ipcPath)
	require.NoError(t, err)

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("web3", &fakeWeb3Service{}))
	require.NoError(t, srv.RegisterName("eth", &fakeEthService{genesis: genesis}))
	go srv.ServeListener(l)

	t.Cleanup(func() {
		srv.Stop()
		l.Close()
		os.Remove(ipcPath)
	})
}

func newSupervisor(t *testing.T, datadir string) *node.Supervisor {
	t.Helper()
	sup, err := node.NewSupervisor(node.Config{
		Datadir:      datadir,
		StartTimeout: 5 * time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sup.Stop() })
	return sup
}

func TestSupervisorLifecycle(t *testing.T) {
	writeFakeGeth(t)
	datadir := t.TempDir()
	serveIPC(t, node.IPCPath(datadir, node.DefaultChain), rinkebyGenesis)

	sup := newSupervisor(t, datadir)
	require.False(t, sup.IsRunning())

	require.NoError(t, sup.Start())
	require.True(t, sup.IsRunning())
	require.NotNil(t, sup.Client())

	err := sup.Start()
	require.ErrorIs(t, err, core.ErrLifecycle)
	require.True(t, sup.IsRunning())

	require.NoError(t, sup.Stop())
	require.False(t, sup.IsRunning())

	// Stopping again is a no-op.
	require.NoError(t, sup.Stop())

	// The instance is reusable, not one-shot.
	require.NoError(t, sup.Start())
	require.True(t, sup.IsRunning())
	require.NoError(t, sup.Stop())
	require.False(t, sup.IsRunning())
}

func TestSupervisorWrongChain(t *testing.T) {
	writeFakeGeth(t)
	datadir := t.TempDir()
	serveIPC(t, node.IPCPath(datadir, node.DefaultChain), mainnetGenesis)

	sup := newSupervisor(t, datadir)
	err := sup.Start()
	require.ErrorIs(t, err, core.ErrConfiguration)
	// The wrongly-identified node is deliberately left running.
	require.True(t, sup.IsRunning())
	require.NoError(t, sup.Stop())
}

func TestSupervisorReadinessTimeout(t *testing.T) {
	writeFakeGeth(t)
	datadir := t.TempDir()
	// No IPC server: the control endpoint never becomes reachable.

	sup, err := node.NewSupervisor(node.Config{
		Datadir:      datadir,
		StartTimeout: 500 * time.Millisecond,
	}, logger)
	require.NoError(t, err)

	err = sup.Start()
	require.ErrorIs(t, err, core.ErrEnvironment)
	// The spawned child must have been terminated, not orphaned.
	require.False(t, sup.IsRunning())
	require.Equal(t, 0, sup.Pid())

	// A failed start leaves the supervisor usable.
	serveIPC(t, node.IPCPath(datadir, node.DefaultChain), rinkebyGenesis)
	require.NoError(t, sup.Start())
	require.NoError(t, sup.Stop())
}

func TestSupervisorInitFailure(t *testing.T) {
	writeFakeGeth(t)
	t.Setenv("FAKE_GETH_INIT_EXIT", "1")
	datadir := t.TempDir()

	sup := newSupervisor(t, datadir)
	err := sup.Start()
	require.ErrorIs(t, err, core.ErrEnvironment)
	require.False(t, sup.IsRunning())
}

func TestSupervisorWatcherClearsDeadNode(t *testing.T) {
	writeFakeGeth(t)
	datadir := t.TempDir()
	serveIPC(t, node.IPCPath(datadir, node.DefaultChain), rinkebyGenesis)

	sup := newSupervisor(t, datadir)
	require.NoError(t, sup.Start())

	pid := sup.Pid()
	require.NotZero(t, pid)
	require.NoError(t, syscall.Kill(pid, syscall.SIGKILL))

	require.Eventually(t, func() bool { return !sup.IsRunning() },
		5*time.Second, 50*time.Millisecond, "supervisor kept reporting a dead node")
}

func TestSupervisorStopRacesChildExit(t *testing.T) {
	writeFakeGeth(t)
	datadir := t.TempDir()
	serveIPC(t, node.IPCPath(datadir, node.DefaultChain), rinkebyGenesis)

	sup := newSupervisor(t, datadir)
	require.NoError(t, sup.Start())

	// Kill the child while Stop runs; whichever of Stop and the watcher
	// wins, the supervisor must settle cleanly in the stopped state.
	pid := sup.Pid()
	require.NotZero(t, pid)
	go func() { _ = syscall.Kill(pid, syscall.SIGKILL) }()

	require.NoError(t, sup.Stop())
	require.False(t, sup.IsRunning())
	require.Equal(t, 0, sup.Pid())
}

func TestNewSupervisorVersionGate(t *testing.T) {
	writeFakeGeth(t)

	t.Setenv("FAKE_GETH_VERSION", "1.5.0")
	_, err := node.NewSupervisor(node.Config{Datadir: t.TempDir()}, logger)
	require.ErrorIs(t, err, core.ErrConfiguration)

	t.Setenv("FAKE_GETH_VERSION", "1.7.0")
	_, err = node.NewSupervisor(node.Config{Datadir: t.TempDir()}, logger)
	require.ErrorIs(t, err, core.ErrConfiguration)

	t.Setenv("FAKE_GETH_VERSION", "1.6.1")
	_, err = node.NewSupervisor(node.Config{Datadir: t.TempDir()}, logger)
	require.NoError(t, err)
}

func TestNewSupervisorMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := node.NewSupervisor(node.Config{Datadir: t.TempDir()}, logger)
	require.ErrorIs(t, err, core.ErrEnvironment)
}

func TestSupervisorUnknownChain(t *testing.T) {
	writeFakeGeth(t)
	sup, err := node.NewSupervisor(node.Config{
		Datadir: t.TempDir(),
		Chain:   "classic",
	}, logger)
	require.NoError(t, err)

	// No bundled genesis for the chain: init must fail before any spawn.
	err = sup.Start()
	require.ErrorIs(t, err, core.ErrEnvironment)
	require.False(t, sup.IsRunning())
}

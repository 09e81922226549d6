package node

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ChainSafe/log15"
	"github.com/avast/retry-go/v4"
	"github.com/blang/semver/v4"
	"github.com/gofrs/flock"

	"geth-supervisor/core"
)

const (
	binaryName        = "geth"
	ipcName           = "geth.ipc"
	lockName          = "supervisor.lock"
	cacheSize         = 32
	verbosityLevel    = 3
	readyPollInterval = 100 * time.Millisecond

	DefaultChain        = "rinkeby"
	DefaultStartTimeout = 2 * time.Minute
)

//go:embed chains
var chainConfigs embed.FS

type chainParams struct {
	networkID uint64
	bootnodes []string
}

var chains = map[string]chainParams{
	"rinkeby": {
		networkID: 4,
		bootnodes: []string{
			"enode://a24ac7c5484ef4ed0c5eb2d36620ba4e4aa13b8c84684e1b4aab0cebea2ae45cb4d375b77eab56516d34bfbd3c1a833fc51296ff084b770b94fb9028c4d25ccf@52.169.42.101:30303?discport=30304",
		},
	},
	"golem": {
		networkID: 847,
	},
}

// Config bundles the supervisor settings.
type Config struct {
	Datadir      string        // root data directory, required
	Chain        string        // target chain, DefaultChain if empty
	StartTimeout time.Duration // readiness deadline, DefaultStartTimeout if zero
}

// handle is the supervised child process with everything needed to reach and
// to reap it. Exactly one party clears Supervisor.handle and runs cleanup:
// Stop, a failed Start, or the watcher on unexpected exit.
type handle struct {
	cmd     *exec.Cmd
	pid     int
	ipcPath string
	lock    *flock.Flock
	client  *Client
	waitCh  chan error // receives the cmd.Wait result exactly once
}

// Supervisor owns the lifecycle of a single geth child process: locate and
// gate the binary at construction, then Start/Stop it on demand.
type Supervisor struct {
	cfg     Config
	log     log15.Logger
	prog    string
	version semver.Version

	mu     sync.Mutex
	handle *handle
}

var _ core.Node = (*Supervisor)(nil)

// NewSupervisor locates the geth binary on the search path and verifies its
// version falls in the accepted range. Nothing long-lived is spawned; an
// incompatible binary is rejected before it can ever be launched.
func NewSupervisor(cfg Config, log log15.Logger) (*Supervisor, error) {
	if cfg.Datadir == "" {
		return nil, fmt.Errorf("%w: datadir not set", core.ErrConfiguration)
	}
	if cfg.Chain == "" {
		cfg.Chain = DefaultChain
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = DefaultStartTimeout
	}

	prog, err := exec.LookPath(binaryName)
	if err != nil {
		return nil, fmt.Errorf("%w: ethereum client %q not found: %s", core.ErrEnvironment, binaryName, err)
	}
	out, err := exec.Command(prog, "version").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: version query of %s failed: %s", core.ErrEnvironment, prog, err)
	}
	version, err := ParseVersion(string(out))
	if err != nil {
		return nil, err
	}
	if err := GethVersions.Check(version); err != nil {
		return nil, err
	}
	log.Info("found ethereum client", "prog", prog, "version", version)

	return &Supervisor{cfg: cfg, log: log, prog: prog, version: version}, nil
}

func (s *Supervisor) Name() string {
	return binaryName + "/" + s.cfg.Chain
}

// Version is the gated version of the located binary.
func (s *Supervisor) Version() semver.Version {
	return s.version
}

func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// Pid returns the child process id, or 0 when no child is running.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.pid
}

// Client returns the control endpoint client of the running node, or nil.
func (s *Supervisor) Client() *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	return s.handle.client
}

// IPCPath returns the control socket location for the configured chain.
func (s *Supervisor) IPCPath() string {
	return IPCPath(s.cfg.Datadir, s.cfg.Chain)
}

// IPCPath computes where a supervised node's control socket lives for the
// given data directory and chain, whether or not the node is running.
func IPCPath(datadir, chain string) string {
	return filepath.Join(datadir, "ethereum", chain, ipcName)
}

func (s *Supervisor) chainDir() string {
	return filepath.Join(s.cfg.Datadir, "ethereum", s.cfg.Chain)
}

// Start initializes the chain datadir, spawns geth, waits for its control
// endpoint and verifies the chain identity. It returns once the node is
// usable or with the reason it is not.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: ethereum node already started by us", core.ErrLifecycle)
	}
	s.mu.Unlock()

	chainDir := s.chainDir()
	if err := os.MkdirAll(chainDir, 0700); err != nil {
		return fmt.Errorf("%w: create datadir: %s", core.ErrEnvironment, err)
	}

	// Directory-scoped mutex: a second supervisor against the same chain
	// datadir must not pass, even from another process.
	lock := flock.New(filepath.Join(chainDir, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: datadir lock: %s", core.ErrEnvironment, err)
	}
	if !locked {
		return fmt.Errorf("%w: datadir %s is locked by another supervisor", core.ErrLifecycle, chainDir)
	}

	if err := s.initChain(chainDir); err != nil {
		_ = lock.Unlock()
		return err
	}

	args := []string{
		"--datadir=" + chainDir,
		fmt.Sprintf("--cache=%d", cacheSize),
		"--syncmode=light",
		fmt.Sprintf("--networkid=%d", chains[s.cfg.Chain].networkID),
	}
	if boot := chains[s.cfg.Chain].bootnodes; len(boot) > 0 {
		args = append(args, "--bootnodes", strings.Join(boot, ","))
	}
	args = append(args, "--verbosity", strconv.Itoa(verbosityLevel))

	cmd := exec.Command(s.prog, args...)
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		_ = lock.Unlock()
		return fmt.Errorf("%w: spawn %s: %s", core.ErrEnvironment, s.prog, err)
	}

	h := &handle{
		cmd:     cmd,
		pid:     cmd.Process.Pid,
		ipcPath: filepath.Join(chainDir, ipcName),
		lock:    lock,
		waitCh:  make(chan error, 1),
	}
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
	go s.watch(h)
	s.log.Info("ethereum node spawned", "pid", h.pid, "cmd", s.prog+" "+strings.Join(args, " "))

	started := time.Now()
	client, err := s.waitReady(h)
	if err != nil {
		s.log.Error("node control endpoint not reachable, terminating", "pid", h.pid, "err", err)
		s.release(h)
		return err
	}
	s.mu.Lock()
	h.client = client
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	identified, err := IdentifyChain(ctx, client, s.log)
	if err != nil {
		s.release(h)
		return fmt.Errorf("%w: chain identification failed: %s", core.ErrEnvironment, err)
	}
	if identified != s.cfg.Chain {
		// The node stays up on purpose: it was spawned against our own
		// datadir and callers may still want to inspect it. They must not
		// treat it as usable.
		return fmt.Errorf("%w: wrong %q ethereum chain", core.ErrConfiguration, identified)
	}

	s.log.Info("node started", "chain", identified, "elapsed", time.Since(started))
	return nil
}

// Stop requests graceful termination and blocks until the child is reaped.
// Stopping a stopped supervisor is a no-op; the instance stays reusable.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	var client *Client
	if h != nil {
		client = h.client
	}
	s.mu.Unlock()
	if h == nil {
		return nil
	}

	started := time.Now()
	if err := terminate(h.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.log.Warn("cannot terminate node", "pid", h.pid, "err", err)
	}
	<-h.waitCh
	if client != nil {
		client.Close()
	}
	_ = h.lock.Unlock()
	s.log.Info("node terminated", "pid", h.pid, "elapsed", time.Since(started))
	return nil
}

// initChain materializes the bundled genesis for the target chain and runs
// the synchronous init subcommand against it.
func (s *Supervisor) initChain(chainDir string) error {
	genesis, err := chainConfigs.ReadFile("chains/" + s.cfg.Chain + ".json")
	if err != nil {
		return fmt.Errorf("%w: no bundled configuration for chain %q", core.ErrEnvironment, s.cfg.Chain)
	}
	initFile := filepath.Join(chainDir, s.cfg.Chain+".json")
	if err := os.WriteFile(initFile, genesis, 0644); err != nil {
		return fmt.Errorf("%w: write chain configuration: %s", core.ErrEnvironment, err)
	}
	s.log.Info("initializing chain", "chain", s.cfg.Chain, "file", initFile)

	out, err := exec.Command(s.prog, "--datadir="+chainDir, "init", initFile).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s init failed: %s (%s)",
			core.ErrEnvironment, binaryName, err, bytes.TrimSpace(out))
	}
	return nil
}

// waitReady polls the IPC socket at a fixed interval until a dial plus a
// version probe succeed, bounded by the configured start timeout.
func (s *Supervisor) waitReady(h *handle) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StartTimeout)
	defer cancel()

	var client *Client
	err := retry.Do(
		func() error {
			c, err := DialIPC(ctx, h.ipcPath)
			if err != nil {
				return err
			}
			if _, err := c.ClientVersion(ctx); err != nil {
				c.Close()
				return err
			}
			client = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(readyPollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: control endpoint %s not reachable within %s",
			core.ErrEnvironment, h.ipcPath, s.cfg.StartTimeout)
	}
	return client, nil
}

// watch reaps the child and, when it dies without anyone asking, drops the
// stale RUNNING state so the supervisor does not keep reporting a dead node.
func (s *Supervisor) watch(h *handle) {
	err := h.cmd.Wait()
	h.waitCh <- err

	s.mu.Lock()
	abandoned := s.handle == h
	if abandoned {
		s.handle = nil
	}
	client := h.client
	s.mu.Unlock()
	if abandoned {
		if client != nil {
			client.Close()
		}
		_ = h.lock.Unlock()
		s.log.Warn("node exited unexpectedly", "pid", h.pid, "err", err)
	}
}

// release kills a half-started child and frees everything it held. No-op if
// the watcher already cleaned up after an exit.
func (s *Supervisor) release(h *handle) {
	s.mu.Lock()
	owned := s.handle == h
	if owned {
		s.handle = nil
	}
	client := h.client
	s.mu.Unlock()
	if !owned {
		return
	}
	_ = h.cmd.Process.Kill()
	<-h.waitCh
	if client != nil {
		client.Close()
	}
	_ = h.lock.Unlock()
}

func terminate(p *os.Process) error {
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(syscall.SIGTERM)
}

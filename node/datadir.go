package node

import (
	"fmt"
	"os"
	"path/filepath"

	"geth-supervisor/core"
)

// DefaultDataDir returns the conventional location of a node's own data
// directory on the given platform. It is a discovery helper for finding a
// pre-existing installation, not part of the supervised start path.
func DefaultDataDir(goos string, testnet bool) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	var dir string
	switch goos {
	case "darwin":
		dir = filepath.Join(home, "Library", "Ethereum")
	case "linux":
		dir = filepath.Join(home, ".ethereum")
	case "windows":
		dir = filepath.Join(home, "AppData", "Roaming", "Ethereum")
	default:
		return "", fmt.Errorf("%w: unsupported platform %q", core.ErrConfiguration, goos)
	}
	if testnet {
		dir = filepath.Join(dir, "testnet")
	}
	return dir, nil
}

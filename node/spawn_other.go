//go:build !linux
// +build !linux

package node

import "syscall"

// Parent-death signalling is linux-only; elsewhere cleanup relies on Stop
// being called before the owner exits.
func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

//go:build linux
// +build linux

package node

import "syscall"

// sysProcAttr asks the kernel to deliver SIGTERM to the child when the
// supervising process dies, so a crashed owner does not orphan the node.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}

//go:build !windows

package runner

import "syscall"

// detachAttr starts the child in its own session so it survives this
// process exiting.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

//go:build windows

package runner

import "syscall"

const detachedProcess = 0x00000008

// detachAttr detaches the child from our console and process group so it
// survives this process exiting.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}

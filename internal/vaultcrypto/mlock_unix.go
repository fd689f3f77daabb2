//go:build !windows

package vaultcrypto

import (
	"golang.org/x/sys/unix"
)

// mlock attempts to keep data out of swap.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return unix.Mlock(data) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Munlock(data)
}

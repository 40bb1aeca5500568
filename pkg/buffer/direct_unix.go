//go:build linux || darwin || freebsd || netbsd || openbsd

package buffer

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func mapMemory(size int) ([]byte, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w: %v", size, ErrAllocation, err)
	}
	return mem, nil
}

func unmapMemory(mem []byte) {
	_ = unix.Munmap(mem)
}

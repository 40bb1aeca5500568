//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package buffer

// Platforms without an anonymous mapping primitive fall back to the heap.
func mapMemory(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapMemory([]byte) {}

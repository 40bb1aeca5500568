package buffer

import (
	"fmt"
	"strings"
)

// StorageKind selects where a buffer's bytes live.
type StorageKind int32

const (
	// KindByteArray buffers are plain Go heap slices.
	KindByteArray StorageKind = iota
	// KindDirect buffers are backed by memory mapped outside the Go heap.
	KindDirect
	// KindIndirect buffers wrap a heap array.
	KindIndirect
)

// String returns the canonical text form of the kind.
func (k StorageKind) String() string {
	switch k {
	case KindByteArray:
		return "byte_array"
	case KindDirect:
		return "direct"
	case KindIndirect:
		return "indirect"
	default:
		return fmt.Sprintf("unknown(%d)", int32(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k StorageKind) Valid() bool {
	return k >= KindByteArray && k <= KindIndirect
}

// ParseStorageKind parses a kind name. It accepts the canonical names plus
// "array" and "heap" for KindByteArray. Matching is case-insensitive.
func ParseStorageKind(s string) (StorageKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "byte_array", "bytearray", "array", "heap":
		return KindByteArray, nil
	case "direct":
		return KindDirect, nil
	case "indirect":
		return KindIndirect, nil
	default:
		return 0, fmt.Errorf("invalid storage kind %q (valid: byte_array, direct, indirect)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k StorageKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid storage kind %d", int32(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *StorageKind) UnmarshalText(text []byte) error {
	parsed, err := ParseStorageKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ServiceRole is the logical purpose of a buffer.
type ServiceRole int32

const (
	RoleHeader ServiceRole = iota
	RoleBody
)

func (r ServiceRole) String() string {
	switch r {
	case RoleHeader:
		return "header"
	case RoleBody:
		return "body"
	default:
		return fmt.Sprintf("unknown(%d)", int32(r))
	}
}

package tiffcp

import (
	"fmt"
)

// An UnsupportedError reports a field combination or a layout conversion
// that the copy engine does not handle.
type UnsupportedError string

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("tiffcp: unsupported: %s", string(e))
}

// A GeometryError reports images whose dimensions or sampling do not allow the copy.
type GeometryError string

func (e GeometryError) Error() string {
	return fmt.Sprintf("tiffcp: geometry mismatch: %s", string(e))
}

// A MemoryLimitError reports an allocation above the configured ceiling.
type MemoryLimitError struct {
	Size  int64
	Limit int64
}

func (e MemoryLimitError) Error() string {
	return fmt.Sprintf("tiffcp: allocation of %d bytes is forbidden, limit is %d", e.Size, e.Limit)
}

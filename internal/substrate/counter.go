package substrate

import (
	"strconv"
	"sync/atomic"
)

// Counter hands out instance-scoped sequential identifiers starting at 1.
type Counter struct {
	n atomic.Uint64
}

// Next returns the next identifier as a decimal string.
func (c *Counter) Next() string {
	return strconv.FormatUint(c.n.Add(1), 10)
}

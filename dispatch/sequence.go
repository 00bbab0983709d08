package dispatch

import (
	"strconv"
	"sync/atomic"
)

// Sequence allocates increasing ids. It is safe for concurrent use; the zero
// value starts at 1.
type Sequence struct {
	n atomic.Int64
}

func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// NextID returns the next id as a decimal string, for use as a resource id.
func (s *Sequence) NextID() string {
	return strconv.FormatInt(s.Next(), 10)
}

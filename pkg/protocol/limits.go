package protocol

import "errors"

// Nesting limits for recursive values. They complement the allocation
// limits in decoder.go.
const (
	// MaxValueDepth limits nesting of arrays and objects inside props,
	// state and local data values.
	MaxValueDepth = 64
)

// ErrMaxDepthExceeded is returned when a value nests deeper than allowed.
var ErrMaxDepthExceeded = errors.New("protocol: maximum nesting depth exceeded")

// depthContext tracks the current decoding depth for recursive values.
type depthContext struct {
	current int
	max     int
}

func newDepthContext(max int) *depthContext {
	return &depthContext{max: max}
}

// enter increments the depth and fails if the limit would be exceeded.
// The depth is only incremented on success.
func (dc *depthContext) enter() error {
	if dc.current >= dc.max {
		return ErrMaxDepthExceeded
	}
	dc.current++
	return nil
}

func (dc *depthContext) leave() {
	dc.current--
}

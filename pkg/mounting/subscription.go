package mounting

import "errors"

// Reasons a subscription ends.
var (
	ErrSlowSubscriber = errors.New("mounting: subscriber buffer full")
	ErrSurfaceStopped = errors.New("mounting: surface stopped")
)

// Subscription receives the transactions a coordinator publishes, in
// commit order.
type Subscription struct {
	c   *Coordinator
	ch  chan *Transaction
	err error // guarded by c.mu
}

// C returns the transaction channel. It is closed when the subscription
// ends; Err then reports why.
func (s *Subscription) C() <-chan *Transaction {
	return s.ch
}

// Err returns ErrSlowSubscriber if the subscriber fell behind and was
// dropped, ErrSurfaceStopped if the surface was stopped, and nil while
// the subscription is live or after Close.
func (s *Subscription) Err() error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.err
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.removeLocked(s, nil)
}

package mounting

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/differ"
	"github.com/vango-dev/viewdiff/pkg/mutation"
	"github.com/vango-dev/viewdiff/pkg/protocol"
	"github.com/vango-dev/viewdiff/pkg/shadow"
	"github.com/vango-dev/viewdiff/pkg/stub"
)

// maxDiffLines bounds the divergence report attached to E310.
const maxDiffLines = 8

// Transaction is a committed mutation list of one surface.
//
// Number increases by one for every transaction that carries mutations.
// A commit that changes nothing the host can observe yields an empty
// transaction with the current number, which is never published.
type Transaction struct {
	Surface      string
	Number       uint64
	Mutations    mutation.List
	DiffDuration time.Duration
	CommittedAt  time.Time
}

// Wire returns tx in its stream protocol form.
func (tx *Transaction) Wire() *protocol.Transaction {
	return &protocol.Transaction{
		Surface:   tx.Surface,
		Number:    tx.Number,
		Mutations: tx.Mutations,
	}
}

// Snapshot is what a new subscriber needs to catch up: the current root
// view and a mount transaction that builds everything below it.
type Snapshot struct {
	Root  shadow.View
	Mount *Transaction
}

// Coordinator owns the committed tree of one surface. Commits are
// serialized; each is diffed against the previous one and published to
// subscribers in order.
type Coordinator struct {
	id     string
	opts   options
	logger *slog.Logger

	mu      sync.Mutex
	root    shadow.Node
	number  uint64
	mounted *stub.Tree // nil unless validating
	subs    map[*Subscription]struct{}
	closed  bool
}

// NewCoordinator returns a coordinator for surface id whose host view
// hierarchy currently mirrors root.
func NewCoordinator(id string, root shadow.Node, opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Coordinator{
		id:     id,
		opts:   o,
		logger: o.logger.With("component", "mounting", "surface", id),
		root:   root,
		subs:   make(map[*Subscription]struct{}),
	}
	if o.validate {
		c.mounted = stub.Build(root)
	}
	return c
}

// ID returns the surface id.
func (c *Coordinator) ID() string {
	return c.id
}

// Number returns the number of the latest published transaction.
func (c *Coordinator) Number() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.number
}

// Root returns the last committed root.
func (c *Coordinator) Root() shadow.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// Commit diffs root against the last committed tree and, if the result is
// accepted, makes root the committed tree and publishes the transaction.
//
// A root of another family is rejected with E311. With validation
// enabled, a list that does not converge is rejected with E310 and the
// committed tree stays as it was.
func (c *Coordinator) Commit(ctx context.Context, root shadow.Node) (tx *Transaction, err error) {
	ctx, span := startCommitSpan(ctx, c.opts.tracer, c.id)
	defer func() {
		endCommitSpan(span, tx, err)
		if err != nil {
			c.opts.metrics.recordCommitError(c.id, errors.Code(err))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("E312").WithDetailf("surface %q is stopped", c.id)
	}
	if root == nil {
		return nil, errors.New("E311").WithDetail("commit has no root")
	}
	if !shadow.SameFamily(c.root, root) {
		return nil, errors.New("E311").
			WithDetailf("surface %q is rooted at tag %d, commit is rooted at tag %d", c.id, c.root.View().Tag, root.View().Tag)
	}

	start := time.Now()
	list := differ.Calculate(c.root, root, c.opts.differ...)
	took := time.Since(start)

	if c.mounted != nil {
		mounted, err := c.validate(ctx, list, root)
		if err != nil {
			c.logger.Error("transaction rejected", "error", err, "mutations", len(list))
			return nil, err
		}
		c.mounted = mounted
	}
	c.root = root

	tx = &Transaction{
		Surface:      c.id,
		Number:       c.number,
		Mutations:    list,
		DiffDuration: took,
		CommittedAt:  time.Now(),
	}
	if len(list) > 0 {
		c.number++
		tx.Number = c.number
		c.publishLocked(tx)
	}
	c.opts.metrics.recordTransaction(tx)

	c.logger.Debug("committed",
		"transaction", tx.Number,
		"mutations", len(list),
		"subscribers", len(c.subs),
		"duration", took,
	)
	return tx, nil
}

// validate applies list to a copy of the mounted stub tree while a second
// stub tree is built from root, then compares the two.
func (c *Coordinator) validate(ctx context.Context, list mutation.List, root shadow.Node) (*stub.Tree, error) {
	var applied, built *stub.Tree

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		applied = c.mounted.Clone()
		if err := applied.Apply(list); err != nil {
			return errors.New("E310").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		built = stub.Build(root)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if diff := applied.Diff(built); len(diff) > 0 {
		if len(diff) > maxDiffLines {
			diff = append(diff[:maxDiffLines:maxDiffLines], "...")
		}
		return nil, errors.New("E310").WithDetail(strings.Join(diff, "; "))
	}
	return applied, nil
}

// Snapshot returns the current root view and a mount transaction.
func (c *Coordinator) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() *Snapshot {
	start := time.Now()
	rootView := c.root.View()
	list := differ.CalculateChildren(rootView, nil, shadow.SliceChildren(c.root), c.opts.differ...)
	return &Snapshot{
		Root: rootView,
		Mount: &Transaction{
			Surface:      c.id,
			Number:       c.number,
			Mutations:    list,
			DiffDuration: time.Since(start),
			CommittedAt:  time.Now(),
		},
	}
}

// Subscribe attaches a subscriber. The returned snapshot reflects exactly
// the transactions published before the subscription, so applying the
// snapshot and then every received transaction keeps a host in sync.
func (c *Coordinator) Subscribe() (*Subscription, *Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, errors.New("E312").WithDetailf("surface %q is stopped", c.id)
	}
	s := &Subscription{c: c, ch: make(chan *Transaction, c.opts.buffer)}
	c.subs[s] = struct{}{}
	c.opts.metrics.subscriberAdded()
	return s, c.snapshotLocked(), nil
}

// Subscribers returns the number of attached subscribers.
func (c *Coordinator) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// publishLocked hands tx to every subscriber without blocking. A
// subscriber whose buffer is full is dropped.
func (c *Coordinator) publishLocked(tx *Transaction) {
	for s := range c.subs {
		select {
		case s.ch <- tx:
		default:
			c.logger.Warn("dropping slow subscriber", "transaction", tx.Number, "buffer", cap(s.ch))
			c.removeLocked(s, ErrSlowSubscriber)
		}
	}
}

func (c *Coordinator) removeLocked(s *Subscription, reason error) {
	if _, ok := c.subs[s]; !ok {
		return
	}
	delete(c.subs, s)
	s.err = reason
	close(s.ch)
	c.opts.metrics.subscriberRemoved(c.id, reason == ErrSlowSubscriber)
}

// Close stops the surface. Subscriptions end with ErrSurfaceStopped and
// later commits fail with E312.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for s := range c.subs {
		c.removeLocked(s, ErrSurfaceStopped)
	}
}

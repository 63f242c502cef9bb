// Package mounting turns successive tree generations of a surface into
// numbered mutation transactions.
//
// A Coordinator holds the last committed root of one surface. Commit diffs
// a new root against it with the differ, optionally checks the result
// against stub view trees, and publishes the transaction to subscribers.
// Subscribers read from buffered channels; one that falls behind is
// dropped instead of blocking the commit.
//
//	reg := mounting.NewRegistry(
//	    mounting.WithValidation(true),
//	    mounting.WithMetrics(mounting.NewMetrics()),
//	)
//	c, _ := reg.Start("main", root)
//	sub, snap, _ := c.Subscribe()
//	tx, err := c.Commit(ctx, next)
//
// Every commit records Prometheus metrics and an OpenTelemetry span.
package mounting

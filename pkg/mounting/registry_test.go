package mounting

import (
	"context"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/viewdiff/internal/errors"
)

func TestRegistryLifecycle(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	r := NewRegistry(WithLogger(quiet), WithMetrics(m), WithValidation(true))
	defer r.Close()

	primary, err := r.Start("main", tree(0, 2))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if primary.mounted == nil {
		t.Error("registry options not applied to the coordinator")
	}
	if _, err := r.Start("side", tree(0, 3), WithSubscriberBuffer(2)); err != nil {
		t.Fatalf("Start(side) error = %v", err)
	}
	if got := gaugeValue(t, m.surfaces); got != 2 {
		t.Errorf("surfaces = %v, want 2", got)
	}

	if _, err := r.Start("main", tree(0, 2)); !errors.HasCode(err, "E313") {
		t.Errorf("Start(main) again error = %v, want E313", err)
	}
	if _, err := r.Start("empty", nil); !errors.HasCode(err, "E311") {
		t.Errorf("Start(nil root) error = %v, want E311", err)
	}

	got, err := r.Get("main")
	if err != nil || got != primary {
		t.Fatalf("Get(main) = %v, %v", got, err)
	}
	if _, err := r.Get("missing"); !errors.HasCode(err, "E312") {
		t.Errorf("Get(missing) error = %v, want E312", err)
	}
	if ids := r.IDs(); !slices.Equal(ids, []string{"main", "side"}) {
		t.Errorf("IDs() = %v", ids)
	}

	if err := r.Stop("main"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := r.Stop("main"); !errors.HasCode(err, "E312") {
		t.Errorf("Stop(main) again error = %v, want E312", err)
	}
	if _, err := primary.Commit(context.Background(), tree(1, 2)); !errors.HasCode(err, "E312") {
		t.Errorf("Commit() on stopped surface error = %v, want E312", err)
	}
	if got := gaugeValue(t, m.surfaces); got != 1 {
		t.Errorf("surfaces = %v, want 1", got)
	}

	r.Close()
	if len(r.IDs()) != 0 {
		t.Errorf("IDs() after Close = %v", r.IDs())
	}
}

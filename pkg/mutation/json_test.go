package mutation

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/viewdiff/pkg/shadow"
)

func TestMutationMarshalJSON(t *testing.T) {
	parent := view(1)
	old := shadow.View{
		Tag:           2,
		ComponentName: "Text",
		Props:         shadow.NewProps(map[string]any{"text": "a"}),
	}
	updated := old
	updated.Props = shadow.NewProps(map[string]any{"text": "b"})
	updated.LayoutMetrics = shadow.LayoutMetrics{Frame: shadow.Rect{Size: shadow.Size{Width: 10, Height: 5}}}
	updated.State = &shadow.State{Revision: 2}

	tests := []struct {
		name string
		m    Mutation
		want map[string]any
	}{
		{
			name: "create",
			m:    Create(old),
			want: map[string]any{
				"type": "Create",
				"tag":  float64(2),
				"view": map[string]any{"component": "Text", "props": map[string]any{"text": "a"}},
			},
		},
		{
			name: "remove",
			m:    Remove(parent, old, 3),
			want: map[string]any{
				"type":   "Remove",
				"tag":    float64(2),
				"parent": float64(1),
				"index":  float64(3),
				"view":   map[string]any{"component": "Text", "props": map[string]any{"text": "a"}},
			},
		},
		{
			name: "update",
			m:    Update(parent, old, updated, 0),
			want: map[string]any{
				"type":    "Update",
				"tag":     float64(2),
				"parent":  float64(1),
				"index":   float64(0),
				"changed": []any{"frame", "props", "state"},
				"view": map[string]any{
					"component": "Text",
					"frame":     []any{float64(0), float64(0), float64(10), float64(5)},
					"props":     map[string]any{"text": "b"},
					"state":     map[string]any{"revision": float64(2)},
				},
			},
		},
		{
			name: "root update",
			m:    Update(shadow.View{}, view(1), view(1), RootIndex),
			want: map[string]any{
				"type":  "Update",
				"tag":   float64(1),
				"index": float64(RootIndex),
				"view":  map[string]any{"component": "View"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.m)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("JSON mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChangedOnlyForUpdate(t *testing.T) {
	if got := Insert(view(1), view(2), 0).Changed(); got != nil {
		t.Errorf("Insert.Changed() = %v, want nil", got)
	}
	if got := Update(view(1), view(2), view(2), 0).Changed(); len(got) != 0 {
		t.Errorf("Update of equal views Changed() = %v, want empty", got)
	}
}

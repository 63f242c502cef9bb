package shadow

import "testing"

func TestViewEqual(t *testing.T) {
	props := NewProps(map[string]any{"opacity": 0.5})
	base := View{
		Tag:             7,
		ComponentName:   "View",
		ComponentHandle: HandleForComponent("View"),
		Props:           props,
		LayoutMetrics:   LayoutMetrics{Frame: Rect{Size: Size{Width: 10, Height: 10}}},
	}

	tests := []struct {
		name   string
		mutate func(v View) View
		want   bool
	}{
		{"identical", func(v View) View { return v }, true},
		{"name only", func(v View) View { v.ComponentName = "Other"; return v }, true},
		{"tag", func(v View) View { v.Tag = 8; return v }, false},
		{"handle", func(v View) View { v.ComponentHandle++; return v }, false},
		{"frame", func(v View) View {
			v.LayoutMetrics.Frame.Size.Width = 20
			return v
		}, false},
		{"props value equal", func(v View) View {
			v.Props = NewProps(map[string]any{"opacity": 0.5})
			return v
		}, true},
		{"props value differs", func(v View) View {
			v.Props = props.With("opacity", 1.0)
			return v
		}, false},
		{"state added", func(v View) View { v.State = &State{Revision: 1}; return v }, false},
		{"local data added", func(v View) View { v.LocalData = &LocalData{Value: "x"}; return v }, false},
		{"emitter added", func(v View) View { v.EventEmitter = &EventEmitter{Target: 7}; return v }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := tt.mutate(base)
			if got := base.Equal(other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := other.Equal(base); got != tt.want {
				t.Errorf("Equal() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewIsZero(t *testing.T) {
	if !(View{}).IsZero() {
		t.Error("zero View should report IsZero")
	}
	if (View{Tag: 1}).IsZero() {
		t.Error("View with a tag should not report IsZero")
	}
}

func TestPropsCopyOnWrite(t *testing.T) {
	p1 := NewProps(map[string]any{"a": "1"})
	p2 := p1.With("b", "2")

	if p1.Len() != 1 {
		t.Errorf("p1.Len() = %d, want 1", p1.Len())
	}
	if p2.Len() != 2 {
		t.Errorf("p2.Len() = %d, want 2", p2.Len())
	}
	if _, ok := p1.Get("b"); ok {
		t.Error("With must not modify the receiver")
	}
	if p1.Equal(p2) {
		t.Error("p1 and p2 should differ")
	}

	var nilProps *Props
	if !nilProps.Equal(NewProps(nil)) {
		t.Error("nil and empty props should be equal")
	}
	if got := nilProps.With("k", 1).Len(); got != 1 {
		t.Errorf("With on nil Len() = %d, want 1", got)
	}
}

func TestStateEqual(t *testing.T) {
	a := &State{Revision: 2, Value: map[string]any{"x": 1}}
	b := &State{Revision: 2, Value: map[string]any{"x": 1}}
	c := &State{Revision: 3, Value: map[string]any{"x": 1}}

	if !a.Equal(b) {
		t.Error("states with equal revision and value should be equal")
	}
	if a.Equal(c) {
		t.Error("states with different revisions should differ")
	}
	if a.Equal(nil) {
		t.Error("state should not equal nil")
	}
}

func TestEventEmitterEqual(t *testing.T) {
	a := &EventEmitter{Target: 1, Events: []string{"press"}}
	b := &EventEmitter{Target: 1, Events: []string{"press"}}
	c := &EventEmitter{Target: 1, Events: []string{"press", "layout"}}

	if !a.Equal(b) {
		t.Error("emitters with same target and events should be equal")
	}
	if a.Equal(c) {
		t.Error("emitters with different events should differ")
	}
}

package mutation

import (
	"encoding/json"

	"github.com/vango-dev/viewdiff/pkg/shadow"
)

type viewJSON struct {
	Component string         `json:"component,omitempty"`
	Frame     []float64      `json:"frame,omitempty"`
	Props     map[string]any `json:"props,omitempty"`
	Events    []string       `json:"events,omitempty"`
	State     *stateJSON     `json:"state,omitempty"`
	LocalData any            `json:"localData,omitempty"`
}

type stateJSON struct {
	Revision int64 `json:"revision"`
	Value    any   `json:"value,omitempty"`
}

type mutationJSON struct {
	Type    string      `json:"type"`
	Tag     shadow.Tag  `json:"tag"`
	Parent  *shadow.Tag `json:"parent,omitempty"`
	Index   *int        `json:"index,omitempty"`
	Changed []string    `json:"changed,omitempty"`
	View    viewJSON    `json:"view"`
}

func toViewJSON(v shadow.View) viewJSON {
	out := viewJSON{Component: v.ComponentName}
	if !v.LayoutMetrics.IsEmpty() {
		f := v.LayoutMetrics.Frame
		out.Frame = []float64{f.Origin.X, f.Origin.Y, f.Size.Width, f.Size.Height}
	}
	if v.Props.Len() > 0 {
		out.Props = v.Props.Map()
	}
	if v.EventEmitter != nil {
		out.Events = v.EventEmitter.Events
	}
	if v.State != nil {
		out.State = &stateJSON{Revision: v.State.Revision, Value: v.State.Value}
	}
	if v.LocalData != nil {
		out.LocalData = v.LocalData.Value
	}
	return out
}

// Changed lists the parts of the view that an Update changes, in a fixed
// order: "component", "frame", "props", "events", "state", "localData".
// It is empty for other mutation types.
func (m Mutation) Changed() []string {
	if m.Type != TypeUpdate {
		return nil
	}
	o, n := m.Old, m.New
	var out []string
	if o.ComponentHandle != n.ComponentHandle {
		out = append(out, "component")
	}
	if o.LayoutMetrics != n.LayoutMetrics {
		out = append(out, "frame")
	}
	if !o.Props.Equal(n.Props) {
		out = append(out, "props")
	}
	if !o.EventEmitter.Equal(n.EventEmitter) {
		out = append(out, "events")
	}
	if !o.State.Equal(n.State) {
		out = append(out, "state")
	}
	if !o.LocalData.Equal(n.LocalData) {
		out = append(out, "localData")
	}
	return out
}

// MarshalJSON renders the mutation with the view it carries: the new view
// for Create, Insert and Update, the old view for Delete and Remove.
// Parent and index are omitted where they do not apply.
func (m Mutation) MarshalJSON() ([]byte, error) {
	out := mutationJSON{
		Type:    m.Type.String(),
		Tag:     m.Tag(),
		Changed: m.Changed(),
	}
	switch m.Type {
	case TypeDelete, TypeRemove:
		out.View = toViewJSON(m.Old)
	default:
		out.View = toViewJSON(m.New)
	}
	if m.Type != TypeCreate && m.Type != TypeDelete {
		index := m.Index
		out.Index = &index
		if !m.IsRoot() {
			parent := m.Parent.Tag
			out.Parent = &parent
		}
	}
	return json.Marshal(out)
}

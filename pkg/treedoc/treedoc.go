// Package treedoc reads and writes node trees as JSON or YAML documents.
//
// A document is a single root node:
//
//	tag: 1
//	component: Root
//	frame: [0, 0, 320, 480]
//	children:
//	  - tag: 2
//	    component: Text
//	    props: {text: hello}
//	  - tag: 10
//	    component: Row
//	    layoutOnly: true
//	    frame: [0, 40, 320, 40]
//	    children:
//	      - {tag: 3, component: Image, frame: [0, 0, 40, 40]}
package treedoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/shadow"
)

// Format is a document encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
)

// String returns the string representation of the Format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatFor picks the format from a file name's extension.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, errors.New("E203").WithDetailf("%s has no .json, .yaml or .yml extension", name)
	}
}

// Node is one node of a tree document.
type Node struct {
	Tag        shadow.Tag     `json:"tag" yaml:"tag"`
	Component  string         `json:"component,omitempty" yaml:"component,omitempty"`
	Frame      []float64      `json:"frame,omitempty" yaml:"frame,omitempty,flow"`
	LayoutOnly bool           `json:"layoutOnly,omitempty" yaml:"layoutOnly,omitempty"`
	OrderIndex int            `json:"orderIndex,omitempty" yaml:"orderIndex,omitempty"`
	Props      map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	Events     []string       `json:"events,omitempty" yaml:"events,omitempty,flow"`
	State      *State         `json:"state,omitempty" yaml:"state,omitempty"`
	LocalData  any            `json:"localData,omitempty" yaml:"localData,omitempty"`
	Children   []*Node        `json:"children,omitempty" yaml:"children,omitempty"`

	// Position in a YAML source, zero for JSON.
	line, column int
}

// State is a node's state document.
type State struct {
	Revision int64 `json:"revision" yaml:"revision"`
	Value    any   `json:"value,omitempty" yaml:"value,omitempty"`
}

// UnmarshalYAML records where the node starts in the source.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	type plain Node
	if err := value.Decode((*plain)(n)); err != nil {
		return err
	}
	n.line, n.column = value.Line, value.Column
	return nil
}

// Decode parses a document and builds its node tree. name is only used in
// error locations and may be empty.
func Decode(data []byte, f Format, name string) (*shadow.Element, error) {
	var doc Node
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.New("E200").Wrap(err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.New("E200").Wrap(err)
		}
	default:
		return nil, errors.New("E203").WithDetailf("unsupported format %s", f)
	}

	b := builder{name: name, seen: make(map[shadow.Tag]string)}
	return b.build(&doc, "$")
}

// DecodeFile is Decode with the format picked from name.
func DecodeFile(name string, data []byte) (*shadow.Element, error) {
	f, err := FormatFor(name)
	if err != nil {
		return nil, err
	}
	return Decode(data, f, name)
}

type builder struct {
	name string
	seen map[shadow.Tag]string
}

func (b *builder) fail(code string, n *Node, path string) *errors.Error {
	err := errors.New(code).WithDetailf("node %s", path)
	if n.line > 0 && b.name != "" {
		err = err.WithLocation(b.name, n.line, n.column)
	}
	return err
}

func (b *builder) build(n *Node, path string) (*shadow.Element, error) {
	if n.Tag == shadow.NoTag {
		return nil, b.fail("E201", n, path).WithSuggestion("Give every node a non-zero tag")
	}
	if prev, dup := b.seen[n.Tag]; dup {
		return nil, b.fail("E202", n, path).WithSuggestion(fmt.Sprintf("Tag %d is already used by %s", n.Tag, prev))
	}
	b.seen[n.Tag] = path

	opts := make([]shadow.Option, 0, 8)
	if len(n.Frame) > 0 {
		if len(n.Frame) != 4 {
			return nil, b.fail("E200", n, path).WithSuggestion("frame is [x, y, width, height]")
		}
		opts = append(opts, shadow.WithFrame(shadow.Rect{
			Origin: shadow.Point{X: n.Frame[0], Y: n.Frame[1]},
			Size:   shadow.Size{Width: n.Frame[2], Height: n.Frame[3]},
		}))
	}
	if n.LayoutOnly {
		opts = append(opts, shadow.LayoutOnly())
	}
	if n.OrderIndex != 0 {
		opts = append(opts, shadow.WithOrderIndex(n.OrderIndex))
	}
	if len(n.Props) > 0 {
		opts = append(opts, shadow.WithProps(shadow.NewProps(normalize(n.Props).(map[string]any))))
	}
	if len(n.Events) > 0 {
		opts = append(opts, shadow.WithEventEmitter(&shadow.EventEmitter{Target: n.Tag, Events: n.Events}))
	}
	if n.State != nil {
		opts = append(opts, shadow.WithState(&shadow.State{Revision: n.State.Revision, Value: normalize(n.State.Value)}))
	}
	if n.LocalData != nil {
		opts = append(opts, shadow.WithLocalData(&shadow.LocalData{Value: normalize(n.LocalData)}))
	}

	if len(n.Children) > 0 {
		children := make([]shadow.Node, len(n.Children))
		for i, c := range n.Children {
			child, err := b.build(c, fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		opts = append(opts, shadow.WithChildren(children...))
	}

	component := n.Component
	if component == "" {
		component = "View"
	}
	return shadow.NewElement(n.Tag, component, opts...), nil
}

// normalize maps decoded numbers to int64 or float64 so values decoded
// from JSON and YAML compare equal.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case int:
		return int64(x)
	case uint64:
		return int64(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// FromNode converts a node tree into a document tree.
func FromNode(node shadow.Node) *Node {
	v := node.View()
	n := &Node{
		Tag:        v.Tag,
		Component:  v.ComponentName,
		LayoutOnly: node.Traits().Has(shadow.TraitLayoutOnly),
		OrderIndex: node.OrderIndex(),
	}
	if !v.LayoutMetrics.IsEmpty() {
		f := v.LayoutMetrics.Frame
		n.Frame = []float64{f.Origin.X, f.Origin.Y, f.Size.Width, f.Size.Height}
	}
	if v.Props.Len() > 0 {
		n.Props = v.Props.Map()
	}
	if v.EventEmitter != nil {
		n.Events = v.EventEmitter.Events
	}
	if v.State != nil {
		n.State = &State{Revision: v.State.Revision, Value: v.State.Value}
	}
	if v.LocalData != nil {
		n.LocalData = v.LocalData.Value
	}
	for _, c := range node.Children() {
		n.Children = append(n.Children, FromNode(c))
	}
	return n
}

// Encode writes the node tree rooted at root as a document.
func Encode(root shadow.Node, f Format) ([]byte, error) {
	doc := FromNode(root)
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.New("E203").WithDetailf("unsupported format %s", f)
	}
}

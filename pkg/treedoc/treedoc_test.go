package treedoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/shadow"
	"github.com/vango-dev/viewdiff/pkg/stub"
)

const yamlDoc = `tag: 1
component: Root
frame: [0, 0, 320, 480]
children:
  - tag: 2
    component: Text
    props: {text: hello, size: 14}
    events: [press]
  - tag: 10
    component: Row
    layoutOnly: true
    frame: [0, 40, 320, 40]
    children:
      - {tag: 3, component: Image, frame: [5, 0, 40, 40]}
      - tag: 4
        state: {revision: 2, value: {loaded: true}}
`

const jsonDoc = `{
  "tag": 1,
  "component": "Root",
  "frame": [0, 0, 320, 480],
  "children": [
    {"tag": 2, "component": "Text", "props": {"text": "hello", "size": 14}, "events": ["press"]},
    {"tag": 10, "component": "Row", "layoutOnly": true, "frame": [0, 40, 320, 40], "children": [
      {"tag": 3, "component": "Image", "frame": [5, 0, 40, 40]},
      {"tag": 4, "state": {"revision": 2, "value": {"loaded": true}}}
    ]}
  ]
}`

func TestDecodeYAML(t *testing.T) {
	root, err := Decode([]byte(yamlDoc), FormatYAML, "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if root.Tag() != 1 || root.View().ComponentName != "Root" {
		t.Errorf("root = %s, want Root#1", root.View())
	}

	pairs := shadow.SliceChildren(root)
	var tags []shadow.Tag
	for _, p := range pairs {
		tags = append(tags, p.View.Tag)
	}
	if diff := cmp.Diff([]shadow.Tag{2, 3, 4}, tags); diff != "" {
		t.Errorf("sliced tags mismatch (-want +got):\n%s", diff)
	}

	text := pairs[0].View
	if v, _ := text.Props.Get("size"); v != int64(14) {
		t.Errorf("size prop = %#v, want int64(14)", v)
	}
	if text.EventEmitter == nil || text.EventEmitter.Target != 2 {
		t.Errorf("event emitter = %+v", text.EventEmitter)
	}
	if got := pairs[1].View.LayoutMetrics.Frame.Origin; got != (shadow.Point{X: 5, Y: 40}) {
		t.Errorf("image origin = %+v, want {5 40}", got)
	}
	if got := pairs[2].View.ComponentName; got != "View" {
		t.Errorf("default component = %q, want View", got)
	}
	if st := pairs[2].View.State; st == nil || st.Revision != 2 {
		t.Errorf("state = %+v", st)
	}
}

func TestDecodeFormatsAgree(t *testing.T) {
	fromYAML, err := Decode([]byte(yamlDoc), FormatYAML, "")
	if err != nil {
		t.Fatal(err)
	}
	fromJSON, err := Decode([]byte(jsonDoc), FormatJSON, "")
	if err != nil {
		t.Fatal(err)
	}

	if diff := stub.Build(fromYAML).Diff(stub.Build(fromJSON)); len(diff) != 0 {
		t.Errorf("YAML and JSON trees differ:\n%s", strings.Join(diff, "\n"))
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	root, err := Decode([]byte(yamlDoc), FormatYAML, "")
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(f.String(), func(t *testing.T) {
			data, err := Encode(root, f)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			back, err := Decode(data, f, "")
			if err != nil {
				t.Fatalf("Decode() error = %v\n%s", err, data)
			}
			if diff := stub.Build(root).Diff(stub.Build(back)); len(diff) != 0 {
				t.Errorf("round trip changed the tree:\n%s\n%s", strings.Join(diff, "\n"), data)
			}
			if !back.Children()[1].Traits().Has(shadow.TraitLayoutOnly) {
				t.Error("layoutOnly lost in round trip")
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		f    Format
		code string
	}{
		{"malformed json", `{"tag": `, FormatJSON, "E200"},
		{"malformed yaml", "tag: [1", FormatYAML, "E200"},
		{"missing root tag", `{"component": "Root"}`, FormatJSON, "E201"},
		{"missing child tag", "tag: 1\nchildren:\n  - component: View\n", FormatYAML, "E201"},
		{"duplicate tag", "tag: 1\nchildren:\n  - tag: 2\n  - tag: 2\n", FormatYAML, "E202"},
		{"short frame", `{"tag": 1, "frame": [0, 0]}`, FormatJSON, "E200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc), tt.f, "")
			if !errors.HasCode(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestDecodeFileLocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.yaml")
	doc := "tag: 1\nchildren:\n  - tag: 2\n  - component: View\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := DecodeFile(path, []byte(doc))
	if !errors.HasCode(err, "E201") {
		t.Fatalf("DecodeFile() error = %v, want E201", err)
	}
	ve := errors.FromError(err, "E201")
	if ve.Location == nil || ve.Location.Line != 4 {
		t.Errorf("Location = %v, want line 4", ve.Location)
	}
	if ve.Detail != "node $.children[1]" {
		t.Errorf("Detail = %q", ve.Detail)
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"tree.json", FormatJSON, false},
		{"trees/a.YAML", FormatYAML, false},
		{"b.yml", FormatYAML, false},
		{"c.txt", 0, true},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFor(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("FormatFor(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

package differ

import (
	"bytes"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/viewdiff/pkg/mutation"
	"github.com/vango-dev/viewdiff/pkg/shadow"
	"github.com/vango-dev/viewdiff/pkg/stub"
)

const rootTag shadow.Tag = 100

var modes = []Mode{ModeClassic, ModeOptimizedMoves}

func el(tag shadow.Tag, children ...shadow.Node) *shadow.Element {
	return shadow.NewElement(tag, "View", shadow.WithChildren(children...))
}

func root(children ...shadow.Node) *shadow.Element {
	return shadow.NewElement(rootTag, "Root", shadow.WithChildren(children...))
}

func frame(x, y, w, h float64) shadow.Rect {
	return shadow.Rect{Origin: shadow.Point{X: x, Y: y}, Size: shadow.Size{Width: w, Height: h}}
}

// checkConverges applies l to a stub tree built from oldRoot and compares
// the result with a stub tree built from newRoot.
func checkConverges(t *testing.T, oldRoot, newRoot shadow.Node, l mutation.List) {
	t.Helper()
	tree := stub.Build(oldRoot)
	if err := tree.Apply(l); err != nil {
		t.Fatalf("Apply() error = %v\nmutations:\n%s", err, l)
	}
	if diff := tree.Diff(stub.Build(newRoot)); len(diff) != 0 {
		t.Fatalf("tree did not converge:\n%s\nmutations:\n%s", strings.Join(diff, "\n"), l)
	}
}

func TestCalculateScenarios(t *testing.T) {
	one := el(1)
	two := el(2)
	three := el(3)
	leaf := shadow.NewElement(1, "View", shadow.WithFrame(frame(0, 0, 10, 10)))

	tests := []struct {
		name     string
		old, new *shadow.Element
		want     map[Mode][]string
	}{
		{
			name: "insert into empty",
			old:  root(),
			new:  root(one),
			want: map[Mode][]string{
				ModeClassic:        {"Create(tag=1)", "Insert(parent=100, tag=1, index=0)"},
				ModeOptimizedMoves: {"Create(tag=1)", "Insert(parent=100, tag=1, index=0)"},
			},
		},
		{
			name: "swap first two",
			old:  root(one, two, three),
			new:  root(two, one, three),
			want: map[Mode][]string{
				ModeClassic: {
					"Remove(parent=100, tag=3, index=2)",
					"Remove(parent=100, tag=2, index=1)",
					"Remove(parent=100, tag=1, index=0)",
					"Insert(parent=100, tag=2, index=0)",
					"Insert(parent=100, tag=1, index=1)",
					"Insert(parent=100, tag=3, index=2)",
				},
				ModeOptimizedMoves: {
					"Remove(parent=100, tag=2, index=1)",
					"Insert(parent=100, tag=2, index=0)",
				},
			},
		},
		{
			name: "frame change",
			old:  root(leaf),
			new:  root(leaf.Clone(shadow.WithFrame(frame(0, 0, 20, 20)))),
			want: map[Mode][]string{
				ModeClassic:        {"Update(parent=100, tag=1, index=0)"},
				ModeOptimizedMoves: {"Update(parent=100, tag=1, index=0)"},
			},
		},
		{
			name: "delete subtree",
			old:  root(el(1, two, three)),
			new:  root(),
			want: map[Mode][]string{
				ModeClassic: {
					"Delete(tag=2)",
					"Delete(tag=3)",
					"Remove(parent=100, tag=1, index=0)",
					"Delete(tag=1)",
				},
				ModeOptimizedMoves: {
					"Delete(tag=2)",
					"Delete(tag=3)",
					"Remove(parent=100, tag=1, index=0)",
					"Delete(tag=1)",
				},
			},
		},
		{
			name: "insert in nested level",
			old:  root(el(1, two)),
			new:  root(el(1, two, three)),
			want: map[Mode][]string{
				ModeClassic:        {"Create(tag=3)", "Insert(parent=1, tag=3, index=1)"},
				ModeOptimizedMoves: {"Create(tag=3)", "Insert(parent=1, tag=3, index=1)"},
			},
		},
		{
			name: "append after prefix",
			old:  root(one, two),
			new:  root(one, two, three),
			want: map[Mode][]string{
				ModeClassic:        {"Create(tag=3)", "Insert(parent=100, tag=3, index=2)"},
				ModeOptimizedMoves: {"Create(tag=3)", "Insert(parent=100, tag=3, index=2)"},
			},
		},
		{
			name: "remove middle",
			old:  root(one, two, three),
			new:  root(one, three),
			want: map[Mode][]string{
				ModeClassic: {
					"Remove(parent=100, tag=3, index=2)",
					"Remove(parent=100, tag=2, index=1)",
					"Delete(tag=2)",
					"Insert(parent=100, tag=3, index=1)",
				},
				ModeOptimizedMoves: {
					"Remove(parent=100, tag=2, index=1)",
					"Delete(tag=2)",
				},
			},
		},
	}

	for _, tt := range tests {
		for _, mode := range modes {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				got := Calculate(tt.old, tt.new, WithMode(mode), WithAssertions())
				if diff := cmp.Diff(tt.want[mode], got.Strings()); diff != "" {
					t.Errorf("Calculate() mismatch (-want +got):\n%s", diff)
				}
				checkConverges(t, tt.old, tt.new, got)
			})
		}
	}
}

func TestCalculateNoChanges(t *testing.T) {
	build := func() *shadow.Element {
		return root(
			el(1, el(2), el(3)),
			shadow.NewElement(4, "Text", shadow.WithProps(shadow.NewProps(map[string]any{"text": "hi"}))),
		)
	}
	same := build()

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			if got := Calculate(same, same, WithMode(mode)); len(got) != 0 {
				t.Errorf("Calculate(t, t) = %v, want empty", got.Strings())
			}
			if got := Calculate(build(), build(), WithMode(mode)); len(got) != 0 {
				t.Errorf("Calculate() on equal generations = %v, want empty", got.Strings())
			}
		})
	}
}

func TestCalculateRootUpdate(t *testing.T) {
	old := root(el(1))
	next := old.Clone(shadow.WithState(&shadow.State{Revision: 1}))

	got := Calculate(old, next)
	if diff := cmp.Diff([]string{"Update(root, tag=100)"}, got.Strings()); diff != "" {
		t.Errorf("Calculate() mismatch (-want +got):\n%s", diff)
	}
	if !got[0].Parent.IsZero() {
		t.Errorf("root update parent = %v, want zero view", got[0].Parent)
	}
	checkConverges(t, old, next, got)
}

func TestCalculateMovedNodeUpdated(t *testing.T) {
	one := el(1)
	two := el(2)
	twoNext := two.Clone(shadow.WithProps(shadow.NewProps(map[string]any{"color": "red"})))

	want := map[Mode][]string{
		ModeClassic: {
			"Update(parent=100, tag=2, index=1)",
			"Remove(parent=100, tag=2, index=1)",
			"Remove(parent=100, tag=1, index=0)",
			"Insert(parent=100, tag=2, index=0)",
			"Insert(parent=100, tag=1, index=1)",
		},
		ModeOptimizedMoves: {
			"Update(parent=100, tag=2, index=1)",
			"Remove(parent=100, tag=2, index=1)",
			"Insert(parent=100, tag=2, index=0)",
		},
	}

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			old, next := root(one, two), root(twoNext, one)
			got := Calculate(old, next, WithMode(mode))
			if diff := cmp.Diff(want[mode], got.Strings()); diff != "" {
				t.Errorf("Calculate() mismatch (-want +got):\n%s", diff)
			}
			checkConverges(t, old, next, got)
		})
	}
}

func TestCalculateMovedNodeRecursion(t *testing.T) {
	inner := el(5)
	moved := el(2, inner)
	movedNext := moved.Clone(shadow.WithChildren(inner, el(6)))

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			old, next := root(el(1), moved), root(movedNext, el(1))
			got := Calculate(old, next, WithMode(mode))
			if n := len(got.ForTag(6)); n != 2 {
				t.Errorf("mutations for new grandchild = %v, want Create and Insert", got.ForTag(6).Strings())
			}
			checkConverges(t, old, next, got)
		})
	}
}

func TestCalculateLayoutOnly(t *testing.T) {
	one := shadow.NewElement(1, "View", shadow.WithFrame(frame(0, 0, 5, 5)))
	two := shadow.NewElement(2, "View", shadow.WithFrame(frame(5, 5, 5, 5)))
	wrapper := shadow.NewElement(10, "Wrapper", shadow.LayoutOnly(),
		shadow.WithFrame(frame(10, 10, 50, 50)),
		shadow.WithChildren(one, two))
	old := root(wrapper)

	t.Run("unwrapped with same absolute frames", func(t *testing.T) {
		next := root(
			one.Clone(shadow.WithFrame(frame(10, 10, 5, 5))),
			two.Clone(shadow.WithFrame(frame(15, 15, 5, 5))),
		)
		if got := Calculate(old, next, WithAssertions()); len(got) != 0 {
			t.Errorf("Calculate() = %v, want empty", got.Strings())
		}
	})

	t.Run("wrapper moved", func(t *testing.T) {
		next := root(wrapper.Clone(shadow.WithFrame(frame(20, 10, 50, 50))))
		got := Calculate(old, next, WithAssertions())
		want := []string{
			"Update(parent=100, tag=1, index=0)",
			"Update(parent=100, tag=2, index=1)",
		}
		if diff := cmp.Diff(want, got.Strings()); diff != "" {
			t.Errorf("Calculate() mismatch (-want +got):\n%s", diff)
		}
		if x := got[0].New.LayoutMetrics.Frame.Origin.X; x != 20 {
			t.Errorf("updated origin x = %v, want 20", x)
		}
		checkConverges(t, old, next, got)
	})

	t.Run("wrapper never mounted", func(t *testing.T) {
		got := Calculate(root(), old, WithAssertions())
		if n := len(got.ForTag(10)); n != 0 {
			t.Errorf("layout-only node got mutations: %v", got.ForTag(10).Strings())
		}
		checkConverges(t, root(), old, got)
	})
}

func TestCalculateLayoutOnlyToggled(t *testing.T) {
	two := el(2)
	one := el(1, two)

	tests := []struct {
		name     string
		old, new *shadow.Element
		want     []string
	}{
		{
			name: "flattened",
			old:  root(one),
			new:  root(one.Clone(shadow.LayoutOnly())),
			want: []string{
				"Remove(parent=1, tag=2, index=0)",
				"Remove(parent=100, tag=1, index=0)",
				"Delete(tag=1)",
				"Insert(parent=100, tag=2, index=0)",
			},
		},
		{
			name: "unflattened",
			old:  root(one.Clone(shadow.LayoutOnly())),
			new:  root(one),
			want: []string{
				"Remove(parent=100, tag=2, index=0)",
				"Create(tag=1)",
				"Insert(parent=1, tag=2, index=0)",
				"Insert(parent=100, tag=1, index=0)",
			},
		},
	}

	for _, tt := range tests {
		for _, mode := range modes {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				got := Calculate(tt.old, tt.new, WithMode(mode), WithAssertions())
				if diff := cmp.Diff(tt.want, got.Strings()); diff != "" {
					t.Errorf("Calculate() mismatch (-want +got):\n%s", diff)
				}
				checkListProperties(t, got)
				checkConverges(t, tt.old, tt.new, got)
			})
		}
	}
}

func TestCalculateLayoutOnlyToggledKeepsViews(t *testing.T) {
	two := shadow.NewElement(2, "View", shadow.WithFrame(frame(0, 0, 5, 5)))
	four, five := el(4), el(5)
	three := el(3, four, two, five)
	one := shadow.NewElement(1, "View", shadow.WithFrame(frame(10, 10, 50, 50)),
		shadow.WithChildren(three))

	tests := []struct {
		name     string
		old, new *shadow.Element
		kept     []shadow.Tag
	}{
		{
			name: "host child moves up",
			old:  root(one),
			new:  root(one.Clone(shadow.LayoutOnly())),
			kept: []shadow.Tag{2, 3, 4, 5},
		},
		{
			name: "two levels flattened with deleted siblings",
			old:  root(one),
			new: root(one.Clone(shadow.LayoutOnly(), shadow.WithChildren(
				three.Clone(shadow.LayoutOnly(), shadow.WithChildren(two))))),
			kept: []shadow.Tag{2},
		},
		{
			name: "two levels unflattened",
			old: root(one.Clone(shadow.LayoutOnly(), shadow.WithChildren(
				three.Clone(shadow.LayoutOnly())))),
			new:  root(one),
			kept: []shadow.Tag{2, 4, 5},
		},
		{
			name: "flatten and unflatten on one path",
			old: root(one.Clone(shadow.WithChildren(
				three.Clone(shadow.LayoutOnly())))),
			new: root(one.Clone(shadow.LayoutOnly())),
			kept: []shadow.Tag{2, 4, 5},
		},
	}

	for _, tt := range tests {
		for _, mode := range modes {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				got := Calculate(tt.old, tt.new, WithMode(mode), WithAssertions())
				checkListProperties(t, got)
				checkConverges(t, tt.old, tt.new, got)
				for _, tag := range tt.kept {
					for _, m := range got.ForTag(tag) {
						if m.Type == mutation.TypeCreate || m.Type == mutation.TypeDelete {
							t.Errorf("kept view %d got %s\n%s", tag, m, got)
						}
					}
				}
			})
		}
	}
}

func TestCalculateChildMutationsUseNewParent(t *testing.T) {
	two := el(2)
	one := el(1, two)
	oneNext := one.Clone(
		shadow.WithProps(shadow.NewProps(map[string]any{"color": "red"})),
		shadow.WithChildren(two, el(3)),
	)
	parent := oneNext.View()

	tests := []struct {
		name     string
		old, new *shadow.Element
	}{
		{"common prefix", root(one), root(oneNext)},
		{"in place after insert", root(el(5), one), root(el(6), oneNext)},
	}

	for _, tt := range tests {
		for _, mode := range modes {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				got := Calculate(tt.old, tt.new, WithMode(mode), WithAssertions())
				var below int
				for _, m := range got {
					if m.Parent.Tag != 1 {
						continue
					}
					below++
					if !m.Parent.Equal(parent) {
						t.Errorf("%s carries the previous view of its parent", m)
					}
				}
				if below == 0 {
					t.Errorf("no mutations below tag 1: %v", got.Strings())
				}
				checkConverges(t, tt.old, tt.new, got)
			})
		}
	}
}

func TestCalculateSharedSubtreeSkipped(t *testing.T) {
	shared := el(1, el(2, el(3)), el(4))
	old := root(shared, el(5))
	next := root(shared, el(5), el(6))

	got := Calculate(old, next)
	for _, tag := range []shadow.Tag{1, 2, 3, 4, 5} {
		if ms := got.ForTag(tag); len(ms) != 0 {
			t.Errorf("unchanged view %d got mutations %v", tag, ms.Strings())
		}
	}
}

func TestCalculateChildren(t *testing.T) {
	parent := root().View()
	old := shadow.SliceChildren(root(el(1), el(2)))
	next := shadow.SliceChildren(root(el(2)))

	got := CalculateChildren(parent, old, next, WithMode(ModeOptimizedMoves))
	want := []string{"Remove(parent=100, tag=1, index=0)", "Delete(tag=1)"}
	if diff := cmp.Diff(want, got.Strings()); diff != "" {
		t.Errorf("CalculateChildren() mismatch (-want +got):\n%s", diff)
	}
}

func TestCalculateAssertions(t *testing.T) {
	tests := []struct {
		name     string
		old, new shadow.Node
	}{
		{"different families", el(1), el(2)},
		{"duplicate sibling tags", root(el(1), el(1)), root()},
		{"zero sibling tag", root(), root(el(0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Calculate() did not panic")
				}
			}()
			Calculate(tt.old, tt.new, WithAssertions())
		})
	}
}

func TestCalculateLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Calculate(root(), root(el(1)), WithLogger(logger), WithMode(ModeOptimizedMoves))

	out := buf.String()
	for _, want := range []string{"calculated mutations", "mutations=2", "mode=optimized", "creates=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeClassic, false},
		{"classic", ModeClassic, false},
		{"Optimized", ModeOptimizedMoves, false},
		{"optimized-moves", ModeOptimizedMoves, false},
		{"fast", ModeClassic, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// treeGen builds random node trees and random next generations of them.
// Nodes never change parents but may toggle layout-only, which moves their
// host descendants between levels without changing their tags.
type treeGen struct {
	rnd  *rand.Rand
	next shadow.Tag
}

func (g *treeGen) frame() shadow.Rect {
	return frame(float64(g.rnd.Intn(4)*10), float64(g.rnd.Intn(4)*10), 10, 10)
}

func (g *treeGen) subtree(depth int) *shadow.Element {
	opts := []shadow.Option{shadow.WithFrame(g.frame())}
	if depth > 0 && g.rnd.Intn(5) == 0 {
		opts = append(opts, shadow.LayoutOnly())
	}
	if depth < 3 {
		children := make([]shadow.Node, g.rnd.Intn(5))
		for i := range children {
			children[i] = g.subtree(depth + 1)
		}
		opts = append(opts, shadow.WithChildren(children...))
	}
	g.next++
	return shadow.NewElement(g.next, "View", opts...)
}

func (g *treeGen) mutate(e *shadow.Element, depth int) *shadow.Element {
	if g.rnd.Intn(4) == 0 {
		return e
	}

	kids := slices.Clone(e.Children())
	for i, c := range kids {
		kids[i] = g.mutate(c.(*shadow.Element), depth+1)
	}
	for edits := g.rnd.Intn(3); edits > 0; edits-- {
		switch op := g.rnd.Intn(4); {
		case op == 0 && len(kids) > 0:
			i := g.rnd.Intn(len(kids))
			kids = slices.Delete(kids, i, i+1)
		case op == 1 && depth < 3:
			kids = slices.Insert(kids, g.rnd.Intn(len(kids)+1), shadow.Node(g.subtree(depth+1)))
		case op == 2 && len(kids) > 1:
			i, j := g.rnd.Intn(len(kids)), g.rnd.Intn(len(kids))
			kids[i], kids[j] = kids[j], kids[i]
		case op == 3 && len(kids) > 1:
			moved := kids[g.rnd.Intn(len(kids))]
			kids = slices.DeleteFunc(kids, func(n shadow.Node) bool { return n == moved })
			kids = slices.Insert(kids, g.rnd.Intn(len(kids)+1), moved)
		}
	}

	opts := []shadow.Option{shadow.WithChildren(kids...)}
	if g.rnd.Intn(3) == 0 {
		opts = append(opts, shadow.WithFrame(g.frame()))
	}
	if g.rnd.Intn(4) == 0 {
		opts = append(opts, shadow.WithProps(shadow.NewProps(map[string]any{"v": g.rnd.Intn(3)})))
	}
	if depth > 0 && g.rnd.Intn(4) == 0 {
		opts = append(opts, shadow.WithTraits(e.Traits()^shadow.TraitLayoutOnly))
	}
	return e.Clone(opts...)
}

func checkListProperties(t *testing.T, l mutation.List) {
	t.Helper()

	created := map[shadow.Tag]int{}
	deleted := map[shadow.Tag]int{}
	lastRemove := map[shadow.Tag]int{}
	for _, m := range l {
		switch m.Type {
		case mutation.TypeCreate:
			created[m.Tag()]++
		case mutation.TypeDelete:
			deleted[m.Tag()]++
		case mutation.TypeRemove:
			if last, ok := lastRemove[m.Parent.Tag]; ok && m.Index >= last {
				t.Fatalf("removes from %d not in decreasing index order: %d after %d\n%s", m.Parent.Tag, m.Index, last, l)
			}
			lastRemove[m.Parent.Tag] = m.Index
		}
	}
	for tag, n := range created {
		if n > 1 || deleted[tag] > 0 {
			t.Fatalf("tag %d created %d times and deleted %d times\n%s", tag, n, deleted[tag], l)
		}
	}
	for tag, n := range deleted {
		if n > 1 {
			t.Fatalf("tag %d deleted %d times\n%s", tag, n, l)
		}
	}
}

func TestCalculateRandomTreesConverge(t *testing.T) {
	for seed := int64(0); seed < 300; seed++ {
		g := &treeGen{rnd: rand.New(rand.NewSource(seed))}
		old := g.subtree(0)
		next := g.mutate(old, 0)

		for _, mode := range modes {
			got := Calculate(old, next, WithMode(mode), WithAssertions())
			checkListProperties(t, got)
			checkConverges(t, old, next, got)

			if again := Calculate(next, next, WithMode(mode)); len(again) != 0 {
				t.Fatalf("seed %d: Calculate(next, next) = %v", seed, again.Strings())
			}
		}
	}
}

func TestCalculateModesAgreeOnLifecycle(t *testing.T) {
	for seed := int64(0); seed < 100; seed++ {
		g := &treeGen{rnd: rand.New(rand.NewSource(seed))}
		old := g.subtree(0)
		next := g.mutate(old, 0)

		classic := Calculate(old, next, WithMode(ModeClassic))
		optimized := Calculate(old, next, WithMode(ModeOptimizedMoves))
		if c, o := classic.Count(mutation.TypeCreate), optimized.Count(mutation.TypeCreate); c != o {
			t.Errorf("seed %d: creates classic=%d optimized=%d", seed, c, o)
		}
		if c, o := classic.Count(mutation.TypeDelete), optimized.Count(mutation.TypeDelete); c != o {
			t.Errorf("seed %d: deletes classic=%d optimized=%d", seed, c, o)
		}
	}
}

func BenchmarkCalculate(b *testing.B) {
	g := &treeGen{rnd: rand.New(rand.NewSource(1))}
	old := g.subtree(0)
	next := g.mutate(old, 0)

	for _, mode := range modes {
		b.Run(mode.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Calculate(old, next, WithMode(mode))
			}
		})
	}
}

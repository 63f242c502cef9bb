package stub

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/mutation"
	"github.com/vango-dev/viewdiff/pkg/shadow"
)

func el(tag shadow.Tag, children ...shadow.Node) *shadow.Element {
	return shadow.NewElement(tag, "View", shadow.WithChildren(children...))
}

func view(tag shadow.Tag) shadow.View {
	return el(tag).View()
}

func childrenOf(t *testing.T, tree *Tree, tag shadow.Tag) []shadow.Tag {
	t.Helper()
	v, ok := tree.Get(tag)
	if !ok {
		t.Fatalf("view %d not registered", tag)
	}
	return v.Children
}

func TestBuild(t *testing.T) {
	root := shadow.NewElement(1, "Root", shadow.WithChildren(
		el(2, el(4)),
		shadow.NewElement(10, "Wrapper", shadow.LayoutOnly(), shadow.WithChildren(el(3))),
	))

	tree := Build(root)

	if tree.Root() != 1 {
		t.Errorf("Root() = %d, want 1", tree.Root())
	}
	if tree.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tree.Len())
	}
	if diff := cmp.Diff([]shadow.Tag{2, 3}, childrenOf(t, tree, 1)); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tree.Get(10); ok {
		t.Error("layout-only node should not be mounted")
	}
	v, _ := tree.Get(3)
	if v.Parent != 1 {
		t.Errorf("parent of 3 = %d, want 1", v.Parent)
	}
}

func TestApplyConverges(t *testing.T) {
	tree := Build(el(1, el(2), el(3)))

	updated := view(3)
	updated.Props = shadow.NewProps(map[string]any{"opacity": 0.5})

	err := tree.Apply(mutation.List{
		mutation.Create(view(4)),
		mutation.Remove(view(1), view(2), 0),
		mutation.Delete(view(2)),
		mutation.Update(view(1), view(3), updated, 0),
		mutation.Insert(view(1), view(4), 1),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	p := shadow.NewProps(map[string]any{"opacity": 0.5})
	want := Build(el(1, el(3).Clone(shadow.WithProps(p)), el(4)))
	if diff := tree.Diff(want); len(diff) != 0 {
		t.Errorf("tree mismatch:\n%s", strings.Join(diff, "\n"))
	}
}

func TestApplyRejects(t *testing.T) {
	stale := view(2)
	stale.LayoutMetrics.Frame.Size.Width = 99

	tests := []struct {
		name string
		m    mutation.Mutation
		code string
	}{
		{"create existing", mutation.Create(view(2)), "E300"},
		{"create root", mutation.Create(view(1)), "E314"},
		{"delete unknown", mutation.Delete(view(9)), "E301"},
		{"delete with children", mutation.Delete(view(2)), "E302"},
		{"delete root", mutation.Delete(view(1)), "E314"},
		{"insert unknown", mutation.Insert(view(1), view(9), 0), "E303"},
		{"insert attached", mutation.Insert(view(1), view(3), 0), "E304"},
		{"insert into unknown parent", mutation.Insert(view(9), view(3), 0), "E309"},
		{"remove wrong index", mutation.Remove(view(1), view(3), 0), "E306"},
		{"remove out of range", mutation.Remove(view(1), view(3), 5), "E306"},
		{"remove root", mutation.Remove(view(1), view(1), 0), "E314"},
		{"update unknown", mutation.Update(view(1), view(9), view(9), 0), "E307"},
		{"update stale", mutation.Update(view(1), stale, view(2), 0), "E308"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Build(el(1, el(2, el(4)), el(3)))
			err := tree.Apply(mutation.List{tt.m})
			if err == nil {
				t.Fatalf("Apply(%s) succeeded, want %s", tt.m, tt.code)
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("Apply(%s) error = %v, want code %s", tt.m, err, tt.code)
			}
		})
	}
}

func TestApplyInsertBounds(t *testing.T) {
	tree := Build(el(1, el(2)))
	if err := tree.ApplyMutation(mutation.Create(view(3))); err != nil {
		t.Fatal(err)
	}
	if err := tree.ApplyMutation(mutation.Insert(view(1), view(3), 2)); !errors.HasCode(err, "E305") {
		t.Errorf("insert past end error = %v, want E305", err)
	}
	if err := tree.ApplyMutation(mutation.Insert(view(1), view(3), 1)); err != nil {
		t.Errorf("insert at end error = %v", err)
	}
	if diff := cmp.Diff([]shadow.Tag{2, 3}, childrenOf(t, tree, 1)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyReportsMutationIndex(t *testing.T) {
	tree := Build(el(1))
	err := tree.Apply(mutation.List{
		mutation.Create(view(2)),
		mutation.Create(view(2)),
	})
	if err == nil {
		t.Fatal("Apply() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "E300") {
		t.Errorf("error = %v, want E300", err)
	}
	var ve *errors.Error
	if !stderrors.As(err, &ve) {
		t.Fatalf("error %T is not *errors.Error", err)
	}
	if !strings.HasPrefix(ve.Detail, "mutation 1: Create(tag=2)") {
		t.Errorf("Detail = %q, want mutation 1", ve.Detail)
	}
}

func TestDeleteDetachesAttachedView(t *testing.T) {
	tree := Build(el(1, el(2, el(3), el(4))))

	err := tree.Apply(mutation.List{
		mutation.Delete(view(3)),
		mutation.Delete(view(4)),
		mutation.Remove(view(1), view(2), 0),
		mutation.Delete(view(2)),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !tree.Equal(Build(el(1))) {
		t.Errorf("tree not empty:\n%s", tree)
	}
}

func TestRemoveLeavesViewDetached(t *testing.T) {
	tree := Build(el(1, el(2), el(3)))
	if err := tree.ApplyMutation(mutation.Remove(view(1), view(2), 0)); err != nil {
		t.Fatal(err)
	}
	v, ok := tree.Get(2)
	if !ok || v.Attached() {
		t.Fatal("removed view should stay registered and detached")
	}
	if !strings.Contains(tree.String(), "detached: [2]") {
		t.Errorf("String() = %q", tree.String())
	}
}

func TestRootUpdate(t *testing.T) {
	tree := Build(el(1, el(2)))
	next := view(1)
	next.State = &shadow.State{Revision: 2}

	if err := tree.ApplyMutation(mutation.Update(shadow.View{}, view(1), next, mutation.RootIndex)); err != nil {
		t.Fatal(err)
	}
	v, _ := tree.Get(1)
	if !v.Snapshot.Equal(next) {
		t.Error("root snapshot not updated")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tree := Build(el(1, el(2)))
	c := tree.Clone()
	if err := c.ApplyMutation(mutation.Remove(view(1), view(2), 0)); err != nil {
		t.Fatal(err)
	}
	if got := childrenOf(t, tree, 1); len(got) != 1 {
		t.Errorf("original children = %v, want [2]", got)
	}
	if tree.Equal(c) {
		t.Error("clone should have diverged")
	}
}

func TestDiff(t *testing.T) {
	a := Build(el(1, el(2), el(3)))
	b := Build(el(1, el(3), el(4)))

	got := a.Diff(b)
	want := []string{
		"tag 1: children [2 3] != [3 4]",
		"tag 2: only in left",
		"tag 4: only in right",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
	}
}

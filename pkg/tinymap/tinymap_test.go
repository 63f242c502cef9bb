package tinymap

import (
	"testing"

	"github.com/vango-dev/viewdiff/pkg/shadow"
)

func TestInsertFind(t *testing.T) {
	var m Map[string]
	m.Insert(1, "one")
	m.Insert(2, "two")

	if v, ok := m.Find(2); !ok || v != "two" {
		t.Errorf("Find(2) = %q, %v; want two, true", v, ok)
	}
	if _, ok := m.Find(3); ok {
		t.Error("Find(3) should miss")
	}
	if _, ok := m.Find(shadow.NoTag); ok {
		t.Error("Find(0) should always miss")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestInsertZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Insert(0) should panic")
		}
	}()
	var m Map[int]
	m.Insert(shadow.NoTag, 1)
}

func TestErase(t *testing.T) {
	var m Map[int]
	for i := 1; i <= 5; i++ {
		m.Insert(shadow.Tag(i), i*10)
	}

	if !m.Erase(1) {
		t.Error("Erase(1) should report true")
	}
	if m.Erase(1) {
		t.Error("second Erase(1) should report false")
	}
	if m.Contains(1) {
		t.Error("erased key should be gone")
	}
	if !m.Erase(4) {
		t.Error("Erase(4) should report true")
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}

	// Erasing a third entry crosses the half-way mark and compacts.
	m.Erase(3)
	if v, ok := m.Find(5); !ok || v != 50 {
		t.Errorf("Find(5) = %d, %v; want 50, true", v, ok)
	}
	if len(m.entries) != 2 {
		t.Errorf("entries after compaction = %d, want 2", len(m.entries))
	}
	if m.numErased != 0 || m.erasedAtFront != 0 {
		t.Errorf("counters not reset: numErased=%d erasedAtFront=%d", m.numErased, m.erasedAtFront)
	}
}

func TestEraseAll(t *testing.T) {
	var m Map[int]
	m.Insert(1, 1)
	m.Insert(2, 2)
	m.Erase(2)
	m.Erase(1)

	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	if m.Contains(1) || m.Contains(2) {
		t.Error("map should be empty")
	}
	m.Insert(3, 3)
	if !m.Contains(3) {
		t.Error("map should be reusable after erasing everything")
	}
}

func TestGrowsPastInline(t *testing.T) {
	var m Map[int]
	n := InlineSize * 3
	for i := 1; i <= n; i++ {
		m.Insert(shadow.Tag(i), i)
	}
	for i := 1; i <= n; i++ {
		if v, ok := m.Find(shadow.Tag(i)); !ok || v != i {
			t.Fatalf("Find(%d) = %d, %v", i, v, ok)
		}
	}
	if m.Len() != n {
		t.Errorf("Len() = %d, want %d", m.Len(), n)
	}
}

func TestAllInsertionOrder(t *testing.T) {
	var m Map[int]
	for _, tag := range []shadow.Tag{5, 3, 9, 1} {
		m.Insert(tag, int(tag))
	}
	m.Erase(5)
	m.Erase(9)

	var got []shadow.Tag
	for tag := range m.All() {
		got = append(got, tag)
	}
	want := []shadow.Tag{3, 1}
	if len(got) != len(want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAllStopsEarly(t *testing.T) {
	var m Map[int]
	m.Insert(1, 1)
	m.Insert(2, 2)

	count := 0
	for range m.All() {
		count++
		break
	}
	if count != 1 {
		t.Errorf("iterations = %d, want 1", count)
	}
}

func BenchmarkFind(b *testing.B) {
	var m Map[int]
	for i := 1; i <= 12; i++ {
		m.Insert(shadow.Tag(i), i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Find(shadow.Tag(i%12 + 1))
	}
}

package collection

import (
	"testing"

	"github.com/google/uuid"
)

type item struct {
	id   uuid.UUID
	name string
}

func (i item) Key() uuid.UUID { return i.id }

func newItems(names ...string) []item {
	out := make([]item, len(names))
	for i, n := range names {
		out[i] = item{id: uuid.New(), name: n}
	}
	return out
}

func names(items []item) string {
	s := ""
	for _, it := range items {
		s += it.name
	}
	return s
}

func TestPrependGrowsByOne(t *testing.T) {
	items := newItems("a", "b")
	created := item{id: uuid.New(), name: "c"}

	out := Prepend(items, created)
	if len(out) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out))
	}
	if names(out) != "cab" {
		t.Fatalf("expected cab, got %s", names(out))
	}
	if len(items) != 2 {
		t.Fatal("input slice modified")
	}
}

func TestAppendGrowsByOne(t *testing.T) {
	out := Append(newItems("a", "b"), item{id: uuid.New(), name: "c"})
	if names(out) != "abc" {
		t.Fatalf("expected abc, got %s", names(out))
	}
}

func TestInsertExistingReplaces(t *testing.T) {
	items := newItems("a", "b")
	dup := item{id: items[1].id, name: "B"}

	out := Prepend(items, dup)
	if len(out) != 2 || names(out) != "aB" {
		t.Fatalf("expected aB, got %s", names(out))
	}
	out = Append(items, dup)
	if len(out) != 2 || names(out) != "aB" {
		t.Fatalf("expected aB, got %s", names(out))
	}
}

func TestRemove(t *testing.T) {
	items := newItems("a", "b", "c")
	out := Remove(items, items[1].id)
	if len(out) != 2 || names(out) != "ac" {
		t.Fatalf("expected ac, got %s", names(out))
	}
	if _, ok := Find(out, items[1].id); ok {
		t.Fatal("removed item still present")
	}
	if names(items) != "abc" {
		t.Fatal("input slice modified")
	}
}

func TestRemoveMissing(t *testing.T) {
	items := newItems("a")
	out := Remove(items, uuid.New())
	if len(out) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out))
	}
}

func TestReplace(t *testing.T) {
	items := newItems("a", "b")
	out := Replace(items, item{id: items[0].id, name: "A"})
	if names(out) != "Ab" {
		t.Fatalf("expected Ab, got %s", names(out))
	}
	out = Replace(items, item{id: uuid.New(), name: "z"})
	if names(out) != "ab" {
		t.Fatalf("unknown item should be ignored, got %s", names(out))
	}
}

func TestFind(t *testing.T) {
	items := newItems("a", "b")
	got, ok := Find(items, items[1].id)
	if !ok || got.name != "b" {
		t.Fatalf("expected b, got %+v", got)
	}
	if Index(items, uuid.New()) != -1 {
		t.Fatal("expected -1 for unknown id")
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ cursor, n, want int }{
		{0, 0, 0},
		{5, 3, 2},
		{-1, 3, 0},
		{1, 3, 1},
	}
	for _, c := range cases {
		if got := Clamp(c.cursor, c.n); got != c.want {
			t.Errorf("Clamp(%d, %d) = %d, want %d", c.cursor, c.n, got, c.want)
		}
	}
}

func TestUpsertKeepsOneEntryPerKey(t *testing.T) {
	items := newItems("a")
	created := item{id: uuid.New(), name: "b"}

	out := Upsert(items, created)
	out = Upsert(out, created)
	if Count(out, created.id) != 1 {
		t.Fatalf("expected exactly one entry, got %d", Count(out, created.id))
	}
	got, _ := Find(out, created.id)
	if got != created {
		t.Fatalf("stored entry differs: %+v", got)
	}
}

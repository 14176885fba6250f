package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testDoc struct {
	Name    string    `json:"name"`
	Score   float64   `json:"score"`
	Count   int       `json:"count"`
	Status  string    `json:"status"`
	Updated time.Time `json:"updated"`
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	var d testDoc
	if err := m.Get(context.Background(), "docs", "nope", &d); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: got %v, want ErrNotFound", err)
	}
}

func TestMemorySetGetUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := m.Set(ctx, "docs", "a", testDoc{Name: "first", Score: 42, Count: 1, Updated: now}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Update(ctx, "docs", "a", map[string]any{"count": 2, "status": "queued"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var got testDoc
	if err := m.Get(ctx, "docs", "a", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "first" || got.Count != 2 || got.Status != "queued" || got.Score != 42 {
		t.Errorf("merged doc: got %+v", got)
	}
	if !got.Updated.Equal(now) {
		t.Errorf("time field: got %v, want %v", got.Updated, now)
	}

	if err := m.Update(ctx, "docs", "missing", map[string]any{"count": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing: got %v, want ErrNotFound", err)
	}
}

func TestMemoryQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	docs := map[string]testDoc{
		"a": {Name: "a", Score: 10, Status: "pending"},
		"b": {Name: "b", Score: 49.5, Status: "pending"},
		"c": {Name: "c", Score: 50, Status: "processing"},
		"d": {Name: "d", Score: 95, Status: "pending"},
	}
	for id, d := range docs {
		if err := m.Set(ctx, "docs", id, d); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"below threshold", Query{Collection: "docs"}.Where("score", Lt, 50), []string{"a", "b"}},
		{"at least", Query{Collection: "docs"}.Where("score", Gte, 50), []string{"c", "d"}},
		{"status equals", Query{Collection: "docs"}.Where("status", Eq, "pending"), []string{"a", "b", "d"}},
		{"combined", Query{Collection: "docs"}.Where("status", Eq, "pending").Where("score", Lte, 49.5), []string{"a", "b"}},
		{"limit", Query{Collection: "docs", Limit: 1}, []string{"a"}},
		{"missing field never matches", Query{Collection: "docs"}.Where("other", Eq, "x"), nil},
		{"type mismatch", Query{Collection: "docs"}.Where("score", Eq, "10"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps, err := m.Query(ctx, tt.query)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			var ids []string
			for _, s := range snaps {
				ids = append(ids, s.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids: got %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("ids: got %v, want %v", ids, tt.want)
				}
			}
		})
	}
}

func TestMemoryCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Set(ctx, "docs", "a", testDoc{Name: "a", Count: 1}); err != nil {
		t.Fatal(err)
	}

	err := m.Commit(ctx, []Op{
		UpdateOp("docs", "a", map[string]any{"count": 5}),
		SetOp("docs", "b", testDoc{Name: "b"}),
		UpdateOp("docs", "ghost", map[string]any{"count": 9}),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Commit: got %v, want ErrNotFound", err)
	}

	var a testDoc
	if err := m.Get(ctx, "docs", "a", &a); err != nil {
		t.Fatal(err)
	}
	if a.Count != 1 {
		t.Errorf("a.count after failed commit: got %d, want 1", a.Count)
	}
	if m.Count("docs") != 1 {
		t.Errorf("doc count after failed commit: got %d, want 1", m.Count("docs"))
	}
}

func TestMemoryCommitHook(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("injected")
	m.OnCommit(func(ops []Op) error { return boom })

	if err := m.Set(ctx, "docs", "a", testDoc{Name: "a"}); !errors.Is(err, boom) {
		t.Fatalf("Set with failing hook: got %v", err)
	}
	if m.Count("docs") != 0 {
		t.Error("nothing should be written when the hook fails")
	}

	m.OnCommit(nil)
	if err := m.Set(ctx, "docs", "a", testDoc{Name: "a"}); err != nil {
		t.Fatalf("Set after clearing hook: %v", err)
	}
}

func TestMemoryMergeCreates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Commit(ctx, []Op{MergeOp("docs", "a", map[string]any{"status": "approved"})}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	var d testDoc
	if err := m.Get(ctx, "docs", "a", &d); err != nil {
		t.Fatal(err)
	}
	if d.Status != "approved" {
		t.Errorf("status: got %q", d.Status)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, "docs", "a", testDoc{Name: "a"})
	m.Set(ctx, "docs", "b", testDoc{Name: "b"})

	err := m.Commit(ctx, []Op{DeleteOp("docs", "a"), DeleteOp("docs", "ghost"), UpdateOp("docs", "b", map[string]any{"count": 2})})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	var d testDoc
	if err := m.Get(ctx, "docs", "a", &d); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted doc: got %v", err)
	}
	if m.Count("docs") != 1 {
		t.Errorf("count: %d", m.Count("docs"))
	}

	// An update after a delete in the same batch fails and nothing is applied.
	err = m.Commit(ctx, []Op{DeleteOp("docs", "b"), UpdateOp("docs", "b", map[string]any{"count": 3})})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("update after delete: got %v", err)
	}
	if err := m.Get(ctx, "docs", "b", &d); err != nil || d.Count != 2 {
		t.Errorf("b after failed batch: %+v %v", d, err)
	}
}

func TestCommitRejectsOversizedBatch(t *testing.T) {
	m := NewMemory()
	ops := make([]Op, MaxBatchOps+1)
	for i := range ops {
		ops[i] = SetOp("docs", "x", testDoc{})
	}
	if err := m.Commit(context.Background(), ops); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("got %v, want ErrBatchTooLarge", err)
	}
}

func TestCommitGroupsChunksWithoutSplitting(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var sizes []int
	m.OnCommit(func(ops []Op) error {
		sizes = append(sizes, len(ops))
		return nil
	})

	groups := make([]Group, 300)
	for i := range groups {
		id := string(rune('a'+i%26)) + string(rune('a'+i/26))
		groups[i] = Group{
			SetOp("tasks", id, testDoc{Name: id}),
			SetOp("items", id, testDoc{Name: id}),
		}
	}

	errs := CommitGroups(ctx, m, groups)
	for i, err := range errs {
		if err != nil {
			t.Fatalf("group %d: %v", i, err)
		}
	}
	if len(sizes) != 2 || sizes[0] != 500 || sizes[1] != 100 {
		t.Errorf("batch sizes: got %v, want [500 100]", sizes)
	}
}

func TestCommitGroupsReportsFailedChunk(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	calls := 0
	m.OnCommit(func(ops []Op) error {
		calls++
		if calls == 2 {
			return errors.New("injected")
		}
		return nil
	})

	groups := make([]Group, 260)
	for i := range groups {
		id := string(rune('a'+i%26)) + string(rune('a'+i/26))
		groups[i] = Group{SetOp("tasks", id, testDoc{}), SetOp("items", id, testDoc{})}
	}

	errs := CommitGroups(ctx, m, groups)
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed != 10 {
		t.Errorf("failed groups: got %d, want 10", failed)
	}
	if m.Count("tasks") != 250 {
		t.Errorf("tasks written: got %d, want 250", m.Count("tasks"))
	}
}

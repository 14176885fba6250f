package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/content"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

var admin = &auth.Caller{ID: "admin-1", Role: auth.RoleAdmin}

// fakeGenerator fails for the listed pairs and tracks parallelism.
type fakeGenerator struct {
	fail     map[string]bool
	delay    time.Duration
	inFlight atomic.Int64
	peak     atomic.Int64

	mu    sync.Mutex
	calls []content.Request
}

func (f *fakeGenerator) Generate(_ context.Context, _ *auth.Caller, req content.Request) (*content.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	id := models.ContentID(req.ServiceID, req.LocationID)
	if f.fail[id] {
		return nil, apperr.GenerationFailure(errors.New("model timeout"))
	}
	return &content.Result{ContentID: id}, nil
}

func TestGenerateBatchPartialFailure(t *testing.T) {
	store := docstore.NewMemory()
	gen := &fakeGenerator{fail: map[string]bool{"Y-B": true}}
	o := NewOrchestrator(store, gen)

	res, err := o.GenerateBatch(context.Background(), admin, Request{
		WebsiteID:     "airport",
		LocationIDs:   []string{"A", "B"},
		ServiceIDs:    []string{"X", "Y"},
		MaxConcurrent: 5,
	})
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}
	if res.Generated != 3 || res.Failed != 1 || res.Total != 4 {
		t.Fatalf("tally: got %+v, want 3/1/4", res)
	}
	if len(gen.calls) != 4 {
		t.Errorf("calls: got %d", len(gen.calls))
	}

	var job models.BatchJob
	if err := store.Get(context.Background(), models.CollectionBatchJobs, res.JobID, &job); err != nil {
		t.Fatalf("job: %v", err)
	}
	if job.Status != models.JobCompleted || job.CompletedItems != 3 || job.FailedItems != 1 || job.TotalItems != 4 {
		t.Errorf("job: %+v", job)
	}
	if job.CompletedAt == nil || job.TriggeredBy != "admin-1" {
		t.Errorf("job completion: %+v", job)
	}
}

func TestGenerateBatchAllFailMarksJobFailed(t *testing.T) {
	store := docstore.NewMemory()
	gen := &fakeGenerator{fail: map[string]bool{"X-A": true}}
	o := NewOrchestrator(store, gen)

	res, err := o.GenerateBatch(context.Background(), admin, Request{WebsiteID: "w", LocationIDs: []string{"A"}, ServiceIDs: []string{"X"}})
	if err != nil {
		t.Fatal(err)
	}
	var job models.BatchJob
	store.Get(context.Background(), models.CollectionBatchJobs, res.JobID, &job)
	if job.Status != models.JobFailed {
		t.Errorf("status: got %s", job.Status)
	}
}

func TestGenerateBatchBoundsConcurrency(t *testing.T) {
	gen := &fakeGenerator{delay: 5 * time.Millisecond}
	o := NewOrchestrator(docstore.NewMemory(), gen)

	locations := []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7"}
	res, err := o.GenerateBatch(context.Background(), admin, Request{
		WebsiteID:     "w",
		LocationIDs:   locations,
		ServiceIDs:    []string{"s1", "s2", "s3"},
		MaxConcurrent: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Generated != 21 || res.Total != 21 {
		t.Errorf("tally: %+v", res)
	}
	if p := gen.peak.Load(); p > 2 {
		t.Errorf("peak parallelism %d exceeds 2", p)
	}
}

func TestGenerateBatchExplicitPairs(t *testing.T) {
	store := docstore.NewMemory()
	gen := &fakeGenerator{}
	o := NewOrchestrator(store, gen)

	res, err := o.GenerateBatch(context.Background(), admin, Request{
		WebsiteID: "airport",
		Pairs: []Pair{
			{LocationID: "A", ServiceID: "X"},
			{LocationID: "B", ServiceID: "Y"},
			{LocationID: "A", ServiceID: "Y"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Generated != 3 || res.Total != 3 {
		t.Fatalf("tally: %+v", res)
	}
	got := map[string]bool{}
	for _, c := range gen.calls {
		got[models.ContentID(c.ServiceID, c.LocationID)] = true
	}
	if len(got) != 3 || !got["X-A"] || !got["Y-A"] || !got["Y-B"] || got["X-B"] {
		t.Errorf("generated: %v", got)
	}

	var job models.BatchJob
	store.Get(context.Background(), models.CollectionBatchJobs, res.JobID, &job)
	if len(job.Locations) != 2 || job.Locations[0] != "A" || len(job.Services) != 2 || job.TotalItems != 3 {
		t.Errorf("job: %+v", job)
	}
}

func TestGenerateBatchDefaultsAndValidation(t *testing.T) {
	o := NewOrchestrator(docstore.NewMemory(), &fakeGenerator{})
	ctx := context.Background()

	if _, err := o.GenerateBatch(ctx, &auth.Caller{ID: "e", Role: auth.RoleEditor}, Request{WebsiteID: "w", LocationIDs: []string{"A"}, ServiceIDs: []string{"X"}}); !apperr.Is(err, apperr.CodePermissionDenied) {
		t.Errorf("editor: got %v", err)
	}
	if _, err := o.GenerateBatch(ctx, admin, Request{WebsiteID: "w", ServiceIDs: []string{"X"}}); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Errorf("no locations: got %v", err)
	}
	if _, err := o.GenerateBatch(ctx, admin, Request{LocationIDs: []string{"A"}, ServiceIDs: []string{"X"}}); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Errorf("no website: got %v", err)
	}
}

func TestGenerateBatchCancelledCountsRemainderAsFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{}
	o := NewOrchestrator(docstore.NewMemory(), gen)

	res, err := o.GenerateBatch(ctx, admin, Request{WebsiteID: "w", LocationIDs: []string{"A", "B"}, ServiceIDs: []string{"X"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 2 || res.Generated != 0 || res.Generated+res.Failed != res.Total {
		t.Errorf("tally: %+v", res)
	}
	if len(gen.calls) != 0 {
		t.Errorf("generator called %d times after cancellation", len(gen.calls))
	}
}

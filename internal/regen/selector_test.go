package regen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"limoseo/internal/apperr"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

func TestSelectThresholdGating(t *testing.T) {
	store := docstore.NewMemory()
	for id, score := range map[string]float64{"a": 42, "b": 91, "c": 95, "d": 10, "e": 49.99, "f": 50} {
		seedItem(t, store, id, 0)
		seedScore(t, store, id, score)
	}

	res, err := newTestService(store, nil).Select(context.Background(), SelectOptions{Threshold: DefaultThreshold, RequestedBy: "tester"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if res.Candidates != 3 || res.Queued != 3 || res.Failed != 0 {
		t.Fatalf("result: %+v", res)
	}

	wantPriority := map[string]int{"a": 6, "d": 9, "e": 6}
	for id, p := range wantPriority {
		task := getTask(t, store, id)
		if task.Status != models.TaskPending || task.Priority != p {
			t.Errorf("%s: status %s priority %d, want pending %d", id, task.Status, task.Priority, p)
		}
		if task.RequestedBy != "tester" || !task.QueuedAt.Equal(base) {
			t.Errorf("%s: requestedBy %q queuedAt %v", id, task.RequestedBy, task.QueuedAt)
		}
		item := getItem(t, store, id)
		if item.RegenerationStatus != models.RegenerationQueued || item.RegenerationCount != 1 {
			t.Errorf("%s: item %s count %d", id, item.RegenerationStatus, item.RegenerationCount)
		}
		if item.MarkedForRegenerationAt == nil || !strings.Contains(item.RegenerationReason, "below 50") {
			t.Errorf("%s: marked %v reason %q", id, item.MarkedForRegenerationAt, item.RegenerationReason)
		}
		if item.ApprovalStatus != models.ApprovalApproved {
			t.Errorf("%s: approval status changed to %s", id, item.ApprovalStatus)
		}
	}
	for _, id := range []string{"b", "c", "f"} {
		var task models.RegenerationTask
		err := store.Get(context.Background(), models.CollectionRegenerationQueue, id, &task)
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("%s: should not be queued, got %v", id, err)
		}
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	store := docstore.NewMemory()
	for i, score := range []float64{12, 30, 44} {
		id := fmt.Sprintf("c%d", i)
		seedItem(t, store, id, 2)
		seedScore(t, store, id, score)
	}
	s := newTestService(store, nil)
	ctx := context.Background()

	if res, err := s.Select(ctx, SelectOptions{Threshold: DefaultThreshold}); err != nil || res.Queued != 3 {
		t.Fatalf("first run: %+v %v", res, err)
	}
	res, err := s.Select(ctx, SelectOptions{Threshold: DefaultThreshold})
	if err != nil {
		t.Fatal(err)
	}
	if res.Queued != 0 || res.Skipped != 3 {
		t.Errorf("second run: %+v", res)
	}
	if n := store.Count(models.CollectionRegenerationQueue); n != 3 {
		t.Errorf("tasks: %d", n)
	}
	if got := getItem(t, store, "c0").RegenerationCount; got != 3 {
		t.Errorf("count bumped twice: %d", got)
	}
}

func TestSelectRequeuesTerminalTasks(t *testing.T) {
	store := docstore.NewMemory()
	seedItem(t, store, "a", 1)
	seedScore(t, store, "a", 20)
	seedTask(t, store, models.RegenerationTask{ContentID: "a", Status: models.TaskFailed})

	res, err := newTestService(store, nil).Select(context.Background(), SelectOptions{Threshold: DefaultThreshold})
	if err != nil {
		t.Fatal(err)
	}
	if res.Queued != 1 || getTask(t, store, "a").Status != models.TaskPending {
		t.Errorf("failed task should be requeued: %+v", res)
	}
}

func TestSelectMaxPerRunTakesLowestScores(t *testing.T) {
	store := docstore.NewMemory()
	for id, score := range map[string]float64{"a": 40, "b": 5, "c": 30, "d": 5, "e": 45} {
		seedItem(t, store, id, 0)
		seedScore(t, store, id, score)
	}
	res, err := newTestService(store, nil).Select(context.Background(), SelectOptions{Threshold: DefaultThreshold, MaxPerRun: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Queued != 3 || res.Candidates != 5 {
		t.Fatalf("result: %+v", res)
	}
	for _, id := range []string{"b", "c", "d"} {
		if getTask(t, store, id).Status != models.TaskPending {
			t.Errorf("%s should be queued", id)
		}
	}
	if n := store.Count(models.CollectionRegenerationQueue); n != 3 {
		t.Errorf("tasks: %d", n)
	}
}

func TestSelectMissingItemCountsAsFailed(t *testing.T) {
	store := docstore.NewMemory()
	seedScore(t, store, "orphan", 10)
	seedItem(t, store, "a", 0)
	seedScore(t, store, "a", 20)

	res, err := newTestService(store, nil).Select(context.Background(), SelectOptions{Threshold: DefaultThreshold})
	if err != nil {
		t.Fatal(err)
	}
	if res.Queued != 1 || res.Failed != 1 {
		t.Errorf("result: %+v", res)
	}
}

func TestSelectCommitFailureChangesNothing(t *testing.T) {
	store := docstore.NewMemory()
	for i := range 4 {
		id := fmt.Sprintf("c%d", i)
		seedItem(t, store, id, 1)
		seedScore(t, store, id, 25)
	}
	store.OnCommit(func([]docstore.Op) error { return errors.New("injected") })

	res, err := newTestService(store, nil).Select(context.Background(), SelectOptions{Threshold: DefaultThreshold})
	if err != nil {
		t.Fatal(err)
	}
	if res.Queued != 0 || res.Failed != 4 {
		t.Errorf("result: %+v", res)
	}
	if n := store.Count(models.CollectionRegenerationQueue); n != 0 {
		t.Errorf("tasks written: %d", n)
	}
	for i := range 4 {
		item := getItem(t, store, fmt.Sprintf("c%d", i))
		if item.RegenerationStatus != models.RegenerationNone || item.RegenerationCount != 1 {
			t.Errorf("item changed: %+v", item)
		}
	}
}

func TestRunSelectionLogsAndNotifies(t *testing.T) {
	store := docstore.NewMemory()
	for id, score := range map[string]float64{"a": 90, "b": 95, "c": 99.5} {
		seedItem(t, store, id, 0)
		seedScore(t, store, id, score)
	}
	n := &recordingNotifier{}
	s := newTestService(store, n)

	res, err := s.RunSelection(context.Background(), RunOptions{Threshold: 99, Notify: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.SuccessCount != 2 || res.ItemsRegenerated != 2 || res.AverageScoreImprovement != 7.5 || !res.ImprovementEstimated {
		t.Errorf("result: %+v", res)
	}

	var entry models.RegenerationLogEntry
	if err := store.Get(context.Background(), models.CollectionRegenerationLogs, res.LogID, &entry); err != nil {
		t.Fatalf("log entry: %v", err)
	}
	if entry.Kind != models.RunSelection || entry.TriggeredBy != "scheduler" || !entry.ImprovementEstimated || entry.Threshold != 99 {
		t.Errorf("log entry: %+v", entry)
	}
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0].Subject, "2 items") {
		t.Errorf("notifications: %+v", n.msgs)
	}

	// Nothing new to queue: no second notification.
	if _, err := s.RunSelection(context.Background(), RunOptions{Threshold: 99, Notify: true}); err != nil {
		t.Fatal(err)
	}
	if len(n.msgs) != 1 {
		t.Errorf("notified for an empty run")
	}
}

func TestAutoRegenerate(t *testing.T) {
	store := docstore.NewMemory()
	seedItem(t, store, "a", 0)
	seedScore(t, store, "a", 30)
	s := newTestService(store, nil)
	ctx := context.Background()

	if _, err := s.AutoRegenerate(ctx, nil, AutoOptions{}); !apperr.Is(err, apperr.CodeUnauthenticated) {
		t.Errorf("nil caller: %v", err)
	}
	if _, err := s.AutoRegenerate(ctx, editor, AutoOptions{}); !apperr.Is(err, apperr.CodePermissionDenied) {
		t.Errorf("editor: %v", err)
	}
	if _, err := s.AutoRegenerate(ctx, admin, AutoOptions{Threshold: 150}); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Errorf("bad threshold: %v", err)
	}

	res, err := s.AutoRegenerate(ctx, admin, AutoOptions{Threshold: 50})
	if err != nil {
		t.Fatal(err)
	}
	if res.SuccessCount != 1 || res.AverageScoreImprovement != 15 {
		t.Errorf("result: %+v", res)
	}
	if task := getTask(t, store, "a"); task.RequestedBy != admin.ID || task.Priority != 7 {
		t.Errorf("task: %+v", task)
	}
}

func TestAutoRegenerateZeroThresholdQueuesNothing(t *testing.T) {
	store := docstore.NewMemory()
	seedItem(t, store, "a", 0)
	seedScore(t, store, "a", 42)
	s := newTestService(store, nil)

	res, err := s.AutoRegenerate(context.Background(), admin, AutoOptions{Threshold: 0, MaxItems: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.SuccessCount != 0 || res.ItemsRegenerated != 0 {
		t.Errorf("result: %+v", res)
	}
	if n := store.Count(models.CollectionRegenerationQueue); n != 0 {
		t.Errorf("queued %d tasks below threshold 0", n)
	}
	if item := getItem(t, store, "a"); item.RegenerationStatus == models.RegenerationQueued {
		t.Errorf("item marked queued")
	}
}

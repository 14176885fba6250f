package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"limoseo/internal/apperr"
	"limoseo/internal/approval"
	"limoseo/internal/auth"
	"limoseo/internal/batch"
	"limoseo/internal/content"
	"limoseo/internal/models"
	"limoseo/internal/regen"
	"limoseo/internal/schedules"
)

var admin = &auth.Caller{ID: "ops", Role: auth.RoleAdmin}

type fakeContent struct {
	got content.Request
	err error
}

func (f *fakeContent) Generate(_ context.Context, caller *auth.Caller, req content.Request) (*content.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return &content.Result{
		ContentID:       req.ServiceID + "_" + req.LocationID,
		Title:           "Airport Transfers in Naperville",
		MetaDescription: "Book a limo",
		Message:         "Content generated successfully",
	}, nil
}

type fakeBatch struct{ got batch.Request }

func (f *fakeBatch) GenerateBatch(_ context.Context, _ *auth.Caller, req batch.Request) (*batch.Result, error) {
	f.got = req
	return &batch.Result{JobID: "job-1", Generated: 2, Failed: 1, Total: 3, Message: "Generated 2 of 3"}, nil
}

type fakeApprovals struct {
	rejected *approval.RejectRequest
	revision *approval.RevisionRequest
	set      []any
}

func (f *fakeApprovals) RequestRevision(_ context.Context, caller *auth.Caller, req approval.RevisionRequest) (*approval.Decision, error) {
	if err := auth.RequireEditor(caller); err != nil {
		return nil, err
	}
	if req.Notes == "" {
		return nil, apperr.InvalidArgument("revisionNotes is required")
	}
	f.revision = &req
	return &approval.Decision{ContentID: req.ContentID, Status: models.ApprovalPending, RegenerationQueued: true}, nil
}

func (f *fakeApprovals) Reject(_ context.Context, _ *auth.Caller, req approval.RejectRequest) (*approval.Decision, error) {
	f.rejected = &req
	return &approval.Decision{ContentID: req.ContentID, Status: models.ApprovalRejected, RegenerationQueued: true}, nil
}

func (f *fakeApprovals) SetApproval(_ context.Context, _ *auth.Caller, id string, approved bool, feedback string) (*approval.Decision, error) {
	if id == "missing" {
		return nil, apperr.NotFound("content \"missing\" not found")
	}
	f.set = []any{id, approved, feedback}
	status := models.ApprovalRejected
	if approved {
		status = models.ApprovalApproved
	}
	return &approval.Decision{ContentID: id, Status: status}, nil
}

func (f *fakeApprovals) BatchApprove(_ context.Context, _ *auth.Caller, ids []string) (*approval.BatchResult, error) {
	return &approval.BatchResult{Approved: ids, Failed: map[string]string{}}, nil
}

func (f *fakeApprovals) ListPending(_ context.Context, _ *auth.Caller, websiteID string, limit int) (*approval.PendingList, error) {
	return &approval.PendingList{Items: []approval.PendingItem{}, Total: 0, Limit: limit}, nil
}

func (f *fakeApprovals) Statistics(_ context.Context, caller *auth.Caller, _ string) (*approval.Stats, error) {
	if err := auth.RequireCaller(caller); err != nil {
		return nil, err
	}
	return &approval.Stats{Total: 7, PendingReview: 3}, nil
}

type fakeRegen struct {
	opts     regen.AutoOptions
	statuses int
	err      error
}

func (f *fakeRegen) AutoRegenerate(_ context.Context, _ *auth.Caller, opts regen.AutoOptions) (*regen.RunResult, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &regen.RunResult{ItemsRegenerated: 4, SuccessCount: 4, AverageScoreImprovement: 12.5, Duration: 1500 * time.Millisecond}, nil
}

func (f *fakeRegen) Status(context.Context, *auth.Caller) (*regen.StatusReport, error) {
	f.statuses++
	failedAt := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	return &regen.StatusReport{
		Queue:       regen.QueueCounts{Pending: 2, Processing: 1, Failed: 1, Total: 3},
		FailedTasks: []regen.FailedTask{{ContentID: "airport_naperville", Error: "empty response", FailedAt: &failedAt}},
		RecentLogs:  []models.RegenerationLogEntry{},
	}, nil
}

type fakeSchedules struct {
	filter  schedules.ListFilter
	created schedules.CreateInput
	updated schedules.UpdateInput
	enabled *bool
	deleted string
	ran     string
	history struct {
		id    string
		limit int
	}
}

func (f *fakeSchedules) List(_ context.Context, _ *auth.Caller, filter schedules.ListFilter) ([]schedules.Summary, error) {
	f.filter = filter
	return []schedules.Summary{{Schedule: models.Schedule{ID: "s1", Name: "Nightly"}, TotalExecutions: 3, SuccessfulExecutions: 2}}, nil
}

func (f *fakeSchedules) Create(_ context.Context, caller *auth.Caller, in schedules.CreateInput) (*models.Schedule, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperr.InvalidArgument("name, websiteId, locationIds and serviceIds are required")
	}
	f.created = in
	return &models.Schedule{ID: "s1", Name: in.Name, Enabled: true}, nil
}

func (f *fakeSchedules) Update(_ context.Context, _ *auth.Caller, id string, in schedules.UpdateInput) (*models.Schedule, error) {
	if id != "s1" {
		return nil, apperr.NotFound("schedule not found")
	}
	f.updated = in
	return &models.Schedule{ID: id}, nil
}

func (f *fakeSchedules) SetEnabled(_ context.Context, _ *auth.Caller, id string, enabled bool) (*models.Schedule, error) {
	f.enabled = &enabled
	return &models.Schedule{ID: id, Enabled: enabled}, nil
}

func (f *fakeSchedules) Delete(_ context.Context, _ *auth.Caller, id string) (*models.Schedule, error) {
	f.deleted = id
	return &models.Schedule{ID: id}, nil
}

func (f *fakeSchedules) Execute(_ context.Context, _ *auth.Caller, id string) (*models.ScheduleExecution, error) {
	f.ran = id
	return &models.ScheduleExecution{ID: "e1", ScheduleID: id, Status: models.ExecutionPartial, ItemsSucceeded: 3, ItemsFailed: 1}, nil
}

func (f *fakeSchedules) History(_ context.Context, _ *auth.Caller, id string, limit int) (*schedules.History, error) {
	f.history.id, f.history.limit = id, limit
	return &schedules.History{
		Executions: []models.ScheduleExecution{{ID: "e1", ScheduleID: "s1"}},
		Total:      1,
		Statistics: schedules.HistoryStats{TotalExecutions: 1, SuccessRate: 100},
	}, nil
}

type memCache struct {
	body        []byte
	invalidated int
}

func (m *memCache) Get(context.Context) ([]byte, bool) { return m.body, m.body != nil }
func (m *memCache) Set(_ context.Context, b []byte)     { m.body = b }
func (m *memCache) Invalidate(context.Context)          { m.body = nil; m.invalidated++ }

type fixture struct {
	api       *API
	content   *fakeContent
	batch     *fakeBatch
	approvals *fakeApprovals
	regen     *fakeRegen
	schedules *fakeSchedules
	cache     *memCache
	router    chi.Router
}

func newFixture() *fixture {
	f := &fixture{
		content:   &fakeContent{},
		batch:     &fakeBatch{},
		approvals: &fakeApprovals{},
		regen:     &fakeRegen{},
		schedules: &fakeSchedules{},
		cache:     &memCache{},
	}
	f.api = NewAPI(f.content, f.batch, f.approvals, f.regen, f.schedules, f.cache)
	r := chi.NewRouter()
	r.Post("/api/content/generate", f.api.Generate)
	r.Post("/api/content/batch", f.api.GenerateBatch)
	r.Post("/api/content/{contentID}/approval", f.api.SetApproval)
	r.Post("/api/content/{contentID}/revision", f.api.RequestRevision)
	r.Post("/api/content/approvals/batch", f.api.BatchApprove)
	r.Get("/api/content/approvals/pending", f.api.PendingApprovals)
	r.Get("/api/content/approvals/stats", f.api.ApprovalStats)
	r.Post("/api/regeneration/auto", f.api.AutoRegenerate)
	r.Get("/api/regeneration/status", f.api.RegenerationStatus)
	r.Get("/api/schedules", f.api.ListSchedules)
	r.Post("/api/schedules", f.api.CreateSchedule)
	r.Get("/api/schedules/history", f.api.ScheduleHistory)
	r.Patch("/api/schedules/{scheduleID}", f.api.UpdateSchedule)
	r.Delete("/api/schedules/{scheduleID}", f.api.DeleteSchedule)
	r.Post("/api/schedules/{scheduleID}/toggle", f.api.ToggleSchedule)
	r.Post("/api/schedules/{scheduleID}/execute", f.api.ExecuteSchedule)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, caller *auth.Caller, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(auth.WithCaller(req.Context(), caller))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rr.Body.String(), err)
	}
	return rr, out
}

func TestGenerate(t *testing.T) {
	f := newFixture()
	rr, out := f.do(t, admin, http.MethodPost, "/api/content/generate",
		`{"serviceId":"airport","locationId":"naperville","websiteId":"airport"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d %v", rr.Code, out)
	}
	if out["success"] != true || out["contentId"] != "airport_naperville" {
		t.Errorf("body: %v", out)
	}
	prev, _ := out["preview"].(map[string]any)
	if prev["title"] != "Airport Transfers in Naperville" || prev["description"] != "Book a limo" {
		t.Errorf("preview: %v", prev)
	}
	if f.content.got.WebsiteID != "airport" {
		t.Errorf("request: %+v", f.content.got)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		caller *auth.Caller
		body   string
		err    error
		status int
		code   string
	}{
		{"anonymous", nil, `{}`, nil, http.StatusUnauthorized, "unauthenticated"},
		{"editor", &auth.Caller{ID: "e", Role: auth.RoleEditor}, `{}`, nil, http.StatusForbidden, "permission-denied"},
		{"bad json", admin, `{"serviceId":`, nil, http.StatusBadRequest, "invalid-argument"},
		{"model failure", admin, `{}`, apperr.GenerationFailure(errors.New("quota")), http.StatusBadGateway, "generation-failed"},
		{"internal", admin, `{}`, errors.New("pq: connection refused"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.content.err = tt.err
			rr, out := f.do(t, tt.caller, http.MethodPost, "/api/content/generate", tt.body)
			if rr.Code != tt.status {
				t.Errorf("status: got %d, want %d", rr.Code, tt.status)
			}
			if out["success"] != false || out["code"] != tt.code {
				t.Errorf("body: %v", out)
			}
			if msg, _ := out["message"].(string); strings.Contains(msg, "pq:") {
				t.Errorf("internal cause leaked: %q", msg)
			}
		})
	}
}

func TestGenerateBatch(t *testing.T) {
	f := newFixture()
	rr, out := f.do(t, admin, http.MethodPost, "/api/content/batch",
		`{"websiteId":"airport","locationIds":["a","b"],"serviceIds":["x"],"maxConcurrent":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	if out["success"] != true || out["jobId"] != "job-1" || out["generated"] != float64(2) || out["total"] != float64(3) {
		t.Errorf("body: %v", out)
	}
	if len(f.batch.got.LocationIDs) != 2 || f.batch.got.MaxConcurrent != 2 {
		t.Errorf("request: %+v", f.batch.got)
	}
}

func TestSetApproval(t *testing.T) {
	f := newFixture()

	rr, out := f.do(t, admin, http.MethodPost, "/api/content/c1/approval", `{"approved":true}`)
	if rr.Code != http.StatusOK || out["status"] != "approved" || out["contentId"] != "c1" {
		t.Fatalf("approve: %d %v", rr.Code, out)
	}

	rr, out = f.do(t, admin, http.MethodPost, "/api/content/c1/approval", `{"approved":false,"feedback":"too short"}`)
	if rr.Code != http.StatusOK || out["status"] != "rejected" {
		t.Fatalf("reject: %d %v", rr.Code, out)
	}
	if f.approvals.set[2] != "too short" || f.approvals.rejected != nil {
		t.Errorf("plain rejection routed wrong: %v", f.approvals.set)
	}

	f.cache.body = []byte(`{}`)
	rr, out = f.do(t, admin, http.MethodPost, "/api/content/c1/approval",
		`{"approved":false,"feedback":"mention O'Hare","requestRegeneration":true}`)
	if rr.Code != http.StatusOK || out["regenerationQueued"] != true {
		t.Fatalf("reject+regen: %d %v", rr.Code, out)
	}
	if f.approvals.rejected == nil || f.approvals.rejected.Feedback != "mention O'Hare" {
		t.Errorf("reject request: %+v", f.approvals.rejected)
	}
	if f.cache.invalidated != 1 {
		t.Errorf("status cache not invalidated")
	}

	rr, out = f.do(t, admin, http.MethodPost, "/api/content/c1/approval", `{"feedback":"x"}`)
	if rr.Code != http.StatusBadRequest || out["code"] != "invalid-argument" {
		t.Errorf("missing approved: %d %v", rr.Code, out)
	}
	rr, _ = f.do(t, admin, http.MethodPost, "/api/content/missing/approval", `{"approved":true}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing: %d", rr.Code)
	}
}

func TestApprovalQueries(t *testing.T) {
	f := newFixture()

	rr, out := f.do(t, admin, http.MethodPost, "/api/content/approvals/batch", `{"contentIds":["a","b"]}`)
	if rr.Code != http.StatusOK || len(out["approved"].([]any)) != 2 {
		t.Errorf("batch: %d %v", rr.Code, out)
	}

	rr, out = f.do(t, admin, http.MethodGet, "/api/content/approvals/pending?websiteId=airport&limit=25", "")
	if rr.Code != http.StatusOK || out["limit"] != float64(25) {
		t.Errorf("pending: %d %v", rr.Code, out)
	}
	rr, _ = f.do(t, admin, http.MethodGet, "/api/content/approvals/pending?limit=abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit: %d", rr.Code)
	}

	rr, out = f.do(t, admin, http.MethodGet, "/api/content/approvals/stats", "")
	if rr.Code != http.StatusOK || out["totalContent"] != float64(7) || out["pendingApproval"] != float64(3) {
		t.Errorf("stats: %d %v", rr.Code, out)
	}
	rr, _ = f.do(t, nil, http.MethodGet, "/api/content/approvals/stats", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous stats: %d", rr.Code)
	}
}

func TestAutoRegenerateDefaults(t *testing.T) {
	f := newFixture()
	f.cache.body = []byte(`{"stale":true}`)

	rr, out := f.do(t, admin, http.MethodPost, "/api/regeneration/auto", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d %v", rr.Code, out)
	}
	want := regen.AutoOptions{Threshold: 50, MaxItems: 100, SendEmail: true}
	if f.regen.opts != want {
		t.Errorf("options: got %+v, want %+v", f.regen.opts, want)
	}
	if out["itemsRegenerated"] != float64(4) || out["averageScoreImprovement"] != 12.5 || out["duration"] != "1.5s" {
		t.Errorf("body: %v", out)
	}
	if f.cache.body != nil {
		t.Errorf("status cache not invalidated")
	}

	f.do(t, admin, http.MethodPost, "/api/regeneration/auto", `{"threshold":0,"maxItems":5,"sendEmail":false}`)
	want = regen.AutoOptions{Threshold: 0, MaxItems: 5, SendEmail: false}
	if f.regen.opts != want {
		t.Errorf("explicit options: got %+v, want %+v", f.regen.opts, want)
	}
}

func TestRequestRevision(t *testing.T) {
	f := newFixture()
	f.cache.body = []byte(`{}`)
	editor := &auth.Caller{ID: "e", Role: auth.RoleEditor}

	rr, out := f.do(t, editor, http.MethodPost, "/api/content/c1/revision",
		`{"revisionNotes":"tighten the intro","specificChanges":["mention flight tracking"]}`)
	if rr.Code != http.StatusOK || out["success"] != true || out["regenerationQueued"] != true {
		t.Fatalf("status: %d %v", rr.Code, out)
	}
	got := f.approvals.revision
	if got == nil {
		t.Fatal("revision not requested")
	}
	if got.ContentID != "c1" || got.Notes != "tighten the intro" || len(got.SpecificChanges) != 1 {
		t.Errorf("request: %+v", got)
	}
	if f.cache.invalidated != 1 {
		t.Errorf("status cache not invalidated")
	}

	rr, out = f.do(t, editor, http.MethodPost, "/api/content/c1/revision", `{}`)
	if rr.Code != http.StatusBadRequest || out["code"] != "invalid-argument" {
		t.Errorf("missing notes: %d %v", rr.Code, out)
	}
	rr, _ = f.do(t, nil, http.MethodPost, "/api/content/c1/revision", `{"revisionNotes":"x"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: %d", rr.Code)
	}
}

func TestRegenerationStatusCache(t *testing.T) {
	f := newFixture()

	rr, out := f.do(t, admin, http.MethodGet, "/api/regeneration/status", "")
	if rr.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("status: %d %v", rr.Code, out)
	}
	q, _ := out["queue"].(map[string]any)
	if q["total"] != float64(3) || q["failed"] != float64(1) {
		t.Errorf("queue: %v", q)
	}
	failed, _ := out["failedTasks"].([]any)
	if len(failed) != 1 {
		t.Fatalf("failedTasks: %v", out["failedTasks"])
	}
	if ft, _ := failed[0].(map[string]any); ft["contentId"] != "airport_naperville" || ft["error"] != "empty response" {
		t.Errorf("failed task: %v", ft)
	}

	rr, _ = f.do(t, admin, http.MethodGet, "/api/regeneration/status", "")
	if rr.Header().Get("X-Cache") != "HIT" || f.regen.statuses != 1 {
		t.Errorf("second read not served from cache: calls=%d", f.regen.statuses)
	}

	rr, _ = f.do(t, nil, http.MethodGet, "/api/regeneration/status", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous read the cache: %d", rr.Code)
	}
}

func TestSchedules(t *testing.T) {
	f := newFixture()

	rr, out := f.do(t, admin, http.MethodPost, "/api/schedules",
		`{"name":"Nightly","websiteId":"airport","frequency":"weekly","locationIds":["naperville"],"serviceIds":["airport-ohare"],"notifyOnComplete":false}`)
	if rr.Code != http.StatusCreated || out["success"] != true {
		t.Fatalf("create: %d %v", rr.Code, out)
	}
	in := f.schedules.created
	if in.Frequency != models.FrequencyWeekly || len(in.LocationIDs) != 1 || in.NotifyOnComplete == nil || *in.NotifyOnComplete {
		t.Errorf("create input: %+v", in)
	}
	rr, out = f.do(t, admin, http.MethodPost, "/api/schedules", `{}`)
	if rr.Code != http.StatusBadRequest || out["code"] != "invalid-argument" {
		t.Errorf("invalid create: %d %v", rr.Code, out)
	}
	rr, _ = f.do(t, &auth.Caller{ID: "e", Role: auth.RoleEditor}, http.MethodPost, "/api/schedules", `{"name":"x"}`)
	if rr.Code != http.StatusForbidden {
		t.Errorf("editor create: %d", rr.Code)
	}

	rr, out = f.do(t, admin, http.MethodGet, "/api/schedules?websiteId=airport&enabled=true", "")
	if rr.Code != http.StatusOK || out["count"] != float64(1) {
		t.Fatalf("list: %d %v", rr.Code, out)
	}
	if f.schedules.filter.WebsiteID != "airport" || f.schedules.filter.Enabled == nil || !*f.schedules.filter.Enabled {
		t.Errorf("filter: %+v", f.schedules.filter)
	}
	list, _ := out["schedules"].([]any)
	if s, _ := list[0].(map[string]any); s["name"] != "Nightly" || s["totalExecutions"] != float64(3) {
		t.Errorf("summary: %v", list[0])
	}
	if rr, _ = f.do(t, admin, http.MethodGet, "/api/schedules?enabled=maybe", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad enabled filter: %d", rr.Code)
	}

	rr, _ = f.do(t, admin, http.MethodPatch, "/api/schedules/s1", `{"name":"Weekly","serviceIds":["a","b"]}`)
	if rr.Code != http.StatusOK || f.schedules.updated.Name == nil || *f.schedules.updated.Name != "Weekly" || len(f.schedules.updated.ServiceIDs) != 2 {
		t.Errorf("update: %d %+v", rr.Code, f.schedules.updated)
	}
	if rr, _ = f.do(t, admin, http.MethodPatch, "/api/schedules/nope", `{}`); rr.Code != http.StatusNotFound {
		t.Errorf("update missing: %d", rr.Code)
	}

	rr, out = f.do(t, admin, http.MethodPost, "/api/schedules/s1/toggle", `{"enabled":false}`)
	if rr.Code != http.StatusOK || f.schedules.enabled == nil || *f.schedules.enabled {
		t.Errorf("toggle: %d %v", rr.Code, out)
	}
	if rr, _ = f.do(t, admin, http.MethodPost, "/api/schedules/s1/toggle", `{}`); rr.Code != http.StatusBadRequest {
		t.Errorf("toggle without enabled: %d", rr.Code)
	}

	rr, out = f.do(t, admin, http.MethodPost, "/api/schedules/s1/execute", "")
	if rr.Code != http.StatusOK || f.schedules.ran != "s1" {
		t.Fatalf("execute: %d %v", rr.Code, out)
	}
	if e, _ := out["execution"].(map[string]any); e["status"] != "partial" || e["itemsFailed"] != float64(1) {
		t.Errorf("execution: %v", out["execution"])
	}

	rr, out = f.do(t, admin, http.MethodGet, "/api/schedules/history?scheduleId=s1&limit=5", "")
	if rr.Code != http.StatusOK || out["total"] != float64(1) || f.schedules.history.id != "s1" || f.schedules.history.limit != 5 {
		t.Errorf("history: %d %v %+v", rr.Code, out, f.schedules.history)
	}
	if stats, _ := out["statistics"].(map[string]any); stats["successRate"] != float64(100) {
		t.Errorf("statistics: %v", out["statistics"])
	}
	if rr, _ = f.do(t, admin, http.MethodGet, "/api/schedules/history?limit=-2", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("negative limit: %d", rr.Code)
	}

	if rr, _ = f.do(t, admin, http.MethodDelete, "/api/schedules/s1", ""); rr.Code != http.StatusOK || f.schedules.deleted != "s1" {
		t.Errorf("delete: %d %q", rr.Code, f.schedules.deleted)
	}
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	rr := httptest.NewRecorder()
	Health(map[string]Check{"store": ok}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("healthy: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	Health(map[string]Check{"store": ok, "valkey": down}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "degraded") {
		t.Errorf("degraded: %d %s", rr.Code, rr.Body.String())
	}
}

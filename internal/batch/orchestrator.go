// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package batch fans page generation out across locations × services.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/content"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

// DefaultMaxConcurrent is the chunk size and parallelism of a batch.
const DefaultMaxConcurrent = 5

// Generator writes one page. *content.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, caller *auth.Caller, req content.Request) (*content.Result, error)
}

// Request is a batch generation request.
type Request struct {
	WebsiteID     string   `json:"websiteId"`
	LocationIDs   []string `json:"locationIds"`
	ServiceIDs    []string `json:"serviceIds"`
	MaxConcurrent int      `json:"maxConcurrent"`

	// Pairs, when set, replaces the LocationIDs × ServiceIDs cross product.
	Pairs []Pair `json:"-"`
}

// Pair is one page to generate.
type Pair struct {
	LocationID string
	ServiceID  string
}

// locationPlan is the services to generate for one location.
type locationPlan struct {
	locationID string
	serviceIDs []string
}

// plan groups the requested pages by location, in request order.
func (r Request) plan() []locationPlan {
	if len(r.Pairs) == 0 {
		out := make([]locationPlan, len(r.LocationIDs))
		for i, id := range r.LocationIDs {
			out[i] = locationPlan{locationID: id, serviceIDs: r.ServiceIDs}
		}
		return out
	}
	var out []locationPlan
	index := make(map[string]int)
	for _, p := range r.Pairs {
		i, ok := index[p.LocationID]
		if !ok {
			i = len(out)
			index[p.LocationID] = i
			out = append(out, locationPlan{locationID: p.LocationID})
		}
		out[i].serviceIDs = append(out[i].serviceIDs, p.ServiceID)
	}
	return out
}

// distinctServices lists the services of a plan in first-seen order.
func distinctServices(plan []locationPlan) []string {
	var out []string
	seen := make(map[string]bool)
	for _, lp := range plan {
		for _, id := range lp.serviceIDs {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Result tallies a batch. Generated + Failed always equals Total.
type Result struct {
	JobID     string `json:"jobId"`
	Generated int    `json:"generated"`
	Failed    int    `json:"failed"`
	Total     int    `json:"total"`
	Message   string `json:"message"`
}

// Orchestrator runs batch generation jobs.
type Orchestrator struct {
	store docstore.Store
	gen   Generator
	now   func() time.Time
}

// NewOrchestrator creates an Orchestrator. Job bookkeeping is written to
// store; page writes go through gen.
func NewOrchestrator(store docstore.Store, gen Generator) *Orchestrator {
	return &Orchestrator{store: store, gen: gen, now: time.Now}
}

// GenerateBatch generates every (location, service) pair. Locations are
// processed in chunks of MaxConcurrent; the pairs of a chunk run in
// parallel. A failing pair is counted and logged and never stops the batch.
func (o *Orchestrator) GenerateBatch(ctx context.Context, caller *auth.Caller, req Request) (*Result, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	req.WebsiteID = strings.TrimSpace(req.WebsiteID)
	if req.WebsiteID == "" {
		return nil, apperr.InvalidArgument("websiteId is required")
	}
	if len(req.Pairs) == 0 && (len(req.LocationIDs) == 0 || len(req.ServiceIDs) == 0) {
		return nil, apperr.InvalidArgument("locationIds and serviceIds must not be empty")
	}
	maxConc := req.MaxConcurrent
	if maxConc <= 0 {
		maxConc = DefaultMaxConcurrent
	}

	plan := req.plan()
	locations := make([]string, len(plan))
	total := 0
	for i, lp := range plan {
		locations[i] = lp.locationID
		total += len(lp.serviceIDs)
	}
	services := distinctServices(plan)

	start := o.now()
	job := models.BatchJob{
		ID:          uuid.NewString(),
		Websites:    []string{req.WebsiteID},
		Locations:   locations,
		Services:    services,
		TotalItems:  total,
		Status:      models.JobInProgress,
		TriggeredBy: caller.ID,
		CreatedAt:   start.UTC(),
	}
	o.saveJob(ctx, &job)

	slog.Info("batch generation started",
		"job_id", job.ID,
		"website_id", req.WebsiteID,
		"locations", len(locations),
		"services", len(services),
		"total", total,
		"max_concurrent", maxConc,
	)

	var generated, failed atomic.Int64

	for i := 0; i < len(plan); i += maxConc {
		chunk := plan[i:min(i+maxConc, len(plan))]

		var g errgroup.Group
		g.SetLimit(maxConc)
		for _, lp := range chunk {
			locationID := lp.locationID
			for _, serviceID := range lp.serviceIDs {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						failed.Add(1)
						return nil
					}
					_, err := o.gen.Generate(ctx, caller, content.Request{
						ServiceID:  serviceID,
						LocationID: locationID,
						WebsiteID:  req.WebsiteID,
					})
					if err != nil {
						failed.Add(1)
						slog.Error("batch item failed",
							"job_id", job.ID,
							"service_id", serviceID,
							"location_id", locationID,
							"code", apperr.CodeOf(err),
							"error", err,
						)
						return nil
					}
					generated.Add(1)
					return nil
				})
			}
		}
		_ = g.Wait()

		done, bad := int(generated.Load()), int(failed.Load())
		slog.Info("batch progress",
			"job_id", job.ID,
			"generated", done,
			"failed", bad,
			"processed", done+bad,
			"total", total,
		)
		o.updateJob(ctx, job.ID, map[string]any{
			"completedItems": done,
			"failedItems":    bad,
		})
	}

	res := &Result{
		JobID:     job.ID,
		Generated: int(generated.Load()),
		Failed:    int(failed.Load()),
		Total:     total,
	}
	res.Message = fmt.Sprintf("Generated %d of %d pages, %d failed", res.Generated, res.Total, res.Failed)

	status := models.JobCompleted
	if res.Generated == 0 {
		status = models.JobFailed
	}
	o.updateJob(context.WithoutCancel(ctx), job.ID, map[string]any{
		"status":      status,
		"completedAt": o.now().UTC(),
	})

	slog.Info("batch generation finished",
		"job_id", job.ID,
		"status", status,
		"generated", res.Generated,
		"failed", res.Failed,
		"duration", time.Since(start).String(),
	)
	return res, nil
}

// saveJob and updateJob are best-effort: bookkeeping failures are logged and
// never abort the batch.
func (o *Orchestrator) saveJob(ctx context.Context, job *models.BatchJob) {
	if err := o.store.Set(ctx, models.CollectionBatchJobs, job.ID, job); err != nil {
		slog.Warn("batch job save failed", "job_id", job.ID, "error", err)
	}
}

func (o *Orchestrator) updateJob(ctx context.Context, id string, fields map[string]any) {
	if err := o.store.Update(ctx, models.CollectionBatchJobs, id, fields); err != nil {
		slog.Warn("batch job update failed", "job_id", id, "error", err)
	}
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content writes service/location landing pages with the text
// generation client and stores them for review.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"limoseo/internal/ai"
	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/catalog"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

// DefaultMaxOutputTokens bounds a page generation call.
const DefaultMaxOutputTokens = 4096

// TextGenerator is the text generation client used by the Generator.
// *ai.Registry satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
	GenerateWithImageURL(ctx context.Context, req ai.Request, imageURL string) (string, error)
}

// Options tunes a Generator.
type Options struct {
	// MaxOutputTokens bounds each call. Zero means DefaultMaxOutputTokens.
	MaxOutputTokens int

	// Vision sends the location image with the prompt when one is set.
	Vision bool

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Generator builds, generates and stores landing pages.
type Generator struct {
	store   docstore.Store
	text    TextGenerator
	catalog *catalog.Catalog
	opts    Options
}

// NewGenerator creates a Generator.
func NewGenerator(store docstore.Store, text TextGenerator, cat *catalog.Catalog, opts Options) *Generator {
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{store: store, text: text, catalog: cat, opts: opts}
}

// Request identifies the page to generate.
type Request struct {
	ServiceID  string `json:"serviceId"`
	LocationID string `json:"locationId"`
	WebsiteID  string `json:"websiteId"`
}

// Result is returned to the caller after a page is stored.
type Result struct {
	ContentID       string `json:"contentId"`
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	Message         string `json:"message"`
}

// Generated is freshly written page copy that has not been stored.
type Generated struct {
	Title           string
	MetaDescription string
	Content         string
	Keywords        []string
	InternalLinks   []string
	Schema          map[string]any
}

// Generate writes the page for one service/location pair and stores it with
// a pending approval queue entry in one atomic batch. Re-generating an
// existing pair keeps its regeneration count.
func (g *Generator) Generate(ctx context.Context, caller *auth.Caller, req Request) (*Result, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.LocationID = strings.TrimSpace(req.LocationID)
	req.WebsiteID = strings.TrimSpace(req.WebsiteID)
	if req.ServiceID == "" || req.LocationID == "" || req.WebsiteID == "" {
		return nil, apperr.InvalidArgument("serviceId, locationId and websiteId are required")
	}

	svc, loc, err := g.loadPair(ctx, req.ServiceID, req.LocationID)
	if err != nil {
		return nil, err
	}

	gen, err := g.compose(ctx, svc, loc, req.WebsiteID, "")
	if err != nil {
		slog.Error("content generation failed",
			"service_id", req.ServiceID, "location_id", req.LocationID, "error", err)
		return nil, err
	}

	contentID := models.ContentID(req.ServiceID, req.LocationID)
	var prev models.ContentItem
	if err := g.store.Get(ctx, models.CollectionContent, contentID, &prev); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.PersistenceFailure(fmt.Errorf("load content %s: %w", contentID, err))
	}

	now := g.opts.Now().UTC()
	item := models.ContentItem{
		ID:                 contentID,
		ServiceID:          req.ServiceID,
		LocationID:         req.LocationID,
		WebsiteID:          req.WebsiteID,
		Title:              gen.Title,
		MetaDescription:    gen.MetaDescription,
		Content:            gen.Content,
		Keywords:           gen.Keywords,
		InternalLinks:      gen.InternalLinks,
		Schema:             gen.Schema,
		ApprovalStatus:     models.ApprovalPending,
		RegenerationStatus: models.RegenerationNone,
		RegenerationCount:  prev.RegenerationCount,
		GeneratedAt:        now,
	}
	// A queued or running regeneration task still owns the item.
	if prev.RegenerationStatus == models.RegenerationQueued || prev.RegenerationStatus == models.RegenerationInProgress {
		item.RegenerationStatus = prev.RegenerationStatus
		item.MarkedForRegenerationAt = prev.MarkedForRegenerationAt
		item.RegenerationReason = prev.RegenerationReason
		item.LastRegenerationStartedAt = prev.LastRegenerationStartedAt
	}
	entry := NewApprovalEntry(&item, now)

	err = g.store.Commit(ctx, []docstore.Op{
		docstore.SetOp(models.CollectionContent, contentID, item),
		docstore.SetOp(models.CollectionApprovalQueue, entry.ID, entry),
	})
	if err != nil {
		return nil, apperr.PersistenceFailure(fmt.Errorf("store content %s: %w", contentID, err))
	}

	slog.Info("content generated",
		"content_id", contentID,
		"website_id", req.WebsiteID,
		"caller", caller.ID,
		"keywords", len(item.Keywords),
	)

	return &Result{
		ContentID:       contentID,
		Title:           item.Title,
		MetaDescription: item.MetaDescription,
		Message:         "Content generated successfully",
	}, nil
}

// Regenerate rewrites the page of a queued task. The prompt tells the model
// the previous score (and any reviewer feedback) so it varies its approach.
// The result is not stored; the queue worker persists it with the task
// transition.
func (g *Generator) Regenerate(ctx context.Context, task *models.RegenerationTask) (*Generated, error) {
	svc, loc, err := g.loadPair(ctx, task.ServiceID, task.LocationID)
	if err != nil {
		return nil, err
	}

	websiteID := task.WebsiteID
	if websiteID == "" {
		var item models.ContentItem
		if err := g.store.Get(ctx, models.CollectionContent, task.ContentID, &item); err == nil {
			websiteID = item.WebsiteID
		}
	}

	return g.compose(ctx, svc, loc, websiteID, regenerationPreamble(task.CurrentScore, task.Feedback))
}

// NewApprovalEntry returns a pending approval queue entry for item.
func NewApprovalEntry(item *models.ContentItem, at time.Time) models.ApprovalQueueEntry {
	return models.ApprovalQueueEntry{
		ID:          uuid.NewString(),
		ContentID:   item.ID,
		ContentType: models.ContentTypeServiceLocation,
		Status:      models.ApprovalPending,
		ServiceID:   item.ServiceID,
		LocationID:  item.LocationID,
		WebsiteID:   item.WebsiteID,
		GeneratedAt: at,
	}
}

// loadPair reads the service and location documents.
func (g *Generator) loadPair(ctx context.Context, serviceID, locationID string) (*models.Service, *models.Location, error) {
	var svc models.Service
	if err := g.store.Get(ctx, models.CollectionServices, serviceID, &svc); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil, apperr.NotFound(fmt.Sprintf("service %q not found", serviceID))
		}
		return nil, nil, apperr.Internal(fmt.Errorf("load service %s: %w", serviceID, err))
	}
	var loc models.Location
	if err := g.store.Get(ctx, models.CollectionLocations, locationID, &loc); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil, apperr.NotFound(fmt.Sprintf("location %q not found", locationID))
		}
		return nil, nil, apperr.Internal(fmt.Errorf("load location %s: %w", locationID, err))
	}
	if svc.ID == "" {
		svc.ID = serviceID
	}
	if loc.ID == "" {
		loc.ID = locationID
	}
	if svc.Name == "" {
		svc.Name = serviceID
	}
	if loc.Name == "" {
		loc.Name = locationID
	}
	return &svc, &loc, nil
}

// compose calls the text generator and turns its answer into page copy.
func (g *Generator) compose(ctx context.Context, svc *models.Service, loc *models.Location, websiteID, preamble string) (*Generated, error) {
	market := g.catalog.Business.Market
	req := ai.Request{
		System: systemPrompt,
		Prompt: preamble + buildPrompt(promptInput{
			Service:     svc,
			Location:    loc,
			SiteContext: g.catalog.SiteContext(websiteID),
			Market:      market,
		}),
		Complexity:      ai.ComplexityHigh,
		Temperature:     ai.DefaultTemperature,
		MaxOutputTokens: g.opts.MaxOutputTokens,
	}

	var text string
	var err error
	if g.opts.Vision && loc.ImageURL != "" {
		req.Prompt += "\n\nUse the attached photo of " + loc.Name + " for local color."
		text, err = g.text.GenerateWithImageURL(ctx, req, loc.ImageURL)
	} else {
		text, err = g.text.Generate(ctx, req)
	}
	if err != nil {
		return nil, apperr.GenerationFailure(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.GenerationFailure(errors.New("empty response"))
	}

	s := parseResponse(text, svc, loc, market)
	return &Generated{
		Title:           s.Title,
		MetaDescription: s.MetaDescription,
		Content:         s.Content,
		Keywords:        s.Keywords,
		InternalLinks:   internalLinks(g.catalog, svc.ID, loc.ID),
		Schema:          structuredData(g.catalog.Business, svc, loc, s.MetaDescription),
	}, nil
}

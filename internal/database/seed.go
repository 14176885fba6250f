// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"fmt"
	"log/slog"

	"limoseo/internal/catalog"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

// Seed writes the catalog's services and locations into the document store
// for development. It does nothing if any service document already exists.
func Seed(ctx context.Context, store docstore.Store, cat *catalog.Catalog) error {
	existing, err := store.Query(ctx, docstore.Query{Collection: models.CollectionServices, Limit: 1})
	if err != nil {
		return fmt.Errorf("seed check services: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("document store already seeded, skipping")
		return nil
	}

	var groups []docstore.Group
	for _, s := range cat.Services {
		groups = append(groups, docstore.Group{docstore.SetOp(models.CollectionServices, s.ID, s)})
	}
	for _, l := range cat.Locations {
		groups = append(groups, docstore.Group{docstore.SetOp(models.CollectionLocations, l.ID, l)})
	}

	for _, err := range docstore.CommitGroups(ctx, store, groups) {
		if err != nil {
			return fmt.Errorf("seed write: %w", err)
		}
	}

	slog.Info("document store seeded",
		"services", len(cat.Services),
		"locations", len(cat.Locations),
	)
	return nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"fmt"
	"strings"

	"limoseo/internal/catalog"
	"limoseo/internal/models"
)

// MaxInternalLinks caps the internal link list of a content item.
const MaxInternalLinks = 12

// internalLinks derives the page's internal links: the same location under
// related services, the same service in nearby locations, then the service
// and location hubs. Duplicates are dropped.
func internalLinks(cat *catalog.Catalog, serviceID, locationID string) []string {
	category, _, _ := strings.Cut(serviceID, "-")

	var candidates []string
	for _, rel := range cat.Related(serviceID) {
		candidates = append(candidates, fmt.Sprintf("/%s/%s/%s", category, rel, locationID))
	}
	for _, near := range cat.Nearby(locationID) {
		candidates = append(candidates, fmt.Sprintf("/%s/%s/%s", category, serviceID, near))
	}
	candidates = append(candidates, "/services/"+serviceID, "/locations/"+locationID)

	links := make([]string, 0, MaxInternalLinks)
	seen := make(map[string]bool)
	for _, l := range candidates {
		if seen[l] {
			continue
		}
		seen[l] = true
		links = append(links, l)
		if len(links) == MaxInternalLinks {
			break
		}
	}
	return links
}

// structuredData builds the schema.org JSON-LD object for a page.
func structuredData(biz catalog.Business, svc *models.Service, loc *models.Location, description string) map[string]any {
	offer := map[string]any{
		"@type":        "Offer",
		"availability": "https://schema.org/InStock",
	}
	if biz.PriceRange != "" {
		offer["priceRange"] = biz.PriceRange
	}
	return map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Service",
		"name":        fmt.Sprintf("%s in %s", svc.Name, loc.Name),
		"description": description,
		"serviceType": svc.Name,
		"provider": map[string]any{
			"@type": "LocalBusiness",
			"name":  biz.Name,
			"url":   biz.URL,
		},
		"areaServed": map[string]any{
			"@type": "City",
			"name":  loc.Name,
		},
		"offers": offer,
	}
}

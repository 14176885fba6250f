// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog holds the static business data used when writing pages:
// site contexts per website, the service/location link graph, provider
// details for structured data, and seed services and locations.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"limoseo/internal/models"
)

//go:embed default.yaml
var defaultYAML []byte

// Business describes the provider named in structured data.
type Business struct {
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	Market     string `yaml:"market"`
	PriceRange string `yaml:"priceRange"`
}

// Catalog is the parsed catalog file.
type Catalog struct {
	Business           Business            `yaml:"business"`
	DefaultSiteContext string              `yaml:"defaultSiteContext"`
	Sites              map[string]string   `yaml:"sites"`
	RelatedServices    map[string][]string `yaml:"relatedServices"`
	NearbyLocations    map[string][]string `yaml:"nearbyLocations"`
	Services           []models.Service    `yaml:"services"`
	Locations          []models.Location   `yaml:"locations"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads a catalog file. An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Business.Name == "" {
		return nil, fmt.Errorf("catalog: business.name is required")
	}
	if c.Business.Market == "" {
		c.Business.Market = "Chicago"
	}
	if c.DefaultSiteContext == "" {
		c.DefaultSiteContext = "premium transportation service"
	}
	for i, s := range c.Services {
		if s.ID == "" || s.Name == "" {
			return nil, fmt.Errorf("catalog: service %d needs id and name", i)
		}
	}
	for i, l := range c.Locations {
		if l.ID == "" || l.Name == "" {
			return nil, fmt.Errorf("catalog: location %d needs id and name", i)
		}
	}
	return &c, nil
}

// SiteContext returns the positioning blurb for a website, falling back to
// the default context for unknown websites.
func (c *Catalog) SiteContext(websiteID string) string {
	if s, ok := c.Sites[websiteID]; ok && s != "" {
		return s
	}
	return c.DefaultSiteContext
}

// Related returns services commonly booked alongside serviceID.
func (c *Catalog) Related(serviceID string) []string {
	return c.RelatedServices[serviceID]
}

// Nearby returns locations adjacent to locationID.
func (c *Catalog) Nearby(locationID string) []string {
	return c.NearbyLocations[locationID]
}

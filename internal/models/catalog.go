// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Service is a bookable transportation offering, e.g. "airport-ohare".
type Service struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description" yaml:"description"`
	LongDescription string   `json:"longDescription" yaml:"longDescription"`
	Keywords        []string `json:"keywords" yaml:"keywords"`
	SearchVolume    int      `json:"searchVolume" yaml:"searchVolume"`
}

// Location is a served city or neighborhood.
type Location struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	Description  string            `json:"description" yaml:"description"`
	Landmarks    []string          `json:"landmarks" yaml:"landmarks"`
	Demographics map[string]string `json:"demographics,omitempty" yaml:"demographics"`
	ImageURL     string            `json:"imageUrl,omitempty" yaml:"imageUrl"`
}

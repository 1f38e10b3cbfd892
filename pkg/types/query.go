// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the parts-engine pipeline.
package types

import "strings"

// Domain identifies which dual-search pipeline a query belongs to.
type Domain string

const (
	DomainPart            Domain = "part"
	DomainSupplier        Domain = "supplier"
	DomainManual          Domain = "manual"
	DomainServiceProvider Domain = "service_provider"
	DomainImage           Domain = "image"
)

// Query is the immutable input to one pipeline run. It is constructed per
// incoming request and read-only thereafter.
type Query struct {
	// Description is the subject of the search: a part description for the
	// part domain, a service description for providers, a part name for images.
	Description string `json:"description" yaml:"description"`

	// Make is the equipment make (e.g. "Hobart").
	Make string `json:"make,omitempty" yaml:"make,omitempty"`

	// Model is the equipment model (e.g. "A200").
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Year is the equipment year, kept as a string because catalogs use
	// ranges like "2019-2021".
	Year string `json:"year,omitempty" yaml:"year,omitempty"`

	// Domain selects the pipeline instance handling this query.
	Domain Domain `json:"domain" yaml:"domain"`

	// BypassCache forces fresh search results by adding a uniqueness token
	// and timestamp to the search request.
	BypassCache bool `json:"bypass_cache,omitempty" yaml:"bypass_cache,omitempty"`

	// PartNumber carries an already-resolved OEM number for the supplier and
	// image domains.
	PartNumber string `json:"part_number,omitempty" yaml:"part_number,omitempty"`

	// ManualType narrows the manual domain (service manual, parts manual,
	// operator manual). Empty means "service manual".
	ManualType string `json:"manual_type,omitempty" yaml:"manual_type,omitempty"`

	// ServiceType narrows the service-provider domain (repair, installation,
	// maintenance). Empty means "repair".
	ServiceType string `json:"service_type,omitempty" yaml:"service_type,omitempty"`

	// Location is a geographic preference for supplier and provider searches.
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Equipment returns the "Make Model" display string, trimmed.
func (q Query) Equipment() string {
	return strings.TrimSpace(strings.TrimSpace(q.Make) + " " + strings.TrimSpace(q.Model))
}

// IsEmpty reports whether the query contains no searchable subject.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Description) == "" &&
		strings.TrimSpace(q.PartNumber) == "" &&
		q.Equipment() == ""
}

// MatchesModelNumber reports whether an identifier collapses to the equipment
// model or make+model string. A candidate whose identifier is the model number
// is a known failure mode and must never be accepted silently.
func (q Query) MatchesModelNumber(identifier string) bool {
	id := strings.TrimSpace(strings.ToUpper(identifier))
	if id == "" {
		return false
	}
	model := strings.TrimSpace(strings.ToUpper(q.Model))
	if model != "" && id == model {
		return true
	}
	equipment := strings.ToUpper(q.Equipment())
	return equipment != "" && id == equipment
}

// Package model defines the canonical dataset types shared across the pipeline,
// the exporters, the store, and the query API.
package model

import "strconv"

// ZipRecord is one row of the canonical ZIP code dataset.
//
// ID is a surrogate key assigned after the full record set is known: records
// are sorted by Zip ascending (string compare, since ZIPs are zero-padded) and
// numbered 1..N. Downstream consumers rely on that ordering being recomputed
// the same way on every rebuild, so ID is never carried over from a previous
// dataset version.
type ZipRecord struct {
	ID         int     `json:"id"`
	Zip        string  `json:"zip"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Population *int64  `json:"population,omitempty"`
}

// HasPopulation reports whether a population value was merged in.
func (r ZipRecord) HasPopulation() bool {
	return r.Population != nil
}

// FormatCoord renders a coordinate with the shortest decimal representation
// that round-trips, never in scientific notation. All text exports use this so
// the formats stay byte-consistent with each other.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Place is the city/state enrichment for a ZIP, derived from the Census
// ZCTA-to-place relationship file. It lives alongside the canonical record in
// the store but is never part of the canonical exports.
type Place struct {
	Zip       string `json:"zip"`
	City      string `json:"city"`
	State     string `json:"state"`
	PlaceType string `json:"type"`
}

// ZipDetail is a canonical record plus its optional place enrichment, as
// returned by the store and served by the query API.
type ZipDetail struct {
	ZipRecord
	City      *string `json:"city"`
	State     *string `json:"state"`
	PlaceType *string `json:"type"`
}

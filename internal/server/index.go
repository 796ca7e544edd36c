package server

import (
	"math/rand/v2"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Index is the in-memory coordinate index the API serves nearest and
// weighted-random queries from. It is built once at startup from the full
// dataset; the dataset only changes via a full reload, so there is no
// invalidation.
type Index struct {
	zips    []string
	coords  []geom.Coord
	weights []int64 // cumulative population, for weighted sampling
	total   int64
}

// indexEntry is one record's worth of index input.
type indexEntry struct {
	Zip        string
	Lat        float64
	Lng        float64
	Population *int64
}

// newIndex builds the index. Records are assumed unique by zip.
func newIndex(entries []indexEntry) *Index {
	idx := &Index{
		zips:    make([]string, 0, len(entries)),
		coords:  make([]geom.Coord, 0, len(entries)),
		weights: make([]int64, 0, len(entries)),
	}
	for _, e := range entries {
		idx.zips = append(idx.zips, e.Zip)
		idx.coords = append(idx.coords, geom.Coord{e.Lat, e.Lng})
		if e.Population != nil && *e.Population > 0 {
			idx.total += *e.Population
		}
		idx.weights = append(idx.weights, idx.total)
	}
	return idx
}

// Len returns the number of indexed records.
func (idx *Index) Len() int { return len(idx.zips) }

// Nearest returns the zip whose point is closest to (lat, lng) in the plain
// lat/lng plane. Planar distance over-weights longitude away from the
// equator, but it matches what the dataset has always served and is
// monotonic enough for "which ZIP is this point in".
func (idx *Index) Nearest(lat, lng float64) (string, bool) {
	if len(idx.coords) == 0 {
		return "", false
	}

	query := geom.Coord{lat, lng}
	bestIdx := 0
	bestDist := xy.Distance(query, idx.coords[0])
	for i := 1; i < len(idx.coords); i++ {
		if d := xy.Distance(query, idx.coords[i]); d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	return idx.zips[bestIdx], true
}

// WeightedRandom returns a zip sampled proportionally to population. Records
// with no or zero population are never chosen; returns false if no record
// carries population.
func (idx *Index) WeightedRandom() (string, bool) {
	if idx.total == 0 {
		return "", false
	}

	target := rand.Int64N(idx.total)
	// First index whose cumulative weight exceeds target.
	lo, hi := 0, len(idx.weights)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if idx.weights[mid] > target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return idx.zips[lo], true
}

// Package places derives a ZIP -> city/state mapping from the Census
// ZCTA-to-place relationship file and the place gazetteer.
//
// A ZCTA can overlap several incorporated places; the conversion picks one
// "best" place per ZIP by the largest land-area overlap (or, when the source
// vintage carries it, population overlap) and splits the gazetteer place name
// into a base name and a type suffix ("Salem city" -> "Salem", "city").
package places

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/fetcher"
	"github.com/sells-group/zipdata-cli/internal/model"
)

// Selection controls how overlapping places are ranked.
type Selection string

const (
	SelectMaxArea Selection = "max_area"
	SelectMaxPop  Selection = "max_pop"
)

// PlaceKey identifies a place by state FIPS + place FIPS.
type PlaceKey struct {
	StateFP string
	PlaceFP string
}

// PlaceInfo is a place gazetteer entry: the full Census name and the USPS
// state abbreviation.
type PlaceInfo struct {
	Name  string
	State string
}

// Relation is one row of the ZCTA-to-place relationship file.
type Relation struct {
	ZCTA    string
	Key     PlaceKey
	AreaPct float64
	PopPct  float64
}

// LoadPlaceGazetteer reads the tab-delimited place gazetteer into a lookup
// keyed by (state FIPS, place FIPS). GEOID for a place is state FIPS (2
// digits) + place FIPS (5 digits); 2020-vintage column names are accepted as
// fallbacks.
func LoadPlaceGazetteer(ctx context.Context, r io.Reader) (map[PlaceKey]PlaceInfo, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter: '\t',
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	// An empty source never sends a header; a blocking receive would hang.
	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.New("places: gazetteer source has no header row")
	}

	geoidIdx := columnIndex(header, "GEOID", "GEOID20")
	nameIdx := columnIndex(header, "NAME", "NAME20")
	stateIdx := columnIndex(header, "USPS", "STUSAB", "STATE")
	if geoidIdx < 0 || nameIdx < 0 || stateIdx < 0 {
		return nil, eris.Errorf("places: gazetteer header missing GEOID/NAME/USPS columns: %v", header)
	}

	lookup := make(map[PlaceKey]PlaceInfo, len(rows))
	for _, row := range rows {
		if len(row) <= geoidIdx || len(row) <= nameIdx || len(row) <= stateIdx {
			continue
		}
		geoid := row[geoidIdx]
		if len(geoid) < 7 {
			continue
		}
		lookup[PlaceKey{StateFP: geoid[:2], PlaceFP: geoid[2:7]}] = PlaceInfo{
			Name:  row[nameIdx],
			State: row[stateIdx],
		}
	}

	return lookup, nil
}

// LoadRelationships reads the pipe-delimited ZCTA-to-place relationship file.
// Rows without both GEOIDs are dropped; an unparsable overlap area counts as
// zero rather than failing (the file documents blanks for water-only parts).
func LoadRelationships(ctx context.Context, r io.Reader) ([]Relation, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter: '|',
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.New("places: relationship source has no header row")
	}

	zctaIdx := columnIndex(header, "GEOID_ZCTA5_20")
	placeIdx := columnIndex(header, "GEOID_PLACE_20")
	areaIdx := columnIndex(header, "AREALAND_PART")
	if zctaIdx < 0 || placeIdx < 0 {
		return nil, eris.Errorf("places: relationship header missing GEOID columns: %v", header)
	}

	var rels []Relation
	for _, row := range rows {
		if len(row) <= zctaIdx || len(row) <= placeIdx {
			continue
		}
		zcta := row[zctaIdx]
		place := row[placeIdx]
		if zcta == "" || len(place) < 7 {
			continue
		}

		var area float64
		if areaIdx >= 0 && len(row) > areaIdx && row[areaIdx] != "" {
			if v, err := strconv.ParseFloat(row[areaIdx], 64); err == nil {
				area = v
			}
		}

		if len(zcta) > 5 {
			zcta = zcta[len(zcta)-5:]
		}
		rels = append(rels, Relation{
			ZCTA:    zcta,
			Key:     PlaceKey{StateFP: place[:2], PlaceFP: place[2:7]},
			AreaPct: area,
		})
	}

	return rels, nil
}

// SelectBest picks one place per ZCTA by the largest overlap score.
func SelectBest(rels []Relation, by Selection) map[string]PlaceKey {
	type scored struct {
		key   PlaceKey
		score float64
	}
	best := make(map[string]scored)
	for _, rel := range rels {
		score := rel.AreaPct
		if by == SelectMaxPop {
			score = rel.PopPct
		}
		if cur, ok := best[rel.ZCTA]; !ok || score > cur.score {
			best[rel.ZCTA] = scored{key: rel.Key, score: score}
		}
	}

	out := make(map[string]PlaceKey, len(best))
	for zcta, s := range best {
		out[zcta] = s.key
	}
	return out
}

// Census place names end in a legal/statistical type suffix. Multi-word
// phrases must be checked before single words so "city and borough" does not
// match as "borough".
var multiWordTypes = []string{
	"census designated place",
	"metropolitan government",
	"consolidated government",
	"consolidated city",
	"city and borough",
	"charter township",
	"city and county",
	"zona urbana",
	"urban county",
	"barrio-pueblo",
}

var singleWordTypes = []string{
	"city", "town", "village", "borough", "CDP", "plantation", "township",
	"municipality", "precinct", "district", "comunidad",
}

// SplitNameType splits a gazetteer place name into base name and type suffix.
func SplitNameType(full string) (base, placeType string) {
	s := strings.TrimSpace(full)
	if s == "" {
		return s, ""
	}

	for _, phrase := range multiWordTypes {
		if strings.HasSuffix(s, " "+phrase) {
			return strings.TrimRight(s[:len(s)-len(phrase)], ", "), phrase
		}
	}
	for _, t := range singleWordTypes {
		if strings.HasSuffix(s, " "+t) {
			return strings.TrimRight(s[:len(s)-len(t)], ", "), t
		}
	}
	return s, ""
}

// Convert joins the selections against the place gazetteer and produces the
// final mapping, sorted by ZIP for deterministic output. Selections whose
// place is missing from the gazetteer are warned about and skipped, not
// fatal; the count is surfaced to the caller.
func Convert(lookup map[PlaceKey]PlaceInfo, selections map[string]PlaceKey) ([]model.Place, int) {
	out := make([]model.Place, 0, len(selections))
	missing := 0
	for zcta, key := range selections {
		info, ok := lookup[key]
		if !ok {
			missing++
			zap.L().Warn("place not found in gazetteer",
				zap.String("zip", zcta),
				zap.String("statefp", key.StateFP),
				zap.String("placefp", key.PlaceFP),
			)
			continue
		}
		base, placeType := SplitNameType(info.Name)
		out = append(out, model.Place{
			Zip:       zcta,
			City:      base,
			State:     info.State,
			PlaceType: placeType,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Zip < out[j].Zip })
	return out, missing
}

// WriteCSV writes the mapping as a zip,city,state,type CSV.
func WriteCSV(w io.Writer, places []model.Place) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"zip", "city", "state", "type"}); err != nil {
		return eris.Wrap(err, "places: write header")
	}
	for _, p := range places {
		if err := cw.Write([]string{p.Zip, p.City, p.State, p.PlaceType}); err != nil {
			return eris.Wrapf(err, "places: write row %s", p.Zip)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "places: flush")
}

// ReadCSV reads a zip,city,state,type CSV back into places, for loading into
// the store.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.Place, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		TrimSpace: true,
	})

	var out []model.Place
	for row := range rowCh {
		if len(row) < 4 {
			return nil, eris.Errorf("places: short row %v", row)
		}
		out = append(out, model.Place{Zip: row[0], City: row[1], State: row[2], PlaceType: row[3]})
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func columnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			if h == name {
				return i
			}
		}
	}
	return -1
}

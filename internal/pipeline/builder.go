// Package pipeline builds the canonical ZIP record set: validation and
// surrogate key assignment, population merge, and full-run orchestration.
package pipeline

import (
	"math"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/gazetteer"
	"github.com/sells-group/zipdata-cli/internal/model"
)

var (
	// ErrInvalidCoordinate means a lat/lng field did not parse as a finite number.
	ErrInvalidCoordinate = eris.New("builder: coordinate not parseable")

	// ErrDuplicateZip means the same postal code appeared twice in the source.
	// The dataset's core promise is one record per ZIP, so this fails the
	// whole run rather than dropping a row.
	ErrDuplicateZip = eris.New("builder: duplicate postal code")
)

// Build consumes the parser's row stream and produces the full canonical
// record set, population unset. Records are sorted by Zip ascending (string
// compare) and IDs assigned 1..N in that order. The sort and renumbering
// happen on every rebuild; IDs are a positional contract, not persisted state.
func Build(rows <-chan gazetteer.Row, errs <-chan error, cols gazetteer.Columns) ([]model.ZipRecord, error) {
	if cols == (gazetteer.Columns{}) {
		cols = gazetteer.DefaultColumns()
	}

	seen := make(map[string]int) // zip -> first line seen
	var records []model.ZipRecord

	for row := range rows {
		zip := row.Fields[cols.Zip]

		lat, err := parseCoord(row.Fields[cols.Lat])
		if err != nil {
			return nil, eris.Wrapf(ErrInvalidCoordinate, "line %d: %s=%q", row.Line, cols.Lat, row.Fields[cols.Lat])
		}
		lng, err := parseCoord(row.Fields[cols.Lng])
		if err != nil {
			return nil, eris.Wrapf(ErrInvalidCoordinate, "line %d: %s=%q", row.Line, cols.Lng, row.Fields[cols.Lng])
		}

		if first, dup := seen[zip]; dup {
			return nil, eris.Wrapf(ErrDuplicateZip, "%s on lines %d and %d", zip, first, row.Line)
		}
		seen[zip] = row.Line

		records = append(records, model.ZipRecord{Zip: zip, Lat: lat, Lng: lng})
	}

	// The parser reports errors only after the row channel closes.
	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Zip < records[j].Zip
	})
	for i := range records {
		records[i].ID = i + 1
	}

	zap.L().Info("canonical record set built", zap.Int("records", len(records)))
	return records, nil
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("non-finite value %q", s)
	}
	return v, nil
}

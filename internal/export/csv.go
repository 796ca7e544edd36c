package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zipdata-cli/internal/model"
)

// WritePlainCSV writes the minimal legacy format: no surrogate key, no
// population, uppercase header.
func WritePlainCSV(w io.Writer, records []model.ZipRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"ZIP", "LAT", "LNG"}); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, r := range records {
		row := []string{r.Zip, model.FormatCoord(r.Lat), model.FormatCoord(r.Lng)}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "csv: write row %s", r.Zip)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// ReadKeyedCSV reads the surrogate-keyed CSV back into records. It is the
// inverse of WriteKeyedCSV and is used to load a previously built export into
// the datastore without rebuilding from source.
func ReadKeyedCSV(r io.Reader) ([]model.ZipRecord, error) {
	cr := csv.NewReader(r)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read")
	}
	if len(rows) == 0 {
		return nil, eris.New("csv: empty file")
	}

	records := make([]model.ZipRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 5 {
			return nil, eris.Errorf("csv: short row %v", row)
		}

		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, eris.Wrapf(err, "csv: parse id %q", row[0])
		}
		lat, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: parse lat %q", row[2])
		}
		lng, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: parse lng %q", row[3])
		}

		rec := model.ZipRecord{ID: id, Zip: row[1], Lat: lat, Lng: lng}
		if row[4] != "" {
			pop, err := strconv.ParseInt(row[4], 10, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "csv: parse population %q", row[4])
			}
			rec.Population = &pop
		}
		records = append(records, rec)
	}

	return records, nil
}

// WriteKeyedCSV writes the surrogate-keyed format consumed by the datastore.
// A null population serializes as an empty field, never 0.
func WriteKeyedCSV(w io.Writer, records []model.ZipRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "zip", "lat", "lng", "population"}); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, r := range records {
		pop := ""
		if r.HasPopulation() {
			pop = strconv.FormatInt(*r.Population, 10)
		}
		row := []string{
			strconv.Itoa(r.ID),
			r.Zip,
			model.FormatCoord(r.Lat),
			model.FormatCoord(r.Lng),
			pop,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "csv: write row %s", r.Zip)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// Package export serializes the canonical record set into the four published
// representations. Every format carries the same logical records in the same
// ID order; the only differences are per-format field selection and the null
// representation for population.
package export

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/model"
)

// Format identifies one output representation.
type Format string

const (
	FormatPlainCSV Format = "plain_csv" // ZIP,LAT,LNG — legacy minimal format
	FormatKeyedCSV Format = "keyed_csv" // id,zip,lat,lng,population
	FormatJSON     Format = "json"
	FormatSQL      Format = "sql"
)

// FileName returns the output file name for a format.
func (f Format) FileName() string {
	switch f {
	case FormatPlainCSV:
		return "zips.csv"
	case FormatKeyedCSV:
		return "zip_codes.csv"
	case FormatJSON:
		return "zip_codes.json"
	case FormatSQL:
		return "zip_codes.sql"
	}
	return string(f)
}

// Formats lists every output representation in write order.
var Formats = []Format{FormatPlainCSV, FormatKeyedCSV, FormatJSON, FormatSQL}

// WriteAll writes every format into dir. The formats are independent side
// effects, not a transaction: one failing is logged and does not stop the
// siblings. Returns the paths written and the joined error of any failures.
func WriteAll(dir string, records []model.ZipRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create output dir %s", dir)
	}

	var written []string
	var failures []error
	for _, format := range Formats {
		path := filepath.Join(dir, format.FileName())
		if err := writeFile(path, format, records); err != nil {
			zap.L().Error("export format failed",
				zap.String("format", string(format)),
				zap.String("path", path),
				zap.Error(err),
			)
			failures = append(failures, eris.Wrapf(err, "export: %s", format))
			continue
		}
		written = append(written, path)
	}

	return written, errors.Join(failures...)
}

func writeFile(path string, format Format, records []model.ZipRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create file")
	}

	var werr error
	switch format {
	case FormatPlainCSV:
		werr = WritePlainCSV(f, records)
	case FormatKeyedCSV:
		werr = WriteKeyedCSV(f, records)
	case FormatJSON:
		werr = WriteJSON(f, records)
	case FormatSQL:
		werr = WriteSQL(f, records)
	default:
		werr = eris.Errorf("unknown format %q", format)
	}

	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = eris.Wrap(cerr, "close file")
	}
	return werr
}

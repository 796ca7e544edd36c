// Package gazetteer reads Census gazetteer sources into header-keyed rows.
//
// The primary source is the agency's tab-delimited ZCTA gazetteer file; an
// alternative shapefile source derives coordinates from ZCTA polygon
// centroids. Both produce the same row contract for the builder.
package gazetteer

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrMissingColumns means the header row lacks one of the required columns.
	ErrMissingColumns = eris.New("gazetteer: required columns missing from header")

	// ErrMalformedRow means a data row has fewer fields than the header.
	// Rows are never silently skipped; a structurally bad row fails the run.
	ErrMalformedRow = eris.New("gazetteer: malformed row")
)

// Columns names the source columns carrying the postal code and coordinates.
type Columns struct {
	Zip string
	Lat string
	Lng string
}

// DefaultColumns matches the national ZCTA gazetteer header.
func DefaultColumns() Columns {
	return Columns{Zip: "GEOID", Lat: "INTPTLAT", Lng: "INTPTLONG"}
}

// Options configures the gazetteer parser.
type Options struct {
	Columns  Columns
	Encoding string // "latin1" enables ISO 8859-1 decoding; anything else is passthrough
}

// Row is one parsed gazetteer line, keyed by the verbatim header names.
type Row struct {
	Line   int // 1-based source line number, header included
	Fields map[string]string
}

// Stream parses the tab-delimited gazetteer file and sends rows to a channel.
// Caller must consume the returned row channel; errors arrive on the error
// channel. Both channels are closed when processing completes.
//
// The source pads fixed-width columns with spaces and ships CRLF line
// endings, so every field is stripped of spaces, carriage returns, and line
// feeds after splitting on the tab delimiter. The tokenizer assumes unquoted
// fields; a field containing a literal tab would be split apart. That matches
// the published format, which never quotes.
func Stream(ctx context.Context, r io.Reader, opts Options) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	if opts.Columns == (Columns{}) {
		opts.Columns = DefaultColumns()
	}

	go func() {
		defer close(rowCh)
		defer close(errCh)

		if strings.EqualFold(opts.Encoding, "latin1") {
			r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
		}

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var header []string
		line := 0
		for scanner.Scan() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "gazetteer: context cancelled")
				return
			}
			line++

			fields := splitAndClean(scanner.Text())

			if header == nil {
				header = fields
				if err := checkHeader(header, opts.Columns); err != nil {
					errCh <- err
					return
				}
				continue
			}

			if len(fields) < len(header) {
				errCh <- eris.Wrapf(ErrMalformedRow, "line %d: %d fields, header has %d", line, len(fields), len(header))
				return
			}

			row := Row{Line: line, Fields: make(map[string]string, len(header))}
			for i, name := range header {
				row.Fields[name] = fields[i]
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "gazetteer: context cancelled")
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errCh <- eris.Wrap(err, "gazetteer: read source")
		}
	}()

	return rowCh, errCh
}

// splitAndClean tokenizes one line: split on tab, then strip the space
// padding and stray CR/LF from each field.
func splitAndClean(line string) []string {
	fields := strings.Split(line, "\t")
	for i, f := range fields {
		fields[i] = strings.Trim(f, " \r\n")
	}
	return fields
}

func checkHeader(header []string, cols Columns) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string
	for _, name := range []string{cols.Zip, cols.Lat, cols.Lng} {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrMissingColumns, "want %s", strings.Join(missing, ", "))
	}
	return nil
}

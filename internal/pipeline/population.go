package pipeline

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/fetcher"
)

// PopulationOptions configures the population source loader.
type PopulationOptions struct {
	ZipColumn string // default "zip"
	PopColumn string // default "population"

	// ACSRaw reads the unprocessed ACS export instead: two header rows, the
	// ZIP embedded in a "ZCTA5 #####" name field, "*****" margin markers.
	ACSRaw bool
}

// PopulationStats summarizes a population load for the run manifest.
type PopulationStats struct {
	SourceRows int `yaml:"source_rows"`
	Parsed     int `yaml:"parsed"`
	Skipped    int `yaml:"skipped"`
}

var acsZipRe = regexp.MustCompile(`ZCTA5 (\d{5})`)

// LoadPopulation reads a population CSV into a zip -> population map.
//
// Population is best-effort secondary data: a value that is empty, negative,
// or not an integer is skipped (the record stays null downstream), never
// fatal. Skips are counted so the run can report them.
func LoadPopulation(ctx context.Context, r io.Reader, opts PopulationOptions) (map[string]int64, PopulationStats, error) {
	if opts.ACSRaw {
		return loadACSRaw(ctx, r)
	}

	if opts.ZipColumn == "" {
		opts.ZipColumn = "zip"
	}
	if opts.PopColumn == "" {
		opts.PopColumn = "population"
	}

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
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
			return nil, PopulationStats{}, err
		}
	}

	// The header arrives on the buffered channel before the first data row, so
	// after both channels are drained a blocking receive could only hang: an
	// empty source never sends one.
	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, PopulationStats{}, eris.New("population: source has no header row")
	}

	zipIdx, popIdx := -1, -1
	for i, name := range header {
		switch name {
		case opts.ZipColumn:
			zipIdx = i
		case opts.PopColumn:
			popIdx = i
		}
	}
	if zipIdx < 0 || popIdx < 0 {
		return nil, PopulationStats{}, eris.Errorf(
			"population: columns %q, %q not found in header %v", opts.ZipColumn, opts.PopColumn, header)
	}

	pop := make(map[string]int64, len(rows))
	stats := PopulationStats{SourceRows: len(rows)}
	for _, row := range rows {
		if len(row) <= zipIdx || len(row) <= popIdx {
			stats.Skipped++
			continue
		}
		addPopulation(pop, &stats, row[zipIdx], row[popIdx])
	}

	logPopulation(stats)
	return pop, stats, nil
}

// PopulationRows converts pre-read rows (e.g. from an XLSX sheet) using
// positional zip/population columns.
func PopulationRows(rows [][]string, zipIdx, popIdx int) (map[string]int64, PopulationStats) {
	pop := make(map[string]int64, len(rows))
	stats := PopulationStats{SourceRows: len(rows)}
	for _, row := range rows {
		if len(row) <= zipIdx || len(row) <= popIdx {
			stats.Skipped++
			continue
		}
		addPopulation(pop, &stats, strings.TrimSpace(row[zipIdx]), strings.TrimSpace(row[popIdx]))
	}
	logPopulation(stats)
	return pop, stats
}

// loadACSRaw handles the raw ACS table export. Layout: a machine header row,
// a human-readable header row, then data rows of (geoid, name, estimate,
// margin). The ZIP must be extracted from the name field.
func loadACSRaw(ctx context.Context, r io.Reader) (map[string]int64, PopulationStats, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{TrimSpace: true})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, PopulationStats{}, err
		}
	}

	if len(rows) > 2 {
		rows = rows[2:]
	} else {
		rows = nil
	}

	pop := make(map[string]int64, len(rows))
	stats := PopulationStats{SourceRows: len(rows)}
	for _, row := range rows {
		if len(row) < 3 {
			stats.Skipped++
			continue
		}
		m := acsZipRe.FindStringSubmatch(row[1])
		if m == nil {
			stats.Skipped++
			continue
		}
		addPopulation(pop, &stats, m[1], row[2])
	}

	logPopulation(stats)
	return pop, stats, nil
}

func addPopulation(pop map[string]int64, stats *PopulationStats, zip, raw string) {
	if zip == "" {
		stats.Skipped++
		return
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
	if err != nil || v < 0 {
		stats.Skipped++
		return
	}
	pop[zip] = v
	stats.Parsed++
}

func logPopulation(stats PopulationStats) {
	zap.L().Info("population source loaded",
		zap.Int("source_rows", stats.SourceRows),
		zap.Int("parsed", stats.Parsed),
		zap.Int("skipped", stats.Skipped),
	)
}

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/zipdata-cli/internal/export"
	"github.com/sells-group/zipdata-cli/internal/fetcher"
	"github.com/sells-group/zipdata-cli/internal/gazetteer"
	"github.com/sells-group/zipdata-cli/internal/model"
)

// RunOptions configures one full dataset rebuild.
type RunOptions struct {
	GazetteerPath string
	FromShapefile bool // GazetteerPath points at a ZCTA .shp instead of the text gazetteer

	PopulationPath string // optional; empty leaves every record's population null
	ACSRaw         bool
	PopZipColumn   string
	PopColumn      string

	Columns  gazetteer.Columns
	Encoding string

	OutDir string
}

// Manifest describes one completed build, written next to the exports.
type Manifest struct {
	SnapshotID string          `yaml:"snapshot_id"`
	BuiltAt    time.Time       `yaml:"built_at"`
	Gazetteer  string          `yaml:"gazetteer"`
	Population string          `yaml:"population,omitempty"`
	Records    int             `yaml:"records"`
	Source     PopulationStats `yaml:"population_source"`
	Merge      MergeStats      `yaml:"merge"`
	Outputs    []string        `yaml:"outputs"`
}

// Result is the outcome of a successful run.
type Result struct {
	Records  []model.ZipRecord
	Manifest Manifest
}

// Run executes the whole rebuild: parse, build, merge, export, manifest.
// Stages are strictly sequential; nothing is written until the canonical set
// has been fully built and merged, so a validation failure leaves no output.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	records, err := buildRecords(ctx, opts)
	if err != nil {
		return nil, err
	}

	var popStats PopulationStats
	var mergeStats MergeStats
	if opts.PopulationPath != "" {
		pop, stats, err := loadPopulationFile(ctx, opts)
		if err != nil {
			return nil, err
		}
		popStats = stats
		mergeStats = MergePopulation(records, pop)
	} else {
		mergeStats = MergeStats{Records: len(records)}
	}

	outputs, err := export.WriteAll(opts.OutDir, records)
	if err != nil {
		// Per-format failures are already logged; a partial export is still a
		// failed run for the caller.
		return nil, err
	}

	manifest := Manifest{
		SnapshotID: uuid.New().String(),
		BuiltAt:    time.Now().UTC(),
		Gazetteer:  opts.GazetteerPath,
		Population: opts.PopulationPath,
		Records:    len(records),
		Source:     popStats,
		Merge:      mergeStats,
		Outputs:    outputs,
	}
	if err := writeManifest(filepath.Join(opts.OutDir, "manifest.yaml"), manifest); err != nil {
		return nil, err
	}

	zap.L().Info("build complete",
		zap.String("snapshot_id", manifest.SnapshotID),
		zap.Int("records", manifest.Records),
		zap.Int("population_matched", mergeStats.Matched),
	)

	return &Result{Records: records, Manifest: manifest}, nil
}

func buildRecords(ctx context.Context, opts RunOptions) ([]model.ZipRecord, error) {
	// Build returns early on validation errors without draining the row
	// channel; cancelling unblocks the producer so it releases the source.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gazOpts := gazetteer.Options{Columns: opts.Columns, Encoding: opts.Encoding}

	if opts.FromShapefile {
		rows, errs := gazetteer.StreamShapefile(ctx, opts.GazetteerPath, gazOpts)
		return Build(rows, errs, opts.Columns)
	}

	f, err := os.Open(opts.GazetteerPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open gazetteer %s", opts.GazetteerPath)
	}
	defer f.Close() //nolint:errcheck

	rows, errs := gazetteer.Stream(ctx, f, gazOpts)
	return Build(rows, errs, opts.Columns)
}

func loadPopulationFile(ctx context.Context, opts RunOptions) (map[string]int64, PopulationStats, error) {
	if strings.EqualFold(filepath.Ext(opts.PopulationPath), ".xlsx") {
		return loadPopulationXLSX(opts)
	}

	f, err := os.Open(opts.PopulationPath)
	if err != nil {
		return nil, PopulationStats{}, eris.Wrapf(err, "pipeline: open population %s", opts.PopulationPath)
	}
	defer f.Close() //nolint:errcheck

	return LoadPopulation(ctx, f, PopulationOptions{
		ZipColumn: opts.PopZipColumn,
		PopColumn: opts.PopColumn,
		ACSRaw:    opts.ACSRaw,
	})
}

func loadPopulationXLSX(opts RunOptions) (map[string]int64, PopulationStats, error) {
	rows, err := fetcher.ReadXLSX(opts.PopulationPath, fetcher.XLSXOptions{})
	if err != nil {
		return nil, PopulationStats{}, err
	}
	if len(rows) == 0 {
		return map[string]int64{}, PopulationStats{}, nil
	}

	zipCol := opts.PopZipColumn
	if zipCol == "" {
		zipCol = "zip"
	}
	popCol := opts.PopColumn
	if popCol == "" {
		popCol = "population"
	}

	zipIdx, popIdx := -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case zipCol:
			zipIdx = i
		case popCol:
			popIdx = i
		}
	}
	if zipIdx < 0 || popIdx < 0 {
		return nil, PopulationStats{}, eris.Errorf(
			"population: columns %q, %q not found in sheet header %v", zipCol, popCol, rows[0])
	}

	pop, stats := PopulationRows(rows[1:], zipIdx, popIdx)
	return pop, stats, nil
}

func writeManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "pipeline: write manifest")
	}
	return nil
}

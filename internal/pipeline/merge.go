package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/model"
)

// MergeStats summarizes the population join for the run manifest.
type MergeStats struct {
	Records    int `yaml:"records"`
	Matched    int `yaml:"matched"`
	SourceRows int `yaml:"source_rows"`
}

// MergePopulation left-joins population values into the canonical set by ZIP.
// Membership and IDs are never touched: records without a match keep a nil
// population, and population entries without a matching record are ignored
// (the population source may cover non-postal geography).
func MergePopulation(records []model.ZipRecord, pop map[string]int64) MergeStats {
	stats := MergeStats{Records: len(records), SourceRows: len(pop)}

	for i := range records {
		if v, ok := pop[records[i].Zip]; ok {
			p := v
			records[i].Population = &p
			stats.Matched++
		}
	}

	zap.L().Info("population merged",
		zap.Int("records", stats.Records),
		zap.Int("matched", stats.Matched),
		zap.Int("unmatched", stats.Records-stats.Matched),
	)
	return stats
}

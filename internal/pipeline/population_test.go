package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPopulationCSV(t *testing.T) {
	src := "zip,population\n" +
		"00601,17126\n" +
		"00602,37895\n"

	pop, stats, err := LoadPopulation(context.Background(), strings.NewReader(src), PopulationOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"00601": 17126, "00602": 37895}, pop)
	assert.Equal(t, PopulationStats{SourceRows: 2, Parsed: 2}, stats)
}

func TestLoadPopulationSkipsBadValues(t *testing.T) {
	src := "zip,population\n" +
		"00601,17126\n" +
		"00602,n/a\n" + // unparseable: skipped, not fatal
		"00603,\n" + // empty: skipped
		"00604,-5\n" // negative: skipped

	pop, stats, err := LoadPopulation(context.Background(), strings.NewReader(src), PopulationOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"00601": 17126}, pop)
	assert.Equal(t, 4, stats.SourceRows)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 3, stats.Skipped)
}

func TestLoadPopulationStripsThousandsSeparators(t *testing.T) {
	src := "zip,population\n" +
		"00601,\"17,126\"\n"

	pop, _, err := LoadPopulation(context.Background(), strings.NewReader(src), PopulationOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(17126), pop["00601"])
}

func TestLoadPopulationCustomColumns(t *testing.T) {
	src := "ZCTA,POP2020,other\n00601,17126,x\n"

	pop, _, err := LoadPopulation(context.Background(), strings.NewReader(src), PopulationOptions{
		ZipColumn: "ZCTA",
		PopColumn: "POP2020",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(17126), pop["00601"])
}

func TestLoadPopulationEmptyFile(t *testing.T) {
	// An empty source sends no header; the loader must fail, not block.
	done := make(chan error, 1)
	go func() {
		_, _, err := LoadPopulation(context.Background(), strings.NewReader(""), PopulationOptions{})
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no header row")
	case <-time.After(2 * time.Second):
		t.Fatal("LoadPopulation did not return on empty input")
	}
}

func TestLoadPopulationMissingColumnsFails(t *testing.T) {
	src := "a,b\n1,2\n"

	_, _, err := LoadPopulation(context.Background(), strings.NewReader(src), PopulationOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip")
}

func TestLoadPopulationACSRaw(t *testing.T) {
	// Raw ACS export: machine header, human header, then data rows with the
	// zip embedded in the name field and "*****" margin markers.
	src := `GEO_ID,NAME,B01003_001E,B01003_001M
Geography,Geographic Area Name,Estimate!!Total,Margin of Error!!Total
860Z200US00601,ZCTA5 00601,17126,*****
860Z200US00602,ZCTA5 00602,37895,123
860Z200US99999,not a zcta,100,*****
`

	pop, stats, err := LoadPopulation(context.Background(), strings.NewReader(src), PopulationOptions{ACSRaw: true})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"00601": 17126, "00602": 37895}, pop)
	assert.Equal(t, 3, stats.SourceRows)
	assert.Equal(t, 2, stats.Parsed)
	assert.Equal(t, 1, stats.Skipped)
}

func TestLoadPopulationACSRawTooShort(t *testing.T) {
	src := "GEO_ID,NAME\nGeography,Name\n"

	pop, stats, err := LoadPopulation(context.Background(), strings.NewReader(src), PopulationOptions{ACSRaw: true})
	require.NoError(t, err)
	assert.Empty(t, pop)
	assert.Zero(t, stats.SourceRows)
}

func TestPopulationRows(t *testing.T) {
	rows := [][]string{
		{"00601", "17126"},
		{" 00602 ", " 37895 "},
		{"00603"},
	}

	pop, stats := PopulationRows(rows, 0, 1)
	assert.Equal(t, map[string]int64{"00601": 17126, "00602": 37895}, pop)
	assert.Equal(t, PopulationStats{SourceRows: 3, Parsed: 2, Skipped: 1}, stats)
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const gazTwoZips = "GEOID\tALAND\tINTPTLAT\tINTPTLONG\n" +
	"00602\t83734431\t18.36\t-67.18\n" +
	"00601\t166847909\t18.18\t-66.75\n"

func TestRunFullBuild(t *testing.T) {
	gazPath := writeTemp(t, "gaz.txt", gazTwoZips)
	popPath := writeTemp(t, "pop.csv", "zip,population\n00602,12345\n")
	outDir := t.TempDir()

	result, err := Run(context.Background(), RunOptions{
		GazetteerPath:  gazPath,
		PopulationPath: popPath,
		OutDir:         outDir,
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	data, err := os.ReadFile(filepath.Join(outDir, "zip_codes.csv"))
	require.NoError(t, err)

	want := "id,zip,lat,lng,population\n" +
		"1,00601,18.18,-66.75,\n" +
		"2,00602,18.36,-67.18,12345\n"
	assert.Equal(t, want, string(data))

	assert.Equal(t, MergeStats{Records: 2, Matched: 1, SourceRows: 1}, result.Manifest.Merge)
	assert.Len(t, result.Manifest.Outputs, 4)
}

func TestRunWritesManifest(t *testing.T) {
	gazPath := writeTemp(t, "gaz.txt", gazTwoZips)
	outDir := t.TempDir()

	result, err := Run(context.Background(), RunOptions{
		GazetteerPath: gazPath,
		OutDir:        outDir,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Manifest.SnapshotID)

	data, err := os.ReadFile(filepath.Join(outDir, "manifest.yaml"))
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, result.Manifest.SnapshotID, m.SnapshotID)
	assert.Equal(t, 2, m.Records)
	assert.Equal(t, gazPath, m.Gazetteer)
}

func TestRunWithoutPopulationLeavesNulls(t *testing.T) {
	gazPath := writeTemp(t, "gaz.txt", gazTwoZips)
	outDir := t.TempDir()

	result, err := Run(context.Background(), RunOptions{
		GazetteerPath: gazPath,
		OutDir:        outDir,
	})
	require.NoError(t, err)
	for _, r := range result.Records {
		assert.Nil(t, r.Population)
	}
	assert.Equal(t, 0, result.Manifest.Merge.Matched)
}

func TestRunValidationFailureWritesNothing(t *testing.T) {
	gazPath := writeTemp(t, "gaz.txt",
		"GEOID\tINTPTLAT\tINTPTLONG\n"+
			"00601\t18.18\t-66.75\n"+
			"00601\t18.18\t-66.75\n")
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := Run(context.Background(), RunOptions{
		GazetteerPath: gazPath,
		OutDir:        outDir,
	})
	require.Error(t, err)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "failed run must not create output")
}

func TestRunAbortsEarlyOnLargeInvalidSource(t *testing.T) {
	// Duplicate near the top of a source much larger than the row channel
	// buffer: the run must fail promptly and leave no output.
	var sb strings.Builder
	sb.WriteString("GEOID\tINTPTLAT\tINTPTLONG\n")
	sb.WriteString("00001\t1.0\t1.0\n")
	sb.WriteString("00001\t1.0\t1.0\n")
	for i := range 500 {
		fmt.Fprintf(&sb, "%05d\t1.0\t1.0\n", 10000+i)
	}
	gazPath := writeTemp(t, "gaz.txt", sb.String())
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := Run(context.Background(), RunOptions{GazetteerPath: gazPath, OutDir: outDir})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateZip))

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunRerunByteIdenticalExports(t *testing.T) {
	gazPath := writeTemp(t, "gaz.txt", gazTwoZips)
	popPath := writeTemp(t, "pop.csv", "zip,population\n00602,12345\n")
	dirA, dirB := t.TempDir(), t.TempDir()

	_, err := Run(context.Background(), RunOptions{GazetteerPath: gazPath, PopulationPath: popPath, OutDir: dirA})
	require.NoError(t, err)
	_, err = Run(context.Background(), RunOptions{GazetteerPath: gazPath, PopulationPath: popPath, OutDir: dirB})
	require.NoError(t, err)

	// Every export is deterministic; only the manifest differs (snapshot id,
	// timestamp).
	for _, name := range []string{"zips.csv", "zip_codes.csv", "zip_codes.json", "zip_codes.sql"} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dirB, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestRunMissingGazetteer(t *testing.T) {
	_, err := Run(context.Background(), RunOptions{
		GazetteerPath: filepath.Join(t.TempDir(), "nope.txt"),
		OutDir:        t.TempDir(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open gazetteer")
}

func TestRunACSRawPopulation(t *testing.T) {
	gazPath := writeTemp(t, "gaz.txt", gazTwoZips)
	popPath := writeTemp(t, "acs.csv",
		"GEO_ID,NAME,B01003_001E,B01003_001M\n"+
			"Geography,Geographic Area Name,Estimate!!Total,Margin of Error!!Total\n"+
			"860Z200US00601,ZCTA5 00601,17126,*****\n")
	outDir := t.TempDir()

	result, err := Run(context.Background(), RunOptions{
		GazetteerPath:  gazPath,
		PopulationPath: popPath,
		ACSRaw:         true,
		OutDir:         outDir,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Records[0].Population)
	assert.Equal(t, int64(17126), *result.Records[0].Population)
	assert.Nil(t, result.Records[1].Population)
}

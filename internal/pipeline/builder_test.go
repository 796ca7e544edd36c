package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/gazetteer"
	"github.com/sells-group/zipdata-cli/internal/model"
)

func TestMain(m *testing.M) {
	zap.ReplaceGlobals(zap.NewNop())
	m.Run()
}

func buildFromSource(t *testing.T, src string) ([]model.ZipRecord, error) {
	t.Helper()
	rowCh, errCh := gazetteer.Stream(context.Background(), strings.NewReader(src), gazetteer.Options{})
	return Build(rowCh, errCh, gazetteer.Columns{})
}

func TestBuildAssignsDenseIDsInZipOrder(t *testing.T) {
	// Source is deliberately out of zip order.
	src := "GEOID\tINTPTLAT\tINTPTLONG\n" +
		"00602\t18.36\t-67.18\n" +
		"00601\t18.18\t-66.75\n" +
		"00603\t18.45\t-67.12\n"

	records, err := buildFromSource(t, src)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, model.ZipRecord{ID: 1, Zip: "00601", Lat: 18.18, Lng: -66.75}, records[0])
	assert.Equal(t, model.ZipRecord{ID: 2, Zip: "00602", Lat: 18.36, Lng: -67.18}, records[1])
	assert.Equal(t, model.ZipRecord{ID: 3, Zip: "00603", Lat: 18.45, Lng: -67.12}, records[2])
}

func TestBuildDuplicateZipFails(t *testing.T) {
	src := "GEOID\tINTPTLAT\tINTPTLONG\n" +
		"00601\t18.18\t-66.75\n" +
		"00601\t18.19\t-66.76\n"

	_, err := buildFromSource(t, src)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateZip))
	assert.Contains(t, err.Error(), "lines 2 and 3")
}

func TestBuildInvalidCoordinateFails(t *testing.T) {
	src := "GEOID\tINTPTLAT\tINTPTLONG\n" +
		"00601\tnot-a-number\t-66.75\n"

	_, err := buildFromSource(t, src)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidCoordinate))
	assert.Contains(t, err.Error(), "INTPTLAT")
}

func TestBuildRejectsNonFiniteCoordinate(t *testing.T) {
	src := "GEOID\tINTPTLAT\tINTPTLONG\n" +
		"00601\tNaN\t-66.75\n"

	_, err := buildFromSource(t, src)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidCoordinate))
}

func TestBuildPropagatesParserError(t *testing.T) {
	src := "GEOID\tINTPTLAT\tINTPTLONG\n00601\t18.18\n"

	_, err := buildFromSource(t, src)
	require.Error(t, err)
	assert.True(t, eris.Is(err, gazetteer.ErrMalformedRow))
}

func TestBuildEmptySource(t *testing.T) {
	src := "GEOID\tINTPTLAT\tINTPTLONG\n"

	records, err := buildFromSource(t, src)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBuildStringSortPreservesLeadingZeros(t *testing.T) {
	// Zip codes are strings: leading zeros survive and lexicographic order
	// decides the IDs.
	src := "GEOID\tINTPTLAT\tINTPTLONG\n" +
		"10001\t40.75\t-73.99\n" +
		"00601\t18.18\t-66.75\n"

	records, err := buildFromSource(t, src)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "00601", records[0].Zip)
	assert.Equal(t, 1, records[0].ID)
	assert.Equal(t, "10001", records[1].Zip)
	assert.Equal(t, 2, records[1].ID)
}

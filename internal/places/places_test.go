package places

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/model"
)

func TestMain(m *testing.M) {
	zap.ReplaceGlobals(zap.NewNop())
	m.Run()
}

func TestSplitNameType(t *testing.T) {
	cases := []struct {
		full, base, placeType string
	}{
		{"Salem city", "Salem", "city"},
		{"Juneau city and borough", "Juneau", "city and borough"},
		{"Anchorage municipality", "Anchorage", "municipality"},
		{"Candlewood Isle CDP", "Candlewood Isle", "CDP"},
		{"San Juan zona urbana", "San Juan", "zona urbana"},
		{"Nashville-Davidson metropolitan government", "Nashville-Davidson", "metropolitan government"},
		{"Islamorada, Village of Islands village", "Islamorada, Village of Islands", "village"},
		{"Corozal barrio-pueblo", "Corozal", "barrio-pueblo"},
		{"Plainword", "Plainword", ""},
		{"", "", ""},
	}

	for _, c := range cases {
		base, placeType := SplitNameType(c.full)
		assert.Equal(t, c.base, base, c.full)
		assert.Equal(t, c.placeType, placeType, c.full)
	}
}

func TestSplitNameTypeMultiWordBeforeSingle(t *testing.T) {
	// "city and borough" must win over the trailing "borough".
	base, placeType := SplitNameType("Sitka city and borough")
	assert.Equal(t, "Sitka", base)
	assert.Equal(t, "city and borough", placeType)
}

func TestLoadPlaceGazetteer(t *testing.T) {
	src := "USPS\tGEOID\tNAME\tALAND\n" +
		"PR\t7201234\tAdjuntas zona urbana\t100\n" +
		"AK\t0203000\tAnchorage municipality\t200\n"

	lookup, err := LoadPlaceGazetteer(context.Background(), strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, lookup, 2)

	info, ok := lookup[PlaceKey{StateFP: "72", PlaceFP: "01234"}]
	require.True(t, ok)
	assert.Equal(t, "Adjuntas zona urbana", info.Name)
	assert.Equal(t, "PR", info.State)
}

func TestLoadPlaceGazetteerMissingColumns(t *testing.T) {
	src := "FOO\tBAR\n1\t2\n"

	_, err := LoadPlaceGazetteer(context.Background(), strings.NewReader(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEOID")
}

func TestLoadPlaceGazetteerEmptyFile(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		_, err := LoadPlaceGazetteer(context.Background(), strings.NewReader(""))
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no header row")
	case <-time.After(2 * time.Second):
		t.Fatal("LoadPlaceGazetteer did not return on empty input")
	}
}

func TestLoadRelationships(t *testing.T) {
	src := "OID_ZCTA5_20|GEOID_ZCTA5_20|OID_PLACE_20|GEOID_PLACE_20|AREALAND_PART\n" +
		"x|00601|y|7201234|5000\n" +
		"x|00601|y|7256789|9000\n" +
		"x||y|7201234|100\n" + // no zcta: dropped
		"x|00602|y|7201234|\n" // blank area counts as zero

	rels, err := LoadRelationships(context.Background(), strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rels, 3)

	assert.Equal(t, "00601", rels[0].ZCTA)
	assert.Equal(t, PlaceKey{StateFP: "72", PlaceFP: "01234"}, rels[0].Key)
	assert.Equal(t, float64(5000), rels[0].AreaPct)
	assert.Zero(t, rels[2].AreaPct)
}

func TestLoadRelationshipsEmptyFile(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		_, err := LoadRelationships(context.Background(), strings.NewReader(""))
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no header row")
	case <-time.After(2 * time.Second):
		t.Fatal("LoadRelationships did not return on empty input")
	}
}

func TestSelectBestMaxArea(t *testing.T) {
	rels := []Relation{
		{ZCTA: "00601", Key: PlaceKey{"72", "01234"}, AreaPct: 5000},
		{ZCTA: "00601", Key: PlaceKey{"72", "56789"}, AreaPct: 9000},
		{ZCTA: "00602", Key: PlaceKey{"72", "01234"}, AreaPct: 1},
	}

	best := SelectBest(rels, SelectMaxArea)
	assert.Equal(t, PlaceKey{"72", "56789"}, best["00601"])
	assert.Equal(t, PlaceKey{"72", "01234"}, best["00602"])
}

func TestSelectBestMaxPop(t *testing.T) {
	rels := []Relation{
		{ZCTA: "00601", Key: PlaceKey{"72", "01234"}, AreaPct: 9000, PopPct: 10},
		{ZCTA: "00601", Key: PlaceKey{"72", "56789"}, AreaPct: 100, PopPct: 90},
	}

	best := SelectBest(rels, SelectMaxPop)
	assert.Equal(t, PlaceKey{"72", "56789"}, best["00601"])
}

func TestConvert(t *testing.T) {
	lookup := map[PlaceKey]PlaceInfo{
		{"72", "01234"}: {Name: "Adjuntas zona urbana", State: "PR"},
	}
	selections := map[string]PlaceKey{
		"00601": {"72", "01234"},
		"00602": {"72", "99999"}, // not in gazetteer: warned and skipped
	}

	mapping, missing := Convert(lookup, selections)
	require.Len(t, mapping, 1)
	assert.Equal(t, 1, missing)
	assert.Equal(t, model.Place{Zip: "00601", City: "Adjuntas", State: "PR", PlaceType: "zona urbana"}, mapping[0])
}

func TestConvertSortedByZip(t *testing.T) {
	lookup := map[PlaceKey]PlaceInfo{
		{"72", "1"}: {Name: "A city", State: "PR"},
		{"72", "2"}: {Name: "B city", State: "PR"},
	}
	selections := map[string]PlaceKey{
		"00602": {"72", "2"},
		"00601": {"72", "1"},
	}

	mapping, _ := Convert(lookup, selections)
	require.Len(t, mapping, 2)
	assert.Equal(t, "00601", mapping[0].Zip)
	assert.Equal(t, "00602", mapping[1].Zip)
}

func TestCSVRoundTrip(t *testing.T) {
	in := []model.Place{
		{Zip: "00601", City: "Adjuntas", State: "PR", PlaceType: "zona urbana"},
		{Zip: "00602", City: "Aguada", State: "PR", PlaceType: "zona urbana"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))

	out, err := ReadCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

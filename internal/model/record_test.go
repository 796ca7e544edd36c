package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCoord(t *testing.T) {
	assert.Equal(t, "18.18", FormatCoord(18.18))
	assert.Equal(t, "-66.75", FormatCoord(-66.75))
	assert.Equal(t, "0", FormatCoord(0))
	// Never scientific notation, however small the value.
	assert.Equal(t, "0.0000001", FormatCoord(1e-7))
	assert.Equal(t, "18.180555", FormatCoord(18.180555))
}

func TestHasPopulation(t *testing.T) {
	assert.False(t, ZipRecord{}.HasPopulation())

	pop := int64(0)
	assert.True(t, ZipRecord{Population: &pop}.HasPopulation(), "zero is a real value")
}

func TestZipRecordJSONOmitsNullPopulation(t *testing.T) {
	data, err := json.Marshal(ZipRecord{ID: 1, Zip: "00601", Lat: 18.18, Lng: -66.75})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "population")

	pop := int64(12345)
	data, err = json.Marshal(ZipRecord{ID: 2, Zip: "00602", Population: &pop})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"population":12345`)
}

package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMerged() *session.Merged {
	return &session.Merged{
		Metrics: map[session.NamedKey][]int64{
			{Session: "Checkout", Key: metrics.ActionURLKey("GET", "/cart")}: {100, 200, 300},
			{Session: "Checkout", Key: metrics.CallKey("scenario.checkout", "place_order")}: {50},
		},
	}
}

func TestDefaultEncoderSwitchesOnKeyShape(t *testing.T) {
	records, err := DefaultEncoder{}.Encode(buildMerged(), Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	labels := map[string]bool{}
	for _, r := range records {
		labels[r.Label] = true
		assert.Equal(t, "Checkout", r.SessionName)
	}
	assert.True(t, labels["action(GET /cart)"])
	assert.True(t, labels["call(checkout.place_order)"])
}

func TestEncodeCSVHasFixedColumnOrder(t *testing.T) {
	records, err := DefaultEncoder{}.Encode(buildMerged(), Options{})
	require.NoError(t, err)

	data, err := EncodeCSV(records)
	require.NoError(t, err)

	reader := csv.NewReader(strings.NewReader(string(data)))
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, Columns, rows[0])
	assert.Len(t, rows, 3) // header + 2 records
}

func TestEncodeJSONNestsBySessionName(t *testing.T) {
	records, err := DefaultEncoder{}.Encode(buildMerged(), Options{})
	require.NoError(t, err)

	data, err := EncodeJSON(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Checkout"`)
	assert.Contains(t, string(data), `"percentile_99_999"`)
}

func TestEncodeTimeSeriesTagsEveryPoint(t *testing.T) {
	records, err := DefaultEncoder{}.Encode(buildMerged(), Options{})
	require.NoError(t, err)

	points := EncodeTimeSeries("LoadTest1", records)
	require.Len(t, points, 2)
	for _, p := range points {
		assert.Equal(t, "LoadTest1", p.Tags["load_test"])
		assert.Equal(t, "Checkout", p.Tags["session"])
		assert.Contains(t, p.Fields, "percentile_50")
	}
}

func TestRoundHalfToEven(t *testing.T) {
	assert.Equal(t, int64(2), roundHalfToEven(2.5))
	assert.Equal(t, int64(4), roundHalfToEven(3.5))
	assert.Equal(t, int64(3), roundHalfToEven(3.2))
}

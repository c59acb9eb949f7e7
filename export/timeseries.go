package export

import "github.com/stormforge/stormforge/metrics"

// Point is one time-series sample, spec §4.10's "time-series points carry
// tags load_test, session, action, tag and numeric fields for every
// column".
type Point struct {
	Tags   map[string]string
	Fields map[string]int64
}

// EncodeTimeSeries builds one Point per Record, tagged with the load test
// name and the record's session/action.
func EncodeTimeSeries(loadTestName string, records []Record) []Point {
	points := make([]Point, 0, len(records))
	for _, r := range records {
		fields := map[string]int64{
			"total_count": r.Snapshot.TotalCount,
			"max":         roundHalfToEven(float64(r.Snapshot.Max)),
			"mean":        roundHalfToEven(r.Snapshot.Mean),
			"min":         roundHalfToEven(float64(r.Snapshot.Min)),
		}
		for _, p := range metrics.Percentiles {
			fields[metrics.PercentileLabel(p)] = roundHalfToEven(float64(r.Snapshot.PercentileValue(p)))
		}
		points = append(points, Point{
			Tags: map[string]string{
				"load_test": loadTestName,
				"session":   r.SessionName,
				"action":    r.Label,
				"tag":       r.Label,
			},
			Fields: fields,
		})
	}
	return points
}

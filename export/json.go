package export

import (
	"encoding/json"

	"github.com/stormforge/stormforge/metrics"
)

// jsonRow mirrors the tabular columns field-for-field, spec §4.10's
// "structured output: identical fields as a record per metric".
type jsonRow struct {
	SessionActionName string           `json:"session_action_name"`
	TotalCount        int64            `json:"total_count"`
	Max               int64            `json:"max"`
	Mean              int64            `json:"mean"`
	Min               int64            `json:"min"`
	Percentiles       map[string]int64 `json:"-"`
}

// MarshalJSON flattens Percentiles into top-level percentile_* fields so
// the wire shape matches the tabular header list exactly.
func (r jsonRow) MarshalJSON() ([]byte, error) {
	flat := map[string]interface{}{
		"session_action_name": r.SessionActionName,
		"total_count":         r.TotalCount,
		"max":                 r.Max,
		"mean":                r.Mean,
		"min":                 r.Min,
	}
	for label, v := range r.Percentiles {
		flat[label] = v
	}
	return json.Marshal(flat)
}

// EncodeJSON groups Records by session name, spec §4.10's "nested by
// session name".
func EncodeJSON(records []Record) ([]byte, error) {
	bySession := map[string][]jsonRow{}
	for _, r := range records {
		row := jsonRow{
			SessionActionName: r.Label,
			TotalCount:        r.Snapshot.TotalCount,
			Max:               roundHalfToEven(float64(r.Snapshot.Max)),
			Mean:              roundHalfToEven(r.Snapshot.Mean),
			Min:               roundHalfToEven(float64(r.Snapshot.Min)),
			Percentiles:       map[string]int64{},
		}
		for _, p := range metrics.Percentiles {
			row.Percentiles[metrics.PercentileLabel(p)] = roundHalfToEven(float64(r.Snapshot.PercentileValue(p)))
		}
		bySession[r.SessionName] = append(bySession[r.SessionName], row)
	}
	return json.MarshalIndent(bySession, "", "  ")
}

package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/stormforge/stormforge/metrics"
)

// TabularEncoder pairs an Encoder (DefaultEncoder by default) with the
// tabular format; it has no methods of its own, and the CSV rendering is
// done by EncodeCSV.
type TabularEncoder struct {
	Inner Encoder
}

func NewTabularEncoder() *TabularEncoder {
	return &TabularEncoder{Inner: DefaultEncoder{}}
}

// EncodeCSV builds the bit-exact tabular output spec §6 describes: one
// header row plus one row per Record.
func EncodeCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := make([]string, 0, len(Columns))
		row = append(row, r.Label)
		row = append(row, fmt.Sprintf("%d", r.Snapshot.TotalCount))
		row = append(row, fmt.Sprintf("%d", roundHalfToEven(float64(r.Snapshot.Max))))
		row = append(row, fmt.Sprintf("%d", roundHalfToEven(r.Snapshot.Mean)))
		row = append(row, fmt.Sprintf("%d", roundHalfToEven(float64(r.Snapshot.Min))))
		for _, p := range metrics.Percentiles {
			row = append(row, fmt.Sprintf("%d", roundHalfToEven(float64(r.Snapshot.PercentileValue(p)))))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row for %s: %w", r.Label, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRecordAndSnapshot(t *testing.T) {
	e := NewEngine()
	key := ActionKey("ws_recv")
	for i := int64(1); i <= 100; i++ {
		e.Record(key, i)
	}
	snap := e.Snapshot(key)
	require.Equal(t, int64(100), snap.TotalCount)
	assert.LessOrEqual(t, snap.PercentileValue(10), snap.PercentileValue(50))
	assert.LessOrEqual(t, snap.PercentileValue(50), snap.PercentileValue(90))
	assert.LessOrEqual(t, snap.PercentileValue(90), snap.PercentileValue(99))
	assert.LessOrEqual(t, snap.Min, snap.Max)
}

func TestEngineResetClearsAll(t *testing.T) {
	e := NewEngine()
	e.Record(ActionKey("a"), 5)
	e.Reset()
	assert.Empty(t, e.Keys())
}

func TestKeysAreSortedByPrintedForm(t *testing.T) {
	e := NewEngine()
	e.Record(ActionKey("zzz"), 1)
	e.Record(ActionKey("aaa"), 1)
	keys := e.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "aaa", keys[0].Action)
	assert.Equal(t, "zzz", keys[1].Action)
}

func TestKeyStringForms(t *testing.T) {
	assert.Equal(t, "ws_recv", ActionKey("ws_recv").String())
	assert.Equal(t, "action(GET /x)", ActionURLKey("GET", "/x").String())
	assert.Equal(t, "call(Mod.foo)", CallKey("scenario.Mod", "foo").String())
}

func TestPercentileLabels(t *testing.T) {
	assert.Equal(t, "percentile_10", PercentileLabel(10))
	assert.Equal(t, "percentile_99_9", PercentileLabel(99.9))
	assert.Equal(t, "percentile_99_999", PercentileLabel(99.999))
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupNestedDotted(t *testing.T) {
	cfg := Config{"a": Config{"b": Config{"c": 42}}}

	v, err := Lookup(cfg, "a.b.c", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLookupMissingWithDefault(t *testing.T) {
	cfg := Config{"a": Config{"b": Config{}}}

	v, err := Lookup(cfg, "a.b.c", "sess-1", "x")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestLookupMissingNoDefaultRaises(t *testing.T) {
	cfg := Config{"a": Config{"b": Config{}}}

	_, err := Lookup(cfg, "a.b.c", "sess-1")
	require.Error(t, err)

	var rcm *RequiredConfigMissing
	require.ErrorAs(t, err, &rcm)
	assert.Equal(t, []string{"a", "b", "c"}, rcm.Key)
	assert.Equal(t, "sess-1", rcm.SessionID)
	assert.True(t, IsConfigMissing(err))
}

func TestLookupListPath(t *testing.T) {
	cfg := Config{"a": Config{"b": "val"}}
	v, err := Lookup(cfg, []string{"a", "b"}, "")
	require.NoError(t, err)
	assert.Equal(t, "val", v)
}

func TestSetCreatesIntermediateMaps(t *testing.T) {
	cfg := Config{}
	out := Set(cfg, "a.b.c", 7)

	v, err := Lookup(out, "a.b.c", "")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	// original untouched
	assert.Empty(t, cfg)
}

func TestDeepMergeLaterWinsOnConflict(t *testing.T) {
	defaults := Config{"timeout": 10000, "http": Config{"base_url": "http://a"}}
	scenarioCfg := Config{"http": Config{"base_url": "http://b", "pool": "p1"}}
	runtime := Config{"timeout": 5000}

	merged := DeepMerge(defaults, scenarioCfg, runtime)

	assert.Equal(t, 5000, merged["timeout"])
	httpCfg := merged["http"].(Config)
	assert.Equal(t, "http://b", httpCfg["base_url"])
	assert.Equal(t, "p1", httpCfg["pool"])
}

func TestDeepMergeAssociativeForNonConflictingKeys(t *testing.T) {
	a := Config{"x": 1}
	b := Config{"y": 2}
	c := Config{"z": 3}

	left := DeepMerge(DeepMerge(a, b), c)
	right := DeepMerge(a, DeepMerge(b, c))

	assert.Equal(t, left, right)
}

func TestUpdateAndDelete(t *testing.T) {
	cfg := Config{"count": 1}
	cfg = Update(cfg, "count", func(v interface{}) interface{} {
		n, _ := v.(int)
		return n + 1
	})
	v, _ := Lookup(cfg, "count", "")
	assert.Equal(t, 2, v)

	cfg = Delete(cfg, "count")
	_, err := Lookup(cfg, "count", "")
	assert.True(t, IsConfigMissing(err))
}

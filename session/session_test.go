package session

import (
	"testing"

	"github.com/stormforge/stormforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionIDIncludesUUIDUnlessMerging(t *testing.T) {
	s := New("Checkout", core.Config{}, false)
	assert.Contains(t, s.ID, "Checkout ")
	assert.NotEqual(t, "Checkout", s.ID)

	s2 := New("Checkout", core.Config{}, true)
	assert.Equal(t, "Checkout", s2.ID)
}

func TestSessionNameConfigOverrideWins(t *testing.T) {
	cfg := core.Config{"session_name": "custom-name"}
	s := New("Checkout", cfg, false)
	assert.Equal(t, "custom-name", s.Name)
}

func TestConfigValueRequiredMissingCarriesSessionID(t *testing.T) {
	s := New("Checkout", core.Config{}, true)
	_, err := s.ConfigValue("a.b.c")
	require.Error(t, err)
	var rcm *core.RequiredConfigMissing
	require.ErrorAs(t, err, &rcm)
	assert.Equal(t, s.ID, rcm.SessionID)
}

func TestSetConfigIsImmutable(t *testing.T) {
	s := New("Checkout", core.Config{}, true)
	s2 := s.SetConfig("timeout", 5000)

	_, err := s.ConfigValue("timeout")
	assert.Error(t, err)

	v, err := s2.ConfigValue("timeout")
	require.NoError(t, err)
	assert.Equal(t, 5000, v)
}

func TestStoreResultsEnabled(t *testing.T) {
	s := New("Checkout", core.Config{"store_results": true}, true)
	assert.True(t, s.StoreResultsEnabled())

	s2 := New("Checkout", core.Config{}, true)
	assert.False(t, s2.StoreResultsEnabled())
}

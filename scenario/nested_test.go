package scenario

import (
	"context"
	"testing"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteNestedRestoresCallerScenario(t *testing.T) {
	s := session.New("Outer", core.Config{}, true)

	inner := &fakeScenario{name: "Inner", runFn: func(ctx context.Context, s *session.Session) (*session.Session, error) {
		assert.Equal(t, "Inner", s.Scenario)
		return s.SetAssign("ran_inner", true), nil
	}}

	out, err := ExecuteNested(context.Background(), inner, s, NestedOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Outer", out.Scenario)
	assert.Equal(t, s.ID, out.ID)

	v, err := out.Assign("ran_inner")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestExecuteNestedDeepMergesConfig(t *testing.T) {
	s := session.New("Outer", core.Config{"base_url": "https://a"}, true)

	inner := &fakeScenario{name: "Inner", runFn: func(ctx context.Context, s *session.Session) (*session.Session, error) {
		v, err := s.ConfigValue("base_url")
		require.NoError(t, err)
		assert.Equal(t, "https://a", v)
		v2, err := s.ConfigValue("extra")
		require.NoError(t, err)
		assert.Equal(t, "x", v2)
		return s, nil
	}}

	_, err := ExecuteNested(context.Background(), inner, s, NestedOptions{Config: core.Config{"extra": "x"}})
	require.NoError(t, err)
}

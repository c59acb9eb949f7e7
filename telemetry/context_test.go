package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBaggageRoundTrips(t *testing.T) {
	ctx := WithBaggage(context.Background(), "load_test", "smoke", "region", "us-east-1")
	bag := GetBaggage(ctx)
	require.NotNil(t, bag)
	assert.Equal(t, "smoke", bag["load_test"])
	assert.Equal(t, "us-east-1", bag["region"])
}

func TestWithBaggageLaterCallOverridesKey(t *testing.T) {
	ctx := WithBaggage(context.Background(), "env", "staging")
	ctx = WithBaggage(ctx, "env", "production")
	bag := GetBaggage(ctx)
	assert.Equal(t, "production", bag["env"])
}

func TestWithBaggageTruncatesOversizedValues(t *testing.T) {
	huge := strings.Repeat("x", MaxBaggageValueLength+100)
	ctx := WithBaggage(context.Background(), "k", huge)
	bag := GetBaggage(ctx)
	assert.Len(t, bag["k"], MaxBaggageValueLength)
}

func TestGetBaggageNilWhenEmpty(t *testing.T) {
	assert.Nil(t, GetBaggage(context.Background()))
}

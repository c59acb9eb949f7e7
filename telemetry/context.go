package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/baggage"
)

// Baggage holds request-scoped labels that flow through context via W3C
// baggage, used by master.Runner to tag spawned sessions with the load
// test's name for trace correlation across worker nodes.
type Baggage map[string]string

const (
	MaxBaggageItems       = 64
	MaxBaggageKeyLength   = 128
	MaxBaggageValueLength = 512
)

// WithBaggage adds key/value label pairs to ctx's baggage. Later values
// override earlier ones with the same key; oversized keys/values are
// truncated and calls past MaxBaggageItems are dropped silently.
func WithBaggage(ctx context.Context, labels ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	bag := baggage.FromContext(ctx)
	if len(bag.Members()) >= MaxBaggageItems {
		return ctx
	}

	for i := 0; i+1 < len(labels); i += 2 {
		key, value := labels[i], labels[i+1]
		if key == "" {
			continue
		}
		if len(key) > MaxBaggageKeyLength {
			key = key[:MaxBaggageKeyLength]
		}
		if len(value) > MaxBaggageValueLength {
			value = value[:MaxBaggageValueLength]
		}
		member, err := baggage.NewMember(key, value)
		if err != nil {
			continue
		}
		newBag, err := bag.SetMember(member)
		if err != nil {
			continue
		}
		bag = newBag
	}

	return baggage.ContextWithBaggage(ctx, bag)
}

// GetBaggage returns ctx's current baggage as a map, or nil if empty.
func GetBaggage(ctx context.Context) Baggage {
	if ctx == nil {
		return nil
	}
	members := baggage.FromContext(ctx).Members()
	if len(members) == 0 {
		return nil
	}
	result := make(Baggage, len(members))
	for _, m := range members {
		result[m.Key()] = m.Value()
	}
	return result
}

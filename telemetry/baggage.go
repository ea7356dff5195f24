package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/baggage"
)

// Baggage is the set of trace-correlated labels attached to a context.
type Baggage map[string]string

// Baggage limits. Keys or values past these bounds are dropped rather
// than truncated, so a malformed caller cannot silently corrupt labels.
const (
	maxBaggageItems    = 64
	maxBaggageKeyLen   = 128
	maxBaggageValueLen = 512
)

// WithBaggage attaches key-value pairs to the context as W3C baggage.
// Pairs propagate across service boundaries and are appended as labels
// to every EmitWithContext call made with the returned context. Calls
// are additive; a repeated key overrides the earlier value.
func WithBaggage(ctx context.Context, labels ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	bag := baggage.FromContext(ctx)
	if len(bag.Members()) >= maxBaggageItems {
		return ctx
	}

	members := bag.Members()
	for i := 0; i+1 < len(labels); i += 2 {
		key, value := labels[i], labels[i+1]
		if key == "" || len(key) > maxBaggageKeyLen || len(value) > maxBaggageValueLen {
			continue
		}
		member, err := baggage.NewMember(key, value)
		if err != nil {
			continue
		}
		members = append(members, member)
		if len(members) >= maxBaggageItems {
			break
		}
	}

	newBag, err := baggage.New(members...)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, newBag)
}

// GetBaggage extracts all baggage labels from the context. Returns an
// empty map when none are attached.
func GetBaggage(ctx context.Context) Baggage {
	result := make(Baggage)
	if ctx == nil {
		return result
	}
	for _, member := range baggage.FromContext(ctx).Members() {
		result[member.Key()] = member.Value()
	}
	return result
}

// appendBaggageToLabels merges the context's baggage into an explicit
// label list. Explicit labels win on key collision because they come
// later in the pair list.
func appendBaggageToLabels(ctx context.Context, labels []string) []string {
	bag := baggage.FromContext(ctx)
	members := bag.Members()
	if len(members) == 0 {
		return labels
	}
	merged := make([]string, 0, len(members)*2+len(labels))
	for _, member := range members {
		merged = append(merged, member.Key(), member.Value())
	}
	return append(merged, labels...)
}

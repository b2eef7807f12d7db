// Package provider normalizes heterogeneous streaming completion backends
// into a flat sequence of text deltas.
package provider

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Provider selector names accepted on the wire.
const (
	Primary   = "primary"
	Secondary = "secondary"
)

// Adapter streams a model reply for a role-tagged message list. The returned
// reader is lazy and finite; it terminates with io.EOF when the upstream
// stream ends and with the upstream error when the call breaks mid-flight.
// Adapters never retry.
type Adapter interface {
	Name() string
	Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[string], error)
}

// Selector picks an adapter by wire name, falling back to the primary for
// unknown or empty selectors.
type Selector struct {
	primary   Adapter
	secondary Adapter
}

// NewSelector wires the configured adapters. Secondary may be nil, in which
// case every selection resolves to the primary.
func NewSelector(primary, secondary Adapter) *Selector {
	return &Selector{primary: primary, secondary: secondary}
}

// Select resolves a provider name to an adapter.
func (s *Selector) Select(name string) Adapter {
	if name == Secondary && s.secondary != nil {
		return s.secondary
	}
	return s.primary
}

// Package policy defines the fuel grant policy applied when a process
// exhausts its budget. It is deliberately decoupled from the scheduler so
// embedders can attach a policy per spawn via context; a nil *Fuel means
// "use the runtime default" and is therefore the zero-cost case.
package policy

import "context"

// Fuel controls the cooperative execution budget of one process.
//
//   - InitialBudget is attached when the instance is created.
//   - GrantSize is how much fuel each further grant adds when the engine
//     suspends on exhaustion.
//   - MaxGrants bounds how many further grants are made. 0 never
//     re-grants; a negative value re-grants indefinitely, trading the
//     out-of-fuel guarantee for unbounded cooperative yielding.
//
// A process that suspends once MaxGrants is spent terminates as
// out-of-fuel.
type Fuel struct {
	InitialBudget uint64 `json:"initialBudget" yaml:"initialBudget"`
	GrantSize     uint64 `json:"grantSize" yaml:"grantSize"`
	MaxGrants     int    `json:"maxGrants" yaml:"maxGrants"`
}

// Default returns the standard policy: 1000 fuel up front and at most
// three re-grants of 1000.
func Default() *Fuel {
	return &Fuel{
		InitialBudget: 1000,
		GrantSize:     1000,
		MaxGrants:     3,
	}
}

// CanGrant reports whether another grant is allowed after granted
// previous ones.
func (f *Fuel) CanGrant(granted int) bool {
	if f == nil {
		return false
	}
	if f.MaxGrants < 0 {
		return true
	}
	return granted < f.MaxGrants
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithFuel embeds the policy in ctx.
func WithFuel(ctx context.Context, f *Fuel) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, f)
}

// FuelFromContext extracts the policy from ctx, or nil when none is
// attached.
func FuelFromContext(ctx context.Context) *Fuel {
	if ctx == nil {
		return nil
	}
	if f, ok := ctx.Value(ctxKey).(*Fuel); ok {
		return f
	}
	return nil
}

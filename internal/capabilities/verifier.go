package capabilities

import (
	"context"

	"github.com/kartr/kartr/internal/health"
)

// Verifier checks that an upstream behind a capability answers.
type Verifier interface {
	Verify(ctx context.Context) (bool, error)
}

// VerifierFunc adapts a plain check to the Verifier interface.
type VerifierFunc func(ctx context.Context) error

func (f VerifierFunc) Verify(ctx context.Context) (bool, error) {
	if err := f(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// CapabilityVerifier runs the registered checks and records their outcome
// in the health tracker.
type CapabilityVerifier struct {
	tracker   health.Reporter
	verifiers map[string]Verifier
}

func NewCapabilityVerifier(tracker health.Reporter) *CapabilityVerifier {
	return &CapabilityVerifier{
		tracker:   tracker,
		verifiers: make(map[string]Verifier),
	}
}

func (v *CapabilityVerifier) RegisterVerifier(name string, verifier Verifier) {
	v.verifiers[name] = verifier
}

// VerifyCapabilities runs the check of every name. Names without a check
// are marked healthy.
func (v *CapabilityVerifier) VerifyCapabilities(ctx context.Context, names []string) {
	for _, name := range names {
		verifier, ok := v.verifiers[name]
		if !ok {
			v.tracker.UpdateStatus(name, true, nil)
			continue
		}

		isHealthy, err := verifier.Verify(ctx)
		v.tracker.UpdateStatus(name, isHealthy, err)
	}
}

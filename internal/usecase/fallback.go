package usecase

import "context"

type chainMember interface {
	Name() string
	IsAvailable() bool
}

// runFallback tries providers in their fixed order, skips unavailable ones and
// returns the first success. Every failure is collected into an
// *AllProvidersFailedError. Providers are never retried.
func runFallback[P chainMember, R any](ctx context.Context, kind, operation string, providers []P, attempt func(ctx context.Context, p P) (R, error)) (R, error) {
	var zero R
	failure := &AllProvidersFailedError{Kind: kind, Operation: operation}

	for _, p := range providers {
		if !p.IsAvailable() {
			failure.Skipped = append(failure.Skipped, p.Name())
			continue
		}
		result, err := attempt(ctx, p)
		if err == nil {
			return result, nil
		}
		failure.Attempts = append(failure.Attempts, ProviderAttempt{Provider: p.Name(), Err: err})
	}

	return zero, failure
}

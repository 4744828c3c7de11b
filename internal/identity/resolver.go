package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Resolver is the session/attribute façade over the identity
// provider. The session handle (token) is passed explicitly so the
// same resolver serves every caller. Attribute resolution retries a
// bounded number of times with a fixed delay because the provider may
// not have committed session state by the time the caller asks.
type Resolver struct {
	provider Provider
	attempts int
	delay    time.Duration
	logger   *zap.Logger
	sleep    func(time.Duration)
}

// NewResolver constructs a resolver with the configured retry bounds.
func NewResolver(provider Provider, attempts int, delay time.Duration, logger *zap.Logger) *Resolver {
	if attempts <= 0 {
		attempts = 3
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Resolver{
		provider: provider,
		attempts: attempts,
		delay:    delay,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Login authenticates against the provider and resolves the actor for
// the fresh session.
func (r *Resolver) Login(ctx context.Context, identifier, secret string) (string, *domain.Actor, error) {
	token, err := r.provider.Authenticate(ctx, identifier, secret)
	if err != nil {
		return "", nil, err
	}
	actor, err := r.provider.CurrentActor(ctx, token)
	if err != nil {
		return "", nil, err
	}
	return token, actor, nil
}

// Logout invalidates the session with the provider.
func (r *Resolver) Logout(ctx context.Context, token string) error {
	return r.provider.SignOut(ctx, token)
}

// CurrentActor resolves identifier + role for the session, failing
// with ErrNotAuthenticated when no session exists.
func (r *Resolver) CurrentActor(ctx context.Context, token string) (*domain.Actor, error) {
	return r.provider.CurrentActor(ctx, token)
}

// Attributes resolves the actor's display attributes, retrying while
// the provider lags. Exhausting the retries fails with
// ErrNotAuthenticated.
func (r *Resolver) Attributes(ctx context.Context, token string) (map[string]string, error) {
	var attributes map[string]string
	err := withRetry(ctx, r.attempts, r.delay, r.sleep, func() error {
		var innerErr error
		attributes, innerErr = r.provider.Attributes(ctx, token)
		if innerErr != nil {
			r.logger.Debug("attribute resolution attempt failed", zap.Error(innerErr))
		}
		return innerErr
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return attributes, nil
}

package identity

import (
	"context"
	"errors"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrNotAuthenticated signals that no session exists for the given
// handle, or that attribute resolution exhausted its retries. Callers
// map it to an unauthorized response; it is never an ambiguous empty
// result.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrAttributesNotReady signals that the identity provider has not yet
// committed session state; the resolver retries on it.
var ErrAttributesNotReady = errors.New("attributes not ready")

// ErrInvalidCredentials signals a failed sign-in.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Provider is the external identity provider contract. All four
// operations may fail; the core propagates typed errors and never
// crashes on provider failure.
type Provider interface {
	// Authenticate verifies credentials and returns a session token.
	Authenticate(ctx context.Context, identifier, secret string) (string, error)
	// CurrentActor resolves the actor bound to a session token.
	CurrentActor(ctx context.Context, token string) (*domain.Actor, error)
	// Attributes resolves the actor's display attributes, including
	// the role field. May return ErrAttributesNotReady while the
	// provider lags behind session creation.
	Attributes(ctx context.Context, token string) (map[string]string, error)
	// SignOut invalidates the session.
	SignOut(ctx context.Context, token string) error
}

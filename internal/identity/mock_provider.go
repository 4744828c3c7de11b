package identity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MockProvider is an in-process identity provider. Credentials live in
// a bcrypt-hashed directory; sessions are JWTs tracked in memory. A
// configurable commit lag makes freshly created sessions report
// ErrAttributesNotReady for a short window, reproducing the eventual
// consistency of the real provider.
type MockProvider struct {
	mu         sync.Mutex
	tokens     *TokenManager
	bcryptCost int
	lag        time.Duration
	logger     *zap.Logger
	now        func() time.Time

	directory map[string]directoryEntry
	sessions  map[string]session
}

type directoryEntry struct {
	actor        domain.Actor
	passwordHash string
	attributes   map[string]string
}

type session struct {
	actor      domain.Actor
	identifier string
	readyAt    time.Time
}

// NewMockProvider constructs an empty provider.
func NewMockProvider(tokens *TokenManager, bcryptCost int, lag time.Duration, logger *zap.Logger) *MockProvider {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &MockProvider{
		tokens:     tokens,
		bcryptCost: bcryptCost,
		lag:        lag,
		logger:     logger,
		now:        time.Now,
		directory:  make(map[string]directoryEntry),
		sessions:   make(map[string]session),
	}
}

// Seed registers an identity in the directory.
func (p *MockProvider) Seed(identifier, password string, actor domain.Actor, attributes map[string]string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return err
	}
	if attributes == nil {
		attributes = map[string]string{}
	}
	attributes["role"] = actor.Role

	p.mu.Lock()
	defer p.mu.Unlock()
	p.directory[identifier] = directoryEntry{
		actor:        actor,
		passwordHash: string(hash),
		attributes:   attributes,
	}
	return nil
}

// Authenticate verifies credentials and opens a session.
func (p *MockProvider) Authenticate(ctx context.Context, identifier, secret string) (string, error) {
	p.mu.Lock()
	entry, ok := p.directory[identifier]
	p.mu.Unlock()
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entry.passwordHash), []byte(secret)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, _, err := p.tokens.GenerateToken(entry.actor)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.sessions[token] = session{
		actor:      entry.actor,
		identifier: identifier,
		readyAt:    p.now().Add(p.lag),
	}
	p.mu.Unlock()

	p.logger.Info("session opened", zap.String("actor", entry.actor.ID))
	return token, nil
}

// CurrentActor resolves the actor for a live session.
func (p *MockProvider) CurrentActor(ctx context.Context, token string) (*domain.Actor, error) {
	if _, err := p.tokens.ParseToken(token); err != nil {
		return nil, ErrNotAuthenticated
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[token]
	if !ok {
		return nil, ErrNotAuthenticated
	}
	actor := sess.actor
	return &actor, nil
}

// Attributes resolves display attributes once the session has
// committed; before that it reports ErrAttributesNotReady.
func (p *MockProvider) Attributes(ctx context.Context, token string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[token]
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if p.now().Before(sess.readyAt) {
		return nil, ErrAttributesNotReady
	}
	entry, ok := p.directory[sess.identifier]
	if !ok {
		return nil, ErrNotAuthenticated
	}
	out := make(map[string]string, len(entry.attributes))
	for k, v := range entry.attributes {
		out[k] = v
	}
	return out, nil
}

// SignOut drops the session. Signing out an unknown token is not an
// error.
func (p *MockProvider) SignOut(ctx context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, token)
	return nil
}

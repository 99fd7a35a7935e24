package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
)

// Errors surfaced by identity providers.
var (
	ErrEmailTaken       = errors.New("email already registered")
	ErrUnknownPrincipal = errors.New("principal not found")
)

// IdentityProvider is the external credential authority.
type IdentityProvider interface {
	// CreatePrincipal registers credentials and returns the new principal id.
	CreatePrincipal(ctx context.Context, email, password string) (string, error)
	// DeletePrincipal removes the credentials so the email can register again.
	DeletePrincipal(ctx context.Context, principalID string) error
	// RevokeSessions terminates every session of the principal.
	RevokeSessions(ctx context.Context, principalID string) error
	// PasswordResetLink generates an out-of-band reset link for the email.
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// FirebaseIdentityProvider implements IdentityProvider with the Firebase Admin SDK.
type FirebaseIdentityProvider struct {
	client *auth.Client
}

// NewFirebaseIdentityProvider wraps a Firebase auth client.
func NewFirebaseIdentityProvider(client *auth.Client) *FirebaseIdentityProvider {
	if client == nil {
		panic("firebase auth client is required")
	}
	return &FirebaseIdentityProvider{client: client}
}

func (p *FirebaseIdentityProvider) CreatePrincipal(ctx context.Context, email, password string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("create firebase user: %w", err)
	}
	return user.UID, nil
}

func (p *FirebaseIdentityProvider) DeletePrincipal(ctx context.Context, principalID string) error {
	if err := p.client.DeleteUser(ctx, principalID); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUnknownPrincipal
		}
		return fmt.Errorf("delete firebase user: %w", err)
	}
	return nil
}

func (p *FirebaseIdentityProvider) RevokeSessions(ctx context.Context, principalID string) error {
	if err := p.client.RevokeRefreshTokens(ctx, principalID); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUnknownPrincipal
		}
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (p *FirebaseIdentityProvider) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := p.client.PasswordResetLink(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return "", ErrUnknownPrincipal
		}
		return "", fmt.Errorf("password reset link: %w", err)
	}
	return link, nil
}

// MemoryIdentityProvider is a process-local IdentityProvider for dev mode and tests.
// Tokens for its principals are minted with the devtoken package.
type MemoryIdentityProvider struct {
	mu      sync.Mutex
	byEmail map[string]string
	revoked map[string]int
}

// NewMemoryIdentityProvider constructs an empty provider.
func NewMemoryIdentityProvider() *MemoryIdentityProvider {
	return &MemoryIdentityProvider{byEmail: make(map[string]string), revoked: make(map[string]int)}
}

func (p *MemoryIdentityProvider) CreatePrincipal(_ context.Context, email, password string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" || password == "" {
		return "", errors.New("email and password are required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[key]; exists {
		return "", ErrEmailTaken
	}
	id := uuid.NewString()
	p.byEmail[key] = id
	return id, nil
}

func (p *MemoryIdentityProvider) DeletePrincipal(_ context.Context, principalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for email, id := range p.byEmail {
		if id == principalID {
			delete(p.byEmail, email)
			return nil
		}
	}
	return ErrUnknownPrincipal
}

func (p *MemoryIdentityProvider) RevokeSessions(_ context.Context, principalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[principalID]++
	return nil
}

func (p *MemoryIdentityProvider) PasswordResetLink(_ context.Context, email string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.byEmail[key]
	if !ok {
		return "", ErrUnknownPrincipal
	}
	return "https://localhost/reset?principal=" + id, nil
}

// Revocations reports how many times sessions were revoked for the principal.
func (p *MemoryIdentityProvider) Revocations(principalID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked[principalID]
}

var (
	_ IdentityProvider = (*FirebaseIdentityProvider)(nil)
	_ IdentityProvider = (*MemoryIdentityProvider)(nil)
)

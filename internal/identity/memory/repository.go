// Package memory provides the in-memory implementation of the identity
// repository. The session store lives and dies with the process; durable
// identity belongs to the external auth service.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/oncallhq/incident-deck/internal/identity"
)

// Repository implements identity.Repository backed by in-memory maps.
type Repository struct {
	mu            sync.RWMutex
	usersByID     map[string]*domain.User
	usersByEmail  map[string]*domain.User
	refreshTokens map[string]*domain.RefreshToken
}

// NewRepository creates an empty in-memory identity repository.
func NewRepository() *Repository {
	return &Repository{
		usersByID:     make(map[string]*domain.User),
		usersByEmail:  make(map[string]*domain.User),
		refreshTokens: make(map[string]*domain.RefreshToken),
	}
}

// CreateUser stores a new user, assigning an id.
func (r *Repository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByEmail[user.Email]; exists {
		return identity.ErrEmailExists
	}

	user.ID = uuid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.usersByID[user.ID] = &stored
	r.usersByEmail[user.Email] = &stored
	return nil
}

// GetUserByID retrieves a user by id.
func (r *Repository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.usersByID[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	c := *user
	return &c, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.usersByEmail[email]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	c := *user
	return &c, nil
}

// UpdateUser replaces the stored user record.
func (r *Repository) UpdateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.usersByID[user.ID]
	if !ok {
		return identity.ErrUserNotFound
	}

	user.UpdatedAt = time.Now()
	*stored = *user
	return nil
}

// SaveRefreshToken stores a refresh token.
func (r *Repository) SaveRefreshToken(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *token
	r.refreshTokens[token.Token] = &c
	return nil
}

// GetRefreshToken retrieves a refresh token.
func (r *Repository) GetRefreshToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.refreshTokens[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	c := *stored
	return &c, nil
}

// DeleteRefreshToken removes a refresh token.
func (r *Repository) DeleteRefreshToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.refreshTokens, token)
	return nil
}

// DeleteUserRefreshTokens removes all refresh tokens for a user.
func (r *Repository) DeleteUserRefreshTokens(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for t, stored := range r.refreshTokens {
		if stored.UserID == userID {
			delete(r.refreshTokens, t)
		}
	}
	return nil
}

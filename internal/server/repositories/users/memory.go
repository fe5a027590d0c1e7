package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository is the volatile store used when no database is
// configured. Its contents live as long as the value does.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
	order []string // usernames in insertion order, for the email scan
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]models.User),
		now:   time.Now,
	}
}

// Create checks both uniqueness constraints and inserts under one lock, so
// concurrent duplicate inserts cannot both succeed.
func (r *MemoryRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.UserName]; ok {
		return common.ErrDuplicateUsername
	}
	if _, ok := r.findByEmail(user.Email); ok {
		return common.ErrDuplicateEmail
	}

	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	r.users[u.UserName] = u
	r.order = append(r.order, u.UserName)

	return nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, userName string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.findByEmail(email)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

// Clear drops every user.
func (r *MemoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[string]models.User)
	r.order = nil
	return nil
}

// Len returns the number of stored users.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// findByEmail must be called with r.mu held.
func (r *MemoryRepository) findByEmail(email string) (models.User, bool) {
	for _, name := range r.order {
		if u := r.users[name]; u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

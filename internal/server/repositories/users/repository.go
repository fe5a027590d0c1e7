// Package users is the identity store: a keyed collection of registered
// users with a secondary lookup by email.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is implemented by the in-memory and PostgreSQL stores.
//
// Create fails with common.ErrDuplicateUsername or common.ErrDuplicateEmail;
// when both collide the username wins. Lookups return common.ErrorNotFound
// for absent users. Email matching is exact and case-sensitive.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, userName string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Clear(ctx context.Context) error
}

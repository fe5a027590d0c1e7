// Package repomanager chooses and owns the identity store backend: the
// volatile in-memory store, or PostgreSQL with goose migrations.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// RepositoryManager vends the users repository and owns its lifecycle.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Close() error
}

// New returns a PostgreSQL manager when dsn is set and an in-memory one
// otherwise. Migrations are applied before returning.
func New(ctx context.Context, dsn string) (RepositoryManager, error) {
	if dsn == "" {
		return NewInMemoryRepositoryManager(), nil
	}
	return NewPostgresRepositoryManager(ctx, dsn)
}

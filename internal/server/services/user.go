// Package services contains server-side business logic. This file implements
// UserService: signup, login, resolving bearer tokens back to users and the
// public directory lookup.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenCodec issues and verifies identity tokens.
type TokenCodec interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Verify(token string) (string, error)
}

// UserService orchestrates the identity store, the hasher and the token codec.
type UserService struct {
	users    users.Repository
	hasher   PasswordHasher
	tokens   TokenCodec
	tokenTTL time.Duration
	logger   logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService wires a UserService. tokenTTL is the lifetime given to
// every token issued at signup and login.
func NewUserService(repo users.Repository, hasher PasswordHasher, tokens TokenCodec, tokenTTL time.Duration, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &UserService{
		users:    repo,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger.With("module", "user_service"),
	}
}

// Signup registers a user and returns a token for it. Username collisions
// are reported before email collisions.
func (s *UserService) Signup(ctx context.Context, username, email, password string) (string, error) {
	if username == "" || email == "" {
		return "", fmt.Errorf("%w: username and email are required", common.ErrorValidation)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return "", common.ErrUsernameTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return "", s.internal(ctx, "lookup by username", err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return "", common.ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return "", s.internal(ctx, "lookup by email", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return "", err
		}
		return "", s.internal(ctx, "hash password", err)
	}

	// The store re-checks both constraints atomically, closing the window
	// between the lookups above and the insert.
	err = s.users.Create(ctx, &models.User{UserName: username, Email: email, PasswordHash: hash})
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		return "", common.ErrUsernameTaken
	case errors.Is(err, common.ErrDuplicateEmail):
		return "", common.ErrEmailTaken
	case err != nil:
		return "", s.internal(ctx, "create user", err)
	}

	token, err := s.issue(ctx, username)
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "user signed up", "username", username)
	return token, nil
}

// Login authenticates by username, or by email when the identifier contains
// '@'. Unknown identities and wrong passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, usernameOrEmail, password string) (string, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(usernameOrEmail, "@") {
		user, err = s.users.GetByEmail(ctx, usernameOrEmail)
	} else {
		user, err = s.users.GetByUsername(ctx, usernameOrEmail)
	}

	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return "", s.internal(ctx, "lookup user", err)
		}
		// Spend the same bcrypt work as a real mismatch.
		s.hasher.Verify(password, s.dummy())
		s.logger.Warn(ctx, "login failed", "reason", "unknown_identity")
		return "", common.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Warn(ctx, "login failed", "reason", "wrong_password", "username", user.UserName)
		return "", common.ErrInvalidCredentials
	}

	return s.issue(ctx, user.UserName)
}

// ResolveIdentity maps a bearer token to its user. Missing, malformed,
// expired, forged tokens and tokens of unknown users all yield
// common.ErrorUnauthorized.
func (s *UserService) ResolveIdentity(ctx context.Context, token string) (*models.User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "error", err)
		return nil, common.ErrorUnauthorized
	}

	user, err := s.users.GetByUsername(ctx, subject)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "resolve identity failed", "error", err)
		}
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}

// LookupPublic returns the public profile of username.
func (s *UserService) LookupPublic(ctx context.Context, username string) (models.PublicUser, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.PublicUser{}, common.ErrorNotFound
		}
		return models.PublicUser{}, s.internal(ctx, "lookup user", err)
	}
	return user.Public(), nil
}

// --- helpers below ---

func (s *UserService) issue(ctx context.Context, username string) (string, error) {
	token, err := s.tokens.Issue(username, s.tokenTTL)
	if err != nil {
		return "", s.internal(ctx, "issue token", err)
	}
	return token, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("gophauth-dummy-password")
	})
	return s.dummyHash
}

func (s *UserService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}

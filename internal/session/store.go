// Package session issues, validates, and revokes bearer-token sessions.
//
// Sessions are single table rows looked up directly by token. Expiry is
// purely time-based and checked lazily on validation; there is no background
// sweep, and an expired-but-present row behaves exactly like an absent one.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/internal/schema"
	"github.com/filedock/filedock/pkg/table"
)

// TTL is the fixed session lifetime.
const TTL = 86400 * time.Second

// Store manages session rows.
type Store struct {
	table  table.Store
	logger *zap.Logger

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewStore creates a session store on the given table.
func NewStore(t table.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{table: t, logger: logger, now: time.Now}
}

// Create issues a new session for a user and returns its token.
func (s *Store) Create(ctx context.Context, username string, role model.Role) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", apperr.Storage(err)
	}

	now := s.now().Unix()
	sess := model.Session{
		Token:     token,
		Username:  username,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now + int64(TTL.Seconds()),
	}
	if err := s.table.Put(ctx, schema.SessionItem(sess)); err != nil {
		return "", apperr.Storage(err)
	}

	s.logger.Debug("session created", zap.String("username", username), zap.String("role", string(role)))
	return token, nil
}

// Validate resolves a token to a principal. Missing rows and expired rows
// both yield ErrUnauthenticated; expired rows are reaped opportunistically.
func (s *Store) Validate(ctx context.Context, token string) (model.Principal, error) {
	if token == "" {
		return model.Principal{}, fmt.Errorf("%w: missing token", apperr.ErrUnauthenticated)
	}

	item, err := s.table.Get(ctx, schema.SessionKey(token))
	if errors.Is(err, table.ErrItemNotFound) {
		return model.Principal{}, fmt.Errorf("%w: unknown session", apperr.ErrUnauthenticated)
	}
	if err != nil {
		return model.Principal{}, apperr.Storage(err)
	}

	sess, err := schema.DecodeSession(item)
	if err != nil {
		return model.Principal{}, apperr.Storage(err)
	}

	if sess.ExpiresAt <= s.now().Unix() {
		// Best effort; correctness does not depend on the reap.
		if err := s.table.Delete(ctx, schema.SessionKey(token)); err != nil {
			s.logger.Warn("failed to reap expired session", zap.Error(err))
		}
		return model.Principal{}, fmt.Errorf("%w: session expired", apperr.ErrUnauthenticated)
	}

	return model.Principal{Username: sess.Username, Role: sess.Role, Token: token}, nil
}

// Delete revokes a session. Deleting an unknown token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.table.Delete(ctx, schema.SessionKey(token)); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// DeleteAllForUser removes every session belonging to a user; used when the
// account is deleted.
//
// Sessions are not indexed by username, so this is a linear scan over the
// session partition prefix filtered by owner. Acceptable only because the
// live session count is small; a deployment where this matters must add a
// sessions-by-username index and turn this into a range query.
func (s *Store) DeleteAllForUser(ctx context.Context, username string) error {
	items, err := s.table.Scan(ctx, schema.SessionPartitionPrefix)
	if err != nil {
		return apperr.Storage(err)
	}

	for _, item := range items {
		sess, err := schema.DecodeSession(item)
		if err != nil {
			s.logger.Warn("skipping undecodable session row", zap.Error(err))
			continue
		}
		if sess.Username != username {
			continue
		}
		if err := s.table.Delete(ctx, item.Key); err != nil {
			return apperr.Storage(err)
		}
	}
	return nil
}

// RequireRole validates a token and checks role membership. An invalid
// session yields ErrUnauthenticated; a valid session with a role outside
// allowed yields ErrUnauthorized. The two are distinct outcomes.
func (s *Store) RequireRole(ctx context.Context, token string, allowed ...model.Role) (model.Principal, error) {
	principal, err := s.Validate(ctx, token)
	if err != nil {
		return model.Principal{}, err
	}
	for _, role := range allowed {
		if principal.Role == role {
			return principal, nil
		}
	}
	return model.Principal{}, fmt.Errorf("%w: role %s not permitted", apperr.ErrUnauthorized, principal.Role)
}

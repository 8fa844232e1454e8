// Package redisrepo keeps wizard sessions in Redis so a registration can be
// resumed from another request or another instance.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/internal/wizard"
	"github.com/go-redis/redis/v8"
)

const DefaultSessionTTL = 24 * time.Hour

type SessionRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, prefix string, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRepository{
		client: client,
		prefix: prefix + ":wizard:",
		ttl:    ttl,
	}
}

func (r *SessionRepository) key(id string) string {
	return r.prefix + id
}

// Save stores the session and restarts its expiry.
func (r *SessionRepository) Save(ctx context.Context, s *wizard.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*wizard.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s wizard.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Package session persists per-session pipeline state between invocations,
// so a follow-up call (for instance after the user resupplies dates) can
// resume with the earlier decision and references.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bldgsense/sensoria/internal/decision"
	"github.com/bldgsense/sensoria/internal/kg"
)

// State is what survives across invocations of the same session.
type State struct {
	SessionID     string                   `json:"session_id"`
	Question      string                   `json:"question"`
	Decision      *decision.Decision       `json:"decision,omitempty"`
	References    []kg.TimeseriesReference `json:"references,omitempty"`
	AwaitingDates bool                     `json:"awaiting_dates"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

type Store interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, state *State) error
	Clear(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(sessionID string) string { return "session:" + sessionID }

// Load returns nil without error when the session has no saved state.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*State, error) {
	data, err := s.client.Get(ctx, key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("corrupt session state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state *State) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key(state.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, key(sessionID)).Err()
}

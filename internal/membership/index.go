// Package membership tracks which sessions are in an agent's active set.
// Accept, Transfer and Complete keep the index in step with session
// ownership.
package membership

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Index is the agent active-session set.
type Index interface {
	AddToAgent(ctx context.Context, agentID, sessionID string) error
	RemoveFromAgent(ctx context.Context, agentID, sessionID string) error
	SessionsForAgent(ctx context.Context, agentID string) ([]string, error)
}

// RedisIndex keeps each agent's sessions in a Redis set.
type RedisIndex struct {
	client *redis.Client
}

// NewRedisIndex connects to Redis and returns the index.
func NewRedisIndex(addr, password string, db int) (*RedisIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisIndex{client: client}, nil
}

func agentKey(agentID string) string {
	return "agent:" + agentID + ":sessions"
}

// AddToAgent implements Index.
func (i *RedisIndex) AddToAgent(ctx context.Context, agentID, sessionID string) error {
	if err := i.client.SAdd(ctx, agentKey(agentID), sessionID).Err(); err != nil {
		return fmt.Errorf("failed to add session to agent set: %w", err)
	}
	return nil
}

// RemoveFromAgent implements Index.
func (i *RedisIndex) RemoveFromAgent(ctx context.Context, agentID, sessionID string) error {
	if err := i.client.SRem(ctx, agentKey(agentID), sessionID).Err(); err != nil {
		return fmt.Errorf("failed to remove session from agent set: %w", err)
	}
	return nil
}

// SessionsForAgent implements Index.
func (i *RedisIndex) SessionsForAgent(ctx context.Context, agentID string) ([]string, error) {
	sessions, err := i.client.SMembers(ctx, agentKey(agentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read agent session set: %w", err)
	}
	return sessions, nil
}

// Close closes the Redis connection.
func (i *RedisIndex) Close() error {
	return i.client.Close()
}

// Noop ignores all membership updates. Used in tests and when Redis is not
// configured.
type Noop struct{}

// AddToAgent implements Index.
func (Noop) AddToAgent(ctx context.Context, agentID, sessionID string) error { return nil }

// RemoveFromAgent implements Index.
func (Noop) RemoveFromAgent(ctx context.Context, agentID, sessionID string) error { return nil }

// SessionsForAgent implements Index.
func (Noop) SessionsForAgent(ctx context.Context, agentID string) ([]string, error) {
	return nil, nil
}

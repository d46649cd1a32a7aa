package presence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis is a Registry backed by per-user connection counters, so presence
// survives process restarts and can be shared across instances.
// Keys: <prefix>:conn:<userID> -> number of open sockets.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "presence"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) connKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:conn:%s", r.prefix, userID)
}

func (r *Redis) Connect(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.client.Incr(ctx, r.connKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) Disconnect(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := r.connKey(userID)
	n, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n <= 0 {
		// Del rather than leaving zero/negative counters behind
		_ = r.client.Del(ctx, key).Err()
		return true, nil
	}
	return false, nil
}

func (r *Redis) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.client.Exists(ctx, r.connKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jun/markpad/backend/internal/model"
)

var (
	// Takes the lock when it is free or already held by ARGV[1].
	acquireScript = redis.NewScript(`
		local owner = redis.call("get", KEYS[1])
		if not owner or owner == ARGV[1] then
			redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[2])
			return 1
		end
		return 0
	`)
	heartbeatScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		end
		return 0
	`)
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`)
)

// RedisLocker implements Locker on Redis. A lock is a key holding the
// owner's user ID with a PX expiry.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisLocker creates a RedisLocker with the default TTL.
func NewRedisLocker(client redis.Cmdable, prefix string) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		ttl:    DefaultTTL,
	}
}

func (l *RedisLocker) key(documentID string) string {
	return l.prefix + "lock:" + documentID
}

func (l *RedisLocker) lock(documentID, userID string) *model.EditLock {
	return &model.EditLock{
		DocumentID: documentID,
		UserID:     userID,
		ExpiresAt:  time.Now().Add(l.ttl).Unix(),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, documentID, userID string) (*model.EditLock, error) {
	ok, err := acquireScript.Run(ctx, l.client, []string{l.key(documentID)}, userID, l.ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("redis error acquiring lock: %w", err)
	}
	if ok == 0 {
		return nil, ErrLocked
	}
	return l.lock(documentID, userID), nil
}

func (l *RedisLocker) Heartbeat(ctx context.Context, documentID, userID string) (*model.EditLock, error) {
	ok, err := heartbeatScript.Run(ctx, l.client, []string{l.key(documentID)}, userID, l.ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("redis error extending lock: %w", err)
	}
	if ok == 0 {
		return nil, ErrNotOwner
	}
	return l.lock(documentID, userID), nil
}

func (l *RedisLocker) Release(ctx context.Context, documentID, userID string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key(documentID)}, userID).Int()
	if err != nil {
		return fmt.Errorf("redis error releasing lock: %w", err)
	}
	if n == 0 {
		return ErrNotOwner
	}
	return nil
}

func (l *RedisLocker) Status(ctx context.Context, documentID string) (*model.EditLock, error) {
	key := l.key(documentID)
	owner, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis error reading lock: %w", err)
	}
	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error reading lock ttl: %w", err)
	}
	if ttl < 0 {
		// Raced with expiry.
		return nil, nil
	}
	return &model.EditLock{
		DocumentID: documentID,
		UserID:     owner,
		ExpiresAt:  time.Now().Add(ttl).Unix(),
	}, nil
}

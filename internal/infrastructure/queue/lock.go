package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our token, so
// an expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a Redis SETNX single-flight lock. It serializes operations that
// must not run concurrently across instances, like the drift check.
type Locker struct {
	client    *redis.Client
	keyPrefix string
}

// NewLocker creates a Locker
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client, keyPrefix: "channelsync:lock:"}
}

// Acquire tries to take the named lock for ttl. Returns acquired=false when
// another holder has it, and a release function when taken.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, func(), error) {
	key := l.keyPrefix + name
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("queue: failed to acquire lock %s: %w", name, err)
	}
	if !acquired {
		return false, nil, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, l.client, []string{key}, token)
	}
	return true, release, nil
}

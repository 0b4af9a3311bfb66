package support

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLeadershipTTL = 45 * time.Second
	leaderRetryDelay     = time.Second
	leaderOpTimeout      = 5 * time.Second
)

var (
	leaderCounter atomic.Uint64

	renewLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

	releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
)

// RunWithLeader runs fn only while this instance holds the Redis lock named
// by key, so a job scheduled on every instance executes on exactly one. The
// lock is renewed in the background; when renewal fails the context passed to
// fn is cancelled and acquisition starts over. Returns when ctx is done.
func RunWithLeader(ctx context.Context, key string, ttl time.Duration, fn func(context.Context)) error {
	if fn == nil {
		return errors.New("support: leader function cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ttl <= 0 {
		ttl = DefaultLeadershipTTL
	}

	client, err := GetRedisClient()
	if err != nil {
		return fmt.Errorf("support: leader lock redis client: %w", err)
	}

	for ctx.Err() == nil {
		holder := leaderHolderID()

		acquired, err := client.SetNX(ctx, key, holder, ttl).Result()
		if err != nil && ctx.Err() == nil {
			log.Warn("Leader lock acquisition failed", "key", key, "error", err)
		}

		if acquired {
			log.Debug("Leader lock acquired", "key", key)
			holdLeadership(ctx, client, key, holder, ttl, fn)
			log.Debug("Leader lock released", "key", key)
		}

		select {
		case <-ctx.Done():
		case <-time.After(leaderRetryDelay):
		}
	}

	return ctx.Err()
}

// holdLeadership runs fn under a cancellable context and keeps the lock alive
// until fn returns, renewal fails, or ctx is done.
func holdLeadership(ctx context.Context, client *redis.Client, key, holder string, ttl time.Duration, fn func(context.Context)) {
	leaderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	renewEvery := ttl / 3
	if renewEvery < time.Second {
		renewEvery = time.Second
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(leaderCtx)
	}()

	ticker := time.NewTicker(renewEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			releaseLeaderLock(client, key, holder)
			return
		case <-leaderCtx.Done():
			<-done
			releaseLeaderLock(client, key, holder)
			return
		case <-ticker.C:
			if err := renewLeaderLock(client, key, holder, ttl); err != nil {
				log.Warn("Leader lock renewal failed, stepping down", "key", key, "error", err)
				cancel()
				<-done
				return
			}
		}
	}
}

func renewLeaderLock(client *redis.Client, key, holder string, ttl time.Duration) error {
	opCtx, cancel := context.WithTimeout(context.Background(), leaderOpTimeout)
	defer cancel()

	res, err := renewLockScript.Run(opCtx, client, []string{key}, holder, ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if renewed, ok := res.(int64); ok && renewed == 0 {
		return errors.New("lock taken over by another holder")
	}
	return nil
}

func releaseLeaderLock(client *redis.Client, key, holder string) {
	opCtx, cancel := context.WithTimeout(context.Background(), leaderOpTimeout)
	defer cancel()

	if _, err := releaseLockScript.Run(opCtx, client, []string{key}, holder).Result(); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn("Leader lock release failed", "key", key, "error", err)
	}
}

func leaderHolderID() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%d-%d", host, os.Getpid(), time.Now().UnixNano(), leaderCounter.Add(1))
}

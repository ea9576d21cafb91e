package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	ErrLockTimeout     = errors.New("timeout acquiring lock")
	ErrLockNotHeld     = errors.New("lock not held by this instance")
	ErrLockAlreadyHeld = errors.New("lock already held by another instance")
)

const (
	DefaultLockTTL        = 10 * time.Second
	DefaultAcquireTimeout = 5 * time.Second
	DefaultRetryAttempts  = 5
	// OrphanedLockAge is how long a lock may sit untouched before it is force-deleted.
	OrphanedLockAge = 60 * time.Second

	keyPrefix = "casino:lock:"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// LockManager hands out Redis-backed locks so that several server processes sharing one
// account store do not interleave balance writes for the same account.
type LockManager struct {
	redis      redis.Cmdable
	instanceID string
	logger     zerolog.Logger
}

type Lock struct {
	key        string
	value      string
	manager    *LockManager
	acquiredAt time.Time
}

func NewLockManager(client redis.Cmdable, logger zerolog.Logger) *LockManager {
	id := uuid.New().String()
	return &LockManager{
		redis:      client,
		instanceID: id,
		logger:     logger.With().Str("component", "locks").Str("instance", id).Logger(),
	}
}

// AcquireLock takes key with SET NX, retrying with backoff until DefaultAcquireTimeout.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if ttl == 0 {
		ttl = DefaultLockTTL
	}

	acquireCtx, cancel := context.WithTimeout(ctx, DefaultAcquireTimeout)
	defer cancel()

	lockKey := keyPrefix + key
	lockValue := fmt.Sprintf("%s:%s", lm.instanceID, uuid.New().String())

	var lastErr error
	for attempt := 0; attempt < DefaultRetryAttempts; attempt++ {
		acquired, err := lm.redis.SetNX(acquireCtx, lockKey, lockValue, ttl).Result()
		switch {
		case err != nil:
			lastErr = fmt.Errorf("redis error: %w", err)
			lm.logger.Warn().Err(err).Str("key", lockKey).Int("attempt", attempt+1).Msg("Lock acquire failed")
		case acquired:
			lm.logger.Debug().Str("key", lockKey).Int("attempt", attempt+1).Msg("Lock acquired")
			return &Lock{key: lockKey, value: lockValue, manager: lm, acquiredAt: time.Now()}, nil
		default:
			lastErr = ErrLockAlreadyHeld
			if err := lm.checkAndCleanOrphanedLock(acquireCtx, lockKey); err != nil {
				lm.logger.Warn().Err(err).Str("key", lockKey).Msg("Orphan check failed")
			}
		}

		select {
		case <-acquireCtx.Done():
			return nil, ErrLockTimeout
		case <-time.After(calculateBackoff(attempt)):
		}
	}

	lm.logger.Warn().Str("key", lockKey).Int("attempts", DefaultRetryAttempts).Msg("Giving up on lock")
	return nil, lastErr
}

// Guard acquires key with the default TTL and returns a func that releases it.
func (lm *LockManager) Guard(ctx context.Context, key string) (func(), error) {
	lock, err := lm.AcquireLock(ctx, key, DefaultLockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(ctx); err != nil {
			lm.logger.Warn().Err(err).Str("key", lock.key).Msg("Lock release failed")
		}
	}, nil
}

// Release deletes the lock if this instance still owns it.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return ErrLockNotHeld
	}

	result, err := releaseScript.Run(ctx, l.manager.redis, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == int64(0) {
		return ErrLockNotHeld
	}

	l.manager.logger.Debug().Str("key", l.key).Dur("held", time.Since(l.acquiredAt)).Msg("Lock released")
	return nil
}

func (lm *LockManager) checkAndCleanOrphanedLock(ctx context.Context, lockKey string) error {
	idle, err := lm.redis.ObjectIdleTime(ctx, lockKey).Result()
	if err != nil {
		// key vanished or OBJECT is unsupported
		return nil
	}
	if idle <= OrphanedLockAge {
		return nil
	}

	deleted, err := lm.redis.Del(ctx, lockKey).Result()
	if err != nil {
		return fmt.Errorf("failed to delete orphaned lock: %w", err)
	}
	if deleted > 0 {
		lm.logger.Warn().Str("key", lockKey).Dur("idle", idle).Msg("Removed orphaned lock")
	}
	return nil
}

// CleanupOrphanedLocks sweeps every lock key once. Call it on startup.
func (lm *LockManager) CleanupOrphanedLocks(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		scanned int
		cleaned int
	)
	for {
		keys, next, err := lm.redis.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return cleaned, fmt.Errorf("failed to list locks: %w", err)
		}
		for _, key := range keys {
			scanned++
			if err := lm.checkAndCleanOrphanedLock(ctx, key); err != nil {
				lm.logger.Warn().Err(err).Str("key", key).Msg("Orphan check failed")
				continue
			}
			if exists, _ := lm.redis.Exists(ctx, key).Result(); exists == 0 {
				cleaned++
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	lm.logger.Info().Int("cleaned", cleaned).Int("scanned", scanned).Msg("Orphaned lock cleanup complete")
	return cleaned, nil
}

// calculateBackoff doubles from 100ms and caps at 1s.
func calculateBackoff(attempt int) time.Duration {
	backoff := 100 * time.Millisecond * time.Duration(1<<uint(attempt))
	if backoff > time.Second {
		backoff = time.Second
	}
	return backoff
}

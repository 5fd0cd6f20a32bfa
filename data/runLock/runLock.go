package runLock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
)

// Locker serializes pipeline runs that write the same partition and catalog.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// New picks the backend configured by LOCK_BACKEND. redisClient may be nil
// unless the backend is "redis".
func New(cfg *config.Config, redisClient *redis.Client) Locker {
	switch cfg.Lock.Backend {
	case "redis":
		return NewRedisLock(redisClient, cfg.Lock.RedisKey, cfg.Lock.TTL)
	case "none":
		return NoopLock{}
	default:
		return NewFileLock(cfg.Lock.FilePath)
	}
}

type NoopLock struct{}

func (NoopLock) Lock(context.Context) (func(), error) {
	return func() {}, nil
}

type FileLock struct {
	path string
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

func (l *FileLock) Lock(ctx context.Context) (func(), error) {
	runID := utils.GetRunIDFromCtx(ctx)

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
	}

	fl := flock.New(l.path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", l.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is held", ErrLocked, l.path)
	}

	slog.Debug("file lock acquired", slog.String("runID", runID), slog.String("path", l.path))

	return func() {
		if err := fl.Unlock(); err != nil {
			slog.Error("can't release file lock", slog.String("runID", runID), slog.String("path", l.path), slog.String("err", err.Error()))
		}
	}, nil
}

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

func NewRedisLock(redisClient *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{redis: redisClient, key: key, ttl: ttl}
}

func (l *RedisLock) Lock(ctx context.Context) (func(), error) {
	runID := utils.GetRunIDFromCtx(ctx)
	token := runID
	if token == "" {
		token = fmt.Sprintf("pid-%d-%d", os.Getpid(), time.Now().UnixNano())
	}

	ok, err := l.redis.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", l.key, err)
	}
	if !ok {
		holder, _ := l.redis.Get(ctx, l.key).Result()
		return nil, fmt.Errorf("%w: %s held by %s", ErrLocked, l.key, holder)
	}

	slog.Debug("redis lock acquired", slog.String("runID", runID), slog.String("key", l.key))

	return func() {
		// the run ctx may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.redis, []string{l.key}, token).Err(); err != nil {
			slog.Error("can't release redis lock", slog.String("runID", runID), slog.String("key", l.key), slog.String("err", err.Error()))
		}
	}, nil
}

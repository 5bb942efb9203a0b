package state

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"token-deployer-sol/internal/pkg/logger"
)

const (
	lockPrefix       = "deployer:ledger:lock"
	defaultLockTTL   = 30 * time.Second
	defaultLockWait  = 10 * time.Second
	lockPollInterval = 100 * time.Millisecond
)

// 只有持有者本人能释放，避免锁过期后误删别人的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockTimeout 在等待时间内没有拿到锁
var ErrLockTimeout = errors.New("ledger lock timeout")

// RedisLocker 基于 SET NX PX 的建议锁，多个操作员共享同一份状态文件时使用
type RedisLocker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, wait: wait}
}

func (r *RedisLocker) key(name string) string {
	return fmt.Sprintf("%s:%s", lockPrefix, name)
}

func newLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Lock 阻塞直到拿到锁、等待超时或 ctx 取消
func (r *RedisLocker) Lock(ctx context.Context, name string) (func(), error) {
	key := r.key(name)
	token, err := newLockToken()
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(r.wait)
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx error: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}

	logger.Debugf("[LedgerLock] 已加锁: %s", key)
	unlock := func() {
		// 释放不受调用方 ctx 取消影响
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.rdb, []string{key}, token).Err(); err != nil {
			logger.Warnf("[LedgerLock] 释放锁失败: %s, err=%v", key, err)
		}
	}
	return unlock, nil
}

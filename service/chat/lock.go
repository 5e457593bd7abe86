package chat

import (
	"context"
	"fmt"
	"sync"
)

// SessionLocker 保证同一会话的请求串行执行
type SessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func NewSessionLocker() *SessionLocker {
	return &SessionLocker{locks: make(map[string]*sessionLock)}
}

func sessionKey(userID uint, token string) string {
	return fmt.Sprintf("%d:%s", userID, token)
}

// Acquire 阻塞直到获得锁或 ctx 结束，返回的 release 可重复调用
func (l *SessionLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &sessionLock{ch: make(chan struct{}, 1)}
		lk.ch <- struct{}{}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case <-lk.ch:
		var once sync.Once
		return func() {
			once.Do(func() {
				lk.ch <- struct{}{}
				l.unref(key, lk)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, lk)
		return nil, ctx.Err()
	}
}

func (l *SessionLocker) unref(key string, lk *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *SessionLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

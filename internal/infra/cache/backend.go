package cache

import (
	"sync"
	"time"
)

// Record 是 backend 中的一条原始记录（值已编码）。
type Record struct {
	Value      []byte
	InsertedAt time.Time
}

// Backend 是缓存的存储层。内存实现是默认值；badger 实现用于跨进程重启保留缓存。
//
// 约束：实现必须并发安全。
type Backend interface {
	Load(key string) (Record, bool, error)
	Save(key string, rec Record) error
	// DeleteIf 在存储层的锁或事务内重新读取每个 key，只删除 expired 仍判定为过期的记录，
	// 返回实际删除数量。遍历之后被重新写入的 key 不会被删除。
	DeleteIf(keys []string, expired func(key string, rec Record) bool) (int, error)
	// Range 遍历全部记录；fn 返回 false 时停止。
	Range(fn func(key string, rec Record) bool) error
	Close() error
}

type memoryBackend struct {
	mu     sync.RWMutex
	m      map[string]Record
	closed bool
}

func NewMemoryBackend() Backend {
	return &memoryBackend{m: make(map[string]Record)}
}

func (b *memoryBackend) Load(key string) (Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return Record{}, false, ErrClosed
	}
	r, ok := b.m[key]
	return r, ok, nil
}

func (b *memoryBackend) Save(key string, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.m[key] = rec
	return nil
}

func (b *memoryBackend) DeleteIf(keys []string, expired func(key string, rec Record) bool) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	n := 0
	for _, k := range keys {
		rec, ok := b.m[k]
		if !ok || !expired(k, rec) {
			continue
		}
		delete(b.m, k)
		n++
	}
	return n, nil
}

func (b *memoryBackend) Range(fn func(key string, rec Record) bool) error {
	// 先拷贝快照再回调：回调期间不持锁。
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	snap := make(map[string]Record, len(b.m))
	for k, v := range b.m {
		snap[k] = v
	}
	b.mu.RUnlock()

	for k, v := range snap {
		if !fn(k, v) {
			return nil
		}
	}
	return nil
}

func (b *memoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

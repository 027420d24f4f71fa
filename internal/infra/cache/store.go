package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/John-Robertt/dhakaflix/internal/logging"
)

// Namespace 区分不同 TTL 的缓存分区。
type Namespace string

const (
	NamespaceSearch Namespace = "search"
	NamespaceStream Namespace = "stream"
)

const (
	DefaultSearchTTL = 12 * time.Hour
	DefaultStreamTTL = 24 * time.Hour
)

// Clock 抽象当前时间，测试中用假时钟验证过期而无需真实等待。
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Store 是 key→(value, insertedAt) 的 TTL 缓存。
//
// 约束：
// - 未过期条目永远优先于重新抓取
// - 过期条目保留到被覆盖或被 Sweep 删除，期间可作为抓取失败时的降级结果
// - 不设容量上限：内存只由 TTL 清理约束
// - get-then-put 不是事务；并发相同请求是 last-writer-wins（值是同源数据的幂等推导）
type Store struct {
	backend Backend
	clock   Clock
	logger  *slog.Logger

	mu  sync.RWMutex
	ttl map[Namespace]time.Duration
}

// Options 描述 Store 的构造参数；零值字段使用默认值。
type Options struct {
	Backend Backend
	Clock   Clock
	Logger  *slog.Logger
	TTL     map[Namespace]time.Duration
}

func New(opts Options) *Store {
	s := &Store{
		backend: opts.Backend,
		clock:   opts.Clock,
		logger:  logging.NewComponentLogger(opts.Logger, "cache"),
		ttl: map[Namespace]time.Duration{
			NamespaceSearch: DefaultSearchTTL,
			NamespaceStream: DefaultStreamTTL,
		},
	}
	if s.backend == nil {
		s.backend = NewMemoryBackend()
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	for ns, ttl := range opts.TTL {
		if ttl > 0 {
			s.ttl[ns] = ttl
		}
	}
	return s
}

// TTL 返回 namespace 的 TTL；未知 namespace 返回 0（永不新鲜）。
func (s *Store) TTL(ns Namespace) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttl[ns]
}

// Get 读取 ns/key 并解码到 dst。
//
// 返回值：
// - found：是否存在（不论新鲜与否）
// - fresh：age < TTL
func (s *Store) Get(ns Namespace, key string, dst any) (found, fresh bool) {
	rec, ok, err := s.backend.Load(compositeKey(ns, key))
	if err != nil {
		s.logger.Warn("cache read failed",
			logging.String("namespace", string(ns)),
			logging.String("key", key),
			logging.Error(err))
		return false, false
	}
	if !ok {
		return false, false
	}
	if err := msgpack.Unmarshal(rec.Value, dst); err != nil {
		s.logger.Warn("cache value decode failed",
			logging.String("namespace", string(ns)),
			logging.String("key", key),
			logging.Error(err))
		return false, false
	}
	return true, s.isFresh(ns, rec.InsertedAt)
}

// Put 以当前时间写入（覆盖）ns/key。
func (s *Store) Put(ns Namespace, key string, v any) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("编码缓存值失败：%w", err)
	}
	rec := Record{Value: b, InsertedAt: s.clock.Now()}
	if err := s.backend.Save(compositeKey(ns, key), rec); err != nil {
		return fmt.Errorf("写入缓存失败：%w", err)
	}
	return nil
}

// Sweep 删除所有 age ≥ TTL 的条目，返回删除数量。
// 未知 namespace 的条目（例如旧版本残留）一并删除。
//
// 约束：删除时在 backend 内按当前记录重新判定；遍历之后被 Put 刷新的 key 保留。
func (s *Store) Sweep() (int, error) {
	var candidates []string
	err := s.backend.Range(func(key string, rec Record) bool {
		if s.expired(key, rec) {
			candidates = append(candidates, key)
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	removed := 0
	if len(candidates) > 0 {
		removed, err = s.backend.DeleteIf(candidates, s.expired)
		if err != nil {
			return removed, err
		}
	}
	s.logger.Info("cache sweep done",
		logging.Int("candidates", len(candidates)),
		logging.Int("removed", removed))
	return removed, nil
}

func (s *Store) expired(key string, rec Record) bool {
	ns, _, ok := splitKey(key)
	return !ok || !s.isFresh(ns, rec.InsertedAt)
}

// Close 关闭底层 backend。
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func (s *Store) isFresh(ns Namespace, insertedAt time.Time) bool {
	ttl := s.TTL(ns)
	if ttl <= 0 {
		return false
	}
	return s.clock.Now().Sub(insertedAt) < ttl
}

const keySep = "\x1f"

func compositeKey(ns Namespace, key string) string {
	return string(ns) + keySep + key
}

func splitKey(k string) (Namespace, string, bool) {
	ns, key, ok := strings.Cut(k, keySep)
	if !ok {
		return "", "", false
	}
	return Namespace(ns), key, true
}

// ErrClosed 表示 backend 已关闭。
var ErrClosed = errors.New("cache: closed")

package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/John-Robertt/dhakaflix/internal/logging"
)

// badgerBackend 把记录持久化到 badger。
//
// 注意：不使用 badger 自带的 TTL（那会直接删除过期数据）；
// 过期条目必须保留到 Sweep，才能在抓取失败时作为降级结果。
type badgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend 在 dir 下打开（或创建）badger 数据库。
func OpenBadgerBackend(dir string, logger *slog.Logger) (Backend, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("cache dir 不能为空")
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(&badgerLogger{logger: logging.NewComponentLogger(logger, "badger")})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开 badger 失败：%w", err)
	}
	return &badgerBackend{db: db}, nil
}

func (b *badgerBackend) Load(key string) (Record, bool, error) {
	var rec Record
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := msgpack.Unmarshal(raw, &rec); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, found, nil
}

func (b *badgerBackend) Save(key string, rec Record) error {
	raw, err := msgpack.Marshal(&rec)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

func (b *badgerBackend) DeleteIf(keys []string, expired func(key string, rec Record) bool) (int, error) {
	const chunk = 512
	removed := 0
	for start := 0; start < len(keys); start += chunk {
		end := start + chunk
		if end > len(keys) {
			end = len(keys)
		}
		part := keys[start:end]
		n := 0
		err := b.db.Update(func(txn *badger.Txn) error {
			n = 0
			for _, k := range part {
				item, err := txn.Get([]byte(k))
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				raw, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				var rec Record
				if err := msgpack.Unmarshal(raw, &rec); err != nil {
					rec = Record{}
				}
				if !expired(k, rec) {
					continue
				}
				if err := txn.Delete([]byte(k)); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (b *badgerBackend) Range(fn func(key string, rec Record) bool) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec Record
			if err := msgpack.Unmarshal(raw, &rec); err != nil {
				// 损坏的记录交给 Sweep 清理：InsertedAt 为零值即视为过期。
				rec = Record{}
			}
			if !fn(string(item.KeyCopy(nil)), rec) {
				return nil
			}
		}
		return nil
	})
}

func (b *badgerBackend) Close() error {
	return b.db.Close()
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(f string, args ...interface{}) {
	for _, line := range splitLines(fmt.Sprintf(f, args...)) {
		l.logger.Error("badger error", logging.String("inner", line))
	}
}

func (l *badgerLogger) Warningf(f string, args ...interface{}) {
	for _, line := range splitLines(fmt.Sprintf(f, args...)) {
		l.logger.Warn("badger warning", logging.String("inner", line))
	}
}

func (l *badgerLogger) Infof(string, ...interface{}) {}

func (l *badgerLogger) Debugf(string, ...interface{}) {}

func splitLines(s string) []string {
	return strings.Split(strings.Trim(s, "\n"), "\n")
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chiuchau-cyril/heario/internal/model"
)

// recentListCap bounds the recent index kept in Redis.
const recentListCap = 500

// HybridStore keeps record metadata, the recency list, and the url dedup
// index in Redis, and the heavy original_content payloads in Badger.
// Pass badgerPath="" to run without content storage (metadata-only mode).
type HybridStore struct {
	rdb *redis.Client
	db  *badger.DB
}

var _ Store = (*HybridStore)(nil)

// NewHybridStore connects both databases.
func NewHybridStore(redisAddr, badgerPath string) (*HybridStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	var db *badger.DB
	if badgerPath != "" {
		opts := badger.DefaultOptions(badgerPath)
		opts.Logger = nil
		var err error
		db, err = badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
	}

	return &HybridStore{rdb: rdb, db: db}, nil
}

// Close releases both connections.
func (s *HybridStore) Close() {
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func recordKey(id uuid.UUID) string {
	return "news:" + id.String()
}

func urlKey(url string) string {
	return "news:url:" + strconv.FormatUint(xxhash.Sum64String(url), 16)
}

// Insert writes metadata and the dedup index entry to Redis and the
// original content to Badger. It does not itself check for an existing
// url; FindByURL first is the caller's job.
func (s *HybridStore) Insert(ctx context.Context, record *model.NewsRecord) error {
	meta := *record
	meta.OriginalContent = ""

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, recordKey(record.ID), data, 0)
	pipe.Set(ctx, urlKey(record.URL), record.ID.String(), 0)
	pipe.LPush(ctx, "news:recent", record.ID.String())
	pipe.LTrim(ctx, "news:recent", 0, recentListCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if record.OriginalContent != "" && s.db != nil {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(record.ID.String()), []byte(record.OriginalContent))
		})
		if err != nil {
			return fmt.Errorf("write content: %w", err)
		}
	}

	return nil
}

// Get loads a full record: metadata from Redis, content from Badger.
func (s *HybridStore) Get(ctx context.Context, id uuid.UUID) (*model.NewsRecord, error) {
	val, err := s.rdb.Get(ctx, recordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var record model.NewsRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	if s.db != nil {
		err = s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(id.String()))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				record.OriginalContent = string(val)
				return nil
			})
		})
		if err != nil && err != badger.ErrKeyNotFound {
			return nil, err
		}
	}

	return &record, nil
}

// FindByURL resolves the dedup index and loads the record.
func (s *HybridStore) FindByURL(ctx context.Context, url string) (*model.NewsRecord, error) {
	idStr, err := s.rdb.Get(ctx, urlKey(url)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt url index for %s: %w", url, err)
	}
	return s.Get(ctx, id)
}

// FindRecent returns up to limit records, newest first, metadata only.
func (s *HybridStore) FindRecent(ctx context.Context, limit int) ([]model.NewsRecord, error) {
	ids, err := s.rdb.LRange(ctx, "news:recent", 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	var records []model.NewsRecord
	for _, idStr := range ids {
		val, err := s.rdb.Get(ctx, "news:"+idStr).Bytes()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, err
		}

		var r model.NewsRecord
		if err := json.Unmarshal(val, &r); err == nil {
			records = append(records, r)
		}
	}

	return records, nil
}

// FindByTextMatch scans the recent index for records whose title or
// summary contains pattern, case-insensitively.
func (s *HybridStore) FindByTextMatch(ctx context.Context, pattern string, limit int) ([]model.NewsRecord, error) {
	recent, err := s.FindRecent(ctx, recentListCap)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(pattern)
	var matches []model.NewsRecord
	for _, r := range recent {
		if strings.Contains(strings.ToLower(r.Title), needle) ||
			strings.Contains(strings.ToLower(r.Summary), needle) {
			matches = append(matches, r)
			if limit > 0 && len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

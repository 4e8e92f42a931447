package services

import (
	"context"
	"encoding/json"
	"fmt"
	"tableside_server/structs"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/redis/go-redis/v9"
)

// ClientStateStore keeps what a table device would otherwise hold locally:
// its submission window, its last table and its order history.
type ClientStateStore interface {
	// ReserveSubmission atomically claims the window starting at at. A
	// positive duration means the window is held and how long it stays so.
	ReserveSubmission(ctx context.Context, clientId string, at time.Time, window time.Duration) (time.Duration, error)
	ReleaseSubmission(ctx context.Context, clientId string) error
	LastTable(ctx context.Context, clientId string) (string, error)
	RecordSubmission(ctx context.Context, clientId, table string, entry structs.HistoryEntry) error
	History(ctx context.Context, clientId string) ([]structs.HistoryEntry, error)
}

// RedisClientState stores client state under client:<id>:*.
type RedisClientState struct {
	cache       *CacheService
	logger      *gecho.Logger
	ttl         time.Duration
	historySize int
}

func NewRedisClientState(cache *CacheService, logger *gecho.Logger, ttl time.Duration, historySize int) *RedisClientState {
	if historySize <= 0 {
		historySize = 20
	}
	return &RedisClientState{
		cache:       cache,
		logger:      logger,
		ttl:         ttl,
		historySize: historySize,
	}
}

func clientKey(clientId, field string) string {
	return fmt.Sprintf("client:%s:%s", clientId, field)
}

func (s *RedisClientState) ReserveSubmission(ctx context.Context, clientId string, at time.Time, window time.Duration) (time.Duration, error) {
	return s.cache.Reserve(ctx, clientKey(clientId, "cooldown"), at.UnixMilli(), window)
}

func (s *RedisClientState) ReleaseSubmission(ctx context.Context, clientId string) error {
	return s.cache.Delete(ctx, clientKey(clientId, "cooldown"))
}

func (s *RedisClientState) LastTable(ctx context.Context, clientId string) (string, error) {
	return s.cache.Get(ctx, clientKey(clientId, "last_table"))
}

func (s *RedisClientState) RecordSubmission(ctx context.Context, clientId, table string, entry structs.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	historyKey := clientKey(clientId, "history")
	return s.cache.withRetry(ctx, func() error {
		_, err := s.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, clientKey(clientId, "last_table"), table, s.ttl)
			pipe.LPush(ctx, historyKey, data)
			pipe.LTrim(ctx, historyKey, 0, int64(s.historySize-1))
			if s.ttl > 0 {
				pipe.Expire(ctx, historyKey, s.ttl)
			}
			return nil
		})
		return err
	}, 3)
}

func (s *RedisClientState) History(ctx context.Context, clientId string) ([]structs.HistoryEntry, error) {
	var raw []string
	err := s.cache.withRetry(ctx, func() error {
		var err error
		raw, err = s.cache.Client().LRange(ctx, clientKey(clientId, "history"), 0, int64(s.historySize-1)).Result()
		return err
	}, 3)
	if err != nil {
		return nil, err
	}

	entries := make([]structs.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry structs.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			s.logger.Debug("Skipping unreadable history entry", gecho.Field("client_id", clientId), gecho.Field("error", err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

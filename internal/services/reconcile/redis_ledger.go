package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mitchellh/mapstructure"
)

// RedisLedger 基于 Redis 的账本，多实例共享
// 每个条目一个 hash，另有按记录时间排序的 zset 索引
type RedisLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisLedger 创建 Redis 账本
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "image-store:ledger"
	}
	return &RedisLedger{client: client, prefix: prefix}
}

func (l *RedisLedger) entryKey(id string) string {
	return l.prefix + ":entry:" + id
}

func (l *RedisLedger) indexKey() string {
	return l.prefix + ":index"
}

func (l *RedisLedger) Record(ctx context.Context, e Entry) error {
	e = prepare(e)
	key := l.entryKey(e.ID)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fields := encodeEntry(e)
		recordedAt, attempts := fields["recorded_at"], fields["attempts"]
		delete(fields, "recorded_at")
		delete(fields, "attempts")

		pipe.HSet(ctx, key, fields)
		pipe.HSetNX(ctx, key, "recorded_at", recordedAt)
		if e.Attempts > 0 {
			pipe.HSet(ctx, key, "attempts", attempts)
		} else {
			pipe.HSetNX(ctx, key, "attempts", attempts)
		}
		pipe.ZAddNX(ctx, l.indexKey(), &redis.Z{
			Score:  float64(e.RecordedAt.UnixMilli()),
			Member: e.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record ledger entry %s: %w", e.ID, err)
	}
	return nil
}

func (l *RedisLedger) List(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := l.client.ZRange(ctx, l.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger index: %w", err)
	}

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		fields, err := l.client.HGetAll(ctx, l.entryKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger entry %s: %w", id, err)
		}
		if len(fields) == 0 {
			// 索引残留，顺手清理
			l.client.ZRem(ctx, l.indexKey(), id)
			continue
		}
		e, err := decodeEntry(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ledger entry %s: %w", id, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *RedisLedger) Resolve(ctx context.Context, id string) error {
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, l.entryKey(id))
		pipe.ZRem(ctx, l.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to resolve ledger entry %s: %w", id, err)
	}
	return nil
}

// decodeEntry 将 HGETALL 的字符串字段解码为 Entry
func decodeEntry(fields map[string]string) (Entry, error) {
	var e Entry
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		WeaklyTypedInput: true,
		Result:           &e,
	})
	if err != nil {
		return e, err
	}
	if err := decoder.Decode(fields); err != nil {
		return e, err
	}
	return e, nil
}

// encodeEntry 条目的 hash 字段
func encodeEntry(e Entry) map[string]interface{} {
	return map[string]interface{}{
		"id":          e.ID,
		"kind":        string(e.Kind),
		"image_id":    e.ImageID,
		"user_id":     e.UserID,
		"storage_key": e.StorageKey,
		"reason":      e.Reason,
		"recorded_at": e.RecordedAt.UTC().Format(time.RFC3339Nano),
		"attempts":    strconv.Itoa(e.Attempts),
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nathoo/questlogic/config"
)

// RedisStore keeps each slot in a hash holding the blob and its save time.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg config.Redis, log *zap.Logger) (*RedisStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	log.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &RedisStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL, log: log}, nil
}

func (s *RedisStore) key(slot string) string {
	return s.prefix + "slot:" + slot
}

func (s *RedisStore) Save(ctx context.Context, slot string, data []byte) error {
	if err := CheckSlot(slot); err != nil {
		return err
	}
	key := s.key(slot)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "data", data, "saved", time.Now().UnixMilli())
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		s.log.Error("saving slot failed", zap.String("slot", slot), zap.Error(err))
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	s.log.Debug("slot saved", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := CheckSlot(slot); err != nil {
		return nil, err
	}
	data, err := s.client.HGet(ctx, s.key(slot), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("loading slot %s: %w", slot, err)
	}
	return data, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Slot, error) {
	var slots []Slot
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		vals, err := s.client.HMGet(ctx, key, "data", "saved").Result()
		if err != nil {
			return nil, fmt.Errorf("listing saves: %w", err)
		}
		data, _ := vals[0].(string)
		if vals[0] == nil {
			continue // expired between SCAN and HMGET
		}
		slot := Slot{Name: strings.TrimPrefix(key, s.key("")), Size: len(data)}
		if saved, ok := vals[1].(string); ok {
			if ms, err := strconv.ParseInt(saved, 10, 64); err == nil {
				slot.Saved = time.UnixMilli(ms)
			}
		}
		slots = append(slots, slot)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	sortSlots(slots)
	return slots, nil
}

func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	if err := CheckSlot(slot); err != nil {
		return err
	}
	n, err := s.client.Del(ctx, s.key(slot)).Result()
	if err != nil {
		return fmt.Errorf("deleting slot %s: %w", slot, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

// Package rediskv provides a kv.Backend and kv.Broadcaster over Redis, for
// contexts on different hosts sharing one store.
//
// Items live in one hash, per-item size estimates in a second hash, and
// total usage in a counter. Writes that touch usage run as Lua scripts so
// the quota check and the write are atomic.
package rediskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/chefconnect/internal/kv"
)

const defaultPrefix = "chefconnect:kv"

var setScript = redis.NewScript(`
local oldSize = tonumber(redis.call("HGET", KEYS[3], ARGV[1]) or "0")
local used = tonumber(redis.call("GET", KEYS[2]) or "0")
local capacity = tonumber(ARGV[4])
local nextUsed = used - oldSize + tonumber(ARGV[3])
if capacity > 0 and nextUsed > capacity then
  return -1
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("HSET", KEYS[3], ARGV[1], ARGV[3])
redis.call("SET", KEYS[2], nextUsed)
return nextUsed
`)

var removeScript = redis.NewScript(`
local oldSize = tonumber(redis.call("HGET", KEYS[3], ARGV[1]) or "0")
redis.call("HDEL", KEYS[1], ARGV[1])
redis.call("HDEL", KEYS[3], ARGV[1])
if oldSize > 0 then
  redis.call("DECRBY", KEYS[2], oldSize)
end
return oldSize
`)

// Options configures a Store.
type Options struct {
	// Prefix namespaces every Redis key. Defaults to "chefconnect:kv".
	Prefix string
	// Capacity is the quota in estimated bytes. Zero disables the quota.
	Capacity int64
}

// Store is a Redis-backed kv.Backend and kv.Broadcaster.
type Store struct {
	client   *redis.Client
	prefix   string
	capacity int64
}

var (
	_ kv.Backend     = (*Store)(nil)
	_ kv.Broadcaster = (*Store)(nil)
)

// New wraps an existing client.
func New(client *redis.Client, opts Options) *Store {
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix, capacity: opts.Capacity}
}

// Dial creates a client for addr and wraps it.
func Dial(addr, password string, opts Options) (*Store, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rediskv: addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return New(client, opts), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) itemsKey() string   { return s.prefix + ":items" }
func (s *Store) sizesKey() string   { return s.prefix + ":sizes" }
func (s *Store) usageKey() string   { return s.prefix + ":usage" }
func (s *Store) channelKey() string { return s.prefix + ":changes" }

// GetItem returns the value stored at key.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.itemsKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get item %q: %w", key, err)
	}
	return v, true, nil
}

// SetItem writes key, failing with kv.ErrQuotaExceeded over capacity.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	keys := []string{s.itemsKey(), s.usageKey(), s.sizesKey()}
	res, err := setScript.Run(ctx, s.client, keys, key, value, kv.EntrySize(key, value), s.capacity).Int64()
	if err != nil {
		return fmt.Errorf("set item %q: %w", key, err)
	}
	if res < 0 {
		return fmt.Errorf("set item %q: %w", key, kv.ErrQuotaExceeded)
	}
	return nil
}

// RemoveItem deletes key.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	keys := []string{s.itemsKey(), s.usageKey(), s.sizesKey()}
	if err := removeScript.Run(ctx, s.client, keys, key).Err(); err != nil {
		return fmt.Errorf("remove item %q: %w", key, err)
	}
	return nil
}

// Clear deletes every item and resets usage.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.itemsKey(), s.sizesKey(), s.usageKey()).Err(); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	return nil
}

// Keys returns all keys in unspecified order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.itemsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Used returns the usage counter.
func (s *Store) Used(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, s.usageKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage: %w", err)
	}
	return n, nil
}

// Publish sends c on the change channel.
func (s *Store) Publish(ctx context.Context, c kv.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := s.client.Publish(ctx, s.channelKey(), payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Listen subscribes to the change channel and returns once Redis has
// confirmed the subscription.
func (s *Store) Listen(ctx context.Context, fn func(kv.Change)) (func(), error) {
	sub := s.client.Subscribe(ctx, s.channelKey())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channelKey(), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	msgs := sub.Channel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c kv.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					slog.Warn("rediskv: dropping malformed change", "error", err)
					continue
				}
				fn(c)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			sub.Close()
			wg.Wait()
		})
	}
	return stop, nil
}

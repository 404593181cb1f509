package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrementLua = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

var setIndexedLua = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
local ttl = redis.call('PTTL', KEYS[2])
if ttl < tonumber(ARGV[2]) then
	redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
return 1
`)

var replaceExistingLua = redis.NewScript(`
redis.call('SREM', KEYS[2], ARGV[2])
local ttl = redis.call('PTTL', KEYS[1])
if ttl == -2 then
	return 0
end
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// Redis implements [Store] on top of a go-redis client. Multi-key scripts
// assume the keys share a slot, so cluster deployments need a single shard
// or hash-tagged prefixes.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps client. The caller owns the client's lifecycle.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return data, nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, errors.New("kv: increment ttl must be > 0")
	}
	n, err := incrementLua.Run(ctx, r.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (r *Redis) SetIndexed(ctx context.Context, key string, value []byte, ttl time.Duration, index, member string) error {
	ms := ttl.Milliseconds()
	if ms <= 0 {
		return errors.New("kv: indexed set ttl must be at least 1ms")
	}
	err := setIndexedLua.Run(ctx, r.client, []string{key, index}, value, ms, member).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) ReplaceExisting(ctx context.Context, key string, value []byte, index, member string) (bool, error) {
	n, err := replaceExistingLua.Run(ctx, r.client, []string{key, index}, value, member).Int64()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}

func (r *Redis) SetMembers(ctx context.Context, index string) ([]string, error) {
	members, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return members, nil
}

func (r *Redis) SetRemove(ctx context.Context, index string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := r.client.SRem(ctx, index, args...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MrEthical07/permguard/bitfield"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every failed Redis round trip.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrEmptyUserID is returned when a key would be built without a user.
var ErrEmptyUserID = errors.New("user id empty")

const defaultPrefix = "pg"

// FlagStore is a Redis-backed store of per-caller flag names.
type FlagStore struct {
	redis  redis.UniversalClient
	prefix string
	table  *bitfield.Table
}

// NewFlagStore returns a store using redisClient under prefix. When table is
// non-nil, writes are checked against it.
func NewFlagStore(redisClient redis.UniversalClient, prefix string, table *bitfield.Table) *FlagStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &FlagStore{
		redis:  redisClient,
		prefix: prefix,
		table:  table,
	}
}

func (s *FlagStore) key(tenantID, userID string) string {
	return s.prefix + ":perm:" + normalizeTenantID(tenantID) + ":" + userID
}

func (s *FlagStore) versionKey(tenantID, userID string) string {
	return s.prefix + ":permv:" + normalizeTenantID(tenantID) + ":" + userID
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}

// Flags returns the caller's flag names in lexical order. An unknown caller
// holds no flags.
func (s *FlagStore) Flags(ctx context.Context, tenantID, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	names, err := s.redis.SMembers(ctx, s.key(tenantID, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sort.Strings(names)
	return names, nil
}

// Grant adds flags to the caller's set.
func (s *FlagStore) Grant(ctx context.Context, tenantID, userID string, flags ...string) error {
	if len(flags) == 0 {
		return nil
	}
	if err := s.check(userID, flags); err != nil {
		return err
	}
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.key(tenantID, userID), toMembers(flags)...)
		pipe.Incr(ctx, s.versionKey(tenantID, userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Revoke removes flags from the caller's set. Revoking a flag the caller does
// not hold is not an error.
func (s *FlagStore) Revoke(ctx context.Context, tenantID, userID string, flags ...string) error {
	if len(flags) == 0 {
		return nil
	}
	if err := s.check(userID, flags); err != nil {
		return err
	}
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, s.key(tenantID, userID), toMembers(flags)...)
		pipe.Incr(ctx, s.versionKey(tenantID, userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Replace atomically sets the caller's flags to exactly flags.
func (s *FlagStore) Replace(ctx context.Context, tenantID, userID string, flags ...string) error {
	if err := s.check(userID, flags); err != nil {
		return err
	}
	key := s.key(tenantID, userID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(flags) > 0 {
			pipe.SAdd(ctx, key, toMembers(flags)...)
		}
		pipe.Incr(ctx, s.versionKey(tenantID, userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Clear removes every flag held by the caller.
func (s *FlagStore) Clear(ctx context.Context, tenantID, userID string) error {
	return s.Replace(ctx, tenantID, userID)
}

// Version returns the caller's write counter. It is zero until the first
// write.
func (s *FlagStore) Version(ctx context.Context, tenantID, userID string) (uint64, error) {
	if userID == "" {
		return 0, ErrEmptyUserID
	}
	v, err := s.redis.Get(ctx, s.versionKey(tenantID, userID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, nil
}

// Table returns the table writes are checked against, or nil.
func (s *FlagStore) Table() *bitfield.Table {
	return s.table
}

func (s *FlagStore) check(userID string, flags []string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if s.table == nil {
		return nil
	}
	return s.table.Validate(flags...)
}

func toMembers(flags []string) []any {
	out := make([]any, len(flags))
	for i, f := range flags {
		out[i] = f
	}
	return out
}

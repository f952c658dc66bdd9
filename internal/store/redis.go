// internal/store/redis.go
//
// Redis-backed Store. Each session is a hash at rps:session:<id> whose TTL
// is refreshed on every save, so idle sessions expire without a sweeper.

package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/robalobadob/rockpaperscissors/internal/game"
)

const redisKeyPrefix = "rps:session:"

// RedisStore keeps sessions in Redis hashes.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl disables expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// DialRedis connects and pings with a short timeout.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (s *RedisStore) Save(ctx context.Context, r *Record) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	key := redisKey(r.ID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"mode", string(r.Mode),
			"date", r.Date,
			"offset", strconv.FormatUint(r.Offset, 10),
			"wins", r.State.Wins,
			"losses", r.State.Losses,
			"draws", r.State.Draws,
			"awaiting_ack", strconv.FormatBool(r.State.AwaitingAck),
			"created_at", r.CreatedAt.UnixNano(),
			"updated_at", r.UpdatedAt.UnixNano(),
		)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	h, err := s.rdb.HGetAll(ctx, redisKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	r, err := recordFromHash(id, h)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return r, nil
}

func recordFromHash(id string, h map[string]string) (*Record, error) {
	var (
		st  game.State
		err error
	)
	ints := []struct {
		field string
		dst   *int
	}{
		{"wins", &st.Wins},
		{"losses", &st.Losses},
		{"draws", &st.Draws},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.Atoi(h[f.field]); err != nil {
			return nil, fmt.Errorf("%s: %w", f.field, err)
		}
	}
	if st.AwaitingAck, err = strconv.ParseBool(h["awaiting_ack"]); err != nil {
		return nil, fmt.Errorf("awaiting_ack: %w", err)
	}
	offset, err := strconv.ParseUint(h["offset"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}
	created, err := strconv.ParseInt(h["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	updated, err := strconv.ParseInt(h["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return &Record{
		ID:        id,
		Mode:      Mode(h["mode"]),
		Date:      h["date"],
		Offset:    offset,
		State:     st,
		CreatedAt: time.Unix(0, created).UTC(),
		UpdatedAt: time.Unix(0, updated).UTC(),
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

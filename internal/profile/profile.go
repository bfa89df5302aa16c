// Package profile resolves public user profiles for message broadcasts,
// cache-aside over redis when it is configured.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/himalthapa1/EduConnect/internal/chat"
	"github.com/himalthapa1/EduConnect/internal/log"
)

const keyPrefix = "profile:"

// lookupTimeout bounds a shared lookup. It runs detached from any single
// caller, so one caller giving up does not fail the others.
const lookupTimeout = 5 * time.Second

// Source is the authoritative profile lookup.
type Source interface {
	Profile(ctx context.Context, userID uint) (chat.Profile, error)
}

// Cache implements Source. A nil redis client disables the shared cache;
// concurrent lookups of one user still collapse into a single source call.
type Cache struct {
	src   Source
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
	log   zerolog.Logger
}

func New(src Source, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{src: src, rdb: rdb, ttl: ttl, log: log.Module("profile")}
}

type record struct {
	ID       uint   `json:"_id"`
	Username string `json:"username"`
}

func (c *Cache) Profile(ctx context.Context, userID uint) (chat.Profile, error) {
	key := keyPrefix + strconv.FormatUint(uint64(userID), 10)
	ch := c.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		if p, ok := c.get(ctx, key); ok {
			return p, nil
		}
		p, err := c.src.Profile(ctx, userID)
		if err != nil {
			return chat.Profile{}, err
		}
		c.set(ctx, key, p)
		return p, nil
	})
	select {
	case <-ctx.Done():
		return chat.Profile{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return chat.Profile{}, res.Err
		}
		return res.Val.(chat.Profile), nil
	}
}

// Profiles resolves a batch of ids. Users that no longer exist are left out
// of the result rather than failing the batch.
func (c *Cache) Profiles(ctx context.Context, ids []uint) (map[uint]chat.Profile, error) {
	out := make(map[uint]chat.Profile, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		p, err := c.Profile(ctx, id)
		if errors.Is(err, chat.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

// Invalidate drops the cached entry of userID.
func (c *Cache) Invalidate(ctx context.Context, userID uint) error {
	if c.rdb == nil {
		return nil
	}
	key := keyPrefix + strconv.FormatUint(uint64(userID), 10)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context, key string) (chat.Profile, bool) {
	if c.rdb == nil {
		return chat.Profile{}, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("profile cache get failed, falling back to source")
		}
		return chat.Profile{}, false
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("profile cache entry corrupt")
		return chat.Profile{}, false
	}
	return chat.Profile{ID: r.ID, Username: r.Username}, true
}

func (c *Cache) set(ctx context.Context, key string, p chat.Profile) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(record{ID: p.ID, Username: p.Username})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("profile cache set failed")
	}
}

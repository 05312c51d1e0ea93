// redis - драйвер credentials.Store поверх Redis.
//
// Пара сайта хранится одним hash: ключ "<prefix><site>", поля access_token и refresh_token.
// Set выполняется в MULTI/EXEC, Clear - одним DEL, поэтому обе записи меняются вместе.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// DefaultPrefix используется, если prefix пустой.
const DefaultPrefix = "planner:creds:"

// Client - подключение к Redis, общее для нескольких сайтов.
type Client struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// ttl <= 0 - записи без срока жизни.
func New(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*Client, error) {
	const op = "credentials.redis.New"

	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := goredis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return NewFromClient(rdb, prefix, ttl), nil
}

// NewFromClient оборачивает готовый клиент go-redis.
func NewFromClient(rdb goredis.UniversalClient, prefix string, ttl time.Duration) *Client {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Client{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Site возвращает хранилище области site.
func (c *Client) Site(site string) *Store {
	return &Store{c: c, site: site}
}

func (c *Client) Close() error { return c.rdb.Close() }

// Store - хранилище одного сайта.
type Store struct {
	c    *Client
	site string
}

func (s *Store) key() string { return s.c.prefix + s.site }

func (s *Store) Get(ctx context.Context) (models.TokenPair, bool, error) {
	m, err := s.c.rdb.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return models.TokenPair{}, false, credentials.Wrap("get", s.site, err)
	}

	pair, ok := credentials.PairFromEntries(m)
	return pair, ok, nil
}

func (s *Store) Set(ctx context.Context, pair models.TokenPair) error {
	if err := credentials.Validate(s.site, pair); err != nil {
		return err
	}

	pipe := s.c.rdb.TxPipeline()
	pipe.Del(ctx, s.key())
	pipe.HSet(ctx, s.key(), map[string]string{
		models.EntryAccessToken:  pair.AccessToken,
		models.EntryRefreshToken: pair.RefreshToken,
	})
	if s.c.ttl > 0 {
		pipe.Expire(ctx, s.key(), s.c.ttl)
	}

	_, err := pipe.Exec(ctx)
	return credentials.Wrap("set", s.site, err)
}

func (s *Store) Clear(ctx context.Context) error {
	return credentials.Wrap("clear", s.site, s.c.rdb.Del(ctx, s.key()).Err())
}

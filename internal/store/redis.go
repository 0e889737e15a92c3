package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fuomag9/colive-web/internal/models"
)

const defaultRedisPrefix = "colive"

// Redis keeps records as JSON values whose TTL matches their expiry
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// OpenRedis connects to the server at rawURL and pings it
func OpenRedis(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedis(client, ""), nil
}

// NewRedis wraps an existing client. An empty prefix selects the default.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{redis: client, prefix: prefix, now: time.Now}
}

func (s *Redis) sessionKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *Redis) ticketKey(id string) string {
	return s.prefix + ":ticket:" + id
}

func (s *Redis) SaveSession(ctx context.Context, session *models.FlowSession) error {
	return s.set(ctx, s.sessionKey(session.ID), session, session.ExpiresAt)
}

func (s *Redis) GetSession(ctx context.Context, id string) (*models.FlowSession, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get session", err)
	}

	var session models.FlowSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode flow session: %w", err)
	}
	if session.IsExpired(s.now()) {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *Redis) DeleteSession(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.sessionKey(id)).Err(); err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

func (s *Redis) SaveTicket(ctx context.Context, ticket *models.HandoffTicket) error {
	return s.set(ctx, s.ticketKey(ticket.ID), ticket, ticket.ExpiresAt)
}

func (s *Redis) ConsumeTicket(ctx context.Context, id string) (*models.HandoffTicket, error) {
	data, err := s.redis.GetDel(ctx, s.ticketKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable("consume ticket", err)
	}

	var ticket models.HandoffTicket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, fmt.Errorf("decode handoff ticket: %w", err)
	}
	if ticket.IsExpired(s.now()) {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

// PurgeExpired is a no-op: redis evicts keys on their own TTL
func (s *Redis) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *Redis) Close() error {
	return s.redis.Close()
}

func (s *Redis) set(ctx context.Context, key string, value any, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("record %s already expired", key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return unavailable("set "+key, err)
	}
	return nil
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/models"
)

var _ core.Notifier = (*RedisRelay)(nil)

// RedisRelay fans events out to every instance through Redis pub/sub; each instance
// delivers to its own hub.
type RedisRelay struct {
	rdb     *goredis.Client
	channel string
	hub     *Hub
	log     *logger.Logger
}

type relayEnvelope struct {
	UserID string          `json:"user_id"`
	Type   string          `json:"type"`
	Event  json.RawMessage `json:"event"`
}

// NewRedisRelay connects to redisURL (redis://...) and verifies it with a ping.
func NewRedisRelay(ctx context.Context, redisURL, channel string, hub *Hub, log *logger.Logger) (*RedisRelay, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisRelayFromClient(rdb, channel, hub, log), nil
}

func NewRedisRelayFromClient(rdb *goredis.Client, channel string, hub *Hub, log *logger.Logger) *RedisRelay {
	if channel == "" {
		channel = "realtime"
	}
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		log:     logger.OrNop(log).With("component", "redis_relay", "channel", channel),
	}
}

// Publish sends the event through Redis. If Redis is unreachable the event is
// delivered to local connections only.
func (r *RedisRelay) Publish(ctx context.Context, userID string, event models.Event) {
	raw, err := json.Marshal(event)
	if err != nil {
		r.log.Error("event not encodable", "type", event.Type, "error", err)
		return
	}
	env, err := json.Marshal(relayEnvelope{UserID: userID, Type: string(event.Type), Event: raw})
	if err != nil {
		r.log.Error("envelope not encodable", "error", err)
		return
	}
	if err := r.rdb.Publish(ctx, r.channel, env).Err(); err != nil {
		r.log.Warn("redis publish failed, delivering locally", "error", err)
		r.hub.deliver(userID, string(event.Type), raw)
	}
}

// Start subscribes and forwards relayed events to the local hub until ctx is done.
// It returns once the subscription is confirmed.
func (r *RedisRelay) Start(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var env relayEnvelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					r.log.Warn("bad relay payload", "error", err)
					continue
				}
				r.hub.deliver(env.UserID, env.Type, env.Event)
			}
		}
	}()
	return nil
}

func (r *RedisRelay) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

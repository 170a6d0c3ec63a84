package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisNotifier publishes events to redis pub/sub, one channel per room, so
// every gateway instance can fan out to its own connected clients.
type RedisNotifier struct {
	rdb    *goredis.Client
	prefix string
	log    *zap.SugaredLogger
}

func NewRedisNotifier(addr, prefix string, log *zap.SugaredLogger) (*RedisNotifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisNotifier{rdb: rdb, prefix: prefix, log: log}, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	for _, room := range ev.Rooms() {
		if err := n.rdb.Publish(ctx, n.prefix+room, raw).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", room, err)
		}
	}
	return nil
}

// Listen forwards events from a room to onEvent until ctx is done. Only
// tooling and tests consume this; the gateway itself is publish-only.
func (n *RedisNotifier) Listen(ctx context.Context, room string, onEvent func(Event)) error {
	sub := n.rdb.Subscribe(ctx, n.prefix+room)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					n.log.Warnw("bad realtime payload", "room", room, "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}

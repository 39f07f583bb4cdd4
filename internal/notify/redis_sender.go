package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

type redisSender struct {
	client  *redis.Client
	channel string
	breaker *gobreaker.CircuitBreaker[int64]
}

// NewRedisSender publishes notifications to a Redis channel for the
// delivery workers to pick up. Publishes go through a circuit breaker so
// a Redis outage degrades to dropped notifications instead of piling up
// timeouts on every booking.
func NewRedisSender(client *redis.Client, channel string) Sender {
	breaker := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:    "notify-publish",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &redisSender{
		client:  client,
		channel: channel,
		breaker: breaker,
	}
}

func (s *redisSender) Send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = s.breaker.Execute(func() (int64, error) {
		return s.client.Publish(ctx, s.channel, data).Result()
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}

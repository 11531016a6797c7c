package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/redis"
)

// RedisChangeFeed implements the ChangeFeed interface using Redis Pub/Sub.
// One Redis subscription is held per channel and shared by local subscribers.
type RedisChangeFeed struct {
	client        *redisclient.Client
	hub           *hub
	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub
	ctx           context.Context
	cancel        context.CancelFunc
}

var _ providers.ChangeFeed = (*RedisChangeFeed)(nil)

// NewRedisChangeFeed creates a new Redis-based change feed
func NewRedisChangeFeed(client *redisclient.Client) *RedisChangeFeed {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisChangeFeed{
		client:        client,
		hub:           newHub(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event to all subscribers
func (f *RedisChangeFeed) Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := f.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("table", event.Table).Msg("Published change event")
	return nil
}

// Subscribe subscribes to events on a channel
func (f *RedisChangeFeed) Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	if err := f.ctx.Err(); err != nil {
		return nil, ErrFeedClosed
	}

	f.mu.Lock()
	ch, _ := f.hub.add(channel)
	if _, exists := f.subscriptions[channel]; !exists {
		pubsub := f.client.Client().Subscribe(f.ctx, channel)
		f.subscriptions[channel] = pubsub
		go f.receiveMessages(channel, pubsub)
	}
	f.mu.Unlock()

	log.Debug().Str("channel", channel).Int("subscribers", f.hub.count(channel)).Msg("Subscribed to change feed")

	go func() {
		<-ctx.Done()
		f.removeSubscriber(channel, ch)
	}()

	return ch, nil
}

func (f *RedisChangeFeed) receiveMessages(channel string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-f.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Str("channel", channel).Msg("Failed to unmarshal change event")
				continue
			}
			f.hub.broadcast(channel, &event)
		}
	}
}

func (f *RedisChangeFeed) removeSubscriber(channel string, ch chan *entities.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hub.remove(channel, ch) {
		return
	}
	f.closeSubscription(channel)
}

// closeSubscription must be called with f.mu held
func (f *RedisChangeFeed) closeSubscription(channel string) error {
	pubsub, ok := f.subscriptions[channel]
	if !ok {
		return nil
	}
	delete(f.subscriptions, channel)
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	log.Debug().Str("channel", channel).Msg("Closed change feed subscription")
	return nil
}

// Unsubscribe unsubscribes every local subscriber from a channel
func (f *RedisChangeFeed) Unsubscribe(ctx context.Context, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hub.drop(channel)
	return f.closeSubscription(channel)
}

// Close closes the feed and all subscriptions
func (f *RedisChangeFeed) Close() error {
	f.cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for channel := range f.subscriptions {
		f.hub.drop(channel)
		if err := f.closeSubscription(channel); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing change feed: %v", errs)
	}

	log.Info().Msg("Change feed closed")
	return nil
}

// SubscriberCount returns the number of live local subscribers on channel
func (f *RedisChangeFeed) SubscriberCount(channel string) int {
	return f.hub.count(channel)
}

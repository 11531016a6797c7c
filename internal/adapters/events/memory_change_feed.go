package events

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
)

// ErrFeedClosed is returned by a feed after Close
var ErrFeedClosed = errors.New("change feed closed")

// MemoryChangeFeed delivers events inside one process. It backs the memory
// store and tests.
type MemoryChangeFeed struct {
	hub    *hub
	closed atomic.Bool
}

var _ providers.ChangeFeed = (*MemoryChangeFeed)(nil)

// NewMemoryChangeFeed creates an in-process change feed
func NewMemoryChangeFeed() *MemoryChangeFeed {
	return &MemoryChangeFeed{hub: newHub()}
}

func (f *MemoryChangeFeed) Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error {
	if f.closed.Load() {
		return ErrFeedClosed
	}
	f.hub.broadcast(channel, event)
	return nil
}

func (f *MemoryChangeFeed) Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	if f.closed.Load() {
		return nil, ErrFeedClosed
	}
	ch, _ := f.hub.add(channel)

	go func() {
		<-ctx.Done()
		f.hub.remove(channel, ch)
	}()

	return ch, nil
}

func (f *MemoryChangeFeed) Unsubscribe(ctx context.Context, channel string) error {
	f.hub.drop(channel)
	return nil
}

func (f *MemoryChangeFeed) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, channel := range f.hub.channels() {
		f.hub.drop(channel)
	}
	return nil
}

// SubscriberCount returns the number of live subscribers on channel
func (f *MemoryChangeFeed) SubscriberCount(channel string) int {
	return f.hub.count(channel)
}

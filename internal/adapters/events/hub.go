package events

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

const subscriberBuffer = 100

// hub keeps the local subscribers of each channel
type hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.ChangeEvent]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[string]map[chan *entities.ChangeEvent]struct{})}
}

// add registers a subscriber and reports whether it is the channel's first
func (h *hub) add(channel string) (chan *entities.ChangeEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	first := false
	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(map[chan *entities.ChangeEvent]struct{})
		first = true
	}
	ch := make(chan *entities.ChangeEvent, subscriberBuffer)
	h.subscribers[channel][ch] = struct{}{}
	return ch, first
}

// remove drops one subscriber and reports whether the channel is now empty
func (h *hub) remove(channel string, ch chan *entities.ChangeEvent) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.subscribers[channel]
	if !ok {
		return false
	}
	if _, ok := subscribers[ch]; !ok {
		return false
	}
	delete(subscribers, ch)
	close(ch)

	if len(subscribers) == 0 {
		delete(h.subscribers, channel)
		return true
	}
	return false
}

// drop closes every subscriber of channel
func (h *hub) drop(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[channel] {
		close(ch)
	}
	delete(h.subscribers, channel)
}

func (h *hub) channels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.subscribers))
	for channel := range h.subscribers {
		out = append(out, channel)
	}
	return out
}

func (h *hub) broadcast(channel string, event *entities.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[channel] {
		select {
		case ch <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
		}
	}
}

func (h *hub) count(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}

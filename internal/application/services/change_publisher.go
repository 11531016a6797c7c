package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
)

// publishChange pushes one row change to every channel. Delivery is best
// effort: subscribers re-read state, so a lost event only delays a view.
func publishChange(ctx context.Context, feed providers.ChangeFeed, table string, eventType entities.ChangeEventType, row interface{}, channels ...string) {
	if feed == nil {
		return
	}

	event, err := entities.NewChangeEvent(table, eventType, row)
	if err != nil {
		log.Error().Err(err).Str("table", table).Msg("Failed to build change event")
		return
	}

	for _, channel := range channels {
		if err := feed.Publish(ctx, channel, event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Str("event_id", event.ID).Msg("Failed to publish change event")
		}
	}
}

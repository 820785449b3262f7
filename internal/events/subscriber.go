package events

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/natsjetstream"
)

// Invalidator is the slice of the cache a subscriber needs.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// CacheSubscriber drops the cached public tournament list whenever any
// tournament event lands, so instances other than the one that wrote the
// change converge too.
type CacheSubscriber struct {
	subscriber *natsjetstream.Subscriber
	cache      Invalidator
	logger     *logger.Logger
}

func NewCacheSubscriber(client *natsjetstream.Client, cache Invalidator, log *logger.Logger) *CacheSubscriber {
	return &CacheSubscriber{
		subscriber: natsjetstream.NewSubscriber(client, log),
		cache:      cache,
		logger:     log.With("component", "cache-subscriber"),
	}
}

func (s *CacheSubscriber) Start(ctx context.Context) error {
	cfg := natsjetstream.ConsumerConfig{
		StreamName:    TournamentEventsStream,
		ConsumerName:  "tournament-cache-invalidator",
		Durable:       "tournament-cache-invalidator",
		FilterSubject: TournamentEventsWildcard,
	}

	return s.subscriber.Subscribe(ctx, cfg, func(ctx context.Context, msg jetstream.Msg) error {
		s.cache.Invalidate(ctx)
		s.logger.Debug("public list invalidated", "subject", msg.Subject())
		return nil
	})
}

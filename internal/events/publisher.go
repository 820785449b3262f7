package events

import (
	"context"
	"time"

	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/models"
	"github.com/proarena/arena/internal/natsjetstream"
)

// EventPublisher emits domain events. Publishing is best-effort from the
// caller's point of view: failures are logged and returned, but callers
// treat them as non-fatal because the database write already committed.
type EventPublisher struct {
	publisher *natsjetstream.Publisher
	logger    *logger.Logger
}

func NewEventPublisher(client *natsjetstream.Client, logger *logger.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: natsjetstream.NewPublisher(client),
		logger:    logger,
	}
}

func (p *EventPublisher) PublishStatusChanged(ctx context.Context, tournamentId string, from, to models.TournamentStatus, actor, reason string) error {
	event := &StatusChanged{
		TournamentId:   tournamentId,
		PreviousStatus: from,
		NewStatus:      to,
		Actor:          actor,
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	}

	if err := p.publisher.PublishJSON(ctx, TournamentStatusChanged, event); err != nil {
		p.logger.Error("failed to publish status changed event", "tournament_id", tournamentId, "error", err)
		return err
	}

	return nil
}

func (p *EventPublisher) PublishJoined(ctx context.Context, tournamentId, userId, username string, entryFee int64) error {
	event := &Joined{
		TournamentId: tournamentId,
		UserId:       userId,
		Username:     username,
		EntryFee:     entryFee,
		OccurredAt:   time.Now().UTC(),
	}

	if err := p.publisher.PublishJSON(ctx, TournamentJoined, event); err != nil {
		p.logger.Error("failed to publish joined event", "tournament_id", tournamentId, "error", err)
		return err
	}

	return nil
}

func (p *EventPublisher) PublishTournamentChanged(ctx context.Context, tournamentId, change string) error {
	event := &TournamentChangedEvent{
		TournamentId: tournamentId,
		Change:       change,
		OccurredAt:   time.Now().UTC(),
	}

	if err := p.publisher.PublishJSON(ctx, TournamentChanged, event); err != nil {
		p.logger.Error("failed to publish tournament changed event", "tournament_id", tournamentId, "error", err)
		return err
	}

	return nil
}

func (p *EventPublisher) PublishWalletLedger(ctx context.Context, subject string, entry *WalletLedger) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	if err := p.publisher.PublishJSON(ctx, subject, entry); err != nil {
		p.logger.Error("failed to publish wallet ledger event", "user_id", entry.UserId, "error", err)
		return err
	}

	return nil
}

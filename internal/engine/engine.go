package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/models"
)

// TournamentStore is the slice of the tournament repository the engine
// needs. Transitions are conditional on the expected current status, so
// any number of engine instances can run against the same table.
type TournamentStore interface {
	ListStartedBefore(ctx context.Context, status models.TournamentStatus, cutoff time.Time) ([]models.Tournament, error)
	ListByStatus(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error)
	TransitionStatus(ctx context.Context, tournamentId string, from, to models.TournamentStatus, at time.Time) (bool, error)
	StampStatusUpdatedAt(ctx context.Context, tournamentId string, at time.Time) (bool, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, tournamentId string, from, to models.TournamentStatus, actor, reason string) error
}

type Config struct {
	// GraceBuffer delays the upcoming->live flip to absorb clock skew
	// between writers.
	GraceBuffer time.Duration
	// LiveWindow is how long a tournament stays live before it
	// auto-completes.
	LiveWindow time.Duration
}

type Result struct {
	ToLive      int
	ToCompleted int
}

// Engine keeps tournament status consistent with wall-clock time.
type Engine struct {
	store     TournamentStore
	audit     AuditStore
	publisher Publisher
	cfg       Config
	logger    *logger.Logger

	now func() time.Time
}

func New(store TournamentStore, audit AuditStore, publisher Publisher, cfg Config, log *logger.Logger) *Engine {
	if cfg.GraceBuffer == 0 {
		cfg.GraceBuffer = 30 * time.Second
	}
	if cfg.LiveWindow == 0 {
		cfg.LiveWindow = 10 * time.Minute
	}

	return &Engine{
		store:     store,
		audit:     audit,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.With("component", "status-engine"),
		now:       time.Now,
	}
}

// Reconcile runs one pass over the tournament collection and advances
// whatever is due. A failure on one tournament never aborts the rest.
func (e *Engine) Reconcile(ctx context.Context) (Result, error) {
	var result Result
	now := e.now().UTC()

	e.advanceToLive(ctx, now, &result)
	e.advanceToCompleted(ctx, now, &result)

	if result.ToLive > 0 || result.ToCompleted > 0 {
		e.logger.Info("reconciliation pass advanced tournaments",
			"to_live", result.ToLive,
			"to_completed", result.ToCompleted,
		)
	}

	return result, nil
}

func (e *Engine) advanceToLive(ctx context.Context, now time.Time, result *Result) {
	cutoff := now.Add(-e.cfg.GraceBuffer)

	due, err := e.store.ListStartedBefore(ctx, models.StatusUpcoming, cutoff)
	if err != nil {
		e.logger.Error("failed to list upcoming tournaments", "error", err)
		return
	}

	for _, t := range due {
		ok, err := e.store.TransitionStatus(ctx, t.TournamentId, models.StatusUpcoming, models.StatusLive, now)
		if err != nil {
			e.logger.Error("failed to advance tournament to live", "tournament_id", t.TournamentId, "error", err)
			continue
		}
		if !ok {
			// Another reconciler got here first.
			continue
		}

		result.ToLive++
		if e.publisher != nil {
			_ = e.publisher.PublishStatusChanged(ctx, t.TournamentId,
				models.StatusUpcoming, models.StatusLive, models.ActorSystem, "scheduled start time reached")
		}
	}
}

func (e *Engine) advanceToCompleted(ctx context.Context, now time.Time, result *Result) {
	live, err := e.store.ListByStatus(ctx, models.StatusLive)
	if err != nil {
		e.logger.Error("failed to list live tournaments", "error", err)
		return
	}

	for _, t := range live {
		if t.StatusUpdatedAt == nil {
			// Legacy record with no transition timestamp: stamp it now and
			// defer the completion check to the next pass.
			if _, err := e.store.StampStatusUpdatedAt(ctx, t.TournamentId, now); err != nil {
				e.logger.Error("failed to stamp live tournament", "tournament_id", t.TournamentId, "error", err)
			}
			continue
		}

		elapsed := now.Sub(*t.StatusUpdatedAt)
		if elapsed <= e.cfg.LiveWindow {
			continue
		}

		ok, err := e.store.TransitionStatus(ctx, t.TournamentId, models.StatusLive, models.StatusCompleted, now)
		if err != nil {
			e.logger.Error("failed to complete tournament", "tournament_id", t.TournamentId, "error", err)
			continue
		}
		if !ok {
			continue
		}

		result.ToCompleted++
		reason := fmt.Sprintf("live window of %s elapsed", e.cfg.LiveWindow)

		if e.audit != nil {
			entry := &models.AuditEntry{
				AuditId:        uuid.New().String(),
				TournamentId:   t.TournamentId,
				PreviousStatus: models.StatusLive,
				NewStatus:      models.StatusCompleted,
				Actor:          models.ActorSystem,
				Reason:         reason,
				OccurredAt:     now,
			}
			if err := e.audit.Append(ctx, entry); err != nil {
				e.logger.Error("failed to append audit entry", "tournament_id", t.TournamentId, "error", err)
			}
		}

		if e.publisher != nil {
			_ = e.publisher.PublishStatusChanged(ctx, t.TournamentId,
				models.StatusLive, models.StatusCompleted, models.ActorSystem, reason)
		}
	}
}

// BackfillMissingTimestamps stamps status_updated_at on live tournaments
// that predate the field. The underlying write is conditional on the
// attribute being absent, so repeated runs are no-ops.
func (e *Engine) BackfillMissingTimestamps(ctx context.Context) (int, error) {
	live, err := e.store.ListByStatus(ctx, models.StatusLive)
	if err != nil {
		return 0, err
	}

	now := e.now().UTC()
	stamped := 0
	for _, t := range live {
		if t.StatusUpdatedAt != nil {
			continue
		}

		ok, err := e.store.StampStatusUpdatedAt(ctx, t.TournamentId, now)
		if err != nil {
			e.logger.Error("failed to backfill timestamp", "tournament_id", t.TournamentId, "error", err)
			continue
		}
		if ok {
			stamped++
		}
	}

	return stamped, nil
}

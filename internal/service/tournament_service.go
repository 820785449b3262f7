package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/events"
	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/models"
	"github.com/proarena/arena/internal/repository"
	"github.com/proarena/arena/internal/sanitize"
)

// TournamentCache caches the public tournament list. Implementations may
// be absent (nil) in tests; the service treats a miss and no cache the
// same way.
type TournamentCache interface {
	GetPublicList(ctx context.Context) ([]models.Tournament, bool)
	SetPublicList(ctx context.Context, tournaments []models.Tournament)
	Invalidate(ctx context.Context)
}

type CreateTournamentInput struct {
	Name            string
	GameType        models.GameType
	StartsAt        time.Time
	EntryFee        int64
	PrizePool       int64
	PerKillBonus    int64
	MaxParticipants int
	MatchDetails    string
	Rules           string
}

type TournamentService interface {
	Create(ctx context.Context, adminId string, input CreateTournamentInput) (*models.Tournament, error)
	Submit(ctx context.Context, userId string, input CreateTournamentInput) (*models.Tournament, error)
	Approve(ctx context.Context, adminId, tournamentId string) error
	Reject(ctx context.Context, adminId, tournamentId, reason string) error
	Update(ctx context.Context, tournamentId string, input CreateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, tournamentId string) error
	PublishResult(ctx context.Context, adminId, tournamentId, resultImageURL, resultText string) error
	GetById(ctx context.Context, tournamentId string) (*models.Tournament, error)
	ListPublic(ctx context.Context) ([]models.Tournament, error)
	ListByStatus(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error)
	Join(ctx context.Context, userId, email, tournamentId, desiredUsername string) error
	Participants(ctx context.Context, tournamentId string) ([]models.Participant, error)
	RemoveParticipant(ctx context.Context, tournamentId, userId string) error
	AuditLog(ctx context.Context, tournamentId string) ([]models.AuditEntry, error)
}

type tournamentService struct {
	tournamentRepo repository.TournamentRepository
	userRepo       repository.UserRepository
	ledgerRepo     repository.LedgerRepository
	auditRepo      repository.AuditRepository
	publisher      *events.EventPublisher
	cache          TournamentCache
	logger         *logger.Logger
}

func NewTournamentService(
	tournamentRepo repository.TournamentRepository,
	userRepo repository.UserRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	publisher *events.EventPublisher,
	cache TournamentCache,
	logger *logger.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		auditRepo:      auditRepo,
		publisher:      publisher,
		cache:          cache,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, adminId string, input CreateTournamentInput) (*models.Tournament, error) {
	return s.create(ctx, adminId, input, models.StatusUpcoming, false)
}

// Submit creates a user-proposed tournament. It stays pending and
// invisible to other users until an admin approves it.
func (s *tournamentService) Submit(ctx context.Context, userId string, input CreateTournamentInput) (*models.Tournament, error) {
	return s.create(ctx, userId, input, models.StatusPending, true)
}

func (s *tournamentService) create(ctx context.Context, creatorId string, input CreateTournamentInput, status models.TournamentStatus, userSubmitted bool) (*models.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		TournamentId:    uuid.New().String(),
		Name:            sanitize.Text(input.Name),
		GameType:        input.GameType,
		Status:          status,
		StartsAt:        input.StartsAt.UTC(),
		EntryFee:        input.EntryFee,
		PrizePool:       input.PrizePool,
		PerKillBonus:    input.PerKillBonus,
		MaxParticipants: input.MaxParticipants,
		MatchDetails:    sanitize.Text(input.MatchDetails),
		Rules:           sanitize.Text(input.Rules),
		CreatedBy:       creatorId,
		UserSubmitted:   userSubmitted,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, tournament.TournamentId, "created")
	return tournament, nil
}

func validateTournamentInput(input CreateTournamentInput) error {
	switch {
	case sanitize.Text(input.Name) == "":
		return apperrors.New(apperrors.CodeValidation, "tournament name is required")
	case !input.GameType.Valid():
		return apperrors.New(apperrors.CodeValidation, "unknown game type")
	case input.StartsAt.IsZero():
		return apperrors.New(apperrors.CodeValidation, "start time is required")
	case input.EntryFee < 0:
		return apperrors.New(apperrors.CodeValidation, "entry fee cannot be negative")
	case input.PrizePool < 0:
		return apperrors.New(apperrors.CodeValidation, "prize pool cannot be negative")
	case input.PerKillBonus < 0:
		return apperrors.New(apperrors.CodeValidation, "per-kill bonus cannot be negative")
	case input.MaxParticipants <= 0:
		return apperrors.New(apperrors.CodeValidation, "max participants must be positive")
	}
	return nil
}

// Approve moves a user-submitted tournament from pending to upcoming.
func (s *tournamentService) Approve(ctx context.Context, adminId, tournamentId string) error {
	return s.adminTransition(ctx, adminId, tournamentId, models.StatusPending, models.StatusUpcoming, "approved by admin")
}

// Reject moves a pending submission to rejected. The status flip and the
// reason land in one conditional write, so a rejected tournament never
// exists without its reason.
func (s *tournamentService) Reject(ctx context.Context, adminId, tournamentId, reason string) error {
	reason = sanitize.Text(reason)
	if reason == "" {
		return apperrors.New(apperrors.CodeValidation, "rejection reason is required")
	}

	now := time.Now().UTC()
	ok, err := s.tournamentRepo.Reject(ctx, tournamentId, reason, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.New(apperrors.CodePrecondition, "tournament is not awaiting approval")
	}

	s.recordTransition(ctx, adminId, tournamentId, models.StatusPending, models.StatusRejected, reason, now)
	return nil
}

func (s *tournamentService) adminTransition(ctx context.Context, adminId, tournamentId string, from, to models.TournamentStatus, reason string) error {
	if !from.CanTransitionTo(to) {
		return apperrors.New(apperrors.CodePrecondition, "invalid status transition")
	}

	now := time.Now().UTC()
	ok, err := s.tournamentRepo.TransitionStatus(ctx, tournamentId, from, to, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.New(apperrors.CodePrecondition, "tournament is not awaiting approval")
	}

	s.recordTransition(ctx, adminId, tournamentId, from, to, reason, now)
	return nil
}

func (s *tournamentService) recordTransition(ctx context.Context, adminId, tournamentId string, from, to models.TournamentStatus, reason string, at time.Time) {
	entry := &models.AuditEntry{
		AuditId:        uuid.New().String(),
		TournamentId:   tournamentId,
		PreviousStatus: from,
		NewStatus:      to,
		Actor:          adminId,
		Reason:         reason,
		OccurredAt:     at,
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append audit entry", "tournament_id", tournamentId, "error", err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishStatusChanged(ctx, tournamentId, from, to, adminId, reason)
	}

	s.invalidateCache(ctx, tournamentId, "status")
}

func (s *tournamentService) Update(ctx context.Context, tournamentId string, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetById(ctx, tournamentId)
	if err != nil {
		return nil, err
	}

	tournament.Name = sanitize.Text(input.Name)
	tournament.GameType = input.GameType
	tournament.StartsAt = input.StartsAt.UTC()
	tournament.EntryFee = input.EntryFee
	tournament.PrizePool = input.PrizePool
	tournament.PerKillBonus = input.PerKillBonus
	tournament.MaxParticipants = input.MaxParticipants
	tournament.MatchDetails = sanitize.Text(input.MatchDetails)
	tournament.Rules = sanitize.Text(input.Rules)

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, tournamentId, "updated")
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, tournamentId string) error {
	if err := s.tournamentRepo.Delete(ctx, tournamentId); err != nil {
		return err
	}
	s.invalidateCache(ctx, tournamentId, "deleted")
	return nil
}

func (s *tournamentService) PublishResult(ctx context.Context, adminId, tournamentId, resultImageURL, resultText string) error {
	if err := s.tournamentRepo.SetResult(ctx, tournamentId, resultImageURL, sanitize.Text(resultText)); err != nil {
		return err
	}

	s.logger.Info("tournament result published", "tournament_id", tournamentId, "admin_id", adminId)
	s.invalidateCache(ctx, tournamentId, "result")
	return nil
}

func (s *tournamentService) GetById(ctx context.Context, tournamentId string) (*models.Tournament, error) {
	return s.tournamentRepo.GetById(ctx, tournamentId)
}

// ListPublic returns the user-facing list: everything except pending
// submissions and rejected tournaments, soonest start first.
func (s *tournamentService) ListPublic(ctx context.Context) ([]models.Tournament, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetPublicList(ctx); ok {
			return cached, nil
		}
	}

	statuses := []models.TournamentStatus{models.StatusUpcoming, models.StatusLive, models.StatusCompleted}
	tournaments := make([]models.Tournament, 0)
	for _, status := range statuses {
		batch, err := s.tournamentRepo.ListByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, batch...)
	}

	sort.Slice(tournaments, func(i, j int) bool {
		return tournaments[i].StartsAt.Before(tournaments[j].StartsAt)
	})

	if s.cache != nil {
		s.cache.SetPublicList(ctx, tournaments)
	}

	return tournaments, nil
}

func (s *tournamentService) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error) {
	if !status.Valid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown tournament status")
	}
	return s.tournamentRepo.ListByStatus(ctx, status)
}

// Join checks every registration precondition, then performs the debit
// and the participant append as one transaction. The prechecks give the
// user a specific reason; the transaction re-checks everything atomically.
func (s *tournamentService) Join(ctx context.Context, userId, email, tournamentId, desiredUsername string) error {
	username, ok := sanitize.Username(desiredUsername)
	if !ok {
		return apperrors.New(apperrors.CodeValidation, "username must be between 3 and 20 characters")
	}

	tournament, err := s.tournamentRepo.GetById(ctx, tournamentId)
	if err != nil {
		return err
	}

	if tournament.Status != models.StatusUpcoming {
		return apperrors.New(apperrors.CodeTournamentNotOpen, "tournament is not open for registration")
	}
	if tournament.Full() {
		return apperrors.New(apperrors.CodeTournamentFull, "tournament is full")
	}

	user, err := s.userRepo.GetById(ctx, userId)
	if err != nil {
		return err
	}
	if user.WalletBalance < tournament.EntryFee {
		return apperrors.New(apperrors.CodeInsufficientBalance, "insufficient wallet balance")
	}

	participant := &models.Participant{
		TournamentId: tournamentId,
		UserId:       userId,
		Email:        email,
		Username:     username,
		JoinedAt:     time.Now().UTC(),
	}

	if err := s.ledgerRepo.Join(ctx, tournament, participant); err != nil {
		return err
	}

	s.logger.Info("user joined tournament",
		"tournament_id", tournamentId,
		"user_id", userId,
		"entry_fee", tournament.EntryFee,
	)

	if s.publisher != nil {
		_ = s.publisher.PublishJoined(ctx, tournamentId, userId, username, tournament.EntryFee)
	}
	s.invalidateCache(ctx, tournamentId, "joined")

	return nil
}

func (s *tournamentService) Participants(ctx context.Context, tournamentId string) ([]models.Participant, error) {
	return s.tournamentRepo.ListParticipants(ctx, tournamentId)
}

// RemoveParticipant is an admin action. No refund is issued.
func (s *tournamentService) RemoveParticipant(ctx context.Context, tournamentId, userId string) error {
	participants, err := s.tournamentRepo.ListParticipants(ctx, tournamentId)
	if err != nil {
		return err
	}

	for _, p := range participants {
		if p.UserId == userId {
			if err := s.tournamentRepo.RemoveParticipant(ctx, tournamentId, userId, p.Username); err != nil {
				return err
			}
			s.invalidateCache(ctx, tournamentId, "participant-removed")
			return nil
		}
	}

	return apperrors.New(apperrors.CodeNotFound, "participant not found")
}

func (s *tournamentService) AuditLog(ctx context.Context, tournamentId string) ([]models.AuditEntry, error) {
	return s.auditRepo.ListByTournament(ctx, tournamentId)
}

func (s *tournamentService) invalidateCache(ctx context.Context, tournamentId, change string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	if s.publisher != nil {
		_ = s.publisher.PublishTournamentChanged(ctx, tournamentId, change)
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/models"
)

type tournamentFixture struct {
	tournaments *fakeTournamentRepo
	users       *fakeUserRepo
	audit       *fakeAuditRepo
	cache       *fakeCache
	svc         TournamentService
}

func newTournamentFixture(tournaments []*models.Tournament, users ...*models.User) *tournamentFixture {
	tournamentRepo := newFakeTournamentRepo(tournaments...)
	userRepo := newFakeUserRepo(users...)
	ledgerRepo := newFakeLedgerRepo(userRepo, tournamentRepo, newFakeFundingRepo())
	auditRepo := &fakeAuditRepo{}
	cache := &fakeCache{}

	svc := NewTournamentService(
		tournamentRepo,
		userRepo,
		ledgerRepo,
		auditRepo,
		nil,
		cache,
		logger.Development("test"),
	)

	return &tournamentFixture{
		tournaments: tournamentRepo,
		users:       userRepo,
		audit:       auditRepo,
		cache:       cache,
		svc:         svc,
	}
}

func validInput() CreateTournamentInput {
	return CreateTournamentInput{
		Name:            "Evening Showdown",
		GameType:        models.GamePUBG,
		StartsAt:        time.Now().Add(time.Hour),
		EntryFee:        100,
		PrizePool:       1000,
		MaxParticipants: 48,
	}
}

func openTournament(id string, entryFee int64, max int) *models.Tournament {
	return &models.Tournament{
		TournamentId:    id,
		Name:            "Open",
		Status:          models.StatusUpcoming,
		StartsAt:        time.Now().Add(time.Hour),
		EntryFee:        entryFee,
		MaxParticipants: max,
	}
}

func TestCreateStartsUpcoming(t *testing.T) {
	f := newTournamentFixture(nil)

	created, err := f.svc.Create(context.Background(), "admin", validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusUpcoming, created.Status)
	assert.False(t, created.UserSubmitted)
	assert.Equal(t, "admin", created.CreatedBy)
}

func TestSubmitStartsPending(t *testing.T) {
	f := newTournamentFixture(nil)

	created, err := f.svc.Submit(context.Background(), "u1", validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, created.Status)
	assert.True(t, created.UserSubmitted)
	assert.False(t, created.PubliclyVisible())
}

func TestCreateValidation(t *testing.T) {
	f := newTournamentFixture(nil)
	ctx := context.Background()

	for name, mutate := range map[string]func(*CreateTournamentInput){
		"empty name":        func(in *CreateTournamentInput) { in.Name = "  " },
		"bad game type":     func(in *CreateTournamentInput) { in.GameType = "chess" },
		"zero start":        func(in *CreateTournamentInput) { in.StartsAt = time.Time{} },
		"negative fee":      func(in *CreateTournamentInput) { in.EntryFee = -1 },
		"negative prize":    func(in *CreateTournamentInput) { in.PrizePool = -1 },
		"zero participants": func(in *CreateTournamentInput) { in.MaxParticipants = 0 },
	} {
		input := validInput()
		mutate(&input)
		_, err := f.svc.Create(ctx, "admin", input)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), name)
	}
}

func TestCreateSanitizesUserText(t *testing.T) {
	f := newTournamentFixture(nil)

	input := validInput()
	input.Name = "<script>alert(1)</script>Evening Showdown"
	input.Rules = "<b>No teaming</b>"

	created, err := f.svc.Create(context.Background(), "admin", input)
	require.NoError(t, err)

	assert.Equal(t, "Evening Showdown", created.Name)
	assert.Equal(t, "No teaming", created.Rules)
}

func TestApprovePendingSubmission(t *testing.T) {
	pending := &models.Tournament{TournamentId: "t1", Status: models.StatusPending}
	f := newTournamentFixture([]*models.Tournament{pending})

	require.NoError(t, f.svc.Approve(context.Background(), "admin", "t1"))

	assert.Equal(t, models.StatusUpcoming, f.tournaments.tournaments["t1"].Status)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "admin", f.audit.entries[0].Actor)
	assert.Positive(t, f.cache.invalidated)
}

func TestApproveNonPendingFails(t *testing.T) {
	live := &models.Tournament{TournamentId: "t1", Status: models.StatusLive}
	f := newTournamentFixture([]*models.Tournament{live})

	err := f.svc.Approve(context.Background(), "admin", "t1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodePrecondition))
	assert.Equal(t, models.StatusLive, f.tournaments.tournaments["t1"].Status)
}

func TestRejectRequiresReason(t *testing.T) {
	pending := &models.Tournament{TournamentId: "t1", Status: models.StatusPending}
	f := newTournamentFixture([]*models.Tournament{pending})

	err := f.svc.Reject(context.Background(), "admin", "t1", "   ")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	require.NoError(t, f.svc.Reject(context.Background(), "admin", "t1", "duplicate event"))
	assert.Equal(t, models.StatusRejected, f.tournaments.tournaments["t1"].Status)
	assert.Equal(t, "duplicate event", f.tournaments.tournaments["t1"].RejectionReason)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "duplicate event", f.audit.entries[0].Reason)
}

func TestRejectNonPendingLeavesRecordUntouched(t *testing.T) {
	live := &models.Tournament{TournamentId: "t1", Status: models.StatusLive}
	f := newTournamentFixture([]*models.Tournament{live})

	err := f.svc.Reject(context.Background(), "admin", "t1", "too late")
	assert.True(t, apperrors.IsCode(err, apperrors.CodePrecondition))
	assert.Equal(t, models.StatusLive, f.tournaments.tournaments["t1"].Status)
	assert.Empty(t, f.tournaments.tournaments["t1"].RejectionReason)
	assert.Empty(t, f.audit.entries)
}

func TestUpdatePreservesConcurrentStatusAndCount(t *testing.T) {
	tournament := openTournament("t1", 100, 5)
	tournament.ParticipantCount = 2
	f := newTournamentFixture([]*models.Tournament{tournament})

	// Another writer flips the status and admits a participant between
	// the service's read and its write.
	f.tournaments.beforeUpdate = func() {
		f.tournaments.tournaments["t1"].Status = models.StatusLive
		f.tournaments.tournaments["t1"].ParticipantCount = 3
	}

	input := validInput()
	input.Name = "Renamed Showdown"
	_, err := f.svc.Update(context.Background(), "t1", input)
	require.NoError(t, err)

	stored := f.tournaments.tournaments["t1"]
	assert.Equal(t, "Renamed Showdown", stored.Name)
	assert.Equal(t, models.StatusLive, stored.Status)
	assert.Equal(t, 3, stored.ParticipantCount)
}

func TestListPublicSortsAndCaches(t *testing.T) {
	now := time.Now()
	f := newTournamentFixture([]*models.Tournament{
		{TournamentId: "later", Status: models.StatusUpcoming, StartsAt: now.Add(2 * time.Hour)},
		{TournamentId: "sooner", Status: models.StatusLive, StartsAt: now.Add(time.Hour)},
		{TournamentId: "hidden", Status: models.StatusPending, StartsAt: now},
		{TournamentId: "gone", Status: models.StatusRejected, StartsAt: now},
	})

	list, err := f.svc.ListPublic(context.Background())
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "sooner", list[0].TournamentId)
	assert.Equal(t, "later", list[1].TournamentId)
	assert.True(t, f.cache.populated)

	// Second read is served from the cache.
	f.tournaments.tournaments["sooner"].Status = models.StatusRejected
	list, err = f.svc.ListPublic(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestJoinHappyPath(t *testing.T) {
	f := newTournamentFixture(
		[]*models.Tournament{openTournament("t1", 100, 2)},
		&models.User{UserId: "u1", WalletBalance: 500},
	)

	require.NoError(t, f.svc.Join(context.Background(), "u1", "u1@test.com", "t1", "SniperKing"))

	assert.Equal(t, int64(400), f.users.users["u1"].WalletBalance)
	assert.Equal(t, 1, f.tournaments.tournaments["t1"].ParticipantCount)
	assert.Contains(t, f.users.users["u1"].JoinedTournaments, "t1")
}

func TestJoinRejectsInvalidUsername(t *testing.T) {
	f := newTournamentFixture(
		[]*models.Tournament{openTournament("t1", 100, 2)},
		&models.User{UserId: "u1", WalletBalance: 500},
	)
	ctx := context.Background()

	assert.True(t, apperrors.IsCode(f.svc.Join(ctx, "u1", "", "t1", "ab"), apperrors.CodeValidation))
	assert.True(t, apperrors.IsCode(f.svc.Join(ctx, "u1", "", "t1", "this-name-is-way-too-long-to-accept"), apperrors.CodeValidation))
}

func TestJoinNotOpen(t *testing.T) {
	tournament := openTournament("t1", 100, 2)
	tournament.Status = models.StatusLive
	f := newTournamentFixture([]*models.Tournament{tournament}, &models.User{UserId: "u1", WalletBalance: 500})

	err := f.svc.Join(context.Background(), "u1", "", "t1", "SniperKing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTournamentNotOpen))
}

func TestJoinFull(t *testing.T) {
	tournament := openTournament("t1", 100, 1)
	tournament.ParticipantCount = 1
	f := newTournamentFixture([]*models.Tournament{tournament}, &models.User{UserId: "u1", WalletBalance: 500})

	err := f.svc.Join(context.Background(), "u1", "", "t1", "SniperKing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTournamentFull))
}

func TestJoinInsufficientBalance(t *testing.T) {
	f := newTournamentFixture(
		[]*models.Tournament{openTournament("t1", 100, 2)},
		&models.User{UserId: "u1", WalletBalance: 99},
	)

	err := f.svc.Join(context.Background(), "u1", "", "t1", "SniperKing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientBalance))
	assert.Equal(t, int64(99), f.users.users["u1"].WalletBalance)
}

func TestJoinTwiceFails(t *testing.T) {
	f := newTournamentFixture(
		[]*models.Tournament{openTournament("t1", 100, 5)},
		&models.User{UserId: "u1", WalletBalance: 500},
	)
	ctx := context.Background()

	require.NoError(t, f.svc.Join(ctx, "u1", "", "t1", "SniperKing"))

	err := f.svc.Join(ctx, "u1", "", "t1", "OtherName")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAlreadyJoined))
	// The failed second join must not debit again.
	assert.Equal(t, int64(400), f.users.users["u1"].WalletBalance)
}

func TestJoinUsernameTakenCaseInsensitive(t *testing.T) {
	f := newTournamentFixture(
		[]*models.Tournament{openTournament("t1", 100, 5)},
		&models.User{UserId: "u1", WalletBalance: 500},
		&models.User{UserId: "u2", WalletBalance: 500},
	)
	ctx := context.Background()

	require.NoError(t, f.svc.Join(ctx, "u1", "", "t1", "SniperKing"))

	err := f.svc.Join(ctx, "u2", "", "t1", "sniperking")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUsernameTaken))
	assert.Equal(t, int64(500), f.users.users["u2"].WalletBalance)
}

func TestRemoveParticipantNoRefund(t *testing.T) {
	f := newTournamentFixture(
		[]*models.Tournament{openTournament("t1", 100, 5)},
		&models.User{UserId: "u1", WalletBalance: 500},
	)
	ctx := context.Background()

	require.NoError(t, f.svc.Join(ctx, "u1", "", "t1", "SniperKing"))
	require.NoError(t, f.svc.RemoveParticipant(ctx, "t1", "u1"))

	assert.Equal(t, 0, f.tournaments.tournaments["t1"].ParticipantCount)
	assert.Equal(t, int64(400), f.users.users["u1"].WalletBalance)

	// The freed slot and username can be claimed again.
	require.NoError(t, f.svc.Join(ctx, "u1", "", "t1", "SniperKing"))
}

func TestRemoveParticipantNotJoined(t *testing.T) {
	f := newTournamentFixture([]*models.Tournament{openTournament("t1", 100, 5)})

	err := f.svc.RemoveParticipant(context.Background(), "t1", "ghost")
	assert.True(t, apperrors.IsNotFound(err))
}

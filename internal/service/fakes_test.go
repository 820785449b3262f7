package service

import (
	"context"
	"sort"
	"strings"
	"time"

	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
)

// The fakes below mirror the conditional-write semantics of the DynamoDB
// repositories so service behavior can be exercised end to end in memory.

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		r.users[u.UserId] = u
	}
	return r
}

func (r *fakeUserRepo) EnsureUser(_ context.Context, userId, email string) (*models.User, error) {
	if u, ok := r.users[userId]; ok {
		u.LastLoginAt = time.Now().UTC()
		return u, nil
	}
	u := &models.User{UserId: userId, Email: email, Role: models.RoleUser, CreatedAt: time.Now().UTC()}
	r.users[userId] = u
	return u, nil
}

func (r *fakeUserRepo) GetById(_ context.Context, userId string) (*models.User, error) {
	u, ok := r.users[userId]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) ListAll(_ context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) SetRole(_ context.Context, userId string, role models.Role) error {
	u, ok := r.users[userId]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	u.Role = role
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, userId string) error {
	if _, ok := r.users[userId]; !ok {
		return apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	delete(r.users, userId)
	return nil
}

type fakeTournamentRepo struct {
	tournaments  map[string]*models.Tournament
	participants map[string][]models.Participant
	usernames    map[string]map[string]bool
	audits       map[string][]models.AuditEntry

	// beforeUpdate, when set, runs at the start of Update and can mutate
	// state to simulate a writer landing between a read and the update.
	beforeUpdate func()
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{
		tournaments:  make(map[string]*models.Tournament),
		participants: make(map[string][]models.Participant),
		usernames:    make(map[string]map[string]bool),
		audits:       make(map[string][]models.AuditEntry),
	}
	for _, t := range tournaments {
		r.tournaments[t.TournamentId] = t
	}
	return r
}

func (r *fakeTournamentRepo) Create(_ context.Context, tournament *models.Tournament) error {
	if _, ok := r.tournaments[tournament.TournamentId]; ok {
		return apperrors.New(apperrors.CodeAlreadyExists, "tournament already exists")
	}
	tournament.CreatedAt = time.Now().UTC()
	tournament.UpdatedAt = tournament.CreatedAt
	r.tournaments[tournament.TournamentId] = tournament
	return nil
}

func (r *fakeTournamentRepo) GetById(_ context.Context, tournamentId string) (*models.Tournament, error) {
	t, ok := r.tournaments[tournamentId]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) ListByStatus(_ context.Context, status models.TournamentStatus) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, t := range r.tournaments {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListStartedBefore(_ context.Context, status models.TournamentStatus, cutoff time.Time) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, t := range r.tournaments {
		if t.Status == status && !t.StartsAt.After(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

// Update copies only the admin-editable fields, like the real repository's
// field-scoped update expression. Status and the participant counter are
// left alone.
func (r *fakeTournamentRepo) Update(_ context.Context, tournament *models.Tournament) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
		r.beforeUpdate = nil
	}

	stored, ok := r.tournaments[tournament.TournamentId]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}

	stored.Name = tournament.Name
	stored.GameType = tournament.GameType
	stored.StartsAt = tournament.StartsAt
	stored.EntryFee = tournament.EntryFee
	stored.PrizePool = tournament.PrizePool
	stored.PerKillBonus = tournament.PerKillBonus
	stored.MaxParticipants = tournament.MaxParticipants
	stored.MatchDetails = tournament.MatchDetails
	stored.Rules = tournament.Rules
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, tournamentId string) error {
	delete(r.tournaments, tournamentId)
	delete(r.participants, tournamentId)
	delete(r.usernames, tournamentId)
	return nil
}

func (r *fakeTournamentRepo) TransitionStatus(_ context.Context, tournamentId string, from, to models.TournamentStatus, at time.Time) (bool, error) {
	t, ok := r.tournaments[tournamentId]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	stamped := at
	t.StatusUpdatedAt = &stamped
	return true, nil
}

func (r *fakeTournamentRepo) StampStatusUpdatedAt(_ context.Context, tournamentId string, at time.Time) (bool, error) {
	t, ok := r.tournaments[tournamentId]
	if !ok || t.StatusUpdatedAt != nil {
		return false, nil
	}
	stamped := at
	t.StatusUpdatedAt = &stamped
	return true, nil
}

func (r *fakeTournamentRepo) SetResult(_ context.Context, tournamentId, resultImageURL, resultText string) error {
	t, ok := r.tournaments[tournamentId]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}
	t.ResultImageURL = resultImageURL
	t.ResultText = resultText
	return nil
}

func (r *fakeTournamentRepo) Reject(_ context.Context, tournamentId, reason string, at time.Time) (bool, error) {
	t, ok := r.tournaments[tournamentId]
	if !ok || t.Status != models.StatusPending {
		return false, nil
	}
	t.Status = models.StatusRejected
	t.RejectionReason = reason
	stamped := at
	t.StatusUpdatedAt = &stamped
	return true, nil
}

func (r *fakeTournamentRepo) ListParticipants(_ context.Context, tournamentId string) ([]models.Participant, error) {
	participants := append([]models.Participant(nil), r.participants[tournamentId]...)
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	return participants, nil
}

func (r *fakeTournamentRepo) RemoveParticipant(_ context.Context, tournamentId, userId, username string) error {
	participants := r.participants[tournamentId]
	for i, p := range participants {
		if p.UserId == userId {
			r.participants[tournamentId] = append(participants[:i], participants[i+1:]...)
			delete(r.usernames[tournamentId], strings.ToLower(username))
			r.tournaments[tournamentId].ParticipantCount--
			return nil
		}
	}
	return apperrors.New(apperrors.CodeNotFound, "participant not found")
}

type fakeFundingRepo struct {
	withdrawals map[string]*models.WithdrawalRequest
	recharges   map[string]*models.RechargeRequest
}

func newFakeFundingRepo() *fakeFundingRepo {
	return &fakeFundingRepo{
		withdrawals: make(map[string]*models.WithdrawalRequest),
		recharges:   make(map[string]*models.RechargeRequest),
	}
}

func (r *fakeFundingRepo) CreateWithdrawal(_ context.Context, req *models.WithdrawalRequest) error {
	r.withdrawals[req.RequestId] = req
	return nil
}

func (r *fakeFundingRepo) CreateRecharge(_ context.Context, req *models.RechargeRequest) error {
	r.recharges[req.RequestId] = req
	return nil
}

func (r *fakeFundingRepo) GetWithdrawal(_ context.Context, userId, requestId string) (*models.WithdrawalRequest, error) {
	req, ok := r.withdrawals[requestId]
	if !ok || req.UserId != userId {
		return nil, apperrors.New(apperrors.CodeNotFound, "withdrawal request not found")
	}
	copied := *req
	return &copied, nil
}

func (r *fakeFundingRepo) GetRecharge(_ context.Context, userId, requestId string) (*models.RechargeRequest, error) {
	req, ok := r.recharges[requestId]
	if !ok || req.UserId != userId {
		return nil, apperrors.New(apperrors.CodeNotFound, "recharge request not found")
	}
	copied := *req
	return &copied, nil
}

func (r *fakeFundingRepo) ListWithdrawalsByStatus(_ context.Context, status models.RequestStatus) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for _, req := range r.withdrawals {
		if req.Status == status {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeFundingRepo) ListRechargesByStatus(_ context.Context, status models.RequestStatus) ([]models.RechargeRequest, error) {
	var out []models.RechargeRequest
	for _, req := range r.recharges {
		if req.Status == status {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeFundingRepo) ListUserWithdrawals(_ context.Context, userId string) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for _, req := range r.withdrawals {
		if req.UserId == userId {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeFundingRepo) ListUserRecharges(_ context.Context, userId string) ([]models.RechargeRequest, error) {
	var out []models.RechargeRequest
	for _, req := range r.recharges {
		if req.UserId == userId {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeFundingRepo) RejectWithdrawal(_ context.Context, userId, requestId, notes string, processedAt time.Time) error {
	req, ok := r.withdrawals[requestId]
	if !ok || req.UserId != userId {
		return apperrors.New(apperrors.CodeNotFound, "withdrawal request not found")
	}
	if req.Status != models.RequestPending {
		return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
	}
	req.Status = models.RequestRejected
	req.AdminNotes = notes
	req.ProcessedAt = &processedAt
	return nil
}

func (r *fakeFundingRepo) RejectRecharge(_ context.Context, userId, requestId, notes string, processedAt time.Time) error {
	req, ok := r.recharges[requestId]
	if !ok || req.UserId != userId {
		return apperrors.New(apperrors.CodeNotFound, "recharge request not found")
	}
	if req.Status != models.RequestPending {
		return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
	}
	req.Status = models.RequestRejected
	req.AdminNotes = notes
	req.ProcessedAt = &processedAt
	return nil
}

// fakeLedgerRepo applies the same all-or-nothing checks as the real
// transactional repository. beforeApply, when set, runs just before a
// funds-moving write and can mutate state to simulate a concurrent writer.
type fakeLedgerRepo struct {
	users       *fakeUserRepo
	tournaments *fakeTournamentRepo
	funding     *fakeFundingRepo
	rewards     []*models.RewardRecord

	beforeApply func()
}

func newFakeLedgerRepo(users *fakeUserRepo, tournaments *fakeTournamentRepo, funding *fakeFundingRepo) *fakeLedgerRepo {
	return &fakeLedgerRepo{users: users, tournaments: tournaments, funding: funding}
}

func (r *fakeLedgerRepo) Join(_ context.Context, tournament *models.Tournament, participant *models.Participant) error {
	t, ok := r.tournaments.tournaments[tournament.TournamentId]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}

	for _, p := range r.tournaments.participants[t.TournamentId] {
		if p.UserId == participant.UserId {
			return apperrors.New(apperrors.CodeAlreadyJoined, "you already joined this tournament")
		}
	}

	claims := r.tournaments.usernames[t.TournamentId]
	if claims == nil {
		claims = make(map[string]bool)
		r.tournaments.usernames[t.TournamentId] = claims
	}
	if claims[strings.ToLower(participant.Username)] {
		return apperrors.New(apperrors.CodeUsernameTaken, "username already taken in this tournament")
	}

	if t.Status != models.StatusUpcoming || t.ParticipantCount >= t.MaxParticipants {
		return apperrors.New(apperrors.CodeTournamentFull, "tournament is full or no longer open")
	}

	user, ok := r.users.users[participant.UserId]
	if !ok || user.WalletBalance < t.EntryFee {
		return apperrors.New(apperrors.CodeInsufficientBalance, "insufficient wallet balance")
	}

	user.WalletBalance -= t.EntryFee
	user.JoinedTournaments = append(user.JoinedTournaments, t.TournamentId)
	t.ParticipantCount++
	claims[strings.ToLower(participant.Username)] = true
	r.tournaments.participants[t.TournamentId] = append(r.tournaments.participants[t.TournamentId], *participant)
	return nil
}

func (r *fakeLedgerRepo) ApproveWithdrawal(_ context.Context, userId, requestId string, debit, observedBalance int64, notes string, processedAt time.Time) error {
	if r.beforeApply != nil {
		r.beforeApply()
		r.beforeApply = nil
	}

	user, ok := r.users.users[userId]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	if user.WalletBalance != observedBalance {
		return apperrors.New(apperrors.CodeConflict, "wallet balance changed, retry")
	}

	req, ok := r.funding.withdrawals[requestId]
	if !ok || req.Status != models.RequestPending {
		return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
	}

	user.WalletBalance -= debit
	req.Status = models.RequestApproved
	req.AdminNotes = notes
	req.ProcessedAt = &processedAt
	return nil
}

func (r *fakeLedgerRepo) ApproveRecharge(_ context.Context, userId, requestId string, amount int64, notes string, processedAt time.Time) error {
	user, ok := r.users.users[userId]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	req, ok := r.funding.recharges[requestId]
	if !ok || req.Status != models.RequestPending {
		return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
	}

	user.WalletBalance += amount
	req.Status = models.RequestApproved
	req.AdminNotes = notes
	req.ProcessedAt = &processedAt
	return nil
}

func (r *fakeLedgerRepo) GrantReward(_ context.Context, reward *models.RewardRecord) error {
	if r.beforeApply != nil {
		r.beforeApply()
		r.beforeApply = nil
	}

	user, ok := r.users.users[reward.UserId]
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	if user.WalletBalance != reward.PreviousBalance {
		return apperrors.New(apperrors.CodeConflict, "wallet balance changed, retry")
	}

	user.WalletBalance = reward.NewBalance
	r.rewards = append(r.rewards, reward)
	return nil
}

type fakeAuditRepo struct {
	entries []*models.AuditEntry
}

func (r *fakeAuditRepo) Append(_ context.Context, entry *models.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) ListByTournament(_ context.Context, tournamentId string) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, e := range r.entries {
		if e.TournamentId == tournamentId {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeRewardRepo struct {
	ledger *fakeLedgerRepo
}

func (r *fakeRewardRepo) ListByUser(_ context.Context, userId string) ([]models.RewardRecord, error) {
	var out []models.RewardRecord
	for _, reward := range r.ledger.rewards {
		if reward.UserId == userId {
			out = append(out, *reward)
		}
	}
	return out, nil
}

type fakeSettingsRepo struct {
	settings *models.PaymentSettings
}

func (r *fakeSettingsRepo) GetPaymentSettings(_ context.Context) (*models.PaymentSettings, error) {
	if r.settings == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment settings not configured")
	}
	copied := *r.settings
	return &copied, nil
}

func (r *fakeSettingsRepo) PutPaymentSettings(_ context.Context, settings *models.PaymentSettings) error {
	r.settings = settings
	return nil
}

type fakeCache struct {
	list        []models.Tournament
	populated   bool
	invalidated int
}

func (c *fakeCache) GetPublicList(_ context.Context) ([]models.Tournament, bool) {
	return c.list, c.populated
}

func (c *fakeCache) SetPublicList(_ context.Context, tournaments []models.Tournament) {
	c.list = tournaments
	c.populated = true
}

func (c *fakeCache) Invalidate(_ context.Context) {
	c.list = nil
	c.populated = false
	c.invalidated++
}

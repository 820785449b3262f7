package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/events"
	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/models"
	"github.com/proarena/arena/internal/repository"
	"github.com/proarena/arena/internal/sanitize"
)

// conflictRetries bounds the optimistic retry loops on balance-conditioned
// transactions.
const conflictRetries = 3

type WalletPolicy struct {
	MinWithdrawalAmount int64
}

type WalletService interface {
	GetWallet(ctx context.Context, userId string) (*models.User, error)
	RequestWithdrawal(ctx context.Context, userId, email string, amount int64, account models.PayoutAccount) (*models.WithdrawalRequest, error)
	RequestRecharge(ctx context.Context, userId, email string, amount int64, paymentMethod, transactionRef, proofImageURL string) (*models.RechargeRequest, error)
	ApproveWithdrawal(ctx context.Context, adminId, userId, requestId, notes string) error
	RejectWithdrawal(ctx context.Context, adminId, userId, requestId, notes string) error
	ApproveRecharge(ctx context.Context, adminId, userId, requestId, notes string) error
	RejectRecharge(ctx context.Context, adminId, userId, requestId, notes string) error
	GrantReward(ctx context.Context, adminId, userId string, amount int64, description, gameName string, position int) (*models.RewardRecord, error)
	ListPendingWithdrawals(ctx context.Context) ([]models.WithdrawalRequest, error)
	ListPendingRecharges(ctx context.Context) ([]models.RechargeRequest, error)
	ListUserWithdrawals(ctx context.Context, userId string) ([]models.WithdrawalRequest, error)
	ListUserRecharges(ctx context.Context, userId string) ([]models.RechargeRequest, error)
	ListUserRewards(ctx context.Context, userId string) ([]models.RewardRecord, error)
	// PaymentSettings is the account users send recharges to.
	PaymentSettings(ctx context.Context) (*models.PaymentSettings, error)
	UpdatePaymentSettings(ctx context.Context, adminId string, settings *models.PaymentSettings) error
}

type walletService struct {
	userRepo     repository.UserRepository
	fundingRepo  repository.FundingRepository
	ledgerRepo   repository.LedgerRepository
	rewardRepo   repository.RewardRepository
	settingsRepo repository.SettingsRepository
	publisher    *events.EventPublisher
	policy       WalletPolicy
	logger       *logger.Logger
}

func NewWalletService(
	userRepo repository.UserRepository,
	fundingRepo repository.FundingRepository,
	ledgerRepo repository.LedgerRepository,
	rewardRepo repository.RewardRepository,
	settingsRepo repository.SettingsRepository,
	publisher *events.EventPublisher,
	policy WalletPolicy,
	logger *logger.Logger,
) WalletService {
	if policy.MinWithdrawalAmount == 0 {
		policy.MinWithdrawalAmount = 300
	}
	return &walletService{
		userRepo:     userRepo,
		fundingRepo:  fundingRepo,
		ledgerRepo:   ledgerRepo,
		rewardRepo:   rewardRepo,
		settingsRepo: settingsRepo,
		publisher:    publisher,
		policy:       policy,
		logger:       logger,
	}
}

func (s *walletService) GetWallet(ctx context.Context, userId string) (*models.User, error) {
	return s.userRepo.GetById(ctx, userId)
}

// RequestWithdrawal records the request without touching the balance;
// funds are only debited on approval.
func (s *walletService) RequestWithdrawal(ctx context.Context, userId, email string, amount int64, account models.PayoutAccount) (*models.WithdrawalRequest, error) {
	if amount < s.policy.MinWithdrawalAmount {
		return nil, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("minimum withdrawal amount is %d", s.policy.MinWithdrawalAmount))
	}

	account.Method = sanitize.Text(account.Method)
	account.AccountName = sanitize.Text(account.AccountName)
	account.AccountNumber = sanitize.Text(account.AccountNumber)
	if account.Method == "" || account.AccountName == "" || account.AccountNumber == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "all payout account fields are required")
	}

	user, err := s.userRepo.GetById(ctx, userId)
	if err != nil {
		return nil, err
	}
	if amount > user.WalletBalance {
		return nil, apperrors.New(apperrors.CodeInsufficientBalance, "withdrawal amount exceeds wallet balance")
	}

	req := &models.WithdrawalRequest{
		RequestId:   uuid.New().String(),
		UserId:      userId,
		Email:       email,
		Amount:      amount,
		Account:     account,
		Status:      models.RequestPending,
		SubmittedAt: time.Now().UTC(),
	}

	if err := s.fundingRepo.CreateWithdrawal(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested", "user_id", userId, "amount", amount)
	return req, nil
}

func (s *walletService) RequestRecharge(ctx context.Context, userId, email string, amount int64, paymentMethod, transactionRef, proofImageURL string) (*models.RechargeRequest, error) {
	switch {
	case amount <= 0:
		return nil, apperrors.New(apperrors.CodeValidation, "recharge amount must be positive")
	case sanitize.Text(paymentMethod) == "":
		return nil, apperrors.New(apperrors.CodeValidation, "payment method is required")
	case sanitize.Text(transactionRef) == "":
		return nil, apperrors.New(apperrors.CodeValidation, "transaction reference is required")
	case !strings.HasPrefix(proofImageURL, "https://"):
		return nil, apperrors.New(apperrors.CodeValidation, "payment proof image is required")
	}

	req := &models.RechargeRequest{
		RequestId:      uuid.New().String(),
		UserId:         userId,
		Email:          email,
		Amount:         amount,
		PaymentMethod:  sanitize.Text(paymentMethod),
		TransactionRef: sanitize.Text(transactionRef),
		ProofImageURL:  proofImageURL,
		Status:         models.RequestPending,
		SubmittedAt:    time.Now().UTC(),
	}

	if err := s.fundingRepo.CreateRecharge(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("recharge requested", "user_id", userId, "amount", amount)
	return req, nil
}

// ApproveWithdrawal debits the requested amount, floored at the user's
// current balance so the wallet can never go negative even when the
// balance shrank between request and approval.
func (s *walletService) ApproveWithdrawal(ctx context.Context, adminId, userId, requestId, notes string) error {
	req, err := s.fundingRepo.GetWithdrawal(ctx, userId, requestId)
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < conflictRetries; attempt++ {
		user, err := s.userRepo.GetById(ctx, userId)
		if err != nil {
			return err
		}

		debit := req.Amount
		if user.WalletBalance < debit {
			debit = user.WalletBalance
		}

		err = s.ledgerRepo.ApproveWithdrawal(ctx, userId, requestId, debit, user.WalletBalance, sanitize.Text(notes), now)
		if apperrors.IsConflict(err) {
			continue
		}
		if err != nil {
			return err
		}

		s.logger.Info("withdrawal approved",
			"user_id", userId,
			"request_id", requestId,
			"requested", req.Amount,
			"debited", debit,
			"admin_id", adminId,
		)
		if s.publisher != nil {
			_ = s.publisher.PublishWalletLedger(ctx, events.WalletWithdrawalApproved, &events.WalletLedger{
				UserId:    userId,
				Amount:    -debit,
				Kind:      "withdrawal",
				RequestId: requestId,
				Actor:     adminId,
			})
		}
		return nil
	}

	return apperrors.New(apperrors.CodeConflict, "wallet busy, please retry")
}

func (s *walletService) RejectWithdrawal(ctx context.Context, adminId, userId, requestId, notes string) error {
	if err := s.fundingRepo.RejectWithdrawal(ctx, userId, requestId, sanitize.Text(notes), time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("withdrawal rejected", "user_id", userId, "request_id", requestId, "admin_id", adminId)
	return nil
}

func (s *walletService) ApproveRecharge(ctx context.Context, adminId, userId, requestId, notes string) error {
	req, err := s.fundingRepo.GetRecharge(ctx, userId, requestId)
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
	}

	if err := s.ledgerRepo.ApproveRecharge(ctx, userId, requestId, req.Amount, sanitize.Text(notes), time.Now().UTC()); err != nil {
		return err
	}

	s.logger.Info("recharge approved",
		"user_id", userId,
		"request_id", requestId,
		"amount", req.Amount,
		"admin_id", adminId,
	)
	if s.publisher != nil {
		_ = s.publisher.PublishWalletLedger(ctx, events.WalletRechargeApproved, &events.WalletLedger{
			UserId:    userId,
			Amount:    req.Amount,
			Kind:      "recharge",
			RequestId: requestId,
			Actor:     adminId,
		})
	}
	return nil
}

func (s *walletService) RejectRecharge(ctx context.Context, adminId, userId, requestId, notes string) error {
	if err := s.fundingRepo.RejectRecharge(ctx, userId, requestId, sanitize.Text(notes), time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("recharge rejected", "user_id", userId, "request_id", requestId, "admin_id", adminId)
	return nil
}

// GrantReward credits the user and writes the immutable ledger record in
// one transaction, retrying when the balance moves under the read.
func (s *walletService) GrantReward(ctx context.Context, adminId, userId string, amount int64, description, gameName string, position int) (*models.RewardRecord, error) {
	if amount <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "reward amount must be positive")
	}

	for attempt := 0; attempt < conflictRetries; attempt++ {
		user, err := s.userRepo.GetById(ctx, userId)
		if err != nil {
			return nil, err
		}

		reward := &models.RewardRecord{
			RewardId:        uuid.New().String(),
			UserId:          userId,
			Amount:          amount,
			Description:     rewardDescription(description, gameName, position),
			GameName:        sanitize.Text(gameName),
			Position:        position,
			PreviousBalance: user.WalletBalance,
			NewBalance:      user.WalletBalance + amount,
			GrantedBy:       adminId,
			GrantedAt:       time.Now().UTC(),
		}

		err = s.ledgerRepo.GrantReward(ctx, reward)
		if apperrors.IsConflict(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("reward granted",
			"user_id", userId,
			"amount", amount,
			"new_balance", reward.NewBalance,
			"admin_id", adminId,
		)
		if s.publisher != nil {
			_ = s.publisher.PublishWalletLedger(ctx, events.WalletRewardGranted, &events.WalletLedger{
				UserId:   userId,
				Amount:   amount,
				Kind:     "reward",
				RewardId: reward.RewardId,
				Actor:    adminId,
			})
		}
		return reward, nil
	}

	return nil, apperrors.New(apperrors.CodeConflict, "wallet busy, please retry")
}

func rewardDescription(description, gameName string, position int) string {
	description = sanitize.Text(description)
	gameName = sanitize.Text(gameName)

	switch {
	case gameName != "" && position > 0:
		return fmt.Sprintf("Reward for position #%d in %s", position, gameName)
	case gameName != "":
		return fmt.Sprintf("Reward for %s", gameName)
	case description != "":
		return description
	default:
		return "Wallet reward"
	}
}

func (s *walletService) ListPendingWithdrawals(ctx context.Context) ([]models.WithdrawalRequest, error) {
	return s.fundingRepo.ListWithdrawalsByStatus(ctx, models.RequestPending)
}

func (s *walletService) ListPendingRecharges(ctx context.Context) ([]models.RechargeRequest, error) {
	return s.fundingRepo.ListRechargesByStatus(ctx, models.RequestPending)
}

func (s *walletService) ListUserWithdrawals(ctx context.Context, userId string) ([]models.WithdrawalRequest, error) {
	return s.fundingRepo.ListUserWithdrawals(ctx, userId)
}

func (s *walletService) ListUserRecharges(ctx context.Context, userId string) ([]models.RechargeRequest, error) {
	return s.fundingRepo.ListUserRecharges(ctx, userId)
}

func (s *walletService) ListUserRewards(ctx context.Context, userId string) ([]models.RewardRecord, error) {
	return s.rewardRepo.ListByUser(ctx, userId)
}

func (s *walletService) PaymentSettings(ctx context.Context) (*models.PaymentSettings, error) {
	return s.settingsRepo.GetPaymentSettings(ctx)
}

func (s *walletService) UpdatePaymentSettings(ctx context.Context, adminId string, settings *models.PaymentSettings) error {
	settings.Method = sanitize.Text(settings.Method)
	settings.AccountName = sanitize.Text(settings.AccountName)
	settings.AccountNumber = sanitize.Text(settings.AccountNumber)
	settings.Instructions = sanitize.Text(settings.Instructions)
	if settings.Method == "" || settings.AccountNumber == "" {
		return apperrors.New(apperrors.CodeValidation, "payment method and account number are required")
	}

	settings.UpdatedBy = adminId
	settings.UpdatedAt = time.Now().UTC()

	if err := s.settingsRepo.PutPaymentSettings(ctx, settings); err != nil {
		return err
	}

	s.logger.Info("payment settings updated", "admin_id", adminId)
	return nil
}

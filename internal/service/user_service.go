package service

import (
	"context"
	"time"

	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/models"
	"github.com/proarena/arena/internal/repository"
)

type UserService interface {
	// EnsureUser is the sign-in hook: it creates the profile on first
	// sight and refreshes last_login otherwise.
	EnsureUser(ctx context.Context, userId, email string) (*models.User, error)
	GetById(ctx context.Context, userId string) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	SetRole(ctx context.Context, adminId, userId string, role models.Role) error
	Delete(ctx context.Context, adminId, userId string) error
}

type userService struct {
	userRepo    repository.UserRepository
	fundingRepo repository.FundingRepository
	logger      *logger.Logger
}

func NewUserService(userRepo repository.UserRepository, fundingRepo repository.FundingRepository, log *logger.Logger) UserService {
	return &userService{
		userRepo:    userRepo,
		fundingRepo: fundingRepo,
		logger:      log,
	}
}

func (s *userService) EnsureUser(ctx context.Context, userId, email string) (*models.User, error) {
	if userId == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	return s.userRepo.EnsureUser(ctx, userId, email)
}

func (s *userService) GetById(ctx context.Context, userId string) (*models.User, error) {
	return s.userRepo.GetById(ctx, userId)
}

func (s *userService) ListAll(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAll(ctx)
}

func (s *userService) SetRole(ctx context.Context, adminId, userId string, role models.Role) error {
	if !role.Valid() {
		return apperrors.New(apperrors.CodeValidation, "unknown role")
	}
	if adminId == userId {
		return apperrors.New(apperrors.CodeValidation, "cannot change your own role")
	}

	if err := s.userRepo.SetRole(ctx, userId, role); err != nil {
		return err
	}

	s.logger.Info("user role changed", "user_id", userId, "role", string(role), "admin_id", adminId)
	return nil
}

// Delete removes the profile but keeps tournament participation records,
// which double as historical results. Pending funding requests are
// rejected first so no approval can land on a deleted wallet.
func (s *userService) Delete(ctx context.Context, adminId, userId string) error {
	if adminId == userId {
		return apperrors.New(apperrors.CodeValidation, "cannot delete your own account")
	}

	if _, err := s.userRepo.GetById(ctx, userId); err != nil {
		return err
	}

	now := time.Now().UTC()
	const note = "account deleted"

	withdrawals, err := s.fundingRepo.ListUserWithdrawals(ctx, userId)
	if err != nil {
		return err
	}
	for _, w := range withdrawals {
		if w.Status != models.RequestPending {
			continue
		}
		if err := s.fundingRepo.RejectWithdrawal(ctx, userId, w.RequestId, note, now); err != nil && !apperrors.IsCode(err, apperrors.CodeRequestProcessed) {
			return err
		}
	}

	recharges, err := s.fundingRepo.ListUserRecharges(ctx, userId)
	if err != nil {
		return err
	}
	for _, r := range recharges {
		if r.Status != models.RequestPending {
			continue
		}
		if err := s.fundingRepo.RejectRecharge(ctx, userId, r.RequestId, note, now); err != nil && !apperrors.IsCode(err, apperrors.CodeRequestProcessed) {
			return err
		}
	}

	if err := s.userRepo.Delete(ctx, userId); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", userId, "admin_id", adminId)
	return nil
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/models"
)

type walletFixture struct {
	users    *fakeUserRepo
	funding  *fakeFundingRepo
	ledger   *fakeLedgerRepo
	settings *fakeSettingsRepo
	svc      WalletService
}

func newWalletFixture(users ...*models.User) *walletFixture {
	userRepo := newFakeUserRepo(users...)
	fundingRepo := newFakeFundingRepo()
	ledgerRepo := newFakeLedgerRepo(userRepo, newFakeTournamentRepo(), fundingRepo)
	settingsRepo := &fakeSettingsRepo{}

	svc := NewWalletService(
		userRepo,
		fundingRepo,
		ledgerRepo,
		&fakeRewardRepo{ledger: ledgerRepo},
		settingsRepo,
		nil,
		WalletPolicy{MinWithdrawalAmount: 300},
		logger.Development("test"),
	)

	return &walletFixture{users: userRepo, funding: fundingRepo, ledger: ledgerRepo, settings: settingsRepo, svc: svc}
}

func validAccount() models.PayoutAccount {
	return models.PayoutAccount{Method: "bkash", AccountName: "Test User", AccountNumber: "01700000000"}
}

func TestRequestWithdrawalBelowMinimum(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 1000})

	_, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 299, validAccount())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestRequestWithdrawalExceedsBalance(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 400})

	_, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 500, validAccount())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientBalance))
}

func TestRequestWithdrawalRequiresAccountFields(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 1000})

	account := validAccount()
	account.AccountNumber = "   "
	_, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 500, account)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestRequestWithdrawalDoesNotTouchBalance(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 1000})

	req, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 500, validAccount())
	require.NoError(t, err)

	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, int64(1000), f.users.users["u1"].WalletBalance)
}

func TestRequestRechargeValidation(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1"})
	ctx := context.Background()

	_, err := f.svc.RequestRecharge(ctx, "u1", "u1@test.com", 0, "bkash", "TX1", "https://cdn.test/p.png")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "zero amount")

	_, err = f.svc.RequestRecharge(ctx, "u1", "u1@test.com", 500, "", "TX1", "https://cdn.test/p.png")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "missing method")

	_, err = f.svc.RequestRecharge(ctx, "u1", "u1@test.com", 500, "bkash", "", "https://cdn.test/p.png")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "missing transaction ref")

	_, err = f.svc.RequestRecharge(ctx, "u1", "u1@test.com", 500, "bkash", "TX1", "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "missing proof image")

	req, err := f.svc.RequestRecharge(ctx, "u1", "u1@test.com", 500, "bkash", "TX1", "https://cdn.test/p.png")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
}

func TestApproveWithdrawalDebitsRequestedAmount(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 1000})

	req, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 500, validAccount())
	require.NoError(t, err)

	err = f.svc.ApproveWithdrawal(context.Background(), "admin", "u1", req.RequestId, "paid")
	require.NoError(t, err)

	assert.Equal(t, int64(500), f.users.users["u1"].WalletBalance)
	assert.Equal(t, models.RequestApproved, f.funding.withdrawals[req.RequestId].Status)
}

func TestApproveWithdrawalFloorsDebitAtBalance(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 1000})

	req, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 800, validAccount())
	require.NoError(t, err)

	// Balance shrinks between request and approval.
	f.users.users["u1"].WalletBalance = 600

	err = f.svc.ApproveWithdrawal(context.Background(), "admin", "u1", req.RequestId, "")
	require.NoError(t, err)

	// Only what was available is debited; the balance never goes negative.
	assert.Equal(t, int64(0), f.users.users["u1"].WalletBalance)
}

func TestApproveWithdrawalRetriesOnBalanceConflict(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 1000})

	req, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 500, validAccount())
	require.NoError(t, err)

	// A concurrent writer moves the balance after the service has read it
	// but before the conditional debit lands. The first attempt conflicts;
	// the retry reads the fresh balance and succeeds.
	f.ledger.beforeApply = func() {
		f.users.users["u1"].WalletBalance = 700
	}

	err = f.svc.ApproveWithdrawal(context.Background(), "admin", "u1", req.RequestId, "")
	require.NoError(t, err)

	assert.Equal(t, int64(200), f.users.users["u1"].WalletBalance)
}

func TestApproveWithdrawalAlreadyProcessed(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 1000})

	req, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 500, validAccount())
	require.NoError(t, err)

	require.NoError(t, f.svc.ApproveWithdrawal(context.Background(), "admin", "u1", req.RequestId, ""))

	// Second approval must not double-debit.
	err = f.svc.ApproveWithdrawal(context.Background(), "admin", "u1", req.RequestId, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRequestProcessed))
	assert.Equal(t, int64(500), f.users.users["u1"].WalletBalance)
}

func TestRejectWithdrawalLeavesBalanceUntouched(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 1000})

	req, err := f.svc.RequestWithdrawal(context.Background(), "u1", "u1@test.com", 500, validAccount())
	require.NoError(t, err)

	require.NoError(t, f.svc.RejectWithdrawal(context.Background(), "admin", "u1", req.RequestId, "suspicious"))

	assert.Equal(t, int64(1000), f.users.users["u1"].WalletBalance)
	assert.Equal(t, models.RequestRejected, f.funding.withdrawals[req.RequestId].Status)

	err = f.svc.ApproveWithdrawal(context.Background(), "admin", "u1", req.RequestId, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRequestProcessed))
}

func TestApproveRechargeCreditsExactAmount(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 100})

	req, err := f.svc.RequestRecharge(context.Background(), "u1", "u1@test.com", 500, "bkash", "TX1", "https://cdn.test/p.png")
	require.NoError(t, err)

	require.NoError(t, f.svc.ApproveRecharge(context.Background(), "admin", "u1", req.RequestId, "verified"))

	assert.Equal(t, int64(600), f.users.users["u1"].WalletBalance)
	assert.Equal(t, models.RequestApproved, f.funding.recharges[req.RequestId].Status)

	// Approving again must not double-credit.
	err = f.svc.ApproveRecharge(context.Background(), "admin", "u1", req.RequestId, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRequestProcessed))
	assert.Equal(t, int64(600), f.users.users["u1"].WalletBalance)
}

func TestGrantRewardRecordsBalances(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 250})

	reward, err := f.svc.GrantReward(context.Background(), "admin", "u1", 150, "", "PUBG Arena Finals", 1)
	require.NoError(t, err)

	assert.Equal(t, int64(250), reward.PreviousBalance)
	assert.Equal(t, int64(400), reward.NewBalance)
	assert.Equal(t, "admin", reward.GrantedBy)
	assert.Equal(t, "Reward for position #1 in PUBG Arena Finals", reward.Description)
	assert.Equal(t, int64(400), f.users.users["u1"].WalletBalance)
}

func TestGrantRewardRetriesOnBalanceConflict(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 250})

	f.ledger.beforeApply = func() {
		f.users.users["u1"].WalletBalance = 300
	}

	reward, err := f.svc.GrantReward(context.Background(), "admin", "u1", 150, "bonus", "", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(300), reward.PreviousBalance)
	assert.Equal(t, int64(450), f.users.users["u1"].WalletBalance)
}

func TestGrantRewardRejectsNonPositiveAmount(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 250})

	_, err := f.svc.GrantReward(context.Background(), "admin", "u1", 0, "bonus", "", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.svc.GrantReward(context.Background(), "admin", "u1", -50, "bonus", "", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestRewardDescriptionFallbacks(t *testing.T) {
	assert.Equal(t, "Reward for position #2 in Free Fire Cup", rewardDescription("", "Free Fire Cup", 2))
	assert.Equal(t, "Reward for Free Fire Cup", rewardDescription("", "Free Fire Cup", 0))
	assert.Equal(t, "manual adjustment", rewardDescription("manual adjustment", "", 0))
	assert.Equal(t, "Wallet reward", rewardDescription("", "", 0))
}

func TestUpdatePaymentSettings(t *testing.T) {
	f := newWalletFixture()
	ctx := context.Background()

	_, err := f.svc.PaymentSettings(ctx)
	assert.True(t, apperrors.IsNotFound(err))

	err = f.svc.UpdatePaymentSettings(ctx, "admin", &models.PaymentSettings{
		Method:        "bkash",
		AccountName:   "<b>Arena</b> Payments",
		AccountNumber: "01700000000",
	})
	require.NoError(t, err)

	settings, err := f.svc.PaymentSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Arena Payments", settings.AccountName)
	assert.Equal(t, "admin", settings.UpdatedBy)

	err = f.svc.UpdatePaymentSettings(ctx, "admin", &models.PaymentSettings{Method: "bkash"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

// Full lifecycle: recharge funds a join, a win is rewarded, the rest is
// withdrawn.
func TestWalletLifecycle(t *testing.T) {
	f := newWalletFixture(&models.User{UserId: "u1", WalletBalance: 0})
	ctx := context.Background()

	recharge, err := f.svc.RequestRecharge(ctx, "u1", "u1@test.com", 1000, "bkash", "TX1", "https://cdn.test/p.png")
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveRecharge(ctx, "admin", "u1", recharge.RequestId, ""))
	assert.Equal(t, int64(1000), f.users.users["u1"].WalletBalance)

	reward, err := f.svc.GrantReward(ctx, "admin", "u1", 500, "", "PUBG Arena", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), reward.NewBalance)

	withdrawal, err := f.svc.RequestWithdrawal(ctx, "u1", "u1@test.com", 1500, validAccount())
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveWithdrawal(ctx, "admin", "u1", withdrawal.RequestId, "paid out"))
	assert.Equal(t, int64(0), f.users.users["u1"].WalletBalance)

	rewards, err := f.svc.ListUserRewards(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, int64(500), rewards[0].Amount)
}

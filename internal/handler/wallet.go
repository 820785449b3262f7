package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/proarena/arena/internal/auth"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
	"github.com/proarena/arena/internal/service"
)

type WalletHandler struct {
	wallet service.WalletService
}

func NewWalletHandler(wallet service.WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

func (h *WalletHandler) Balance(c *fiber.Ctx) error {
	user, err := h.wallet.GetWallet(c.Context(), auth.FromContext(c).UserId)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"balance": user.WalletBalance})
}

type withdrawalRequest struct {
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
}

func (h *WalletHandler) RequestWithdrawal(c *fiber.Ctx) error {
	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	identity := auth.FromContext(c)
	created, err := h.wallet.RequestWithdrawal(c.Context(), identity.UserId, identity.Email, req.Amount, models.PayoutAccount{
		Method:        req.Method,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

type rechargeRequest struct {
	Amount         int64  `json:"amount"`
	PaymentMethod  string `json:"paymentMethod"`
	TransactionRef string `json:"transactionRef"`
	ProofImageURL  string `json:"proofImageUrl"`
}

func (h *WalletHandler) RequestRecharge(c *fiber.Ctx) error {
	var req rechargeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	identity := auth.FromContext(c)
	created, err := h.wallet.RequestRecharge(c.Context(), identity.UserId, identity.Email,
		req.Amount, req.PaymentMethod, req.TransactionRef, req.ProofImageURL)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *WalletHandler) Withdrawals(c *fiber.Ctx) error {
	requests, err := h.wallet.ListUserWithdrawals(c.Context(), auth.FromContext(c).UserId)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"withdrawals": requests})
}

func (h *WalletHandler) Recharges(c *fiber.Ctx) error {
	requests, err := h.wallet.ListUserRecharges(c.Context(), auth.FromContext(c).UserId)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"recharges": requests})
}

// PaymentSettings tells the user where to send a recharge.
func (h *WalletHandler) PaymentSettings(c *fiber.Ctx) error {
	settings, err := h.wallet.PaymentSettings(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(settings)
}

func (h *WalletHandler) Rewards(c *fiber.Ctx) error {
	rewards, err := h.wallet.ListUserRewards(c.Context(), auth.FromContext(c).UserId)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rewards": rewards})
}

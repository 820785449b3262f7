package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/proarena/arena/internal/auth"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
	"github.com/proarena/arena/internal/service"
)

// AdminHandler groups the moderation and back-office endpoints. Every
// route it serves sits behind the admin guard.
type AdminHandler struct {
	tournaments service.TournamentService
	wallet      service.WalletService
	users       service.UserService
}

func NewAdminHandler(tournaments service.TournamentService, wallet service.WalletService, users service.UserService) *AdminHandler {
	return &AdminHandler{
		tournaments: tournaments,
		wallet:      wallet,
		users:       users,
	}
}

// --- tournaments ---

func (h *AdminHandler) CreateTournament(c *fiber.Ctx) error {
	var req tournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	input, err := req.toInput()
	if err != nil {
		return err
	}

	tournament, err := h.tournaments.Create(c.Context(), auth.FromContext(c).UserId, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(tournament)
}

func (h *AdminHandler) UpdateTournament(c *fiber.Ctx) error {
	var req tournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	input, err := req.toInput()
	if err != nil {
		return err
	}

	tournament, err := h.tournaments.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}

	return c.JSON(tournament)
}

func (h *AdminHandler) DeleteTournament(c *fiber.Ctx) error {
	if err := h.tournaments.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (h *AdminHandler) ListByStatus(c *fiber.Ctx) error {
	status := models.TournamentStatus(c.Query("status", string(models.StatusPending)))
	tournaments, err := h.tournaments.ListByStatus(c.Context(), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tournaments": tournaments})
}

func (h *AdminHandler) ApproveTournament(c *fiber.Ctx) error {
	if err := h.tournaments.Approve(c.Context(), auth.FromContext(c).UserId, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"approved": true})
}

type rejectTournamentRequest struct {
	Reason string `json:"reason"`
}

func (h *AdminHandler) RejectTournament(c *fiber.Ctx) error {
	var req rejectTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	if err := h.tournaments.Reject(c.Context(), auth.FromContext(c).UserId, c.Params("id"), req.Reason); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rejected": true})
}

type publishResultRequest struct {
	ResultImageURL string `json:"resultImageUrl"`
	ResultText     string `json:"resultText"`
}

func (h *AdminHandler) PublishResult(c *fiber.Ctx) error {
	var req publishResultRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	if err := h.tournaments.PublishResult(c.Context(), auth.FromContext(c).UserId, c.Params("id"), req.ResultImageURL, req.ResultText); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"published": true})
}

func (h *AdminHandler) RemoveParticipant(c *fiber.Ctx) error {
	if err := h.tournaments.RemoveParticipant(c.Context(), c.Params("id"), c.Params("userId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"removed": true})
}

func (h *AdminHandler) AuditLog(c *fiber.Ctx) error {
	entries, err := h.tournaments.AuditLog(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// --- wallet ---

func (h *AdminHandler) PendingWithdrawals(c *fiber.Ctx) error {
	requests, err := h.wallet.ListPendingWithdrawals(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"withdrawals": requests})
}

func (h *AdminHandler) PendingRecharges(c *fiber.Ctx) error {
	requests, err := h.wallet.ListPendingRecharges(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"recharges": requests})
}

type processRequest struct {
	Notes string `json:"notes"`
}

func (h *AdminHandler) ApproveWithdrawal(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	err := h.wallet.ApproveWithdrawal(c.Context(), auth.FromContext(c).UserId, c.Params("userId"), c.Params("requestId"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"approved": true})
}

func (h *AdminHandler) RejectWithdrawal(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	err := h.wallet.RejectWithdrawal(c.Context(), auth.FromContext(c).UserId, c.Params("userId"), c.Params("requestId"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rejected": true})
}

func (h *AdminHandler) ApproveRecharge(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	err := h.wallet.ApproveRecharge(c.Context(), auth.FromContext(c).UserId, c.Params("userId"), c.Params("requestId"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"approved": true})
}

func (h *AdminHandler) RejectRecharge(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	err := h.wallet.RejectRecharge(c.Context(), auth.FromContext(c).UserId, c.Params("userId"), c.Params("requestId"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rejected": true})
}

type grantRewardRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	GameName    string `json:"gameName"`
	Position    int    `json:"position"`
}

func (h *AdminHandler) GrantReward(c *fiber.Ctx) error {
	var req grantRewardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	reward, err := h.wallet.GrantReward(c.Context(), auth.FromContext(c).UserId, c.Params("userId"),
		req.Amount, req.Description, req.GameName, req.Position)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(reward)
}

type paymentSettingsRequest struct {
	Method        string `json:"method"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	Instructions  string `json:"instructions"`
}

func (h *AdminHandler) UpdatePaymentSettings(c *fiber.Ctx) error {
	var req paymentSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	err := h.wallet.UpdatePaymentSettings(c.Context(), auth.FromContext(c).UserId, &models.PaymentSettings{
		Method:        req.Method,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		Instructions:  req.Instructions,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": true})
}

// --- users ---

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.ListAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) SetUserRole(c *fiber.Ctx) error {
	var req setRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	err := h.users.SetRole(c.Context(), auth.FromContext(c).UserId, c.Params("userId"), models.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": true})
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.users.Delete(c.Context(), auth.FromContext(c).UserId, c.Params("userId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": true})
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/proarena/arena/internal/auth"
	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/ratelimit"
)

type Handlers struct {
	Tournament *TournamentHandler
	Wallet     *WalletHandler
	User       *UserHandler
	Admin      *AdminHandler
	Upload     *UploadHandler
}

// NewRouter builds the fiber app with all routes mounted. The public list
// is throttled by client IP; everything else goes through the gateway
// identity middleware first, so the rate limiter keys on the user id,
// with funds movement additionally requiring a verified email.
func NewRouter(h Handlers, limiter ratelimit.Limiter, log *logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(log),
	})

	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/tournaments", RateLimit(limiter), h.Tournament.List)

	secured := app.Group("/", auth.Middleware(), RateLimit(limiter))

	secured.Get("/me", h.User.Me)

	secured.Get("/tournaments/:id", h.Tournament.Get)
	secured.Get("/tournaments/:id/participants", h.Tournament.Participants)
	secured.Post("/tournaments/submit", h.Tournament.Submit)

	verified := secured.Group("/", auth.RequireVerifiedEmail())
	verified.Post("/tournaments/:id/join", h.Tournament.Join)
	verified.Get("/wallet", h.Wallet.Balance)
	verified.Post("/wallet/withdrawals", h.Wallet.RequestWithdrawal)
	verified.Get("/wallet/withdrawals", h.Wallet.Withdrawals)
	verified.Post("/wallet/recharges", h.Wallet.RequestRecharge)
	verified.Get("/wallet/recharges", h.Wallet.Recharges)
	verified.Get("/wallet/rewards", h.Wallet.Rewards)
	verified.Get("/wallet/payment-settings", h.Wallet.PaymentSettings)
	verified.Post("/uploads/payment-proof", h.Upload.PaymentProof)

	admin := secured.Group("/admin", auth.RequireAdmin())

	admin.Post("/tournaments", h.Admin.CreateTournament)
	admin.Get("/tournaments", h.Admin.ListByStatus)
	admin.Put("/tournaments/:id", h.Admin.UpdateTournament)
	admin.Delete("/tournaments/:id", h.Admin.DeleteTournament)
	admin.Post("/tournaments/:id/approve", h.Admin.ApproveTournament)
	admin.Post("/tournaments/:id/reject", h.Admin.RejectTournament)
	admin.Post("/tournaments/:id/result", h.Admin.PublishResult)
	admin.Delete("/tournaments/:id/participants/:userId", h.Admin.RemoveParticipant)
	admin.Get("/tournaments/:id/audit", h.Admin.AuditLog)

	admin.Get("/withdrawals", h.Admin.PendingWithdrawals)
	admin.Post("/withdrawals/:userId/:requestId/approve", h.Admin.ApproveWithdrawal)
	admin.Post("/withdrawals/:userId/:requestId/reject", h.Admin.RejectWithdrawal)
	admin.Get("/recharges", h.Admin.PendingRecharges)
	admin.Post("/recharges/:userId/:requestId/approve", h.Admin.ApproveRecharge)
	admin.Post("/recharges/:userId/:requestId/reject", h.Admin.RejectRecharge)
	admin.Post("/users/:userId/rewards", h.Admin.GrantReward)
	admin.Put("/payment-settings", h.Admin.UpdatePaymentSettings)

	admin.Get("/users", h.Admin.ListUsers)
	admin.Patch("/users/:userId/role", h.Admin.SetUserRole)
	admin.Delete("/users/:userId", h.Admin.DeleteUser)

	admin.Post("/uploads/logo", h.Upload.Logo)
	admin.Post("/uploads/result", h.Upload.Result)

	return app
}

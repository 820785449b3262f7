package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/proarena/arena/internal/auth"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
	"github.com/proarena/arena/internal/service"
)

type TournamentHandler struct {
	tournaments service.TournamentService
}

func NewTournamentHandler(tournaments service.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments}
}

type tournamentRequest struct {
	Name            string `json:"name"`
	GameType        string `json:"gameType"`
	StartsAt        string `json:"startsAt"`
	EntryFee        int64  `json:"entryFee"`
	PrizePool       int64  `json:"prizePool"`
	PerKillBonus    int64  `json:"perKillBonus"`
	MaxParticipants int    `json:"maxParticipants"`
	MatchDetails    string `json:"matchDetails"`
	Rules           string `json:"rules"`
}

func (r *tournamentRequest) toInput() (service.CreateTournamentInput, error) {
	startsAt, err := time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return service.CreateTournamentInput{}, apperrors.New(apperrors.CodeValidation, "startsAt must be an RFC 3339 timestamp")
	}

	return service.CreateTournamentInput{
		Name:            r.Name,
		GameType:        models.GameType(r.GameType),
		StartsAt:        startsAt,
		EntryFee:        r.EntryFee,
		PrizePool:       r.PrizePool,
		PerKillBonus:    r.PerKillBonus,
		MaxParticipants: r.MaxParticipants,
		MatchDetails:    r.MatchDetails,
		Rules:           r.Rules,
	}, nil
}

func (h *TournamentHandler) List(c *fiber.Ctx) error {
	tournaments, err := h.tournaments.ListPublic(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tournaments": tournaments})
}

func (h *TournamentHandler) Get(c *fiber.Ctx) error {
	tournament, err := h.tournaments.GetById(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	// Pending and rejected submissions are only visible to the submitter
	// and admins.
	identity := auth.FromContext(c)
	if !tournament.PubliclyVisible() && !identity.IsAdmin() && tournament.CreatedBy != identity.UserId {
		return apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}

	return c.JSON(tournament)
}

// Submit is the user-facing proposal endpoint; the tournament stays
// pending until an admin approves it.
func (h *TournamentHandler) Submit(c *fiber.Ctx) error {
	var req tournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	input, err := req.toInput()
	if err != nil {
		return err
	}

	tournament, err := h.tournaments.Submit(c.Context(), auth.FromContext(c).UserId, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(tournament)
}

type joinRequest struct {
	Username string `json:"username"`
}

func (h *TournamentHandler) Join(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.New(apperrors.CodeValidation, "invalid request body")
	}

	identity := auth.FromContext(c)
	if err := h.tournaments.Join(c.Context(), identity.UserId, identity.Email, c.Params("id"), req.Username); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"joined": true})
}

func (h *TournamentHandler) Participants(c *fiber.Ctx) error {
	participants, err := h.tournaments.Participants(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"participants": participants})
}

package models

import (
	"fmt"
	"strings"
	"time"
)

type TournamentStatus string

const (
	StatusPending   TournamentStatus = "pending"
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
	StatusRejected  TournamentStatus = "rejected"
)

// statusTransitions is the closed transition table. Status never moves
// backward: pending->upcoming->live->completed, or pending->rejected.
var statusTransitions = map[TournamentStatus][]TournamentStatus{
	StatusPending:   {StatusUpcoming, StatusRejected},
	StatusUpcoming:  {StatusLive},
	StatusLive:      {StatusCompleted},
	StatusCompleted: {},
	StatusRejected:  {},
}

func (s TournamentStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition exists from this status.
func (s TournamentStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

func (s TournamentStatus) String() string {
	return string(s)
}

type GameType string

const (
	GamePUBG     GameType = "pubg"
	GameFreeFire GameType = "free_fire"
	GameCODM     GameType = "cod_mobile"
	GameOther    GameType = "other"
)

func (g GameType) Valid() bool {
	switch g {
	case GamePUBG, GameFreeFire, GameCODM, GameOther:
		return true
	}
	return false
}

type Tournament struct {
	TournamentId     string           `dynamodbav:"tournament_id" json:"tournamentId"`
	Name             string           `dynamodbav:"name" json:"name"`
	GameType         GameType         `dynamodbav:"game_type" json:"gameType"`
	Status           TournamentStatus `dynamodbav:"status" json:"status"`
	StartsAt         time.Time        `dynamodbav:"starts_at" json:"startsAt"`
	EntryFee         int64            `dynamodbav:"entry_fee" json:"entryFee"`
	PrizePool        int64            `dynamodbav:"prize_pool" json:"prizePool"`
	PerKillBonus     int64            `dynamodbav:"per_kill_bonus" json:"perKillBonus"`
	MaxParticipants  int              `dynamodbav:"max_participants" json:"maxParticipants"`
	ParticipantCount int              `dynamodbav:"participant_count" json:"participantCount"`
	MatchDetails     string           `dynamodbav:"match_details" json:"matchDetails"`
	Rules            string           `dynamodbav:"rules" json:"rules"`
	ResultImageURL   string           `dynamodbav:"result_image_url,omitempty" json:"resultImageUrl,omitempty"`
	ResultText       string           `dynamodbav:"result_text,omitempty" json:"resultText,omitempty"`
	CreatedBy        string           `dynamodbav:"created_by" json:"createdBy"`
	UserSubmitted    bool             `dynamodbav:"user_submitted" json:"userSubmitted"`
	RejectionReason  string           `dynamodbav:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	StatusUpdatedAt  *time.Time       `dynamodbav:"status_updated_at,omitempty" json:"statusUpdatedAt,omitempty"`
	CreatedAt        time.Time        `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt        time.Time        `dynamodbav:"updated_at" json:"updatedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
}

// PubliclyVisible reports whether the tournament appears in user-facing lists.
// Pending submissions and rejected tournaments are admin-only.
func (t *Tournament) PubliclyVisible() bool {
	return t.Status != StatusPending && t.Status != StatusRejected
}

func (t *Tournament) Full() bool {
	return t.ParticipantCount >= t.MaxParticipants
}

type Participant struct {
	TournamentId string    `dynamodbav:"tournament_id" json:"tournamentId"`
	UserId       string    `dynamodbav:"user_id" json:"userId"`
	Email        string    `dynamodbav:"email" json:"email"`
	Username     string    `dynamodbav:"username" json:"username"`
	JoinedAt     time.Time `dynamodbav:"joined_at" json:"joinedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

// Key handlers
func TournamentPK(tournamentId string) string {
	return fmt.Sprintf("TOURNAMENT#%s", tournamentId)
}

func MetaSK() string {
	return "META"
}

func ParticipantSK(userId string) string {
	return fmt.Sprintf("PARTICIPANT#%s", userId)
}

// UsernameSK keys the per-tournament claim item that makes in-game
// usernames unique case-insensitively.
func UsernameSK(username string) string {
	return fmt.Sprintf("USERNAME#%s", strings.ToLower(strings.TrimSpace(username)))
}

func StatusGSI1PK(status TournamentStatus) string {
	return fmt.Sprintf("STATUS#%s", status)
}

func StartTimeGSI1SK(startsAt time.Time) string {
	return fmt.Sprintf("START#%s", startsAt.UTC().Format(time.RFC3339))
}

func ExtractTournamentID(pk string) (string, error) {
	if len(pk) < 12 || pk[:11] != "TOURNAMENT#" {
		return "", fmt.Errorf("invalid tournament PK format: %s", pk)
	}
	return pk[11:], nil
}

package events

import (
	"time"

	"github.com/proarena/arena/internal/models"
)

const (
	// Streams
	TournamentEventsStream = "TOURNAMENT_EVENTS"
	WalletEventsStream     = "WALLET_EVENTS"

	// Subjects
	TournamentStatusChanged = "events.tournament.statusChanged"
	TournamentJoined        = "events.tournament.joined"
	TournamentChanged       = "events.tournament.changed"

	WalletWithdrawalApproved = "events.wallet.withdrawalApproved"
	WalletRechargeApproved   = "events.wallet.rechargeApproved"
	WalletRewardGranted      = "events.wallet.rewardGranted"

	// Subject wildcards
	TournamentEventsWildcard = "events.tournament.*"
	WalletEventsWildcard     = "events.wallet.*"
)

type StatusChanged struct {
	TournamentId   string                  `json:"tournamentId"`
	PreviousStatus models.TournamentStatus `json:"previousStatus"`
	NewStatus      models.TournamentStatus `json:"newStatus"`
	Actor          string                  `json:"actor"`
	Reason         string                  `json:"reason"`
	OccurredAt     time.Time               `json:"occurredAt"`
}

type Joined struct {
	TournamentId string    `json:"tournamentId"`
	UserId       string    `json:"userId"`
	Username     string    `json:"username"`
	EntryFee     int64     `json:"entryFee"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// TournamentChangedEvent covers creates, updates, and deletes; subscribers
// that only need cache invalidation ignore everything but the id.
type TournamentChangedEvent struct {
	TournamentId string    `json:"tournamentId"`
	Change       string    `json:"change"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type WalletLedger struct {
	UserId     string    `json:"userId"`
	Amount     int64     `json:"amount"`
	Kind       string    `json:"kind"`
	RequestId  string    `json:"requestId,omitempty"`
	RewardId   string    `json:"rewardId,omitempty"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    TournamentStatus
		to      TournamentStatus
		allowed bool
	}{
		{StatusPending, StatusUpcoming, true},
		{StatusPending, StatusRejected, true},
		{StatusUpcoming, StatusLive, true},
		{StatusLive, StatusCompleted, true},

		// Status never moves backward or skips a step.
		{StatusPending, StatusLive, false},
		{StatusPending, StatusCompleted, false},
		{StatusUpcoming, StatusPending, false},
		{StatusUpcoming, StatusCompleted, false},
		{StatusUpcoming, StatusRejected, false},
		{StatusLive, StatusUpcoming, false},
		{StatusLive, StatusRejected, false},
		{StatusCompleted, StatusLive, false},
		{StatusCompleted, StatusUpcoming, false},
		{StatusRejected, StatusUpcoming, false},
		{StatusRejected, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusUpcoming.Terminal())
	assert.False(t, StatusLive.Terminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, TournamentStatus("archived").Valid())
	assert.False(t, TournamentStatus("").Valid())
}

func TestPubliclyVisible(t *testing.T) {
	assert.False(t, (&Tournament{Status: StatusPending}).PubliclyVisible())
	assert.False(t, (&Tournament{Status: StatusRejected}).PubliclyVisible())
	assert.True(t, (&Tournament{Status: StatusUpcoming}).PubliclyVisible())
	assert.True(t, (&Tournament{Status: StatusLive}).PubliclyVisible())
	assert.True(t, (&Tournament{Status: StatusCompleted}).PubliclyVisible())
}

func TestFull(t *testing.T) {
	tournament := &Tournament{MaxParticipants: 2, ParticipantCount: 1}
	assert.False(t, tournament.Full())

	tournament.ParticipantCount = 2
	assert.True(t, tournament.Full())
}

func TestUsernameSKCaseInsensitive(t *testing.T) {
	assert.Equal(t, UsernameSK("SniperKing"), UsernameSK("sniperking"))
	assert.Equal(t, UsernameSK("  SniperKing  "), UsernameSK("sniperking"))
	assert.NotEqual(t, UsernameSK("sniperking"), UsernameSK("sniperqueen"))
}

func TestExtractTournamentID(t *testing.T) {
	id, err := ExtractTournamentID(TournamentPK("abc-123"))
	assert.NoError(t, err)
	assert.Equal(t, "abc-123", id)

	_, err = ExtractTournamentID("USER#abc")
	assert.Error(t, err)
}

func TestStartTimeGSI1SKOrdersChronologically(t *testing.T) {
	earlier := StartTimeGSI1SK(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	later := StartTimeGSI1SK(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))
	assert.Less(t, earlier, later)
}

func TestGameTypeValid(t *testing.T) {
	assert.True(t, GamePUBG.Valid())
	assert.True(t, GameOther.Valid())
	assert.False(t, GameType("chess").Valid())
}

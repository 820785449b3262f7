package models

import (
	"fmt"
	"time"
)

const ActorSystem = "system"

// AuditEntry records a status transition on a tournament. Entries under a
// tournament's partition form its transition history.
type AuditEntry struct {
	AuditId        string           `dynamodbav:"audit_id" json:"auditId"`
	TournamentId   string           `dynamodbav:"tournament_id" json:"tournamentId"`
	PreviousStatus TournamentStatus `dynamodbav:"previous_status" json:"previousStatus"`
	NewStatus      TournamentStatus `dynamodbav:"new_status" json:"newStatus"`
	Actor          string           `dynamodbav:"actor" json:"actor"`
	Reason         string           `dynamodbav:"reason" json:"reason"`
	OccurredAt     time.Time        `dynamodbav:"occurred_at" json:"occurredAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

func AuditSK(occurredAt time.Time, auditId string) string {
	return fmt.Sprintf("AUDIT#%s#%s", occurredAt.UTC().Format(time.RFC3339), auditId)
}

func AuditSKPrefix() string {
	return "AUDIT#"
}

package models

import (
	"fmt"
	"time"
)

// RewardRecord is the append-only ledger entry for an admin-granted credit.
// It is written once, in the same transaction as the balance credit, and
// never mutated.
type RewardRecord struct {
	RewardId        string    `dynamodbav:"reward_id" json:"rewardId"`
	UserId          string    `dynamodbav:"user_id" json:"userId"`
	Amount          int64     `dynamodbav:"amount" json:"amount"`
	Description     string    `dynamodbav:"description" json:"description"`
	GameName        string    `dynamodbav:"game_name,omitempty" json:"gameName,omitempty"`
	Position        int       `dynamodbav:"position,omitempty" json:"position,omitempty"`
	PreviousBalance int64     `dynamodbav:"previous_balance" json:"previousBalance"`
	NewBalance      int64     `dynamodbav:"new_balance" json:"newBalance"`
	GrantedBy       string    `dynamodbav:"granted_by" json:"grantedBy"`
	GrantedAt       time.Time `dynamodbav:"granted_at" json:"grantedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

// Rewards live under the recipient's partition so a user's reward history
// is a single range query.
func RewardSK(grantedAt time.Time, rewardId string) string {
	return fmt.Sprintf("REWARD#%s#%s", grantedAt.UTC().Format(time.RFC3339), rewardId)
}

func RewardSKPrefix() string {
	return "REWARD#"
}

package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	UserId            string    `dynamodbav:"user_id" json:"userId"`
	Email             string    `dynamodbav:"email" json:"email"`
	Role              Role      `dynamodbav:"role" json:"role"`
	WalletBalance     int64     `dynamodbav:"wallet_balance" json:"walletBalance"`
	JoinedTournaments []string  `dynamodbav:"joined_tournaments,omitempty" json:"joinedTournaments"`
	CreatedAt         time.Time `dynamodbav:"created_at" json:"createdAt"`
	LastLoginAt       time.Time `dynamodbav:"last_login_at" json:"lastLoginAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Key handlers
func UserPK(userId string) string {
	return fmt.Sprintf("USER#%s", userId)
}

func ProfileSK() string {
	return "PROFILE"
}

func ExtractUserID(pk string) (string, error) {
	if len(pk) < 6 || pk[:5] != "USER#" {
		return "", fmt.Errorf("invalid user PK format: %s", pk)
	}
	return pk[5:], nil
}

package models

import "time"

// PaymentSettings is the singleton document holding the account details
// shown to users when they submit a recharge proof.
type PaymentSettings struct {
	Method        string    `dynamodbav:"method" json:"method"`
	AccountName   string    `dynamodbav:"account_name" json:"accountName"`
	AccountNumber string    `dynamodbav:"account_number" json:"accountNumber"`
	Instructions  string    `dynamodbav:"instructions" json:"instructions"`
	UpdatedBy     string    `dynamodbav:"updated_by" json:"updatedBy"`
	UpdatedAt     time.Time `dynamodbav:"updated_at" json:"updatedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

func SettingsPK() string {
	return "SETTINGS"
}

func PaymentSettingsSK() string {
	return "PAYMENT"
}

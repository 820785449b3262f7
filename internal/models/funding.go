package models

import (
	"fmt"
	"time"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// PayoutAccount is where an approved withdrawal is sent. All fields are
// required on submission.
type PayoutAccount struct {
	Method        string `dynamodbav:"method" json:"method"`
	AccountName   string `dynamodbav:"account_name" json:"accountName"`
	AccountNumber string `dynamodbav:"account_number" json:"accountNumber"`
}

type WithdrawalRequest struct {
	RequestId   string        `dynamodbav:"request_id" json:"requestId"`
	UserId      string        `dynamodbav:"user_id" json:"userId"`
	Email       string        `dynamodbav:"email" json:"email"`
	Amount      int64         `dynamodbav:"amount" json:"amount"`
	Account     PayoutAccount `dynamodbav:"account" json:"account"`
	Status      RequestStatus `dynamodbav:"status" json:"status"`
	AdminNotes  string        `dynamodbav:"admin_notes,omitempty" json:"adminNotes,omitempty"`
	SubmittedAt time.Time     `dynamodbav:"submitted_at" json:"submittedAt"`
	ProcessedAt *time.Time    `dynamodbav:"processed_at,omitempty" json:"processedAt,omitempty"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
}

type RechargeRequest struct {
	RequestId      string        `dynamodbav:"request_id" json:"requestId"`
	UserId         string        `dynamodbav:"user_id" json:"userId"`
	Email          string        `dynamodbav:"email" json:"email"`
	Amount         int64         `dynamodbav:"amount" json:"amount"`
	PaymentMethod  string        `dynamodbav:"payment_method" json:"paymentMethod"`
	TransactionRef string        `dynamodbav:"transaction_ref" json:"transactionRef"`
	ProofImageURL  string        `dynamodbav:"proof_image_url" json:"proofImageUrl"`
	Status         RequestStatus `dynamodbav:"status" json:"status"`
	AdminNotes     string        `dynamodbav:"admin_notes,omitempty" json:"adminNotes,omitempty"`
	SubmittedAt    time.Time     `dynamodbav:"submitted_at" json:"submittedAt"`
	ProcessedAt    *time.Time    `dynamodbav:"processed_at,omitempty" json:"processedAt,omitempty"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
}

// Key handlers. Funding requests live under the requester's partition, so a
// user's funding history is a single range query; admin views go through GSI1.
func WithdrawalSK(requestId string) string {
	return fmt.Sprintf("WITHDRAWAL#%s", requestId)
}

func RechargeSK(requestId string) string {
	return fmt.Sprintf("RECHARGE#%s", requestId)
}

func WithdrawalStatusGSI1PK(status RequestStatus) string {
	return fmt.Sprintf("WITHDRAWAL_STATUS#%s", status)
}

func RechargeStatusGSI1PK(status RequestStatus) string {
	return fmt.Sprintf("RECHARGE_STATUS#%s", status)
}

func SubmittedGSI1SK(submittedAt time.Time) string {
	return fmt.Sprintf("SUBMITTED#%s", submittedAt.UTC().Format(time.RFC3339))
}

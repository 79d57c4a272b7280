package models

import "time"

// PaymentStatus tracks the locally known state of a session's payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "Pending"
	PaymentProcessing PaymentStatus = "Processing"
	PaymentPaid       PaymentStatus = "Paid"
	PaymentConfirmed  PaymentStatus = "Confirmed"
	PaymentFailed     PaymentStatus = "Failed"
)

// PaymentAttempt is one entry in the append-only attempt log.
type PaymentAttempt struct {
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	Amount     int64     `bson:"amount" json:"amount"`
	Reference  string    `bson:"reference" json:"reference"`
	ResultCode string    `bson:"result_code" json:"resultCode"`
	ResultDesc string    `bson:"result_desc,omitempty" json:"resultDesc,omitempty"`
	Success    bool      `bson:"success" json:"success"`
}

// PaymentInfo holds the locally stored payment facts for a session.
// Attempts only ever grows; it is never rewritten or truncated.
type PaymentInfo struct {
	Status          PaymentStatus    `bson:"status" json:"status"`
	TransactionRef  string           `bson:"transaction_ref,omitempty" json:"transactionRef,omitempty"`
	Amount          int64            `bson:"amount" json:"amount"`
	Currency        string           `bson:"currency,omitempty" json:"currency,omitempty"`
	MethodRef       string           `bson:"method_ref,omitempty" json:"methodRef,omitempty"`
	Phone           string           `bson:"phone,omitempty" json:"phone,omitempty"`
	Attempts        []PaymentAttempt `bson:"attempts" json:"attempts"`
	StatusChangedAt time.Time        `bson:"status_changed_at" json:"statusChangedAt"`
}

// ExternalPaymentFacts is the gateway's authoritative view of a transaction.
type ExternalPaymentFacts struct {
	TransactionRef string        `json:"transactionRef"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	Status         PaymentStatus `json:"status"`
	ResultCode     string        `json:"resultCode"`
	ResultDesc     string        `json:"resultDesc"`
}

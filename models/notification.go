package models

// EmailMessage is the payload handed to the email channel.
type EmailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
	TextBody string `json:"textBody"`
}

// SMSMessage is the payload handed to the SMS channel.
type SMSMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendOutcome is the terminal result of a notification attempt, after any
// retries. Skipped means policy decided not to send at all.
type SendOutcome string

const (
	SendSucceeded SendOutcome = "succeeded"
	SendFailed    SendOutcome = "failed"
	SendSkipped   SendOutcome = "skipped"
)

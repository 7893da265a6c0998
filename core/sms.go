package core

import "context"

type SMSMessage struct {
	To   string // E.164 phone number
	Body string
}

// SMSService is any service that can send text messages.
type SMSService interface {
	SendSMS(ctx context.Context, messages ...SMSMessage) error
}

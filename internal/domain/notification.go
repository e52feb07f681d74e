package domain

import "time"

// Notification statuses. A row stays "pending" until the worker delivers it,
// so undelivered mail survives restarts and is retried (at-least-once).
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
)

// Notification kinds, one per message template.
const (
	KindWelcome       = "welcome"
	KindConfirmEmail  = "confirm_email"
	KindPasswordReset = "password_reset"
)

// Notification is an outbox row for an outgoing email.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Kind           string    `json:"kind" dynamodbav:"kind"`
	Recipient      string    `json:"recipient" dynamodbav:"recipient"`
	Subject        string    `json:"subject" dynamodbav:"subject"`
	Body           string    `json:"-" dynamodbav:"body"`
	Status         string    `json:"status" dynamodbav:"status"`
	Attempts       int       `json:"attempts" dynamodbav:"attempts"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

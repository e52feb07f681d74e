package domain

import (
	"strings"
	"time"
)

type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	Username       string    `json:"username" dynamodbav:"username"`
	FirstName      string    `json:"first_name" dynamodbav:"first_name"`
	LastName       string    `json:"last_name" dynamodbav:"last_name"`
	Phone          string    `json:"phone,omitempty" dynamodbav:"phone"`
	Address1       string    `json:"address1,omitempty" dynamodbav:"address1"`
	Address2       string    `json:"address2,omitempty" dynamodbav:"address2"`
	City           string    `json:"city,omitempty" dynamodbav:"city"`
	Country        string    `json:"country,omitempty" dynamodbav:"country"`
	Province       string    `json:"province,omitempty" dynamodbav:"province"`
	PostalCode     string    `json:"postal_code,omitempty" dynamodbav:"postal_code"`
	MarketingEmail bool      `json:"marketing_email" dynamodbav:"marketing_email"`
	MarketingSMS   bool      `json:"marketing_sms" dynamodbav:"marketing_sms"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed bool      `json:"email_confirmed" dynamodbav:"email_confirmed"`
	Enable         bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// NormalizeEmail lower-cases the domain part of an address and trims
// surrounding whitespace. The stored email and the uniqueness claim both use
// the normalized form.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return strings.ToLower(email)
	}
	return email[:at] + strings.ToLower(email[at:])
}

type CreateUserRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,max=150"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type UpdateUserRequest struct {
	Email          *string `json:"email" validate:"omitempty,email"`
	Username       *string `json:"username" validate:"omitempty,max=150"`
	FirstName      *string `json:"first_name" validate:"omitempty,max=100"`
	LastName       *string `json:"last_name" validate:"omitempty,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=15"`
	Address1       *string `json:"address1" validate:"omitempty,max=255"`
	Address2       *string `json:"address2" validate:"omitempty,max=255"`
	City           *string `json:"city" validate:"omitempty,max=255"`
	Country        *string `json:"country" validate:"omitempty,max=150"`
	Province       *string `json:"province" validate:"omitempty,max=255"`
	PostalCode     *string `json:"postal_code" validate:"omitempty,max=15"`
	MarketingEmail *bool   `json:"marketing_email"`
	MarketingSMS   *bool   `json:"marketing_sms"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	NewPasswordConf string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

type ResetPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	NewPasswordConf string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

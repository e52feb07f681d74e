package notify

import (
	"fmt"

	"github.com/go-identity-api/internal/domain"
)

// Params carries the per-message template values.
type Params struct {
	FirstName string
	Email     string
	ActionURL string
}

// compose renders the subject and body for a notification kind.
func compose(kind string, p Params) (subject, body string, err error) {
	name := p.FirstName
	if name == "" {
		name = p.Email
	}
	switch kind {
	case domain.KindWelcome:
		subject = "Welcome to our platform!"
		body = fmt.Sprintf(
			"Hello %s!\n\n"+
				"Thank you for joining our platform. We are happy to have you here!\n\n"+
				"Best wishes,\nThe team",
			name)
	case domain.KindConfirmEmail:
		subject = "Activate your account"
		body = fmt.Sprintf(
			"Hello %s!\n\n"+
				"Follow the link below to activate your account %s:\n%s\n\n"+
				"If you did not request this, ignore this message.\n\n"+
				"Best wishes,\nThe team",
			name, p.Email, p.ActionURL)
	case domain.KindPasswordReset:
		subject = "Password reset"
		body = fmt.Sprintf(
			"Hello %s!\n\n"+
				"Follow the link below to set a new password:\n%s\n\n"+
				"If you did not request this, ignore this message.\n\n"+
				"Best wishes,\nThe team",
			name, p.ActionURL)
	default:
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}
	return subject, body, nil
}

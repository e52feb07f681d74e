// Package verification drives the two token-gated flows: email confirmation
// and password reset. Both follow the same shape — an authenticated (or
// email-identified) request step that mails out a callback link, and an
// unauthenticated redemption step that validates the embedded token against
// the account's current state before mutating it.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-identity-api/internal/domain"
	"github.com/go-identity-api/internal/notify"
	"github.com/go-identity-api/internal/pkg/password"
	"github.com/go-identity-api/internal/pkg/token"
	"github.com/go-identity-api/internal/pkg/validate"
)

// Callback paths mirrored by the router. The uid segment is the reversible
// encoding of the account id; the token next to it carries the security.
const (
	confirmEmailPath  = "/v1/confirm-email/%s/%s"
	passwordResetPath = "/v1/password-reset/confirm/%s/%s"
)

type Service interface {
	// RequestEmailConfirmation mails an activation link to the caller's own
	// address. Already-confirmed accounts get ErrAlreadyConfirmed — an
	// informational outcome, not a failure, and no token is issued.
	RequestEmailConfirmation(ctx context.Context, userID string) error

	// ConfirmEmail redeems an activation link. Every failure mode collapses
	// into ErrInvalidToken so the response never reveals whether the account
	// exists or why the token was rejected.
	ConfirmEmail(ctx context.Context, uid, tok string) error

	// RequestPasswordReset mails a reset link if the address has an account.
	// An unknown address returns nil all the same: the response must not
	// disclose which emails are registered.
	RequestPasswordReset(ctx context.Context, email string) error

	// ConfirmPasswordReset redeems a reset link and installs a new credential.
	// Validation failure is explicit (ErrInvalidToken) — this path never
	// pretends success.
	ConfirmPasswordReset(ctx context.Context, uid, tok string, req domain.ResetPasswordRequest) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetEmailConfirmed(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type sessionStore interface {
	DisableByUser(ctx context.Context, userID string) error
}

type notifier interface {
	Send(ctx context.Context, kind, userID, recipient string, p notify.Params)
}

type service struct {
	userRepo    userStore
	sessionRepo sessionStore
	tokens      *token.Generator
	notifier    notifier
	siteURL     string
}

type ServiceDeps struct {
	UserRepo    userStore
	SessionRepo sessionStore
	Tokens      *token.Generator
	Notifier    notifier
	SiteURL     string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:    deps.UserRepo,
		sessionRepo: deps.SessionRepo,
		tokens:      deps.Tokens,
		notifier:    deps.Notifier,
		siteURL:     deps.SiteURL,
	}
}

func (s *service) RequestEmailConfirmation(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.EmailConfirmed {
		return domain.ErrAlreadyConfirmed
	}
	tok, err := s.tokens.Issue(u, token.PurposeConfirmEmail)
	if err != nil {
		return err
	}
	slog.Info("sending activation email", "user_id", u.UserID)
	s.notifier.Send(ctx, domain.KindConfirmEmail, u.UserID, u.Email, notify.Params{
		FirstName: u.FirstName,
		Email:     u.Email,
		ActionURL: s.siteURL + fmt.Sprintf(confirmEmailPath, token.EncodeUID(u.UserID), tok),
	})
	return nil
}

func (s *service) ConfirmEmail(ctx context.Context, uid, tok string) error {
	u, err := s.resolveUID(ctx, uid)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if u.EmailConfirmed {
		return domain.ErrAlreadyConfirmed
	}
	if !s.tokens.Check(u, token.PurposeConfirmEmail, tok) {
		return domain.ErrInvalidToken
	}
	err = s.userRepo.SetEmailConfirmed(ctx, u.UserID)
	if errors.Is(err, domain.ErrAlreadyConfirmed) {
		// Lost a race with another redemption of the same link. The account
		// is in the desired state, so this is the same informational no-op.
		return domain.ErrAlreadyConfirmed
	}
	if err != nil {
		return err
	}
	slog.Info("email confirmed", "user_id", u.UserID)
	return nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		// Deliberately indistinguishable from the found case.
		slog.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	tok, err := s.tokens.Issue(u, token.PurposePasswordReset)
	if err != nil {
		return err
	}
	slog.Info("sending password reset email", "user_id", u.UserID)
	s.notifier.Send(ctx, domain.KindPasswordReset, u.UserID, u.Email, notify.Params{
		FirstName: u.FirstName,
		Email:     u.Email,
		ActionURL: s.siteURL + fmt.Sprintf(passwordResetPath, token.EncodeUID(u.UserID), tok),
	})
	return nil
}

func (s *service) ConfirmPasswordReset(ctx context.Context, uid, tok string, req domain.ResetPasswordRequest) error {
	u, err := s.resolveUID(ctx, uid)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if !s.tokens.Check(u, token.PurposePasswordReset, tok) {
		return domain.ErrInvalidToken
	}
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	// Replacing the hash also invalidates the token that got us here: the
	// reset fingerprint is derived from the credential itself.
	if err := s.userRepo.UpdatePassword(ctx, u.UserID, hash); err != nil {
		return err
	}
	if err := s.sessionRepo.DisableByUser(ctx, u.UserID); err != nil {
		slog.Warn("could not end sessions after password reset", "user_id", u.UserID, "err", err)
	}
	slog.Info("password reset completed", "user_id", u.UserID)
	return nil
}

// resolveUID decodes a callback uid segment and loads the account. Callers
// map any failure to the generic invalid-link outcome.
func (s *service) resolveUID(ctx context.Context, uid string) (*domain.User, error) {
	userID, err := token.DecodeUID(uid)
	if err != nil {
		return nil, err
	}
	return s.userRepo.Get(ctx, userID)
}

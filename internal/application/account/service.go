package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-identity-api/internal/domain"
	"github.com/go-identity-api/internal/notify"
	"github.com/go-identity-api/internal/pkg/id"
	"github.com/go-identity-api/internal/pkg/password"
	"github.com/go-identity-api/internal/pkg/sanitize"
	"github.com/go-identity-api/internal/pkg/validate"
)

// User table attribute names used in partial update maps.
const (
	fieldUsername       = "username"
	fieldFirstName      = "first_name"
	fieldLastName       = "last_name"
	fieldPhone          = "phone"
	fieldAddress1       = "address1"
	fieldAddress2       = "address2"
	fieldCity           = "city"
	fieldCountry        = "country"
	fieldProvince       = "province"
	fieldPostalCode     = "postal_code"
	fieldMarketingEmail = "marketing_email"
	fieldMarketingSMS   = "marketing_sms"
)

type Service interface {
	// Register creates an unconfirmed account and establishes a session for
	// it — registration implies login. The welcome email is fire-and-forget.
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.Session, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	ChangeEmail(ctx context.Context, userID, oldEmail, newEmail string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type sessionEstablisher interface {
	Establish(ctx context.Context, u *domain.User) (*domain.Session, string, error)
}

type notifier interface {
	Send(ctx context.Context, kind, userID, recipient string, p notify.Params)
}

type service struct {
	repo     userStore
	sessions sessionEstablisher
	notifier notifier
}

type ServiceDeps struct {
	UserRepo userStore
	Sessions sessionEstablisher
	Notifier notifier
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.UserRepo,
		sessions: deps.Sessions,
		notifier: deps.Notifier,
	}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.Session, string, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, "", fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        domain.NormalizeEmail(req.Email),
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		// A fresh account is never confirmed; only token redemption flips this.
		EmailConfirmed: false,
		Enable:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// Uniqueness is the store's job: the transactional claim write rejects a
	// duplicate address even when two registrations race.
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", err
	}
	sess, bearer, err := s.sessions.Establish(ctx, u)
	if err != nil {
		return nil, "", err
	}
	s.notifier.Send(ctx, domain.KindWelcome, u.UserID, u.Email, notify.Params{
		FirstName: u.FirstName,
		Email:     u.Email,
	})
	sess.User = u
	return sess, bearer, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		updates[fieldUsername] = *req.Username
	}
	if req.FirstName != nil {
		updates[fieldFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[fieldLastName] = *req.LastName
	}
	// Free-text profile fields are stripped of markup before they are stored.
	for field, v := range map[string]*string{
		fieldPhone:      req.Phone,
		fieldAddress1:   req.Address1,
		fieldAddress2:   req.Address2,
		fieldCity:       req.City,
		fieldCountry:    req.Country,
		fieldProvince:   req.Province,
		fieldPostalCode: req.PostalCode,
	} {
		if v != nil {
			updates[field] = sanitize.StripTags(*v)
		}
	}
	if req.MarketingEmail != nil {
		updates[fieldMarketingEmail] = *req.MarketingEmail
	}
	if req.MarketingSMS != nil {
		updates[fieldMarketingSMS] = *req.MarketingSMS
	}

	// An email change swaps the uniqueness claim transactionally and reverts
	// email_confirmed — the new address has not been verified.
	if req.Email != nil {
		newEmail := domain.NormalizeEmail(*req.Email)
		if newEmail != u.Email {
			if err := s.repo.ChangeEmail(ctx, userID, u.Email, newEmail); err != nil {
				return nil, err
			}
			slog.Info("email changed, confirmation reset", "user_id", userID)
		}
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, userID, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Verify(u.PasswordHash, req.CurrentPassword) {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

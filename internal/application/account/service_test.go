package account

import (
	"context"
	"errors"
	"testing"

	"github.com/go-identity-api/internal/domain"
	"github.com/go-identity-api/internal/notify"
	"github.com/go-identity-api/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) ChangeEmail(ctx context.Context, userID, oldEmail, newEmail string) error {
	return m.Called(ctx, userID, oldEmail, newEmail).Error(0)
}
func (m *mockUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Establish(ctx context.Context, u *domain.User) (*domain.Session, string, error) {
	args := m.Called(ctx, u)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.String(1), args.Error(2)
	}
	return nil, "", args.Error(2)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Send(ctx context.Context, kind, userID, recipient string, p notify.Params) {
	m.Called(ctx, kind, userID, recipient, p)
}

// --- helpers ---

func newService(us *mockUserStore, ss *mockSessions, n *mockNotifier) Service {
	return NewService(ServiceDeps{UserRepo: us, Sessions: ss, Notifier: n})
}

func baseReq() domain.CreateUserRequest {
	return domain.CreateUserRequest{
		Email:           "alice@Example.COM",
		Username:        "alice",
		FirstName:       "Alice",
		LastName:        "Smith",
		Password:        "password123",
		PasswordConfirm: "password123",
	}
}

func ptr[T any](v T) *T { return &v }

// --- Register tests ---

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessions{}
	n := &mockNotifier{}
	us.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	ss.On("Establish", mock.Anything, mock.Anything).Return(&domain.Session{SessionID: "s1"}, "bearer-token", nil)
	n.On("Send", mock.Anything, domain.KindWelcome, mock.Anything, "alice@example.com", mock.Anything).Return()

	sess, bearer, err := newService(us, ss, n).Register(context.Background(), baseReq())

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", bearer)
	require.NotNil(t, sess.User)
	// Domain part lower-cased on the way in.
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.False(t, sess.User.EmailConfirmed)
	assert.True(t, sess.User.Enable)
	assert.True(t, password.Verify(sess.User.PasswordHash, "password123"))
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	req := baseReq()
	req.PasswordConfirm = "different123"

	_, _, err := newService(&mockUserStore{}, nil, nil).Register(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_MissingFields(t *testing.T) {
	_, _, err := newService(&mockUserStore{}, nil, nil).Register(context.Background(), domain.CreateUserRequest{Username: "alice"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateEmail)

	_, _, err := newService(us, nil, nil).Register(context.Background(), baseReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateEmail))
	us.AssertExpectations(t)
}

// --- UpdateProfile tests ---

func TestUpdateProfile_SanitizesFreeText(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{UserID: "u1", Email: "alice@example.com"}
	us.On("Get", mock.Anything, "u1").Return(existing, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		return updates["address1"] == "alert(1)Main St" && updates["city"] == "Springfield"
	})).Return(nil)

	_, err := newService(us, nil, nil).UpdateProfile(context.Background(), "u1", domain.UpdateUserRequest{
		Address1: ptr(`<script>alert(1)</script>Main St`),
		City:     ptr("Springfield"),
	})

	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestUpdateProfile_EmailChange_ResetsConfirmation(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{UserID: "u1", Email: "alice@example.com", EmailConfirmed: true}
	us.On("Get", mock.Anything, "u1").Return(existing, nil)
	us.On("ChangeEmail", mock.Anything, "u1", "alice@example.com", "alice@newdomain.com").Return(nil)

	_, err := newService(us, nil, nil).UpdateProfile(context.Background(), "u1", domain.UpdateUserRequest{
		Email: ptr("alice@NewDomain.com"),
	})

	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestUpdateProfile_SameEmail_NoChange(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{UserID: "u1", Email: "alice@example.com", EmailConfirmed: true}
	us.On("Get", mock.Anything, "u1").Return(existing, nil)

	u, err := newService(us, nil, nil).UpdateProfile(context.Background(), "u1", domain.UpdateUserRequest{
		Email: ptr("alice@EXAMPLE.com"),
	})

	require.NoError(t, err)
	assert.True(t, u.EmailConfirmed)
	us.AssertNotCalled(t, "ChangeEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	us.AssertExpectations(t)
}

func TestUpdateProfile_DuplicateNewEmail(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{UserID: "u1", Email: "alice@example.com"}
	us.On("Get", mock.Anything, "u1").Return(existing, nil)
	us.On("ChangeEmail", mock.Anything, "u1", "alice@example.com", "taken@example.com").Return(domain.ErrDuplicateEmail)

	_, err := newService(us, nil, nil).UpdateProfile(context.Background(), "u1", domain.UpdateUserRequest{
		Email: ptr("taken@example.com"),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateEmail))
	us.AssertExpectations(t)
}

// --- ChangePassword tests ---

func TestChangePassword_HappyPath(t *testing.T) {
	hash, err := password.Hash("oldpassword1")
	require.NoError(t, err)

	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: hash}, nil)
	us.On("UpdatePassword", mock.Anything, "u1", mock.MatchedBy(func(h string) bool {
		return password.Verify(h, "newpassword1")
	})).Return(nil)

	err = newService(us, nil, nil).ChangePassword(context.Background(), "u1", domain.ChangePasswordRequest{
		CurrentPassword: "oldpassword1",
		NewPassword:     "newpassword1",
		NewPasswordConf: "newpassword1",
	})

	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	hash, err := password.Hash("oldpassword1")
	require.NoError(t, err)

	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: hash}, nil)

	err = newService(us, nil, nil).ChangePassword(context.Background(), "u1", domain.ChangePasswordRequest{
		CurrentPassword: "notmypassword",
		NewPassword:     "newpassword1",
		NewPasswordConf: "newpassword1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	us.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_ConfirmationMismatch(t *testing.T) {
	err := newService(&mockUserStore{}, nil, nil).ChangePassword(context.Background(), "u1", domain.ChangePasswordRequest{
		CurrentPassword: "oldpassword1",
		NewPassword:     "newpassword1",
		NewPasswordConf: "different1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

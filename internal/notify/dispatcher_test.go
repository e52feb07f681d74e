package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockOutboxStore struct{ mock.Mock }

func (m *mockOutboxStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockOutboxStore) ListPending(ctx context.Context) ([]domain.Notification, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockOutboxStore) MarkSent(ctx context.Context, notificationID string, attempts int) error {
	return m.Called(ctx, notificationID, attempts).Error(0)
}
func (m *mockOutboxStore) RecordAttempts(ctx context.Context, notificationID string, attempts int) error {
	return m.Called(ctx, notificationID, attempts).Error(0)
}

// fakeMailer fails the first failures calls, then succeeds. Safe for use from
// the delivery goroutine.
type fakeMailer struct {
	mu       sync.Mutex
	failures int
	sent     []string // subjects, in delivery order
	calls    int
}

func (f *fakeMailer) SendEmail(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, subject)
	return nil
}

func (f *fakeMailer) sentSubjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// --- helpers ---

func newTestDispatcher(store *mockOutboxStore, mailer *fakeMailer) *Dispatcher {
	d := NewDispatcher(store, mailer)
	d.backoff = time.Millisecond
	return d
}

func noPending(store *mockOutboxStore) {
	store.On("ListPending", mock.Anything).Return([]domain.Notification{}, nil)
}

// --- tests ---

func TestSend_DeliversAndMarksSent(t *testing.T) {
	store := &mockOutboxStore{}
	mailer := &fakeMailer{}
	noPending(store)
	store.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.Kind == domain.KindWelcome && n.Status == domain.NotificationPending
	})).Return(nil)
	store.On("MarkSent", mock.Anything, mock.AnythingOfType("string"), 1).Return(nil)

	d := newTestDispatcher(store, mailer)
	d.Start(context.Background())
	d.Send(context.Background(), domain.KindWelcome, "u1", "alice@example.com", Params{FirstName: "Alice"})
	d.Close()

	assert.Equal(t, []string{"Welcome to our platform!"}, mailer.sentSubjects())
	store.AssertExpectations(t)
}

func TestSend_RetriesThenSucceeds(t *testing.T) {
	store := &mockOutboxStore{}
	mailer := &fakeMailer{failures: 2}
	noPending(store)
	store.On("Put", mock.Anything, mock.Anything).Return(nil)
	store.On("RecordAttempts", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("int")).Return(nil)
	store.On("MarkSent", mock.Anything, mock.AnythingOfType("string"), 3).Return(nil)

	d := newTestDispatcher(store, mailer)
	d.Start(context.Background())
	d.Send(context.Background(), domain.KindWelcome, "u1", "alice@example.com", Params{})
	d.Close()

	assert.Len(t, mailer.sentSubjects(), 1)
	store.AssertExpectations(t)
}

func TestSend_ExhaustedStaysPending(t *testing.T) {
	store := &mockOutboxStore{}
	mailer := &fakeMailer{failures: maxAttempts}
	noPending(store)
	store.On("Put", mock.Anything, mock.Anything).Return(nil)
	store.On("RecordAttempts", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("int")).Return(nil)

	d := newTestDispatcher(store, mailer)
	d.Start(context.Background())
	d.Send(context.Background(), domain.KindWelcome, "u1", "alice@example.com", Params{})
	d.Close()

	assert.Empty(t, mailer.sentSubjects())
	store.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_UnknownKindDropped(t *testing.T) {
	store := &mockOutboxStore{}
	mailer := &fakeMailer{}
	noPending(store)

	d := newTestDispatcher(store, mailer)
	d.Start(context.Background())
	d.Send(context.Background(), "carrier-pigeon", "u1", "alice@example.com", Params{})
	d.Close()

	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	assert.Empty(t, mailer.sentSubjects())
}

func TestSend_StoreFailureSkipsDelivery(t *testing.T) {
	store := &mockOutboxStore{}
	mailer := &fakeMailer{}
	noPending(store)
	store.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo error"))

	d := newTestDispatcher(store, mailer)
	d.Start(context.Background())
	d.Send(context.Background(), domain.KindWelcome, "u1", "alice@example.com", Params{})
	d.Close()

	// No outbox row means no delivery attempt: at-least-once relies on the row.
	assert.Empty(t, mailer.sentSubjects())
}

func TestStart_RequeuesPending(t *testing.T) {
	store := &mockOutboxStore{}
	mailer := &fakeMailer{}
	leftover := domain.Notification{
		NotificationID: "n1",
		Kind:           domain.KindPasswordReset,
		Recipient:      "alice@example.com",
		Subject:        "Password reset",
		Body:           "link",
		Status:         domain.NotificationPending,
		Attempts:       1,
	}
	store.On("ListPending", mock.Anything).Return([]domain.Notification{leftover}, nil)
	store.On("MarkSent", mock.Anything, "n1", 2).Return(nil)

	d := newTestDispatcher(store, mailer)
	d.Start(context.Background())
	d.Close()

	assert.Equal(t, []string{"Password reset"}, mailer.sentSubjects())
	store.AssertExpectations(t)
}

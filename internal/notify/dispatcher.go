// Package notify delivers email asynchronously. A triggering request writes a
// pending outbox row and returns immediately; a background worker owns actual
// delivery. Delivery failures never surface to the request that queued the
// message and never roll back the state transition that triggered it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-identity-api/internal/domain"
	"github.com/go-identity-api/internal/infrastructure/smtp"
	"github.com/go-identity-api/internal/pkg/id"
)

const (
	queueSize   = 64
	maxAttempts = 3
)

type outboxStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	ListPending(ctx context.Context) ([]domain.Notification, error)
	MarkSent(ctx context.Context, notificationID string, attempts int) error
	RecordAttempts(ctx context.Context, notificationID string, attempts int) error
}

// Dispatcher is the asynchronous notification sender. Send is fire-and-forget
// for the caller; the outbox row makes delivery at-least-once — anything
// still pending when the process dies is requeued by the next Start.
type Dispatcher struct {
	store  outboxStore
	mailer smtp.Mailer

	queue   chan domain.Notification
	wg      sync.WaitGroup
	backoff time.Duration
}

func NewDispatcher(store outboxStore, mailer smtp.Mailer) *Dispatcher {
	return &Dispatcher{
		store:   store,
		mailer:  mailer,
		queue:   make(chan domain.Notification, queueSize),
		backoff: 500 * time.Millisecond,
	}
}

// Start requeues pending rows left over from a previous run and launches the
// delivery worker.
func (d *Dispatcher) Start(ctx context.Context) {
	pending, err := d.store.ListPending(ctx)
	if err != nil {
		slog.Warn("could not list pending notifications", "err", err)
	}
	for _, n := range pending {
		d.enqueue(n)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for n := range d.queue {
			d.deliver(n)
		}
	}()
}

// Close stops accepting work and waits for in-flight deliveries to finish.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

// Send composes the message for kind, persists it as a pending outbox row and
// hands it to the worker. Failures are logged, never returned: notification
// delivery must not affect the outcome of the operation that triggered it.
func (d *Dispatcher) Send(ctx context.Context, kind, userID, recipient string, p Params) {
	subject, body, err := compose(kind, p)
	if err != nil {
		slog.Error("notification dropped", "kind", kind, "user_id", userID, "err", err)
		return
	}
	now := time.Now().UTC()
	n := domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		Kind:           kind,
		Recipient:      recipient,
		Subject:        subject,
		Body:           body,
		Status:         domain.NotificationPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := d.store.Put(ctx, &n); err != nil {
		slog.Error("could not persist notification", "kind", kind, "user_id", userID, "err", err)
		return
	}
	d.enqueue(n)
}

// enqueue never blocks the caller. A full queue is fine: the row is already
// pending and will be picked up on the next Start.
func (d *Dispatcher) enqueue(n domain.Notification) {
	select {
	case d.queue <- n:
	default:
		slog.Warn("notification queue full, deferring to requeue", "notification_id", n.NotificationID)
	}
}

func (d *Dispatcher) deliver(n domain.Notification) {
	ctx := context.Background()
	attempts := n.Attempts
	for attempts < maxAttempts {
		attempts++
		err := d.mailer.SendEmail(n.Recipient, n.Subject, n.Body)
		if err == nil {
			if mErr := d.store.MarkSent(ctx, n.NotificationID, attempts); mErr != nil {
				// The mail went out but the row stays pending; the requeue on
				// next start will send a duplicate. At-least-once allows that.
				slog.Warn("could not mark notification sent", "notification_id", n.NotificationID, "err", mErr)
			}
			slog.Info("notification sent", "kind", n.Kind, "user_id", n.UserID, "attempts", attempts)
			return
		}
		slog.Warn("notification delivery failed", "kind", n.Kind, "notification_id", n.NotificationID, "attempt", attempts, "err", err)
		if rErr := d.store.RecordAttempts(ctx, n.NotificationID, attempts); rErr != nil {
			slog.Warn("could not record delivery attempt", "notification_id", n.NotificationID, "err", rErr)
		}
		time.Sleep(d.backoff * time.Duration(attempts))
	}
	slog.Error("notification delivery exhausted, leaving pending", "kind", n.Kind, "notification_id", n.NotificationID)
}

// Package jobs holds the scheduled background work: the delayed notification email
// escalation and the cron scheduler that drives it.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"skillswap/internal/email"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultBatch = 50
	DefaultAge   = 10 * time.Minute
)

// escalations maps the notification types that warrant an email to their template.
var escalations = map[models.NotificationType]email.Kind{
	models.NotificationMessageReceived:     email.KindUnreadMessage,
	models.NotificationApplicationReceived: email.KindPendingApplication,
}

// Outcome of one notification within a run.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Detail records what happened to one notification.
type Detail struct {
	NotificationID string                  `json:"notification_id"`
	Type           models.NotificationType `json:"type"`
	Outcome        string                  `json:"outcome"`
	Error          string                  `json:"error,omitempty"`
}

// Summary is the result of one ProcessDelayedEmails run.
type Summary struct {
	Processed  int       `json:"processed"`
	EmailsSent int       `json:"emails_sent"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
	Details    []Detail  `json:"details"`
	Timestamp  time.Time `json:"timestamp"`
}

// DelayedEmailJob emails users about notifications they have left unread for too long.
//
// Nothing marks a notification as emailed, so one that stays unread is picked up
// again on every run.
type DelayedEmailJob struct {
	notifications repository.NotificationRepository
	renderer      *email.Renderer
	dispatcher    *email.Dispatcher
	batch         int
	age           time.Duration
	now           func() time.Time
}

// NewDelayedEmailJob creates the job. Non-positive batch or age fall back to the defaults.
func NewDelayedEmailJob(notifications repository.NotificationRepository, renderer *email.Renderer, sender email.Sender, batch int, age time.Duration) *DelayedEmailJob {
	if batch <= 0 {
		batch = DefaultBatch
	}
	if age <= 0 {
		age = DefaultAge
	}
	return &DelayedEmailJob{
		notifications: notifications,
		renderer:      renderer,
		// Delivery is synchronous; the dispatcher only contributes its send bookkeeping.
		dispatcher: email.NewDispatcher(nil, sender, 0),
		batch:      batch,
		age:        age,
		now:        time.Now,
	}
}

// ProcessDelayedEmails sends one email per stale unread notification, oldest first.
// Per-notification failures are counted in the summary; only a failed batch query
// returns an error.
func (j *DelayedEmailJob) ProcessDelayedEmails(ctx context.Context) (_ Summary, err error) {
	ctx, span := observability.StartSpan(ctx, "jobs.ProcessDelayedEmails", attribute.Int("batch", j.batch))
	defer func() { span.End(err) }()

	now := j.now().UTC()
	summary := Summary{Details: []Detail{}, Timestamp: now}

	observability.LogAsyncOperationStart(ctx, "jobs.delayed_email", map[string]any{"batch": j.batch})

	types := make([]models.NotificationType, 0, len(escalations))
	for t := range escalations {
		types = append(types, t)
	}
	pending, err := j.notifications.ListDelayed(ctx, types, now.Add(-j.age), j.batch)
	if err != nil {
		observability.DelayedEmailRuns.WithLabelValues("error").Inc()
		observability.LogAsyncOperationError(ctx, "jobs.delayed_email", err, nil)
		return summary, err
	}

	for _, n := range pending {
		summary.Processed++
		detail := j.escalate(ctx, n)
		switch detail.Outcome {
		case OutcomeSent:
			summary.EmailsSent++
		case OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Errors++
		}
		summary.Details = append(summary.Details, detail)
	}

	outcome := "ok"
	if summary.Errors > 0 {
		outcome = "partial"
	}
	observability.DelayedEmailRuns.WithLabelValues(outcome).Inc()
	observability.LogAsyncOperationEnd(ctx, "jobs.delayed_email", map[string]any{
		"processed":   summary.Processed,
		"emails_sent": summary.EmailsSent,
		"skipped":     summary.Skipped,
		"errors":      summary.Errors,
	})
	return summary, nil
}

func (j *DelayedEmailJob) escalate(ctx context.Context, n models.Notification) Detail {
	detail := Detail{NotificationID: n.ID, Type: n.Type}

	if n.User == nil || n.User.Email == "" {
		detail.Outcome = OutcomeSkipped
		detail.Error = "recipient has no email"
		return detail
	}

	msg, err := j.renderer.Render(escalations[n.Type], email.Data{
		To:      n.User.Email,
		Message: n.Message,
		Link:    n.Link,
	})
	if err != nil {
		detail.Outcome = OutcomeFailed
		detail.Error = err.Error()
		return detail
	}

	res := j.dispatcher.Deliver(ctx, email.Job{Kind: email.JobDelayed, Message: msg, EnqueuedAt: j.now().UTC()})
	if !res.Success {
		detail.Outcome = OutcomeFailed
		if res.Err != nil {
			detail.Error = res.Err.Error()
		}
		return detail
	}

	observability.GlobalLogger.DebugContext(ctx, "delayed email sent",
		slog.String("notification_id", n.ID),
		slog.String("type", string(n.Type)),
	)
	detail.Outcome = OutcomeSent
	return detail
}

package service

import (
	"context"

	"skillswap/internal/email"
	"skillswap/internal/featureflags"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"

	"gorm.io/gorm"
)

// Mailer queues an immediate email. It must not block or fail the caller.
type Mailer interface {
	Enqueue(ctx context.Context, kind email.Kind, data email.Data)
}

// Notifiers bundles the post-commit side effects of lifecycle operations.
// Any field may be nil.
type Notifiers struct {
	Emitter Emitter
	Mailer  Mailer
	Flags   *featureflags.Manager
}

// effects runs side effects after a transaction has committed. Nothing here returns an error.
type effects struct {
	Notifiers
	users repository.UserRepository
}

func newEffects(db *gorm.DB, n Notifiers) effects {
	return effects{Notifiers: n, users: repository.NewUserRepository(db)}
}

func (e effects) notify(ctx context.Context, userID string, kind models.NotificationType, message, link string) {
	if e.Emitter == nil || userID == "" {
		return
	}
	e.Emitter.Emit(ctx, userID, kind, message, link)
}

// mail sends kind to userID's address when immediate emails are enabled for them.
func (e effects) mail(ctx context.Context, userID string, kind email.Kind, data email.Data) {
	if e.Mailer == nil || !e.Flags.Enabled(featureflags.ImmediateEmails, userID) {
		return
	}
	if data.To == "" {
		user, err := e.users.GetByID(context.WithoutCancel(ctx), userID)
		if err != nil {
			observability.LogBestEffortFailure(ctx, "email.recipient", err, map[string]any{"user_id": userID})
			return
		}
		data.To = user.Email
	}
	e.Mailer.Enqueue(ctx, kind, data)
}

// displayName falls back to the email when a user never set a name.
func displayName(u *models.User) string {
	if u == nil {
		return "Someone"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "Someone"
}

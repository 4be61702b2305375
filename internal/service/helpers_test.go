package service

import (
	"context"
	"sync"
	"testing"

	"skillswap/internal/cache"
	"skillswap/internal/email"
	"skillswap/internal/featureflags"
	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	Kind email.Kind
	Data email.Data
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Enqueue(_ context.Context, kind email.Kind, data email.Data) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Kind: kind, Data: data})
}

func (m *recordingMailer) kinds() []email.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]email.Kind, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Kind
	}
	return out
}

// env wires every service against one in-memory database.
type env struct {
	db            *gorm.DB
	mailer        *recordingMailer
	notifications *NotificationService
	reputation    *ReputationService
	proposals     *ProposalService
	applications  *ApplicationService
	swaps         *SwapService
	reviews       *ReviewService
	skills        *SkillService
	messages      *MessageService
	users         *UserService
	dashboard     *DashboardService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithCache(t, nil)
}

func newEnvWithCache(t *testing.T, store *cache.Store) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	flags := featureflags.NewManager("leaderboard_cache=on")

	e := &env{db: db, mailer: &recordingMailer{}}
	e.notifications = NewNotificationService(repository.NewNotificationRepository(db), nil)
	e.reputation = NewReputationService(repository.NewReputationRepository(db), repository.NewUserRepository(db), store, flags)

	n := Notifiers{Emitter: e.notifications, Mailer: e.mailer, Flags: flags}
	e.proposals = NewProposalService(db, e.reputation, store)
	e.swaps = NewSwapService(db, e.reputation, n)
	e.applications = NewApplicationService(db, e.swaps, e.reputation, store, n)
	e.reviews = NewReviewService(db, e.reputation, n)
	e.skills = NewSkillService(db, e.reputation)
	e.messages = NewMessageService(db, n)
	e.users = NewUserService(repository.NewUserRepository(db), repository.NewSkillRepository(db),
		repository.NewReviewRepository(db), e.reputation, nil)
	e.dashboard = NewDashboardService(db, e.proposals, e.reputation)
	return e
}

func (e *env) notificationsFor(t *testing.T, userID string) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&out).Error)
	return out
}

func (e *env) notificationTypes(t *testing.T, userID string) []models.NotificationType {
	t.Helper()
	ns := e.notificationsFor(t, userID)
	out := make([]models.NotificationType, len(ns))
	for i, n := range ns {
		out[i] = n.Type
	}
	return out
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code, "message: %s", appErr.Message)
}

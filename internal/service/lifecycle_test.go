package service

import (
	"context"
	"sync"
	"testing"

	"skillswap/internal/email"
	"skillswap/internal/models"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

const pitch = "I have taught React for three years and want to learn guitar."

func TestApplicationService_CreateApplication(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	applicant := testutil.CreateUser(t, e.db, func(u *models.User) { u.Name = "Ana" })
	p := testutil.CreateProposal(t, e.db, owner)

	t.Run("own proposal", func(t *testing.T) {
		_, err := e.applications.CreateApplication(ctx, owner.ID, p.ID, pitch)
		assertCode(t, err, models.CodeDomain)
	})

	t.Run("pitch too short", func(t *testing.T) {
		_, err := e.applications.CreateApplication(ctx, applicant.ID, p.ID, "  hi there ")
		assertCode(t, err, models.CodeValidation)
		assert.Contains(t, err.Error(), "pitch_message must be at least 10 characters")
	})

	t.Run("unknown proposal", func(t *testing.T) {
		_, err := e.applications.CreateApplication(ctx, applicant.ID, "missing", pitch)
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("success notifies and mails the owner", func(t *testing.T) {
		app, err := e.applications.CreateApplication(ctx, applicant.ID, p.ID, "  "+pitch+"  ")
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationStatusPending, app.Status)
		assert.Equal(t, pitch, app.PitchMessage)

		ns := e.notificationsFor(t, owner.ID)
		require.Len(t, ns, 1)
		assert.Equal(t, models.NotificationApplicationReceived, ns[0].Type)
		assert.Contains(t, ns[0].Message, "Ana")
		assert.False(t, ns[0].IsRead)

		require.Equal(t, []email.Kind{email.KindApplicationReceived}, e.mailer.kinds())
		assert.Equal(t, owner.Email, e.mailer.sent[0].Data.To)
		assert.Equal(t, pitch, e.mailer.sent[0].Data.Pitch)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := e.applications.CreateApplication(ctx, applicant.ID, p.ID, pitch)
		assertCode(t, err, models.CodeConflict)
	})

	t.Run("proposal not open", func(t *testing.T) {
		closed := testutil.CreateProposal(t, e.db, owner, func(p *models.Proposal) { p.Status = models.ProposalStatusInProgress })
		_, err := e.applications.CreateApplication(ctx, applicant.ID, closed.ID, pitch)
		assertCode(t, err, models.CodeDomain)
	})
}

func TestApplicationService_ImmediateEmailsFlagOff(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	applicant := testutil.CreateUser(t, e.db)
	p := testutil.CreateProposal(t, e.db, owner)

	// Without a flag manager immediate emails are off.
	e.applications.effects.Flags = nil
	_, err := e.applications.CreateApplication(ctx, applicant.ID, p.ID, pitch)
	require.NoError(t, err)
	assert.Empty(t, e.mailer.kinds())
	assert.Len(t, e.notificationsFor(t, owner.ID), 1)
}

func TestApplicationService_UpdateApplicationStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	applicant := testutil.CreateUser(t, e.db)
	stranger := testutil.CreateUser(t, e.db)
	p := testutil.CreateProposal(t, e.db, owner)

	t.Run("invalid status", func(t *testing.T) {
		app := testutil.CreateApplication(t, e.db, p, testutil.CreateUser(t, e.db), models.ApplicationStatusPending)
		_, _, err := e.applications.UpdateApplicationStatus(ctx, owner.ID, app.ID, models.ApplicationStatusPending)
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("non-owner leaves the application untouched", func(t *testing.T) {
		app := testutil.CreateApplication(t, e.db, p, applicant, models.ApplicationStatusPending)

		for _, status := range []models.ApplicationStatus{models.ApplicationStatusAccepted, models.ApplicationStatusRejected} {
			_, _, err := e.applications.UpdateApplicationStatus(ctx, stranger.ID, app.ID, status)
			assertCode(t, err, models.CodeForbidden)
		}

		var reloaded models.Application
		require.NoError(t, e.db.First(&reloaded, "id = ?", app.ID).Error)
		assert.Equal(t, models.ApplicationStatusPending, reloaded.Status)

		var swaps int64
		require.NoError(t, e.db.Model(&models.Swap{}).Where("application_id = ?", app.ID).Count(&swaps).Error)
		assert.Zero(t, swaps)
	})

	t.Run("reject then decide again", func(t *testing.T) {
		app := testutil.CreateApplication(t, e.db, p, testutil.CreateUser(t, e.db), models.ApplicationStatusPending)

		got, swap, err := e.applications.UpdateApplicationStatus(ctx, owner.ID, app.ID, models.ApplicationStatusRejected)
		require.NoError(t, err)
		assert.Nil(t, swap)
		assert.Equal(t, models.ApplicationStatusRejected, got.Status)
		assert.Equal(t, []models.NotificationType{models.NotificationApplicationRejected},
			e.notificationTypes(t, app.ApplicantID))

		_, _, err = e.applications.UpdateApplicationStatus(ctx, owner.ID, app.ID, models.ApplicationStatusAccepted)
		assertCode(t, err, models.CodeConflict)
		_, _, err = e.applications.UpdateApplicationStatus(ctx, owner.ID, app.ID, models.ApplicationStatusRejected)
		assertCode(t, err, models.CodeConflict)
	})

	t.Run("accept creates the swap", func(t *testing.T) {
		student := testutil.CreateUser(t, e.db)
		app := testutil.CreateApplication(t, e.db, p, student, models.ApplicationStatusPending)

		got, swap, err := e.applications.UpdateApplicationStatus(ctx, owner.ID, app.ID, models.ApplicationStatusAccepted)
		require.NoError(t, err)
		require.NotNil(t, swap)
		assert.Equal(t, models.ApplicationStatusAccepted, got.Status)
		assert.Equal(t, models.SwapStatusActive, swap.Status)
		assert.Equal(t, owner.ID, swap.TeacherID)
		assert.Equal(t, student.ID, swap.StudentID)
		assert.Equal(t, app.ID, swap.ApplicationID)
		assert.Nil(t, swap.CompletedAt)

		assert.Equal(t, []models.NotificationType{
			models.NotificationApplicationAccepted,
			models.NotificationSwapStarted,
		}, e.notificationTypes(t, student.ID))

		ownerTypes := e.notificationTypes(t, owner.ID)
		assert.Contains(t, ownerTypes, models.NotificationSwapStarted)
		for _, n := range e.notificationsFor(t, owner.ID) {
			if n.Type == models.NotificationSwapStarted {
				assert.Equal(t, "/dashboard?swap="+swap.ID, n.Link)
			}
		}
		assert.Contains(t, e.mailer.kinds(), email.KindApplicationAccepted)

		_, _, err = e.applications.UpdateApplicationStatus(ctx, owner.ID, app.ID, models.ApplicationStatusAccepted)
		assertCode(t, err, models.CodeConflict)
	})
}

func TestSwapService_ConcurrentAcceptCreatesOneSwap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	applicant := testutil.CreateUser(t, e.db)
	p := testutil.CreateProposal(t, e.db, owner)
	app := testutil.CreateApplication(t, e.db, p, applicant, models.ApplicationStatusPending)

	const callers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.swaps.CreateSwapFromApplication(ctx, owner.ID, app.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case models.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)

	var swaps int64
	require.NoError(t, e.db.Model(&models.Swap{}).Where("application_id = ?", app.ID).Count(&swaps).Error)
	assert.Equal(t, int64(1), swaps)
}

func TestSwapService_UpdateSwapStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	teacher := testutil.CreateUser(t, e.db)
	student := testutil.CreateUser(t, e.db)
	stranger := testutil.CreateUser(t, e.db)

	newSwap := func() *models.Swap {
		p := testutil.CreateProposal(t, e.db, teacher)
		a := testutil.CreateApplication(t, e.db, p, student, models.ApplicationStatusAccepted)
		return testutil.CreateSwap(t, e.db, p, a, models.SwapStatusActive)
	}

	t.Run("invalid target", func(t *testing.T) {
		_, err := e.swaps.UpdateSwapStatus(ctx, teacher.ID, newSwap().ID, models.SwapStatusActive)
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("non-participant", func(t *testing.T) {
		_, err := e.swaps.UpdateSwapStatus(ctx, stranger.ID, newSwap().ID, models.SwapStatusCompleted)
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("complete sets completed_at", func(t *testing.T) {
		swap := newSwap()
		got, err := e.swaps.UpdateSwapStatus(ctx, student.ID, swap.ID, models.SwapStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, models.SwapStatusCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)

		_, err = e.swaps.UpdateSwapStatus(ctx, teacher.ID, swap.ID, models.SwapStatusCancelled)
		assertCode(t, err, models.CodeConflict)
	})

	t.Run("cancel leaves completed_at empty", func(t *testing.T) {
		swap := newSwap()
		got, err := e.swaps.UpdateSwapStatus(ctx, teacher.ID, swap.ID, models.SwapStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, models.SwapStatusCancelled, got.Status)
		assert.Nil(t, got.CompletedAt)

		_, err = e.swaps.UpdateSwapStatus(ctx, teacher.ID, swap.ID, models.SwapStatusCompleted)
		assertCode(t, err, models.CodeConflict)
	})

	t.Run("get and list", func(t *testing.T) {
		swap := newSwap()
		_, err := e.swaps.GetSwap(ctx, stranger.ID, swap.ID)
		assertCode(t, err, models.CodeForbidden)

		got, err := e.swaps.GetSwap(ctx, student.ID, swap.ID)
		require.NoError(t, err)
		assert.Equal(t, swap.ID, got.ID)

		active, err := e.swaps.ListMySwaps(ctx, teacher.ID, models.SwapStatusActive)
		require.NoError(t, err)
		for _, s := range active {
			assert.Equal(t, models.SwapStatusActive, s.Status)
		}
		all, err := e.swaps.ListMySwaps(ctx, teacher.ID, "")
		require.NoError(t, err)
		assert.Greater(t, len(all), len(active))
	})
}

func TestReviewService_CreateReview(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	teacher := testutil.CreateUser(t, e.db)
	student := testutil.CreateUser(t, e.db, func(u *models.User) { u.Name = "Sam" })
	stranger := testutil.CreateUser(t, e.db)
	completed := testutil.CompletedSwap(t, e.db, teacher, student)

	t.Run("rating out of range", func(t *testing.T) {
		for _, rating := range []int{0, 6} {
			_, err := e.reviews.CreateReview(ctx, student.ID, completed.ID, CreateReviewInput{Rating: rating})
			assertCode(t, err, models.CodeValidation)
		}
	})

	t.Run("non-participant", func(t *testing.T) {
		_, err := e.reviews.CreateReview(ctx, stranger.ID, completed.ID, CreateReviewInput{Rating: 5})
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("swap not completed", func(t *testing.T) {
		p := testutil.CreateProposal(t, e.db, teacher)
		a := testutil.CreateApplication(t, e.db, p, student, models.ApplicationStatusAccepted)
		active := testutil.CreateSwap(t, e.db, p, a, models.SwapStatusActive)
		_, err := e.reviews.CreateReview(ctx, student.ID, active.ID, CreateReviewInput{Rating: 5})
		assertCode(t, err, models.CodeDomain)
	})

	t.Run("unknown swap", func(t *testing.T) {
		_, err := e.reviews.CreateReview(ctx, student.ID, "missing", CreateReviewInput{Rating: 5})
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("review the other party once", func(t *testing.T) {
		review, err := e.reviews.CreateReview(ctx, student.ID, completed.ID, CreateReviewInput{Rating: 4, Comment: " Great teacher "})
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, review.ReceiverID)
		assert.Equal(t, "Great teacher", review.Comment)

		ns := e.notificationsFor(t, teacher.ID)
		require.Len(t, ns, 1)
		assert.Equal(t, models.NotificationReviewReceived, ns[0].Type)
		assert.Equal(t, "/profile/"+teacher.ID, ns[0].Link)
		assert.Contains(t, ns[0].Message, "Sam")

		_, err = e.reviews.CreateReview(ctx, student.ID, completed.ID, CreateReviewInput{Rating: 5})
		assertCode(t, err, models.CodeConflict)

		// The other direction is still allowed.
		_, err = e.reviews.CreateReview(ctx, teacher.ID, completed.ID, CreateReviewInput{Rating: 5})
		require.NoError(t, err)

		received, err := e.reviews.ListReviewsForUser(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Len(t, received, 1)
	})
}

// TestFullSwapLifecycle drives a proposal from creation to mutual reviews and checks the
// resulting reputation of both parties.
func TestFullSwapLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, func(u *models.User) { u.Name = "Alice" })
	bob := testutil.CreateUser(t, e.db, func(u *models.User) { u.Name = "Bob" })

	proposal, err := e.proposals.CreateProposal(ctx, alice.ID, validProposalInput())
	require.NoError(t, err)

	app, err := e.applications.CreateApplication(ctx, bob.ID, proposal.ID, pitch)
	require.NoError(t, err)

	_, swap, err := e.applications.UpdateApplicationStatus(ctx, alice.ID, app.ID, models.ApplicationStatusAccepted)
	require.NoError(t, err)

	_, err = e.swaps.UpdateSwapStatus(ctx, bob.ID, swap.ID, models.SwapStatusCompleted)
	require.NoError(t, err)

	_, err = e.reviews.CreateReview(ctx, bob.ID, swap.ID, CreateReviewInput{Rating: 5, Comment: "Excellent"})
	require.NoError(t, err)
	_, err = e.reviews.CreateReview(ctx, alice.ID, swap.ID, CreateReviewInput{Rating: 4})
	require.NoError(t, err)

	aliceRep, err := e.reputation.Compute(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), aliceRep.CompletedSwaps)
	assert.Equal(t, 5.0, aliceRep.AverageRating)
	assert.Equal(t, 26.0, aliceRep.ReputationPoints)
	assert.Equal(t, 1, aliceRep.Level)
	assert.Equal(t, "Novice", aliceRep.Title)

	bobRep, err := e.reputation.Compute(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 21.0, bobRep.ReputationPoints)

	board, err := e.reputation.Leaderboard(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, alice.ID, board[0].User.ID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, bob.ID, board[1].User.ID)

	assert.Equal(t, []models.NotificationType{
		models.NotificationApplicationReceived,
		models.NotificationSwapStarted,
		models.NotificationReviewReceived,
	}, e.notificationTypes(t, alice.ID))
	assert.Equal(t, []models.NotificationType{
		models.NotificationApplicationAccepted,
		models.NotificationSwapStarted,
		models.NotificationReviewReceived,
	}, e.notificationTypes(t, bob.ID))
}

func TestSwapService_TransactionsAreTraced(t *testing.T) {
	rec := testutil.RecordSpans(t)
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	applicant := testutil.CreateUser(t, e.db)
	p := testutil.CreateProposal(t, e.db, owner)
	app := testutil.CreateApplication(t, e.db, p, applicant, models.ApplicationStatusPending)

	swap, err := e.swaps.CreateSwapFromApplication(ctx, owner.ID, app.ID)
	require.NoError(t, err)
	accept := testutil.EndedSpan(rec, "lifecycle.CreateSwapFromApplication")
	require.NotNil(t, accept)
	assert.Equal(t, codes.Unset, accept.Status().Code)

	_, err = e.swaps.UpdateSwapStatus(ctx, applicant.ID, swap.ID, models.SwapStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, testutil.EndedSpan(rec, "lifecycle.UpdateSwapStatus"))

	// A second accept fails and the span carries the error.
	rec.Reset()
	_, err = e.swaps.CreateSwapFromApplication(ctx, owner.ID, app.ID)
	assertCode(t, err, models.CodeConflict)
	failed := testutil.EndedSpan(rec, "lifecycle.CreateSwapFromApplication")
	require.NotNil(t, failed)
	assert.Equal(t, codes.Error, failed.Status().Code)
}

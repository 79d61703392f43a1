package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradegate-bot/tradegate/internal/models"
	"github.com/tradegate-bot/tradegate/internal/platform"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

type reviewFixture struct {
	svc     *ReviewService
	threads *fakeThreadStore
	reviews *fakeReviewStore
	audit   *fakeAuditStore
	msgr    *fakeMessenger
	notices *fakeNotices
}

func newReviewFixture(t *testing.T, cfg staticConfig) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		threads: newFakeThreadStore(),
		reviews: newFakeReviewStore(),
		audit:   &fakeAuditStore{},
		msgr:    newFakeMessenger(),
		notices: &fakeNotices{},
	}
	f.svc = NewReviewService(cfg, f.reviews, f.threads, f.audit, f.msgr, f.notices, nil, nil, TonePools{}, nil, nil)

	require.NoError(t, f.threads.Upsert(context.Background(), &models.Thread{
		ID:      "t1",
		OwnerID: "owner",
		Status:  models.ThreadStatusTosAccepted,
	}))
	f.msgr.authors = []string{"owner", "buyer", "lurker"}
	return f
}

func submitInput(rating int) SubmitReviewInput {
	return SubmitReviewInput{ThreadID: "t1", Rating: rating}
}

func TestSubmitRecordsReviewAndArmsAutoClose(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})

	review, err := f.svc.Submit(context.Background(), platform.User{ID: "buyer"}, submitInput(8))
	require.NoError(t, err)
	assert.Equal(t, "buyer", review.GiverID)
	assert.Equal(t, "owner", review.ReceiverID)

	assert.Equal(t, models.ThreadStatusAutoCloseScheduled, f.threads.status("t1"))
	assert.Contains(t, f.audit.actions(), models.AuditActionAutoCloseArmed)
	assert.Contains(t, f.audit.actions(), models.AuditActionReviewRecorded)
	assert.NotEmpty(t, f.notices.sent)
}

func TestSubmitSecondReviewDoesNotRearm(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, platform.User{ID: "buyer"}, submitInput(8))
	require.NoError(t, err)
	firstFire := f.threads.schedules["t1"]

	_, err = f.svc.Submit(ctx, platform.User{ID: "lurker"}, submitInput(5))
	require.NoError(t, err)

	assert.Equal(t, firstFire, f.threads.schedules["t1"])

	armed := 0
	for _, a := range f.audit.actions() {
		if a == models.AuditActionAutoCloseArmed {
			armed++
		}
	}
	assert.Equal(t, 1, armed)
}

func TestSubmitSkipsArmingWhenDisabled(t *testing.T) {
	cfg := testBotConfig()
	cfg.AutoCloseEnabled = false
	f := newReviewFixture(t, staticConfig{bot: cfg})

	_, err := f.svc.Submit(context.Background(), platform.User{ID: "buyer"}, submitInput(8))
	require.NoError(t, err)

	assert.Empty(t, f.threads.schedules)
	assert.Equal(t, models.ThreadStatusTosAccepted, f.threads.status("t1"))
}

func TestSubmitDeniesSelfReview(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})

	_, err := f.svc.Submit(context.Background(), platform.User{ID: "owner"}, submitInput(8))
	require.Error(t, err)
	assert.True(t, appErrors.IsDenial(err))
	assert.Empty(t, f.reviews.records)
}

func TestSubmitDeniesNonParticipant(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})
	f.msgr.authors = []string{"owner"}

	_, err := f.svc.Submit(context.Background(), platform.User{ID: "buyer"}, submitInput(8))
	require.Error(t, err)
	assert.True(t, appErrors.IsDenial(err))
	assert.Empty(t, f.reviews.records)
}

func TestSubmitDeniesDuplicate(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, platform.User{ID: "buyer"}, submitInput(8))
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, platform.User{ID: "buyer"}, submitInput(3))
	require.Error(t, err)
	assert.True(t, appErrors.IsDenial(err))
	assert.Len(t, f.reviews.records, 1)
}

func TestSubmitValidatesInput(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})
	ctx := context.Background()

	for _, rating := range []int{0, 11, -3} {
		_, err := f.svc.Submit(ctx, platform.User{ID: "buyer"}, submitInput(rating))
		require.Error(t, err, "rating %d", rating)
	}

	long := make([]byte, models.MaxNotesLength+1)
	for i := range long {
		long[i] = 'a'
	}
	in := submitInput(7)
	in.Notes = string(long)
	_, err := f.svc.Submit(ctx, platform.User{ID: "buyer"}, in)
	require.Error(t, err)

	assert.Empty(t, f.reviews.records)
}

func TestSubmitRequiresReviewableStatus(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})
	ctx := context.Background()

	for _, status := range []models.ThreadStatus{
		models.ThreadStatusTosPending,
		models.ThreadStatusTosDeclined,
		models.ThreadStatusClosed,
	} {
		require.NoError(t, f.threads.UpdateStatus(ctx, "t1", status))
		_, err := f.svc.Submit(ctx, platform.User{ID: "buyer"}, submitInput(8))
		require.Error(t, err, "status %s", status)
	}
}

func TestCancelAutoClose(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, platform.User{ID: "buyer"}, submitInput(8))
	require.NoError(t, err)
	require.Equal(t, models.ThreadStatusAutoCloseScheduled, f.threads.status("t1"))

	// Non-owner cannot cancel.
	err = f.svc.CancelAutoClose(ctx, platform.User{ID: "buyer"}, "t1")
	require.Error(t, err)
	assert.True(t, appErrors.IsDenial(err))

	require.NoError(t, f.svc.CancelAutoClose(ctx, platform.User{ID: "owner"}, "t1"))
	assert.Empty(t, f.threads.schedules)
	assert.Equal(t, models.ThreadStatusTosAccepted, f.threads.status("t1"))
	assert.Contains(t, f.audit.actions(), models.AuditActionAutoCloseCancelled)

	// Cancelling again is a scoped rejection, not a crash.
	err = f.svc.CancelAutoClose(ctx, platform.User{ID: "owner"}, "t1")
	require.Error(t, err)
}

func TestPostReviewPromptUsesNeutralLineForNewUsers(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})

	require.NoError(t, f.svc.PostReviewPrompt(context.Background(), "t1", "owner"))
	require.Len(t, f.msgr.sentContents(), 1)
	assert.NotContains(t, f.msgr.sentContents()[0], "★")
}

func TestPostReviewPromptShowsStars(t *testing.T) {
	f := newReviewFixture(t, staticConfig{bot: testBotConfig()})
	f.reviews.aggregate["owner"] = models.ReviewAggregate{AvgRating: 8.4, Count: 5}

	require.NoError(t, f.svc.PostReviewPrompt(context.Background(), "t1", "owner"))
	require.Len(t, f.msgr.sentContents(), 1)
	assert.Contains(t, f.msgr.sentContents()[0], "★")
	assert.Contains(t, f.msgr.sentContents()[0], "8.4/10")
}

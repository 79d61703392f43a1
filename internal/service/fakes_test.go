package service

import (
	"context"
	"sync"
	"time"

	"github.com/tradegate-bot/tradegate/internal/models"
	"github.com/tradegate-bot/tradegate/pkg/config"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

type staticConfig struct {
	bot config.BotConfig
}

func (s staticConfig) Bot() config.BotConfig { return s.bot }

func testBotConfig() config.BotConfig {
	return config.BotConfig{
		TrackedForums:     []string{"forum-1"},
		TosTimeout:        30 * time.Second,
		TosMessage:        "Accept within {timeout}.",
		TosDeclineMessage: "Declined.",
		AutoCloseEnabled:  true,
		AutoCloseHours:    24,
		SweepInterval:     10 * time.Minute,
	}
}

type fakeThreadStore struct {
	mu        sync.Mutex
	threads   map[string]*models.Thread
	schedules map[string]time.Time

	upsertErr   error
	scheduleErr error
	claimErr    map[string]error
}

func newFakeThreadStore() *fakeThreadStore {
	return &fakeThreadStore{
		threads:   make(map[string]*models.Thread),
		schedules: make(map[string]time.Time),
	}
}

func (f *fakeThreadStore) Upsert(_ context.Context, thread *models.Thread) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *thread
	f.threads[thread.ID] = &cp
	return nil
}

func (f *fakeThreadStore) Get(_ context.Context, threadID string) (*models.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[threadID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeThreadStore) UpdateStatus(_ context.Context, threadID string, status models.ThreadStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.threads[threadID]; ok {
		t.Status = status
	}
	return nil
}

func (f *fakeThreadStore) SetClosed(_ context.Context, threadID string, status models.ThreadStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.threads[threadID]; ok {
		t.Status = status
		t.Archived = true
		t.Locked = true
		t.AutoCloseAt = nil
	}
	return nil
}

func (f *fakeThreadStore) ScheduleAutoClose(_ context.Context, threadID string, fireAt time.Time) (bool, error) {
	if f.scheduleErr != nil {
		return false, f.scheduleErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, armed := f.schedules[threadID]; armed {
		return false, nil
	}
	f.schedules[threadID] = fireAt
	if t, ok := f.threads[threadID]; ok {
		t.Status = models.ThreadStatusAutoCloseScheduled
		at := fireAt
		t.AutoCloseAt = &at
	}
	return true, nil
}

func (f *fakeThreadStore) CancelAutoClose(_ context.Context, threadID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, armed := f.schedules[threadID]; !armed {
		return false, nil
	}
	delete(f.schedules, threadID)
	if t, ok := f.threads[threadID]; ok && t.Status == models.ThreadStatusAutoCloseScheduled {
		t.Status = models.ThreadStatusTosAccepted
		t.AutoCloseAt = nil
	}
	return true, nil
}

func (f *fakeThreadStore) DueSchedules(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []string
	for id, fireAt := range f.schedules {
		if !fireAt.After(now) {
			due = append(due, id)
		}
	}
	return due, nil
}

func (f *fakeThreadStore) ClaimSchedule(_ context.Context, threadID string, now time.Time) (bool, error) {
	if err := f.claimErr[threadID]; err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fireAt, ok := f.schedules[threadID]
	if !ok || fireAt.After(now) {
		return false, nil
	}
	delete(f.schedules, threadID)
	return true, nil
}

func (f *fakeThreadStore) CountOpen(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.threads {
		if !t.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

func (f *fakeThreadStore) status(threadID string) models.ThreadStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.threads[threadID]; ok {
		return t.Status
	}
	return ""
}

type fakeReviewStore struct {
	mu        sync.Mutex
	records   []models.Review
	aggregate map[string]models.ReviewAggregate

	recordErr error
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{aggregate: make(map[string]models.ReviewAggregate)}
}

func (f *fakeReviewStore) Record(_ context.Context, review *models.Review) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.GiverID == review.GiverID && r.ReceiverID == review.ReceiverID && r.ThreadID == review.ThreadID {
			return appErrors.ErrDuplicateReview
		}
	}
	f.records = append(f.records, *review)
	return nil
}

func (f *fakeReviewStore) HasReviewed(_ context.Context, giverID, receiverID, threadID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.GiverID == giverID && r.ReceiverID == receiverID && r.ThreadID == threadID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReviewStore) CountForThread(_ context.Context, threadID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if r.ThreadID == threadID {
			n++
		}
	}
	return n, nil
}

func (f *fakeReviewStore) CountForThreadExcluding(_ context.Context, threadID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if r.ThreadID == threadID && r.GiverID != userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeReviewStore) Aggregate(_ context.Context, userID string) (models.ReviewAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if agg, ok := f.aggregate[userID]; ok {
		return agg, nil
	}
	var sum, n int
	for _, r := range f.records {
		if r.ReceiverID == userID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return models.ReviewAggregate{}, nil
	}
	return models.ReviewAggregate{AvgRating: float64(sum) / float64(n), Count: n}, nil
}

type fakePromptStore struct {
	mu      sync.Mutex
	prompts map[string]models.TosPrompt
}

func newFakePromptStore() *fakePromptStore {
	return &fakePromptStore{prompts: make(map[string]models.TosPrompt)}
}

func (f *fakePromptStore) Save(_ context.Context, prompt *models.TosPrompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts[prompt.ThreadID] = *prompt
	return nil
}

func (f *fakePromptStore) Delete(_ context.Context, threadID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.prompts[threadID]; !ok {
		return false, nil
	}
	delete(f.prompts, threadID)
	return true, nil
}

func (f *fakePromptStore) All(_ context.Context) ([]models.TosPrompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.TosPrompt, 0, len(f.prompts))
	for _, p := range f.prompts {
		out = append(out, p)
	}
	return out, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (f *fakeAuditStore) Append(_ context.Context, entry *models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditStore) ListForThread(_ context.Context, threadID string, limit int) ([]models.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range f.entries {
		if e.ThreadID != nil && *e.ThreadID == threadID {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type sentMessage struct {
	ThreadID string
	Content  string
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	edited   []sentMessage
	deleted  []string
	archived []string
	joined   []string
	authors  []string

	nextMessageID string
	sendErr       error
	archiveErr    map[string]error
	authorsErr    error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextMessageID: "msg-1"}
}

func (f *fakeMessenger) SendMessage(_ context.Context, threadID, content string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ThreadID: threadID, Content: content})
	return f.nextMessageID, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, threadID, _, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, sentMessage{ThreadID: threadID, Content: content})
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) ArchiveThread(_ context.Context, threadID string, _, _ bool) error {
	if err := f.archiveErr[threadID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, threadID)
	return nil
}

func (f *fakeMessenger) JoinThread(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, threadID)
	return nil
}

func (f *fakeMessenger) RecentAuthors(_ context.Context, _ string, _ int) ([]string, error) {
	if f.authorsErr != nil {
		return nil, f.authorsErr
	}
	return f.authors, nil
}

func (f *fakeMessenger) Notify(_ context.Context, _, _ string) error { return nil }

func (f *fakeMessenger) sentContents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Content)
	}
	return out
}

type fakeNotices struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotices) Send(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
}

type closeCall struct {
	ThreadID string
	Reason   string
}

type fakeCloser struct {
	mu     sync.Mutex
	calls  []closeCall
	failOn map[string]error
}

func (f *fakeCloser) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCloser) Close(_ context.Context, threadID string, _ *string, reason, _ string) error {
	if err := f.failOn[threadID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, closeCall{ThreadID: threadID, Reason: reason})
	return nil
}

type fakePrompter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakePrompter) PostReviewPrompt(_ context.Context, threadID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, threadID)
	return nil
}

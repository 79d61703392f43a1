package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradegate-bot/tradegate/internal/platform"
	"github.com/tradegate-bot/tradegate/pkg/jobs"
)

// Notifier ships notices to the configured log channel through a background
// queue so messaging hiccups retry without blocking the triggering operation.
type Notifier struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotifier builds a notifier backed by a single worker.
func NewNotifier(msgr platform.Messenger, cfg ConfigSource, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		channelID := cfg.Bot().LogChannelID
		if channelID == "" {
			return nil
		}
		content, _ := job.Payload.(string)
		if content == "" {
			return nil
		}
		return msgr.Notify(ctx, channelID, content)
	}

	queue := jobs.NewQueue("log-notices", handler, jobs.QueueConfig{
		Workers: 1,
		Logger:  logger,
	})

	return &Notifier{queue: queue, logger: logger}
}

// Start begins background delivery.
func (n *Notifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the workers.
func (n *Notifier) Stop() {
	n.queue.Stop()
}

// Send enqueues a notice. Failures are logged, never surfaced.
func (n *Notifier) Send(content string) {
	err := n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "log_notice",
		Payload: content,
	})
	if err != nil {
		n.logger.Warn("notice dropped", zap.Error(err))
	}
}

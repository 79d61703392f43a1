package platform

import (
	"context"

	"go.uber.org/zap"
)

// Messenger is the contract the core needs from the chat platform. The real
// gateway adapter implements it; tests use fakes.
type Messenger interface {
	// SendMessage posts into a thread and returns the platform message ID.
	SendMessage(ctx context.Context, threadID, content string) (string, error)
	EditMessage(ctx context.Context, threadID, messageID, content string) error
	DeleteMessage(ctx context.Context, threadID, messageID string) error
	// ArchiveThread mirrors archived/locked flags onto the platform thread.
	ArchiveThread(ctx context.Context, threadID string, archived, locked bool) error
	JoinThread(ctx context.Context, threadID string) error
	// RecentAuthors returns author IDs of the most recent messages in a thread,
	// newest first, for the participation check.
	RecentAuthors(ctx context.Context, threadID string, limit int) ([]string, error)
	// Notify posts to a configured log channel.
	Notify(ctx context.Context, channelID, content string) error
}

// LogMessenger is the default Messenger used until a gateway adapter is
// attached: every action becomes a log line and succeeds.
type LogMessenger struct {
	logger *zap.Logger
}

// NewLogMessenger builds a Messenger that only logs.
func NewLogMessenger(logger *zap.Logger) *LogMessenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMessenger{logger: logger}
}

func (m *LogMessenger) SendMessage(_ context.Context, threadID, content string) (string, error) {
	m.logger.Info("send_message", zap.String("thread_id", threadID), zap.String("content", content))
	return "", nil
}

func (m *LogMessenger) EditMessage(_ context.Context, threadID, messageID, content string) error {
	m.logger.Info("edit_message", zap.String("thread_id", threadID), zap.String("message_id", messageID))
	return nil
}

func (m *LogMessenger) DeleteMessage(_ context.Context, threadID, messageID string) error {
	m.logger.Info("delete_message", zap.String("thread_id", threadID), zap.String("message_id", messageID))
	return nil
}

func (m *LogMessenger) ArchiveThread(_ context.Context, threadID string, archived, locked bool) error {
	m.logger.Info("archive_thread", zap.String("thread_id", threadID), zap.Bool("archived", archived), zap.Bool("locked", locked))
	return nil
}

func (m *LogMessenger) JoinThread(_ context.Context, threadID string) error {
	m.logger.Info("join_thread", zap.String("thread_id", threadID))
	return nil
}

func (m *LogMessenger) RecentAuthors(_ context.Context, threadID string, _ int) ([]string, error) {
	m.logger.Debug("recent_authors", zap.String("thread_id", threadID))
	return nil, nil
}

func (m *LogMessenger) Notify(_ context.Context, channelID, content string) error {
	m.logger.Info("notify", zap.String("channel_id", channelID), zap.String("content", content))
	return nil
}

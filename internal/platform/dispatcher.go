package platform

import (
	"context"

	"go.uber.org/zap"

	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

// Dispatcher fans platform gateway events out to registered handlers. Handlers
// are resolved once at wiring time; the gateway adapter only sees this type.
type Dispatcher struct {
	logger *zap.Logger

	threadCreate []func(context.Context, ThreadCreateEvent) error
	message      []func(context.Context, MessageEvent) error
}

// NewDispatcher builds an empty dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger}
}

// OnThreadCreate registers a thread-create handler.
func (d *Dispatcher) OnThreadCreate(fn func(context.Context, ThreadCreateEvent) error) {
	d.threadCreate = append(d.threadCreate, fn)
}

// OnMessage registers a message handler.
func (d *Dispatcher) OnMessage(fn func(context.Context, MessageEvent) error) {
	d.message = append(d.message, fn)
}

// DispatchThreadCreate runs all thread-create handlers. Handler failures are
// logged and do not stop later handlers; policy denials are expected
// outcomes and logged at debug only.
func (d *Dispatcher) DispatchThreadCreate(ctx context.Context, ev ThreadCreateEvent) {
	for _, fn := range d.threadCreate {
		if err := fn(ctx, ev); err != nil {
			d.logFailure("thread create handler", ev.ThreadID, err)
		}
	}
}

// DispatchMessage runs all message handlers.
func (d *Dispatcher) DispatchMessage(ctx context.Context, ev MessageEvent) {
	for _, fn := range d.message {
		if err := fn(ctx, ev); err != nil {
			d.logFailure("message handler", ev.ThreadID, err)
		}
	}
}

func (d *Dispatcher) logFailure(what, threadID string, err error) {
	if appErrors.IsDenial(err) {
		d.logger.Debug(what+" denied", zap.String("thread_id", threadID), zap.Error(err))
		return
	}
	d.logger.Error(what+" failed", zap.String("thread_id", threadID), zap.Error(err))
}

// Package notify fans out admin activity notifications. Delivery is
// best-effort: a failed write is logged and swallowed so the operation that
// triggered the notification (a visitor log insert, a form submission, an
// order) never fails because of it.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Store is the sink for notification records.
type Store interface {
	Create(ctx context.Context, notificationType, message string) error
}

type Emitter struct {
	store Store
	log   *zap.Logger
}

func NewEmitter(store Store, log *zap.Logger) *Emitter {
	return &Emitter{store: store, log: log}
}

// Emit appends one notification. At-most-once, no retry; failures are
// logged only.
func (e *Emitter) Emit(ctx context.Context, notificationType, message string) {
	if err := e.store.Create(ctx, notificationType, message); err != nil {
		e.log.Warn("failed to create notification",
			zap.String("type", notificationType),
			zap.Error(err))
	}
}

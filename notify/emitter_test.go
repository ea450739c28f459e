package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingStore struct {
	types    []string
	messages []string
	err      error
}

func (s *recordingStore) Create(_ context.Context, notificationType, message string) error {
	if s.err != nil {
		return s.err
	}
	s.types = append(s.types, notificationType)
	s.messages = append(s.messages, message)
	return nil
}

func TestEmitAppendsNotification(t *testing.T) {
	store := &recordingStore{}
	emitter := NewEmitter(store, zap.NewNop())

	emitter.Emit(context.Background(), "visit", "New visitor from Berlin on a Desktop device.")

	assert.Equal(t, []string{"visit"}, store.types)
	assert.Equal(t, []string{"New visitor from Berlin on a Desktop device."}, store.messages)
}

func TestEmitSwallowsStoreFailure(t *testing.T) {
	store := &recordingStore{err: errors.New("connection refused")}
	emitter := NewEmitter(store, zap.NewNop())

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "visit", "message")
	})
	assert.Empty(t, store.types)
}

package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishContinuesPastFailingHandler(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var calls []string
	dispatcher.Subscribe(EventTicketCreated, func(ctx context.Context, event Event) error {
		calls = append(calls, "failing")
		return errors.New("delivery failed")
	})
	dispatcher.Subscribe(EventTicketCreated, func(ctx context.Context, event Event) error {
		calls = append(calls, "healthy")
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Equal(t, []string{"failing", "healthy"}, calls)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())
	assert.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketsCleared}))
}

func TestPublishOnlyMatchingType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var got []EventType
	dispatcher.Subscribe(EventTicketAssigned, func(ctx context.Context, event Event) error {
		got = append(got, event.Type)
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated}))
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketAssigned}))
	assert.Equal(t, []EventType{EventTicketAssigned}, got)
}

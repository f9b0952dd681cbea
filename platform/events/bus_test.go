package events

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"travel_leads_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var calls int32
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	require.ErrorContains(t, err, "boom")
	assert.EqualValues(t, 2, calls)
}

func TestPublishIsolatesPanics(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var delivered int32
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		panic("handler bug")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	}))

	bus.Publish(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	assert.EqualValues(t, 1, delivered)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(nil)
	require.NoError(t, bus.PublishSync(context.Background(), pingEvent{}))
}

func TestBaseEventStampsIDAndTime(t *testing.T) {
	at := time.Date(2024, 3, 9, 10, 0, 0, 0, time.FixedZone("IST", 19800))
	first := NewBaseEventAt(at)
	second := NewBaseEventAt(at)

	assert.NotEqual(t, first.EventID(), second.EventID())
	assert.Equal(t, time.UTC, first.OccurredAt().Location())
	assert.True(t, first.OccurredAt().Equal(at))
	assert.False(t, NewBaseEventAt(time.Time{}).OccurredAt().IsZero())
}

func TestPublishLogsFailuresWithEventID(t *testing.T) {
	var buf bytes.Buffer
	bus := NewInMemoryBus(logger.NewWithWriter("production", &buf))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		return errors.New("smtp down")
	}))

	evt := pingEvent{BaseEvent: NewBaseEvent()}
	bus.Publish(context.Background(), evt)
	bus.Wait()

	assert.Contains(t, buf.String(), "event handler failed")
	assert.Contains(t, buf.String(), evt.EventID().String())
}

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDelivers(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe()

	broker.Publish(&Event{Type: EventStepStarted, RunID: "run-1", Step: "preflight"})

	ev := <-sub
	assert.Equal(t, EventStepStarted, ev.Type)
	assert.Equal(t, "preflight", ev.Step)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe()

	for i := 0; i < 200; i++ {
		broker.Publish(&Event{Type: EventStepCompleted})
	}

	assert.Len(t, sub, cap(sub))
}

func TestUnsubscribe(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe()
	require.Equal(t, 1, broker.SubscriberCount())

	broker.Unsubscribe(sub)
	broker.Unsubscribe(sub)

	assert.Equal(t, 0, broker.SubscriberCount())
	_, open := <-sub
	assert.False(t, open)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe()
	broker.Publish(&Event{Type: EventRunStarted})

	broker.Close()
	broker.Close()
	broker.Publish(&Event{Type: EventRunCompleted})

	var got []EventType
	for ev := range sub {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []EventType{EventRunStarted}, got)

	late := broker.Subscribe()
	_, open := <-late
	assert.False(t, open)
}

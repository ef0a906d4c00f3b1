package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryBus_PublishFansOutToSubscribers(t *testing.T) {
	b := NewInMemoryBus(nil)
	var got []Event
	b.Subscribe(MakerOrderCreated, func(ev Event) { got = append(got, ev) })
	b.Subscribe(MakerOrderCreated, func(ev Event) { got = append(got, ev) })
	b.Subscribe(DeleteOffer, func(ev Event) { t.Fatal("must not receive unrelated event") })

	b.Publish(context.Background(), Event{Name: MakerOrderCreated, Payload: MakerOrderCreatedPayload{ID: 2, Position: 1}})
	assert.Len(t, got, 2)
}

func TestInMemoryBus_RecoversPanickingHandler(t *testing.T) {
	b := NewInMemoryBus(nil)
	called := false
	b.Subscribe("boom", func(Event) { panic("handler exploded") })
	b.Subscribe("boom", func(Event) { called = true })

	assert.NotPanics(t, func() {
		b.Publish(context.Background(), Event{Name: "boom"})
	})
	assert.True(t, called)
}

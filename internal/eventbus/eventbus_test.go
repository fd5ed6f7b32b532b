package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish("fleet-update", "hello")
	v := <-ch
	if v.Payload != "hello" || v.Topic != "fleet-update" {
		t.Fatalf("unexpected event %+v", v)
	}
	bus.Unsubscribe(ch)
	assert.Equal(t, 0, bus.Subscribers())
}

func TestBusTopicFilter(t *testing.T) {
	bus := New()
	maps := bus.Subscribe("map-update")
	all := bus.Subscribe()
	bus.Publish("fleet-update", 1)
	bus.Publish("map-update", 2)

	ev := <-maps
	assert.Equal(t, Topic("map-update"), ev.Topic)
	select {
	case extra := <-maps:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
	assert.Equal(t, Topic("fleet-update"), (<-all).Topic)
	assert.Equal(t, Topic("map-update"), (<-all).Topic)
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewWithBuffer(1)
	slow := bus.Subscribe()
	fast := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish("fleet-update", i)
			<-fast
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
	require.Equal(t, 0, (<-slow).Payload)
	assert.Equal(t, uint64(9), bus.Dropped("fleet-update"))
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe("map-update")
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	bus.Publish("map-update", nil)
	if _, ok := <-bus.Subscribe(); ok {
		t.Fatalf("expected subscription after close to be closed")
	}
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}

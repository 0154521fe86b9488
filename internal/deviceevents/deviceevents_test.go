package deviceevents

import (
	"testing"
	"time"

	"github.com/r3dpanda-labs/lorawan-device/response"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	broker := NewBroker(100)
	ch, history, unsub := broker.Subscribe()
	defer unsub()

	if len(history) != 0 {
		t.Errorf("expected empty history, got %d", len(history))
	}

	broker.Publish(response.Response{Kind: response.SendingJoinRequest})

	select {
	case evt := <-ch:
		if evt.Response.Kind != response.SendingJoinRequest {
			t.Errorf("expected SendingJoinRequest, got %v", evt.Response.Kind)
		}
		if evt.ID == "" {
			t.Error("expected auto-generated ID")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBrokerReplaysHistoryToNewSubscriber(t *testing.T) {
	broker := NewBroker(100)

	broker.Publish(response.Response{Kind: response.SendingJoinRequest})
	broker.Publish(response.Response{Kind: response.NewSession})

	_, history, unsub := broker.Subscribe()
	defer unsub()

	if len(history) != 2 {
		t.Fatalf("expected 2 history events, got %d", len(history))
	}
	if history[0].Response.Kind != response.SendingJoinRequest || history[1].Response.Kind != response.NewSession {
		t.Errorf("expected history in publish order, got %+v", history)
	}
}

func TestRingBufferEvictsOldestPastCapacity(t *testing.T) {
	broker := NewBroker(2)

	broker.Publish(response.Response{Kind: response.SendingJoinRequest})
	broker.Publish(response.Response{Kind: response.NewSession})
	broker.Publish(response.Response{Kind: response.SendingDataUp})

	_, history, unsub := broker.Subscribe()
	defer unsub()

	if len(history) != 2 {
		t.Fatalf("expected history capped at 2, got %d", len(history))
	}
	if history[0].Response.Kind != response.NewSession || history[1].Response.Kind != response.SendingDataUp {
		t.Errorf("expected oldest event evicted, got %+v", history)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	broker := NewBroker(10)
	ch, _, unsub := broker.Subscribe()
	unsub()

	broker.Publish(response.Response{Kind: response.SendingJoinRequest})

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("expected channel to close promptly after unsubscribe")
	}
}

// Package eventsocket streams the device's response history over
// socket.io, grounded on the teacher's webserver.newServerSocket event
// subscription handlers (stream-device-events / stop-device-events),
// collapsed from the teacher's per-topic broker down to the single
// stream internal/deviceevents.Broker exposes.
package eventsocket

import (
	"log/slog"
	"sync"

	socketio "github.com/googollee/go-socket.io"

	"github.com/r3dpanda-labs/lorawan-device/internal/deviceevents"
)

// EventEngineEvent is the socket.io event name pushed to a subscribed
// client for every new engine event.
const EventEngineEvent = "engine-event"

type subscriptions struct {
	mu    sync.Mutex
	unsub func()
}

// New builds a socket.io server that, on connect, replays the
// broker's retained history and then forwards every future event.
func New(broker *deviceevents.Broker) *socketio.Server {
	server := socketio.NewServer(nil)
	active := sync.Map{} // socket ID -> *subscriptions

	server.OnConnect("/", func(s socketio.Conn) error {
		slog.Info("socket connected", "component", "eventsocket", "socket_id", s.ID())
		ch, history, unsub := broker.Subscribe()
		active.Store(s.ID(), &subscriptions{unsub: unsub})

		for _, evt := range history {
			s.Emit(EventEngineEvent, evt)
		}

		go func() {
			for evt := range ch {
				s.Emit(EventEngineEvent, evt)
			}
		}()
		return nil
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if val, ok := active.LoadAndDelete(s.ID()); ok {
			val.(*subscriptions).unsub()
		}
		_ = s.Close()
	})

	server.OnError("/", func(s socketio.Conn, err error) {
		slog.Error("socket error", "component", "eventsocket", "error", err)
	})

	return server
}

package events

import (
	"net/http"
	"sync"

	"timerhub/internal/logs"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Dashboards connect from file:// or other LAN origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Feed fans the event stream out to websocket clients. Each client gets
// a buffered queue so a stalled dashboard never blocks Emit; when the
// queue fills, events for that client are dropped.
type Feed struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]chan Payload
}

func NewFeed(b *Bus) *Feed {
	f := &Feed{conns: make(map[*websocket.Conn]chan Payload)}
	b.SubscribeAll(f.publish)
	return f
}

func (f *Feed) publish(p Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, ch := range f.conns {
		select {
		case ch <- p:
		default:
			logs.Logger.Warnf("event feed: dropping %s for slow client %s", p.Event, conn.RemoteAddr())
		}
	}
}

// Handle upgrades the request and streams events until the client goes
// away.
func (f *Feed) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already replied
	}

	ch := make(chan Payload, 64)
	f.mu.Lock()
	f.conns[conn] = ch
	f.mu.Unlock()

	go func() {
		for p := range ch {
			if err := conn.WriteJSON(p); err != nil {
				return
			}
		}
	}()

	// Drain control/client frames; any read error means the client left.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	delete(f.conns, conn)
	f.mu.Unlock()
	close(ch)
	_ = conn.Close()
}

package events

import "sync"

type Type string

const (
	TimerConnected         Type = "timer_connected"
	TimerUpdated           Type = "timer_updated"
	SeatNotification       Type = "seat_notification"
	FloormanNotification   Type = "floorman_notification"
	BarServiceNotification Type = "bar_service_notification"
)

// Payload is one event on the bus. Only the fields relevant to the
// event type are set.
type Payload struct {
	Event       Type   `json:"event"`
	DeviceID    string `json:"device_id,omitempty"`
	TableNumber int    `json:"table_number,omitempty"`
	Seats       []int  `json:"seats,omitempty"`
}

type Handler func(Payload)

// Bus is a minimal concurrency-safe pub/sub. Handlers run synchronously
// in the emitter's goroutine; anything that may block must buffer on its
// own (see the websocket feed).
type Bus struct {
	mu   sync.RWMutex
	subs map[Type][]Handler
	all  []Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Type][]Handler)}
}

func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

func (b *Bus) Emit(p Payload) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.subs[p.Event])+len(b.all))
	hs = append(hs, b.subs[p.Event]...)
	hs = append(hs, b.all...)
	b.mu.RUnlock()

	for _, h := range hs {
		h(p)
	}
}

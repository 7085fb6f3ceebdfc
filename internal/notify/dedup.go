package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Deduper drops repeats of the same logical notification arriving inside
// a short window. Keys are caller-built (SeatKey/FloormanKey) so the
// same machinery serves both notification kinds.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	clock  clockwork.Clock
	seen   map[string]time.Time
}

func NewDeduper(window time.Duration) *Deduper {
	return NewDeduperWithClock(window, clockwork.NewRealClock())
}

func NewDeduperWithClock(window time.Duration, clock clockwork.Clock) *Deduper {
	return &Deduper{
		window: window,
		clock:  clock,
		seen:   make(map[string]time.Time),
	}
}

// Allow reports whether a notification with this key may fire now, and
// records it if so. Expired entries are swept on the way through so the
// map does not grow with event history.
func (d *Deduper) Allow(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock.Now()

	for k, at := range d.seen {
		if now.Sub(at) >= d.window {
			delete(d.seen, k)
		}
	}

	if at, ok := d.seen[key]; ok && now.Sub(at) < d.window {
		return false
	}
	d.seen[key] = now
	return true
}

// SeatKey identifies a seat-open notification: same table plus the same
// seat set (order-insensitive) is the same logical event.
func SeatKey(table int, seats []int) string {
	s := append([]int(nil), seats...)
	sort.Ints(s)
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("seat:%d:%s", table, strings.Join(parts, ","))
}

// FloormanKey identifies a floorman call by table alone.
func FloormanKey(table int) string {
	return fmt.Sprintf("floorman:%d", table)
}

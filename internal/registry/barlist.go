package registry

import (
	"sort"
	"sync"

	"timerhub/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// BarList holds outstanding bar-service requests. Like the timer table
// it is memory-only and mutated under one mutex; entries leave only via
// Complete or a process restart.
type BarList struct {
	mu       sync.Mutex
	requests []models.BarRequest
	clock    clockwork.Clock
}

func NewBarList() *BarList {
	return NewBarListWithClock(clockwork.NewRealClock())
}

func NewBarListWithClock(clock clockwork.Clock) *BarList {
	return &BarList{clock: clock}
}

// Add appends a request for a table. When ts is zero the current time is
// stamped (the QR path; the app path forwards the device's timestamp).
func (l *BarList) Add(table int, ts int64, source string) models.BarRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ts == 0 {
		ts = l.clock.Now().UnixMilli()
	}
	req := models.BarRequest{
		ID:          "bar_" + uuid.NewString(),
		TableNumber: table,
		Timestamp:   ts,
		Source:      source,
	}
	l.requests = append(l.requests, req)
	return req
}

// List returns the outstanding requests, newest first.
func (l *BarList) List() []models.BarRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append([]models.BarRequest(nil), l.requests...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

func (l *BarList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// Complete removes a request by id; false when it was already gone.
func (l *BarList) Complete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.requests {
		if r.ID == id {
			l.requests = append(l.requests[:i], l.requests[i+1:]...)
			return true
		}
	}
	return false
}

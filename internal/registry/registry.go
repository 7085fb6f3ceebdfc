package registry

import (
	"errors"
	"sync"
	"time"

	"timerhub/internal/models"

	"github.com/jonboulle/clockwork"
)

var ErrNotFound = errors.New("timer not found")

// Registry is the single source of truth for connected timers. All
// mutation goes through its methods under one coarse mutex; the raw map
// is never handed out. Liveness is not stored — IsOnline recomputes it
// from last_update every time.
type Registry struct {
	mu     sync.RWMutex
	timers map[string]*models.Timer

	clock           clockwork.Clock
	onlineThreshold time.Duration
}

func New(onlineThreshold time.Duration) *Registry {
	return NewWithClock(onlineThreshold, clockwork.NewRealClock())
}

func NewWithClock(onlineThreshold time.Duration, clock clockwork.Clock) *Registry {
	return &Registry{
		timers:          make(map[string]*models.Timer),
		clock:           clock,
		onlineThreshold: onlineThreshold,
	}
}

// UpsertStatus merges a device's status push into its record, stamping
// last_update and ip_address server-side. Returns the resulting record
// and whether this device id was seen for the first time.
func (r *Registry) UpsertStatus(deviceID, ip string, up models.StatusUpdate) (models.Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[deviceID]
	if !ok {
		t = &models.Timer{DeviceID: deviceID}
		r.timers[deviceID] = t
	}

	if up.TableNumber != nil {
		t.TableNumber = *up.TableNumber
	}
	if up.IsRunning != nil {
		t.IsRunning = *up.IsRunning
	}
	if up.IsPaused != nil {
		t.IsPaused = *up.IsPaused
	}
	if up.T1Value != nil {
		t.T1Value = *up.T1Value
	}
	if up.T2Value != nil {
		t.T2Value = *up.T2Value
	}
	if up.Mode != nil {
		t.Mode = *up.Mode
	}
	if up.Buzzer != nil {
		t.Buzzer = *up.Buzzer
	}
	if up.PlayersCount != nil {
		t.PlayersCount = *up.PlayersCount
	}
	if up.BatteryLevel != nil {
		t.BatteryLevel = *up.BatteryLevel
	}
	if up.Voltage != nil {
		t.Voltage = *up.Voltage
	}
	if up.WifiSignal != nil {
		sig := *up.WifiSignal
		t.WifiSignal = &sig
	}
	if up.WifiQuality != nil {
		t.WifiQuality = *up.WifiQuality
	}

	t.IPAddress = ip
	t.LastUpdate = r.clock.Now()

	return cloneTimer(t), !ok
}

// Get returns a copy of one record.
func (r *Registry) Get(deviceID string) (models.Timer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.timers[deviceID]
	if !ok {
		return models.Timer{}, false
	}
	return cloneTimer(t), true
}

// Snapshot returns a detached copy of the whole table for pollers.
func (r *Registry) Snapshot() map[string]models.Timer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]models.Timer, len(r.timers))
	for id, t := range r.timers {
		out[id] = cloneTimer(t)
	}
	return out
}

// FindByTable returns the first device claiming the given table number.
// Table numbers are not guaranteed unique; with duplicates the winner is
// whichever the map iteration hits first. Accepted ambiguity.
func (r *Registry) FindByTable(table int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findByTableLocked(table)
}

func (r *Registry) findByTableLocked(table int) (string, bool) {
	for id, t := range r.timers {
		if t.TableNumber == table {
			return id, true
		}
	}
	return "", false
}

// ClearAll empties the registry and reports how many records went away.
// After a clear, every device id counts as new again.
func (r *Registry) ClearAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.timers)
	r.timers = make(map[string]*models.Timer)
	return n
}

// EnqueueCommand queues a command for delivery on the device's next
// status push. A second enqueue before delivery overwrites the first.
func (r *Registry) EnqueueCommand(deviceID, command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[deviceID]
	if !ok {
		return ErrNotFound
	}
	t.PendingCommand = command
	t.PendingSettings = nil
	return nil
}

// ApplySettings stores operator settings on the record (creating it if
// the device has never pushed yet) and queues a "settings" command
// carrying them.
func (r *Registry) ApplySettings(deviceID string, s models.Settings) models.Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[deviceID]
	if !ok {
		t = &models.Timer{DeviceID: deviceID}
		r.timers[deviceID] = t
	}
	t.Mode = s.Mode
	t.T1Value = s.T1
	t.T2Value = s.T2
	t.TableNumber = s.TableNumber
	t.Buzzer = s.Buzzer
	t.PlayersCount = s.PlayersCount

	sc := s
	t.PendingCommand = "settings"
	t.PendingSettings = &sc
	return cloneTimer(t)
}

// TakePending atomically removes and returns the pending command (and
// settings, if any) for a device. Called once per status push; together
// with the overwrite rule in EnqueueCommand this gives at-most-once
// delivery.
func (r *Registry) TakePending(deviceID string) (string, *models.Settings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[deviceID]
	if !ok || t.PendingCommand == "" {
		return "", nil, false
	}
	cmd := t.PendingCommand
	var settings *models.Settings
	if t.PendingSettings != nil {
		sc := *t.PendingSettings
		settings = &sc
	}
	t.PendingCommand = ""
	t.PendingSettings = nil
	return cmd, settings, true
}

// IsOnline reports whether a record's last push is recent enough.
func (r *Registry) IsOnline(t models.Timer) bool {
	if t.LastUpdate.IsZero() {
		return false
	}
	return r.clock.Now().Sub(t.LastUpdate) < r.onlineThreshold
}

// OnlineCount counts records currently considered online.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.clock.Now()
	n := 0
	for _, t := range r.timers {
		if !t.LastUpdate.IsZero() && now.Sub(t.LastUpdate) < r.onlineThreshold {
			n++
		}
	}
	return n
}

func cloneTimer(t *models.Timer) models.Timer {
	c := *t
	if t.WifiSignal != nil {
		v := *t.WifiSignal
		c.WifiSignal = &v
	}
	if t.PendingSettings != nil {
		s := *t.PendingSettings
		c.PendingSettings = &s
	}
	if t.SeatInfo != nil {
		si := *t.SeatInfo
		si.OpenSeats = append([]int(nil), t.SeatInfo.OpenSeats...)
		c.SeatInfo = &si
	}
	return c
}

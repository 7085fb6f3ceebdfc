package registry

import (
	"timerhub/internal/models"
)

// Seat-open, floorman and bar-service state lives on the timer record so
// the GUI sees it in the same snapshot it already polls.

// MergeSeats unions newly announced open seats into the table's record,
// keeping first-appearance order. firstNotice is true when this merge
// armed the needs_web_notification flag (it was not already pending);
// the flag throttles back-to-back device-channel notifications exactly
// like the operator-facing dedup window does for the GUI.
func (r *Registry) MergeSeats(table int, seats []int, action string) (deviceID string, openSeats []int, firstNotice, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, found := r.findByTableLocked(table)
	if !found {
		return "", nil, false, false
	}
	t := r.timers[id]

	if t.SeatInfo == nil {
		t.SeatInfo = &models.SeatInfo{Action: "seat_open"}
	}
	for _, s := range seats {
		if !containsInt(t.SeatInfo.OpenSeats, s) {
			t.SeatInfo.OpenSeats = append(t.SeatInfo.OpenSeats, s)
		}
	}
	if action == "" {
		action = "seat_open"
	}
	t.SeatInfo.Action = action
	t.SeatInfo.Timestamp = r.clock.Now()

	firstNotice = !t.SeatInfo.NeedsWebNotification
	t.SeatInfo.NeedsWebNotification = true

	return id, append([]int(nil), t.SeatInfo.OpenSeats...), firstNotice, true
}

// TakeSeatNotice returns the one-shot seat_request block for a device's
// status acknowledgment and lowers the flag. Second call returns nothing
// until a new seat announcement arms it again.
func (r *Registry) TakeSeatNotice(deviceID string) (*models.SeatRequest, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[deviceID]
	if !ok || t.SeatInfo == nil || !t.SeatInfo.NeedsWebNotification {
		return nil, 0, false
	}
	t.SeatInfo.NeedsWebNotification = false
	return &models.SeatRequest{
		OpenSeats: append([]int(nil), t.SeatInfo.OpenSeats...),
		Action:    t.SeatInfo.Action,
	}, t.TableNumber, true
}

// ResetSeatInfo drops the whole seat structure for a device. The next
// announcement starts a fresh union.
func (r *Registry) ResetSeatInfo(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[deviceID]
	if !ok || t.SeatInfo == nil {
		return false
	}
	t.SeatInfo = nil
	return true
}

// CallFloorman stamps the floorman call time on the table's device.
func (r *Registry) CallFloorman(table int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, found := r.findByTableLocked(table)
	if !found {
		return "", false
	}
	r.timers[id].FloormanCallTimestamp = r.clock.Now().UnixMilli()
	return id, true
}

// ClearFloormanByTable removes an active floorman call for a table.
// ok is false when no device matches; cleared is false when the device
// had no call pending.
func (r *Registry) ClearFloormanByTable(table int) (deviceID string, cleared, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, found := r.findByTableLocked(table)
	if !found {
		return "", false, false
	}
	t := r.timers[id]
	cleared = t.FloormanCallTimestamp != 0
	t.FloormanCallTimestamp = 0
	return id, cleared, true
}

// ClearFloorman removes an active floorman call by device id (the
// inline clear_floorman command path).
func (r *Registry) ClearFloorman(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[deviceID]
	if !ok {
		return false
	}
	cleared := t.FloormanCallTimestamp != 0
	t.FloormanCallTimestamp = 0
	return cleared
}

// MarkBarService stamps the bar-service request time on the table's
// device, if one matches.
func (r *Registry) MarkBarService(table int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, found := r.findByTableLocked(table)
	if !found {
		return "", false
	}
	r.timers[id].BarServiceTimestamp = r.clock.Now().UnixMilli()
	return id, true
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

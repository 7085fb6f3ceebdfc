package models

import (
	"strings"
	"time"
)

// Device id prefixes. The prefix decides the device class: android timers
// run the app over the phone's own radio, arduino timers are ESP32 boards
// reporting a real external WiFi signal.
const (
	KindAndroid = "android"
	KindArduino = "arduino"
)

// DeviceKind returns the class encoded in a device id ("android_ab12" ->
// "android"). Unknown prefixes come back verbatim.
func DeviceKind(deviceID string) string {
	if i := strings.IndexByte(deviceID, '_'); i > 0 {
		return deviceID[:i]
	}
	return deviceID
}

// Timer is one table timer's record in the registry. last_update and
// ip_address are always server-assigned; whatever a device claims for
// them is discarded at the protocol boundary.
type Timer struct {
	DeviceID     string  `json:"device_id"`
	TableNumber  int     `json:"table_number"`
	IsRunning    bool    `json:"is_running"`
	IsPaused     bool    `json:"is_paused"`
	T1Value      int     `json:"t1_value"`
	T2Value      int     `json:"t2_value"`
	Mode         int     `json:"mode"`
	Buzzer       bool    `json:"buzzer"`
	PlayersCount int     `json:"players_count"`
	BatteryLevel int     `json:"battery_level"`
	Voltage      float64 `json:"voltage"`
	WifiSignal   *int    `json:"wifi_signal,omitempty"` // dBm
	WifiQuality  int     `json:"wifi_quality"`          // 0..100, derived

	IPAddress  string    `json:"ip_address"`
	LastUpdate time.Time `json:"last_update"`

	PendingCommand  string    `json:"pending_command,omitempty"`
	PendingSettings *Settings `json:"pending_settings,omitempty"`

	SeatInfo              *SeatInfo `json:"seat_info,omitempty"`
	FloormanCallTimestamp int64     `json:"floorman_call_timestamp,omitempty"` // epoch ms
	BarServiceTimestamp   int64     `json:"bar_service_timestamp,omitempty"`   // epoch ms
}

// Status returns the display status derived from the running flags.
func (t Timer) Status() string {
	switch {
	case t.IsRunning && t.IsPaused:
		return "Paused"
	case t.IsRunning:
		return "Running"
	default:
		return "Stopped"
	}
}

// StatusUpdate is the device-supplied part of a status push. Pointer
// fields distinguish "absent" from zero so a partial push only touches
// what it carries. There are deliberately no ip/last_update fields here.
type StatusUpdate struct {
	TableNumber  *int     `json:"table_number"`
	IsRunning    *bool    `json:"is_running"`
	IsPaused     *bool    `json:"is_paused"`
	T1Value      *int     `json:"t1_value"`
	T2Value      *int     `json:"t2_value"`
	Mode         *int     `json:"mode"`
	Buzzer       *bool    `json:"buzzer"`
	PlayersCount *int     `json:"players_count"`
	BatteryLevel *int     `json:"battery_level"`
	Voltage      *float64 `json:"voltage"`
	WifiSignal   *int     `json:"wifi_signal"`

	// Filled in by the protocol handler, never taken from the payload.
	WifiQuality *int `json:"-"`
}

// SeatInfo accumulates open-seat announcements for one table. OpenSeats
// only grows (union, first-appearance order) until an explicit reset
// removes the whole structure.
type SeatInfo struct {
	OpenSeats            []int     `json:"open_seats"`
	Action               string    `json:"action"`
	Timestamp            time.Time `json:"timestamp"`
	NeedsWebNotification bool      `json:"needs_web_notification"`
}

// SeatRequest is the one-shot block delivered to a device inside its
// status acknowledgment.
type SeatRequest struct {
	OpenSeats []int  `json:"open_seats"`
	Action    string `json:"action"`
}

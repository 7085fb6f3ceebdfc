package timerctrl

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"timerhub/internal/events"
	"timerhub/internal/logs"
	"timerhub/internal/models"
	"timerhub/internal/notify"
	"timerhub/internal/registry"

	"github.com/gorilla/mux"
)

/*
Timer device protocol plus the operator-facing API:

POST   /api/status                          periodic device status push
GET    /api/timers                          full registry snapshot
DELETE /api/timers                          clear the registry
POST   /api/settings/{device_id}            queue settings for a device
POST   /api/command/{device_id}             queue or apply a command
POST   /api/seat_request                    announce open seats for a table
POST   /api/floorman_request                call the floorman for a table
DELETE /api/floorman_request/{table_number} mark the call handled
POST   /api/bar_service_request             bar call from the timer app
GET    /api/bar_requests                    outstanding bar requests
POST   /api/bar_requests/{id}/complete      finish a bar request
GET    /api/server-info                     name/version/port/uptime

Delivery to a device is poll-driven: queued commands and settings ride
back in the response to that device's next /api/status push, exactly
once.
*/

const (
	ServerName    = "Poker Timer Hub"
	ServerVersion = "1.0"
)

// Commands the server handles inline because they only touch
// server-side state. Everything else is queued for the device.
const (
	CmdClearFloorman = "clear_floorman"
	CmdResetSeatInfo = "reset_seat_info"
	CmdSettings      = "settings"
)

type Handler struct {
	reg   *registry.Registry
	bars  *registry.BarList
	bus   *events.Bus
	dedup *notify.Deduper

	port    int
	started time.Time
}

func New(reg *registry.Registry, bars *registry.BarList, bus *events.Bus, dedup *notify.Deduper, port int) *Handler {
	return &Handler{
		reg:     reg,
		bars:    bars,
		bus:     bus,
		dedup:   dedup,
		port:    port,
		started: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/server-info", h.handleServerInfo).Methods(http.MethodGet)
	api.HandleFunc("/timers", h.handleGetTimers).Methods(http.MethodGet)
	api.HandleFunc("/timers", h.handleClearTimers).Methods(http.MethodDelete)
	api.HandleFunc("/status", h.handleStatus).Methods(http.MethodPost)
	api.HandleFunc("/settings/{device_id}", h.handleSettings).Methods(http.MethodPost)
	api.HandleFunc("/command/{device_id}", h.handleCommand).Methods(http.MethodPost)
	api.HandleFunc("/seat_request", h.handleSeatRequest).Methods(http.MethodPost)
	api.HandleFunc("/floorman_request", h.handleFloormanRequest).Methods(http.MethodPost)
	api.HandleFunc("/floorman_request/{table_number}", h.handleClearFloorman).Methods(http.MethodDelete)
	api.HandleFunc("/bar_service_request", h.handleBarServiceRequest).Methods(http.MethodPost)
	api.HandleFunc("/bar_requests", h.handleListBarRequests).Methods(http.MethodGet)
	api.HandleFunc("/bar_requests/{id}/complete", h.handleCompleteBarRequest).Methods(http.MethodPost)
}

func (h *Handler) handleServerInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    ServerName,
		"version": ServerVersion,
		"port":    h.port,
		"uptime":  time.Since(h.started).Seconds(),
	})
}

func (h *Handler) handleGetTimers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.Snapshot())
}

func (h *Handler) handleClearTimers(w http.ResponseWriter, _ *http.Request) {
	n := h.reg.ClearAll()
	logs.Logger.Infof("registry cleared, %d timers removed", n)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "cleared": n})
}

// statusResponse rides back on a device's status push. command/settings
// are present only when something was pending, seat_request only when
// the one-shot flag was armed.
type statusResponse struct {
	Status      string              `json:"status"`
	Command     string              `json:"command,omitempty"`
	Settings    *models.Settings    `json:"settings,omitempty"`
	SeatRequest *models.SeatRequest `json:"seat_request,omitempty"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DeviceID string `json:"device_id"`
		models.StatusUpdate
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad JSON", err.Error(), nil)
		return
	}
	if in.DeviceID == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Missing device_id", "status payload must carry device_id", nil)
		return
	}

	// wifi_quality is derived, never trusted from the payload. App-class
	// devices report no dBm figure; treat them as full strength.
	up := in.StatusUpdate
	if up.WifiSignal != nil {
		q := WifiQuality(*up.WifiSignal)
		up.WifiQuality = &q
	} else if models.DeviceKind(in.DeviceID) == models.KindAndroid {
		q := 100
		up.WifiQuality = &q
	}

	t, isNew := h.reg.UpsertStatus(in.DeviceID, remoteIP(r), up)
	if isNew {
		logs.Logger.Infof("new timer registered: %s (%s)", in.DeviceID, t.IPAddress)
	}

	resp := statusResponse{Status: "ok"}
	if cmd, settings, ok := h.reg.TakePending(in.DeviceID); ok {
		resp.Command = cmd
		resp.Settings = settings
		logs.Logger.Infof("delivered command %q to %s", cmd, in.DeviceID)
	}
	if sr, table, ok := h.reg.TakeSeatNotice(in.DeviceID); ok {
		resp.SeatRequest = sr
		if h.dedup.Allow(notify.SeatKey(table, sr.OpenSeats)) {
			h.bus.Emit(events.Payload{Event: events.SeatNotification, TableNumber: table, Seats: sr.OpenSeats})
		}
	}

	if isNew {
		h.bus.Emit(events.Payload{Event: events.TimerConnected, DeviceID: in.DeviceID})
	} else {
		h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: in.DeviceID})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]
	var s models.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad JSON", err.Error(), nil)
		return
	}
	if err := s.Validate(); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Invalid settings", err.Error(), nil)
		return
	}

	h.reg.ApplySettings(deviceID, s)
	logs.Logger.Infof("settings queued for %s: %+v", deviceID, s)
	h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: deviceID})

	writeJSON(w, http.StatusOK, map[string]any{"status": "settings_queued", "settings": s})
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]
	var in struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Command == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Missing command", "body must carry a command", nil)
		return
	}

	switch in.Command {
	case CmdClearFloorman:
		if _, ok := h.reg.Get(deviceID); !ok {
			models.WriteProblem(w, http.StatusNotFound, "Not found", "timer not found", map[string]string{"device_id": deviceID})
			return
		}
		h.reg.ClearFloorman(deviceID)
		h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: deviceID})
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "command": in.Command})

	case CmdResetSeatInfo:
		if _, ok := h.reg.Get(deviceID); !ok {
			models.WriteProblem(w, http.StatusNotFound, "Not found", "timer not found", map[string]string{"device_id": deviceID})
			return
		}
		h.reg.ResetSeatInfo(deviceID)
		h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: deviceID})
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "command": in.Command})

	default:
		if err := h.reg.EnqueueCommand(deviceID, in.Command); err != nil {
			models.WriteProblem(w, http.StatusNotFound, "Not found", "timer not found", map[string]string{"device_id": deviceID})
			return
		}
		logs.Logger.Infof("command %q queued for %s", in.Command, deviceID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "command_queued", "command": in.Command})
	}
}

func (h *Handler) handleSeatRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TableNumber int    `json:"table_number"`
		Seats       []int  `json:"seats"`
		Action      string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad JSON", err.Error(), nil)
		return
	}

	deviceID, openSeats, _, ok := h.reg.MergeSeats(in.TableNumber, in.Seats, in.Action)
	if !ok {
		models.WriteProblem(w, http.StatusNotFound, "Not found", "no device for that table",
			map[string]string{"table_number": strconv.Itoa(in.TableNumber)})
		return
	}
	logs.Logger.Infof("seat request for table %d: open seats %v", in.TableNumber, openSeats)

	if h.dedup.Allow(notify.SeatKey(in.TableNumber, openSeats)) {
		h.bus.Emit(events.Payload{Event: events.SeatNotification, TableNumber: in.TableNumber, Seats: openSeats})
	}
	h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: deviceID})

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "open_seats": openSeats})
}

func (h *Handler) handleFloormanRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TableNumber int `json:"table_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad JSON", err.Error(), nil)
		return
	}
	logs.Logger.Infof("floorman called for table %d", in.TableNumber)

	// The notification fires even with no matching device; the call came
	// from a table either way and staff still wants to see it.
	if deviceID, ok := h.reg.CallFloorman(in.TableNumber); ok {
		h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: deviceID})
	}
	if h.dedup.Allow(notify.FloormanKey(in.TableNumber)) {
		h.bus.Emit(events.Payload{Event: events.FloormanNotification, TableNumber: in.TableNumber})
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (h *Handler) handleClearFloorman(w http.ResponseWriter, r *http.Request) {
	table, err := strconv.Atoi(mux.Vars(r)["table_number"])
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad table number", err.Error(), nil)
		return
	}

	deviceID, cleared, ok := h.reg.ClearFloormanByTable(table)
	if !ok || !cleared {
		models.WriteProblem(w, http.StatusNotFound, "Not found", "no floorman call for that table",
			map[string]string{"table_number": strconv.Itoa(table)})
		return
	}
	h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: deviceID})
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (h *Handler) handleBarServiceRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TableNumber int   `json:"table_number"`
		Timestamp   int64 `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad JSON", err.Error(), nil)
		return
	}
	logs.Logger.Infof("bar service request from table %d", in.TableNumber)

	if deviceID, ok := h.reg.MarkBarService(in.TableNumber); ok {
		h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: deviceID})
	}
	req := h.bars.Add(in.TableNumber, in.Timestamp, models.BarSourceApp)
	h.bus.Emit(events.Payload{Event: events.BarServiceNotification, TableNumber: in.TableNumber})

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "request_id": req.ID})
}

func (h *Handler) handleListBarRequests(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.bars.List())
}

func (h *Handler) handleCompleteBarRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.bars.Complete(id) {
		models.WriteProblem(w, http.StatusNotFound, "Not found", "bar request not found", map[string]string{"id": id})
		return
	}
	logs.Logger.Infof("bar request %s completed", id)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

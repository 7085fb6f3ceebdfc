package barsvc

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"timerhub/internal/events"
	"timerhub/internal/logs"
	"timerhub/internal/models"
	"timerhub/internal/registry"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"
)

//go:embed templates/*.html
var tplFS embed.FS

var tpls = template.Must(template.ParseFS(tplFS, "templates/*.html"))

// Handler serves the browser-facing side of the bar service: the staff
// board, the QR scan landing page, and printable QR codes per table.
// Phones hitting these pages go through the same registry/bar list as
// the JSON API.
type Handler struct {
	reg     *registry.Registry
	bars    *registry.BarList
	bus     *events.Bus
	started time.Time
}

func New(reg *registry.Registry, bars *registry.BarList, bus *events.Bus) *Handler {
	return &Handler{reg: reg, bars: bars, bus: bus, started: time.Now()}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/bar-manager", h.handleBarManager).Methods(http.MethodGet)
	r.HandleFunc("/qr/bar-request/{table_number}", h.handleQRBarRequest).Methods(http.MethodGet)
	r.HandleFunc("/qr/table/{table_number}", h.handleTableQR).Methods(http.MethodGet)
	r.HandleFunc("/qr/status", h.handleQRStatus).Methods(http.MethodGet)
}

type barRow struct {
	models.BarRequest
	When string
	IsQR bool
}

func (h *Handler) handleBarManager(w http.ResponseWriter, _ *http.Request) {
	reqs := h.bars.List()
	rows := make([]barRow, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, barRow{
			BarRequest: r,
			When:       time.UnixMilli(r.Timestamp).Format("15:04:05"),
			IsQR:       r.Source == models.BarSourceQR,
		})
	}
	renderHTML(w, "bar_manager.html", map[string]any{"Requests": rows})
}

// handleQRBarRequest is the scan target printed on the table cards. One
// GET registers the request and confirms to the guest's phone.
func (h *Handler) handleQRBarRequest(w http.ResponseWriter, r *http.Request) {
	table, err := strconv.Atoi(mux.Vars(r)["table_number"])
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad table number", err.Error(), nil)
		return
	}
	logs.Logger.Infof("bar request via QR for table %d", table)

	if deviceID, ok := h.reg.MarkBarService(table); ok {
		h.bus.Emit(events.Payload{Event: events.TimerUpdated, DeviceID: deviceID})
	}
	req := h.bars.Add(table, 0, models.BarSourceQR)
	h.bus.Emit(events.Payload{Event: events.BarServiceNotification, TableNumber: table})

	renderHTML(w, "bar_confirm.html", map[string]any{
		"TableNumber": table,
		"When":        time.UnixMilli(req.Timestamp).Format("15:04:05"),
	})
}

// handleTableQR serves a printable QR code pointing a phone at this
// table's bar-request URL.
func (h *Handler) handleTableQR(w http.ResponseWriter, r *http.Request) {
	table, err := strconv.Atoi(mux.Vars(r)["table_number"])
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad table number", err.Error(), nil)
		return
	}

	target := fmt.Sprintf("http://%s/qr/bar-request/%d", r.Host, table)
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "QR encode failed", err.Error(), nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *Handler) handleQRStatus(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(h.started)
	renderHTML(w, "qr_status.html", map[string]any{
		"OnlineTimers":   h.reg.OnlineCount(),
		"ActiveRequests": h.bars.Len(),
		"Uptime":         fmt.Sprintf("%dh %dm", int(uptime.Hours()), int(uptime.Minutes())%60),
	})
}

func renderHTML(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpls.ExecuteTemplate(w, name, data); err != nil {
		logs.Logger.Errorf("render %s: %v", name, err)
	}
}

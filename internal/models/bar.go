package models

// BarRequest sources.
const (
	BarSourceApp = "app"
	BarSourceQR  = "qr_code"
)

// BarRequest is one outstanding bar-service call. It lives in memory
// until completed or the process restarts.
type BarRequest struct {
	ID          string `json:"id"`
	TableNumber int    `json:"table_number"`
	Timestamp   int64  `json:"timestamp"` // epoch ms
	Source      string `json:"source,omitempty"`
}

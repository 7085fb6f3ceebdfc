package models

import (
	"encoding/json"
	"net/http"
)

// WriteProblem writes a JSON error body. extra carries identifiers that
// help the caller (device id, table number) without free-text parsing.
func WriteProblem(w http.ResponseWriter, status int, title, detail string, extra map[string]string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	body := struct {
		Status int               `json:"status"`
		Title  string            `json:"title"`
		Detail string            `json:"detail,omitempty"`
		Extra  map[string]string `json:"extra,omitempty"`
	}{status, title, detail, extra}
	_ = json.NewEncoder(w).Encode(body)
}

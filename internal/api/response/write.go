package response

import (
	"encoding/json"
	"net/http"
)

// JSON encodes data as the response body. Room and health documents describe
// live state, so nothing is cacheable.
func JSON(w http.ResponseWriter, status int, data any) {
	writeHeaders(w, status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Raw writes an already-encoded JSON document
func Raw(w http.ResponseWriter, status int, body []byte) {
	writeHeaders(w, status)
	_, _ = w.Write(body)
}

func writeHeaders(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
}

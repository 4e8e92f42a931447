package lib

import (
	"encoding/json"
	"net/http"
)

// WriteStatus writes the same JSON envelope gecho produces for status codes
// gecho has no helper for (207, 422).
func WriteStatus(w http.ResponseWriter, status int, message string, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]any{
		"status":  status,
		"success": status < http.StatusBadRequest,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	return json.NewEncoder(w).Encode(body)
}

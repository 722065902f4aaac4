package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// encodeJSON produces the exact bytes jsonResponse writes for data.
func encodeJSON(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	body, err := encodeJSON(data)
	if err != nil {
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	jsonBytesResponse(w, status, body)
}

func jsonBytesResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func parsePathPositiveInt64(w http.ResponseWriter, r *http.Request, key, label string) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue(key))
	if raw == "" {
		jsonError(w, label+" is required", http.StatusBadRequest)
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		jsonError(w, "invalid "+label, http.StatusBadRequest)
		return 0, false
	}
	return value, true
}

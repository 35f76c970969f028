package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const maxBodyBytes = 1 << 20

// decodeJSON enforces a JSON content type and decodes the body into dst.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !requireJSON(w, r) {
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "JSON inválido: "+err.Error())
		return false
	}
	return true
}

// requireJSON ensures the request has Content-Type application/json (optionally with params).
// Writes 415 if not JSON and returns false; otherwise returns true.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	mime := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	if mime != "application/json" {
		writeErr(w, http.StatusUnsupportedMediaType, "Content-Type deve ser application/json.", "unsupported_media_type")
		return false
	}
	return true
}

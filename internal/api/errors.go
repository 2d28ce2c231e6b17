// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"
)

// Client facing error messages.
const (
	msgNoURL         = "No URL provided"
	msgInvalidURL    = "Invalid YouTube URL"
	msgInfoFailed    = "Failed to fetch video info"
	msgConvertFailed = "Conversion failed"
	msgNotFound      = "Not found"
	msgBadMethod     = "Method not allowed"
)

type errorResponse struct {
	Error string `json:"error"`
	// Details maps provider name to the reason it failed.
	Details map[string]string `json:"details,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string, details map[string]string) {
	writeJSON(w, code, errorResponse{Error: msg, Details: details})
}

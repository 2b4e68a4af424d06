package httpapi

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response body. Every endpoint, success or failure,
// responds with this shape so clients can branch on isSuccess alone.
type Envelope struct {
	IsSuccess    bool   `json:"isSuccess"`
	Code         int    `json:"code"`
	ErrorMessage string `json:"errorMessage"`
	Data         any    `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, Envelope{
		IsSuccess: true,
		Code:      http.StatusOK,
		Data:      data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, Envelope{
		IsSuccess:    false,
		Code:         status,
		ErrorMessage: message,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"p9e.in/qrtrack/models"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type pagedEnvelope struct {
	Success    bool              `json:"success"`
	Data       interface{}       `json:"data"`
	Pagination models.Pagination `json:"pagination"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writePaged(w http.ResponseWriter, data interface{}, p models.Pagination) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pagedEnvelope{Success: true, Data: data, Pagination: p})
}

package models

import (
	"fmt"
	"strings"
)

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Validate rejects an empty question and normalizes TopK.
// maxTopK caps runaway requests; defaultTopK fills an unset value.
func (r *AskRequest) Validate(defaultTopK, maxTopK int) error {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	r.Model = strings.TrimSpace(r.Model)
	if r.TopK <= 0 {
		r.TopK = defaultTopK
	}
	if maxTopK > 0 && r.TopK > maxTopK {
		r.TopK = maxTopK
	}
	return nil
}

// AskResponse is the body returned by POST /api/v1/ask.
type AskResponse struct {
	OK        bool   `json:"ok"`
	Answer    string `json:"answer"`
	Citations string `json:"citations"`
}

// IngestResponse is the body returned by POST /api/v1/ingest.
// Status is a human-readable summary ("Loaded 12 chunks." or a
// diagnostic reason for an empty ingestion).
type IngestResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
}

// ErrorResponse is the body of any non-2xx API response.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

package dto

import "time"

type UploadResponse struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	TaskID string `json:"task_id,omitempty"`
}

type RunResponse struct {
	RunID string `json:"run_id"`
}

type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ConversionResponse struct {
	ID             string    `json:"id"`
	RunID          string    `json:"run_id"`
	SourceKey      string    `json:"source_key"`
	Class          string    `json:"class"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	DestinationKey string    `json:"destination_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversionsResponse struct {
	Items  []ConversionResponse `json:"items"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

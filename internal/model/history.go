package model

import "time"

type HistoryStatus string

const (
	HistoryStatusSucceeded HistoryStatus = "SUCCEEDED"
	HistoryStatusFailed    HistoryStatus = "FAILED"
)

type ImportHistory struct {
	ID           int64         `json:"id" db:"id"`
	SessionID    string        `json:"session_id" db:"session_id"`
	Kind         ImportKind    `json:"kind" db:"kind"`
	Year         int           `json:"year" db:"year"`
	Period       Season        `json:"period" db:"period"`
	Filename     string        `json:"filename" db:"filename"`
	Status       HistoryStatus `json:"status" db:"status"`
	SuccessCount int           `json:"success_count" db:"success_count"`
	FailedCount  int           `json:"failed_count" db:"failed_count"`
	ErrorMessage *string       `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

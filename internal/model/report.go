package model

import "time"

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is one timed toast shown after an import.
type Notification struct {
	Level    NotificationLevel `json:"level"`
	Category string            `json:"category,omitempty"`
	Message  string            `json:"message"`
	Duration time.Duration     `json:"duration"`
}

// PanelSection lists the first items of one problem category on the completion step.
type PanelSection struct {
	Category  string   `json:"category"`
	Title     string   `json:"title"`
	Items     []string `json:"items"`
	Remaining int      `json:"remaining"`
}

type Report struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	Notifications []Notification `json:"notifications"`
	Panel         []PanelSection `json:"panel,omitempty"`
	Result        *ImportResult  `json:"result,omitempty"`
}

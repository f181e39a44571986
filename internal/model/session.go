package model

import "time"

type SessionStep string

const (
	StepPreview   SessionStep = "preview"
	StepUploading SessionStep = "uploading"
	StepComplete  SessionStep = "complete"
	StepFailed    SessionStep = "failed"
)

// Session is the transient state of one import, from preview to completion.
type Session struct {
	ID          string      `json:"id"`
	Kind        ImportKind  `json:"kind"`
	Year        int         `json:"year"`
	Period      Season      `json:"period"`
	SubjectID   string      `json:"subject_id,omitempty"`
	ClassroomID string      `json:"classroom_id,omitempty"`
	Filename    string      `json:"filename"`
	StorageKey  string      `json:"storage_key"`
	Step        SessionStep `json:"step"`
	Preview     *Preview    `json:"preview,omitempty"`
	Progress    Progress    `json:"progress"`
	Report      *Report     `json:"report,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Progress counts request body bytes actually handed to the transport.
type Progress struct {
	Loaded int64 `json:"loaded"`
	Total  int64 `json:"total"`
}

func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := int(p.Loaded * 100 / p.Total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

package model

// ImportResult is the backend's response to an import submission.
type ImportResult struct {
	Success          bool               `json:"success"`
	Message          string             `json:"message,omitempty"`
	SuccessCount     int                `json:"success_count"`
	CreatedCount     int                `json:"created_count"`
	UpdatedCount     int                `json:"updated_count"`
	FailedCount      int                `json:"failed_count"`
	Errors           []string           `json:"errors,omitempty"`
	ValidationErrors []ValidationIssue  `json:"validation_errors,omitempty"`
	MissingData      []MissingDataEntry `json:"missing_data,omitempty"`
	Warnings         []string           `json:"warnings,omitempty"`
}

type ValidationIssue struct {
	Row       int    `json:"row,omitempty"`
	StudentID string `json:"student_id"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
}

type MissingDataEntry struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Message     string `json:"message,omitempty"`
}

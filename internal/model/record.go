package model

import "time"

// MaintenanceRecord is the structured result of extracting a maintenance
// announcement from a message. Empty strings mark absent fields.
type MaintenanceRecord struct {
	OriginalSubject string    `json:"original_subject"`
	OriginalBody    string    `json:"original_body"`
	EmailDate       string    `json:"email_date"`
	EmailFrom       string    `json:"email_from"`
	Operator        string    `json:"operator,omitempty"`
	StartTime       string    `json:"start_time,omitempty"`
	EndTime         string    `json:"end_time,omitempty"`
	WorkType        string    `json:"work_type,omitempty"`
	Description     string    `json:"description"`
	ParsedAt        time.Time `json:"parsed_at"`
}

// Usable reports whether the record carries at least one of operator,
// start time or end time. Records that fail this are never delivered.
func (r *MaintenanceRecord) Usable() bool {
	return r != nil && (r.Operator != "" || r.StartTime != "" || r.EndTime != "")
}

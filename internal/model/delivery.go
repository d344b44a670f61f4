package model

import "time"

// Delivery is a row of the delivery log kept by the SQLite backend: one
// maintenance alert that reached the chat.
type Delivery struct {
	// ID is the unique identifier for this delivery.
	ID string `db:"id" json:"id"`

	Subject   string `db:"subject" json:"subject"`
	Operator  string `db:"operator" json:"operator"`
	WorkType  string `db:"work_type" json:"work_type"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`

	// EmailDate is the Date header of the message the alert came from.
	EmailDate string `db:"email_date" json:"email_date"`

	SentAt time.Time `db:"sent_at" json:"sent_at"`
}

// Package extract turns maintenance notices into structured records and
// renders them as chat messages. Everything here is pure: the same input
// and clock always give the same output.
package extract

import (
	"time"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

// Parse extracts a maintenance record from msg. It returns nil when none
// of operator, start time or end time could be found.
func Parse(msg model.DecodedMessage, now time.Time) *model.MaintenanceRecord {
	text := msg.Subject + "\n" + msg.Body

	rec := &model.MaintenanceRecord{
		OriginalSubject: msg.Subject,
		OriginalBody:    msg.Body,
		EmailDate:       msg.Date,
		EmailFrom:       msg.From,
		Operator:        apply(OperatorRules, msg.Subject, text),
		StartTime:       apply(StartTimeRules, msg.Subject, text),
		EndTime:         apply(EndTimeRules, msg.Subject, text),
		WorkType:        apply(WorkTypeRules, msg.Subject, text),
		Description:     Describe(msg.Body),
		ParsedAt:        now,
	}

	if !rec.Usable() {
		return nil
	}
	return rec
}

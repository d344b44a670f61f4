package main

import (
	"fmt"
	"io"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/extract"
	"github.com/IvanDeyter/EmailBot/internal/model"
	"github.com/IvanDeyter/EmailBot/internal/theme"
)

// renderMessage prints one decoded message with its extraction result and
// the alert text that would be sent.
func renderMessage(w io.Writer, msg model.DecodedMessage, now time.Time) {
	lines := []string{
		theme.Field("Subject", msg.Subject),
		theme.Field("From", msg.From),
		theme.Field("Date", msg.Date),
	}

	if !extract.IsMaintenance(msg) {
		lines = append(lines, "", theme.Warn("no maintenance keywords"))
	}

	rec := extract.Parse(msg, now)
	if rec == nil {
		lines = append(lines, theme.Fail("nothing extracted, would not be sent"))
		fmt.Fprintln(w, theme.Panel(lines...))
		return
	}

	lines = append(lines,
		"",
		theme.Field("Operator", rec.Operator),
		theme.Field("Start", rec.StartTime),
		theme.Field("End", rec.EndTime),
		theme.Field("Work type", rec.WorkType),
		"",
		extract.Format(rec, now),
	)
	fmt.Fprintln(w, theme.Panel(lines...))
}

func renderDeliveries(w io.Writer, deliveries []model.Delivery) {
	if len(deliveries) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("no deliveries recorded"))
		return
	}
	lines := make([]string, 0, len(deliveries))
	for _, d := range deliveries {
		lines = append(lines, theme.Field(d.SentAt.Format("02.01 15:04"), d.Operator+"  "+d.Subject))
	}
	fmt.Fprintln(w, theme.Panel(lines...))
}

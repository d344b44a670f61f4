package mailbox

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
)

func crlf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func TestDecodeMessagePrefersPlainText(t *testing.T) {
	raw := crlf(
		"From: noc@example.net",
		"Subject: =?UTF-8?B?0J/Qu9Cw0L3QvtCy0YvQtSDRgNCw0LHQvtGC0Ys=?=",
		"Date: Thu, 26 Jun 2025 19:00:00 +0300",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html version</p>",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain version",
		"--b1--",
		"",
	)

	msg, err := DecodeMessage(42, raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.ID != 42 {
		t.Errorf("ID = %d", msg.ID)
	}
	if msg.Subject != "Плановые работы" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.Date != "Thu, 26 Jun 2025 19:00:00 +0300" {
		t.Errorf("Date = %q", msg.Date)
	}
	if msg.Body != "plain version" {
		t.Errorf("Body = %q, want the text/plain part", msg.Body)
	}
}

func TestDecodeMessageFallsBackToHTML(t *testing.T) {
	raw := crlf(
		"From: =?UTF-8?B?0KHQu9GD0LbQsdCwINC/0L7QtNC00LXRgNC20LrQuA==?= <noc@example.net>",
		"Subject: html only",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="b2"`,
		"",
		"--b2",
		"Content-Type: text/plain; charset=utf-8",
		`Content-Disposition: attachment; filename="notes.txt"`,
		"",
		"attached notes",
		"--b2",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<b>Уважаемые клиенты</b>",
		"--b2--",
		"",
	)

	msg, err := DecodeMessage(1, raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Body != "<b>Уважаемые клиенты</b>" {
		t.Errorf("Body = %q, want the html part", msg.Body)
	}
	if !strings.HasPrefix(msg.From, "Служба поддержки") {
		t.Errorf("From = %q", msg.From)
	}
}

func TestDecodeMessageSinglePartCP1251(t *testing.T) {
	body, err := charmap.Windows1251.NewEncoder().String("Начало работ: 26.06.2025 19:00")
	if err != nil {
		t.Fatal(err)
	}
	raw := append(crlf(
		"From: noc@example.net",
		"Subject: notice",
		"Content-Type: text/plain",
		"Content-Transfer-Encoding: 8bit",
		"",
		"",
	), body...)

	msg, err := DecodeMessage(5, raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Body != "Начало работ: 26.06.2025 19:00" {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestDecodeMessageSinglePartAnyType(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		body    string
	}{
		{
			name:    "octet-stream",
			headers: []string{"Content-Type: application/octet-stream"},
			body:    "hello body",
		},
		{
			name: "text marked as attachment",
			headers: []string{
				"Content-Type: text/plain; charset=utf-8",
				`Content-Disposition: attachment; filename="notice.txt"`,
			},
			body: "Начало работ: 26.06.2025 19:00",
		},
		{
			name:    "html only",
			headers: []string{"Content-Type: text/html; charset=utf-8"},
			body:    "<p>Плановые работы</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := append([]string{"From: noc@example.net", "Subject: notice"}, tt.headers...)
			lines = append(lines, "", tt.body, "")

			msg, err := DecodeMessage(9, crlf(lines...))
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}
			if msg.Body != tt.body {
				t.Errorf("Body = %q, want %q", msg.Body, tt.body)
			}
		})
	}
}

func TestDecodeMessageMultipartSkipsAttachment(t *testing.T) {
	raw := crlf(
		"From: noc@example.net",
		"Subject: notice",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="b2"`,
		"",
		"--b2",
		"Content-Type: text/plain; charset=utf-8",
		`Content-Disposition: attachment; filename="log.txt"`,
		"",
		"attached log",
		"--b2",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"inline text",
		"--b2--",
		"",
	)
	msg, err := DecodeMessage(3, raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Body != "inline text" {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage(1, []byte("not a header line\r\n\r\nbody")); err == nil {
		t.Fatal("expected an error for a malformed header")
	}
}

func TestParseHeaderDate(t *testing.T) {
	date, ok := parseHeaderDate([]byte("Date: Thu, 26 Jun 2025 19:00:00 +0300\r\n"))
	if !ok {
		t.Fatal("expected a date")
	}
	want := time.Date(2025, 6, 26, 16, 0, 0, 0, time.UTC)
	if !date.Equal(want) {
		t.Fatalf("date = %v, want %v", date, want)
	}

	if _, ok := parseHeaderDate([]byte("\r\n")); ok {
		t.Fatal("empty header block must not yield a date")
	}
	if _, ok := parseHeaderDate([]byte("Date: yesterday-ish\r\n\r\n")); ok {
		t.Fatal("unparseable date must not yield a date")
	}
}

func TestStripZoneKeepsWallClock(t *testing.T) {
	in := time.Date(2025, 6, 26, 19, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	out := stripZone(in)
	if out.Location() != time.Local || out.Hour() != 19 || out.Day() != 26 {
		t.Fatalf("stripZone(%v) = %v", in, out)
	}
}

func TestDecodeBodyCascade(t *testing.T) {
	if got := decodeBody([]byte("  ok  ")); got != "ok" {
		t.Errorf("utf-8: %q", got)
	}
	if got := decodeBody([]byte{0xcf, 0xf0, 0xe8}); got != "При" {
		t.Errorf("cp1251: %q", got)
	}
	// 0x98 is unmapped in Windows-1251, so the lossy step takes over.
	if got := decodeBody([]byte{0xcf, 0xf0, 0x98}); got != "\uFFFD" {
		t.Errorf("lossy: %q", got)
	}
	if got := decodeBody(nil); got != "" {
		t.Errorf("empty: %q", got)
	}
}

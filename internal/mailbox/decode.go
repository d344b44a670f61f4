package mailbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"golang.org/x/text/encoding/charmap"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

// DecodeMessage turns a raw RFC 822 message into a DecodedMessage. For a
// multipart message the body is the first inline text/plain part, or the
// first text/html part when there is no plain text. A single-part
// message contributes its whole payload.
func DecodeMessage(id uint32, raw []byte) (model.DecodedMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return model.DecodedMessage{}, fmt.Errorf("parsing message %d: %w", id, err)
	}
	if mr == nil {
		return model.DecodedMessage{}, fmt.Errorf("parsing message %d: empty reader", id)
	}
	defer mr.Close()

	msg := model.DecodedMessage{
		ID:      id,
		Subject: headerText(mr.Header, "Subject"),
		From:    headerText(mr.Header, "From"),
		Date:    mr.Header.Get("Date"),
	}

	var body []byte
	if isMultipart(mr.Header) {
		plain, html, err := readTextParts(mr)
		if err != nil {
			return model.DecodedMessage{}, fmt.Errorf("reading parts of message %d: %w", id, err)
		}
		body = plain
		if body == nil {
			body = html
		}
	} else {
		body, err = readSinglePart(mr)
		if err != nil {
			return model.DecodedMessage{}, fmt.Errorf("reading body of message %d: %w", id, err)
		}
	}
	msg.Body = decodeBody(body)

	return msg, nil
}

func isMultipart(h mail.Header) bool {
	mediaType, _, err := h.ContentType()
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// readSinglePart returns the payload of a non-multipart message whatever
// its content type or disposition.
func readSinglePart(mr *mail.Reader) ([]byte, error) {
	part, err := mr.NextPart()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, err
	}
	if part == nil {
		return nil, nil
	}
	return io.ReadAll(part.Body)
}

// readTextParts walks the MIME tree and returns the first inline
// text/plain and the first inline text/html payload. Attachments are
// skipped.
func readTextParts(mr *mail.Reader) (plain, html []byte, err error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			if plain != nil || html != nil {
				break
			}
			return nil, nil, err
		}
		if part == nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, ctErr := h.ContentType()
		if ctErr != nil || contentType == "" {
			contentType = "text/plain"
		}

		switch {
		case contentType == "text/plain" && plain == nil:
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				return nil, nil, readErr
			}
			plain = body
		case contentType == "text/html" && html == nil:
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				return nil, nil, readErr
			}
			html = body
		}

		if plain != nil {
			break
		}
	}
	return plain, html, nil
}

// decodeBody tries UTF-8, then Windows-1251, then UTF-8 with invalid
// bytes replaced. Windows-1251 output holding a replacement character
// (an unmapped byte) counts as a failed decode.
func decodeBody(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return strings.TrimSpace(string(b))
	}
	if out, err := charmap.Windows1251.NewDecoder().Bytes(b); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
		return strings.TrimSpace(string(out))
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(b), "�"))
}

// headerText decodes MIME encoded-words in a header field. Unknown
// charsets fall back to the raw value with invalid bytes replaced.
func headerText(h mail.Header, key string) string {
	text, err := h.Text(key)
	if err != nil {
		text = h.Get(key)
	}
	return strings.ToValidUTF8(text, "�")
}

// parseHeaderDate reads a header block and parses its Date field.
func parseHeaderDate(raw []byte) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	if !bytes.Contains(raw, []byte("\r\n\r\n")) && !bytes.Contains(raw, []byte("\n\n")) {
		trimmed := bytes.TrimRight(raw, "\r\n")
		raw = append(append([]byte{}, trimmed...), "\r\n\r\n"...)
	}

	th, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return time.Time{}, false
	}

	h := mail.Header{Header: message.Header{Header: th}}
	if h.Get("Date") == "" {
		return time.Time{}, false
	}
	date, err := h.Date()
	if err != nil || date.IsZero() {
		return time.Time{}, false
	}
	return date, true
}

// stripZone keeps the wall clock of t and reinterprets it in local time.
func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}

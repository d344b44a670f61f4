package model

// DecodedMessage is a fetched mail message with its headers and body
// decoded to UTF-8. It lives for one cycle and is never persisted.
type DecodedMessage struct {
	// ID is the server-assigned UID, valid only within the session that
	// produced it.
	ID      uint32 `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`

	// Date is the original Date header, unparsed.
	Date string `json:"date"`

	// Body is the preferred text part, attachments excluded.
	Body string `json:"body"`
}

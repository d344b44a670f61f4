// Package mailbox reads new notices from an IMAP mailbox: a thin session
// over go-imap, MIME decoding, and the checkpointed incremental fetcher.
package mailbox

import (
	"context"
	"time"
)

// SearchCriteria narrows a mailbox search to one sender and a start date.
// Since has day granularity on the server side.
type SearchCriteria struct {
	From  string
	Since time.Time
}

// Session is a stateful connection to a single mailbox. Errors returned by
// an implementation should be *Error values so callers can tell transient
// network trouble from terminal failures.
type Session interface {
	Connect(ctx context.Context) error
	SelectMailbox(name string) error
	Search(criteria SearchCriteria) ([]uint32, error)
	// FetchHeaderDate returns ok=false when the message has no parseable
	// Date header.
	FetchHeaderDate(id uint32) (date time.Time, ok bool, err error)
	FetchFull(id uint32) ([]byte, error)
	MarkSeen(id uint32) error
	// Alive reports whether the session answers a NOOP.
	Alive() bool
	// Close is best-effort and safe to call on a closed session.
	Close()
}

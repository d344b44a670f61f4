package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/emersion/go-imap/v2"
)

// Kind tells the fetcher whether retrying an operation can help.
type Kind int

const (
	// KindTerminal failures are not expected to go away on retry:
	// protocol errors, malformed responses, server NO/BAD replies.
	KindTerminal Kind = iota
	// KindTransient failures come from the network: resets, broken
	// pipes, timeouts, closed connections.
	KindTransient
	// KindAuth is a rejected LOGIN. It is terminal.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	default:
		return "terminal"
	}
}

// Error is a mail session failure tagged with its Kind at the point the
// IMAP layer produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap tags err with op and a Kind derived from the error itself.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return &Error{Kind: tagged.Kind, Op: op, Err: err}
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

// transientSignatures is the last-resort test for errors that reach us
// untyped, matched against the lowercased error text.
var transientSignatures = []string{
	"broken pipe",
	"connection",
	"socket",
	"timeout",
	"network",
}

func classify(err error) Kind {
	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		return KindTerminal
	}

	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.ETIMEDOUT):
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	if hasTransientSignature(err.Error()) {
		return KindTransient
	}
	return KindTerminal
}

func hasTransientSignature(msg string) bool {
	msg = strings.ToLower(msg)
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying after a reconnect.
// Tagged errors answer from their Kind; anything else is classified from
// its type and, failing that, its text.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind == KindTransient
	}
	return classify(err) == KindTransient
}

// IsAuth reports whether err (or any error in its chain) is a rejected login.
func IsAuth(err error) bool {
	var tagged *Error
	return errors.As(err, &tagged) && tagged.Kind == KindAuth
}

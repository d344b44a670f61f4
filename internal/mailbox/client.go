package mailbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// errNoSession is returned by operations called before Connect.
var errNoSession = &Error{Kind: KindTransient, Op: "session", Err: errors.New("not connected")}

// IMAPConfig describes how to reach and log in to the mailbox.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS selects implicit TLS. When false the session upgrades with STARTTLS.
	TLS     bool
	Timeout time.Duration
}

// IMAPSession implements Session over go-imap v2.
type IMAPSession struct {
	cfg    IMAPConfig
	logger *slog.Logger

	conn   net.Conn
	client *imapclient.Client
}

// NewIMAPSession returns an unconnected session.
func NewIMAPSession(cfg IMAPConfig, logger *slog.Logger) *IMAPSession {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IMAPSession{cfg: cfg, logger: logger}
}

func (s *IMAPSession) addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Connect dials the server and authenticates. Any previous connection is
// dropped first, so Connect can be called again after a failure.
func (s *IMAPSession) Connect(ctx context.Context) error {
	s.Close()

	addr := s.addr()
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.TLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return wrap("connect", fmt.Errorf("dialing IMAP %s: %w", addr, err))
	}
	_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))

	var client *imapclient.Client
	if s.cfg.TLS {
		client = imapclient.New(conn, nil)
	} else {
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			_ = conn.Close()
			return wrap("starttls", fmt.Errorf("upgrading %s: %w", addr, err))
		}
	}

	if err := client.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		if IsTransient(err) {
			return wrap("login", err)
		}
		return &Error{
			Kind: KindAuth,
			Op:   "login",
			Err:  fmt.Errorf("authentication failed for %s: %w", s.cfg.Username, err),
		}
	}
	_ = conn.SetDeadline(time.Time{})

	s.conn = conn
	s.client = client
	s.logger.Info("connected to mailbox", "server", addr, "user", s.cfg.Username)
	return nil
}

// begin arms the I/O deadline for one operation and returns the function
// that disarms it.
func (s *IMAPSession) begin() (*imapclient.Client, func(), error) {
	if s.client == nil {
		return nil, nil, errNoSession
	}
	_ = s.conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	conn := s.conn
	return s.client, func() { _ = conn.SetDeadline(time.Time{}) }, nil
}

// SelectMailbox opens name for the following operations.
func (s *IMAPSession) SelectMailbox(name string) error {
	client, done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	if name == "" {
		name = "INBOX"
	}
	if _, err := client.Select(name, nil).Wait(); err != nil {
		return wrap("select", fmt.Errorf("selecting %s: %w", name, err))
	}
	return nil
}

// Search returns the UIDs matching the criteria, oldest first.
func (s *IMAPSession) Search(criteria SearchCriteria) ([]uint32, error) {
	client, done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	sc := &imap.SearchCriteria{}
	if criteria.From != "" {
		sc.Header = []imap.SearchCriteriaHeaderField{{Key: "From", Value: criteria.From}}
	}
	if !criteria.Since.IsZero() {
		sc.Since = criteria.Since
	}

	data, err := client.UIDSearch(sc, nil).Wait()
	if err != nil {
		return nil, wrap("search", fmt.Errorf("searching messages: %w", err))
	}

	uids := data.AllUIDs()
	ids := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, uint32(uid))
	}
	return ids, nil
}

// FetchHeaderDate fetches only the Date header of a message.
func (s *IMAPSession) FetchHeaderDate(id uint32) (time.Time, bool, error) {
	raw, err := s.fetchSection("fetch date", id, &imap.FetchItemBodySection{
		Specifier:    imap.PartSpecifierHeader,
		HeaderFields: []string{"Date"},
		Peek:         true,
	})
	if err != nil {
		return time.Time{}, false, err
	}
	date, ok := parseHeaderDate(raw)
	return date, ok, nil
}

// FetchFull returns the raw RFC 822 message without setting \Seen.
func (s *IMAPSession) FetchFull(id uint32) ([]byte, error) {
	return s.fetchSection("fetch body", id, &imap.FetchItemBodySection{Peek: true})
}

func (s *IMAPSession) fetchSection(op string, id uint32, section *imap.FetchItemBodySection) ([]byte, error) {
	client, done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	fetchCmd := client.Fetch(imap.UIDSetNum(imap.UID(id)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		if err := fetchCmd.Close(); err != nil {
			return nil, wrap(op, fmt.Errorf("fetching UID %d: %w", id, err))
		}
		return nil, &Error{Kind: KindTerminal, Op: op, Err: fmt.Errorf("message UID %d not found", id)}
	}

	var raw []byte
	for {
		item := msg.Next()
		if item == nil {
			break
		}
		body, ok := item.(imapclient.FetchItemDataBodySection)
		if !ok || body.Literal == nil {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, body.Literal); err != nil {
			return nil, wrap(op, fmt.Errorf("reading UID %d: %w", id, err))
		}
		raw = buf.Bytes()
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, wrap(op, fmt.Errorf("fetching UID %d: %w", id, err))
	}
	return raw, nil
}

// MarkSeen adds the \Seen flag to a message.
func (s *IMAPSession) MarkSeen(id uint32) error {
	client, done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(id)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return wrap("store", fmt.Errorf("marking UID %d seen: %w", id, err))
	}
	return nil
}

// Alive sends a NOOP and reports whether the server answered.
func (s *IMAPSession) Alive() bool {
	client, done, err := s.begin()
	if err != nil {
		return false
	}
	defer done()

	if err := client.Noop().Wait(); err != nil {
		s.logger.Debug("mailbox NOOP failed", "error", err)
		return false
	}
	return true
}

// Close logs out and drops the connection. Failures are only logged.
func (s *IMAPSession) Close() {
	if s.client == nil {
		return
	}
	_ = s.conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug("mailbox logout failed", "error", err)
	}
	if err := s.client.Close(); err != nil {
		s.logger.Debug("closing mailbox connection", "error", err)
	}
	s.client = nil
	s.conn = nil
}

// Package notify delivers alerts to a Telegram chat and remembers what it
// already sent so the same text is never posted twice.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/IvanDeyter/EmailBot/internal/extract"
	"github.com/IvanDeyter/EmailBot/internal/model"
)

const (
	defaultAPIURL  = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
)

// TelegramConfig configures the bot client.
type TelegramConfig struct {
	Token  string
	ChatID string
	// APIURL overrides the Bot API endpoint. Tests point it at httptest.
	APIURL string
	// ProxyURL routes all API calls through an http, https or socks5 proxy.
	ProxyURL string
	// Timeout bounds every API call.
	Timeout time.Duration
}

// Telegram sends Markdown messages to one chat through the Bot API.
type Telegram struct {
	cfg    TelegramConfig
	bot    *bot.Bot
	ledger Ledger
	logger *slog.Logger
	now    func() time.Time
}

// NewTelegram returns a client for cfg that deduplicates through ledger.
// No request is made until the first call.
func NewTelegram(cfg TelegramConfig, ledger Ledger, logger *slog.Logger) (*Telegram, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
		logger.Info("using proxy for Telegram", "proxy", proxy.Redacted())
	}

	t := &Telegram{
		cfg:    cfg,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}

	b, err := bot.New(cfg.Token,
		bot.WithServerURL(cfg.APIURL),
		bot.WithHTTPClient(cfg.Timeout, &http.Client{Transport: transport, Timeout: cfg.Timeout}),
		bot.WithSkipGetMe(),
	)
	if err != nil {
		return nil, t.redact(fmt.Errorf("creating telegram bot: %w", err))
	}
	t.bot = b
	return t, nil
}

// APIError is a Bot API call the server rejected.
type APIError struct {
	Method      string
	Code        int
	Description string
	Err         error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

func (e *APIError) Unwrap() error { return e.Err }

// Hint explains the common failure modes in operator terms.
func (e *APIError) Hint() string {
	desc := strings.ToLower(e.Description)
	switch {
	case strings.Contains(desc, "chat not found"):
		return "chat not found: check TELEGRAM_CHAT_ID and that the bot was added to the chat"
	case strings.Contains(desc, "forbidden") || e.Code == http.StatusForbidden:
		return "the bot is not allowed to post in this chat"
	case strings.Contains(desc, "too many requests") || e.Code == http.StatusTooManyRequests:
		return "rate limited by Telegram"
	default:
		return ""
	}
}

// apiError maps the library's error values to an *APIError carrying the
// HTTP-style code. Transport failures are returned with the token removed.
func (t *Telegram) apiError(method string, err error) error {
	var tooMany *bot.TooManyRequestsError
	code := 0
	switch {
	case errors.As(err, &tooMany):
		code = http.StatusTooManyRequests
	case errors.Is(err, bot.ErrorBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, bot.ErrorUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, bot.ErrorForbidden):
		code = http.StatusForbidden
	case errors.Is(err, bot.ErrorNotFound):
		code = http.StatusNotFound
	case errors.Is(err, bot.ErrorConflict):
		code = http.StatusConflict
	default:
		return t.redact(fmt.Errorf("telegram %s: %w", method, err))
	}
	return &APIError{Method: method, Code: code, Description: err.Error(), Err: err}
}

// redactedError hides the bot token that net/http puts in URL errors.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func (t *Telegram) redact(err error) error {
	if t.cfg.Token == "" || !strings.Contains(err.Error(), t.cfg.Token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), t.cfg.Token, "<token>"), err: err}
}

// Send posts text to the chat unless the same text was sent recently.
// A duplicate counts as delivered.
func (t *Telegram) Send(ctx context.Context, text string, silent bool) error {
	hash := ContentHash(text)

	dup, err := t.ledger.Contains(ctx, hash)
	if err != nil {
		t.logger.Warn("checking sent-message ledger", "error", err)
	}
	if dup {
		t.logger.Info("message already sent, skipping duplicate", "hash", hash)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	sent, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:              t.cfg.ChatID,
		Text:                text,
		ParseMode:           models.ParseModeMarkdownV1,
		DisableNotification: silent,
	})
	if err != nil {
		err = t.apiError("sendMessage", err)
		t.logFailure("sending message", err)
		return err
	}

	if err := t.ledger.Add(ctx, hash); err != nil {
		t.logger.Error("recording sent message", "hash", hash, "error", err)
	}
	t.logger.Info("message sent", "message_id", sent.ID, "silent", silent)
	return nil
}

func (t *Telegram) logFailure(msg string, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if hint := apiErr.Hint(); hint != "" {
			t.logger.Error(msg, "error", err, "hint", hint)
			return
		}
	}
	t.logger.Error(msg, "error", err)
}

// SendMaintenance formats rec and sends it with sound on.
func (t *Telegram) SendMaintenance(ctx context.Context, rec *model.MaintenanceRecord) error {
	t.logger.Info("sending maintenance alert", "operator", rec.Operator)
	return t.Send(ctx, extract.Format(rec, t.now()), false)
}

// SendError sends an operator alert silently.
func (t *Telegram) SendError(ctx context.Context, text string) error {
	return t.Send(ctx, ErrorMessage(text, t.now()), true)
}

// SendTest sends the self-check message.
func (t *Telegram) SendTest(ctx context.Context) error {
	return t.Send(ctx, TestMessage(t.now()), false)
}

// TestConnection checks the token with getMe and the chat with getChat.
func (t *Telegram) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*t.cfg.Timeout)
	defer cancel()

	me, err := t.bot.GetMe(ctx)
	if err != nil {
		err = t.apiError("getMe", err)
		t.logFailure("telegram getMe failed", err)
		return fmt.Errorf("checking bot token: %w", err)
	}
	t.logger.Info("telegram bot connected", "username", me.Username, "name", me.FirstName)

	chat, err := t.bot.GetChat(ctx, &bot.GetChatParams{ChatID: t.cfg.ChatID})
	if err != nil {
		err = t.apiError("getChat", err)
		t.logFailure("telegram getChat failed", err)
		return fmt.Errorf("checking chat %s: %w", t.cfg.ChatID, err)
	}
	title := chat.Title
	if title == "" {
		title = fmt.Sprint(chat.ID)
	}
	t.logger.Info("telegram chat reachable", "chat", title)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/checkpoint"
	"github.com/IvanDeyter/EmailBot/internal/credential"
	"github.com/IvanDeyter/EmailBot/internal/cycle"
	"github.com/IvanDeyter/EmailBot/internal/mailbox"
	"github.com/IvanDeyter/EmailBot/internal/model"
	"github.com/IvanDeyter/EmailBot/internal/notify"
	"github.com/IvanDeyter/EmailBot/internal/store"
)

// loadConfig reads the config file and environment, fills missing
// secrets from the keyring, and validates the result.
func loadConfig(path string) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.FillSecrets(credential.Get)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is the wired service.
type app struct {
	cfg    *model.AppConfig
	logger *slog.Logger

	fetcher     *mailbox.Fetcher
	telegram    *notify.Telegram
	checkpoints checkpoint.Store
	db          *store.SQLiteStore
}

func buildApp(cfg *model.AppConfig, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var ledger notify.Ledger
	switch cfg.State.Backend {
	case model.StateBackendSQLite:
		db, err := store.NewSQLiteStore(cfg.State.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening state database: %w", err)
		}
		a.db = db
		a.checkpoints = db
		ledger = db
		logger.Info("state in sqlite", "path", cfg.State.DBPath)
	default:
		a.checkpoints = checkpoint.NewFileStore(cfg.State.File)
		ledger = notify.OpenFileLedger(cfg.State.LedgerFile, logger)
		logger.Info("state in json files", "checkpoint", cfg.State.File, "ledger", cfg.State.LedgerFile)
	}

	session := mailbox.NewIMAPSession(mailbox.IMAPConfig{
		Host:     cfg.Mail.Server,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Login,
		Password: cfg.Mail.Password,
		TLS:      cfg.Mail.TLS,
		Timeout:  seconds(cfg.Mail.TimeoutSec),
	}, logger.With("component", "mailbox"))

	a.fetcher = mailbox.NewFetcher(session, a.checkpoints, mailbox.FetcherConfig{
		Mailbox:    cfg.Mail.Mailbox,
		RetryDelay: seconds(cfg.Mail.RetryDelaySec),
		MarkSeen:   cfg.Mail.MarkSeen,
	}, logger.With("component", "fetcher"))

	tg, err := notify.NewTelegram(notify.TelegramConfig{
		Token:    cfg.Telegram.Token,
		ChatID:   cfg.Telegram.ChatID,
		APIURL:   cfg.Telegram.APIURL,
		ProxyURL: cfg.Telegram.ProxyURL,
		Timeout:  seconds(cfg.Telegram.TimeoutSec),
	}, ledger, logger.With("component", "telegram"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.telegram = tg

	return a, nil
}

// controller builds the cycle controller over the wired parts.
func (a *app) controller() *cycle.Controller {
	var deliveries cycle.DeliveryRecorder
	if a.db != nil {
		deliveries = a.db
	}
	return cycle.New(cycle.Config{
		Sender:     a.cfg.Mail.Sender,
		Interval:   seconds(a.cfg.Bot.CheckInterval),
		RetryCount: a.cfg.Mail.RetryCount,
		MaxErrors:  a.cfg.Bot.MaxErrors,
		Cooldown:   seconds(a.cfg.Bot.ErrorCooldown),
	}, a.fetcher, a.telegram, deliveries, a.logger.With("component", "cycle"))
}

func (a *app) Close() error {
	var errs []error
	if a.fetcher != nil {
		a.fetcher.Close()
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

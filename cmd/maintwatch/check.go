package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/mailbox"
	"github.com/IvanDeyter/EmailBot/internal/model"
	"github.com/IvanDeyter/EmailBot/internal/theme"
)

func checkCmd(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	days := fs.Int("days", 7, "how many days of mail to dry-run")
	sendTest := fs.Bool("send-test", false, "send a test message to the chat")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, theme.Fail(err.Error()))
		return 1
	}

	// Diagnostics go to stderr; the report goes to stdout.
	logCfg := cfg.Log
	logCfg.Dir = ""
	if logCfg.Level == "" || logCfg.Level == "INFO" {
		logCfg.Level = "WARN"
	}
	logger, _, err := newLogger(logCfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, theme.Fail(err.Error()))
		return 1
	}

	a, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, theme.Fail(err.Error()))
		return 1
	}
	defer a.Close()

	if ok := runChecks(context.Background(), os.Stdout, a, *days, *sendTest); !ok {
		return 1
	}
	return 0
}

func runChecks(ctx context.Context, w io.Writer, a *app, days int, sendTest bool) bool {
	ok := true
	fmt.Fprintln(w, theme.HeaderStyle.Render("Connections"))

	mailErr := withSpinner("connecting to "+a.cfg.Mail.Server, func() error {
		return a.fetcher.Connect(ctx)
	})
	if mailErr != nil {
		fmt.Fprintln(w, theme.Fail(fmt.Sprintf("mail %s: %v", a.cfg.Mail.Server, mailErr)))
		ok = false
	} else {
		fmt.Fprintln(w, theme.OK("mail "+a.cfg.Mail.Server))
	}

	tgErr := withSpinner("checking telegram chat", func() error {
		return a.telegram.TestConnection(ctx)
	})
	if tgErr != nil {
		fmt.Fprintln(w, theme.Fail(fmt.Sprintf("telegram: %v", tgErr)))
		ok = false
	} else {
		fmt.Fprintln(w, theme.OK("telegram chat "+a.cfg.Telegram.ChatID))
		if sendTest {
			if err := a.telegram.SendTest(ctx); err != nil {
				fmt.Fprintln(w, theme.Fail(fmt.Sprintf("test message: %v", err)))
				ok = false
			} else {
				fmt.Fprintln(w, theme.OK("test message sent"))
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.HeaderStyle.Render("State"))
	cp, err := a.checkpoints.Load(ctx)
	switch {
	case err != nil:
		fmt.Fprintln(w, theme.Fail(fmt.Sprintf("checkpoint: %v", err)))
		ok = false
	case cp == nil:
		fmt.Fprintln(w, theme.Warn("no checkpoint yet, first run will look back 24h"))
	default:
		fmt.Fprintln(w, theme.Field("Last check", cp.LastCheckTime.Format("02.01.2006 15:04:05")))
	}

	if a.db != nil {
		recent, err := a.db.RecentDeliveries(ctx, 5)
		if err != nil {
			fmt.Fprintln(w, theme.Fail(fmt.Sprintf("deliveries: %v", err)))
			ok = false
		} else {
			renderDeliveries(w, recent)
		}
	}

	if mailErr != nil {
		return ok
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.HeaderStyle.Render(fmt.Sprintf("Mail from %s, last %d days", a.cfg.Mail.Sender, days)))
	var msgs []model.DecodedMessage
	_ = withSpinner("fetching mail", func() error {
		msgs = a.fetcher.GetNewEmails(ctx, a.cfg.Mail.Sender, mailbox.FetchOptions{
			UpdateCheckpoint: false,
			RetryCount:       1,
			Lookback:         time.Duration(days) * 24 * time.Hour,
		})
		return nil
	})
	if len(msgs) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("no messages"))
	}
	now := time.Now()
	for _, msg := range msgs {
		renderMessage(w, msg, now)
	}
	return ok
}

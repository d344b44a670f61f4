package main

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/IvanDeyter/EmailBot/internal/credential"
	"github.com/IvanDeyter/EmailBot/internal/model"
	"github.com/IvanDeyter/EmailBot/internal/theme"
)

// setupValues backs the form fields.
type setupValues struct {
	server   string
	port     string
	login    string
	password string
	sender   string
	token    string
	chatID   string
	proxy    string
}

func setupCmd(args []string) int {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, theme.Fail(err.Error()))
		return 1
	}

	v := setupValues{
		server: cfg.Mail.Server,
		port:   strconv.Itoa(cfg.Mail.Port),
		login:  cfg.Mail.Login,
		sender: cfg.Mail.Sender,
		chatID: cfg.Telegram.ChatID,
		proxy:  cfg.Telegram.ProxyURL,
	}

	if err := buildSetupForm(&v).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(os.Stderr, theme.Warn("setup cancelled"))
			return 1
		}
		fmt.Fprintln(os.Stderr, theme.Fail(err.Error()))
		return 1
	}

	if err := applySetup(cfg, v, credential.Set); err != nil {
		fmt.Fprintln(os.Stderr, theme.Fail(err.Error()))
		return 1
	}
	if err := model.SaveConfig(*configPath, cfg); err != nil {
		fmt.Fprintln(os.Stderr, theme.Fail(err.Error()))
		return 1
	}

	fmt.Println(theme.OK("configuration written to " + *configPath))
	fmt.Println(theme.HelpStyle.Render("run `maintwatch check --send-test` to verify"))
	return 0
}

func buildSetupForm(v *setupValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP server").
				Placeholder("imap.yandex.ru").
				Value(&v.server).
				Validate(required("server")),
			huh.NewInput().
				Title("Port").
				Description("993 for implicit TLS").
				Value(&v.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Login").
				Value(&v.login).
				Validate(required("login")),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring. Leave empty to keep the current one.").
				EchoMode(huh.EchoModePassword).
				Value(&v.password),
			huh.NewInput().
				Title("Sender").
				Description("Only mail from this address is inspected").
				Placeholder("noc@carrier.example").
				Value(&v.sender).
				Validate(required("sender")),
		).Title("Mailbox"),
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("Stored in the system keyring. Leave empty to keep the current one.").
				EchoMode(huh.EchoModePassword).
				Value(&v.token),
			huh.NewInput().
				Title("Chat ID").
				Placeholder("-1001234567890").
				Value(&v.chatID).
				Validate(required("chat id")),
			huh.NewInput().
				Title("Proxy URL").
				Description("Optional, e.g. socks5://127.0.0.1:1080").
				Value(&v.proxy).
				Validate(validateProxy),
		).Title("Telegram"),
	)
}

// applySetup copies the form values into cfg and stores non-empty secrets.
func applySetup(cfg *model.AppConfig, v setupValues, setSecret func(key, value string) error) error {
	port, err := strconv.Atoi(strings.TrimSpace(v.port))
	if err != nil {
		return fmt.Errorf("port: %w", err)
	}

	cfg.Mail.Server = strings.TrimSpace(v.server)
	cfg.Mail.Port = port
	cfg.Mail.Login = strings.TrimSpace(v.login)
	cfg.Mail.Sender = strings.TrimSpace(v.sender)
	cfg.Telegram.ChatID = strings.TrimSpace(v.chatID)
	cfg.Telegram.ProxyURL = strings.TrimSpace(v.proxy)

	if err := setSecret(model.SecretMailPassword, v.password); err != nil {
		return fmt.Errorf("storing mail password: %w", err)
	}
	if err := setSecret(model.SecretTelegramToken, strings.TrimSpace(v.token)); err != nil {
		return fmt.Errorf("storing bot token: %w", err)
	}
	return nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func validateProxy(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid proxy URL")
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return nil
	default:
		return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
}

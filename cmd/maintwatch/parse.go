package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/extract"
	"github.com/IvanDeyter/EmailBot/internal/mailbox"
	"github.com/IvanDeyter/EmailBot/internal/theme"
)

func parseCmd(args []string) int {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print extracted records as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: maintwatch parse [-json] file.eml...")
		return 2
	}

	failed := false
	for _, path := range fs.Args() {
		if err := parseFile(os.Stdout, path, *asJSON, time.Now()); err != nil {
			fmt.Fprintln(os.Stderr, theme.Fail(err.Error()))
			failed = true
		}
	}
	if failed {
		return 1
	}
	return 0
}

func parseFile(w io.Writer, path string, asJSON bool, now time.Time) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	msg, err := mailbox.DecodeMessage(0, raw)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	if !asJSON {
		fmt.Fprintln(w, theme.HeaderStyle.Render(path))
		renderMessage(w, msg, now)
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	// A nil record encodes as null.
	return enc.Encode(extract.Parse(msg, now))
}

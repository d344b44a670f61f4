// Command maintwatch watches a mailbox for carrier maintenance notices
// and forwards them to a Telegram chat.
//
// Usage:
//
//	maintwatch [run] [-config path]
//	maintwatch check [-config path] [-days n] [-send-test]
//	maintwatch parse [-json] file.eml...
//	maintwatch setup [-config path]
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "reading .env: %v\n", err)
	}
	os.Exit(dispatch(os.Args[1:]))
}

func dispatch(args []string) int {
	name := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}

	switch name {
	case "run":
		return runCmd(args)
	case "check":
		return checkCmd(args)
	case "parse":
		return parseCmd(args)
	case "setup":
		return setupCmd(args)
	case "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `maintwatch forwards maintenance notices from a mailbox to Telegram.

Commands:
  run     watch the mailbox (default)
  check   test both connections and dry-run a fetch
  parse   run the extractor on .eml files
  setup   store credentials and write the config file
`)
}

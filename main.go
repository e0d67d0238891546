package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/readinglist/internal/cli"
	"github.com/mrlokans/readinglist/internal/config"
	"github.com/mrlokans/readinglist/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	var cmd cli.Command
	switch command {
	case "save":
		cmd = cli.NewSaveCommand()
	case "list":
		cmd = cli.NewListCommand()
	case "refresh":
		cmd = cli.NewRefreshCommand()
	case "login":
		cmd = cli.NewLoginCommand()
	case "logout":
		cmd = cli.NewLogoutCommand()
	case "outbox":
		cmd = cli.NewOutboxCommand()

	case "version":
		fmt.Printf("readinglist %s (%s)\n", Version, Commit)
		return

	case "-h", "--help", "help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := cli.Run(cmd, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the sync engine and control API (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  save      Save a URL to the list, offline if needed\n")
	fmt.Fprintf(os.Stderr, "  list      Print the local list\n")
	fmt.Fprintf(os.Stderr, "  refresh   Send pending changes and pull the remote list\n")
	fmt.Fprintf(os.Stderr, "  login     Store the access token\n")
	fmt.Fprintf(os.Stderr, "  logout    Forget the access token\n")
	fmt.Fprintf(os.Stderr, "  outbox    List changes the server has not confirmed\n")
	fmt.Fprintf(os.Stderr, "  version   Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}

package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/authsvc/internal/cli"
	"github.com/mrlokans/authsvc/internal/config"
	"github.com/mrlokans/authsvc/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		if err := entrypoint.Run(config.NewConfig(), Version+"+"+Commit); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "create-user":
		cmd = cli.NewCreateUserCommand()
	case "revoke-sessions":
		cmd = cli.NewRevokeSessionsCommand()
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve            Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  create-user      Register a user from the command line\n")
	fmt.Fprintf(os.Stderr, "  revoke-sessions  Log a user out of every session\n")
	fmt.Fprintf(os.Stderr, "\nConfiguration is read from environment variables, see internal/config.\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}

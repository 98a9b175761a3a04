package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mrlokans/authsvc/internal/config"
	"github.com/mrlokans/authsvc/internal/database/users"
	"github.com/mrlokans/authsvc/internal/entities"
	"github.com/mrlokans/authsvc/internal/entrypoint"
)

// RevokeSessionsCommand logs a user out everywhere, e.g. after a password
// leak or account suspension.
type RevokeSessionsCommand struct {
	User string

	Config *config.Config
	Out    io.Writer
	Logger *slog.Logger
}

func NewRevokeSessionsCommand() *RevokeSessionsCommand {
	return &RevokeSessionsCommand{
		Config: config.NewConfig(),
		Out:    os.Stdout,
	}
}

func (cmd *RevokeSessionsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("revoke-sessions", flag.ExitOnError)

	fs.StringVar(&cmd.User, "user", "", "Username, email or user ID (required)")
	fs.StringVar(&cmd.Config.Database.Path, "db", cmd.Config.Database.Path, "Path to the SQLite database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s revoke-sessions [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Destroy every session of a user in the configured session store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s revoke-sessions -user alice\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  AUTH_SESSION_STORE=redis %s revoke-sessions -user alice@example.com\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.User == "" {
		fs.Usage()
		return fmt.Errorf("user is required")
	}

	return nil
}

func (cmd *RevokeSessionsCommand) Run() error {
	ctx := context.Background()
	app, err := entrypoint.NewApp(ctx, cmd.Config, cmd.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer app.Close()

	user, err := findUser(ctx, app, cmd.User)
	if err != nil {
		return err
	}

	n, err := app.Auth.RevokeAll(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	fmt.Fprintf(cmd.Out, "Revoked %d session(s) of %s\n", n, user.Username)
	return nil
}

func findUser(ctx context.Context, app *entrypoint.App, ref string) (*entities.User, error) {
	user, err := app.Users.FindByIdentifier(ctx, ref)
	if errors.Is(err, users.ErrNotFound) {
		user, err = app.Users.GetByID(ctx, ref)
	}
	if errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("user %q not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mrlokans/authsvc/internal/config"
	"github.com/mrlokans/authsvc/internal/entrypoint"
)

type CreateUserCommand struct {
	Username      string
	Email         string
	Password      string
	PasswordStdin bool

	Config *config.Config
	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{
		Config: config.NewConfig(),
		In:     os.Stdin,
		Out:    os.Stdout,
	}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username, 3-64 characters of letters, digits, '_' or '-' (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (visible in shell history, prefer -password-stdin)")
	fs.BoolVar(&cmd.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	fs.StringVar(&cmd.Config.Database.Path, "db", cmd.Config.Database.Path, "Path to the SQLite database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Register a user without going through HTTP.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  echo 's3cret' | %s create-user -username alice -email alice@example.com -password-stdin\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" || cmd.Email == "" {
		fs.Usage()
		return fmt.Errorf("username and email are required")
	}
	if cmd.Password != "" && cmd.PasswordStdin {
		return fmt.Errorf("-password and -password-stdin are mutually exclusive")
	}

	return nil
}

func (cmd *CreateUserCommand) Run() error {
	password := cmd.Password
	if cmd.PasswordStdin {
		var err error
		if password, err = readPassword(cmd.In); err != nil {
			return err
		}
	}

	ctx := context.Background()
	app, err := entrypoint.NewApp(ctx, cmd.Config, cmd.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer app.Close()

	userID, err := app.Auth.Register(ctx, cmd.Username, cmd.Email, password)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(cmd.Out, "Created user %s (%s)\n", cmd.Username, userID)
	return nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

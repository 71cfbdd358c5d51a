package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"go-jobpost-automation/internal/secrets"
)

type SecretCmd struct {
	Set    SecretSetCmd    `cmd:"" help:"Store the WordPress application password (read from stdin)."`
	Delete SecretDeleteCmd `cmd:"" help:"Remove the stored WordPress application password."`
}

type SecretSetCmd struct {
	Username string `help:"WordPress username (defaults to wordpress.username)."`
}

func (s *SecretSetCmd) Run(app *Context) error {
	user := s.Username
	if user == "" {
		user = app.Config.WordPress.Username
	}
	if user == "" {
		return errors.New("no WordPress username configured")
	}

	fmt.Fprintf(app.Err, "Application password for %s: ", user)
	line, err := bufio.NewReader(app.In).ReadString('\n')
	password := strings.TrimSpace(line)
	if password == "" {
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		return errors.New("empty password")
	}

	if err := secrets.Store(wordpressAccount(user), password); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	app.Logger.Info().Str("user", user).Msg("🔐 Password stored in keyring")
	return nil
}

type SecretDeleteCmd struct {
	Username string `help:"WordPress username (defaults to wordpress.username)."`
}

func (s *SecretDeleteCmd) Run(app *Context) error {
	user := s.Username
	if user == "" {
		user = app.Config.WordPress.Username
	}
	if user == "" {
		return errors.New("no WordPress username configured")
	}
	return secrets.Delete(wordpressAccount(user))
}

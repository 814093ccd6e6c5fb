package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/gestion-smac/smacctl/internal/api"
	"github.com/gestion-smac/smacctl/internal/tokenfile"
)

// sessionLifetime mirrors the backend's token validity so whoami can warn
// about an expiring session without a network call.
const sessionLifetime = 12 * time.Hour

var flagLoginEmail string

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the SMAC backend and save the session",
		RunE:  runLogin,
	}

	cmd.Flags().StringVar(&flagLoginEmail, "email", "", "account email (prompted when omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved session",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated account",
		RunE:  runWhoami,
	}
}

func runLogin(_ *cobra.Command, _ []string) error {
	app, err := newApp(false)
	if err != nil {
		return err
	}

	ctx := context.Background()

	email := flagLoginEmail
	if email == "" {
		email, err = promptLine("Email : ")
		if err != nil {
			return err
		}
	}

	password := os.Getenv("SMACCTL_PASSWORD")
	if password == "" {
		password, err = promptPassword("Mot de passe : ")
		if err != nil {
			return err
		}
	}

	sess, err := app.Client.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		return app.finish(err)
	}

	tok := &oauth2.Token{
		AccessToken: sess.Token,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(sessionLifetime),
	}

	if err := tokenfile.Save(app.TokenPath, tok, map[string]string{
		"email":  sess.Email,
		"server": app.Cfg.ServerURL,
	}); err != nil {
		return err
	}

	app.Logger.Info("login réussi", "email", sess.Email)
	statusf("Connecté en tant que %s.\n", sess.Email)

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	app, err := newApp(false)
	if err != nil {
		return err
	}

	if err := tokenfile.Clear(app.TokenPath); err != nil {
		return err
	}

	app.Logger.Info("session supprimée")
	statusf("Déconnecté.\n")

	return nil
}

func runWhoami(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	tok, meta, err := tokenfile.Load(app.TokenPath)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(map[string]any{
			"email":   meta["email"],
			"server":  meta["server"],
			"expires": tok.Expiry,
		})
	}

	fmt.Printf("Email   : %s\n", meta["email"])
	fmt.Printf("Serveur : %s\n", meta["server"])

	if !tok.Expiry.IsZero() {
		fmt.Printf("Expire  : %s\n", formatTime(tok.Expiry))
	}

	return nil
}

// promptLine reads a single answer from stdin. Always visible, not subject
// to --quiet.
func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("lecture de la réponse: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echoing when stdin is a
// terminal; otherwise it falls back to a plain line read (piped input).
func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)

		if err != nil {
			return "", fmt.Errorf("lecture du mot de passe: %w", err)
		}

		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("lecture du mot de passe: %w", err)
	}

	return strings.TrimSpace(line), nil
}

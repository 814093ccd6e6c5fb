package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gestion-smac/smacctl/internal/api"
	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/config"
	"github.com/gestion-smac/smacctl/internal/mutation"
	"github.com/gestion-smac/smacctl/internal/prompt"
	"github.com/gestion-smac/smacctl/internal/tokenfile"
)

// errNotLoggedIn is returned by commands that need a session when no token
// file exists.
var errNotLoggedIn = errors.New("non connecté — lancez d'abord 'smacctl login'")

// fileTokenSource reads the bearer token from the saved session file on
// every request. Missing file yields an empty token (login sends none).
type fileTokenSource struct {
	path string
}

func (f fileTokenSource) Token() (string, error) {
	tok, _, err := tokenfile.Load(f.path)
	if err != nil {
		return "", err
	}

	if tok == nil {
		return "", nil
	}

	return tok.AccessToken, nil
}

// App bundles the wired subsystems behind each subcommand: resolved
// config, backend client, the cache store, mutation ops and the prompt
// presenter.
type App struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Client    *api.Client
	Store     *cache.Store
	Ops       *mutation.Ops
	Presenter *prompt.Presenter
	TokenPath string
}

// newApp wires an App from the resolved config and global flags. With
// requireAuth set, a missing session file fails fast instead of producing
// a doomed request.
func newApp(requireAuth bool) (*App, error) {
	tokenPath := config.DefaultTokenPath()
	logger := buildLogger()

	if requireAuth {
		tok, _, err := tokenfile.Load(tokenPath)
		if err != nil {
			return nil, err
		}

		if tok == nil {
			return nil, errNotLoggedIn
		}
	}

	httpClient := &http.Client{Timeout: resolvedCfg.RequestTimeout()}
	client := api.NewClient(resolvedCfg.ServerURL, httpClient, fileTokenSource{path: tokenPath}, logger)
	store := cache.New()

	presenter := prompt.Stdin()
	presenter.AssumeYes = flagYes
	presenter.Choose = flagChoose

	return &App{
		Cfg:       resolvedCfg,
		Logger:    logger,
		Client:    client,
		Store:     store,
		Ops:       &mutation.Ops{Store: store, Client: client, Logger: logger},
		Presenter: presenter,
		TokenPath: tokenPath,
	}, nil
}

// loadCaches fetches the named collections concurrently and fills the
// store. Each fetch goes through the generation counter so a slow response
// cannot clobber a later optimistic write.
func (a *App) loadCaches(ctx context.Context, keys ...cache.Key) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, key := range keys {
		g.Go(func() error {
			return a.fetchInto(ctx, key)
		})
	}

	return g.Wait()
}

func (a *App) fetchInto(ctx context.Context, key cache.Key) error {
	gen := a.Store.BeginFetch(key)

	var (
		data any
		err  error
	)

	switch key {
	case cache.Lines:
		data, err = a.Client.ListLines(ctx)
	case cache.Devices:
		data, err = a.Client.ListDevices(ctx)
	case cache.Agents:
		data, err = a.Client.ListAgents(ctx)
	case cache.Services:
		data, err = a.Client.ListServices(ctx)
	case cache.Models:
		data, err = a.Client.ListModels(ctx)
	case cache.Users:
		data, err = a.Client.ListUsers(ctx)
	case cache.History:
		data, err = a.Client.ListHistory(ctx)
	default:
		return fmt.Errorf("unknown cache key %q", key)
	}

	if err != nil {
		return err
	}

	a.Store.CompleteFetch(key, gen, data)

	return nil
}

// finish translates subsystem errors into the messages the operator should
// see. An expired session clears the saved token so the next command fails
// fast with the login hint.
func (a *App) finish(err error) error {
	if err == nil {
		return nil
	}

	if api.IsSessionExpired(err) {
		if clearErr := tokenfile.Clear(a.TokenPath); clearErr != nil {
			a.Logger.Warn("clearing session file", "error", clearErr)
		}

		return errors.New("session expirée — reconnectez-vous avec 'smacctl login'")
	}

	var vErr *mutation.ValidationError
	if errors.As(err, &vErr) {
		return fmt.Errorf("saisie invalide :\n%s", formatFieldErrors(vErr.Fields))
	}

	if fields := api.FieldsOf(err); len(fields) > 0 {
		return fmt.Errorf("le serveur a refusé la demande :\n%s", formatFieldErrors(fields))
	}

	return err
}

func formatFieldErrors(fields map[string]string) string {
	lines := make([]string, 0, len(fields))
	for field, msg := range fields {
		lines = append(lines, "  - "+field+" : "+msg)
	}

	return strings.Join(lines, "\n")
}

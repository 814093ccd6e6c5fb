package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
)

var (
	flagHistoryFollow bool
	flagHistoryLimit  int
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit trail",
		RunE:  runHistory,
	}

	cmd.Flags().BoolVarP(&flagHistoryFollow, "follow", "f", false, "stream new entries as the server records them")
	cmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "number of entries to show (0 = all)")

	return cmd
}

func runHistory(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.History, cache.Users); err != nil {
		return app.finish(err)
	}

	entries := cache.Collection[entity.History](app.Store, cache.History)
	users := cache.Collection[entity.User](app.Store, cache.Users)

	if flagHistoryLimit > 0 && len(entries) > flagHistoryLimit {
		entries = entries[:flagHistoryLimit]
	}

	if flagJSON {
		if err := printJSON(entries); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(entries))
		for _, h := range entries {
			rows = append(rows, historyRow(h, users))
		}

		printTable(os.Stdout, []string{"id", "date", "user", "operation", "table", "content"}, rows)
	}

	if !flagHistoryFollow {
		return nil
	}

	// Follow mode: stream until interrupted.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusf("En attente d'événements (Ctrl-C pour quitter)...\n")

	err = app.Client.FollowHistory(ctx, func(h entity.History) {
		if flagJSON {
			printJSON(h) //nolint:errcheck // stream output, best effort
			return
		}

		fmt.Printf("%s  %s  %s  %s  %s\n",
			formatTime(h.CreatedAt), userEmail(users, h.UserID), h.Operation, h.Table, h.Content)
	})

	return app.finish(err)
}

func historyRow(h entity.History, users []entity.User) []string {
	return []string{
		strconv.FormatInt(h.ID, 10),
		formatTime(h.CreatedAt),
		userEmail(users, h.UserID),
		h.Operation,
		h.Table,
		h.Content,
	}
}

func userEmail(users []entity.User, id int64) string {
	for _, u := range users {
		if u.ID == id {
			return u.Email
		}
	}

	return strconv.FormatInt(id, 10)
}

package main

import (
	"context"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch every collection and report record counts",
		Long: "Fetches all collections from the backend concurrently. Useful as a " +
			"connectivity and session check, and to see fleet totals at a glance.",
		RunE: runRefresh,
	}
}

func runRefresh(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()

	keys := []cache.Key{
		cache.Lines, cache.Devices, cache.Agents,
		cache.Services, cache.Models, cache.Users, cache.History,
	}

	if err := app.loadCaches(ctx, keys...); err != nil {
		return app.finish(err)
	}

	counts := map[string]int{
		"lines":    len(cache.Collection[entity.Line](app.Store, cache.Lines)),
		"devices":  len(cache.Collection[entity.Device](app.Store, cache.Devices)),
		"agents":   len(cache.Collection[entity.Agent](app.Store, cache.Agents)),
		"services": len(cache.Collection[entity.Service](app.Store, cache.Services)),
		"models":   len(cache.Collection[entity.Model](app.Store, cache.Models)),
		"users":    len(cache.Collection[entity.User](app.Store, cache.Users)),
		"history":  len(cache.Collection[entity.History](app.Store, cache.History)),
	}

	if flagJSON {
		return printJSON(counts)
	}

	rows := make([][]string, 0, len(counts))
	for _, name := range []string{"lines", "devices", "agents", "services", "models", "users", "history"} {
		rows = append(rows, []string{name, strconv.Itoa(counts[name])})
	}

	printTable(os.Stdout, []string{"collection", "records"}, rows)

	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/csvio"
	"github.com/gestion-smac/smacctl/internal/entity"
)

var flagExportOut string

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Export a collection as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}

	cmd.Flags().StringVar(&flagExportOut, "out", "", "output file (default stdout, or the configured export dir)")

	return cmd
}

func runExport(_ *cobra.Command, args []string) error {
	collection := args[0]

	if err := checkCollection(collection); err != nil {
		return err
	}

	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()

	cols, rows, err := app.exportRows(ctx, collection)
	if err != nil {
		return err
	}

	out, closeFn, err := exportWriter(app, collection)
	if err != nil {
		return err
	}
	defer closeFn()

	delim := rune(app.Cfg.Export.Delimiter[0])
	if err := csvio.Write(out, delim, cols, rows); err != nil {
		return err
	}

	if flagExportOut != "" || app.Cfg.Export.Dir != "" {
		statusf("%d enregistrement(s) exporté(s).\n", len(rows))
	}

	return nil
}

// exportWriter picks the destination: --out, the configured export
// directory, or stdout.
func exportWriter(app *App, collection string) (io.Writer, func(), error) {
	path := flagExportOut
	if path == "" && app.Cfg.Export.Dir != "" {
		path = filepath.Join(app.Cfg.Export.Dir, collection+".csv")
	}

	if path == "" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("création de %s: %w", path, err)
	}

	return f, func() { f.Close() }, nil
}

// exportRows fetches one collection and flattens it to CSV cells.
func (a *App) exportRows(ctx context.Context, collection string) ([]string, [][]string, error) {
	switch collection {
	case "lines":
		if err := a.loadCaches(ctx, cache.Lines); err != nil {
			return nil, nil, a.finish(err)
		}

		var rows [][]string
		for _, l := range cache.Collection[entity.Line](a.Store, cache.Lines) {
			rows = append(rows, []string{
				strconv.FormatInt(l.ID, 10), l.Number, l.Profile, l.Status, l.Comments,
				formatID(l.AgentID), formatID(l.DeviceID),
			})
		}

		return []string{"id", "number", "profile", "status", "comments", "agentId", "deviceId"}, rows, nil

	case "devices":
		if err := a.loadCaches(ctx, cache.Devices); err != nil {
			return nil, nil, a.finish(err)
		}

		var rows [][]string
		for _, d := range cache.Collection[entity.Device](a.Store, cache.Devices) {
			rows = append(rows, []string{
				strconv.FormatInt(d.ID, 10), d.IMEI, d.Status, formatBool(d.IsNew),
				d.PreparationDate, d.AttributionDate, d.Comments,
				strconv.FormatInt(d.ModelID, 10), formatID(d.AgentID),
			})
		}

		return []string{"id", "imei", "status", "isNew", "preparationDate", "attributionDate", "comments", "modelId", "agentId"}, rows, nil

	case "agents":
		if err := a.loadCaches(ctx, cache.Agents); err != nil {
			return nil, nil, a.finish(err)
		}

		var rows [][]string
		for _, ag := range cache.Collection[entity.Agent](a.Store, cache.Agents) {
			rows = append(rows, []string{
				strconv.FormatInt(ag.ID, 10), ag.Email, ag.FirstName, ag.LastName,
				formatBool(ag.VIP), strconv.FormatInt(ag.ServiceID, 10),
			})
		}

		return []string{"id", "email", "firstName", "lastName", "vip", "serviceId"}, rows, nil

	case "services":
		if err := a.loadCaches(ctx, cache.Services); err != nil {
			return nil, nil, a.finish(err)
		}

		var rows [][]string
		for _, s := range cache.Collection[entity.Service](a.Store, cache.Services) {
			rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Title})
		}

		return []string{"id", "title"}, rows, nil

	case "models":
		if err := a.loadCaches(ctx, cache.Models); err != nil {
			return nil, nil, a.finish(err)
		}

		var rows [][]string
		for _, m := range cache.Collection[entity.Model](a.Store, cache.Models) {
			rows = append(rows, []string{strconv.FormatInt(m.ID, 10), m.Brand, m.Reference, m.Storage})
		}

		return []string{"id", "brand", "reference", "storage"}, rows, nil

	case "users":
		if err := a.loadCaches(ctx, cache.Users); err != nil {
			return nil, nil, a.finish(err)
		}

		var rows [][]string
		for _, u := range cache.Collection[entity.User](a.Store, cache.Users) {
			rows = append(rows, []string{
				strconv.FormatInt(u.ID, 10), u.Email, u.FirstName, u.LastName, formatBool(u.IsAdmin),
			})
		}

		return []string{"id", "email", "firstName", "lastName", "isAdmin"}, rows, nil

	default:
		return nil, nil, fmt.Errorf("collection inconnue %q", collection)
	}
}

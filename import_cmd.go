package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gestion-smac/smacctl/internal/api"
	"github.com/gestion-smac/smacctl/internal/csvio"
	"github.com/gestion-smac/smacctl/internal/state"
)

var (
	flagImportWatch  bool
	flagTemplateOut  string
	flagJournalLimit int
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <collection> <file.csv>",
		Short: "Bulk-import a collection from CSV",
		Long: "Parses a CSV file and submits it to the backend import endpoint. " +
			"A rejected import prints the server's itemized conflict report.",
		Args: cobra.ExactArgs(2),
		RunE: runImport,
	}

	cmd.Flags().BoolVar(&flagImportWatch, "watch", false, "re-import whenever the file changes")

	template := &cobra.Command{
		Use:   "template <collection>",
		Short: "Write a blank CSV template",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportTemplate,
	}
	template.Flags().StringVar(&flagTemplateOut, "out", "", "output file (default stdout)")

	journal := &cobra.Command{
		Use:   "journal",
		Short: "Show past imports recorded locally",
		RunE:  runImportJournal,
	}
	journal.Flags().IntVar(&flagJournalLimit, "limit", 20, "number of entries to show")

	cmd.AddCommand(template, journal)

	return cmd
}

func runImport(_ *cobra.Command, args []string) error {
	collection, file := args[0], args[1]

	if err := checkCollection(collection); err != nil {
		return err
	}

	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if err := importOnce(ctx, app, collection, file); err != nil {
		return err
	}

	if !flagImportWatch {
		return nil
	}

	return watchAndImport(ctx, app, collection, file)
}

// importOnce parses and submits the file, records the outcome in the local
// journal, and renders either the count or the server's rejection report.
func importOnce(ctx context.Context, app *App, collection, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("ouverture de %s: %w", file, err)
	}
	defer f.Close()

	rows, err := csvio.Parse(f)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("%s ne contient aucune ligne de données", file)
	}

	count, report, err := app.Client.ImportCSV(ctx, collection, rows)

	journalErr := recordImport(ctx, state.ImportRecord{
		Collection: collection,
		File:       filepath.Base(file),
		Rows:       len(rows),
		Imported:   count,
		Rejected:   errors.Is(err, api.ErrImportRejected),
		Report:     reportSummary(report),
	})
	if journalErr != nil {
		app.Logger.Warn("journal d'import non enregistré", "error", journalErr)
	}

	// A structured rejection gets its itemized report, not the generic
	// failure path.
	if errors.Is(err, api.ErrImportRejected) {
		printReport(report)
		return errors.New("import refusé par le serveur")
	}

	if err != nil {
		return app.finish(err)
	}

	statusf("%d enregistrement(s) importé(s) dans %s.\n", count, collection)

	return nil
}

// watchAndImport re-imports the file on every write until interrupted.
// Watches the parent directory because editors replace files on save.
func watchAndImport(ctx context.Context, app *App, collection, file string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("création du watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(file)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("surveillance de %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusf("Surveillance de %s (Ctrl-C pour quitter)...\n", file)

	target := filepath.Clean(file)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != target {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			statusf("Modification détectée, nouvel import...\n")

			if err := importOnce(ctx, app, collection, file); err != nil {
				// Keep watching; the operator fixes the file and saves again.
				fmt.Fprintf(os.Stderr, "Erreur : %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			app.Logger.Warn("erreur du watcher", "error", err)
		}
	}
}

func runImportTemplate(_ *cobra.Command, args []string) error {
	collection := args[0]

	if err := checkCollection(collection); err != nil {
		return err
	}

	app, err := newApp(true)
	if err != nil {
		return err
	}

	// The server's template is authoritative; fall back to the local one
	// when the server cannot be reached.
	data, err := app.Client.TemplateCSV(context.Background(), collection)
	if err != nil {
		if !errors.Is(err, api.ErrUnreachable) {
			return app.finish(err)
		}

		statusf("Serveur injoignable, modèle local utilisé.\n")

		data, err = csvio.Template(collection)
		if err != nil {
			return err
		}
	}

	if flagTemplateOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(flagTemplateOut, data, 0o644); err != nil {
		return fmt.Errorf("écriture de %s: %w", flagTemplateOut, err)
	}

	statusf("Modèle écrit dans %s.\n", flagTemplateOut)

	return nil
}

func runImportJournal(_ *cobra.Command, _ []string) error {
	st, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.ListImports(context.Background(), flagJournalLimit)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(recs)
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		outcome := "importé"
		if r.Rejected {
			outcome = "refusé"
		}

		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			formatTime(r.CreatedAt),
			r.Collection,
			r.File,
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Imported),
			outcome,
			r.Report,
		})
	}

	printTable(os.Stdout, []string{"id", "date", "collection", "file", "rows", "imported", "outcome", "report"}, rows)

	return nil
}

func recordImport(ctx context.Context, rec state.ImportRecord) error {
	st, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	return st.RecordImport(ctx, rec)
}

// printReport renders the server's itemized rejection.
func printReport(r *api.ImportReport) {
	if r == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Le serveur a refusé l'import :")

	sections := []struct {
		label string
		items []string
	}{
		{"Emails en double", r.DuplicateEmails},
		{"IMEI en double", r.DuplicateIMEIs},
		{"Numéros en double", r.DuplicateNumbers},
		{"Références inconnues", r.UnknownReferences},
	}

	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}

		fmt.Fprintf(os.Stderr, "  %s :\n", s.label)

		for _, item := range s.items {
			fmt.Fprintf(os.Stderr, "    - %s\n", item)
		}
	}
}

// reportSummary flattens a rejection report for the journal column.
func reportSummary(r *api.ImportReport) string {
	if r == nil {
		return ""
	}

	var parts []string

	if n := len(r.DuplicateEmails); n > 0 {
		parts = append(parts, fmt.Sprintf("%d email(s) en double", n))
	}

	if n := len(r.DuplicateIMEIs); n > 0 {
		parts = append(parts, fmt.Sprintf("%d IMEI en double", n))
	}

	if n := len(r.DuplicateNumbers); n > 0 {
		parts = append(parts, fmt.Sprintf("%d numéro(s) en double", n))
	}

	if n := len(r.UnknownReferences); n > 0 {
		parts = append(parts, fmt.Sprintf("%d référence(s) inconnue(s)", n))
	}

	return strings.Join(parts, ", ")
}

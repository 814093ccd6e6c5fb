package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
	"github.com/gestion-smac/smacctl/internal/mutation"
	"github.com/gestion-smac/smacctl/internal/reconcile"
)

// Flags for lines create/update.
var (
	flagLineNumber   string
	flagLineProfile  string
	flagLineStatus   string
	flagLineComments string
	flagLineAgent    string
	flagLineDevice   string
)

var defaultLineColumns = []string{"id", "number", "profile", "status", "agent", "device", "comments"}

func newLinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lines",
		Short: "Manage phone lines",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all lines",
		RunE:  runLinesList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a line",
		RunE:  runLinesCreate,
	}
	bindLineFlags(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a line",
		Args:  cobra.ExactArgs(1),
		RunE:  runLinesUpdate,
	}
	bindLineFlags(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a line",
		Args:  cobra.ExactArgs(1),
		RunE:  runLinesDelete,
	}

	cmd.AddCommand(list, create, update, del)

	return cmd
}

func bindLineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagLineNumber, "number", "", "line number (10+ digits)")
	cmd.Flags().StringVar(&flagLineProfile, "profile", "", "profile: V, D or VD")
	cmd.Flags().StringVar(&flagLineStatus, "status", "", "status: Active, En cours, Résiliée")
	cmd.Flags().StringVar(&flagLineComments, "comments", "", "free-form comments")
	cmd.Flags().StringVar(&flagLineAgent, "agent", "", "agent ID, or 'none' to clear")
	cmd.Flags().StringVar(&flagLineDevice, "device", "", "device ID, or 'none' to clear")
}

func runLinesList(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Lines, cache.Devices, cache.Agents); err != nil {
		return app.finish(err)
	}

	lines := cache.Collection[entity.Line](app.Store, cache.Lines)
	if flagJSON {
		return printJSON(lines)
	}

	caches := app.reconcileCaches()

	preferred, err := loadColumnPrefs(ctx, "lines")
	if err != nil {
		return err
	}

	cols := columnsOrDefault(preferred, defaultLineColumns)
	rows := make([][]string, 0, len(lines))

	for _, l := range lines {
		row := map[string]string{
			"id":       strconv.FormatInt(l.ID, 10),
			"number":   l.Number,
			"profile":  l.Profile,
			"status":   l.Status,
			"agent":    caches.AgentName(l.AgentID),
			"device":   formatID(l.DeviceID),
			"comments": l.Comments,
		}
		rows = append(rows, selectColumns(cols, defaultLineColumns, row))
	}

	printTable(os.Stdout, cols, rows)

	return nil
}

func runLinesCreate(cmd *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Lines, cache.Devices, cache.Agents); err != nil {
		return app.finish(err)
	}

	line := entity.Line{
		Number:   flagLineNumber,
		Profile:  flagLineProfile,
		Status:   flagLineStatus,
		Comments: flagLineComments,
	}

	if line.AgentID, err = parseRef(cmd, "agent", flagLineAgent, nil); err != nil {
		return err
	}

	if line.DeviceID, err = parseRef(cmd, "device", flagLineDevice, nil); err != nil {
		return err
	}

	if fe := entity.ValidateLine(line); !fe.Ok() {
		return fmt.Errorf("saisie invalide :\n%s", formatFieldErrors(fe))
	}

	decision, fe := reconcile.ClassifyCreate(app.reconcileCaches(), line)
	if !fe.Ok() {
		return fmt.Errorf("saisie invalide :\n%s", formatFieldErrors(fe))
	}

	plan, err := app.resolveDecision(decision)
	if err != nil || plan == nil {
		return err
	}

	created, err := app.Ops.CreateLine(ctx, *plan)
	if err != nil {
		return app.finish(err)
	}

	if flagJSON {
		return printJSON(created)
	}

	statusf("Ligne %s créée (n°%d).\n", created.Number, created.ID)

	return nil
}

func runLinesUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Lines, cache.Devices, cache.Agents); err != nil {
		return app.finish(err)
	}

	prior, ok := findLine(cache.Collection[entity.Line](app.Store, cache.Lines), id)
	if !ok {
		return fmt.Errorf("ligne n°%d introuvable", id)
	}

	next := prior
	if cmd.Flags().Changed("number") {
		next.Number = flagLineNumber
	}

	if cmd.Flags().Changed("profile") {
		next.Profile = flagLineProfile
	}

	if cmd.Flags().Changed("status") {
		next.Status = flagLineStatus
	}

	if cmd.Flags().Changed("comments") {
		next.Comments = flagLineComments
	}

	if next.AgentID, err = parseRef(cmd, "agent", flagLineAgent, prior.AgentID); err != nil {
		return err
	}

	if next.DeviceID, err = parseRef(cmd, "device", flagLineDevice, prior.DeviceID); err != nil {
		return err
	}

	if fe := entity.ValidateLine(next); !fe.Ok() {
		return fmt.Errorf("saisie invalide :\n%s", formatFieldErrors(fe))
	}

	decision, fe := reconcile.ClassifyUpdate(app.reconcileCaches(), prior, next)
	if !fe.Ok() {
		return fmt.Errorf("saisie invalide :\n%s", formatFieldErrors(fe))
	}

	plan, err := app.resolveDecision(decision)
	if err != nil || plan == nil {
		return err
	}

	updated, err := app.Ops.UpdateLine(ctx, prior, *plan)
	if errors.Is(err, mutation.ErrNoChanges) {
		statusf("Aucune modification.\n")
		return nil
	}

	if err != nil {
		return app.finish(err)
	}

	if flagJSON {
		return printJSON(updated)
	}

	statusf("Ligne %s modifiée.\n", updated.Number)

	return nil
}

func runLinesDelete(_ *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Lines); err != nil {
		return app.finish(err)
	}

	if _, ok := findLine(cache.Collection[entity.Line](app.Store, cache.Lines), id); !ok {
		return fmt.Errorf("ligne n°%d introuvable", id)
	}

	if err := app.Ops.DeleteLine(ctx, id); err != nil {
		return app.finish(err)
	}

	statusf("Ligne n°%d supprimée.\n", id)

	return nil
}

// reconcileCaches builds the read-only view the classification engine
// inspects.
func (a *App) reconcileCaches() reconcile.Caches {
	return reconcile.Caches{
		Lines:   cache.Collection[entity.Line](a.Store, cache.Lines),
		Devices: cache.Collection[entity.Device](a.Store, cache.Devices),
		Agents:  cache.Collection[entity.Agent](a.Store, cache.Agents),
	}
}

// resolveDecision turns a classification into a runnable plan: immediate
// decisions pass through, prompts go to the presenter. A nil plan with nil
// error means the operator canceled.
func (a *App) resolveDecision(d reconcile.Decision) (*reconcile.Plan, error) {
	if d.Plan != nil {
		return d.Plan, nil
	}

	plan, err := a.Presenter.Present(*d.Prompt)
	if err != nil {
		return nil, err
	}

	if plan == nil {
		statusf("Abandonné.\n")
	}

	return plan, nil
}

func findLine(lines []entity.Line, id int64) (entity.Line, bool) {
	for _, l := range lines {
		if l.ID == id {
			return l, true
		}
	}

	return entity.Line{}, false
}

// parseID parses a positional numeric identifier.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("identifiant invalide %q", arg)
	}

	return id, nil
}

// parseRef interprets a nullable reference flag: unset keeps cur, "none"
// clears, a number selects.
func parseRef(cmd *cobra.Command, name, value string, cur *int64) (*int64, error) {
	if !cmd.Flags().Changed(name) {
		return cur, nil
	}

	if value == "none" || value == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("--%s : identifiant invalide %q", name, value)
	}

	return &id, nil
}

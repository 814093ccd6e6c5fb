package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gestion-smac/smacctl/internal/cache"
	"github.com/gestion-smac/smacctl/internal/entity"
	"github.com/gestion-smac/smacctl/internal/mutation"
)

// Flags for agents create/update.
var (
	flagAgentEmail     string
	flagAgentFirstName string
	flagAgentLastName  string
	flagAgentVIP       bool
	flagAgentService   int64
)

var defaultAgentColumns = []string{"id", "email", "name", "vip", "service", "devices"}

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agents (device and line holders)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all agents",
		RunE:  runAgentsList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		RunE:  runAgentsCreate,
	}
	bindAgentFlags(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an agent",
		Args:  cobra.ExactArgs(1),
		RunE:  runAgentsUpdate,
	}
	bindAgentFlags(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an agent",
		Args:  cobra.ExactArgs(1),
		RunE:  runAgentsDelete,
	}

	cmd.AddCommand(list, create, update, del)

	return cmd
}

func bindAgentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagAgentEmail, "email", "", "agent email (unique)")
	cmd.Flags().StringVar(&flagAgentFirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&flagAgentLastName, "last-name", "", "last name")
	cmd.Flags().BoolVar(&flagAgentVIP, "vip", false, "priority handling")
	cmd.Flags().Int64Var(&flagAgentService, "service", 0, "service ID")
}

func runAgentsList(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Agents, cache.Services); err != nil {
		return app.finish(err)
	}

	agents := cache.Collection[entity.Agent](app.Store, cache.Agents)
	if flagJSON {
		return printJSON(agents)
	}

	services := cache.Collection[entity.Service](app.Store, cache.Services)

	preferred, err := loadColumnPrefs(ctx, "agents")
	if err != nil {
		return err
	}

	cols := columnsOrDefault(preferred, defaultAgentColumns)
	rows := make([][]string, 0, len(agents))

	for _, a := range agents {
		imeis := make([]string, 0, len(a.Devices))
		for _, d := range a.Devices {
			imeis = append(imeis, d.IMEI)
		}

		row := map[string]string{
			"id":      strconv.FormatInt(a.ID, 10),
			"email":   a.Email,
			"name":    a.FullName(),
			"vip":     formatBool(a.VIP),
			"service": serviceLabel(services, a.ServiceID),
			"devices": strings.Join(imeis, ", "),
		}
		rows = append(rows, selectColumns(cols, defaultAgentColumns, row))
	}

	printTable(os.Stdout, cols, rows)

	return nil
}

func runAgentsCreate(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Agents); err != nil {
		return app.finish(err)
	}

	agent := entity.Agent{
		Email:     flagAgentEmail,
		FirstName: flagAgentFirstName,
		LastName:  flagAgentLastName,
		VIP:       flagAgentVIP,
		ServiceID: flagAgentService,
	}

	created, err := app.Ops.CreateAgent(ctx, agent)
	if err != nil {
		return app.finish(err)
	}

	if flagJSON {
		return printJSON(created)
	}

	statusf("Agent %s créé (n°%d).\n", created.FullName(), created.ID)

	return nil
}

func runAgentsUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Agents); err != nil {
		return app.finish(err)
	}

	prior, ok := findAgent(cache.Collection[entity.Agent](app.Store, cache.Agents), id)
	if !ok {
		return fmt.Errorf("agent n°%d introuvable", id)
	}

	next := prior
	if cmd.Flags().Changed("email") {
		next.Email = flagAgentEmail
	}

	if cmd.Flags().Changed("first-name") {
		next.FirstName = flagAgentFirstName
	}

	if cmd.Flags().Changed("last-name") {
		next.LastName = flagAgentLastName
	}

	if cmd.Flags().Changed("vip") {
		next.VIP = flagAgentVIP
	}

	if cmd.Flags().Changed("service") {
		next.ServiceID = flagAgentService
	}

	updated, err := app.Ops.UpdateAgent(ctx, prior, next)
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

	statusf("Agent %s modifié.\n", updated.FullName())

	return nil
}

func runAgentsDelete(_ *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Agents, cache.Devices, cache.Lines); err != nil {
		return app.finish(err)
	}

	if _, ok := findAgent(cache.Collection[entity.Agent](app.Store, cache.Agents), id); !ok {
		return fmt.Errorf("agent n°%d introuvable", id)
	}

	if err := app.Ops.DeleteAgent(ctx, id); err != nil {
		return app.finish(err)
	}

	statusf("Agent n°%d supprimé.\n", id)

	return nil
}

func findAgent(agents []entity.Agent, id int64) (entity.Agent, bool) {
	for _, a := range agents {
		if a.ID == id {
			return a, true
		}
	}

	return entity.Agent{}, false
}

func serviceLabel(services []entity.Service, id int64) string {
	for _, s := range services {
		if s.ID == id {
			return s.Title
		}
	}

	return strconv.FormatInt(id, 10)
}

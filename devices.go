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
)

// Flags for devices create/update.
var (
	flagDeviceIMEI      string
	flagDeviceStatus    string
	flagDeviceModel     int64
	flagDeviceAgent     string
	flagDeviceNew       bool
	flagDeviceComments  string
	flagDevicePrepared  string
	flagDeviceAttribued string
)

var defaultDeviceColumns = []string{"id", "imei", "model", "status", "new", "agent", "comments"}

func newDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage handsets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all devices",
		RunE:  runDevicesList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Register a device",
		RunE:  runDevicesCreate,
	}
	bindDeviceFlags(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a device",
		Args:  cobra.ExactArgs(1),
		RunE:  runDevicesUpdate,
	}
	bindDeviceFlags(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a device",
		Args:  cobra.ExactArgs(1),
		RunE:  runDevicesDelete,
	}

	cmd.AddCommand(list, create, update, del)

	return cmd
}

func bindDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDeviceIMEI, "imei", "", "15-digit IMEI")
	cmd.Flags().StringVar(&flagDeviceStatus, "status", "", "device status (e.g., Attribué, En stock)")
	cmd.Flags().Int64Var(&flagDeviceModel, "model", 0, "model ID")
	cmd.Flags().StringVar(&flagDeviceAgent, "agent", "", "owner agent ID, or 'none' to clear")
	cmd.Flags().BoolVar(&flagDeviceNew, "new", false, "device is factory-new")
	cmd.Flags().StringVar(&flagDeviceComments, "comments", "", "free-form comments")
	cmd.Flags().StringVar(&flagDevicePrepared, "prepared", "", "preparation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagDeviceAttribued, "attributed", "", "attribution date (YYYY-MM-DD)")
}

func runDevicesList(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Devices, cache.Agents, cache.Models); err != nil {
		return app.finish(err)
	}

	devices := cache.Collection[entity.Device](app.Store, cache.Devices)
	if flagJSON {
		return printJSON(devices)
	}

	caches := app.reconcileCaches()
	models := cache.Collection[entity.Model](app.Store, cache.Models)

	preferred, err := loadColumnPrefs(ctx, "devices")
	if err != nil {
		return err
	}

	cols := columnsOrDefault(preferred, defaultDeviceColumns)
	rows := make([][]string, 0, len(devices))

	for _, d := range devices {
		row := map[string]string{
			"id":       strconv.FormatInt(d.ID, 10),
			"imei":     d.IMEI,
			"model":    modelLabel(models, d.ModelID),
			"status":   d.Status,
			"new":      formatBool(d.IsNew),
			"agent":    caches.AgentName(d.AgentID),
			"comments": d.Comments,
		}
		rows = append(rows, selectColumns(cols, defaultDeviceColumns, row))
	}

	printTable(os.Stdout, cols, rows)

	return nil
}

func runDevicesCreate(cmd *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Devices, cache.Agents); err != nil {
		return app.finish(err)
	}

	device := entity.Device{
		IMEI:            flagDeviceIMEI,
		Status:          flagDeviceStatus,
		ModelID:         flagDeviceModel,
		IsNew:           flagDeviceNew,
		Comments:        flagDeviceComments,
		PreparationDate: flagDevicePrepared,
		AttributionDate: flagDeviceAttribued,
	}

	if device.AgentID, err = parseRef(cmd, "agent", flagDeviceAgent, nil); err != nil {
		return err
	}

	created, err := app.Ops.CreateDevice(ctx, device)
	if err != nil {
		return app.finish(err)
	}

	if flagJSON {
		return printJSON(created)
	}

	statusf("Appareil %s créé (n°%d).\n", created.IMEI, created.ID)

	return nil
}

func runDevicesUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Devices, cache.Agents); err != nil {
		return app.finish(err)
	}

	prior, ok := findDevice(cache.Collection[entity.Device](app.Store, cache.Devices), id)
	if !ok {
		return fmt.Errorf("appareil n°%d introuvable", id)
	}

	next := prior
	if cmd.Flags().Changed("imei") {
		next.IMEI = flagDeviceIMEI
	}

	if cmd.Flags().Changed("status") {
		next.Status = flagDeviceStatus
	}

	if cmd.Flags().Changed("model") {
		next.ModelID = flagDeviceModel
	}

	if cmd.Flags().Changed("new") {
		next.IsNew = flagDeviceNew
	}

	if cmd.Flags().Changed("comments") {
		next.Comments = flagDeviceComments
	}

	if cmd.Flags().Changed("prepared") {
		next.PreparationDate = flagDevicePrepared
	}

	if cmd.Flags().Changed("attributed") {
		next.AttributionDate = flagDeviceAttribued
	}

	if next.AgentID, err = parseRef(cmd, "agent", flagDeviceAgent, prior.AgentID); err != nil {
		return err
	}

	updated, err := app.Ops.UpdateDevice(ctx, prior, next)
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

	statusf("Appareil %s modifié.\n", updated.IMEI)

	return nil
}

func runDevicesDelete(_ *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Devices, cache.Agents, cache.Lines); err != nil {
		return app.finish(err)
	}

	if _, ok := findDevice(cache.Collection[entity.Device](app.Store, cache.Devices), id); !ok {
		return fmt.Errorf("appareil n°%d introuvable", id)
	}

	if err := app.Ops.DeleteDevice(ctx, id); err != nil {
		return app.finish(err)
	}

	statusf("Appareil n°%d supprimé.\n", id)

	return nil
}

func findDevice(devices []entity.Device, id int64) (entity.Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}

	return entity.Device{}, false
}

// modelLabel renders "Brand Reference Storage" for a model ID.
func modelLabel(models []entity.Model, id int64) string {
	for _, m := range models {
		if m.ID == id {
			return m.Brand + " " + m.Reference + " " + m.Storage
		}
	}

	return strconv.FormatInt(id, 10)
}

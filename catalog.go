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

// The reference collections (services, models, users) share the same
// list/create/update/delete shape; each command file below only differs in
// flags and row rendering.

// Services.

var flagServiceTitle string

func newServicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Manage organizational services",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all services",
		RunE:  runServicesList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a service",
		RunE:  runServicesCreate,
	}
	create.Flags().StringVar(&flagServiceTitle, "title", "", "service title (unique)")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a service",
		Args:  cobra.ExactArgs(1),
		RunE:  runServicesUpdate,
	}
	update.Flags().StringVar(&flagServiceTitle, "title", "", "service title (unique)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a service",
		Args:  cobra.ExactArgs(1),
		RunE:  runServicesDelete,
	}

	cmd.AddCommand(list, create, update, del)

	return cmd
}

func runServicesList(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Services); err != nil {
		return app.finish(err)
	}

	services := cache.Collection[entity.Service](app.Store, cache.Services)
	if flagJSON {
		return printJSON(services)
	}

	rows := make([][]string, 0, len(services))
	for _, s := range services {
		rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Title})
	}

	printTable(os.Stdout, []string{"id", "title"}, rows)

	return nil
}

func runServicesCreate(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Services); err != nil {
		return app.finish(err)
	}

	created, err := app.Ops.CreateService(ctx, entity.Service{Title: flagServiceTitle})
	if err != nil {
		return app.finish(err)
	}

	if flagJSON {
		return printJSON(created)
	}

	statusf("Service %q créé (n°%d).\n", created.Title, created.ID)

	return nil
}

func runServicesUpdate(_ *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Services); err != nil {
		return app.finish(err)
	}

	prior, ok := findService(cache.Collection[entity.Service](app.Store, cache.Services), id)
	if !ok {
		return fmt.Errorf("service n°%d introuvable", id)
	}

	next := prior
	next.Title = flagServiceTitle

	updated, err := app.Ops.UpdateService(ctx, prior, next)
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

	statusf("Service %q modifié.\n", updated.Title)

	return nil
}

func runServicesDelete(_ *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Services); err != nil {
		return app.finish(err)
	}

	if err := app.Ops.DeleteService(ctx, id); err != nil {
		return app.finish(err)
	}

	statusf("Service n°%d supprimé.\n", id)

	return nil
}

func findService(services []entity.Service, id int64) (entity.Service, bool) {
	for _, s := range services {
		if s.ID == id {
			return s, true
		}
	}

	return entity.Service{}, false
}

// Models.

var (
	flagModelBrand     string
	flagModelReference string
	flagModelStorage   string
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage handset models",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all models",
		RunE:  runModelsList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a model",
		RunE:  runModelsCreate,
	}
	bindModelFlags(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a model",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelsUpdate,
	}
	bindModelFlags(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a model",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelsDelete,
	}

	cmd.AddCommand(list, create, update, del)

	return cmd
}

func bindModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagModelBrand, "brand", "", "manufacturer")
	cmd.Flags().StringVar(&flagModelReference, "reference", "", "commercial reference")
	cmd.Flags().StringVar(&flagModelStorage, "storage", "", "storage size (e.g., 128 Go)")
}

func runModelsList(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Models); err != nil {
		return app.finish(err)
	}

	models := cache.Collection[entity.Model](app.Store, cache.Models)
	if flagJSON {
		return printJSON(models)
	}

	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{strconv.FormatInt(m.ID, 10), m.Brand, m.Reference, m.Storage})
	}

	printTable(os.Stdout, []string{"id", "brand", "reference", "storage"}, rows)

	return nil
}

func runModelsCreate(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Models); err != nil {
		return app.finish(err)
	}

	created, err := app.Ops.CreateModel(ctx, entity.Model{
		Brand:     flagModelBrand,
		Reference: flagModelReference,
		Storage:   flagModelStorage,
	})
	if err != nil {
		return app.finish(err)
	}

	if flagJSON {
		return printJSON(created)
	}

	statusf("Modèle %s %s créé (n°%d).\n", created.Brand, created.Reference, created.ID)

	return nil
}

func runModelsUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Models); err != nil {
		return app.finish(err)
	}

	prior, ok := findModel(cache.Collection[entity.Model](app.Store, cache.Models), id)
	if !ok {
		return fmt.Errorf("modèle n°%d introuvable", id)
	}

	next := prior
	if cmd.Flags().Changed("brand") {
		next.Brand = flagModelBrand
	}

	if cmd.Flags().Changed("reference") {
		next.Reference = flagModelReference
	}

	if cmd.Flags().Changed("storage") {
		next.Storage = flagModelStorage
	}

	updated, err := app.Ops.UpdateModel(ctx, prior, next)
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

	statusf("Modèle %s %s modifié.\n", updated.Brand, updated.Reference)

	return nil
}

func runModelsDelete(_ *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Models); err != nil {
		return app.finish(err)
	}

	if err := app.Ops.DeleteModel(ctx, id); err != nil {
		return app.finish(err)
	}

	statusf("Modèle n°%d supprimé.\n", id)

	return nil
}

func findModel(models []entity.Model, id int64) (entity.Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}

	return entity.Model{}, false
}

// Users.

var (
	flagUserEmail     string
	flagUserFirstName string
	flagUserLastName  string
	flagUserAdmin     bool
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage application accounts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE:  runUsersList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE:  runUsersCreate,
	}
	bindUserFlags(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runUsersUpdate,
	}
	bindUserFlags(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runUsersDelete,
	}

	cmd.AddCommand(list, create, update, del)

	return cmd
}

func bindUserFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagUserEmail, "email", "", "account email (unique)")
	cmd.Flags().StringVar(&flagUserFirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&flagUserLastName, "last-name", "", "last name")
	cmd.Flags().BoolVar(&flagUserAdmin, "admin", false, "grant admin rights")
}

func runUsersList(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Users); err != nil {
		return app.finish(err)
	}

	users := cache.Collection[entity.User](app.Store, cache.Users)
	if flagJSON {
		return printJSON(users)
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10), u.Email, u.FirstName + " " + u.LastName, formatBool(u.IsAdmin),
		})
	}

	printTable(os.Stdout, []string{"id", "email", "name", "admin"}, rows)

	return nil
}

func runUsersCreate(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Users); err != nil {
		return app.finish(err)
	}

	created, err := app.Ops.CreateUser(ctx, entity.User{
		Email:     flagUserEmail,
		FirstName: flagUserFirstName,
		LastName:  flagUserLastName,
		IsAdmin:   flagUserAdmin,
	})
	if err != nil {
		return app.finish(err)
	}

	if flagJSON {
		return printJSON(created)
	}

	statusf("Utilisateur %s créé (n°%d).\n", created.Email, created.ID)

	return nil
}

func runUsersUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Users); err != nil {
		return app.finish(err)
	}

	prior, ok := findUser(cache.Collection[entity.User](app.Store, cache.Users), id)
	if !ok {
		return fmt.Errorf("utilisateur n°%d introuvable", id)
	}

	next := prior
	if cmd.Flags().Changed("email") {
		next.Email = flagUserEmail
	}

	if cmd.Flags().Changed("first-name") {
		next.FirstName = flagUserFirstName
	}

	if cmd.Flags().Changed("last-name") {
		next.LastName = flagUserLastName
	}

	if cmd.Flags().Changed("admin") {
		next.IsAdmin = flagUserAdmin
	}

	updated, err := app.Ops.UpdateUser(ctx, prior, next)
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

	statusf("Utilisateur %s modifié.\n", updated.Email)

	return nil
}

func runUsersDelete(_ *cobra.Command, args []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := app.loadCaches(ctx, cache.Users); err != nil {
		return app.finish(err)
	}

	if err := app.Ops.DeleteUser(ctx, id); err != nil {
		return app.finish(err)
	}

	statusf("Utilisateur n°%d supprimé.\n", id)

	return nil
}

func findUser(users []entity.User, id int64) (entity.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}

	return entity.User{}, false
}

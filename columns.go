package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gestion-smac/smacctl/internal/config"
	"github.com/gestion-smac/smacctl/internal/csvio"
	"github.com/gestion-smac/smacctl/internal/state"
)

// openState opens the local state database at its default location.
func openState() (*state.SQLiteStore, error) {
	return state.NewStore(config.DefaultStatePath(), buildLogger())
}

// loadColumnPrefs returns the saved column order for a collection, or nil
// when none was saved.
func loadColumnPrefs(ctx context.Context, collection string) ([]string, error) {
	st, err := openState()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	return st.GetColumns(ctx, collection)
}

func newColumnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Customize list output columns per collection",
	}

	show := &cobra.Command{
		Use:   "show <collection>",
		Short: "Show the saved column order",
		Args:  cobra.ExactArgs(1),
		RunE:  runColumnsShow,
	}

	set := &cobra.Command{
		Use:   "set <collection> <col1,col2,...>",
		Short: "Save a column order",
		Args:  cobra.ExactArgs(2),
		RunE:  runColumnsSet,
	}

	reset := &cobra.Command{
		Use:   "reset <collection>",
		Short: "Revert to the default columns",
		Args:  cobra.ExactArgs(1),
		RunE:  runColumnsReset,
	}

	cmd.AddCommand(show, set, reset)

	return cmd
}

func checkCollection(name string) error {
	if !csvio.Known(name) {
		return fmt.Errorf("collection inconnue %q (choix : %s)", name, strings.Join(csvio.Collections(), ", "))
	}

	return nil
}

func runColumnsShow(_ *cobra.Command, args []string) error {
	if err := checkCollection(args[0]); err != nil {
		return err
	}

	cols, err := loadColumnPrefs(context.Background(), args[0])
	if err != nil {
		return err
	}

	if len(cols) == 0 {
		statusf("Aucune préférence enregistrée pour %s (colonnes par défaut).\n", args[0])
		return nil
	}

	fmt.Println(strings.Join(cols, ","))

	return nil
}

func runColumnsSet(_ *cobra.Command, args []string) error {
	if err := checkCollection(args[0]); err != nil {
		return err
	}

	cols := strings.Split(args[1], ",")
	for i, c := range cols {
		cols[i] = strings.TrimSpace(c)
	}

	st, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetColumns(context.Background(), args[0], cols); err != nil {
		return err
	}

	statusf("Colonnes de %s enregistrées : %s\n", args[0], strings.Join(cols, ", "))

	return nil
}

func runColumnsReset(_ *cobra.Command, args []string) error {
	if err := checkCollection(args[0]); err != nil {
		return err
	}

	st, err := openState()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetColumns(context.Background(), args[0], nil); err != nil {
		return err
	}

	statusf("Colonnes de %s réinitialisées.\n", args[0])

	return nil
}

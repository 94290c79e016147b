package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/internal/view"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show abilities and weaknesses of one entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return runShow(cmd, id)
		},
	}
}

func runShow(cmd *cobra.Command, id int) error {
	ctx := cmd.Context()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.app.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", view.MsgCatalogError, err)
	}

	e, relations, err := d.app.LoadDetail(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", view.MsgDetailError, err)
	}

	printDetail(cmd.OutOrStdout(), e, catalog.Weaknesses(relations))
	return nil
}

func printDetail(w io.Writer, e catalog.Entity, weaknesses []string) {
	fmt.Fprintf(w, "%s (Nº %d)\n", view.Capitalize(e.Name), e.ID)

	categories := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		categories = append(categories, c.Name)
	}
	fmt.Fprintf(w, "Types: %s\n", strings.Join(categories, ", "))

	fmt.Fprintln(w, "\nAbilities:")
	for _, trait := range e.Traits {
		fmt.Fprintf(w, "  - %s\n", trait)
	}

	fmt.Fprintln(w, "\nWeaknesses (double damage from):")
	if len(weaknesses) == 0 {
		fmt.Fprintf(w, "  %s\n", view.MsgNoWeaknesses)
		return
	}
	for _, weakness := range weaknesses {
		fmt.Fprintf(w, "  - %s\n", weakness)
	}
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/internal/view"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		category string
		page     int
	)

	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search the catalog by name or ability",
		Long: "Loads the catalog and prints one page of the entities whose name or " +
			"any ability contains the term, optionally restricted to a category.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var term string
			if len(args) == 1 {
				term = args[0]
			}
			return runSearch(cmd, catalog.Criteria{Term: term, Category: category}, page)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "t", catalog.AllCategories, "Filter by category")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page to print")

	return cmd
}

func runSearch(cmd *cobra.Command, criteria catalog.Criteria, page int) error {
	ctx := cmd.Context()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.app.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", view.MsgCatalogError, err)
	}
	ds, err := d.app.Store().Dataset()
	if err != nil {
		return err
	}

	filtered := catalog.Filter(ds.Entities, criteria.Normalize())
	size := d.app.PageSize()
	result := catalog.Page(filtered, catalog.ClampPage(page, catalog.PageCount(len(filtered), size)), size)

	printResult(cmd.OutOrStdout(), result)
	return nil
}

func printResult(w io.Writer, r catalog.Result) {
	if r.TotalItems == 0 {
		fmt.Fprintln(w, view.MsgNoResults)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Nº\tNAME\tTYPE")
	for _, e := range r.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.ID, e.Name, e.PrimaryCategory())
	}
	tw.Flush()

	fmt.Fprintf(w, "\nPage %d of %d (%d entities)\n", r.Page, r.TotalPages, r.TotalItems)
}

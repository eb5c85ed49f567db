package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repovault/internal/archive"
)

var listCategory string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived repositories",
	Long: `List archived repositories, optionally filtered by category.

Examples:
  # Everything in the archive
  repovault list

  # One category
  repovault list --category cli-tools`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List archive categories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "only list this category")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var entries []archive.RepositorySummary
	if listCategory != "" {
		entries = a.service.ListByCategory(listCategory)
	} else {
		for _, category := range a.service.Categories() {
			entries = append(entries, a.service.ListByCategory(category)...)
		}
	}
	if len(entries) == 0 {
		fmt.Println("No archived repositories.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPOSITORY\tCATEGORY\tSTARS\tSAVED\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.FullName, e.Category, e.Stars, e.SavedAt.Format("2006-01-02"), e.LocalPath)
	}
	return w.Flush()
}

func runCategories(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	categories := a.service.Categories()
	if len(categories) == 0 {
		fmt.Println("No categories.")
		return nil
	}
	for _, c := range categories {
		fmt.Println(c)
	}
	return nil
}

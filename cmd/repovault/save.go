package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repovault/internal/archive"
)

var (
	saveCategory string
	saveUseClone bool
)

var saveCmd = &cobra.Command{
	Use:   "save <owner/repo>",
	Short: "Save a repository into the local archive",
	Long: `Save a repository's full file tree into the local archive.

The repository lands under <root>/<category>/<owner>-<repo>/ along with a
manifest describing it. Saving the same repository into the same category
twice is a no-op.

Examples:
  # Save into the default category
  repovault save spf13/cobra

  # Save under a named category
  repovault save spf13/cobra --category cli-tools

  # Fetch via a shallow git clone instead of the REST API
  repovault save torvalds/linux --clone`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVar(&saveCategory, "category", "", "category to file the repository under")
	saveCmd.Flags().BoolVar(&saveUseClone, "clone", false, "fetch via shallow git clone instead of the API")
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, name, err := archive.ParseFullName(args[0])
	if err != nil {
		return err
	}

	repo, err := a.source.GetRepository(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("repository lookup failed: %w", err)
	}

	result, err := a.service.Save(ctx, &archive.SaveRequest{
		Summary: archive.RepositorySummary{
			FullName:    repo.FullName,
			CloneURL:    repo.CloneURL,
			Description: repo.Description,
			Language:    repo.Language,
			Stars:       repo.Stars,
		},
		Category: saveCategory,
		UseClone: saveUseClone,
	})
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	if !result.Added {
		fmt.Printf("%s is already archived at %s\n", repo.FullName, result.LocalPath)
		return nil
	}

	fmt.Printf("Saved %s to %s (%d files, %d bytes)\n",
		repo.FullName, result.LocalPath, result.FileCount, result.TotalSize)
	return nil
}

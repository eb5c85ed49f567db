package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCategory string

var removeCmd = &cobra.Command{
	Use:   "remove <owner/repo>",
	Short: "Remove a repository from the archive",
	Long: `Remove a repository's index entry and delete its archived files.

Removal is tolerant: a missing index entry or missing files are not errors,
so a partially removed repository can be cleaned up by running remove again.

Examples:
  repovault remove spf13/cobra
  repovault remove spf13/cobra --category cli-tools`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().StringVar(&removeCategory, "category", "", "category the repository was saved under")
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.Remove(args[0], removeCategory); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}

	fmt.Printf("Removed %s\n", args[0])
	return nil
}

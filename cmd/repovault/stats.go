package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	statsCategory string
	filesCategory string
)

var statsCmd = &cobra.Command{
	Use:   "stats <owner/repo>",
	Short: "Show the archive manifest for a saved repository",
	Long: `Show the archive manifest for a saved repository.

Examples:
  repovault stats spf13/cobra
  repovault stats spf13/cobra --category cli-tools`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

var filesCmd = &cobra.Command{
	Use:   "files <owner/repo>",
	Short: "List the files in a saved archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runFiles,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show total disk usage of the archive",
	Args:  cobra.NoArgs,
	RunE:  runUsage,
}

func init() {
	statsCmd.Flags().StringVar(&statsCategory, "category", "", "category the repository was saved under")
	filesCmd.Flags().StringVar(&filesCategory, "category", "", "category the repository was saved under")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.service.Stats(args[0], statsCategory)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no archive found for %s", args[0])
	}

	fmt.Printf("Repository:  %s\n", m.RepoName)
	fmt.Printf("Downloaded:  %s\n", m.DownloadedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Files:       %d\n", m.FileCount)
	fmt.Printf("Total size:  %d bytes\n", m.TotalSize)
	return nil
}

func runFiles(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	files, err := a.service.Files(args[0], filesCategory)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No archived files for %s\n", args[0])
		return nil
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.service.Usage(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Repositories: %d\n", stats.RepoCount)
	fmt.Printf("Total size:   %d bytes\n", stats.TotalSizeBytes)
	return nil
}

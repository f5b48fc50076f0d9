package cmd

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "changeset",
	Short: "Manage package versions, changelogs, and releases from changesets",
	Long: `changeset tracks intended version bumps as small changeset files committed
alongside code, then aggregates them into coordinated version bumps,
changelog entries, commits, and tags at release time.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose (development-mode) logging")
}

// Execute runs the root command; main calls this after InitCommands.
func Execute() error {
	return rootCmd.Execute()
}

// InitCommands registers every subcommand against rootCmd.
func InitCommands() error {
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newReleaseCmd())
	rootCmd.AddCommand(newManageCmd())
	rootCmd.AddCommand(newVersionCmd())
	return nil
}

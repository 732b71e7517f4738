// Package commands implements the petreld CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "petreld",
	Short: "Petrel - a small FTP server",
	Long: `Petrel is a small FTP server intended for resource-constrained hosts.
It serves a single directory tree to a fixed set of users with passwd-style
credentials, passive and active data channels, and SITE administration
commands.

Use "petreld [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./petrel.yaml, /etc/petrel/petrel.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hashpassCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrel-ftp/petrel/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a configuration file populated with the defaults.

Examples:
  # Write ./petrel.yaml
  petreld init

  # Write to a custom path
  petreld init --config /etc/petrel/petrel.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = "petrel.yaml"
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Hash a password:           petreld hashpass")
	fmt.Println("  2. Add a user entry under auth.credentials, for example:")
	fmt.Println("       - \"felicia:$5a$...:1001:100:Felicia:/felicia:/bin/nologin\"")
	fmt.Printf("  3. Start the server:          petreld serve --config %s\n", path)
	return nil
}

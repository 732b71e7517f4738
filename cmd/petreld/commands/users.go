package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/petrel-ftp/petrel/auth"
	"github.com/petrel-ftp/petrel/internal/config"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the users in the config file",
	Long: `Parse the auth.credentials entries of the config file and print the
resulting accounts. Password digests are never shown.`,
	RunE: runUsers,
}

func runUsers(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if len(cfg.Auth.Credentials) == 0 {
		fmt.Println("No credentials configured.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Username", "UID", "GID", "Home", "Shell"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for i, spec := range cfg.Auth.Credentials {
		cred, err := auth.ParseCredential(spec)
		if err != nil {
			return fmt.Errorf("auth.credentials[%d]: %w", i, err)
		}
		table.Append([]string{
			cred.Username,
			strconv.Itoa(cred.UID),
			strconv.Itoa(cred.GID),
			cred.Home,
			cred.Shell,
		})
	}
	table.Render()
	return nil
}

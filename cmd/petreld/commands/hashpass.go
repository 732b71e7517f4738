package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrel-ftp/petrel/auth"
)

var hashpassCmd = &cobra.Command{
	Use:   "hashpass [password]",
	Short: "Hash a password for the credential list",
	Long: `Hash a password into the salted digest format used in the
auth.credentials entries of the config file. With no argument the password
is read from standard input.

Examples:
  petreld hashpass hunter2
  echo -n hunter2 | petreld hashpass`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashpass,
}

func runHashpass(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	digest, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(digest)
	return nil
}

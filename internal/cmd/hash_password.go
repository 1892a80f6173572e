// internal/cmd/hash_password.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/your-org/storefront-api/internal/pkg/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for a password, e.g. to create an admin by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := bootstrap()
		if err != nil {
			return err
		}

		passwords := auth.NewPasswordManager(cfg)
		hash, err := passwords.HashPassword(args[0])
		if err != nil {
			return fmt.Errorf("error generating hash: %w", err)
		}

		if err := passwords.VerifyPassword(args[0], hash); err != nil {
			return fmt.Errorf("hash verification failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored credential",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save <jwt>",
		Short: "Store a credential issued by the Account Manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.SaveToken(args[0]); err != nil {
				return err
			}
			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Token saved to %s", cfg.TokenFile))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the credential that commands will send",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return errors.New("no token configured")
			}
			NewOutput(cfg.Output).PrintMessage(cfg.Token)
			return nil
		},
	})

	return cmd
}

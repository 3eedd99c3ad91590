package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/contentsearch/internal/output"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the registered search providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			output.New(cmd.OutOrStdout()).Providers(a.Providers.All())
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInitDBCommand creates the init-db command.
func NewInitDBCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the schema (safe to run more than once)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := opts.openStore()
			if err != nil {
				return err
			}
			defer ds.Close()

			if err := ds.InitDB(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Database initialized successfully.")
			return nil
		},
	}
}

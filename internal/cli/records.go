package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sc-provisioner/internal/source"
)

// NewRecordsCommand creates the records command, which prints curated input.
func NewRecordsCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Print the records a file would provision, one per code at its highest cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := source.LoadRecords(file)
			if err != nil {
				return err
			}
			opts.Logger.WithField("file", file).Debugf("loaded %d records", len(records))

			if err := printRecords(cmd.OutOrStdout(), records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d records\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV or YAML record file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

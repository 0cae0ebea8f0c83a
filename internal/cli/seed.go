package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sc-provisioner/internal/datastore"
	"sc-provisioner/internal/source"
)

// NewSeedCommand creates the seed command, which loads reference data from YAML.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load providers, type names and pay grades from a YAML file",
		Long: `Load reference data from a YAML file. Rows that already exist are left alone.
Every provider also gets a part category of the same name, and every pay grade
without a price version gets one, effective on the given date, to anchor pricing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := opts.openStore()
			if err != nil {
				return err
			}
			defer ds.Close()

			return seedFromFile(cmd.Context(), ds, file, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML reference data file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func seedFromFile(ctx context.Context, ds datastore.DataStore, file string, out io.Writer) error {
	seed, err := source.LoadSeed(file)
	if err != nil {
		return err
	}
	if err := ds.SeedReference(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}

	grades := 0
	for _, p := range seed.Providers {
		grades += len(p.PayGrades)
	}
	fmt.Fprintf(out, "✅ Seeded %d providers, %d pay grades, %d part types, %d line item types, %d service code types.\n",
		len(seed.Providers), grades, len(seed.PartTypes), len(seed.LineItemTypes), len(seed.ServiceCodeTypes))
	return nil
}

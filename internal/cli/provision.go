package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sc-provisioner/internal/datastore"
	"sc-provisioner/internal/entities"
	"sc-provisioner/internal/provisioning"
	"sc-provisioner/internal/source"
)

type provisionOptions struct {
	file            string
	seedFile        string
	provider        string
	defaultType     string
	verboseNames    bool
	skipPricing     bool
	continueOnError bool
	rollbackOnError bool
	undo            bool
}

// NewProvisionCommand creates the provision command.
func NewProvisionCommand(opts *RootOptions) *cobra.Command {
	p := &provisionOptions{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Onboard every record of a file and price them in a new price version",
		Long: `Onboard every record of a CSV or YAML file. For each code a part, a line item,
a service code and their links are found or created. All costs are then written
to one new price version, effective the day after the latest one.

Nothing is wrapped in a transaction. Use --rollback-on-error to undo the run
when a record fails, or --undo to undo it after it completes (a trial run).

Examples:
  sc-provisioner provision --file=codes.csv --provider=Acme
  sc-provisioner provision --file=codes.csv --provider=Acme --type=Labor --skip-pricing
  sc-provisioner provision --file=codes.csv --provider=Acme --continue-on-error
  sc-provisioner provision --store=memory --seed=reference.yaml --file=codes.csv --provider=Acme`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("provider") {
				p.provider = opts.Config.Provider
			}
			if !cmd.Flags().Changed("type") {
				p.defaultType = opts.Config.DefaultType
			}
			if !cmd.Flags().Changed("verbose-names") {
				p.verboseNames = opts.Config.VerboseNames
			}
			if p.provider == "" {
				return fmt.Errorf("no provider: use --provider or set SCP_PROVIDER")
			}

			ds, err := opts.openStore()
			if err != nil {
				return err
			}
			defer ds.Close()

			return runProvision(cmd.Context(), ds, opts, p, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&p.file, "file", "", "CSV or YAML record file (required)")
	cmd.Flags().StringVar(&p.seedFile, "seed", "", "YAML reference data to load first (useful with --store=memory)")
	cmd.Flags().StringVar(&p.provider, "provider", "", "service provider name (default SCP_PROVIDER)")
	cmd.Flags().StringVar(&p.defaultType, "type", "", "type for records without one (default SCP_DEFAULT_TYPE)")
	cmd.Flags().BoolVar(&p.verboseNames, "verbose-names", false, "decorate line item and service code names")
	cmd.Flags().BoolVar(&p.skipPricing, "skip-pricing", false, "do not create a price version")
	cmd.Flags().BoolVar(&p.continueOnError, "continue-on-error", false, "keep going when a record fails")
	cmd.Flags().BoolVar(&p.rollbackOnError, "rollback-on-error", false, "undo the whole run when a record or pricing fails")
	cmd.Flags().BoolVar(&p.undo, "undo", false, "undo the whole run after it completes")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runProvision(ctx context.Context, ds datastore.DataStore, opts *RootOptions, p *provisionOptions, out io.Writer) error {
	records, err := source.LoadRecords(p.file)
	if err != nil {
		return err
	}

	if p.seedFile != "" {
		if err := seedFromFile(ctx, ds, p.seedFile, out); err != nil {
			return err
		}
	}

	engine, err := provisioning.NewEngine(ctx, ds, provisioning.Options{
		Provider:        p.provider,
		DefaultType:     p.defaultType,
		ServiceCodeType: opts.Config.ServiceCodeType,
		VerboseNames:    p.verboseNames,
		MatchPolicy:     opts.Config.Policy(),
		Logger:          logrus.NewEntry(opts.Logger),
	})
	if err != nil {
		return err
	}

	run := engine.NewRun()
	log := opts.Logger.WithField("run_id", run.ID.String())
	log.WithField("records", len(records)).Info("provisioning started")

	failed, err := processAll(ctx, engine, run, records, p.continueOnError, log)
	if err != nil {
		return abort(ctx, run, p, out, err)
	}

	if p.skipPricing || len(run.Amounts()) == 0 {
		log.Info("pricing skipped")
	} else {
		version, err := engine.BuildPriceVersion(ctx, run)
		if err != nil {
			return abort(ctx, run, p, out, err)
		}
		fmt.Fprintf(out, "💲 Price version %s effective %s with %d amounts\n",
			version.ID, version.Effective.Format(entities.DateLayout), len(version.Amounts))
	}

	fmt.Fprintf(out, "✅ Processed %d records (%d failed), created %d rows\n",
		len(records)-failed, failed, run.Ledger().Len())

	if p.undo {
		n := run.Rollback(ctx)
		fmt.Fprintf(out, "↩️  Rolled back %d of %d rows\n", n, run.Ledger().Len())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d records failed", failed, len(records))
	}
	return nil
}

// processAll feeds every record to the engine. Setup errors always stop the
// loop; other failures stop it unless continueOnError is set.
func processAll(ctx context.Context, engine *provisioning.Engine, run *provisioning.Run, records []entities.Record, continueOnError bool, log *logrus.Entry) (int, error) {
	failed := 0
	for _, rec := range records {
		err := engine.Process(ctx, run, rec)
		if err == nil {
			continue
		}

		failed++
		log.WithError(err).WithField("code", rec.Code).Error("record failed")
		if provisioning.IsSetupError(err) || !continueOnError {
			return failed, err
		}
	}
	return failed, nil
}

func abort(ctx context.Context, run *provisioning.Run, p *provisionOptions, out io.Writer, cause error) error {
	if p.rollbackOnError || p.undo {
		n := run.Rollback(ctx)
		fmt.Fprintf(out, "↩️  Rolled back %d of %d rows after failure\n", n, run.Ledger().Len())
	}
	return cause
}

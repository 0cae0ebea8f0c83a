package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sc-provisioner/internal/config"
	"sc-provisioner/internal/datastore"
)

// RootOptions holds global flags and the configuration they resolve to.
type RootOptions struct {
	Debug        bool
	StoreType    string
	DBConnString string
	SQLitePath   string
	LogLevel     string
	EnvFiles     []string

	Config *config.Config
	Logger *logrus.Logger
}

// NewRootCommand creates the root command for the sc-provisioner CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sc-provisioner",
		Short: "Onboard service codes and their prices",
		Long: `Onboard service codes into the parts, line item and service code tables,
price them in a new price version, and undo a run when needed.

Examples:
  sc-provisioner init-db
  sc-provisioner seed --file=reference.yaml
  sc-provisioner provision --file=codes.csv --provider=Acme
  sc-provisioner provision --file=codes.csv --provider=Acme --undo`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "debug logging (overrides --log-level)")
	cmd.PersistentFlags().StringVar(&opts.StoreType, "store", "", "store type: postgresql, sqlite or memory (overrides SCP_STORE_TYPE)")
	cmd.PersistentFlags().StringVar(&opts.DBConnString, "db", "", "database connection string (overrides DB_CONN_STRING)")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite-path", "", "SQLite database file (overrides SCP_SQLITE_PATH)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "silent, error, warn, info or debug (overrides LOG_LEVEL)")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", nil, "env files to load (default .env, .env.local)")

	cmd.AddCommand(NewInitDBCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewProvisionCommand(opts))

	return cmd
}

// resolve loads the configuration and applies flag overrides.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.EnvFiles...)
	if err != nil {
		return err
	}

	if o.StoreType != "" {
		cfg.StoreType = o.StoreType
	}
	if o.DBConnString != "" {
		cfg.ConnectionString = o.DBConnString
	}
	if o.SQLitePath != "" {
		cfg.SQLitePath = o.SQLitePath
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}

	logger := cfg.Logger()
	logger.SetOutput(cmd.ErrOrStderr())
	if o.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	o.Config = cfg
	o.Logger = logger
	return nil
}

// openStore opens the configured data store.
func (o *RootOptions) openStore() (datastore.DataStore, error) {
	dsConfig := o.Config.GetDataStoreConfig()

	log := o.Logger.WithField("store", string(dsConfig.Type))
	switch dsConfig.Type {
	case datastore.PostgreSQLStore:
		log = log.WithField("db", maskConnectionString(dsConfig.ConnectionString))
	case datastore.SQLiteStore:
		log = log.WithField("path", dsConfig.SQLitePath)
	}
	log.Debug("opening data store")

	ds, err := datastore.NewDataStore(dsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data store: %w", err)
	}
	return ds, nil
}

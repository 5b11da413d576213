package cmd

import (
	"fmt"

	"forex-journal/internal/config"
	"forex-journal/internal/database"
	"forex-journal/internal/journal"
	"forex-journal/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// options are the flags shared by every subcommand.
type options struct {
	configDir string
	dbPath    string
	owner     string

	log     *zap.Logger
	db      *gorm.DB
	journal *journal.Service
}

// NewRootCmd builds the journal command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "journal",
		Short: "Offline forex trade journal",
		Long: `Journal works with a local SQLite trade journal.

It provides tools for:
  - Importing and exporting trades as CSV
  - Listing trades and summary statistics
  - Lot size calculation from capital or risk

Examples:
  journal import trades.csv
  journal export -o trades.csv
  journal stats
  journal lotsize risk --risk 100 --sl-pips 20`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config", "./configs", "directory holding config.yml")
	root.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "path to SQLite journal DB (default from config)")
	root.PersistentFlags().StringVar(&opts.owner, "owner", "", "owner the trades belong to (default from config)")

	root.AddCommand(
		newImportCmd(opts),
		newExportCmd(opts),
		newListCmd(opts),
		newStatsCmd(opts),
		newLotSizeCmd(),
	)
	return root
}

// open loads configuration and connects the journal to the local store.
func (o *options) open() error {
	cfg, err := config.LoadConfig(o.configDir)
	if err != nil {
		// the CLI never needs backend credentials
		cfg.Store.Driver = config.StoreSQLite
		if verr := cfg.Validate(); verr != nil {
			return fmt.Errorf("could not load config: %w", err)
		}
	}
	if o.dbPath == "" {
		o.dbPath = cfg.Database.DSN
	}
	if o.dbPath == "" {
		o.dbPath = "journal.sqlite"
	}
	if o.owner == "" {
		o.owner = cfg.Store.LocalOwner
	}
	if o.owner == "" {
		o.owner = "local"
	}

	level, format := cfg.Logger.Level, cfg.Logger.Format
	if level == "" {
		level = "warn"
	}
	o.log, err = logger.NewLogger(level, format)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}

	o.db, err = database.NewDatabase(o.dbPath)
	if err != nil {
		return err
	}
	o.journal = journal.NewService(database.NewTradeStore(o.db), o.log)
	return nil
}

// close releases what open acquired.
func (o *options) close() {
	if o.db == nil {
		return
	}
	if err := database.Close(o.db); err != nil {
		o.log.Warn("Failed to close database", zap.Error(err))
	}
	o.db, o.journal = nil, nil
	_ = o.log.Sync()
}

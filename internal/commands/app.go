package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/db"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/logger"
	"github.com/cleared-dev/ledger/internal/reports"
)

// app holds the persistent flags shared by every subcommand.
type app struct {
	configPath string
	dbPath     string
	debug      bool
}

// loadConfig resolves ledger.yaml, .env and LEDGER_* variables, then
// applies command-line overrides.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(a.configPath, "")
	if err != nil {
		return nil, err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// env is an opened ledger: the store and the components built on it.
type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	conn     *db.Conn
	accounts *accounts.Registry
	ledger   *journal.Ledger
	reports  *reports.Engine
}

func (e *env) Close() error {
	return e.conn.Close()
}

// open loads configuration and opens the store. Logs go to the command's
// stderr so stdout stays clean for output.
func (a *app) open(cmd *cobra.Command) (*env, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return openEnv(cfg, cmd.ErrOrStderr())
}

func openEnv(cfg *config.Config, logOut io.Writer) (*env, error) {
	log := logger.NewWithWriter(logOut, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	conn, err := db.Open(cfg.Database.Path, db.Options{BusyTimeoutMS: cfg.Database.BusyTimeoutMS})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Debug().Str("db_path", conn.Path()).Msg("database opened")

	reg := accounts.NewRegistry(conn, log)
	return &env{
		cfg:      cfg,
		log:      log,
		conn:     conn,
		accounts: reg,
		ledger: journal.NewLedger(conn, reg, log, journal.Paging{
			DefaultPageSize: cfg.Pagination.DefaultPageSize,
			MaxPageSize:     cfg.Pagination.MaxPageSize,
		}),
		reports: reports.NewEngine(conn, log),
	}, nil
}

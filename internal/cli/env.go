package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/datasubjects/internal/catalog"
	"github.com/roach88/datasubjects/internal/config"
	"github.com/roach88/datasubjects/internal/store"
	"github.com/roach88/datasubjects/internal/subject"
)

// resolveConfig loads the config file, if any, and applies flag overrides.
// needDSN is false for commands that never touch the database.
func resolveConfig(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter, needDSN bool) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, f.Fail(ExitCommandError, ErrCodeConfig, "cannot load config", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Driver = opts.Driver
	}
	if flags.Changed("dsn") {
		cfg.DSN = opts.DSN
	}
	if flags.Changed("catalog") {
		cfg.CatalogDir = opts.CatalogDir
	}
	if flags.Changed("prefix") {
		cfg.TablePrefix = opts.Prefix
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}

	check := cfg
	if !needDSN && check.DSN == "" {
		check.DSN = "unused"
	}
	if err := check.Validate(); err != nil {
		return cfg, f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	f.VerboseLog("Using driver %s, catalog %s, prefix %q", cfg.Driver, cfg.CatalogDir, cfg.TablePrefix)
	return cfg, nil
}

func loadCatalog(cfg config.Config, f *OutputFormatter) (*catalog.Static, error) {
	c, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeCatalog, "cannot load catalog", err)
	}
	f.VerboseLog("Loaded %d table(s) from %s", len(c.TableNames()), cfg.CatalogDir)
	return c, nil
}

// openService wires the store, catalog and service for a data command.
// The caller closes the returned store.
func openService(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*subject.Service, *store.Store, error) {
	cfg, err := resolveConfig(opts, cmd, f, true)
	if err != nil {
		return nil, nil, err
	}
	c, err := loadCatalog(cfg, f)
	if err != nil {
		return nil, nil, err
	}

	s, err := store.Open(cfg.Driver, cfg.DSN, cfg.TablePrefix)
	if err != nil {
		return nil, nil, f.Fail(ExitCommandError, ErrCodeDatabase, "cannot open database", err)
	}

	svc := subject.New(c, c, s,
		subject.WithAnchors(cfg.Anchors),
		subject.WithTablePrefix(cfg.TablePrefix),
		subject.WithWorkers(cfg.Workers),
		subject.WithLogger(newLogger(opts, cmd)),
	)
	return svc, s, nil
}

// newLogger writes structured logs to stderr: warnings by default, debug
// detail with --verbose.
func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// operationFailure maps a service error to its output code.
func operationFailure(f *OutputFormatter, message string, err error) error {
	code := ErrCodeGeneric
	switch subject.Code(err) {
	case subject.ErrCodeUnresolvable:
		code = ErrCodeUnresolvable
	case subject.ErrCodeCycle:
		code = ErrCodeCycle
	case subject.ErrCodeHook:
		code = ErrCodeHook
	case subject.ErrCodeExecution:
		code = ErrCodeExecution
	case subject.ErrCodeCatalog:
		code = ErrCodeCatalog
	}
	return f.Fail(ExitFailure, code, message, err)
}

package container

import (
	"context"
	"fmt"

	"expcalc/adapters/postgres"
	"expcalc/app"
	"expcalc/internal"
	"expcalc/internal/config"
	"expcalc/internal/errors"
	"expcalc/internal/migration"
	"expcalc/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure, nil while the ledger is disabled
	DB     *sqlx.DB
	Ledger ports.CalculationRepository

	Calculator *app.CalculatorService
}

// New creates a container with an in-memory calculator. Call
// InitWithDatabase to attach the ledger.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}
	c.initCalculator()
	return c, nil
}

// Defaults converts the calculation settings into request defaults
func Defaults(cfg *config.Config) app.Defaults {
	return app.Defaults{
		SignificanceLevel: cfg.Calculation.SignificanceLevel,
		PowerLevel:        cfg.Calculation.PowerLevel,
		SRMThreshold:      cfg.Calculation.SRMThreshold,
		CurveConcurrency:  cfg.Calculation.CurveConcurrency,
	}
}

// Connect opens the database named by cfg, migrates it and attaches the
// ledger. It is a no-op when no database is configured.
func (c *Container) Connect(ctx context.Context) error {
	if !c.Config.Database.Enabled() {
		c.Logger.Info("DATABASE_URL not set, calculation ledger disabled")
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError(err, "failed to connect to database")
	}
	if err := c.InitWithDatabase(ctx, db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// InitWithDatabase migrates db and rebuilds the calculator with a ledger
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError(err, "database connection test failed")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	c.DB = db
	c.Ledger = postgres.NewCalculationRepository(db)
	c.initCalculator()

	c.Logger.Info("calculation ledger enabled (schema %s)", migrator.Version())
	return nil
}

func (c *Container) initCalculator() {
	c.Calculator = app.NewCalculatorService(c.Ledger, Defaults(c.Config), c.Logger.With("calculator"))
}

// Lookup returns the ledger read side, or nil when there is no ledger
func (c *Container) Lookup() ports.CalculationLookup {
	if c.Ledger == nil {
		return nil
	}
	return c.Calculator
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// @title			casegrid API
// @version		1.0
// @description	Paginated data grid over case records with inline status updates and deletion.
// @BasePath		/api/v1

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtlprog/casegrid/internal/cache"
	"github.com/mtlprog/casegrid/internal/config"
	"github.com/mtlprog/casegrid/internal/database"
	"github.com/mtlprog/casegrid/internal/handler"
	"github.com/mtlprog/casegrid/internal/handler/dto"
	"github.com/mtlprog/casegrid/internal/logger"
	"github.com/mtlprog/casegrid/internal/metrics"
	"github.com/mtlprog/casegrid/internal/middleware"
	"github.com/mtlprog/casegrid/internal/repository"
	"github.com/mtlprog/casegrid/internal/service"
	"github.com/urfave/cli/v2"
)

// flagKeys maps command-line flags to configuration keys. A flag that was
// set, directly or through its environment variable, overrides the config.
var flagKeys = map[string]string{
	"database-url": "database_url",
	"log-level":    "log_level",
	"log-format":   "log_format",
	"port":         "port",
	"redis-url":    "redis_url",
	"count":        "seed.count",
}

func main() {
	app := &cli.App{
		Name:  "casegrid",
		Usage: "Data grid backend for case records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (yaml, toml or json)",
				EnvVars: []string{"CASEGRID_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL database URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the listing cache; empty disables caching",
				EnvVars: []string{"REDIS_URL"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger.Setup(logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "Insert synthetic case records",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Value:   service.DefaultSeedCount,
						Usage:   "Number of records to insert",
					},
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Delete all records first",
					},
				},
				Action: runSeed,
			},
			{
				Name:  "list",
				Usage: "Print one page of the grid as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   `Listing parameters as a query string, e.g. "page=2&status=active"`,
					},
				},
				Action: runList,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	v := config.NewViper()
	for name, key := range flagKeys {
		if c.IsSet(name) {
			v.Set(key, c.Value(name))
		}
	}
	cfg, err := config.Load(v, c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// deps bundles everything a command needs to touch the grid.
type deps struct {
	cfg     *config.Config
	db      *database.DB
	cache   service.ListingCache
	metrics *metrics.Metrics
	grid    *service.GridService
	params  *service.ParamParser
}

func (a *deps) Close() {
	if closer, ok := a.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	a.db.Close()
}

func setup(c *cli.Context) (*deps, error) {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	policy, err := service.ParseTokenPolicy(cfg.Grid.UnknownTokens)
	if err != nil {
		return nil, err
	}

	db, err := database.New(ctx, cfg.DatabaseURL, database.PoolOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := database.RunMigrations(ctx, db.Pool()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var listingCache service.ListingCache = cache.Nop{}
	if cfg.RedisURL != "" {
		rc, err := cache.Dial(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			slog.Warn("listing cache disabled", "error", err)
		} else {
			listingCache = rc
		}
	}

	m := metrics.New()
	grid := service.NewGridService(repository.NewTaskRepository(db.Pool()), service.Options{
		Cache:            listingCache,
		Population:       service.PopulationPolicyFor(cfg.Grid.MaintainPopulation),
		Generator:        service.NewTaskGenerator(0),
		Metrics:          m,
		BatchConcurrency: cfg.Grid.BatchConcurrency,
	})

	params := service.NewParamParser(service.ParamLimits{
		DefaultPerPage: cfg.Grid.DefaultPerPage,
		MaxPerPage:     cfg.Grid.MaxPerPage,
		MaxOffset:      cfg.Grid.MaxOffset,
		UnknownTokens:  policy,
	})

	return &deps{
		cfg:     cfg,
		db:      db,
		cache:   listingCache,
		metrics: m,
		grid:    grid,
		params:  params,
	}, nil
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Port
	if port == "" {
		port = config.DefaultPort
	}

	h := handler.New(a.grid, a.params, a.db, a.metrics)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           middleware.Chain(mux, middleware.RequestID, middleware.Logging, middleware.Instrument(a.metrics)),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg.DatabaseURL, database.PoolOptions{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, err := database.RunMigrations(ctx, db.Pool())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "schema version %d\n", version)
	return nil
}

func runSeed(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	inserted := a.grid.SeedTasks(c.Context, service.SeedOptions{
		Count: a.cfg.Seed.Count,
		Reset: c.Bool("reset"),
	})
	if inserted == 0 {
		return fmt.Errorf("seeding inserted no records, see log for details")
	}

	fmt.Fprintf(c.App.Writer, "inserted %d tasks\n", inserted)
	return nil
}

func runList(c *cli.Context) error {
	values, err := url.ParseQuery(c.String("query"))
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := a.params.Parse(values)
	if err != nil {
		return err
	}

	page, err := a.grid.GetTasks(c.Context, q)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(dto.ToTaskListResponse(page, q))
}

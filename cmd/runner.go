package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/mcunha/tunelink/internal/repositories"
	"github.com/mcunha/tunelink/internal/shared"
	"github.com/mcunha/tunelink/internal/sources"
	"github.com/mcunha/tunelink/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, runsCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// newEngine builds an engine over the configured source base URLs with the
// given (already clamped) search settings. Without an injected client every
// run gets its own, carrying the run's timeout.
func (r *Runner) newEngine(cfg shared.SearchConfig) *tasks.SearchEngine {
	client := r.httpClient
	if client == nil {
		client = &http.Client{Timeout: cfg.TimeoutDuration()}
	}

	catalog := sources.NewCatalogSource(r.config.Sources.CatalogURL, client, r.logger)
	web := sources.NewWebSource(r.config.Sources.ResultsURL, client)
	fourshared := sources.NewFourSharedSource(r.config.Sources.FourSharedURL, client)

	return tasks.NewSearchEngine(catalog, web, fourshared, cfg, r.logger)
}

// openRunRepo opens the configured run database and ensures its schema. The
// caller owns the returned handle.
func (r *Runner) openRunRepo() (*repositories.RunRepository, *sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run database: %w", err)
	}

	repo := repositories.NewRunRepository(db)
	if err := repo.Init(); err != nil {
		db.Close()
		return nil, nil, err
	}

	return repo, db, nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

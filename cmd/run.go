package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mcunha/tunelink/internal/formatter"
	"github.com/mcunha/tunelink/internal/shared"
	"github.com/mcunha/tunelink/internal/tasks"
)

// RunPlaylist resolves every track of the input CSV and writes the link
// table next to it. Results are saved to the run store as they complete, so
// an aborted run still leaves its finished portion behind.
func (r *Runner) RunPlaylist(ctx context.Context, cmd *cli.Command) error {
	inputPath := cmd.String("input")
	outputPath := cmd.String("output")
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath)
	}

	cfg := r.config.Search
	if cmd.IsSet("delay") {
		cfg.Delay = cmd.Float("delay")
	}
	if cmd.IsSet("retries") {
		cfg.MaxRetries = cmd.Int("retries")
	}
	if cmd.IsSet("concurrency") {
		cfg.Concurrency = cmd.Int("concurrency")
	}
	if cmd.IsSet("timeout") {
		cfg.Timeout = cmd.Int("timeout")
	}
	cfg = cfg.Clamp()

	playlist, err := formatter.ReadPlaylistFile(inputPath)
	if err != nil {
		return err
	}
	if len(playlist.Requests) == 0 {
		return fmt.Errorf("%w: %s has no searchable rows", shared.ErrNoTracks, inputPath)
	}

	repo, db, err := r.openRunRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := repo.CreateRun(inputPath, len(playlist.Requests))
	if err != nil {
		return err
	}

	runLogger := shared.WithLogger(r.logger, "run", runID)
	runLogger.Info("starting run", "input", inputPath, "tracks", len(playlist.Requests))

	engine := r.newEngine(cfg)
	opts := tasks.RunOptions{
		OnResult: func(res tasks.SearchResult) {
			if err := repo.SaveResult(runID, res); err != nil {
				runLogger.Warn("failed to save result", "index", res.Index, "error", err)
			}
		},
		Progress: func(completed, total int, stats tasks.RunStats, lastLabel string) {
			runLogger.Info("track processed",
				"progress", fmt.Sprintf("%d/%d", completed, total),
				"track", lastLabel,
				"youtube", stats.YouTubeFound,
				"fourshared", stats.FourSharedFound,
				"missing", stats.NotFound,
				"errors", stats.Errors,
			)
		},
	}

	results, stats, runErr := engine.Run(ctx, playlist.Requests, opts)

	// Write whatever resolved, even when the run was cut short.
	if len(results) > 0 {
		if err := formatter.WriteResultsFile(outputPath, playlist, results); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("run %s aborted: %w", runID, runErr)
	}

	if err := repo.FinishRun(runID, stats); err != nil {
		return err
	}

	r.writePlainHeader("Run Complete!")
	r.writePlain("Run ID: %s\n", runID)
	r.writePlain("Output: %s\n", outputPath)
	r.writePlain("Tracks: %d\n", stats.TotalSongs)
	r.writePlain("YouTube links: %d\n", stats.YouTubeFound)
	r.writePlain("4shared links: %d\n", stats.FourSharedFound)
	r.writePlain("Not found: %d\n", stats.NotFound)
	r.writePlain("Errors: %d\n", stats.Errors)

	return nil
}

// RunsList prints the recorded runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openRunRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repo.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return r.writePlain("No runs recorded.\n")
	}

	for _, run := range runs {
		finished := "-"
		if run.FinishedAt.Valid {
			finished = run.FinishedAt.Time.Format(time.RFC3339)
		}
		r.writePlain("%s  %s  %-8s  %s  tracks=%d youtube=%d fourshared=%d missing=%d errors=%d  finished=%s\n",
			run.ID,
			run.CreatedAt.Format(time.RFC3339),
			run.Status,
			run.InputFile,
			run.TotalTracks,
			run.Stats.YouTubeFound,
			run.Stats.FourSharedFound,
			run.Stats.NotFound,
			run.Stats.Errors,
			finished,
		)
	}

	return nil
}

// RunsResults prints the saved results of one run.
func (r *Runner) RunsResults(ctx context.Context, cmd *cli.Command) error {
	runID := cmd.StringArg("id")
	if runID == "" {
		return fmt.Errorf("%w: run ID", shared.ErrMissingArgument)
	}

	repo, db, err := r.openRunRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := repo.GetRun(runID)
	if err != nil {
		return err
	}
	results, err := repo.GetResults(runID)
	if err != nil {
		return err
	}

	r.writePlain("Run %s (%s): %d of %d tracks saved\n", run.ID, run.Status, len(results), run.TotalTracks)
	for _, res := range results {
		link := res.YouTubeURL
		if link == "" {
			link = res.FourSharedURL
		}
		if link == "" {
			link = "-"
		}
		r.writePlain("%4d  %-9s  %s - %s  %s\n", res.Index, res.Status, res.Track, res.Artist, link)
	}

	return nil
}

// Setup creates the config file when missing and initializes the run
// database it points at.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config, err := shared.LoadConfig(configPath)
	if errors.Is(err, shared.ErrMissingConfig) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	} else if err != nil {
		return err
	}
	r.config = config

	r.logger.Info("initializing run database", "path", config.Database.Path)

	_, db, err := r.openRunRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	r.writePlain("✓ Configuration ready at %s\n", configPath)
	r.writePlain("✓ Run database ready at %s\n", config.Database.Path)

	return nil
}

// defaultOutputPath derives "<input>_links.csv" from the input path.
func defaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	if ext == "" {
		ext = ".csv"
	}
	return strings.TrimSuffix(inputPath, ext) + "_links" + ext
}

// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// runCommand resolves a playlist CSV into a link table
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Resolve every track of a playlist CSV to audio links",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the playlist CSV",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output CSV path (defaults to <input>_links.csv)",
			},
			&cli.FloatFlag{
				Name:  "delay",
				Usage: "Base delay between lookups in seconds",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Attempts per variant and source",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Tracks resolved in parallel",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "HTTP timeout in seconds",
			},
		},
		Action: r.RunPlaylist,
	}
}

// runsCommand inspects the recorded run history
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect recorded runs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List recorded runs, newest first",
				Action: r.RunsList,
			},
			{
				Name:  "results",
				Usage: "Show the saved results of a run",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.RunsResults,
			},
		},
	}
}

// setupCommand bootstraps the config file and the run database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the run database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

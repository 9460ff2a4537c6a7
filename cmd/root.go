package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunedeck/internal/app"
	"github.com/tejashwikalptaru/tunedeck/internal/config"
)

// cli carries the application between the root hooks and the subcommands.
type cli struct {
	configPath string
	dbPath     string
	inMemory   bool

	app *app.Application
}

// run executes the command line and shuts the application down whatever the outcome.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.close(context.WithoutCancel(ctx)))
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tunedeck",
		Short:         "Index, search and queue your local music library",
		Long:          `tunedeck keeps a library of local audio files with their tags, playlists and a playback queue.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["standalone"] == "true" {
				return nil
			}
			return c.open(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/tunedeck/config.toml, then ./config.toml)")
	flags.StringVar(&c.dbPath, "db", "", "library database (overrides database.path)")
	flags.BoolVar(&c.inMemory, "memory", false, "keep everything in memory for this run")

	root.AddCommand(
		c.scanCmd(),
		c.listCmd(),
		c.searchCmd(),
		c.playlistCmd(),
		c.watchCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) open(ctx context.Context) error {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.dbPath != "" {
		cfg.Database.Path = c.dbPath
	}

	c.app, err = app.NewApplication(ctx, app.Options{Config: cfg, InMemory: c.inMemory})
	return err
}

func (c *cli) close(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	err := c.app.Shutdown(ctx)
	c.app = nil
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"standalone": "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.GetVersionInfo())
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/tracklist"
)

func (c *cli) playlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Manage playlists",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name> [track id...]",
			Short: "Create a playlist",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := c.app.Playlists().Create(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}
				c.printPlaylist(cmd, p)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List playlists by name",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				for _, p := range c.app.Playlists().List() {
					c.printPlaylist(cmd, p)
				}
			},
		},
		&cobra.Command{
			Use:   "add <playlist id> <track id...>",
			Short: "Append tracks to a playlist, skipping those already in it",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := c.app.Playlists().AddTracks(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}
				c.printPlaylist(cmd, p)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <playlist id>",
			Short: "Show the tracks of a playlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				tracks, err := c.app.Playlists().Tracks(args[0])
				if err != nil {
					return err
				}
				return printTracks(cmd.OutOrStdout(), tracks)
			},
		},
		&cobra.Command{
			Use:   "import <file.m3u>",
			Short: "Create a playlist from an M3U file, adding its files to the library",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := c.app.Playlists().ImportM3U(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				c.printPlaylist(cmd, p)
				return nil
			},
		},
		&cobra.Command{
			Use:   "export <playlist id> [file.m3u]",
			Short: "Write a playlist as M3U to a file or stdout",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 1 {
					return c.app.Playlists().ExportM3U(args[0], cmd.OutOrStdout())
				}

				f, err := os.Create(args[1])
				if err != nil {
					return err
				}
				if err := c.app.Playlists().ExportM3U(args[0], f); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			},
		},
	)
	return cmd
}

func (c *cli) printPlaylist(cmd *cobra.Command, p domain.Playlist) {
	tracks, _ := c.app.Playlists().Tracks(p.ID)
	total := 0.0
	for _, t := range tracks {
		total += t.Duration
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%d tracks, %s)\n",
		p.ID, p.Name, len(p.TrackIDs), tracklist.FormatDuration(total))
}

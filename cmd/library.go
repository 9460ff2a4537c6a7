package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/service"
	"github.com/tejashwikalptaru/tunedeck/internal/tracklist"
)

func (c *cli) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [folder...]",
		Short: "Add the audio files below the given folders to the library",
		Long:  `Scan walks the given folders (or library.sources from the config) and adds every supported audio file to the library.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bus := c.app.EventBus()
			sub := bus.SubscribeTopic("scan", func(event domain.Event) {
				switch e := event.(type) {
				case domain.ScanStartedEvent:
					fmt.Fprintf(cmd.ErrOrStderr(), "scanning %s\n", strings.Join(e.Paths, ", "))
				case domain.ScanProgressEvent:
					fmt.Fprintf(cmd.ErrOrStderr(), "scanned %d/%d files\n", e.Progress.FilesScanned, e.Progress.TotalFiles)
				}
			})
			defer bus.Unsubscribe(sub)

			result, err := c.app.Scan(cmd.Context(), args)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "added %d, already indexed %d, failed %d\n",
				len(result.Added), len(result.Conflicts), len(result.Failed))
			if errors.Is(err, domain.ErrScanCancelled) {
				fmt.Fprintln(out, "scan cancelled, files added so far were kept")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, tracklist.StatusLine(c.app.Library().All()))
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var (
		sortBy string
		desc   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			field, err := service.ParseSortField(sortBy)
			if err != nil {
				return err
			}
			direction := service.Ascending
			if desc {
				direction = service.Descending
			}
			return printTracks(cmd.OutOrStdout(), c.app.Library().SortedView(field, direction))
		},
	}
	cmd.Flags().StringVarP(&sortBy, "sort", "s", string(service.SortTitle), "sort field (title, artist, album, albumartist, genre, year, duration, track, disk, playcount)")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, artists and albums, ignoring case and accents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTracks(cmd.OutOrStdout(), c.app.Library().Search(args[0]))
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [folder...]",
		Short: "Keep the library in step with folder changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Watch(cmd.Context(), args, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "wait this long for changes to settle (default 500ms)")
	return cmd
}

func printTracks(w io.Writer, records []domain.TrackRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tARTIST\tALBUM\tTIME\tPLAYS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.Title, strings.Join(r.Artist, ", "), r.Album, tracklist.FormatDuration(r.Duration), r.PlayCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, tracklist.StatusLine(records))
	return err
}

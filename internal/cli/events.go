package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/myuni/internal/event"
	"github.com/roach88/myuni/internal/remote"
)

// NewEventsCommand creates the events command group.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Sync and inspect the local event cache",
	}
	cmd.AddCommand(newEventsSyncCommand(rootOpts))
	cmd.AddCommand(newEventsListCommand(rootOpts))
	cmd.AddCommand(newEventsWatchCommand(rootOpts))
	return cmd
}

// eventsView is the result of list and watch.
type eventsView struct {
	Events []event.Event `json:"events"`
}

func (v eventsView) RenderText(w io.Writer) error {
	if len(v.Events) == 0 {
		_, err := fmt.Fprintln(w, "No events.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTIME\tPLACE\tDESCRIPTION")
	for _, e := range v.Events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Title, e.Time, e.Place, e.Description)
	}
	return tw.Flush()
}

// syncView is the result of a sync cycle.
type syncView struct {
	RunID       string    `json:"run_id"`
	Count       int       `json:"count"`
	Fingerprint string    `json:"fingerprint"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (v syncView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Synced %d events (run %s)\n", v.Count, v.RunID)
	return err
}

func newEventsSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the remote event collection and replace the local cache",
		Long: `Fetch every event from the remote collection and replace the local
cache with it in a single transaction. On failure the cache is left as it was.

Example:
  myuni events sync
  myuni events sync --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.syncCoordinator().Sync(cmd.Context())
			if err != nil {
				return syncFailure(err)
			}
			return a.out.Success(syncView{
				RunID:       res.RunID,
				Count:       res.Count,
				Fingerprint: res.Fingerprint,
				FinishedAt:  res.FinishedAt.UTC(),
			})
		},
	}
}

func syncFailure(err error) error {
	code := ErrCodeSync
	if remote.IsTransportError(err) {
		code = ErrCodeRemote
	}
	return WrapExitError(ExitFailure, code, "sync failed", err)
}

func newEventsListCommand(rootOpts *RootOptions) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the local event cache",
		Long: `Print the cached events. With --search only events whose title
contains the query (case-insensitive) are shown.

Example:
  myuni events list
  myuni events list --search fair`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			events, err := a.store.Events(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, ErrCodeStorage, "failed to read events", err)
			}
			return a.out.Success(eventsView{Events: event.Filter(events, search)})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "only show events whose title contains this text")
	return cmd
}

func newEventsWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var schedule, search string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh once and print the event list on every change",
		Long: `Print the cached event list, run an initial refresh, and print the
list again every time it changes, until interrupted.

With --schedule (or sync.schedule in config) the refresh repeats on a cron
schedule. Failed refreshes are logged and the last good list stays in place.

Example:
  myuni events watch
  myuni events watch --schedule "@every 5m"
  myuni events watch --search fair`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if schedule == "" {
				schedule = a.cfg.Sync.Schedule
			}

			ctx, cancel := signalContext(cmd.Context(), a.logger)
			defer cancel()

			coord := a.syncCoordinator()
			stream := coord.Events(ctx)
			initial := coord.Start(ctx)
			if schedule != "" {
				if err := coord.Schedule(ctx, schedule); err != nil {
					return WrapExitError(ExitCommandError, ErrCodeGeneric, "failed to schedule refresh", err)
				}
				defer coord.Stop()
			}

			for events := range stream {
				if err := a.out.Success(eventsView{Events: event.Filter(events, search)}); err != nil {
					return err
				}
			}
			<-initial
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", `cron schedule for repeated refresh (e.g. "@every 5m")`)
	cmd.Flags().StringVar(&search, "search", "", "only show events whose title contains this text")
	return cmd
}

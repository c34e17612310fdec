package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// statusView summarizes the local state.
type statusView struct {
	Database string     `json:"database"`
	Events   int        `json:"events"`
	LastSync *syncView  `json:"last_sync,omitempty"`
	Runs     int        `json:"sync_runs"`
	Session  whoamiView `json:"session"`
}

func (v statusView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Database:   %s\n", v.Database)
	fmt.Fprintf(w, "Events:     %d\n", v.Events)
	if v.LastSync == nil {
		fmt.Fprintln(w, "Last sync:  never")
	} else {
		fp := v.LastSync.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		fmt.Fprintf(w, "Last sync:  %s (run %s, %d events, fingerprint %s)\n",
			v.LastSync.FinishedAt.Format(time.RFC3339), v.LastSync.RunID, v.LastSync.Count, fp)
	}
	fmt.Fprintf(w, "Sync runs:  %d\n", v.Runs)
	if v.Session.SignedIn {
		_, err := fmt.Fprintf(w, "Signed in:  %s\n", v.Session.Email)
		return err
	}
	_, err := fmt.Fprintln(w, "Signed in:  no")
	return err
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local cache, last sync and session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			events, err := a.store.Events(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, ErrCodeStorage, "failed to read events", err)
			}
			runs, err := a.store.CountSyncRuns(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, ErrCodeStorage, "failed to count sync runs", err)
			}
			last, found, err := a.store.LastSyncRun(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, ErrCodeStorage, "failed to read last sync", err)
			}

			view := statusView{
				Database: a.cfg.Database,
				Events:   len(events),
				Runs:     runs,
				Session:  a.whoami(),
			}
			if found {
				view.LastSync = &syncView{
					RunID:       last.ID,
					Count:       last.Count,
					Fingerprint: last.Fingerprint,
					FinishedAt:  last.FinishedAt.UTC(),
				}
			}
			return a.out.Success(view)
		},
	}
}

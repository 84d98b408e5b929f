package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/infra/providers"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Force a new manifestation for one slot on a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := domain.ParseSlot(slotFlag)
		if err != nil {
			return err
		}

		cl := providers.NewClient(serverURL, adminToken)
		m, err := cl.Regenerate(cmd.Context(), slot)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", m.Slot, m.Type, m.Title)
		if m.Fallback {
			fmt.Fprintln(cmd.OutOrStdout(), "(fallback text, the model was unavailable)")
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's manifestations and the scheduler state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cl := providers.NewClient(serverURL, adminToken)

		view, err := cl.Current(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "date\t%s\n", view.Date)
		for _, key := range view.Manifestations.Keys() {
			m, _ := view.Manifestations.Get(key)
			if m == nil {
				fmt.Fprintf(w, "%s\t-\taguardando manifestação\n", key)
				continue
			}
			title := m.Title
			if m.Fallback {
				title += " (fallback)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, m.Type, title)
		}

		if adminToken != "" {
			status, err := cl.SchedulerStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "scheduler\t%s\tevery %s, %d runs\n", status.State, status.Interval, status.RunCount)
			if status.LastError != "" {
				fmt.Fprintf(w, "last error\t\t%s\n", status.LastError)
			}
		}
		return w.Flush()
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the scheduler of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl := providers.NewClient(serverURL, adminToken)
		status, err := cl.RestartScheduler(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scheduler %s, every %s\n", status.State, status.Interval)
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent manifestations of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl := providers.NewClient(serverURL, adminToken)
		recent, err := cl.Recent(cmd.Context(), limitFlag)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, m := range recent {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Date.Format(time.DateOnly), m.Slot, m.Type, m.Title)
		}
		return w.Flush()
	},
}

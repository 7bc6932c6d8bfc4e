package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"anomalycore/pkg/domain"
)

func newWindowsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Manage maintenance windows",
	}
	cmd.AddCommand(newWindowsListCommand(rootOpts))
	cmd.AddCommand(newWindowsCreateCommand(rootOpts))
	cmd.AddCommand(newWindowsAttachCommand(rootOpts))
	cmd.AddCommand(newWindowsDeleteCommand(rootOpts))
	return cmd
}

func newWindowsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List maintenance windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			windows := a.service.ListMaintenanceWindows(cmd.Context())
			return emit(cmd.OutOrStdout(), rootOpts, windows, func(w io.Writer) {
				for _, win := range windows {
					fmt.Fprintf(w, "%s  %-10s  %-12s  %s to %s\n", win.ID, win.Type, win.Status,
						win.StartDate.Format("2006-01-02"), win.EndDate.Format("2006-01-02"))
				}
				fmt.Fprintf(w, "%d windows\n", len(windows))
			})
		},
	}
}

func newWindowsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var windowType, start, end, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a maintenance window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endDate, err := time.Parse("2006-01-02", end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			window := domain.MaintenanceWindow{
				Type:      domain.WindowType(windowType),
				StartDate: startDate,
				EndDate:   endDate,
			}
			if description != "" {
				window.Description = &description
			}

			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			created, _, err := a.service.CreateMaintenanceWindow(cmd.Context(), window)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, created, func(w io.Writer) {
				fmt.Fprintf(w, "window %s created (%s, %s to %s)\n", created.ID, created.Type,
					created.StartDate.Format("2006-01-02"), created.EndDate.Format("2006-01-02"))
			})
		},
	}

	cmd.Flags().StringVar(&windowType, "type", string(domain.WindowTypePlanned), "window type (planned|emergency|routine)")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&description, "description", "", "free-form notes")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newWindowsAttachCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <anomaly-id> <window-id>",
		Short: "Attach an anomaly to a maintenance window",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			anomaly, _, err := a.service.AttachAnomalyToWindow(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, anomaly, func(w io.Writer) {
				fmt.Fprintf(w, "anomaly %s attached to window %s\n", anomaly.ID, valueOr(anomaly.MaintenanceWindowID, "?"))
			})
		},
	}
}

func newWindowsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <window-id>",
		Short: "Delete a maintenance window, detaching its anomalies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.service.DeleteMaintenanceWindow(cmd.Context(), args[0]); err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "window %s deleted\n", args[0])
			})
		},
	}
}

func newPlansCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect action plans",
	}
	cmd.AddCommand(newPlansListCommand(rootOpts))
	cmd.AddCommand(newPlansGetCommand(rootOpts))
	return cmd
}

func newPlansListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List action plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			plans := a.service.ListActionPlans(cmd.Context())
			return emit(cmd.OutOrStdout(), rootOpts, plans, func(w io.Writer) {
				for _, p := range plans {
					fmt.Fprintf(w, "%s  anomaly %s  %-12s  %d items\n", p.ID, p.AnomalyID, p.Status, len(p.Items))
				}
				fmt.Fprintf(w, "%d plans\n", len(plans))
			})
		},
	}
}

func newPlansGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <anomaly-id>",
		Short: "Show the action plan attached to an anomaly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			plan, err := a.service.GetActionPlanByAnomaly(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, plan, func(w io.Writer) {
				fmt.Fprintf(w, "plan %s for anomaly %s (%s)\n", plan.ID, plan.AnomalyID, plan.Status)
				for _, item := range plan.Items {
					fmt.Fprintf(w, "  - %-12s %s\n", item.Statut, item.Action)
				}
			})
		},
	}
}

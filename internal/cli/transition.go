package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"anomalycore/internal/core"
	"anomalycore/pkg/domain"
)

func newTransitionCommand(rootOpts *RootOptions) *cobra.Command {
	var comment, artifactRef string

	cmd := &cobra.Command{
		Use:   "transition <anomaly-id> <status>",
		Short: "Move an anomaly to a new lifecycle status",
		Long: `Move an anomaly to a new status along the lifecycle graph
(open -> in_progress -> resolved -> closed, with the documented reverse
edges). Closing requires a closure-justification artifact, supplied here
via --artifact-ref or previously via the close command.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			anomaly, _, err := a.service.Transition(cmd.Context(), args[0], core.TransitionRequest{
				Target:      domain.AnomalyStatus(args[1]),
				Actor:       rootOpts.Actor,
				Comment:     comment,
				ArtifactRef: artifactRef,
			})
			if err != nil {
				return describeTransitionError(err)
			}
			return emit(cmd.OutOrStdout(), rootOpts, anomaly, func(w io.Writer) {
				fmt.Fprintf(w, "anomaly %s is now %s\n", anomaly.ID, anomaly.Status)
			})
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "note appended to the anomaly description")
	cmd.Flags().StringVar(&artifactRef, "artifact-ref", "", "closure artifact reference (required to close without a stored one)")
	return cmd
}

func newBulkTransitionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk-transition <status> <anomaly-id>...",
		Short: "Move many anomalies to the same status",
		Long: `Apply one target status to many anomalies. Each anomaly is
checked independently: invalid transitions and missing records are reported
per id while the rest proceed, and all applied updates commit together.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			result, _, err := a.service.TransitionMany(cmd.Context(), args[1:], domain.AnomalyStatus(args[0]), rootOpts.Actor)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, result, func(w io.Writer) {
				for _, u := range result.Updated {
					fmt.Fprintf(w, "updated  %s: %s -> %s\n", u.ID, u.From, u.To)
				}
				for _, s := range result.Skipped {
					fmt.Fprintf(w, "skipped  %s: %s (current %s, allowed %s)\n", s.ID, s.Reason, s.Current, joinStatuses(s.Allowed))
				}
				for _, id := range result.NotFound {
					fmt.Fprintf(w, "missing  %s\n", id)
				}
			})
		},
	}
	return cmd
}

// describeTransitionError unwraps the typed transition failures into
// actionable messages, keeping the valid-target list visible.
func describeTransitionError(err error) error {
	switch e := err.(type) {
	case domain.InvalidTransitionError:
		return fmt.Errorf("anomaly %s cannot move from %s to %s (allowed: %s)", e.ID, e.Current, e.Target, joinStatuses(e.Allowed))
	case domain.PreconditionFailedError:
		return fmt.Errorf("anomaly %s: %s", e.ID, e.Reason)
	default:
		return err
	}
}

func joinStatuses(statuses []domain.AnomalyStatus) string {
	if len(statuses) == 0 {
		return "none"
	}
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

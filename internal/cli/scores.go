package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"anomalycore/pkg/domain"
)

func newPredictCommand(rootOpts *RootOptions) *cobra.Command {
	var fiabilite, disponibilite, processSafety float64

	cmd := &cobra.Command{
		Use:   "predict <anomaly-id>",
		Short: "Record a machine-predicted score set",
		Long: `Record a fresh machine prediction for an anomaly. The overall
criticality is derived as the sum of the three sub-scores, any previous
approval is revoked, and the predicted set becomes active again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			anomaly, _, err := a.service.ApplyPredicted(cmd.Context(), args[0], rootOpts.Actor, domain.PredictedScores{
				Fiabilite:     fiabilite,
				Disponibilite: disponibilite,
				ProcessSafety: processSafety,
			})
			if err != nil {
				return err
			}
			return emitScores(cmd.OutOrStdout(), rootOpts, anomaly)
		},
	}

	cmd.Flags().Float64Var(&fiabilite, "fiabilite", 0, "reliability-integrity score")
	cmd.Flags().Float64Var(&disponibilite, "disponibilite", 0, "availability score")
	cmd.Flags().Float64Var(&processSafety, "process-safety", 0, "process safety score")
	_ = cmd.MarkFlagRequired("fiabilite")
	_ = cmd.MarkFlagRequired("disponibilite")
	_ = cmd.MarkFlagRequired("process-safety")
	return cmd
}

func newApproveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <anomaly-id>",
		Short: "Approve the active score set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			anomaly, _, err := a.service.ApprovePredictions(cmd.Context(), args[0], rootOpts.Actor)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, anomaly, func(w io.Writer) {
				fmt.Fprintf(w, "anomaly %s scores approved by %s\n", anomaly.ID, valueOr(anomaly.ApprovedBy, "unknown"))
			})
		},
	}
}

func newOverrideCommand(rootOpts *RootOptions) *cobra.Command {
	var fiabilite, disponibilite, processSafety, criticite float64

	cmd := &cobra.Command{
		Use:   "override <anomaly-id>",
		Short: "Override predicted scores with expert values",
		Long: `Override some or all scores with expert judgment. Only the
flags you pass are changed; untouched fields keep their current override
value or fall back to the prediction. When all three sub-scores end up
present and no explicit criticality is given, the criticality is recomputed
as their sum. The override set becomes active and is auto-approved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]any{}
			if cmd.Flags().Changed("fiabilite") {
				fields[domain.FieldFiabiliteIntegrite] = fiabilite
			}
			if cmd.Flags().Changed("disponibilite") {
				fields[domain.FieldDisponibilite] = disponibilite
			}
			if cmd.Flags().Changed("process-safety") {
				fields[domain.FieldProcessSafety] = processSafety
			}
			if cmd.Flags().Changed("criticite") {
				fields[domain.FieldCriticite] = criticite
			}

			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			anomaly, _, err := a.service.OverridePredictionFields(cmd.Context(), args[0], rootOpts.Actor, fields)
			if err != nil {
				return err
			}
			return emitScores(cmd.OutOrStdout(), rootOpts, anomaly)
		},
	}

	cmd.Flags().Float64Var(&fiabilite, "fiabilite", 0, "reliability-integrity score")
	cmd.Flags().Float64Var(&disponibilite, "disponibilite", 0, "availability score")
	cmd.Flags().Float64Var(&processSafety, "process-safety", 0, "process safety score")
	cmd.Flags().Float64Var(&criticite, "criticite", 0, "explicit overall criticality")
	return cmd
}

func newScoresCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scores <anomaly-id>",
		Short: "Show the active score set for an anomaly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			anomaly, err := a.service.GetAnomaly(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emitScores(cmd.OutOrStdout(), rootOpts, anomaly)
		},
	}
}

func emitScores(w io.Writer, rootOpts *RootOptions, anomaly domain.Anomaly) error {
	scores := anomaly.ActiveScores()
	payload := struct {
		ID            string          `json:"id"`
		UseUserScores bool            `json:"use_user_scores"`
		IsApproved    bool            `json:"is_approved"`
		Scores        domain.ScoreSet `json:"scores"`
	}{anomaly.ID, anomaly.UseUserScores, anomaly.IsApproved, scores}

	return emit(w, rootOpts, payload, func(w io.Writer) {
		source := "predicted"
		if anomaly.UseUserScores {
			source = "override"
		}
		fmt.Fprintf(w, "anomaly %s (%s scores, approved=%t)\n", anomaly.ID, source, anomaly.IsApproved)
		fmt.Fprintf(w, "  fiabilite_integrite: %s\n", formatScore(scores.FiabiliteIntegrite))
		fmt.Fprintf(w, "  disponibilite:       %s\n", formatScore(scores.Disponibilite))
		fmt.Fprintf(w, "  process_safety:      %s\n", formatScore(scores.ProcessSafety))
		fmt.Fprintf(w, "  criticite:           %s\n", formatScore(scores.Criticite))
	})
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

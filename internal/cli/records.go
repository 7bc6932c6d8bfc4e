package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCloseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <anomaly-id> <rex-file>",
		Short: "Close an anomaly with its justification file",
		Long: `Upload a REX (return of experience) file to artifact storage
and close the anomaly in one step. The upload happens first; the status
only changes once the file is durably stored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = file.Close() }()

			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			anomaly, _, err := a.service.CloseWithArtifact(cmd.Context(), args[0], rootOpts.Actor, filepath.Base(args[1]), file, "")
			if err != nil {
				return describeTransitionError(err)
			}
			return emit(cmd.OutOrStdout(), rootOpts, anomaly, func(w io.Writer) {
				fmt.Fprintf(w, "anomaly %s closed, artifact %s\n", anomaly.ID, valueOr(anomaly.RexFile, "?"))
			})
		},
	}
	return cmd
}

func newGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <anomaly-id>",
		Short: "Show one anomaly record",
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
			return emit(cmd.OutOrStdout(), rootOpts, anomaly, func(w io.Writer) {
				fmt.Fprintf(w, "%s  %-12s  %s\n", anomaly.ID, anomaly.Status, anomaly.Title)
				fmt.Fprintf(w, "  equipment %s (%s), system %s, section %s\n",
					anomaly.NumEquipement, anomaly.DescriptionEquipement, anomaly.Systeme, anomaly.SectionProprietaire)
				fmt.Fprintf(w, "  detected %s\n", anomaly.DateDetection.Format("2006-01-02"))
			})
		},
	}
}

func newListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all anomaly records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			anomalies := a.service.ListAnomalies(cmd.Context())
			return emit(cmd.OutOrStdout(), rootOpts, anomalies, func(w io.Writer) {
				for _, an := range anomalies {
					fmt.Fprintf(w, "%s  %-12s  %s\n", an.ID, an.Status, an.Title)
				}
				fmt.Fprintf(w, "%d anomalies\n", len(anomalies))
			})
		},
	}
}

func newReindexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the derived document index from the record store",
		Long: `Push every stored record back to the indexing service. Stable
document keys make this idempotent: existing documents are overwritten in
place, so a drifted or freshly provisioned index converges on the store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			pushed, err := a.service.ReindexAll(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), rootOpts, map[string]int{"pushed": pushed}, func(w io.Writer) {
				fmt.Fprintf(w, "pushed %d records to the index\n", pushed)
			})
		},
	}
}

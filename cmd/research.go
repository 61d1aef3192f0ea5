package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/firm-research/internal/model"
)

var researchSubject model.Subject

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a single firm by website URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		run, err := e.store.CreateRun(ctx, researchSubject)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		if err := e.store.UpdateRunStatus(ctx, run.ID, model.RunStatusDiscovering); err != nil {
			return eris.Wrap(err, "update run status")
		}

		rec, err := e.newPipeline().Run(ctx, researchSubject)
		if err != nil {
			if failErr := e.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
				zap.L().Error("mark run failed", zap.Error(failErr))
			}
			return eris.Wrap(err, "research run")
		}

		if err := e.store.UpdateRunResult(ctx, run.ID, rec); err != nil {
			return eris.Wrap(err, "save run result")
		}

		zap.L().Info("research complete",
			zap.String("run_id", run.ID),
			zap.String("firm", rec.SubjectName),
			zap.Int("overall_confidence", rec.DataQuality.Confidence[model.ConfOverall]),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchSubject.URL, "url", "", "firm website URL (required)")
	researchCmd.Flags().StringVar(&researchSubject.Name, "name", "", "firm name hint")
	researchCmd.Flags().StringVar(&researchSubject.Contact, "contact", "", "contact person hint")
	researchCmd.Flags().StringVar(&researchSubject.City, "city", "", "city hint")
	researchCmd.Flags().StringVar(&researchSubject.Region, "region", "", "region/state hint")
	researchCmd.Flags().StringVar(&researchSubject.Country, "country", "", "country hint")
	_ = researchCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(researchCmd)
}

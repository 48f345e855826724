package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/medpredict/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base and model status",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		knowledge, err := e.store.KnowledgeBase(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Knowledge base:  %d diseases, %d symptoms, %d weights\n",
			len(knowledge.Diseases()), len(knowledge.Symptoms()), len(knowledge.Weights()))

		key := e.predictor.ModelKey()
		a, err := e.store.ArtifactRepo().Latest(ctx, key)
		switch {
		case errors.Is(err, store.ErrArtifactNotFound):
			fmt.Printf("Model %q:  %s\n", key, color.YellowString("not trained"))
		case err != nil:
			return fmt.Errorf("load artifact: %w", err)
		default:
			fmt.Printf("Model %q:  format %s, %d bytes, saved %s\n",
				key, a.FormatVersion, len(a.Payload), a.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}

		run, err := e.store.TrainingRunRepo().LatestTrainingRun(ctx)
		if err != nil {
			return fmt.Errorf("load training run: %w", err)
		}
		if run != nil {
			status := color.GreenString("ok")
			if !run.Success {
				status = color.RedString("failed: %s", run.ErrorMessage)
			}
			fmt.Printf("Last training:   %s, %d samples in %s (%s)\n",
				run.CreatedAt.Local().Format("2006-01-02 15:04:05"), run.Samples, run.Duration, status)
		}

		drift, err := e.predictor.Drift(ctx)
		if err != nil {
			return fmt.Errorf("check drift: %w", err)
		}
		if drift == nil {
			return nil
		}
		if !drift.Any() {
			fmt.Printf("Drift:           %s\n", color.GreenString("none"))
			return nil
		}
		fmt.Printf("Drift:           %s\n", color.YellowString("model is out of date, run `medpredict train`"))
		if n := len(drift.NewSymptoms); n > 0 {
			fmt.Printf("  %d symptom(s) added since training\n", n)
		}
		if n := len(drift.RemovedSymptoms); n > 0 {
			fmt.Printf("  %d symptom(s) removed since training\n", n)
		}
		if len(drift.UnknownLabels) > 0 {
			fmt.Printf("  predicts unknown diseases: %s\n", strings.Join(drift.UnknownLabels, ", "))
		}
		if len(drift.UntrainedDiseases) > 0 {
			fmt.Printf("  cannot predict: %s\n", strings.Join(drift.UntrainedDiseases, ", "))
		}
		return nil
	},
}

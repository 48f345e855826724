package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/medpredict/internal/diagnosis"
	"github.com/abhisek/medpredict/internal/formatter"
	"github.com/abhisek/medpredict/internal/kb"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict likely diseases from symptoms",
	Example: `  medpredict predict -s Fever:8 -s "Runny Nose" -s Cough:6:3d:gradual
  medpredict predict -s Fever -s Chills -s Sweating --user alice -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, _ := cmd.Flags().GetStringArray("symptom")
		userID, _ := cmd.Flags().GetString("user")
		sessionID, _ := cmd.Flags().GetString("session")
		noRecord, _ := cmd.Flags().GetBool("no-record")
		output, _ := cmd.Flags().GetString("output")

		if len(specs) == 0 {
			return fmt.Errorf("at least one --symptom is required")
		}
		if !formatter.ValidFormat(output) {
			return fmt.Errorf("unknown output format %q (want human, json or yaml)", output)
		}

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
		obs, err := parseSymptoms(knowledge, specs)
		if err != nil {
			return err
		}

		req := diagnosis.PredictRequest{Observations: obs}
		if userID != "" {
			history, err := e.store.SubmissionRepo().UserHistory(ctx, userID, kb.HighConfidenceThreshold)
			if err != nil {
				return fmt.Errorf("load user history: %w", err)
			}
			req.User = history
		}

		res, err := e.predictor.Predict(ctx, req)
		if err != nil {
			return err
		}
		if res.Empty() {
			return diagnosis.ErrEmptyPrediction
		}

		if !noRecord {
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			if _, err := e.store.SubmissionRepo().Record(ctx, res.Submission(userID, sessionID, time.Now())); err != nil {
				fmt.Fprintln(os.Stderr, "warning: failed to record prediction:", err)
			}
		}

		return formatter.DisplayPrediction(os.Stdout, res, output)
	},
}

func init() {
	predictCmd.Flags().StringArrayP("symptom", "s", nil, `Symptom as "Name[:severity[:duration[:onset]]]" (repeatable)`)
	predictCmd.Flags().String("user", "", "User id for personalized scoring and history")
	predictCmd.Flags().String("session", "", "Session id to record (default: random)")
	predictCmd.Flags().Bool("no-record", false, "Do not store this prediction")
	predictCmd.Flags().StringP("output", "o", "human", "Output format: human, json or yaml")
}

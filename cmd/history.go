package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/medpredict/internal/formatter"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		output, _ := cmd.Flags().GetString("output")
		if !formatter.ValidFormat(output) {
			return fmt.Errorf("unknown output format %q (want human, json or yaml)", output)
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		recs, err := e.store.SubmissionRepo().Recent(cmd.Context(), userID, limit)
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}
		return formatter.DisplayHistory(os.Stdout, recs, output)
	},
}

func init() {
	historyCmd.Flags().String("user", "", "Only show predictions for this user")
	historyCmd.Flags().Int("limit", 20, "Maximum number of predictions to show")
	historyCmd.Flags().StringP("output", "o", "human", "Output format: human, json or yaml")
}

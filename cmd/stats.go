package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/medpredict/internal/formatter"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show prediction statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		output, _ := cmd.Flags().GetString("output")
		if !formatter.ValidFormat(output) {
			return fmt.Errorf("unknown output format %q (want human, json or yaml)", output)
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.store.SubmissionRepo().Stats(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("compute stats: %w", err)
		}
		return formatter.DisplayStats(os.Stdout, st, output)
	},
}

func init() {
	statsCmd.Flags().String("user", "", "Only include predictions for this user")
	statsCmd.Flags().StringP("output", "o", "human", "Output format: human, json or yaml")
}

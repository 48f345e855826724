package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the trained model",
	Long:  "Deletes every stored artifact of the model and drops any cached copy. The next prediction retrains.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		key := e.predictor.ModelKey()
		n, err := e.store.ArtifactRepo().Delete(ctx, key)
		if err != nil {
			return fmt.Errorf("delete artifacts: %w", err)
		}
		if err := e.predictor.Forget(ctx); err != nil {
			return err
		}
		fmt.Printf("Deleted %d artifact(s) for model %q.\n", n, key)
		return nil
	},
}

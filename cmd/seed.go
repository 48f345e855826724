package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/medpredict/internal/kb"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in knowledge base",
	Long: "Loads the built-in symptoms, diseases and weights. Existing entries are " +
		"kept; use --reset to replace the knowledge base.",
	RunE: func(cmd *cobra.Command, args []string) error {
		reset, _ := cmd.Flags().GetBool("reset")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		repo := e.store.KnowledgeRepo()
		if reset {
			if err := repo.Reset(ctx); err != nil {
				return fmt.Errorf("reset knowledge base: %w", err)
			}
			if err := e.predictor.Forget(ctx); err != nil {
				return fmt.Errorf("forget model: %w", err)
			}
		}

		res, err := repo.Seed(ctx, kb.DefaultSeed())
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d symptoms, %d diseases, %d weights.\n", res.Symptoms, res.Diseases, res.Weights)
		if res.Diseases > 0 || reset {
			fmt.Println("Run `medpredict train` to refresh the model.")
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().Bool("reset", false, "Delete the existing knowledge base first")
}

package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model from the knowledge base and past predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
		s.Suffix = " Training model..."
		s.Start()
		start := time.Now()
		summary, err := e.predictor.Train(cmd.Context())
		s.Stop()
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}

		fmt.Printf("%s Trained %q on %d samples (%d diseases, %d symptoms) in %s\n",
			color.GreenString("✓"), e.predictor.ModelKey(),
			summary.SamplesTrained, summary.Diseases, summary.Symptoms,
			time.Since(start).Round(time.Millisecond))
		return nil
	},
}

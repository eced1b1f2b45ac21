package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the classifier from the gallery",
	Long: `Rebuild the classifier from every crop in the gallery and rewrite the model
and label files. An empty gallery removes both files.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg, logger, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.models.Train(cmd.Context()); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	stats := rt.models.Stats()
	if !stats.Trained {
		fmt.Fprintln(cmd.OutOrStdout(), "Gallery is empty, classifier cleared")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Trained on %d crops of %d identities\n", stats.Samples, stats.Identities)
	return nil
}

package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veerdrishti/veerdrishti/internal/live"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run recognition over a still image",
	Long: `Run one live-loop cycle over an image file and print the detections.
With --out the annotated frame is written as JPEG.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().String("out", "", "Write the annotated frame to this path")
	detectCmd.Flags().Float64("threshold", 0, "Override MATCH_THRESHOLD")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		cfg.MatchThreshold = t
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	frame, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	rt, err := newRuntime(cfg, logger, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.models.Load(); err != nil {
		return fmt.Errorf("load classifier: %w", err)
	}
	if !rt.models.Stats().Trained {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: classifier is not trained, every face will be unknown")
	}

	opts := live.DefaultOptions()
	opts.JPEGQuality = cfg.JPEGQuality
	snap, err := live.NewController(rt.pipeline, rt.models, opts, logger).Process(frame)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BOX\tLABEL\tCATEGORY\tDISTANCE\tALERT")
	for _, d := range snap.Detections {
		fmt.Fprintf(w, "%d,%d %dx%d\t%s\t%s\t%.1f\t%v\n",
			d.BBox.X, d.BBox.Y, d.BBox.Width, d.BBox.Height,
			d.Label, d.Category, d.Confidence, d.Alert)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if out := mustGetString(cmd, "out"); out != "" {
		if err := os.WriteFile(out, snap.Frame, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image|dir>...",
	Short: "Enroll faces from image files",
	Long: `Enroll every face found in the given images. Directories are read one level
deep. With --id all images go to that identity; without it each image is
enrolled under its parent directory name, so a tree like

  people/P1/a.jpg
  people/P2/b.jpg

can be imported with: veerctl enroll --category official people/P1 people/P2

The classifier is retrained once after all images are processed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().String("id", "", "Identity id for all images (default: parent directory name)")
	enrollCmd.Flags().String("category", "citizen", "Category: official, citizen or criminal")
	enrollCmd.Flags().Bool("no-train", false, "Skip retraining after enrollment")
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	files, err := collectImages(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no images found")
	}

	rt, err := newRuntime(cfg, logger, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	fixedID := mustGetString(cmd, "id")
	category := domain.ParseCategory(mustGetString(cmd, "category"))

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var saved, empty int
	var failures []string
	for _, path := range files {
		id := fixedID
		if id == "" {
			id = filepath.Base(filepath.Dir(path))
		}

		n, err := enrollFile(cmd, rt, id, category, path)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
		case n == 0:
			empty++
		default:
			saved += n
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(cmd.ErrOrStderr())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Saved %d crops from %d images (%d without faces, %d failed)\n",
		saved, len(files), empty, len(failures))
	for _, f := range failures {
		fmt.Fprintf(out, "  %s\n", f)
	}

	if saved > 0 && !mustGetBool(cmd, "no-train") {
		if err := rt.models.Train(cmd.Context()); err != nil {
			return fmt.Errorf("train: %w", err)
		}
		stats := rt.models.Stats()
		fmt.Fprintf(out, "Trained on %d crops of %d identities\n", stats.Samples, stats.Identities)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d images failed", len(failures))
	}
	return nil
}

func enrollFile(cmd *cobra.Command, rt *runtime, id string, category domain.Category, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return rt.store.Enroll(cmd.Context(), id, category, raw)
}

// collectImages expands directories one level deep and keeps image files, in
// argument order.
func collectImages(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			files = append(files, filepath.Join(arg, e.Name()))
		}
	}
	return files, nil
}

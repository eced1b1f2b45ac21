package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/gallery"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("category", "", "Only show identities of this category (official, citizen, criminal)")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Listing only walks the tree; no detector needed.
	identities, err := gallery.New(cfg.FacesDir(), nil, logger).Snapshot()
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	filter := mustGetString(cmd, "category")
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tCROPS")

	shown := 0
	for _, id := range identities {
		if filter != "" && id.Category != domain.ParseCategory(filter) {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", id.ID, id.Category, len(id.CropPaths))
		shown++
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d identities\n", shown)
	return nil
}

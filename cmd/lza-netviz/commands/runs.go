package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/artifact"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored analysis artifacts",
	Long: `Lists stored runs at the configured output destination, newest
first, with the summary of the latest artifact.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := storage.Open(ctx, cfg.Output)
		if err != nil {
			return err
		}

		keys, err := storage.Runs(ctx, store)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No stored runs.")
			return nil
		}

		for _, k := range keys {
			fmt.Println(" ", k)
		}

		raw, err := storage.Latest(ctx, store)
		if err != nil {
			return nil
		}
		var a artifact.Artifact
		if err := json.Unmarshal(raw, &a); err == nil {
			fmt.Printf("\nLatest (%s): %s\n", a.Metadata.GeneratedAt.Format("2006-01-02 15:04:05"), a.Summary())
		}
		return nil
	},
}

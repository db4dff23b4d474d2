package commands

import (
	"github.com/spf13/cobra"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/config"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Analyze a live AWS account",
	Long: `Snapshots the network of a running AWS account via the EC2 APIs
and analyzes it exactly like a configuration file.

Example:
  lza-netviz snapshot --region eu-west-1 --profile network-admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Source.Kind = config.SourceAWS
		return runAnalysis(cmd)
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&cfg.Source.Region, "region", config.DefaultRegion, "AWS region")
	snapshotCmd.Flags().StringVar(&cfg.Source.Profile, "profile", "", "AWS shared config profile")
	snapshotCmd.Flags().StringVar(&cfg.Source.Account, "account", "", "Account label recorded on snapshot nodes")
}

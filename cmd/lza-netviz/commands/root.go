package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/config"
	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/version"
)

var (
	cfgFile string
	cfg     = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "lza-netviz",
	Short: "Landing zone network topology analyzer",
	Long: `lza-netviz builds a topology graph from landing zone network
configuration or a live AWS account, checks it against the compliance
catalog, and emits a JSON artifact for rendering.`,
	Version:       version.Version,
	Run:           nil,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Deferred cleanup inside the commands has already run here.
		if errors.Is(err, errFindingsGate) {
			os.Exit(2)
		}
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.lza-netviz.yaml)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", config.DefaultOutput, "Artifact destination (directory or s3://bucket/prefix)")
	rootCmd.PersistentFlags().StringVar(&cfg.RulesFile, "rules", "", "Operator rule file (CEL conditions)")
	rootCmd.PersistentFlags().StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", "", "OTLP trace endpoint")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if cfg.Verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(runsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".lza-netviz.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("LZA_NETVIZ")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		if err := viper.Unmarshal(&cfg); err != nil {
			fmt.Printf("Warning: could not apply config file: %v\n", err)
		}
	}
}

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00B7FF")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Println(titleStyle.Render(fmt.Sprintf("LZA-NETVIZ %s", version.Version)))
	fmt.Println("Landing zone network topology analyzer.")

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	fmt.Println(titleStyle.Render("COMMANDS"))
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() {
			fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
		}
	}
	fmt.Println("")

	fmt.Println(titleStyle.Render("EXAMPLES"))
	fmt.Println("  lza-netviz analyze network-config.yaml   # Analyze a landing zone config")
	fmt.Println("  lza-netviz snapshot --region eu-west-1   # Analyze a live AWS account")
	fmt.Println("  lza-netviz runs                          # List stored artifacts")
	fmt.Println("")

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		fmt.Println(flagStyle.Render(fmt.Sprintf("  --%-16s %s", f.Name, f.Usage)))
	})
}

// Command armature works with creature skeletons outside the editor: it
// builds them from scripts, validates saved files and exports meshes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/config"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    = config.Default()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "armature",
	Short: "Build, check and export creature skeletons",
	Long: `armature works with skeleton files written by the editor.

Skeletons are graphs of joints joined by connectors, with muscles spanning
pairs of connectors. They are stored as YAML and can be generated from
scripts (*.armature).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger, err = config.NewLogger(cfg.Log, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "armature.toml", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	buildCmd.Flags().StringVarP(&buildOut, "output", "o", "", "skeleton file to write (default from config)")
	meshCmd.Flags().StringVarP(&meshOut, "output", "o", "", "JSON file to write (default stdout)")
	meshCmd.Flags().BoolVar(&meshMerged, "merged", false, "export one merged mesh instead of one per visual")

	rootCmd.AddCommand(buildCmd, validateCmd, meshCmd, infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

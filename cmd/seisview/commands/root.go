package commands

import (
	"github.com/spf13/cobra"

	"github.com/seisview/seisview/pkg/cli"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "seisview",
	Short: "Client tools for the seisview tile streaming protocol",
	Long: `seisview - client tools for streamed seismic tile ingest.

The ingest pipeline validates binary tile frames, decompresses payloads on
a bounded worker pool, and adapts the requested stream quality to observed
performance.

Configuration is stored in ~/.seisview/config.yaml.

Examples:
  # Connect to a tile server and watch the pipeline
  seisview ingest wss://tiles.example.com/stream

  # Replay a captured frame dump through the validator
  seisview decode capture.tiles`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.seisview/config.yaml)")
}

// loadConfig reads the configured or default config file.
func loadConfig() (*cli.Config, error) {
	return cli.LoadConfig(configPath)
}
